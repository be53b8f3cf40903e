// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package commit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// maxLineSize bounds one JSON Lines record. Full captions are the largest rows.
const maxLineSize = 16 << 20

// ReadJSONL reads one JSON object per line. Scalars are stringified, arrays
// and objects are kept as JSON text and nulls are omitted. Blank lines are
// skipped.
func ReadJSONL(r io.Reader) ([]map[string]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var rows []map[string]string
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		row, err := decodeRow(data)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidJSONL, line, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read JSON Lines: %w", err)
	}
	return rows, nil
}

func decodeRow(data []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("expected an object")
	}

	row := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case nil:
		case string:
			row[k] = val
		case json.Number:
			row[k] = val.String()
		case bool:
			row[k] = strconv.FormatBool(val)
		default:
			encoded, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", k, err)
			}
			row[k] = string(encoded)
		}
	}
	return row, nil
}
