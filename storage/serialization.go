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


package storage

import (
	"fmt"

	"github.com/poiesic/reviewpoint/core"
)

// Codec is the shape shared by the record codecs in core.
type Codec[T any] interface {
	Size(v T) int
	Marshal(v T, bs []byte) int
	Unmarshal(bs []byte) (T, int, error)
}

// Marshal serializes a record with its codec.
func Marshal[T any](c Codec[T], v *T) []byte {
	buf := make([]byte, c.Size(*v))
	c.Marshal(*v, buf)
	return buf
}

// Unmarshal deserializes a record with its codec.
func Unmarshal[T any](c Codec[T], data []byte) (*T, error) {
	v, _, err := c.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &v, nil
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}
