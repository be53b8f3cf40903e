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


package core

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// MaxEvidenceLength is the maximum length, in runes, of a normalized evidence quote.
const MaxEvidenceLength = 500

// NormalizeEvidence lowercases text, strips control characters, collapses
// whitespace runs to a single space and truncates to MaxEvidenceLength runes.
// Chunk texts are normalized with the same function before literal matching.
func NormalizeEvidence(text string) string {
	return normalizeText(text, MaxEvidenceLength)
}

// NormalizeText applies NormalizeEvidence rules without truncation.
func NormalizeText(text string) string {
	return normalizeText(text, -1)
}

func normalizeText(text string, limit int) string {
	var b strings.Builder
	b.Grow(len(text))
	count := 0
	pendingSpace := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsSpace(r) {
			pendingSpace = count > 0
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		if pendingSpace {
			if limit >= 0 && count >= limit {
				break
			}
			b.WriteByte(' ')
			count++
			pendingSpace = false
		}
		if limit >= 0 && count >= limit {
			break
		}
		b.WriteRune(r)
		count++
	}
	return strings.TrimRight(b.String(), " ")
}

// PrimarySubtag returns the lowercased primary subtag of a language code
// ("en-US" -> "en", "pt_BR" -> "pt").
func PrimarySubtag(lang string) string {
	lang = strings.TrimSpace(lang)
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	return strings.ToLower(lang)
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseISODuration parses an ISO-8601 duration such as PT1H2M3S into seconds.
// An empty string is zero.
func ParseISODuration(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	m := isoDuration.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, ErrInvalidDuration
	}
	multipliers := []float64{86400, 3600, 60, 1}
	var total float64
	for i, mult := range multipliers {
		if m[i+1] == "" {
			continue
		}
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return 0, ErrInvalidDuration
		}
		total += v * mult
	}
	return total, nil
}
