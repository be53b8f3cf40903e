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


package chunking

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/poiesic/reviewpoint/core"
)

// Default window geometry in seconds.
const (
	DefaultWindow = 30.0
	DefaultStride = 15.0
)

// MaxChunks caps the number of chunks generated for one pair.
const MaxChunks = 1 << 16

// GenerateChunks cuts one pair's segments into windows [stride*i, stride*i+window)
// for i in 0..floor(D/stride), where D is duration or, if duration is not
// positive and finite, the end of the last segment. It always returns at least
// one chunk and never more than MaxChunks.
func GenerateChunks(pair core.PairKey, duration float64, segments []*core.CaptionSegment, window, stride float64) []*core.Chunk {
	ordered := slices.Clone(segments)
	slices.SortFunc(ordered, func(a, b *core.CaptionSegment) int {
		if c := cmp.Compare(a.StartSec, b.StartSec); c != 0 {
			return c
		}
		return cmp.Compare(a.Idx, b.Idx)
	})

	if !finite(duration) || duration <= 0 {
		duration = 0
		for _, seg := range ordered {
			if end := seg.EndSec(); finite(end) {
				duration = max(duration, end)
			}
		}
	}
	count := 1
	if stride > 0 && finite(stride) {
		if n := math.Floor(duration / stride); n < MaxChunks {
			count = int(n) + 1
		} else {
			count = MaxChunks
		}
	}

	chunks := make([]*core.Chunk, count)
	for i := range chunks {
		start := stride * float64(i)
		end := start + window

		var texts []string
		for _, seg := range ordered {
			if seg.StartSec >= end {
				break
			}
			if overlaps(seg, start, end) {
				if text := strings.TrimSpace(seg.Text); text != "" {
					texts = append(texts, text)
				}
			}
		}

		chunks[i] = &core.Chunk{
			VideoID:  pair.VideoID,
			Lang:     pair.Lang,
			Index:    i,
			StartSec: start,
			EndSec:   end,
			Text:     strings.Join(texts, " "),
		}
	}
	return chunks
}

// overlaps reports whether the segment interval [start, start+dur) meets the
// window [lo, hi). A zero-duration segment is the point start.
func overlaps(seg *core.CaptionSegment, lo, hi float64) bool {
	if seg.DurSec <= 0 {
		return seg.StartSec >= lo && seg.StartSec < hi
	}
	return seg.StartSec < hi && seg.EndSec() > lo
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
