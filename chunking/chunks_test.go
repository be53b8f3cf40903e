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
	"math"
	"testing"

	"github.com/poiesic/reviewpoint/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPair = core.PairKey{VideoID: "v1", Lang: "en"}

func seg(idx int, start, dur float64, text string) *core.CaptionSegment {
	return &core.CaptionSegment{VideoID: "v1", Lang: "en", Idx: idx, StartSec: start, DurSec: dur, Text: text}
}

func TestGenerateChunks_Density(t *testing.T) {
	for _, d := range []float64{0, 1, 10, 14.9, 15, 29.5, 30, 44, 45, 612.3, 3600} {
		chunks := GenerateChunks(testPair, d, nil, DefaultWindow, DefaultStride)
		want := int(math.Floor(d/15)) + 1
		require.Len(t, chunks, want, "duration %v", d)
		for i, c := range chunks {
			assert.Equal(t, i, c.Index)
			assert.Equal(t, 15*float64(i), c.StartSec)
			assert.Equal(t, 15*float64(i)+30, c.EndSec)
		}
	}
}

func TestGenerateChunks_ShortVideo(t *testing.T) {
	chunks := GenerateChunks(testPair, 10, []*core.CaptionSegment{seg(0, 2, 3, "hi there")}, DefaultWindow, DefaultStride)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0.0, chunks[0].StartSec)
	assert.Equal(t, 30.0, chunks[0].EndSec)
	assert.Equal(t, "hi there", chunks[0].Text)
}

func TestGenerateChunks_DurationFallsBackToLastSegment(t *testing.T) {
	segments := []*core.CaptionSegment{seg(0, 0, 5, "a"), seg(1, 40, 6, "b")}
	chunks := GenerateChunks(testPair, 0, segments, DefaultWindow, DefaultStride)
	assert.Len(t, chunks, 4, "D=46 gives floor(46/15)+1 chunks")
}

func TestGenerateChunks_NonFiniteDuration(t *testing.T) {
	segments := []*core.CaptionSegment{seg(0, 0, 5, "a"), seg(1, 40, 6, "b")}
	for _, d := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		chunks := GenerateChunks(testPair, d, segments, DefaultWindow, DefaultStride)
		assert.Len(t, chunks, 4, "duration %v falls back to the last segment end", d)

		chunks = GenerateChunks(testPair, d, nil, DefaultWindow, DefaultStride)
		assert.Len(t, chunks, 1, "duration %v without segments", d)
	}
}

func TestGenerateChunks_CountIsBounded(t *testing.T) {
	chunks := GenerateChunks(testPair, 1e300, nil, DefaultWindow, DefaultStride)
	assert.Len(t, chunks, MaxChunks)

	chunks = GenerateChunks(testPair, 0, []*core.CaptionSegment{seg(0, 0, math.Inf(1), "a")}, DefaultWindow, DefaultStride)
	assert.Len(t, chunks, 1, "non-finite segment ends are ignored")

	chunks = GenerateChunks(testPair, 60, nil, DefaultWindow, 0)
	assert.Len(t, chunks, 1, "non-positive stride")
}

func TestGenerateChunks_Overlap(t *testing.T) {
	segments := []*core.CaptionSegment{
		seg(3, 28, 4, "straddles"),  // [28,32) meets chunks 0, 1 and 2
		seg(1, 10, 5, "early"),      // [10,15) only chunk 0
		seg(2, 15, 0, "point"),      // point 15 is in chunks 0 and 1
		seg(4, 30, 0, "boundary"),   // point 30 is in chunks 1 and 2, not 0
		seg(5, 45, 5, "  "),         // blank text contributes nothing
		seg(0, 10, 2, "same start"), // ties on start order by idx
	}
	chunks := GenerateChunks(testPair, 45, segments, DefaultWindow, DefaultStride)
	require.Len(t, chunks, 4)

	assert.Equal(t, "same start early point straddles", chunks[0].Text)
	assert.Equal(t, "point straddles boundary", chunks[1].Text)
	assert.Equal(t, "straddles boundary", chunks[2].Text)
	assert.Equal(t, "", chunks[3].Text, "empty chunks keep indices dense")
}

func TestGenerateChunks_SegmentEndingAtChunkStart(t *testing.T) {
	chunks := GenerateChunks(testPair, 15, []*core.CaptionSegment{seg(0, 10, 5, "ends at 15")}, DefaultWindow, DefaultStride)
	require.Len(t, chunks, 2)
	assert.Equal(t, "ends at 15", chunks[0].Text)
	assert.Empty(t, chunks[1].Text, "half-open interval does not reach 15")
}

func TestGenerateChunks_DoesNotReorderInput(t *testing.T) {
	segments := []*core.CaptionSegment{seg(1, 20, 1, "b"), seg(0, 0, 1, "a")}
	GenerateChunks(testPair, 30, segments, DefaultWindow, DefaultStride)
	assert.Equal(t, 1, segments[0].Idx)
}
