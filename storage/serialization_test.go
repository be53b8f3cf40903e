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
	"testing"
	"time"

	"github.com/poiesic/reviewpoint/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)},
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Empty(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.Error(t, err)
}

func TestMarshalUnmarshalChunk(t *testing.T) {
	chunk := &core.Chunk{
		VideoID:     "v1",
		Lang:        "en",
		Index:       3,
		StartSec:    45,
		EndSec:      75,
		Text:        "the breakfast buffet was amazing",
		Views:       1000,
		Subscribers: 50,
	}

	data := Marshal[core.Chunk](core.ChunkMUS, chunk)
	decoded, err := Unmarshal[core.Chunk](core.ChunkMUS, data)
	require.NoError(t, err)
	assert.Equal(t, chunk, decoded)
}

func TestMarshalUnmarshalForcedResolution(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	row := &core.ForcedResolution{
		Seq:         9,
		ClaimID:     core.IDFromContent("claim"),
		VideoID:     "v1",
		Lang:        "en",
		Subject:     "Hotel Shilla",
		Aspect:      "pool",
		EvidenceSec: 0,
		Reason:      core.ForcedReasonNoChunks,
		ForcedAt:    now,
	}

	data := Marshal[core.ForcedResolution](core.ForcedResolutionMUS, row)
	decoded, err := Unmarshal[core.ForcedResolution](core.ForcedResolutionMUS, data)
	require.NoError(t, err)
	assert.Equal(t, row, decoded)
}

func TestUnmarshal_Corrupt(t *testing.T) {
	_, err := Unmarshal[core.Claim](core.ClaimMUS, []byte{0xff})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
