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


package badger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true, nil)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "db")
	backend, err := OpenBackend(dir, false, nil)
	require.NoError(t, err)
	defer backend.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := OpenBackend(path, false, nil)
	assert.Error(t, err)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true, nil)
	require.NoError(t, err)

	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"scale invariant", []float32{2, 0}, []float32{5, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineDistance(tt.a, tt.b), 1e-9)
		})
	}
}

func TestKeys_PairPrefixIsExact(t *testing.T) {
	a := makeChunkKey(pairOf("v1", "en"), 0)
	b := makePairPrefix(chunkPrefix, pairOf("v1", "e"))
	assert.NotEqual(t, string(b), string(a[:len(b)]))

	pair, ok := parsePair(a[len(chunkPrefix):])
	require.True(t, ok)
	assert.Equal(t, pairOf("v1", "en"), pair)
}
