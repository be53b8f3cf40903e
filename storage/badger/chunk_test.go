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
	"context"
	"testing"

	"github.com/poiesic/reviewpoint/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeChunks(pair core.PairKey, texts ...string) []*core.Chunk {
	chunks := make([]*core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &core.Chunk{
			VideoID:  pair.VideoID,
			Lang:     pair.Lang,
			Index:    i,
			StartSec: float64(15 * i),
			EndSec:   float64(15*i + 30),
			Text:     text,
		}
	}
	return chunks
}

func TestChunks_AddIsOncePerPair(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	pair := pairOf("v1", "en")

	has, err := repos.Chunks.HasChunks(ctx, pair)
	require.NoError(t, err)
	assert.False(t, has)

	added, err := repos.Chunks.AddChunks(ctx, pair, makeChunks(pair, "a", "b", ""))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repos.Chunks.AddChunks(ctx, pair, makeChunks(pair, "x"))
	require.NoError(t, err)
	assert.False(t, added)

	chunks, err := repos.Chunks.Chunks(ctx, pair)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "a", chunks[0].Text)

	pairs, err := repos.Chunks.ChunkPairs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.PairKey{pair}, pairs)
}

func TestChunks_EmbeddingsInsertIfAbsent(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	pair := pairOf("v1", "en")
	_, err := repos.Chunks.AddChunks(ctx, pair, makeChunks(pair, "a", "", "c"))
	require.NoError(t, err)

	pending, err := repos.Chunks.UnembeddedChunks(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2, "empty chunks are never pending")

	n, err := repos.Chunks.AddChunkEmbeddings(ctx, &core.ChunkEmbedding{VideoID: "v1", Lang: "en", Index: 0, Vector: []float32{1, 0}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repos.Chunks.AddChunkEmbeddings(ctx,
		&core.ChunkEmbedding{VideoID: "v1", Lang: "en", Index: 0, Vector: []float32{0, 1}},
		&core.ChunkEmbedding{VideoID: "v1", Lang: "en", Index: 2, Vector: []float32{0, 1}},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err = repos.Chunks.UnembeddedChunks(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	count, err := repos.Chunks.ChunkEmbeddingCount(ctx, pair)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestChunks_SearchIsScopedToPair(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	en := pairOf("v1", "en")
	de := pairOf("v1", "de")
	_, err := repos.Chunks.AddChunks(ctx, en, makeChunks(en, "a", "b", "c"))
	require.NoError(t, err)
	_, err = repos.Chunks.AddChunks(ctx, de, makeChunks(de, "x"))
	require.NoError(t, err)

	_, err = repos.Chunks.AddChunkEmbeddings(ctx,
		&core.ChunkEmbedding{VideoID: "v1", Lang: "en", Index: 0, Vector: []float32{0, 1}},
		&core.ChunkEmbedding{VideoID: "v1", Lang: "en", Index: 1, Vector: []float32{1, 0}},
		&core.ChunkEmbedding{VideoID: "v1", Lang: "en", Index: 2, Vector: []float32{1, 0}},
		&core.ChunkEmbedding{VideoID: "v1", Lang: "de", Index: 0, Vector: []float32{1, 0}},
	)
	require.NoError(t, err)

	hits, err := repos.Chunks.SearchChunks(ctx, en, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	// Equal distances resolve to the lowest chunk index.
	assert.Equal(t, 1, hits[0].Chunk.Index)
	assert.Equal(t, 2, hits[1].Chunk.Index)
	assert.Equal(t, "en", hits[0].Chunk.Lang)
	assert.InDelta(t, 0, hits[0].Distance, 1e-9)

	hits, err = repos.Chunks.SearchChunks(ctx, pairOf("v2", "en"), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
