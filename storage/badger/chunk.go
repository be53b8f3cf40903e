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
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/reviewpoint/core"
	"github.com/poiesic/reviewpoint/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{backend: backend}
}

// HasChunks reports whether the pair has already been chunked.
func (r *ChunkRepository) HasChunks(ctx context.Context, pair core.PairKey) (bool, error) {
	var found bool
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		found = hasPrefix(tx, makePairPrefix(chunkPrefix, pair))
		return nil
	}, false)
	return found, err
}

// AddChunks writes all chunks of one pair in a single transaction.
func (r *ChunkRepository) AddChunks(ctx context.Context, pair core.PairKey, chunks []*core.Chunk) (bool, error) {
	added := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if hasPrefix(tx, makePairPrefix(chunkPrefix, pair)) {
			return nil
		}
		for _, chunk := range chunks {
			if chunk.Pair() != pair {
				continue
			}
			value := storage.Marshal[core.Chunk](core.ChunkMUS, chunk)
			if err := tx.Set(makeChunkKey(pair, chunk.Index), value); err != nil {
				return err
			}
		}
		added = true
		return tx.Commit()
	}, true)
	return added, err
}

// Chunks returns the chunks of one pair ordered by index.
func (r *ChunkRepository) Chunks(ctx context.Context, pair core.PairKey) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		chunks, err = readAll[core.Chunk](tx, makePairPrefix(chunkPrefix, pair), core.ChunkMUS)
		return err
	}, false)
	return chunks, err
}

// ChunkPairs lists the pairs that have chunks.
func (r *ChunkRepository) ChunkPairs(ctx context.Context) ([]core.PairKey, error) {
	var pairs []core.PairKey
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range scanKeys(tx, []byte(chunkPrefix)) {
			pair, ok := parsePair(key[len(chunkPrefix):])
			if !ok {
				continue
			}
			if n := len(pairs); n == 0 || pairs[n-1] != pair {
				pairs = append(pairs, pair)
			}
		}
		return nil
	}, false)
	return pairs, err
}

// UnembeddedChunks returns chunks with non-empty text and no embedding.
func (r *ChunkRepository) UnembeddedChunks(ctx context.Context) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(chunkPrefix), func(_, val []byte) error {
			chunk, err := storage.Unmarshal[core.Chunk](core.ChunkMUS, val)
			if err != nil {
				return err
			}
			if chunk.Text == "" {
				return nil
			}
			found, err := exists(tx, makeChunkEmbeddingKey(chunk.Pair(), chunk.Index))
			if err != nil {
				return err
			}
			if !found {
				chunks = append(chunks, chunk)
			}
			return nil
		})
	}, false)
	return chunks, err
}

// AddChunkEmbeddings inserts embeddings in one transaction, skipping chunks
// that already have one.
func (r *ChunkRepository) AddChunkEmbeddings(ctx context.Context, embeddings ...*core.ChunkEmbedding) (int, error) {
	inserted := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		inserted = 0
		now := time.Now().UTC()
		for _, emb := range embeddings {
			key := makeChunkEmbeddingKey(core.PairKey{VideoID: emb.VideoID, Lang: emb.Lang}, emb.Index)
			found, err := exists(tx, key)
			if err != nil {
				return err
			}
			if found {
				continue
			}
			if emb.CreatedAt.IsZero() {
				emb.CreatedAt = now
			}
			if err := tx.Set(key, storage.Marshal[core.ChunkEmbedding](core.ChunkEmbeddingMUS, emb)); err != nil {
				return err
			}
			inserted++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ChunkEmbeddingCount returns the number of indexed chunks of a pair.
func (r *ChunkRepository) ChunkEmbeddingCount(ctx context.Context, pair core.PairKey) (int, error) {
	var n int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		n = len(scanKeys(tx, makePairPrefix(chunkEmbeddingPrefix, pair)))
		return nil
	}, false)
	return n, err
}

// SearchChunks returns up to topK indexed chunks of the pair nearest to
// vector. The pair prefix restricts the scan to the pair's own embeddings.
func (r *ChunkRepository) SearchChunks(ctx context.Context, pair core.PairKey, vector []float32, topK int) ([]*core.ChunkHit, error) {
	if topK <= 0 {
		return nil, nil
	}
	type scored struct {
		index    int
		distance float64
	}
	var hits []*core.ChunkHit
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var candidates []scored
		err := scanPrefix(tx, makePairPrefix(chunkEmbeddingPrefix, pair), func(_, val []byte) error {
			emb, err := storage.Unmarshal[core.ChunkEmbedding](core.ChunkEmbeddingMUS, val)
			if err != nil {
				return err
			}
			if len(emb.Vector) == 0 {
				return nil
			}
			candidates = append(candidates, scored{index: emb.Index, distance: cosineDistance(vector, emb.Vector)})
			return nil
		})
		if err != nil {
			return err
		}

		slices.SortFunc(candidates, func(a, b scored) int {
			if a.distance < b.distance {
				return -1
			}
			if a.distance > b.distance {
				return 1
			}
			return a.index - b.index
		})
		if len(candidates) > topK {
			candidates = candidates[:topK]
		}

		for _, c := range candidates {
			chunk, err := readValue[core.Chunk](tx, makeChunkKey(pair, c.index), core.ChunkMUS)
			if err != nil {
				return err
			}
			if chunk == nil {
				continue
			}
			hits = append(hits, &core.ChunkHit{Chunk: chunk, Distance: c.distance})
		}
		return nil
	}, false)
	return hits, err
}
