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

// ClaimEmbeddingRepository implements storage.ClaimEmbeddingRepository for BadgerDB.
type ClaimEmbeddingRepository struct {
	backend *Backend
}

var _ storage.ClaimEmbeddingRepository = (*ClaimEmbeddingRepository)(nil)

// NewClaimEmbeddingRepository creates a new ClaimEmbeddingRepository.
func NewClaimEmbeddingRepository(backend *Backend) *ClaimEmbeddingRepository {
	return &ClaimEmbeddingRepository{backend: backend}
}

// UnembeddedClaims returns aligned claims without an embedding.
func (r *ClaimEmbeddingRepository) UnembeddedClaims(ctx context.Context) ([]*core.AlignedClaim, error) {
	var out []*core.AlignedClaim
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(alignedPrefix), func(key, val []byte) error {
			id := core.ID(decodeIDSuffix(key, alignedPrefix))
			found, err := exists(tx, makeClaimEmbeddingKey(id))
			if err != nil || found {
				return err
			}
			aligned, err := storage.Unmarshal[core.AlignedClaim](core.AlignedClaimMUS, val)
			if err != nil {
				return err
			}
			out = append(out, aligned)
			return nil
		})
	}, false)
	return out, err
}

// AddClaimEmbeddings inserts embeddings in one transaction, skipping claims
// that already have one.
func (r *ClaimEmbeddingRepository) AddClaimEmbeddings(ctx context.Context, embeddings ...*core.ClaimEmbedding) (int, error) {
	inserted := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		inserted = 0
		now := time.Now().UTC()
		for _, emb := range embeddings {
			key := makeClaimEmbeddingKey(emb.ClaimID)
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
			if err := tx.Set(key, storage.Marshal[core.ClaimEmbedding](core.ClaimEmbeddingMUS, emb)); err != nil {
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

// SearchClaims returns up to topK embeddings accepted by filter, nearest to
// vector by cosine distance. Equal distances order by claim id.
func (r *ClaimEmbeddingRepository) SearchClaims(ctx context.Context, vector []float32, filter func(*core.ClaimEmbedding) bool, topK int) ([]*core.ClaimHit, error) {
	if topK <= 0 {
		return nil, nil
	}
	var hits []*core.ClaimHit
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(claimEmbeddingPrefix), func(_, val []byte) error {
			emb, err := storage.Unmarshal[core.ClaimEmbedding](core.ClaimEmbeddingMUS, val)
			if err != nil {
				return err
			}
			if len(emb.Vector) == 0 || (filter != nil && !filter(emb)) {
				return nil
			}
			hits = append(hits, &core.ClaimHit{Embedding: emb, Distance: cosineDistance(vector, emb.Vector)})
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(hits, func(a, b *core.ClaimHit) int {
		if a.Distance < b.Distance {
			return -1
		}
		if a.Distance > b.Distance {
			return 1
		}
		if a.Embedding.ClaimID < b.Embedding.ClaimID {
			return -1
		}
		if a.Embedding.ClaimID > b.Embedding.ClaimID {
			return 1
		}
		return 0
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}
