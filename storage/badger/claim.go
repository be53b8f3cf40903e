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
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/reviewpoint/core"
	"github.com/poiesic/reviewpoint/storage"
)

// ClaimRepository implements storage.ClaimRepository for BadgerDB.
type ClaimRepository struct {
	backend *Backend
}

var _ storage.ClaimRepository = (*ClaimRepository)(nil)

// NewClaimRepository creates a new ClaimRepository.
func NewClaimRepository(backend *Backend) *ClaimRepository {
	return &ClaimRepository{backend: backend}
}

// HasRawExtraction reports whether the pair's transcript was extracted.
func (r *ClaimRepository) HasRawExtraction(ctx context.Context, pair core.PairKey) (bool, error) {
	var found bool
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		found, err = exists(tx, makeRawExtractionKey(pair))
		return err
	}, false)
	return found, err
}

// RawExtraction returns the stored raw output of one pair.
func (r *ClaimRepository) RawExtraction(ctx context.Context, pair core.PairKey) (*core.RawExtraction, error) {
	var raw *core.RawExtraction
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		raw, err = readValue[core.RawExtraction](tx, makeRawExtractionKey(pair), core.RawExtractionMUS)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, storage.ErrNotFound
	}
	return raw, nil
}

// AddExtraction stores the raw output and inserts absent claims.
func (r *ClaimRepository) AddExtraction(ctx context.Context, raw *core.RawExtraction, claims []*core.Claim) (int, error) {
	inserted := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		inserted = 0
		now := time.Now().UTC()
		if raw.CreatedAt.IsZero() {
			raw.CreatedAt = now
		}
		pair := core.PairKey{VideoID: raw.VideoID, Lang: raw.Lang}
		if err := tx.Set(makeRawExtractionKey(pair), storage.Marshal[core.RawExtraction](core.RawExtractionMUS, raw)); err != nil {
			return err
		}
		for _, claim := range claims {
			key := makeClaimKey(claim.ID())
			found, err := exists(tx, key)
			if err != nil {
				return err
			}
			if found {
				continue
			}
			if claim.CreatedAt.IsZero() {
				claim.CreatedAt = now
			}
			if err := tx.Set(key, storage.Marshal[core.Claim](core.ClaimMUS, claim)); err != nil {
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

// Claims returns every extracted claim ordered by id.
func (r *ClaimRepository) Claims(ctx context.Context) ([]*core.Claim, error) {
	var claims []*core.Claim
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		claims, err = readAll[core.Claim](tx, []byte(claimPrefix), core.ClaimMUS)
		return err
	}, false)
	return claims, err
}
