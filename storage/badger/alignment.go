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

// AlignmentRepository implements storage.AlignmentRepository for BadgerDB.
type AlignmentRepository struct {
	backend   *Backend
	forcedSeq *badger.Sequence
}

var _ storage.AlignmentRepository = (*AlignmentRepository)(nil)

// NewAlignmentRepository creates a new AlignmentRepository.
func NewAlignmentRepository(backend *Backend) (*AlignmentRepository, error) {
	seq, err := backend.GetSequence(forcedSeq)
	if err != nil {
		return nil, err
	}
	return &AlignmentRepository{
		backend:   backend,
		forcedSeq: seq,
	}, nil
}

// Close releases the audit log sequence.
func (r *AlignmentRepository) Close() error {
	return r.forcedSeq.Release()
}

// UnalignedClaims returns extracted claims that have no aligned claim.
func (r *AlignmentRepository) UnalignedClaims(ctx context.Context) ([]*core.Claim, error) {
	var claims []*core.Claim
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(claimPrefix), func(key, val []byte) error {
			id := core.ID(decodeIDSuffix(key, claimPrefix))
			found, err := exists(tx, makeAlignedKey(id))
			if err != nil || found {
				return err
			}
			claim, err := storage.Unmarshal[core.Claim](core.ClaimMUS, val)
			if err != nil {
				return err
			}
			claims = append(claims, claim)
			return nil
		})
	}, false)
	return claims, err
}

// AddAlignments writes one aligner run in a single transaction. Aligned
// claims are insert-if-absent, diagnostics are upserted and forced rows
// are appended only for claims inserted by this call.
func (r *AlignmentRepository) AddAlignments(ctx context.Context, batch *storage.AlignmentBatch) (int, error) {
	if batch == nil {
		return 0, nil
	}
	inserted := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		inserted = 0
		now := time.Now().UTC()
		fresh := make(map[core.ID]bool, len(batch.Aligned))
		for _, aligned := range batch.Aligned {
			id := aligned.ID()
			key := makeAlignedKey(id)
			found, err := exists(tx, key)
			if err != nil {
				return err
			}
			if found {
				continue
			}
			if aligned.AlignedAt.IsZero() {
				aligned.AlignedAt = now
			}
			if err := tx.Set(key, storage.Marshal[core.AlignedClaim](core.AlignedClaimMUS, aligned)); err != nil {
				return err
			}
			fresh[id] = true
			inserted++
		}

		for _, diag := range batch.Diagnostics {
			if diag.CreatedAt.IsZero() {
				diag.CreatedAt = now
			}
			value := storage.Marshal[core.AlignmentDiagnostic](core.AlignmentDiagnosticMUS, diag)
			if err := tx.Set(makeDiagnosticKey(diag.ClaimID), value); err != nil {
				return err
			}
		}

		for _, forced := range batch.Forced {
			if !fresh[forced.ClaimID] {
				continue
			}
			seq, err := nextSeq(r.forcedSeq)
			if err != nil {
				return err
			}
			forced.Seq = seq
			if forced.ForcedAt.IsZero() {
				forced.ForcedAt = now
			}
			value := storage.Marshal[core.ForcedResolution](core.ForcedResolutionMUS, forced)
			if err := tx.Set(makeForcedKey(seq), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// AlignedClaims returns every aligned claim ordered by id.
func (r *AlignmentRepository) AlignedClaims(ctx context.Context) ([]*core.AlignedClaim, error) {
	var aligned []*core.AlignedClaim
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		aligned, err = readAll[core.AlignedClaim](tx, []byte(alignedPrefix), core.AlignedClaimMUS)
		return err
	}, false)
	return aligned, err
}

// AlignedClaim returns one aligned claim.
func (r *AlignmentRepository) AlignedClaim(ctx context.Context, id core.ID) (*core.AlignedClaim, error) {
	var aligned *core.AlignedClaim
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		aligned, err = readValue[core.AlignedClaim](tx, makeAlignedKey(id), core.AlignedClaimMUS)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if aligned == nil {
		return nil, storage.ErrNotFound
	}
	return aligned, nil
}

// Diagnostics returns every alignment diagnostic ordered by claim id.
func (r *AlignmentRepository) Diagnostics(ctx context.Context) ([]*core.AlignmentDiagnostic, error) {
	var diags []*core.AlignmentDiagnostic
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		diags, err = readAll[core.AlignmentDiagnostic](tx, []byte(diagnosticPrefix), core.AlignmentDiagnosticMUS)
		return err
	}, false)
	return diags, err
}

// ForcedLog returns the forced-resolution audit log in append order.
func (r *AlignmentRepository) ForcedLog(ctx context.Context) ([]*core.ForcedResolution, error) {
	var rows []*core.ForcedResolution
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		rows, err = readAll[core.ForcedResolution](tx, []byte(forcedPrefix), core.ForcedResolutionMUS)
		return err
	}, false)
	return rows, err
}
