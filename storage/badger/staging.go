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
	"maps"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/reviewpoint/core"
	"github.com/poiesic/reviewpoint/storage"
)

// StagingRepository implements storage.StagingRepository for BadgerDB.
type StagingRepository struct {
	backend *Backend
	seq     *badger.Sequence
}

var _ storage.StagingRepository = (*StagingRepository)(nil)

// NewStagingRepository creates a new StagingRepository.
func NewStagingRepository(backend *Backend) (*StagingRepository, error) {
	seq, err := backend.GetSequence(stagingSeq)
	if err != nil {
		return nil, err
	}
	return &StagingRepository{
		backend: backend,
		seq:     seq,
	}, nil
}

// Close releases the staging sequence.
func (r *StagingRepository) Close() error {
	return r.seq.Release()
}

// Stage appends rows for one entity type.
func (r *StagingRepository) Stage(ctx context.Context, entity core.EntityType, rows ...map[string]string) ([]*core.StagedRecord, error) {
	if !entity.Valid() {
		return nil, storage.ErrUnknownEntity
	}
	records := make([]*core.StagedRecord, 0, len(rows))
	// Staging files can exceed the transaction size limit.
	err := r.backend.writeBatch(func(set func(key, val []byte) error) error {
		now := time.Now().UTC()
		for _, row := range rows {
			seq, err := nextSeq(r.seq)
			if err != nil {
				return err
			}
			record := &core.StagedRecord{
				Seq:      seq,
				Entity:   entity,
				Fields:   maps.Clone(row),
				StagedAt: now,
			}
			value := storage.Marshal[core.StagedRecord](core.StagedRecordMUS, record)
			if err := set(makeStagingKey(entity, seq), value); err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Staged returns every staged row of the entity type ordered by sequence.
func (r *StagingRepository) Staged(ctx context.Context, entity core.EntityType) ([]*core.StagedRecord, error) {
	if !entity.Valid() {
		return nil, storage.ErrUnknownEntity
	}
	var records []*core.StagedRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		records, err = readAll[core.StagedRecord](tx, makeStagingPrefix(entity), core.StagedRecordMUS)
		return err
	}, false)
	return records, err
}

// DeleteStaged removes the given staged rows.
func (r *StagingRepository) DeleteStaged(ctx context.Context, entity core.EntityType, seqs ...uint64) error {
	if !entity.Valid() {
		return storage.ErrUnknownEntity
	}
	keys := make([][]byte, len(seqs))
	for i, seq := range seqs {
		keys[i] = makeStagingKey(entity, seq)
	}
	return r.backend.deleteKeys(keys)
}
