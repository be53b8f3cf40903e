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
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/reviewpoint/core"
	"github.com/poiesic/reviewpoint/storage"
)

// errGenerationMoved is returned when another writer published a snapshot
// while a replacement was being written.
var errGenerationMoved = errors.New("canonical generation changed during replace")

// CanonicalRepository implements storage.CanonicalRepository for BadgerDB.
//
// Each table is stored in numbered generations under can:<entity>:<gen>. The
// pointer key canptr:<entity> names the current generation. A replacement
// writes a complete new generation, flips the pointer in one transaction
// and then deletes the old generation. Readers resolve the pointer and read
// the rows in the same transaction, so they never see a partial table.
type CanonicalRepository struct {
	backend *Backend
}

var _ storage.CanonicalRepository = (*CanonicalRepository)(nil)

// NewCanonicalRepository creates a new CanonicalRepository.
func NewCanonicalRepository(backend *Backend) *CanonicalRepository {
	return &CanonicalRepository{backend: backend}
}

func readGeneration(tx *badger.Txn, entity core.EntityType) (uint64, error) {
	item, err := tx.Get(makeCanonicalPointerKey(entity))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	var gen uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("%w: generation pointer for %s", storage.ErrSerializationFailed, entity)
		}
		gen = binary.BigEndian.Uint64(val)
		return nil
	})
	return gen, err
}

// listCurrent reads the rows of the current generation under the natural
// key prefix parts.
func listCurrent[T any](b *Backend, entity core.EntityType, codec storage.Codec[T], parts ...string) ([]*T, error) {
	var rows []*T
	err := b.WithTx(func(tx *badger.Txn) error {
		gen, err := readGeneration(tx, entity)
		if err != nil {
			return err
		}
		rows, err = readAll[T](tx, makeCanonicalKey(entity, gen, parts...), codec)
		return err
	}, false)
	return rows, err
}

// getCurrent reads one row of the current generation by natural key.
func getCurrent[T any](b *Backend, entity core.EntityType, codec storage.Codec[T], parts ...string) (*T, error) {
	var row *T
	err := b.WithTx(func(tx *badger.Txn) error {
		gen, err := readGeneration(tx, entity)
		if err != nil {
			return err
		}
		row, err = readValue[T](tx, makeCanonicalKey(entity, gen, parts...), codec)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, storage.ErrNotFound
	}
	return row, nil
}

// replaceTable publishes rows as the new generation of the entity's table.
func replaceTable[T any](b *Backend, entity core.EntityType, rows []*T, codec storage.Codec[T], keyFn func(gen uint64, v *T) []byte) error {
	var current uint64
	var stale [][]byte
	err := b.WithTx(func(tx *badger.Txn) error {
		var err error
		if current, err = readGeneration(tx, entity); err != nil {
			return err
		}
		// Leftovers of an earlier replacement that failed before its flip.
		currentPrefix := makeCanonicalPrefix(entity, current)
		for _, key := range scanKeys(tx, makeCanonicalTablePrefix(entity)) {
			if !bytes.HasPrefix(key, currentPrefix) {
				stale = append(stale, key)
			}
		}
		return nil
	}, false)
	if err != nil {
		return err
	}
	if err := b.deleteKeys(stale); err != nil {
		return err
	}

	next := current + 1
	err = b.writeBatch(func(set func(key, val []byte) error) error {
		for _, row := range rows {
			if err := set(keyFn(next, row), storage.Marshal(codec, row)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	var old [][]byte
	err = b.WithTx(func(tx *badger.Txn) error {
		gen, err := readGeneration(tx, entity)
		if err != nil {
			return err
		}
		if gen != current {
			return errGenerationMoved
		}
		old = scanKeys(tx, makeCanonicalPrefix(entity, current))
		if err := tx.Set(makeCanonicalPointerKey(entity), appendUint64(nil, next)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}

	if err := b.deleteKeys(old); err != nil {
		// The new snapshot is already current; the old rows are unreachable
		// and are removed by the next replacement.
		b.logger.Warn("failed to delete previous canonical generation",
			"entity", entity, "generation", current, "error", err)
	}
	b.logger.Debug("canonical table replaced", "entity", entity, "generation", next, "rows", len(rows))
	return nil
}

// Channels returns every canonical channel ordered by id.
func (r *CanonicalRepository) Channels(ctx context.Context) ([]*core.Channel, error) {
	return listCurrent[core.Channel](r.backend, core.EntityChannel, core.ChannelMUS)
}

// Channel returns one canonical channel.
func (r *CanonicalRepository) Channel(ctx context.Context, id string) (*core.Channel, error) {
	return getCurrent[core.Channel](r.backend, core.EntityChannel, core.ChannelMUS, id)
}

// Videos returns every canonical video ordered by id.
func (r *CanonicalRepository) Videos(ctx context.Context) ([]*core.Video, error) {
	return listCurrent[core.Video](r.backend, core.EntityVideo, core.VideoMUS)
}

// Video returns one canonical video.
func (r *CanonicalRepository) Video(ctx context.Context, id string) (*core.Video, error) {
	return getCurrent[core.Video](r.backend, core.EntityVideo, core.VideoMUS, id)
}

// Segments returns every caption segment ordered by (video, lang, idx).
func (r *CanonicalRepository) Segments(ctx context.Context) ([]*core.CaptionSegment, error) {
	return listCurrent[core.CaptionSegment](r.backend, core.EntitySegment, core.CaptionSegmentMUS)
}

// PairSegments returns the segments of one pair ordered by idx.
func (r *CanonicalRepository) PairSegments(ctx context.Context, pair core.PairKey) ([]*core.CaptionSegment, error) {
	return listCurrent[core.CaptionSegment](r.backend, core.EntitySegment, core.CaptionSegmentMUS, pair.VideoID, pair.Lang)
}

// CaptionPairs lists the distinct pairs that have caption segments.
func (r *CanonicalRepository) CaptionPairs(ctx context.Context) ([]core.PairKey, error) {
	var pairs []core.PairKey
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		gen, err := readGeneration(tx, core.EntitySegment)
		if err != nil {
			return err
		}
		prefix := makeCanonicalPrefix(core.EntitySegment, gen)
		for _, key := range scanKeys(tx, prefix) {
			pair, ok := parsePair(key[len(prefix):])
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

// CaptionFulls returns every full caption ordered by pair.
func (r *CanonicalRepository) CaptionFulls(ctx context.Context) ([]*core.CaptionFull, error) {
	return listCurrent[core.CaptionFull](r.backend, core.EntityCaption, core.CaptionFullMUS)
}

// CaptionFull returns the full caption of one pair.
func (r *CanonicalRepository) CaptionFull(ctx context.Context, pair core.PairKey) (*core.CaptionFull, error) {
	return getCurrent[core.CaptionFull](r.backend, core.EntityCaption, core.CaptionFullMUS, pair.VideoID, pair.Lang)
}

// SponsorLabels returns every sponsor label ordered by (video, source).
func (r *CanonicalRepository) SponsorLabels(ctx context.Context) ([]*core.SponsorLabel, error) {
	return listCurrent[core.SponsorLabel](r.backend, core.EntitySponsor, core.SponsorLabelMUS)
}

// VideoSponsorLabels returns the sponsor labels of one video.
func (r *CanonicalRepository) VideoSponsorLabels(ctx context.Context, videoID string) ([]*core.SponsorLabel, error) {
	return listCurrent[core.SponsorLabel](r.backend, core.EntitySponsor, core.SponsorLabelMUS, videoID)
}

// ReplaceChannels publishes a new channel table.
func (r *CanonicalRepository) ReplaceChannels(ctx context.Context, rows []*core.Channel) error {
	return replaceTable(r.backend, core.EntityChannel, rows, storage.Codec[core.Channel](core.ChannelMUS),
		func(gen uint64, v *core.Channel) []byte {
			return makeCanonicalKey(core.EntityChannel, gen, v.ID)
		})
}

// ReplaceVideos publishes a new video table.
func (r *CanonicalRepository) ReplaceVideos(ctx context.Context, rows []*core.Video) error {
	return replaceTable(r.backend, core.EntityVideo, rows, storage.Codec[core.Video](core.VideoMUS),
		func(gen uint64, v *core.Video) []byte {
			return makeCanonicalKey(core.EntityVideo, gen, v.ID)
		})
}

// ReplaceSegments publishes a new caption segment table.
func (r *CanonicalRepository) ReplaceSegments(ctx context.Context, rows []*core.CaptionSegment) error {
	return replaceTable(r.backend, core.EntitySegment, rows, storage.Codec[core.CaptionSegment](core.CaptionSegmentMUS),
		makeSegmentKey)
}

// ReplaceCaptionFulls publishes a new full caption table.
func (r *CanonicalRepository) ReplaceCaptionFulls(ctx context.Context, rows []*core.CaptionFull) error {
	return replaceTable(r.backend, core.EntityCaption, rows, storage.Codec[core.CaptionFull](core.CaptionFullMUS),
		func(gen uint64, v *core.CaptionFull) []byte {
			return makeCanonicalKey(core.EntityCaption, gen, v.VideoID, v.Lang)
		})
}

// ReplaceSponsorLabels publishes a new sponsor label table.
func (r *CanonicalRepository) ReplaceSponsorLabels(ctx context.Context, rows []*core.SponsorLabel) error {
	return replaceTable(r.backend, core.EntitySponsor, rows, storage.Codec[core.SponsorLabel](core.SponsorLabelMUS),
		func(gen uint64, v *core.SponsorLabel) []byte {
			return makeCanonicalKey(core.EntitySponsor, gen, v.VideoID, v.Source)
		})
}
