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
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/reviewpoint/storage"
)

const (
	defaultSequenceBandwidth = 100
)

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist. A nil logger uses slog.Default().
func OpenBackend(filePath string, inMemory bool, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "badger")

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(filePath, 0755); err != nil {
				return nil, err
			}
			if info, err = os.Stat(filePath); err != nil {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// GetSequence returns a BadgerDB sequence for generating sequential IDs.
func (b *Backend) GetSequence(name string) (*badger.Sequence, error) {
	return b.db.GetSequence([]byte(name), defaultSequenceBandwidth)
}

// nextSeq returns the next value of seq, skipping zero.
func nextSeq(seq *badger.Sequence) (uint64, error) {
	next, err := seq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if next == 0 {
		return seq.Next()
	}
	return next, nil
}

// scanPrefix calls fn for every key under prefix in key order. The key and
// value are only valid for the duration of the call.
func scanPrefix(tx *badger.Txn, prefix []byte, fn func(key, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		key := item.Key()
		if err := item.Value(func(val []byte) error {
			return fn(key, val)
		}); err != nil {
			return err
		}
	}
	return nil
}

// scanKeys returns copies of every key under prefix.
func scanKeys(tx *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	return keys
}

// hasPrefix reports whether any key exists under prefix.
func hasPrefix(tx *badger.Txn, prefix []byte) bool {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()
	iter.Rewind()
	return iter.Valid()
}

// exists reports whether key is present.
func exists(tx *badger.Txn, key []byte) (bool, error) {
	_, err := tx.Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}

// readValue reads and decodes key. Returns nil, nil if the key is absent.
func readValue[T any](tx *badger.Txn, key []byte, codec storage.Codec[T]) (*T, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var v *T
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		v, unmarshalErr = storage.Unmarshal(codec, val)
		return unmarshalErr
	})
	return v, err
}

// readAll decodes every value under prefix in key order.
func readAll[T any](tx *badger.Txn, prefix []byte, codec storage.Codec[T]) ([]*T, error) {
	var out []*T
	err := scanPrefix(tx, prefix, func(_, val []byte) error {
		v, err := storage.Unmarshal(codec, val)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

// deleteKeys removes keys with a write batch so large deletions are not
// bounded by the transaction size limit.
func (b *Backend) deleteKeys(keys [][]byte) error {
	if len(keys) == 0 {
		return nil
	}
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// writeBatch sets many keys outside a single transaction.
func (b *Backend) writeBatch(fn func(set func(key, val []byte) error) error) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	if err := fn(wb.Set); err != nil {
		return err
	}
	return wb.Flush()
}
