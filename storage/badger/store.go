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
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/artifex/core"
	"github.com/poiesic/artifex/storage"
)

// VectorStore implements storage.VectorStore on BadgerDB.
type VectorStore struct {
	backend *Backend
	owned   bool
	logger  *slog.Logger
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates a vector store on a shared backend. Closing the
// store leaves the backend open.
func NewVectorStore(backend *Backend) storage.VectorStore {
	return newVectorStore(backend, false)
}

// OpenVectorStore opens a backend at path and returns a store that owns it.
func OpenVectorStore(path string, inMemory bool) (storage.VectorStore, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}
	return newVectorStore(backend, true), nil
}

func newVectorStore(backend *Backend, owned bool) *VectorStore {
	return &VectorStore{
		backend: backend,
		owned:   owned,
		logger:  slog.Default().With("component", "vector-store"),
	}
}

func (s *VectorStore) check(namespace string) (string, error) {
	if s.backend.IsClosed() {
		return "", storage.ErrStorageClosed
	}
	namespace = storage.Namespace(namespace)
	if err := validateNamespace(namespace); err != nil {
		return "", err
	}
	return namespace, nil
}

// UpsertVector stores vector and meta under id, replacing any previous entry.
func (s *VectorStore) UpsertVector(ctx context.Context, vector []float32, id, namespace string, meta map[string]any) (string, error) {
	namespace, err := s.check(namespace)
	if err != nil {
		return "", err
	}
	if err := core.ValidateMetadata(meta); err != nil {
		return "", err
	}
	if id == "" {
		id = storage.DefaultVectorID(fmt.Sprint(vector))
	}

	value, err := storage.MarshalEntry(&storage.Entry{Vector: vector, Meta: meta})
	if err != nil {
		return "", err
	}

	err = s.backend.update(func(tx *badger.Txn) error {
		return tx.Set(makeVectorKey(namespace, id), value)
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug("upserted vector", "id", id, "namespace", namespace, "dims", len(vector))
	return id, nil
}

// LoadEntry returns the entry stored under id, or nil, nil if none exists.
func (s *VectorStore) LoadEntry(ctx context.Context, id, namespace string) (*storage.Entry, error) {
	namespace, err := s.check(namespace)
	if err != nil {
		return nil, err
	}

	var entry *storage.Entry
	err = s.backend.view(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVectorKey(namespace, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) (err error) {
			entry, err = storage.UnmarshalEntry(val)
			return err
		})
	})
	if err != nil || entry == nil {
		return nil, err
	}

	entry.ID = id
	entry.Namespace = namespace
	return entry, nil
}

// LoadEntries returns every entry in namespace ordered by id.
func (s *VectorStore) LoadEntries(ctx context.Context, namespace string) ([]*storage.Entry, error) {
	namespace, err := s.check(namespace)
	if err != nil {
		return nil, err
	}

	var entries []*storage.Entry
	err = s.scan(namespace, func(entry *storage.Entry) error {
		entries = append(entries, entry)
		return nil
	})
	return entries, err
}

// Query returns the count entries most similar to vector.
func (s *VectorStore) Query(ctx context.Context, vector []float32, count int, namespace string) ([]*storage.Entry, error) {
	namespace, err := s.check(namespace)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}
	if count <= 0 {
		count = storage.DefaultQueryCount
	}

	var results []*storage.Entry
	err = s.scan(namespace, func(entry *storage.Entry) error {
		if len(entry.Vector) != len(vector) {
			s.logger.Debug("skipping entry with mismatched dimensions",
				"id", entry.ID, "want", len(vector), "got", len(entry.Vector))
			return nil
		}
		entry.Score = cosineSimilarity(vector, entry.Vector)
		results = append(results, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending; ties keep id order.
	slices.SortStableFunc(results, func(a, b *storage.Entry) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > count {
		results = results[:count]
	}
	return results, nil
}

// DeleteVector removes id from namespace.
func (s *VectorStore) DeleteVector(ctx context.Context, id, namespace string) error {
	namespace, err := s.check(namespace)
	if err != nil {
		return err
	}

	return s.backend.update(func(tx *badger.Txn) error {
		key := makeVectorKey(namespace, id)
		_, err := tx.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s/%s", storage.ErrNotFound, namespace, id)
		}
		if err != nil {
			return err
		}
		return tx.Delete(key)
	})
}

// Close closes the backend when the store owns it.
func (s *VectorStore) Close() error {
	if !s.owned || s.backend.IsClosed() {
		return nil
	}
	return s.backend.Close()
}

// scan calls fn for every entry in namespace in key order.
func (s *VectorStore) scan(namespace string, fn func(entry *storage.Entry) error) error {
	return s.backend.view(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeNamespacePrefix(namespace)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			id := idFromVectorKey(item.KeyCopy(nil), namespace)

			var entry *storage.Entry
			err := item.Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalEntry(val)
				return err
			})
			if err != nil {
				return fmt.Errorf("entry %s/%s: %w", namespace, id, err)
			}

			entry.ID = id
			entry.Namespace = namespace
			if err := fn(entry); err != nil {
				return err
			}
		}
		return nil
	})
}
