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

package reembed

import (
	"context"

	"github.com/poiesic/artifex/storage"
)

const (
	// DefaultBatchSize is the default number of entries in each batch
	DefaultBatchSize = 100
)

// EntryIterator walks the entries of a namespace in id order, in batches.
type EntryIterator struct {
	store     storage.VectorStore
	namespace string
	batchSize int
	after     string
}

// NewEntryIterator creates a new entry iterator.
// batchSize: number of entries per batch; values <= 0 use DefaultBatchSize
// after: only entries with an id greater than after are visited; "" visits all
func NewEntryIterator(store storage.VectorStore, namespace string, batchSize int, after string) *EntryIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &EntryIterator{
		store:     store,
		namespace: namespace,
		batchSize: batchSize,
		after:     after,
	}
}

// Count returns the number of entries in the namespace and how many of them
// the iterator will visit.
func (it *EntryIterator) Count(ctx context.Context) (total, pending int, err error) {
	entries, err := it.store.LoadEntries(ctx, it.namespace)
	if err != nil {
		return 0, 0, err
	}
	return len(entries), len(it.pending(entries)), nil
}

// ForEach calls fn for each batch of entries.
// Iteration stops on first error from fn or when all entries are processed.
// Context cancellation is checked between batches.
func (it *EntryIterator) ForEach(ctx context.Context, fn func([]*storage.Entry) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := it.store.LoadEntries(ctx, it.namespace)
	if err != nil {
		return err
	}
	entries = it.pending(entries)

	for i := 0; i < len(entries); i += it.batchSize {
		end := min(i+it.batchSize, len(entries))
		if err := fn(entries[i:end]); err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	return nil
}

// pending drops entries at or before the resume point. entries are sorted
// by id.
func (it *EntryIterator) pending(entries []*storage.Entry) []*storage.Entry {
	if it.after == "" {
		return entries
	}
	for i, e := range entries {
		if e.ID > it.after {
			return entries[i:]
		}
	}
	return nil
}
