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
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/artifex/storage"
)

// CheckpointStore implements storage.CheckpointStore on a shared Backend.
type CheckpointStore struct {
	backend *Backend
}

var _ storage.CheckpointStore = (*CheckpointStore)(nil)

func NewCheckpointStore(backend *Backend) *CheckpointStore {
	return &CheckpointStore{backend: backend}
}

func (s *CheckpointStore) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// SaveCheckpoint stores checkpoint under its name, stamping UpdatedAt.
func (s *CheckpointStore) SaveCheckpoint(ctx context.Context, checkpoint *storage.Checkpoint) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	checkpoint.UpdatedAt = time.Now().UTC()
	value, err := storage.MarshalCheckpoint(checkpoint)
	if err != nil {
		return err
	}
	return s.backend.update(func(tx *badger.Txn) error {
		return tx.Set(makeCheckpointKey(checkpoint.Name), value)
	})
}

// LoadCheckpoint returns nil, nil when no checkpoint is stored under name.
func (s *CheckpointStore) LoadCheckpoint(ctx context.Context, name string) (*storage.Checkpoint, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var checkpoint *storage.Checkpoint
	err := s.backend.view(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCheckpointKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) (err error) {
			checkpoint, err = storage.UnmarshalCheckpoint(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return checkpoint, nil
}

func (s *CheckpointStore) DeleteCheckpoint(ctx context.Context, name string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.backend.update(func(tx *badger.Txn) error {
		return tx.Delete(makeCheckpointKey(name))
	})
}
