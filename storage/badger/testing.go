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

import "github.com/poiesic/artifex/storage"

// NewMemoryStores creates an in-memory vector store and checkpoint store for
// testing. Closing the vector store closes the shared backend.
func NewMemoryStores() (storage.VectorStore, storage.CheckpointStore, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, err
	}
	return newVectorStore(backend, true), NewCheckpointStore(backend), nil
}

// NewMemoryVectorStore creates an in-memory vector store for testing.
// Caller must close the store when done.
func NewMemoryVectorStore() (storage.VectorStore, error) {
	return OpenVectorStore("", true)
}
