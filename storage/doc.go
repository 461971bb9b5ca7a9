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

// Package storage defines the vector store abstraction used to persist
// artifacts and their embeddings.
//
// Entries live in namespaces. An Entry carries the vector, the free-form
// metadata and the serialized artifact, so a query result can be turned
// back into an Artifact with Entry.ToArtifact.
//
// Public constructors return interfaces:
//
//	store, err := badger.OpenVectorStore("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// Tests use in-memory storage:
//
//	store, checkpoints, err := badger.NewMemoryStores()
//
// CheckpointStore records resumable progress for long-running jobs such as
// reembedding a namespace.
//
// Implementations must be safe for concurrent use. Every blocking method
// accepts a context.Context.
package storage
