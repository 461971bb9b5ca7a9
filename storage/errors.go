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

package storage

import "errors"

// Sentinel errors returned by VectorStore and CheckpointStore
// implementations. Callers test for them with errors.Is.
var (
	ErrNotFound            = errors.New("entry not found")
	ErrStorageClosed       = errors.New("storage is closed")
	ErrInvalidQuery        = errors.New("invalid query")
	ErrInvalidNamespace    = errors.New("invalid namespace")
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData means a stored value is shorter than its encoding header.
	ErrTruncatedData = errors.New("truncated data")
)
