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

package core

import "errors"

// Error kinds shared by loaders, artifacts and storage.
// Callers match them with errors.Is; producers wrap them with context.
var (
	// ErrFetch indicates raw content could not be materialized from a source.
	ErrFetch = errors.New("fetch failed")

	// ErrParse indicates content does not match the expected format.
	ErrParse = errors.New("parse failed")

	// ErrSerialization indicates an unknown discriminator tag or a malformed
	// serialized payload.
	ErrSerialization = errors.New("serialization failed")

	// ErrValidation indicates a metadata or schema constraint was violated.
	ErrValidation = errors.New("validation failed")
)

// Validation details, wrapped together with ErrValidation.
var (
	// ErrEmptyMetadataKey indicates a metadata map contains an empty key.
	ErrEmptyMetadataKey = errors.New("metadata key cannot be empty")

	// ErrInvalidMetadataValue indicates a metadata value cannot be encoded as JSON.
	ErrInvalidMetadataValue = errors.New("metadata value is not JSON encodable")

	// ErrReservedMetadataKey indicates a reserved metadata key holds the wrong type.
	ErrReservedMetadataKey = errors.New("reserved metadata key has wrong type")
)
