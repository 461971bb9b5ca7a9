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

package artifact

// Tag is the discriminator written to the "type" field of a serialized artifact.
type Tag string

const (
	TagText    Tag = "TextArtifact"
	TagBlob    Tag = "BlobArtifact"
	TagJSON    Tag = "JsonArtifact"
	TagCsvRow  Tag = "CsvRowArtifact"
	TagTable   Tag = "TableArtifact"
	TagList    Tag = "ListArtifact"
	TagImage   Tag = "ImageArtifact"
	TagAudio   Tag = "AudioArtifact"
	TagAction  Tag = "ActionArtifact"
	TagGeneric Tag = "GenericArtifact"
	TagInfo    Tag = "InfoArtifact"
	TagError   Tag = "ErrorArtifact"
)

// Reference is opaque provenance attached to an artifact. It is serialized
// but never interpreted, and equality ignores it.
type Reference map[string]any

// Artifact is implemented only by the variants in this package.
type Artifact interface {
	// Tag returns the variant discriminator.
	Tag() Tag

	// ToText renders the artifact as text. It is deterministic and never fails.
	ToText() string

	// Reference returns the provenance attached to the artifact, or nil.
	Reference() Reference

	// SetReference replaces the attached provenance.
	SetReference(ref Reference)

	// Embedding returns the most recently generated embedding, or nil.
	Embedding() []float32

	setEmbedding(vector []float32)
	fields() (map[string]any, error)
	value() any
}

// base holds the state common to every variant.
type base struct {
	ref       Reference
	embedding []float32
}

func (b *base) Reference() Reference { return b.ref }

func (b *base) SetReference(ref Reference) { b.ref = ref }

func (b *base) Embedding() []float32 { return b.embedding }

func (b *base) setEmbedding(vector []float32) { b.embedding = vector }
