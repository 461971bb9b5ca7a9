package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/artifex/artifact"
	"github.com/poiesic/artifex/core"
)

const (
	// DefaultNamespace is used when callers pass an empty namespace.
	DefaultNamespace = "default"

	// DefaultQueryCount is the number of results Query returns when count <= 0.
	DefaultQueryCount = 5
)

// Entry is a stored vector with its metadata.
type Entry struct {
	ID        string
	Vector    []float32
	Score     float32
	Namespace string
	Meta      map[string]any
}

// ToArtifact decodes the artifact serialized under the reserved "artifact"
// metadata key. Returns ErrNotFound when the entry carries no artifact.
func (e *Entry) ToArtifact() (artifact.Artifact, error) {
	raw, ok := e.Meta[core.ArtifactMetaKey]
	if !ok {
		return nil, fmt.Errorf("%w: entry %s has no artifact", ErrNotFound, e.ID)
	}
	text, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: entry %s artifact is %T", ErrSerializationFailed, e.ID, raw)
	}
	return artifact.FromJSON([]byte(text))
}

// VectorStore persists vectors grouped by namespace and answers similarity
// queries. Implementations must be thread-safe.
type VectorStore interface {
	// UpsertVector stores vector under id in namespace, replacing any existing
	// entry. An empty id is replaced by DefaultVectorID of the vector text form.
	// Returns the id used.
	UpsertVector(ctx context.Context, vector []float32, id, namespace string, meta map[string]any) (string, error)

	// LoadEntry returns the entry with id in namespace, or nil, nil if absent.
	LoadEntry(ctx context.Context, id, namespace string) (*Entry, error)

	// LoadEntries returns every entry in namespace.
	LoadEntries(ctx context.Context, namespace string) ([]*Entry, error)

	// Query returns up to count entries of namespace ordered by cosine
	// similarity to vector, highest first. count <= 0 means DefaultQueryCount.
	Query(ctx context.Context, vector []float32, count int, namespace string) ([]*Entry, error)

	// DeleteVector removes id from namespace. Returns ErrNotFound if absent.
	DeleteVector(ctx context.Context, id, namespace string) error

	// Close releases the underlying resources.
	Close() error
}

// Checkpoint records how far a long-running namespace job has progressed.
type Checkpoint struct {
	Name      string
	LastID    string
	Processed int
	UpdatedAt time.Time
}

// CheckpointStore persists job checkpoints.
type CheckpointStore interface {
	// SaveCheckpoint persists checkpoint, setting UpdatedAt.
	SaveCheckpoint(ctx context.Context, checkpoint *Checkpoint) error

	// LoadCheckpoint returns the checkpoint for name, or nil, nil if none exists.
	LoadCheckpoint(ctx context.Context, name string) (*Checkpoint, error)

	// DeleteCheckpoint removes the checkpoint for name. Missing checkpoints are ignored.
	DeleteCheckpoint(ctx context.Context, name string) error
}

// DefaultVectorID derives a stable id from text: a name-based UUID in the
// OID namespace.
func DefaultVectorID(text string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(text)).String()
}

// Namespace returns namespace, or DefaultNamespace when it is empty.
func Namespace(namespace string) string {
	if namespace == "" {
		return DefaultNamespace
	}
	return namespace
}
