package reembed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/artifex/ai"
	"github.com/poiesic/artifex/storage"
)

// BatchResult counts the outcome of one batch.
type BatchResult struct {
	Updated int
	Skipped int // entries without a decodable artifact
	LastID  string
}

// BatchProcessor re-embeds batches of vector entries.
type BatchProcessor struct {
	store          storage.VectorStore
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
	normalize      bool
	logger         *slog.Logger
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
// normalize: scale new vectors to unit length before storing them
func NewBatchProcessor(store storage.VectorStore, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration, normalize bool) *BatchProcessor {
	return &BatchProcessor{
		store:          store,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		normalize:      normalize,
		logger:         slog.Default().With("component", "reembed"),
	}
}

// Process embeds the artifact text of every entry in one provider call and
// overwrites the stored vectors. Metadata is kept as is. Entries that carry
// no artifact cannot be re-embedded and are skipped.
func (bp *BatchProcessor) Process(ctx context.Context, namespace string, entries []*storage.Entry) (BatchResult, error) {
	var result BatchResult
	if len(entries) == 0 {
		return result, nil
	}
	result.LastID = entries[len(entries)-1].ID

	targets := make([]*storage.Entry, 0, len(entries))
	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		a, err := e.ToArtifact()
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				bp.logger.Warn("skipping entry with undecodable artifact", "id", e.ID, "err", err)
			}
			result.Skipped++
			continue
		}
		targets = append(targets, e)
		texts = append(texts, a.ToText())
	}
	if len(targets) == 0 {
		return result, nil
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		if err == nil && len(embeddings) != len(texts) {
			return Permanent(fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(texts), len(embeddings)))
		}
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return result, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	for i, e := range targets {
		vector := embeddings[i]
		if bp.normalize {
			vector = NormalizeVector(vector)
		}
		if _, err := bp.store.UpsertVector(ctx, vector, e.ID, namespace, e.Meta); err != nil {
			return result, fmt.Errorf("failed to update entry %s: %w", e.ID, err)
		}
		result.Updated++
	}

	return result, nil
}
