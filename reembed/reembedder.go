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
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/artifex/ai"
	"github.com/poiesic/artifex/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of entries to embed in each provider call
	BatchSize int

	// ReportInterval is how often to report progress (number of entries)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for a failed provider call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Normalize scales new vectors to unit length
	Normalize bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		Normalize:      true,
	}
}

// Stats summarizes a reembedding run.
type Stats struct {
	Namespace   string
	Total       int    // entries in the namespace
	Updated     int    // entries re-embedded by this run
	Skipped     int    // entries without an artifact
	ResumedFrom string // checkpoint id the run started after, if any
	Elapsed     time.Duration
}

// CheckpointName returns the checkpoint name used for namespace.
func CheckpointName(namespace string) string {
	return "reembed:" + storage.Namespace(namespace)
}

// Reembedder orchestrates the reembedding of every entry in a namespace.
type Reembedder struct {
	store       storage.VectorStore
	checkpoints storage.CheckpointStore
	embedder    ai.Embedder
	config      *Config
	progress    io.Writer
	processor   *BatchProcessor
	logger      *slog.Logger
}

// Option configures a Reembedder.
type Option func(*Reembedder)

// WithCheckpoints makes runs resumable. Progress is saved after every batch
// and removed when a run completes.
func WithCheckpoints(checkpoints storage.CheckpointStore) Option {
	return func(r *Reembedder) {
		r.checkpoints = checkpoints
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reembedder) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "reembed")
	}
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr); nil discards it
func NewReembedder(store storage.VectorStore, embedder ai.Embedder, config *Config, progress io.Writer, opts ...Option) (*Reembedder, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	r := &Reembedder{
		store:    store,
		embedder: embedder,
		config:   config,
		progress: progress,
		logger:   slog.Default().With("component", "reembed"),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.processor = NewBatchProcessor(store, embedder, config.MaxRetries, config.RetryDelay, config.Normalize)
	r.processor.logger = r.logger
	return r, nil
}

// Run re-embeds every entry of namespace with the configured embedder.
// Progress is reported to the configured writer.
func (r *Reembedder) Run(ctx context.Context, namespace string) (*Stats, error) {
	namespace = storage.Namespace(namespace)
	stats := &Stats{Namespace: namespace}

	done := 0
	if r.checkpoints != nil {
		cp, err := r.checkpoints.LoadCheckpoint(ctx, CheckpointName(namespace))
		if err != nil {
			return nil, fmt.Errorf("failed to load checkpoint: %w", err)
		}
		if cp != nil {
			stats.ResumedFrom = cp.LastID
			done = cp.Processed
			r.logger.Info("resuming from checkpoint", "namespace", namespace, "after", cp.LastID, "processed", cp.Processed)
		}
	}

	iterator := NewEntryIterator(r.store, namespace, r.config.BatchSize, stats.ResumedFrom)
	total, pending, err := iterator.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}
	stats.Total = total

	if pending == 0 {
		fmt.Fprintf(r.progress, "No entries to reembed in namespace %q (%d entries)\n", namespace, total)
		return stats, r.clearCheckpoint(ctx, namespace)
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d entries in namespace %q (batch size: %d)\n",
		pending, namespace, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start(total - pending)

	err = iterator.ForEach(ctx, func(entries []*storage.Entry) error {
		result, err := r.processor.Process(ctx, namespace, entries)
		stats.Updated += result.Updated
		stats.Skipped += result.Skipped
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		done += len(entries)
		tracker.Increment(len(entries))
		return r.saveCheckpoint(ctx, namespace, result.LastID, done)
	})
	stats.Elapsed = tracker.Elapsed()
	if err != nil {
		return stats, err
	}

	tracker.Finish()

	fmt.Fprintf(r.progress, "Reembedding complete. Updated %d entries in %v (%.1f entries/sec)\n",
		stats.Updated, stats.Elapsed.Round(time.Millisecond), float64(stats.Updated)/stats.Elapsed.Seconds())

	return stats, r.clearCheckpoint(ctx, namespace)
}

func (r *Reembedder) saveCheckpoint(ctx context.Context, namespace, lastID string, processed int) error {
	if r.checkpoints == nil {
		return nil
	}
	err := r.checkpoints.SaveCheckpoint(ctx, &storage.Checkpoint{
		Name:      CheckpointName(namespace),
		LastID:    lastID,
		Processed: processed,
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (r *Reembedder) clearCheckpoint(ctx context.Context, namespace string) error {
	if r.checkpoints == nil {
		return nil
	}
	return r.checkpoints.DeleteCheckpoint(ctx, CheckpointName(namespace))
}
