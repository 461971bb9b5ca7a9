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

package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/artifex/artifact"
	"github.com/poiesic/artifex/metrics"
)

// CollectionLoader loads batches of sources through a Loader on a bounded
// worker pool, loading each distinct key once.
type CollectionLoader struct {
	loader Loader
	pool   *ants.Pool
	logger *slog.Logger
}

// CollectionOption configures a CollectionLoader.
type CollectionOption func(*CollectionLoader)

// WithCollectionLogger sets a custom logger.
// Default is slog.Default().
func WithCollectionLogger(logger *slog.Logger) CollectionOption {
	return func(c *CollectionLoader) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger.With("component", "collection-loader")
	}
}

// NewCollectionLoader creates a collection loader. The pool is shared, not
// owned: the caller releases it.
func NewCollectionLoader(l Loader, pool *ants.Pool, opts ...CollectionOption) *CollectionLoader {
	c := &CollectionLoader{
		loader: l,
		pool:   pool,
		logger: slog.Default().With("component", "collection-loader"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Loader returns the wrapped loader.
func (c *CollectionLoader) Loader() Loader {
	return c.loader
}

// slot holds the outcome of one task. Each task writes only its own slot.
type slot struct {
	artifact artifact.Artifact
	err      error
}

// LoadCollection loads every source and returns the artifacts keyed by
// ToKey. Sources sharing a key are loaded once, using the first of them.
// opts are passed unchanged to every load.
//
// The call returns only after every task has finished. If any task fails
// the result is nil and the error is a *CollectionError naming each failed
// key. Submission failures and task panics count as failures of their key.
func (c *CollectionLoader) LoadCollection(ctx context.Context, sources []any, opts ...LoadOption) (map[string]artifact.Artifact, error) {
	if c.loader == nil {
		return nil, ErrLoaderRequired
	}
	if c.pool == nil {
		return nil, ErrPoolRequired
	}
	if len(sources) == 0 {
		return map[string]artifact.Artifact{}, nil
	}

	start := time.Now()

	// Dedup happens before any task starts; keys and unique are read-only afterwards.
	keys := make([]string, 0, len(sources))
	unique := make(map[string]any, len(sources))
	for _, source := range sources {
		key := c.loader.ToKey(source)
		if _, seen := unique[key]; seen {
			continue
		}
		unique[key] = source
		keys = append(keys, key)
	}
	if dups := len(sources) - len(keys); dups > 0 {
		metrics.CollectionDuplicatesTotal.Add(float64(dups))
		c.logger.Debug("skipped duplicate sources", "duplicates", dups)
	}

	slots := make([]slot, len(keys))
	var wg sync.WaitGroup
	for i, key := range keys {
		source := unique[key]
		out := &slots[i]

		wg.Add(1)
		err := c.pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					out.artifact = nil
					out.err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
				}
			}()
			out.artifact, out.err = c.loader.Load(ctx, source, opts...)
		})
		if err != nil {
			wg.Done()
			out.err = fmt.Errorf("submit load task: %w", err)
		}
	}
	wg.Wait()

	results := make(map[string]artifact.Artifact, len(keys))
	var failures map[string]error
	for i, key := range keys {
		if slots[i].err != nil {
			if failures == nil {
				failures = make(map[string]error)
			}
			failures[key] = slots[i].err
			continue
		}
		results[key] = slots[i].artifact
	}

	metrics.CollectionDuration.Observe(time.Since(start).Seconds())
	if failures != nil {
		metrics.CollectionsTotal.WithLabelValues(metrics.StatusError).Inc()
		c.logger.Warn("collection load failed", "sources", len(sources), "unique", len(keys), "failed", len(failures))
		return nil, &CollectionError{Failures: failures}
	}

	metrics.CollectionsTotal.WithLabelValues(metrics.StatusOK).Inc()
	c.logger.Debug("collection loaded", "sources", len(sources), "unique", len(keys),
		"duration", time.Since(start))
	return results, nil
}
