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

// Package artifex wires the artifact loaders, vector storage, embedding
// and search packages into a single Engine.
package artifex

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/artifex/ai"
	"github.com/poiesic/artifex/ai/openai"
	"github.com/poiesic/artifex/config"
	"github.com/poiesic/artifex/ingestion"
	"github.com/poiesic/artifex/loader"
	"github.com/poiesic/artifex/reembed"
	"github.com/poiesic/artifex/search"
	"github.com/poiesic/artifex/storage"
	"github.com/poiesic/artifex/storage/badger"
)

// Engine owns a vector store, a checkpoint store, an embedder and a worker
// pool shared by every pipeline it creates.
type Engine struct {
	backend     *badger.Backend
	store       storage.VectorStore
	checkpoints storage.CheckpointStore
	embedder    ai.Embedder
	pool        *ants.Pool
	logger      *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig *ai.Config
	embedder ai.Embedder
	poolSize int
	inMemory bool
	logger   *slog.Logger
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		o.aiConfig = config
	}
}

// WithEmbedder uses embedder instead of creating one from the AI config.
// The embedder is used as is, without a cache.
func WithEmbedder(embedder ai.Embedder) EngineOption {
	return func(o *engineOptions) {
		o.embedder = embedder
	}
}

// WithPoolSize sets the size of the shared worker pool.
func WithPoolSize(size int) EngineOption {
	return func(o *engineOptions) {
		o.poolSize = size
	}
}

// WithInMemory keeps all data in memory. The path passed to Open is ignored.
func WithInMemory() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// Open opens or creates the database at path.
func Open(path string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(),
		poolSize: loader.DefaultPoolSize(),
		logger:   slog.Default().With("component", "engine"),
	}
	for _, opt := range opts {
		opt(options)
	}

	embedder := options.embedder
	if embedder == nil {
		if err := options.aiConfig.Validate(); err != nil {
			return nil, err
		}
		inner, err := openai.NewEmbedder(options.aiConfig)
		if err != nil {
			return nil, err
		}
		embedder, err = ai.NewCachedEmbedder(inner, options.aiConfig.CacheSize)
		if err != nil {
			return nil, err
		}
	}

	backend, err := badger.OpenBackend(path, options.inMemory)
	if err != nil {
		return nil, err
	}

	pool, err := loader.NewPool(options.poolSize)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Engine{
		backend:     backend,
		store:       badger.NewVectorStore(backend),
		checkpoints: badger.NewCheckpointStore(backend),
		embedder:    embedder,
		pool:        pool,
		logger:      options.logger,
	}, nil
}

// OpenConfig opens the engine described by cfg. Extra options are applied
// after the ones derived from cfg.
func OpenConfig(cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	base := []EngineOption{
		WithAIConfig(cfg.AIConfig()),
		WithPoolSize(cfg.Loader.PoolSize),
	}
	if cfg.Storage.InMemory {
		base = append(base, WithInMemory())
	}
	return Open(cfg.Storage.Path, append(base, opts...)...)
}

// Close releases the pool and closes storage. Closing twice is a no-op.
func (e *Engine) Close() error {
	if e.backend.IsClosed() {
		return nil
	}
	e.pool.Release()

	var errs []error
	if err := e.store.Close(); err != nil {
		e.logger.Error("error closing vector store", "err", err)
		errs = append(errs, err)
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Compact reclaims space left by overwritten entries, typically after a
// reembed run.
func (e *Engine) Compact() error {
	return e.backend.CollectGarbage()
}

func (e *Engine) Store() storage.VectorStore {
	return e.store
}

func (e *Engine) Checkpoints() storage.CheckpointStore {
	return e.checkpoints
}

func (e *Engine) Embedder() ai.Embedder {
	return e.embedder
}

// Pool returns the shared worker pool. It is released by Close.
func (e *Engine) Pool() *ants.Pool {
	return e.pool
}

// NewCollectionLoader wraps l in a collection loader running on the shared pool.
func (e *Engine) NewCollectionLoader(l loader.Loader) *loader.CollectionLoader {
	return loader.NewCollectionLoader(l, e.pool, loader.WithCollectionLogger(e.logger))
}

// NewIngestionPipeline creates a pipeline that shares the engine pool.
func (e *Engine) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{ingestion.WithPool(e.pool)}, opts...)
	return ingestion.NewPipeline(e.store, e.embedder, opts...)
}

func (e *Engine) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(e.store, e.embedder, opts...)
}

// NewReembedder creates a reembedder that checkpoints into the engine's
// checkpoint store. Progress is written to progress when non-nil.
func (e *Engine) NewReembedder(cfg *reembed.Config, progress io.Writer, opts ...reembed.Option) (*reembed.Reembedder, error) {
	opts = append([]reembed.Option{reembed.WithCheckpoints(e.checkpoints)}, opts...)
	r, err := reembed.NewReembedder(e.store, e.embedder, cfg, progress, opts...)
	if err != nil {
		return nil, fmt.Errorf("create reembedder: %w", err)
	}
	return r, nil
}
