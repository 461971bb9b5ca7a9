package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/artifex/ai"
	"github.com/poiesic/artifex/artifact"
	"github.com/poiesic/artifex/core"
	"github.com/poiesic/artifex/loader"
	"github.com/poiesic/artifex/metrics"
	"github.com/poiesic/artifex/storage"
)

// Pipeline loads sources into artifacts and stores them as vectors.
type Pipeline struct {
	store    storage.VectorStore
	embedder ai.Embedder
	pool     *ants.Pool
	ownsPool bool
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		pool, err := loader.NewPool(size)
		if err != nil {
			return err
		}
		p.releasePool()
		p.pool = pool
		p.ownsPool = true
		return nil
	}
}

// WithPool runs the pipeline on a shared pool. The caller keeps ownership;
// Release does not release it.
func WithPool(pool *ants.Pool) Option {
	return func(p *Pipeline) error {
		if pool == nil {
			return loader.ErrPoolRequired
		}
		p.releasePool()
		p.pool = pool
		p.ownsPool = false
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "ingestion")
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(store storage.VectorStore, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	p := &Pipeline{
		store:    store,
		embedder: embedder,
		logger:   slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.Release()
			return nil, err
		}
	}

	if p.pool == nil {
		pool, err := loader.NewPool(loader.DefaultPoolSize())
		if err != nil {
			return nil, err
		}
		p.pool = pool
		p.ownsPool = true
	}

	return p, nil
}

// IngestOptions holds optional parameters for ingestion.
type IngestOptions struct {
	// Namespace receives the vectors. Empty means storage.DefaultNamespace.
	Namespace string

	// Meta is copied into every entry. The "artifact" key is reserved.
	Meta map[string]any

	// Overwrite replaces entries that already exist under a key.
	Overwrite bool

	// LoadOptions are passed to every load.
	LoadOptions []loader.LoadOption
}

// Result summarizes one ingestion.
type Result struct {
	// Keys lists every key that is present in the store afterwards.
	Keys []string

	// Stored counts entries written by this call.
	Stored int

	// Skipped counts entries left in place because they already existed.
	Skipped int
}

// Ingest loads sources with l, then embeds and upserts every artifact under
// its source key. A load failure aborts before anything is written and is
// returned as a *loader.CollectionError. Upsert failures are joined.
func (p *Pipeline) Ingest(ctx context.Context, l loader.Loader, sources []any, opts *IngestOptions) (*Result, error) {
	if l == nil {
		return nil, ErrLoaderRequired
	}
	if opts == nil {
		opts = &IngestOptions{}
	}

	collection := loader.NewCollectionLoader(l, p.pool, loader.WithCollectionLogger(p.logger))
	artifacts, err := collection.LoadCollection(ctx, sources, opts.LoadOptions...)
	if err != nil {
		return nil, err
	}

	return p.UpsertArtifacts(ctx, artifacts, opts)
}

// UpsertArtifacts embeds and stores artifacts keyed by id, concurrently on
// the pipeline pool. Every artifact is attempted; failures are joined and
// returned with the partial result.
func (p *Pipeline) UpsertArtifacts(ctx context.Context, artifacts map[string]artifact.Artifact, opts *IngestOptions) (*Result, error) {
	if opts == nil {
		opts = &IngestOptions{}
	}
	if err := core.ValidateMetadata(opts.Meta); err != nil {
		return nil, err
	}
	if _, reserved := opts.Meta[core.ArtifactMetaKey]; reserved {
		return nil, fmt.Errorf("%w: %w: %q is set by the pipeline", core.ErrValidation, core.ErrReservedMetadataKey, core.ArtifactMetaKey)
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result = &Result{Keys: make([]string, 0, len(artifacts))}
		errs   []error
	)
	record := func(id string, stored bool, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			metrics.VectorsUpsertedTotal.WithLabelValues(metrics.StatusError).Inc()
		case stored:
			result.Keys = append(result.Keys, id)
			result.Stored++
			metrics.VectorsUpsertedTotal.WithLabelValues(metrics.ResultStored).Inc()
		default:
			result.Keys = append(result.Keys, id)
			result.Skipped++
			metrics.VectorsUpsertedTotal.WithLabelValues(metrics.ResultSkipped).Inc()
		}
	}

	for id, a := range artifacts {
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			stored, err := p.upsert(ctx, id, a, opts)
			record(id, stored, err)
		})
		if err != nil {
			wg.Done()
			record(id, false, fmt.Errorf("submit upsert task: %w", err))
		}
	}
	wg.Wait()

	p.logger.Info("ingested artifacts", "namespace", storage.Namespace(opts.Namespace),
		"stored", result.Stored, "skipped", result.Skipped, "failed", len(errs))
	return result, errors.Join(errs...)
}

// UpsertArtifact embeds and stores a single artifact under id. An empty id
// uses the key of the artifact text.
func (p *Pipeline) UpsertArtifact(ctx context.Context, id string, a artifact.Artifact, opts *IngestOptions) (string, error) {
	if a == nil {
		return "", fmt.Errorf("%w: nil artifact", core.ErrValidation)
	}
	if id == "" {
		id = core.KeyFromString(a.ToText())
	}
	res, err := p.UpsertArtifacts(ctx, map[string]artifact.Artifact{id: a}, opts)
	if err != nil {
		return "", err
	}
	return res.Keys[0], nil
}

// UpsertText stores text as a TextArtifact keyed by its content.
func (p *Pipeline) UpsertText(ctx context.Context, text string, opts *IngestOptions) (string, error) {
	return p.UpsertArtifact(ctx, core.KeyFromString(text), artifact.NewText(text), opts)
}

func (p *Pipeline) upsert(ctx context.Context, id string, a artifact.Artifact, opts *IngestOptions) (bool, error) {
	if !opts.Overwrite {
		existing, err := p.store.LoadEntry(ctx, id, opts.Namespace)
		if err != nil {
			return false, err
		}
		if existing != nil {
			p.logger.Debug("entry exists, skipping", "id", id)
			return false, nil
		}
	}

	if !artifact.HasEmbedding(a) {
		if _, err := artifact.GenerateEmbedding(ctx, a, p.embedder); err != nil {
			return false, fmt.Errorf("embed %s: %w", a.Tag(), err)
		}
	}

	serialized, err := artifact.ToJSON(a)
	if err != nil {
		return false, err
	}

	meta := make(map[string]any, len(opts.Meta)+1)
	maps.Copy(meta, opts.Meta)
	meta[core.ArtifactMetaKey] = string(serialized)

	if _, err := p.store.UpsertVector(ctx, a.Embedding(), id, opts.Namespace, meta); err != nil {
		return false, err
	}
	return true, nil
}

// Release releases the pool when the pipeline owns it.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.releasePool()
}

func (p *Pipeline) releasePool() {
	if p.pool != nil && p.ownsPool {
		p.pool.Release()
	}
	p.pool = nil
}
