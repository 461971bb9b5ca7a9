package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/artifex/artifact"
	"github.com/poiesic/artifex/core"
	"github.com/poiesic/artifex/metrics"
)

// ErrFetcherRequired is returned when a Base is built without a fetcher.
var ErrFetcherRequired = errors.New("fetcher required")

// ErrParserRequired is returned when a Base is built without a parser.
var ErrParserRequired = errors.New("parser required")

// Fetcher materializes raw content from a source. It may block on I/O.
// Failures wrap core.ErrFetch.
type Fetcher interface {
	Fetch(ctx context.Context, source any) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, source any) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, source any) ([]byte, error) {
	return f(ctx, source)
}

// Parser converts raw content into an artifact without I/O. Malformed input
// fails with an error wrapping core.ErrParse and no artifact.
type Parser interface {
	Parse(raw []byte, opts *Options) (artifact.Artifact, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(raw []byte, opts *Options) (artifact.Artifact, error)

func (f ParserFunc) Parse(raw []byte, opts *Options) (artifact.Artifact, error) {
	return f(raw, opts)
}

// Loader turns a source into an artifact and names the source with a
// deterministic key. Implementations must be safe for concurrent use.
type Loader interface {
	// Load fetches and parses source.
	Load(ctx context.Context, source any, opts ...LoadOption) (artifact.Artifact, error)

	// ToKey returns the deduplication key of source. Equal sources yield
	// equal keys.
	ToKey(source any) string
}

// Base is a Loader composed of a Fetcher and a Parser.
type Base struct {
	name     string
	fetcher  Fetcher
	parser   Parser
	embedder artifact.EmbeddingDriver
	keyFunc  func(source any) string
	defaults []LoadOption
	logger   *slog.Logger
}

var _ Loader = (*Base)(nil)

// Option configures a Base.
type Option func(*Base) error

// WithEmbedder makes Load attach an embedding to every artifact it returns.
func WithEmbedder(embedder artifact.EmbeddingDriver) Option {
	return func(b *Base) error {
		b.embedder = embedder
		return nil
	}
}

// WithKeyFunc replaces the default source key function, core.KeyOf.
func WithKeyFunc(fn func(source any) string) Option {
	return func(b *Base) error {
		if fn == nil {
			return errors.New("key function cannot be nil")
		}
		b.keyFunc = fn
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Base) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger.With("component", "loader", "loader", b.name)
		return nil
	}
}

// WithFetcher replaces the fetcher chosen by a loader constructor.
func WithFetcher(fetcher Fetcher) Option {
	return func(b *Base) error {
		if fetcher == nil {
			return ErrFetcherRequired
		}
		b.fetcher = fetcher
		return nil
	}
}

// WithDefaults sets load options applied before the per-call options.
func WithDefaults(opts ...LoadOption) Option {
	return func(b *Base) error {
		b.defaults = append(b.defaults, opts...)
		return nil
	}
}

// NewBase builds a loader from a fetcher and a parser. name labels logs.
func NewBase(name string, fetcher Fetcher, parser Parser, opts ...Option) (*Base, error) {
	if parser == nil {
		return nil, ErrParserRequired
	}
	b := &Base{
		name:    name,
		fetcher: fetcher,
		parser:  parser,
		keyFunc: core.KeyOf,
		logger:  slog.Default().With("component", "loader", "loader", name),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	if b.fetcher == nil {
		return nil, ErrFetcherRequired
	}
	return b, nil
}

// Name returns the loader label.
func (b *Base) Name() string {
	return b.name
}

// ToKey returns the key of source.
func (b *Base) ToKey(source any) string {
	return b.keyFunc(source)
}

// Load fetches source, parses it and, when an embedder is configured,
// embeds the result. Errors are returned immediately.
func (b *Base) Load(ctx context.Context, source any, opts ...LoadOption) (artifact.Artifact, error) {
	start := time.Now()
	a, err := b.load(ctx, source, opts)
	metrics.LoadsTotal.WithLabelValues(metrics.Status(err)).Inc()
	metrics.LoadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		b.logger.Debug("load failed", "err", err)
		return nil, err
	}
	return a, nil
}

func (b *Base) load(ctx context.Context, source any, opts []LoadOption) (artifact.Artifact, error) {
	options := newOptions(append(append([]LoadOption(nil), b.defaults...), opts...))

	raw, err := b.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}

	a, err := b.parser.Parse(raw, options)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: parser returned no artifact", core.ErrParse)
	}
	if options.Reference != nil {
		a.SetReference(options.Reference)
	}

	if b.embedder != nil {
		if _, err := artifact.GenerateEmbedding(ctx, a, b.embedder); err != nil {
			return nil, fmt.Errorf("embed %s artifact: %w", a.Tag(), err)
		}
	}

	b.logger.Debug("loaded artifact", "type", a.Tag(), "bytes", len(raw))
	return a, nil
}
