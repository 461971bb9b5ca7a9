package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/artifex/ai"
	"github.com/poiesic/artifex/artifact"
	"github.com/poiesic/artifex/storage"
)

const (
	// DefaultVerbatimBoost is added to the score of results containing every
	// significant query word.
	DefaultVerbatimBoost = 0.3
)

// Result is one search hit.
type Result struct {
	ID         string
	Namespace  string
	Artifact   artifact.Artifact
	Meta       map[string]any
	Similarity float32 // cosine similarity reported by the store
	Score      float32 // similarity plus boosts; results are ranked by this
}

// Searcher provides semantic search over stored artifacts.
type Searcher struct {
	store         storage.VectorStore
	embedder      ai.Embedder
	minScore      float32
	verbatimBoost float32
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "searcher")
		return nil
	}
}

// WithMinScore drops hits whose similarity is below score.
// Default is 0, which keeps every hit the store returns.
func WithMinScore(score float32) Option {
	return func(s *Searcher) error {
		if score < -1 || score > 1 {
			return fmt.Errorf("min score must be within [-1, 1], got %v", score)
		}
		s.minScore = score
		return nil
	}
}

// WithVerbatimBoost sets the boost for verbatim matches. Zero disables it.
func WithVerbatimBoost(boost float32) Option {
	return func(s *Searcher) error {
		if boost < 0 {
			return fmt.Errorf("verbatim boost cannot be negative, got %v", boost)
		}
		s.verbatimBoost = boost
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store storage.VectorStore, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		store:         store,
		embedder:      embedder,
		minScore:      -1,
		verbatimBoost: DefaultVerbatimBoost,
		logger:        slog.Default().With("component", "searcher"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search returns up to count artifacts of namespace ranked by relevance to
// query. count <= 0 means storage.DefaultQueryCount.
func (s *Searcher) Search(ctx context.Context, query string, count int, namespace string) ([]*Result, error) {
	return s.SearchWithMonitor(ctx, query, count, namespace, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, count int, namespace string, monitor SearchMonitor) ([]*Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	monitor.Start(query)

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	monitor.AfterQueryEmbedding(vector)

	results, err := s.searchVector(ctx, vector, count, namespace, monitor)
	if err != nil {
		return nil, err
	}

	if s.verbatimBoost > 0 {
		queryTerms := termsOf(query)
		for _, r := range results {
			if queryTerms.coveredBy(r.Artifact.ToText()) {
				r.Score += s.verbatimBoost
				monitor.VerbatimHit(r)
			}
		}
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Score > results[j].Score
		})
	}

	monitor.Finish(results)
	return results, nil
}

// SearchVector returns up to count artifacts of namespace nearest to vector.
func (s *Searcher) SearchVector(ctx context.Context, vector []float32, count int, namespace string) ([]*Result, error) {
	return s.searchVector(ctx, vector, count, namespace, &noopMonitor{})
}

func (s *Searcher) searchVector(ctx context.Context, vector []float32, count int, namespace string, monitor SearchMonitor) ([]*Result, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}

	entries, err := s.store.Query(ctx, vector, count, namespace)
	if err != nil {
		s.logger.Error("error querying for similar entries", "namespace", namespace, "err", err)
		return nil, err
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	monitor.AfterVectorQuery(ids)

	results := make([]*Result, 0, len(entries))
	for _, e := range entries {
		if e.Score < s.minScore {
			continue
		}
		a, err := e.ToArtifact()
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.logger.Debug("entry carries no artifact", "id", e.ID)
			} else {
				s.logger.Warn("error decoding stored artifact", "id", e.ID, "err", err)
			}
			monitor.Skipped(e.ID, err)
			continue
		}
		results = append(results, &Result{
			ID:         e.ID,
			Namespace:  e.Namespace,
			Artifact:   a,
			Meta:       e.Meta,
			Similarity: e.Score,
			Score:      e.Score,
		})
	}
	return results, nil
}
