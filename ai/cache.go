package ai

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/poiesic/artifex/core"
	"github.com/poiesic/artifex/metrics"
)

// CachedEmbedder serves repeated texts from an LRU cache and forwards misses
// to the wrapped embedder.
type CachedEmbedder struct {
	inner  Embedder
	cache  *lru.Cache[string, []float32]
	logger *slog.Logger
}

// NewCachedEmbedder wraps inner with a cache holding up to size vectors.
// A size of zero returns inner unchanged.
func NewCachedEmbedder(inner Embedder, size int) (Embedder, error) {
	if size == 0 {
		return inner, nil
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedEmbedder{
		inner:  inner,
		cache:  cache,
		logger: slog.Default().With("component", "embedding-cache"),
	}, nil
}

// EmbedText returns the cached vector for text or embeds and caches it.
func (c *CachedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	key := core.KeyFromString(text)
	if vec, ok := c.cache.Get(key); ok {
		metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
		return vec, nil
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()

	vec, err := c.inner.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

// EmbedTexts embeds only the texts missing from the cache, in one batch.
func (c *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		missTexts []string
		missIdx   []int
	)
	for i, text := range texts {
		if vec, ok := c.cache.Get(core.KeyFromString(text)); ok {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("hit").Add(float64(len(texts) - len(missTexts)))
	metrics.EmbeddingCacheTotal.WithLabelValues("miss").Add(float64(len(missTexts)))

	if len(missTexts) == 0 {
		return out, nil
	}
	c.logger.Debug("embedding cache misses", "count", len(missTexts), "total", len(texts))

	vecs, err := c.inner.EmbedTexts(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missTexts))
	}
	for j, vec := range vecs {
		out[missIdx[j]] = vec
		c.cache.Add(core.KeyFromString(missTexts[j]), vec)
	}
	return out, nil
}

// Len returns the number of cached vectors.
func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}

// Purge empties the cache.
func (c *CachedEmbedder) Purge() {
	c.cache.Purge()
}
