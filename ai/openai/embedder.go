package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/artifex/ai"
	"github.com/poiesic/artifex/metrics"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder on an OpenAI-compatible /embeddings endpoint.
type Embedder struct {
	client    embeddings.Embedder
	model     string
	batchSize int
	logger    *slog.Logger
}

func newEmbedder(config *ai.Config) (*Embedder, error) {
	if config == nil {
		config = ai.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("openai embedder: %w", err)
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIToken),
		openai.WithEmbeddingModel(config.EmbeddingModel),
		openai.WithHTTPClient(&http.Client{Timeout: config.RequestTimeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: create client: %w", err)
	}

	client, err := embeddings.NewEmbedder(llm,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(config.BatchSize),
	)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: %w", err)
	}

	return &Embedder{
		client:    client,
		model:     config.EmbeddingModel,
		batchSize: config.BatchSize,
		logger:    slog.Default().With("component", "openai-embedder", "model", config.EmbeddingModel),
	}, nil
}

// NewEmbedder creates an embedder from config. A nil config means
// ai.DefaultConfig.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// Model returns the embedding model name.
func (e *Embedder) Model() string {
	return e.model
}

func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts embeds texts in order, splitting them into requests of at most
// the configured batch size. An empty input makes no request.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	start := time.Now()
	vectors, err := e.client.EmbedDocuments(ctx, texts)
	metrics.EmbeddingRequestsTotal.WithLabelValues(metrics.Status(err)).Inc()
	if err != nil {
		e.logger.Error("embedding request failed", "texts", len(texts), "err", err)
		return nil, fmt.Errorf("embed %d texts with %s: %w", len(texts), e.model, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("model %s returned %d embeddings for %d texts", e.model, len(vectors), len(texts))
	}

	e.logger.Debug("embedded texts", "count", len(texts), "batch_size", e.batchSize, "elapsed", time.Since(start))
	return vectors, nil
}
