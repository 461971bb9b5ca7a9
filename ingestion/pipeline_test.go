package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/artifex/ai/mock"
	"github.com/poiesic/artifex/artifact"
	"github.com/poiesic/artifex/core"
	"github.com/poiesic/artifex/loader"
	"github.com/poiesic/artifex/storage"
	"github.com/poiesic/artifex/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T, opts ...Option) (*Pipeline, storage.VectorStore, *mock.MockEmbedder) {
	t.Helper()
	store, err := badger.NewMemoryVectorStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	embedder := mock.NewMockEmbedder()
	embedder.Dimensions = 8

	p, err := NewPipeline(store, embedder, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p, store, embedder
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestNewPipeline_Validation(t *testing.T) {
	store, err := badger.NewMemoryVectorStore()
	require.NoError(t, err)
	defer store.Close()

	_, err = NewPipeline(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewPipeline(store, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewPipeline(store, mock.NewMockEmbedder(), WithPool(nil))
	assert.ErrorIs(t, err, loader.ErrPoolRequired)

	p, err := NewPipeline(store, mock.NewMockEmbedder(), WithPoolSize(2), WithLogger(slog.Default()))
	require.NoError(t, err)
	p.Release()
}

func TestIngest_StoresArtifacts(t *testing.T) {
	p, store, embedder := newTestPipeline(t, WithPoolSize(2))
	ctx := context.Background()

	dir := writeFiles(t, map[string]string{
		"a.txt": "alpha",
		"b.txt": "beta",
	})
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")

	textLoader, err := loader.NewTextLoader()
	require.NoError(t, err)

	res, err := p.Ingest(ctx, textLoader, []any{a, b, a}, &IngestOptions{
		Namespace: "docs",
		Meta:      map[string]any{"batch": "one"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stored)
	assert.Equal(t, 0, res.Skipped)
	assert.ElementsMatch(t, []string{textLoader.ToKey(a), textLoader.ToKey(b)}, res.Keys)
	assert.Equal(t, 2, embedder.CallCount())

	entry, err := store.LoadEntry(ctx, textLoader.ToKey(a), "docs")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "one", entry.Meta["batch"])
	assert.Equal(t, mock.GenerateDeterministicVector("alpha", 8), entry.Vector)

	stored, err := entry.ToArtifact()
	require.NoError(t, err)
	assert.Equal(t, artifact.TagText, stored.Tag())
	assert.Equal(t, "alpha", stored.ToText())
}

func TestIngest_Idempotent(t *testing.T) {
	p, store, embedder := newTestPipeline(t)
	ctx := context.Background()

	textLoader, err := loader.NewTextLoader()
	require.NoError(t, err)
	sources := []any{[]byte("one"), []byte("two")}

	first, err := p.Ingest(ctx, textLoader, sources, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Stored)
	calls := embedder.CallCount()

	second, err := p.Ingest(ctx, textLoader, sources, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Stored)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, calls, embedder.CallCount(), "skipped entries are not re-embedded")

	entries, err := store.LoadEntries(ctx, storage.DefaultNamespace)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	third, err := p.Ingest(ctx, textLoader, sources, &IngestOptions{Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, 2, third.Stored)
}

func TestIngest_LoadFailureWritesNothing(t *testing.T) {
	p, store, _ := newTestPipeline(t)
	ctx := context.Background()

	textLoader, err := loader.NewTextLoader()
	require.NoError(t, err)

	missing := filepath.Join(t.TempDir(), "missing.txt")
	res, err := p.Ingest(ctx, textLoader, []any{[]byte("ok"), missing}, nil)
	assert.Nil(t, res)

	var collErr *loader.CollectionError
	require.True(t, errors.As(err, &collErr))
	assert.Equal(t, []string{textLoader.ToKey(missing)}, collErr.Keys())
	assert.ErrorIs(t, err, core.ErrFetch)

	entries, err := store.LoadEntries(ctx, storage.DefaultNamespace)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIngest_EmbedderFailure(t *testing.T) {
	p, _, embedder := newTestPipeline(t)
	embedder.WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		if text == "bad" {
			return nil, errors.New("model overloaded")
		}
		return mock.GenerateDeterministicVector(text, 8), nil
	})

	textLoader, err := loader.NewTextLoader()
	require.NoError(t, err)

	res, err := p.Ingest(context.Background(), textLoader, []any{[]byte("good"), []byte("bad")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Stored)
}

func TestIngest_NilLoader(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	_, err := p.Ingest(context.Background(), nil, []any{"x"}, nil)
	assert.ErrorIs(t, err, ErrLoaderRequired)
}

func TestUpsertArtifacts_ReservedMeta(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	_, err := p.UpsertArtifacts(context.Background(), map[string]artifact.Artifact{
		"k": artifact.NewText("x"),
	}, &IngestOptions{Meta: map[string]any{core.ArtifactMetaKey: "mine"}})
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.ErrorIs(t, err, core.ErrReservedMetadataKey)
}

func TestUpsertArtifact_KeepsExistingEmbedding(t *testing.T) {
	p, store, embedder := newTestPipeline(t)
	ctx := context.Background()

	a := artifact.NewText("pre-embedded")
	vector, err := artifact.GenerateEmbedding(ctx, a, mock.NewMockEmbedder())
	require.NoError(t, err)

	id, err := p.UpsertArtifact(ctx, "", a, nil)
	require.NoError(t, err)
	assert.Equal(t, core.KeyFromString("pre-embedded"), id)
	assert.Equal(t, 0, embedder.CallCount())

	entry, err := store.LoadEntry(ctx, id, "")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, vector, entry.Vector)
}

func TestUpsertText(t *testing.T) {
	p, store, _ := newTestPipeline(t)
	ctx := context.Background()

	id, err := p.UpsertText(ctx, "hello world", &IngestOptions{Namespace: "notes"})
	require.NoError(t, err)
	assert.Equal(t, core.KeyFromString("hello world"), id)

	entry, err := store.LoadEntry(ctx, id, "notes")
	require.NoError(t, err)
	require.NotNil(t, entry)
	a, err := entry.ToArtifact()
	require.NoError(t, err)
	assert.Equal(t, "hello world", a.ToText())
}

func TestPipeline_SharedPool(t *testing.T) {
	pool, err := loader.NewPool(2)
	require.NoError(t, err)
	defer pool.Release()

	p, _, _ := newTestPipeline(t, WithPool(pool))
	p.Release()

	assert.False(t, pool.IsClosed(), "shared pool outlives the pipeline")
}
