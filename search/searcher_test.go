package search

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/artifex/ai/mock"
	"github.com/poiesic/artifex/artifact"
	"github.com/poiesic/artifex/core"
	"github.com/poiesic/artifex/storage"
	"github.com/poiesic/artifex/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedVectors maps texts to hand-picked embeddings.
func fixedVectors(vectors map[string][]float32) *mock.MockEmbedder {
	return mock.NewMockEmbedder().WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		if v, ok := vectors[text]; ok {
			return v, nil
		}
		return nil, errors.New("unexpected text: " + text)
	})
}

func newTestStore(t *testing.T) storage.VectorStore {
	t.Helper()
	store, err := badger.NewMemoryVectorStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func putArtifact(t *testing.T, store storage.VectorStore, a artifact.Artifact, vector []float32, namespace string) string {
	t.Helper()
	data, err := artifact.ToJSON(a)
	require.NoError(t, err)
	id, err := store.UpsertVector(context.Background(), vector, core.KeyFromString(a.ToText()), namespace,
		map[string]any{core.ArtifactMetaKey: string(data)})
	require.NoError(t, err)
	return id
}

func TestNewSearcher_Validation(t *testing.T) {
	store := newTestStore(t)

	_, err := NewSearcher(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewSearcher(store, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewSearcher(store, mock.NewMockEmbedder(), WithMinScore(2))
	assert.Error(t, err)

	_, err = NewSearcher(store, mock.NewMockEmbedder(), WithVerbatimBoost(-1))
	assert.Error(t, err)
}

func TestSearch_ReturnsArtifacts(t *testing.T) {
	store := newTestStore(t)
	embedder := mock.NewMockEmbedder()
	embedder.Dimensions = 16
	ctx := context.Background()

	for _, text := range []string{"alpha", "beta", "gamma"} {
		vector := mock.GenerateDeterministicVector(text, 16)
		putArtifact(t, store, artifact.NewText(text), vector, "docs")
	}

	s, err := NewSearcher(store, embedder, WithVerbatimBoost(0))
	require.NoError(t, err)

	results, err := s.Search(ctx, "beta", 2, "docs")
	require.NoError(t, err)
	require.Len(t, results, 2)

	top := results[0]
	assert.Equal(t, core.KeyFromString("beta"), top.ID)
	assert.Equal(t, "docs", top.Namespace)
	assert.Equal(t, artifact.TagText, top.Artifact.Tag())
	assert.Equal(t, "beta", top.Artifact.ToText())
	assert.InDelta(t, 1.0, top.Similarity, 1e-5)
	assert.Equal(t, top.Similarity, top.Score)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestSearch_VerbatimBoost(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	embedder := fixedVectors(map[string][]float32{
		"green apple": {1, 0},
	})
	putArtifact(t, store, artifact.NewText("red apple pie"), []float32{1, 0}, "")
	putArtifact(t, store, artifact.NewText("The green apple."), []float32{0.9, 0.1}, "")

	boosted, err := NewSearcher(store, embedder)
	require.NoError(t, err)
	results, err := boosted.Search(ctx, "green apple", 10, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "The green apple.", results[0].Artifact.ToText())
	assert.InDelta(t, results[0].Similarity+DefaultVerbatimBoost, results[0].Score, 1e-5)

	plain, err := NewSearcher(store, embedder, WithVerbatimBoost(0))
	require.NoError(t, err)
	results, err = plain.Search(ctx, "green apple", 10, "")
	require.NoError(t, err)
	assert.Equal(t, "red apple pie", results[0].Artifact.ToText())
}

func TestSearch_MinScore(t *testing.T) {
	store := newTestStore(t)
	embedder := fixedVectors(map[string][]float32{"q": {1, 0}})

	putArtifact(t, store, artifact.NewText("near"), []float32{1, 0.1}, "")
	putArtifact(t, store, artifact.NewText("far"), []float32{0, 1}, "")

	s, err := NewSearcher(store, embedder, WithMinScore(0.5))
	require.NoError(t, err)

	results, err := s.Search(context.Background(), "q", 10, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "near", results[0].Artifact.ToText())
}

func TestSearch_SkipsEntriesWithoutArtifact(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	embedder := fixedVectors(map[string][]float32{"q": {1, 0}})

	putArtifact(t, store, artifact.NewText("kept"), []float32{1, 0}, "")
	_, err := store.UpsertVector(ctx, []float32{1, 0}, "bare", "", map[string]any{"note": "no artifact"})
	require.NoError(t, err)
	_, err = store.UpsertVector(ctx, []float32{1, 0}, "broken", "", map[string]any{core.ArtifactMetaKey: `{"type":"Nope"}`})
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	s, err := NewSearcher(store, embedder)
	require.NoError(t, err)

	results, err := s.SearchWithMonitor(ctx, "q", 10, "", monitor)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "kept", results[0].Artifact.ToText())

	assert.Equal(t, "q", monitor.query)
	assert.Len(t, monitor.queried, 3)
	assert.ElementsMatch(t, []string{"bare", "broken"}, monitor.skipped)
	assert.Equal(t, results, monitor.finished)
}

func TestSearch_Errors(t *testing.T) {
	store := newTestStore(t)
	boom := errors.New("embedding failed")
	embedder := mock.NewMockEmbedder().WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		return nil, boom
	})

	s, err := NewSearcher(store, embedder)
	require.NoError(t, err)

	_, err = s.Search(context.Background(), "   ", 5, "")
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = s.Search(context.Background(), "query", 5, "")
	assert.ErrorIs(t, err, boom)

	_, err = s.SearchVector(context.Background(), nil, 5, "")
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestSearchVector(t *testing.T) {
	store := newTestStore(t)
	putArtifact(t, store, artifact.NewText("one"), []float32{1, 0, 0}, "v")
	putArtifact(t, store, artifact.NewText("two"), []float32{0, 1, 0}, "v")

	s, err := NewSearcher(store, mock.NewMockEmbedder())
	require.NoError(t, err)

	results, err := s.SearchVector(context.Background(), []float32{0, 1, 0}, 1, "v")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "two", results[0].Artifact.ToText())
}

type recordingMonitor struct {
	noopMonitor
	query    string
	queried  []string
	skipped  []string
	finished []*Result
}

func (m *recordingMonitor) Start(query string)           { m.query = query }
func (m *recordingMonitor) AfterVectorQuery(ids []string) { m.queried = ids }
func (m *recordingMonitor) Skipped(id string, _ error)    { m.skipped = append(m.skipped, id) }
func (m *recordingMonitor) Finish(results []*Result)      { m.finished = results }

func TestTerms(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		document string
		want     bool
	}{
		{name: "all words present", query: "green apple", document: "The green apple.", want: true},
		{name: "case and punctuation", query: "Green, APPLE!", document: "green apple", want: true},
		{name: "missing word", query: "green apple pie", document: "green apple", want: false},
		{name: "stop words only", query: "the and of", document: "the and of", want: false},
		{name: "stop words ignored", query: "the apple", document: "apple", want: true},
		{name: "empty query", query: "", document: "anything", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, termsOf(tt.query).coveredBy(tt.document))
		})
	}
}
