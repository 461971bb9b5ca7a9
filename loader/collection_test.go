package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/poiesic/artifex/artifact"
	"github.com/poiesic/artifex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingLoader loads string sources as text and counts calls per source.
type countingLoader struct {
	mu     sync.Mutex
	calls  map[any]int
	total  atomic.Int32
	failOn map[string]error
	panics map[string]bool
}

func newCountingLoader() *countingLoader {
	return &countingLoader{
		calls:  make(map[any]int),
		failOn: make(map[string]error),
		panics: make(map[string]bool),
	}
}

func (l *countingLoader) Load(ctx context.Context, source any, opts ...LoadOption) (artifact.Artifact, error) {
	l.mu.Lock()
	l.calls[source]++
	l.mu.Unlock()
	l.total.Add(1)

	s := fmt.Sprint(source)
	if l.panics[s] {
		panic("loader exploded on " + s)
	}
	if err := l.failOn[s]; err != nil {
		return nil, err
	}
	a := artifact.NewText("content of " + s)
	options := newOptions(opts)
	if options.Reference != nil {
		a.SetReference(options.Reference)
	}
	return a, nil
}

func (l *countingLoader) ToKey(source any) string {
	return core.KeyOf(source)
}

func (l *countingLoader) callsFor(source any) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[source]
}

func TestLoadCollection_Deduplicates(t *testing.T) {
	pool, err := NewPool(4)
	require.NoError(t, err)
	defer pool.Release()

	l := newCountingLoader()
	c := NewCollectionLoader(l, pool)

	results, err := c.LoadCollection(context.Background(), []any{"X", "X", "Y"})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "content of X", results[l.ToKey("X")].ToText())
	assert.Equal(t, "content of Y", results[l.ToKey("Y")].ToText())
	assert.Equal(t, 1, l.callsFor("X"))
	assert.Equal(t, 1, l.callsFor("Y"))
	assert.EqualValues(t, 2, l.total.Load())
}

func TestLoadCollection_Completeness(t *testing.T) {
	pool, err := NewPool(3)
	require.NoError(t, err)
	defer pool.Release()

	l := newCountingLoader()
	c := NewCollectionLoader(l, pool)

	sources := make([]any, 0, 50)
	for i := 0; i < 50; i++ {
		sources = append(sources, fmt.Sprintf("source-%d", i%25))
	}

	results, err := c.LoadCollection(context.Background(), sources)
	require.NoError(t, err)
	require.Len(t, results, 25)
	for i := 0; i < 25; i++ {
		s := fmt.Sprintf("source-%d", i)
		a, ok := results[l.ToKey(s)]
		require.True(t, ok, s)
		assert.Equal(t, "content of "+s, a.ToText())
		assert.Equal(t, 1, l.callsFor(s))
	}
}

func TestLoadCollection_FailureSurfaces(t *testing.T) {
	pool, err := NewPool(2)
	require.NoError(t, err)
	defer pool.Release()

	l := newCountingLoader()
	l.failOn["Y"] = fmt.Errorf("%w: bad row", core.ErrParse)
	c := NewCollectionLoader(l, pool)

	results, err := c.LoadCollection(context.Background(), []any{"X", "Y", "Z"})
	assert.Nil(t, results)
	require.Error(t, err)

	var collErr *CollectionError
	require.True(t, errors.As(err, &collErr))
	assert.Equal(t, []string{l.ToKey("Y")}, collErr.Keys())
	assert.ErrorIs(t, err, core.ErrParse)
	assert.Contains(t, err.Error(), l.ToKey("Y"))

	// The barrier still waits for the healthy sources.
	assert.Equal(t, 1, l.callsFor("X"))
	assert.Equal(t, 1, l.callsFor("Z"))
}

func TestLoadCollection_MultipleFailures(t *testing.T) {
	pool, err := NewPool(2)
	require.NoError(t, err)
	defer pool.Release()

	l := newCountingLoader()
	l.failOn["A"] = fmt.Errorf("%w: gone", core.ErrFetch)
	l.failOn["B"] = fmt.Errorf("%w: garbled", core.ErrParse)
	c := NewCollectionLoader(l, pool)

	_, err = c.LoadCollection(context.Background(), []any{"A", "B", "C"})
	var collErr *CollectionError
	require.True(t, errors.As(err, &collErr))
	assert.Len(t, collErr.Failures, 2)
	assert.ErrorIs(t, err, core.ErrFetch)
	assert.ErrorIs(t, err, core.ErrParse)
}

func TestLoadCollection_PanicIsFailure(t *testing.T) {
	pool, err := NewPool(2)
	require.NoError(t, err)
	defer pool.Release()

	l := newCountingLoader()
	l.panics["boom"] = true
	c := NewCollectionLoader(l, pool)

	_, err = c.LoadCollection(context.Background(), []any{"ok", "boom"})
	assert.ErrorIs(t, err, ErrTaskPanicked)

	var collErr *CollectionError
	require.True(t, errors.As(err, &collErr))
	assert.Equal(t, []string{l.ToKey("boom")}, collErr.Keys())
}

func TestLoadCollection_EmptyInput(t *testing.T) {
	pool, err := NewPool(1)
	require.NoError(t, err)
	defer pool.Release()

	l := newCountingLoader()
	c := NewCollectionLoader(l, pool)

	results, err := c.LoadCollection(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.EqualValues(t, 0, l.total.Load())
}

func TestLoadCollection_ReleasedPool(t *testing.T) {
	pool, err := NewPool(1)
	require.NoError(t, err)
	pool.Release()

	l := newCountingLoader()
	c := NewCollectionLoader(l, pool)

	_, err = c.LoadCollection(context.Background(), []any{"X"})
	var collErr *CollectionError
	require.True(t, errors.As(err, &collErr))
	assert.Equal(t, []string{l.ToKey("X")}, collErr.Keys())
	assert.EqualValues(t, 0, l.total.Load())
}

func TestLoadCollection_Validation(t *testing.T) {
	pool, err := NewPool(1)
	require.NoError(t, err)
	defer pool.Release()

	_, err = NewCollectionLoader(nil, pool).LoadCollection(context.Background(), []any{"X"})
	assert.ErrorIs(t, err, ErrLoaderRequired)

	_, err = NewCollectionLoader(newCountingLoader(), nil).LoadCollection(context.Background(), []any{"X"})
	assert.ErrorIs(t, err, ErrPoolRequired)
}

func TestLoadCollection_ForwardsOptions(t *testing.T) {
	pool, err := NewPool(2)
	require.NoError(t, err)
	defer pool.Release()

	l := newCountingLoader()
	c := NewCollectionLoader(l, pool)
	assert.Same(t, l, c.Loader())

	ref := artifact.Reference{"batch": "nightly"}
	results, err := c.LoadCollection(context.Background(), []any{"X", "Y"}, WithReference(ref))
	require.NoError(t, err)
	for _, a := range results {
		assert.Equal(t, ref, a.Reference())
	}
}

func TestLoadCollection_RealFileLoader(t *testing.T) {
	pool, err := NewPool(DefaultPoolSize())
	require.NoError(t, err)
	defer pool.Release()

	csvLoader, err := NewCsvLoader()
	require.NoError(t, err)
	c := NewCollectionLoader(csvLoader, pool)

	good := "testdata/people.csv"
	missing := "testdata/missing.csv"

	results, err := c.LoadCollection(context.Background(), []any{good, good})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Foo,Bar\nfoo1,bar1\nfoo2,bar2", results[csvLoader.ToKey(good)].ToText())

	_, err = c.LoadCollection(context.Background(), []any{good, missing})
	var collErr *CollectionError
	require.True(t, errors.As(err, &collErr))
	assert.Equal(t, []string{csvLoader.ToKey(missing)}, collErr.Keys())
	assert.ErrorIs(t, err, core.ErrFetch)
}

func TestCollectionError_Message(t *testing.T) {
	err := &CollectionError{Failures: map[string]error{
		"b": errors.New("second"),
		"a": errors.New("first"),
	}}
	assert.Equal(t, []string{"a", "b"}, err.Keys())
	assert.Equal(t, "collection load failed for 2 source(s); a: first; b: second", err.Error())
	assert.Len(t, err.Unwrap(), 2)
}

func TestDefaultPoolSize(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultPoolSize(), 1)

	pool, err := NewPool(0)
	require.NoError(t, err)
	defer pool.Release()
	assert.Equal(t, 1, pool.Cap())
}
