package badger

import (
	"context"
	"testing"

	"github.com/poiesic/artifex/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointStore(t *testing.T) {
	vectors, checkpoints, err := NewMemoryStores()
	require.NoError(t, err)
	defer vectors.Close()
	ctx := context.Background()

	cp, err := checkpoints.LoadCheckpoint(ctx, "reembed:docs")
	require.NoError(t, err)
	assert.Nil(t, cp)

	require.NoError(t, checkpoints.SaveCheckpoint(ctx, &storage.Checkpoint{
		Name:      "reembed:docs",
		LastID:    "id-42",
		Processed: 42,
	}))

	cp, err = checkpoints.LoadCheckpoint(ctx, "reembed:docs")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, "id-42", cp.LastID)
	assert.Equal(t, 42, cp.Processed)
	assert.False(t, cp.UpdatedAt.IsZero())

	require.NoError(t, checkpoints.DeleteCheckpoint(ctx, "reembed:docs"))
	cp, err = checkpoints.LoadCheckpoint(ctx, "reembed:docs")
	require.NoError(t, err)
	assert.Nil(t, cp)

	require.NoError(t, checkpoints.DeleteCheckpoint(ctx, "never-saved"))
}

func TestCheckpointStore_Closed(t *testing.T) {
	vectors, checkpoints, err := NewMemoryStores()
	require.NoError(t, err)
	require.NoError(t, vectors.Close())

	_, err = checkpoints.LoadCheckpoint(context.Background(), "x")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestCheckpointStore_CanceledContext(t *testing.T) {
	vectors, checkpoints, err := NewMemoryStores()
	require.NoError(t, err)
	defer vectors.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = checkpoints.SaveCheckpoint(ctx, &storage.Checkpoint{Name: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = checkpoints.LoadCheckpoint(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, checkpoints.DeleteCheckpoint(ctx, "x"), context.Canceled)
}
