package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/sgindex/internal/features"
)

func setupTestBadgerBackend(t *testing.T) (*BadgerBackend, string, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "badger")

	backend := NewBadgerBackend()
	err := backend.Initialize(dbPath, false)
	require.NoError(t, err)

	cleanup := func() {
		backend.Close()
	}

	return backend, dbPath, cleanup
}

func TestBadgerBackend_Initialize(t *testing.T) {
	t.Parallel()

	t.Run("Success", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "badger")

		backend := NewBadgerBackend()
		err := backend.Initialize(dbPath, false)

		assert.NoError(t, err)
		assert.NotNil(t, backend.db)
		assert.True(t, backend.initialized)

		backend.Close()
	})

	t.Run("ReadOnly", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "badger")

		// First create the DB
		backend1 := NewBadgerBackend()
		err := backend1.Initialize(dbPath, false)
		require.NoError(t, err)
		backend1.Close()

		// Open in read-only mode
		backend2 := NewBadgerBackend()
		err = backend2.Initialize(dbPath, true)

		assert.NoError(t, err)
		assert.True(t, backend2.initialized)

		backend2.Close()
	})

	t.Run("InvalidPath", func(t *testing.T) {
		tmpDir := t.TempDir()
		blocker := filepath.Join(tmpDir, "file")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

		backend := NewBadgerBackend()
		err := backend.Initialize(filepath.Join(blocker, "badger"), false)

		assert.Error(t, err)
	})
}

func TestBadgerBackend_Close(t *testing.T) {
	t.Parallel()

	backend, _, _ := setupTestBadgerBackend(t)

	assert.NoError(t, backend.Close())
	assert.False(t, backend.initialized)
	assert.NoError(t, backend.Close(), "closing twice is a no-op")
}

func TestBadgerBackend_Persistence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend, dbPath, _ := setupTestBadgerBackend(t)

	idx := sampleIndex(t)
	require.NoError(t, backend.SaveIndex(ctx, idx))
	require.NoError(t, backend.Close())

	reopened := NewBadgerBackend()
	require.NoError(t, reopened.Initialize(dbPath, true))
	defer reopened.Close()

	assert.Equal(t, 2, reopened.GraphCount())
	assert.Equal(t, 3, reopened.FeatureCount())

	loaded, err := reopened.LoadIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, idx.Meta.RunID, loaded.Meta.RunID)
	assert.Equal(t, idx.Features, loaded.Features)
	assert.True(t, idx.Database.Equal(loaded.Database))

	id, ok, err := reopened.FindGraph(ctx, "sig-b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, id)
}

func TestBadgerBackend_FeatureOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend, _, cleanup := setupTestBadgerBackend(t)
	defer cleanup()

	idx := sampleIndex(t)
	base := idx.Features
	idx.Features = nil
	for range 12 {
		idx.Features = append(idx.Features, base...)
	}
	idx.Features[10].Support = 7
	require.NoError(t, backend.SaveIndex(ctx, idx))

	feats, err := backend.GetFeatures(ctx)
	require.NoError(t, err)
	require.Len(t, feats, 36)
	assert.Equal(t, 7, feats[10].Support)
	assert.Equal(t, idx.Features, feats)
}

func TestBadgerBackend_SaveIndexErrors(t *testing.T) {
	t.Parallel()

	backend, _, cleanup := setupTestBadgerBackend(t)
	defer cleanup()

	t.Run("RowSignatureMismatch", func(t *testing.T) {
		idx := sampleIndex(t)
		idx.Database = features.NewMatrix(5, 3)

		err := backend.SaveIndex(context.Background(), idx)
		assert.ErrorIs(t, err, ErrInvalidIndex)
		assert.ErrorContains(t, err, "5 matrix rows but 2 signatures")
	})

	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := backend.SaveIndex(ctx, sampleIndex(t))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBadgerBackend_MissingMatrix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend, _, cleanup := setupTestBadgerBackend(t)
	defer cleanup()

	idx := sampleIndex(t)
	idx.Database = nil
	idx.Signatures = nil
	idx.Meta.Graphs = 0
	require.NoError(t, backend.SaveIndex(ctx, idx))

	loaded, err := backend.LoadIndex(ctx)
	require.NoError(t, err)
	rows, cols := loaded.Database.Dims()
	assert.Equal(t, 0, rows)
	assert.Equal(t, 3, cols)
}
