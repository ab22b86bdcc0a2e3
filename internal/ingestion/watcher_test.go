package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/sgindex/internal/storage"
)

func TestShouldWatchFile(t *testing.T) {
	t.Parallel()

	root := "data"
	matcher := newMatcher(nil)

	assert.True(t, shouldWatchFile(filepath.Join(root, "db.txt"), root, matcher))
	assert.True(t, shouldWatchFile(filepath.Join(root, "sub", "q.graph"), root, matcher))
	assert.True(t, shouldWatchFile(filepath.Join(root, IgnoreFile), root, matcher))
	assert.False(t, shouldWatchFile(filepath.Join(root, "notes.md"), root, matcher))
	assert.False(t, shouldWatchFile(filepath.Join(root, "db.txt.swp"), root, matcher))
	assert.False(t, shouldWatchFile(filepath.Join(root, ".sgindex", "x.txt"), root, matcher))
}

func TestDatasetUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.txt": datasetA})
	store := storage.NewMemoryBackend()

	assert.False(t, datasetUnchanged(ctx, root, store), "no index yet")
	assert.False(t, datasetUnchanged(ctx, root, nil))

	_, _, err := RunPipeline(ctx, root, store, testOptions(), nil)
	require.NoError(t, err)
	assert.True(t, datasetUnchanged(ctx, root, store))

	// Same bytes rewritten
	writeFiles(t, root, map[string]string{"a.txt": datasetA})
	assert.True(t, datasetUnchanged(ctx, root, store))

	writeFiles(t, root, map[string]string{"b.txt": datasetB})
	assert.False(t, datasetUnchanged(ctx, root, store), "file added")

	require.NoError(t, os.Remove(filepath.Join(root, "b.txt")))
	writeFiles(t, root, map[string]string{"a.txt": datasetA + datasetB})
	assert.False(t, datasetUnchanged(ctx, root, store), "content changed")
}

func TestWatchDataset(t *testing.T) {
	t.Parallel()

	t.Run("RebuildsDirectoryOnChange", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeFiles(t, root, map[string]string{"a.txt": datasetA})
		store := storage.NewMemoryBackend()

		var rebuilds atomic.Int32
		opts := WatchOptions{
			Pipeline: testOptions(),
			Debounce: 50 * time.Millisecond,
			OnRebuild: func(result *PipelineResult, err error) {
				if err == nil && result.Graphs == 3 {
					rebuilds.Add(1)
				}
			},
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- WatchDataset(ctx, root, store, opts) }()

		// The watcher may not be registered yet, so keep touching the file.
		assert.Eventually(t, func() bool {
			_ = os.WriteFile(filepath.Join(root, "b.txt"), []byte(datasetB), 0o644)
			return rebuilds.Load() > 0
		}, 10*time.Second, 200*time.Millisecond)

		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
		assert.Equal(t, 3, store.GraphCount())
	})

	t.Run("RebuildsSingleFile", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "db.txt")
		require.NoError(t, os.WriteFile(path, []byte(datasetA), 0o644))
		store := storage.NewMemoryBackend()

		var rebuilds atomic.Int32
		opts := WatchOptions{
			Pipeline: testOptions(),
			Debounce: 50 * time.Millisecond,
			OnRebuild: func(result *PipelineResult, err error) {
				if err == nil {
					rebuilds.Add(1)
				}
			},
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = WatchDataset(ctx, path, store, opts) }()

		assert.Eventually(t, func() bool {
			_ = os.WriteFile(path, []byte(datasetA+datasetB), 0o644)
			return rebuilds.Load() > 0
		}, 10*time.Second, 200*time.Millisecond)

		assert.Equal(t, 3, store.GraphCount())
	})

	t.Run("SkipsUnchangedContent", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "db.txt")
		require.NoError(t, os.WriteFile(path, []byte(datasetA), 0o644))
		store := storage.NewMemoryBackend()
		_, _, err := RunPipeline(context.Background(), path, store, testOptions(), nil)
		require.NoError(t, err)

		var rebuilds atomic.Int32
		opts := WatchOptions{
			Pipeline: testOptions(),
			Debounce: 50 * time.Millisecond,
			OnRebuild: func(*PipelineResult, error) {
				rebuilds.Add(1)
			},
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = WatchDataset(ctx, path, store, opts) }()

		assert.Never(t, func() bool {
			_ = os.WriteFile(path, []byte(datasetA), 0o644)
			return rebuilds.Load() > 0
		}, time.Second, 100*time.Millisecond)

		assert.Eventually(t, func() bool {
			_ = os.WriteFile(path, []byte(datasetA+datasetB), 0o644)
			return rebuilds.Load() > 0
		}, 10*time.Second, 200*time.Millisecond)
	})

	t.Run("MissingPath", func(t *testing.T) {
		t.Parallel()

		err := WatchDataset(context.Background(), filepath.Join(t.TempDir(), "nope"), nil, WatchOptions{})
		assert.Error(t, err)
	})
}
