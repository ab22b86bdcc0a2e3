package ingestion

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/Benny93/sgindex/internal/storage"
)

// DefaultDebounce is the quiet period after the last change before a rebuild.
const DefaultDebounce = 2 * time.Second

// WatchOptions configures WatchDataset.
type WatchOptions struct {
	Pipeline PipelineOptions

	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration

	// OnRebuild is called after every rebuild attempt.
	OnRebuild func(*PipelineResult, error)
}

// WatchDataset monitors a dataset file or directory and rebuilds the index
// after changes settle. Blocks until the context is cancelled.
func WatchDataset(ctx context.Context, datasetPath string, store storage.StorageBackend, opts WatchOptions) error {
	info, err := os.Stat(datasetPath)
	if err != nil {
		return err
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := opts.Pipeline.Logger

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	var (
		root    = datasetPath
		single  = !info.IsDir()
		matcher gitignore.Matcher
	)
	if single {
		// Editors replace files on save, so watch the parent directory.
		if err := watcher.Add(filepath.Dir(datasetPath)); err != nil {
			return fmt.Errorf("setting up watcher: %w", err)
		}
	} else {
		patterns, err := loadIgnore(root)
		if err != nil {
			logger.Warn().Err(err).Msg("ignoring unreadable " + IgnoreFile)
		}
		matcher = newMatcher(patterns)
		if err := addWatchDirs(watcher, root, matcher); err != nil {
			return fmt.Errorf("setting up watcher: %w", err)
		}
	}

	shouldWatch := func(path string) bool {
		if single {
			return filepath.Clean(path) == filepath.Clean(datasetPath)
		}
		return shouldWatchFile(path, root, matcher)
	}

	pending := 0
	batchTimer := time.NewTimer(debounce)
	batchTimer.Stop() // Don't start yet

	logger.Info().Str("path", datasetPath).Msg("watching dataset")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !single && event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := addWatchDirs(watcher, root, matcher); err != nil {
						logger.Warn().Err(err).Str("dir", event.Name).Msg("cannot watch new directory")
					}
					continue
				}
			}

			if event.Has(fsnotify.Chmod) || !shouldWatch(event.Name) {
				continue
			}

			pending++
			batchTimer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error().Err(err).Msg("watch error")

		case <-batchTimer.C:
			if pending == 0 {
				continue
			}
			events := pending
			pending = 0
			if datasetUnchanged(ctx, datasetPath, store) {
				logger.Debug().Msg("dataset content unchanged, skipping rebuild")
				continue
			}
			logger.Info().Int("events", events).Msg("dataset changed, rebuilding index")

			_, result, err := RunPipeline(ctx, datasetPath, store, opts.Pipeline, nil)
			if err != nil {
				logger.Error().Err(err).Msg("rebuild failed")
			}
			if opts.OnRebuild != nil {
				opts.OnRebuild(result, err)
			}
		}
	}
}

// datasetUnchanged reports whether the stored index was built from files
// with the same digests as the ones under datasetPath now.
func datasetUnchanged(ctx context.Context, datasetPath string, store storage.StorageBackend) bool {
	if store == nil {
		return false
	}
	meta, err := store.GetMeta(ctx)
	if err != nil || len(meta.Files) == 0 {
		return false
	}
	digests, err := DatasetDigests(datasetPath)
	if err != nil {
		return false
	}
	return maps.Equal(meta.Files, digests)
}

// addWatchDirs adds every non-ignored directory under root. Adding a
// directory twice is a no-op.
func addWatchDirs(watcher *fsnotify.Watcher, root string, matcher gitignore.Matcher) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && shouldSkipDir(d.Name(), path, root, matcher) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// shouldWatchFile checks if a change to path can affect the dataset.
func shouldWatchFile(path, root string, matcher gitignore.Matcher) bool {
	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	if filepath.Base(path) == IgnoreFile {
		return true
	}

	if matcher != nil && matcher.Match(splitPath(relPath), false) {
		return false
	}

	return isSupportedFile(path)
}
