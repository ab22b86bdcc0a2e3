package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/sgindex/internal/graph"
	"github.com/Benny93/sgindex/internal/parsers"
)

const (
	// Three graphs; the first and third are identical.
	datasetA = "v 0 1\nv 1 2\ne 0 1 9\n#\nv 0 1\nv 1 1\ne 0 1 5\n#\nv 0 1\nv 1 2\ne 0 1 9\n#\n"
	datasetB = "v 0 3\nv 1 3\nv 2 3\ne 0 1 0\ne 1 2 0\ne 0 2 0\n#\n"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		fullPath := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(t, os.WriteFile(fullPath, []byte(content), 0o644))
	}
}

func relPaths(entries []DatasetFile) []string {
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = filepath.ToSlash(e.RelPath)
	}
	return paths
}

func TestWalkDataset(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"a.txt":             datasetA,
		"sub/b.graph":       datasetB,
		"sub/skip/c.dat":    datasetB,
		"README.md":         "# dataset",
		".sgignore":         "# comment\nsub/skip/\n",
		".sgindex/meta.txt": "not a dataset",
		"scratch.tmp":       "x",
	})

	t.Run("WalkAllSupportedFiles", func(t *testing.T) {
		entries, err := WalkDataset(tmpDir, nil)
		require.NoError(t, err)

		assert.Equal(t, []string{"a.txt", "sub/b.graph", "sub/skip/c.dat"}, relPaths(entries))
	})

	t.Run("RespectIgnoreFile", func(t *testing.T) {
		patterns, err := loadIgnore(tmpDir)
		require.NoError(t, err)
		require.Len(t, patterns, 1)

		entries, err := WalkDataset(tmpDir, patterns)
		require.NoError(t, err)

		assert.Equal(t, []string{"a.txt", "sub/b.graph"}, relPaths(entries))
	})

	t.Run("ComputesHashes", func(t *testing.T) {
		entries, err := WalkDataset(tmpDir, nil)
		require.NoError(t, err)

		sum := sha256.Sum256([]byte(datasetA))
		assert.Equal(t, hex.EncodeToString(sum[:]), entries[0].SHA256)
		assert.Equal(t, parsers.FormatRecords, entries[0].Format)
		assert.Equal(t, []byte(datasetA), entries[0].Content)
	})

	t.Run("SingleFile", func(t *testing.T) {
		path := filepath.Join(tmpDir, "README.md")
		entries, err := WalkDataset(path, nil)
		require.NoError(t, err)

		require.Len(t, entries, 1)
		assert.Equal(t, "README.md", entries[0].RelPath)
		assert.Equal(t, path, entries[0].Path)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := WalkDataset(filepath.Join(tmpDir, "nope"), nil)
		assert.Error(t, err)
	})
}

func sha256Hex(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func TestDatasetDigests(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"a.txt":      datasetA,
		"sub/b.dat":  datasetB,
		"skip/c.txt": datasetB,
		".sgignore":  "skip/\n",
	})

	t.Run("Directory", func(t *testing.T) {
		digests, err := DatasetDigests(tmpDir)
		require.NoError(t, err)

		assert.Equal(t, map[string]string{
			"a.txt":                       sha256Hex(datasetA),
			filepath.Join("sub", "b.dat"): sha256Hex(datasetB),
		}, digests)
	})

	t.Run("SingleFile", func(t *testing.T) {
		digests, err := DatasetDigests(filepath.Join(tmpDir, "a.txt"))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"a.txt": sha256Hex(datasetA)}, digests)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := DatasetDigests(filepath.Join(tmpDir, "nope"))
		assert.Error(t, err)
	})
}

func TestLoadIgnore(t *testing.T) {
	t.Parallel()

	t.Run("NoFile", func(t *testing.T) {
		patterns, err := loadIgnore(t.TempDir())
		assert.NoError(t, err)
		assert.Empty(t, patterns)
	})

	t.Run("FileRoot", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "db.txt")
		require.NoError(t, os.WriteFile(path, []byte(datasetA), 0o644))

		patterns, err := loadIgnore(path)
		assert.NoError(t, err)
		assert.Empty(t, patterns)
	})
}

func TestLoadDataset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		writeFiles(t, tmpDir, map[string]string{
			"1.txt": datasetA,
			"2.txt": datasetB,
		})

		graphs, files, err := LoadDataset(ctx, tmpDir)
		require.NoError(t, err)

		assert.Len(t, files, 2)
		require.Len(t, graphs, 4)
		assert.Equal(t, 3, graphs[3].NodeCount(), "graphs follow file order")
	})

	t.Run("SingleFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "db")
		require.NoError(t, os.WriteFile(path, []byte(datasetA), 0o644))

		graphs, files, err := LoadDataset(ctx, path)
		require.NoError(t, err)
		assert.Len(t, files, 1)
		assert.Len(t, graphs, 3)
	})

	t.Run("MalformedNamesFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		writeFiles(t, tmpDir, map[string]string{"bad.txt": "v 0 1\nx 1 2\n"})

		_, _, err := LoadDataset(ctx, tmpDir)
		require.Error(t, err)
		assert.ErrorIs(t, err, graph.ErrMalformedRecord)
		assert.Contains(t, err.Error(), "bad.txt")
	})

	t.Run("Canceled", func(t *testing.T) {
		tmpDir := t.TempDir()
		writeFiles(t, tmpDir, map[string]string{"1.txt": datasetA})

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, _, err := LoadDataset(canceled, tmpDir)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestShouldSkipDir(t *testing.T) {
	t.Parallel()

	matcher := newMatcher(nil)
	assert.True(t, shouldSkipDir(".git", "/data/.git", "/data", matcher))
	assert.True(t, shouldSkipDir(".sgindex", "/data/.sgindex", "/data", matcher))
	assert.False(t, shouldSkipDir("sub", "/data/sub", "/data", matcher))
}

func TestGetFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, parsers.FormatRecords, getFormat("db.TXT"))
	assert.Equal(t, parsers.FormatRecords, getFormat("q.graph"))
	assert.Empty(t, getFormat("notes.md"))
	assert.False(t, isSupportedFile("Makefile"))
}
