// Package ingestion turns a graph dataset on disk into a persisted index.
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/Benny93/sgindex/internal/graph"
	"github.com/Benny93/sgindex/internal/parsers"
)

// IgnoreFile lists dataset paths to skip, in gitignore syntax.
const IgnoreFile = ".sgignore"

// DatasetFile represents a dataset file to be parsed.
type DatasetFile struct {
	// Path is the absolute file path.
	Path string

	// RelPath is the path relative to the dataset root.
	RelPath string

	// Format is the record format of the file.
	Format string

	// Content is the file content.
	Content []byte

	// SHA256 is the hash of the file content.
	SHA256 string
}

// Supported file extensions and their record formats.
var supportedExtensions = map[string]string{
	".txt":     parsers.FormatRecords,
	".dat":     parsers.FormatRecords,
	".data":    parsers.FormatRecords,
	".graph":   parsers.FormatRecords,
	".records": parsers.FormatRecords,
}

// Default patterns to ignore (in addition to .sgignore).
var defaultIgnorePatterns = []string{
	".git/",
	".sgindex/",
	"*.tmp",
	"*.swp",
	"*~",
	".DS_Store",
	"Thumbs.db",
}

// WalkDataset returns the dataset files under root in lexical order. A root
// that is a regular file is returned as the only entry, whatever its
// extension.
func WalkDataset(root string, patterns []gitignore.Pattern) ([]DatasetFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		entry, err := readDatasetFile(root, filepath.Base(root), parsers.FormatRecords)
		if err != nil {
			return nil, err
		}
		return []DatasetFile{entry}, nil
	}

	matcher := newMatcher(patterns)

	var entries []DatasetFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && shouldSkipDir(d.Name(), path, root, matcher) {
				return filepath.SkipDir
			}
			return nil
		}

		format := getFormat(d.Name())
		if format == "" {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if matcher.Match(splitPath(relPath), false) {
			return nil
		}

		entry, err := readDatasetFile(path, relPath, format)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})

	return entries, err
}

func readDatasetFile(path, relPath, format string) (DatasetFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return DatasetFile{}, err
	}

	hash := sha256.Sum256(content)
	return DatasetFile{
		Path:    path,
		RelPath: relPath,
		Format:  format,
		Content: content,
		SHA256:  hex.EncodeToString(hash[:]),
	}, nil
}

// LoadDataset walks root and parses every dataset file. Graphs are returned
// in file order, then record order within each file.
func LoadDataset(ctx context.Context, root string) ([]*graph.Graph, []DatasetFile, error) {
	patterns, err := loadIgnore(root)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", IgnoreFile, err)
	}

	entries, err := WalkDataset(root, patterns)
	if err != nil {
		return nil, nil, fmt.Errorf("walking dataset: %w", err)
	}

	var graphs []*graph.Graph
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		parser := getParserForFormat(entry.Format)
		if parser == nil {
			continue
		}

		result, err := parser.Parse(entry.RelPath, entry.Content)
		if err != nil {
			return nil, nil, err
		}
		graphs = append(graphs, result.Graphs...)
	}

	return graphs, entries, nil
}

// DatasetDigests returns the SHA-256 digest of every dataset file under root,
// keyed by relative path.
func DatasetDigests(root string) (map[string]string, error) {
	patterns, err := loadIgnore(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", IgnoreFile, err)
	}
	entries, err := WalkDataset(root, patterns)
	if err != nil {
		return nil, err
	}
	return fileDigests(entries), nil
}

func fileDigests(entries []DatasetFile) map[string]string {
	digests := make(map[string]string, len(entries))
	for _, entry := range entries {
		digests[entry.RelPath] = entry.SHA256
	}
	return digests
}

// getParserForFormat returns the parser for a record format.
func getParserForFormat(format string) parsers.Parser {
	switch format {
	case parsers.FormatRecords:
		return parsers.NewRecordParser()
	default:
		return nil
	}
}

// loadIgnore loads .sgignore patterns from the dataset root. A file root has
// no ignore file.
func loadIgnore(root string) ([]gitignore.Pattern, error) {
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, nil
	}

	content, err := os.ReadFile(filepath.Join(root, IgnoreFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}

	return patterns, nil
}

// newMatcher combines the default patterns with the loaded ones.
func newMatcher(patterns []gitignore.Pattern) gitignore.Matcher {
	all := make([]gitignore.Pattern, 0, len(defaultIgnorePatterns)+len(patterns))
	for _, p := range defaultIgnorePatterns {
		all = append(all, gitignore.ParsePattern(p, nil))
	}
	all = append(all, patterns...)
	return gitignore.NewMatcher(all)
}

// isSupportedFile checks if a file has a supported extension.
func isSupportedFile(filename string) bool {
	return getFormat(filename) != ""
}

// getFormat returns the record format for a file extension.
func getFormat(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedExtensions[ext]
}

// shouldSkipDir checks if a directory should be skipped.
func shouldSkipDir(name, path, root string, matcher gitignore.Matcher) bool {
	// Always skip .git and the index directory
	if name == ".git" || name == ".sgindex" {
		return true
	}

	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return matcher.Match(splitPath(relPath), true)
}

// splitPath splits a path into its components.
func splitPath(path string) []string {
	return strings.Split(path, string(filepath.Separator))
}
