// Package storage persists a built sgindex index.
//
// It defines the StorageBackend protocol that all storage implementations
// must satisfy, along with the index types shared across backends.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Benny93/sgindex/internal/features"
	"github.com/Benny93/sgindex/internal/graph"
	"github.com/Benny93/sgindex/internal/mining"
	"github.com/Benny93/sgindex/internal/pattern"
)

var (
	// ErrIndexNotFound is returned when no index has been saved yet.
	ErrIndexNotFound = errors.New("index not found")

	// ErrInvalidIndex is returned by SaveIndex for an inconsistent index.
	ErrInvalidIndex = errors.New("invalid index")
)

// RunMeta describes the run that produced an index.
type RunMeta struct {
	// RunID uniquely identifies the build.
	RunID string `json:"run_id"`

	// Version is the sgindex version that built the index.
	Version string `json:"version"`

	// Dataset is the dataset path the index was built from.
	Dataset string `json:"dataset"`

	// IndexedAt is the build completion time (UTC).
	IndexedAt time.Time `json:"indexed_at"`

	// Parsed is the number of graphs read before deduplication.
	Parsed int `json:"parsed"`

	// Graphs is the number of graphs after deduplication.
	Graphs int `json:"graphs"`

	// Patterns is the number of distinct patterns that passed the support filter.
	Patterns int `json:"patterns"`

	TopK       int `json:"top_k"`
	MinSupport int `json:"min_support"`

	DurationSecs float64 `json:"duration_secs"`

	// Files maps each dataset file, relative to Dataset, to its SHA-256 digest.
	Files map[string]string `json:"files,omitempty"`
}

// NewRunMeta returns metadata with a fresh run id.
func NewRunMeta(version, dataset string) RunMeta {
	return RunMeta{
		RunID:   uuid.NewString(),
		Version: version,
		Dataset: dataset,
	}
}

// Index is everything needed to answer candidate queries without the
// original dataset.
type Index struct {
	Meta RunMeta

	// Features are the selected patterns with their support and score, in
	// feature-set order.
	Features []mining.ScoredPattern

	// Database is the feature matrix of the deduplicated corpus.
	Database *features.Matrix

	// Signatures holds one signature per database row.
	Signatures []graph.Signature
}

// FeatureSet returns the bare pattern list of the index.
func (idx *Index) FeatureSet() pattern.FeatureSet {
	set := make(pattern.FeatureSet, len(idx.Features))
	for i, sp := range idx.Features {
		set[i] = sp.Pattern
	}
	return set
}

// Validate checks that every matrix row has a graph signature.
func (idx *Index) Validate() error {
	if idx.Database != nil && idx.Database.Rows() != len(idx.Signatures) {
		return fmt.Errorf("%w: %d matrix rows but %d signatures", ErrInvalidIndex, idx.Database.Rows(), len(idx.Signatures))
	}
	return nil
}

// StorageBackend defines the interface for storage implementations.
//
// Implementations must be thread-safe and support concurrent access.
type StorageBackend interface {
	// Lifecycle methods

	// Initialize opens or creates the storage backend at the given path.
	// If readOnly is true, the backend is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// Bulk operations

	// SaveIndex replaces the stored index.
	SaveIndex(ctx context.Context, idx *Index) error

	// LoadIndex returns the stored index or ErrIndexNotFound.
	LoadIndex(ctx context.Context) (*Index, error)

	// Lookups

	// GetMeta returns the run metadata or ErrIndexNotFound.
	GetMeta(ctx context.Context) (*RunMeta, error)

	// GetFeatures returns the scored feature list in order.
	GetFeatures(ctx context.Context) ([]mining.ScoredPattern, error)

	// FindGraph returns the 1-based database id of the graph with the given
	// signature, if it is in the index.
	FindGraph(ctx context.Context, sig graph.Signature) (int, bool, error)

	// Stats

	// GraphCount returns the number of database graphs.
	GraphCount() int

	// FeatureCount returns the number of features.
	FeatureCount() int
}
