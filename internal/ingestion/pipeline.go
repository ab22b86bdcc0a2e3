package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Benny93/sgindex/internal/features"
	"github.com/Benny93/sgindex/internal/filter"
	"github.com/Benny93/sgindex/internal/graph"
	"github.com/Benny93/sgindex/internal/mining"
	"github.com/Benny93/sgindex/internal/storage"
)

// PipelineResult summarizes a pipeline run.
type PipelineResult struct {
	Files        int     `json:"files"`
	Parsed       int     `json:"parsed"`
	Graphs       int     `json:"graphs"`
	Patterns     int     `json:"patterns"`
	Features     int     `json:"features"`
	DurationSecs float64 `json:"duration_secs"`
}

// PipelineOptions configures RunPipeline.
type PipelineOptions struct {
	Mining mining.Options

	// Version is recorded in the run metadata.
	Version string

	Logger zerolog.Logger
}

// ProgressCallback is called with phase name and progress (0.0-1.0).
type ProgressCallback func(phase string, progress float64)

// RunPipeline parses the dataset at datasetPath, deduplicates it, mines the
// feature set, builds the database matrix and saves the index to store when
// store is non-nil.
func RunPipeline(
	ctx context.Context,
	datasetPath string,
	store storage.StorageBackend,
	opts PipelineOptions,
	progress ProgressCallback,
) (*storage.Index, *PipelineResult, error) {
	start := time.Now()
	result := &PipelineResult{}
	logger := opts.Logger

	if progress == nil {
		progress = func(string, float64) {}
	}

	// Phase 1: Parsing
	progress("Parsing graphs", 0.0)
	parsed, files, err := LoadDataset(ctx, datasetPath)
	if err != nil {
		return nil, nil, err
	}
	result.Files = len(files)
	result.Parsed = len(parsed)
	progress("Parsing graphs", 1.0)
	logger.Debug().Int("files", result.Files).Int("graphs", result.Parsed).Msg("dataset parsed")

	// Phase 2: Deduplication
	progress("Deduplicating", 0.0)
	graphs := graph.Dedup(parsed)
	result.Graphs = len(graphs)
	progress("Deduplicating", 1.0)
	if dropped := result.Parsed - result.Graphs; dropped > 0 {
		logger.Info().Int("dropped", dropped).Msg("duplicate graphs removed")
	}

	// Phase 3: Mining
	progress("Mining patterns", 0.0)
	mined, err := mining.Mine(ctx, graphs, opts.Mining, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("mining: %w", err)
	}
	result.Patterns = len(mined.Ranked)
	result.Features = len(mined.Features)
	progress("Mining patterns", 1.0)

	// Phase 4: Database matrix
	progress("Building matrix", 0.0)
	db, err := features.Build(ctx, graphs, mined.Features, opts.Mining.Workers)
	if err != nil {
		return nil, nil, fmt.Errorf("building matrix: %w", err)
	}
	progress("Building matrix", 1.0)

	signatures := make([]graph.Signature, len(graphs))
	for i, g := range graphs {
		signatures[i] = graph.ComputeSignature(g)
	}

	meta := storage.NewRunMeta(opts.Version, datasetPath)
	meta.Parsed = result.Parsed
	meta.Graphs = result.Graphs
	meta.Patterns = result.Patterns
	meta.TopK = opts.Mining.TopK
	meta.MinSupport = opts.Mining.MinSupport
	meta.Files = fileDigests(files)

	idx := &storage.Index{
		Meta:       meta,
		Features:   mined.Ranked[:result.Features],
		Database:   db,
		Signatures: signatures,
	}

	result.DurationSecs = time.Since(start).Seconds()
	idx.Meta.IndexedAt = time.Now().UTC()
	idx.Meta.DurationSecs = result.DurationSecs

	// Phase 5: Storage
	if store != nil {
		progress("Saving index", 0.0)
		if err := store.SaveIndex(ctx, idx); err != nil {
			return nil, nil, fmt.Errorf("saving index: %w", err)
		}
		progress("Saving index", 1.0)
	}

	logger.Info().
		Int("graphs", result.Graphs).
		Int("features", result.Features).
		Float64("secs", result.DurationSecs).
		Msg("index built")

	return idx, result, nil
}

// QueryResult is the outcome of filtering query graphs against an index.
type QueryResult struct {
	// Results holds one candidate set per query, in query order.
	Results []filter.Result `json:"results"`

	// Exact maps a query id to the database id of an identical graph.
	Exact map[int]int `json:"exact,omitempty"`
}

// RunQuery featurizes queries with the stored feature set and filters them
// against the stored database matrix.
func RunQuery(
	ctx context.Context,
	store storage.StorageBackend,
	queries []*graph.Graph,
	workers int,
	logger zerolog.Logger,
) (*QueryResult, error) {
	idx, err := store.LoadIndex(ctx)
	if err != nil {
		return nil, err
	}

	qm, err := features.Build(ctx, queries, idx.FeatureSet(), workers)
	if err != nil {
		return nil, fmt.Errorf("building query matrix: %w", err)
	}

	results, err := filter.Filter(ctx, idx.Database, qm, filter.Options{Workers: workers, Logger: logger})
	if err != nil {
		return nil, err
	}

	out := &QueryResult{Results: results, Exact: make(map[int]int)}
	for i, q := range queries {
		id, ok, err := store.FindGraph(ctx, graph.ComputeSignature(q))
		if err != nil {
			return nil, err
		}
		if ok {
			out.Exact[i+1] = id
		}
	}

	logger.Debug().Int("queries", len(queries)).Int("exact", len(out.Exact)).Msg("queries filtered")
	return out, nil
}
