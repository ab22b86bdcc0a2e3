package mining

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Benny93/sgindex/internal/graph"
	"github.com/Benny93/sgindex/internal/pattern"
)

const (
	// DefaultTopK is the default feature set size.
	DefaultTopK = 50

	// DefaultMinSupport keeps every pattern that occurs at all.
	DefaultMinSupport = 1
)

// Options controls a mining run.
type Options struct {
	// TopK is the number of patterns selected as features
	TopK int

	// MinSupport is the minimum number of graphs a pattern must occur in
	MinSupport int

	// Workers bounds parallel extraction; <= 0 means runtime.NumCPU()
	Workers int
}

// DefaultOptions returns the default mining options.
func DefaultOptions() Options {
	return Options{
		TopK:       DefaultTopK,
		MinSupport: DefaultMinSupport,
		Workers:    runtime.NumCPU(),
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.TopK < 1 {
		return fmt.Errorf("top-k must be at least 1, got %d", o.TopK)
	}
	if o.MinSupport < 1 {
		return fmt.Errorf("min support must be at least 1, got %d", o.MinSupport)
	}
	return nil
}

// Result is the outcome of a mining run.
type Result struct {
	// Graphs is the corpus size used for scoring
	Graphs int

	// Distinct is the number of distinct patterns before the support filter
	Distinct int

	// Ranked holds every pattern passing the support filter, best first
	Ranked []ScoredPattern

	// Features is the first TopK ranked patterns
	Features pattern.FeatureSet

	Duration time.Duration
}

// Mine extracts patterns from every graph, counts support and selects the
// top features. The graphs should already be deduplicated.
func Mine(ctx context.Context, graphs []*graph.Graph, opts Options, logger zerolog.Logger) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(graphs) == 0 {
		return nil, graph.ErrEmptyCorpus
	}

	start := time.Now()
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	sets := make([]*GraphPatterns, len(graphs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, gr := range graphs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sets[i] = ExtractPatterns(gr)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extracting patterns: %w", err)
	}

	counter := NewSupportCounter()
	for _, set := range sets {
		counter.Merge(set)
	}
	logger.Debug().
		Int("graphs", counter.Graphs()).
		Int("distinct", counter.Len()).
		Msg("support counted")

	ranked := Rank(counter, opts.MinSupport)
	features := Top(ranked, opts.TopK)
	if len(features) < opts.TopK {
		logger.Warn().
			Int("requested", opts.TopK).
			Int("available", len(features)).
			Msg("fewer patterns than requested")
	}

	result := &Result{
		Graphs:   counter.Graphs(),
		Distinct: counter.Len(),
		Ranked:   ranked,
		Features: features,
		Duration: time.Since(start),
	}
	logger.Info().
		Int("graphs", result.Graphs).
		Int("ranked", len(ranked)).
		Int("features", len(features)).
		Dur("took", result.Duration).
		Msg("mining complete")
	return result, nil
}
