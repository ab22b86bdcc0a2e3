// Package filter prunes a graph database to per-query candidate sets using
// feature-vector domination.
//
// A database graph can only contain a query if it exhibits every feature
// the query exhibits, so row i survives for query q iff db[i][j] >= q[j] for
// every column j. When no row survives, the whole database is returned
// instead and the result is marked as a fallback. That keeps recall at 100%
// but the fallback is not a containment proof.
package filter

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Benny93/sgindex/internal/features"
	"github.com/Benny93/sgindex/internal/graph"
)

// ErrDimensionMismatch is returned when the database and query matrices were
// built over feature sets of different sizes.
var ErrDimensionMismatch = errors.New("feature dimension mismatch")

// Result is the candidate set of one query.
type Result struct {
	// QueryID is the 1-based query position
	QueryID int `json:"query_id"`

	// IDs are 1-based database graph ids in ascending order, never empty
	IDs []int `json:"ids"`

	// Fallback is set when no row dominated the query and IDs is 1..N
	Fallback bool `json:"fallback"`
}

// Options controls a filter run.
type Options struct {
	// Workers bounds parallel evaluation; <= 0 means runtime.NumCPU()
	Workers int

	Logger zerolog.Logger
}

// Dominates reports whether row >= query componentwise. Both slices must
// have the same length.
func Dominates(row, query []uint8) bool {
	for j, q := range query {
		if row[j] < q {
			return false
		}
	}
	return true
}

// Candidates returns the 1-based ids of database rows dominating query, or
// 1..N with fallback set when none does.
func Candidates(db *features.Matrix, query []uint8) (ids []int, fallback bool) {
	for i := range db.Rows() {
		if Dominates(db.Row(i), query) {
			ids = append(ids, i+1)
		}
	}
	if len(ids) > 0 {
		return ids, false
	}
	ids = make([]int, db.Rows())
	for i := range ids {
		ids[i] = i + 1
	}
	return ids, true
}

// Filter computes the candidate set of every query row against db. Results
// are in query order.
func Filter(ctx context.Context, db, queries *features.Matrix, opts Options) ([]Result, error) {
	if db.Cols() != queries.Cols() {
		return nil, fmt.Errorf("%w: db k=%d vs query k=%d", ErrDimensionMismatch, db.Cols(), queries.Cols())
	}
	if db.Rows() == 0 && queries.Rows() > 0 {
		return nil, fmt.Errorf("filtering against an empty database: %w", graph.ErrEmptyCorpus)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]Result, queries.Rows())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for qi := range queries.Rows() {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ids, fallback := Candidates(db, queries.Row(qi))
			results[qi] = Result{QueryID: qi + 1, IDs: ids, Fallback: fallback}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("filtering candidates: %w", err)
	}

	fallbacks := 0
	for _, r := range results {
		if r.Fallback {
			fallbacks++
			opts.Logger.Debug().Int("query", r.QueryID).Msg("no dominating row, returning full database")
		}
	}
	opts.Logger.Info().
		Int("queries", len(results)).
		Int("database", db.Rows()).
		Int("fallbacks", fallbacks).
		Msg("candidate filtering complete")
	return results, nil
}
