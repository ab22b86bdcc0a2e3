package features

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Benny93/sgindex/internal/graph"
	"github.com/Benny93/sgindex/internal/pattern"
)

// Vector returns the presence vector of every feature in g.
func Vector(g *graph.Graph, set pattern.FeatureSet) []uint8 {
	vec := make([]uint8, len(set))
	fill(vec, g, set)
	return vec
}

func fill(dst []uint8, g *graph.Graph, set pattern.FeatureSet) {
	for j, p := range set {
		if pattern.Matches(g, p) {
			dst[j] = 1
		} else {
			dst[j] = 0
		}
	}
}

// Build computes the feature matrix of graphs over set: row i is the vector
// of graphs[i]. Rows are computed in parallel by at most workers goroutines
// (<= 0 means runtime.NumCPU()); the result does not depend on scheduling.
func Build(ctx context.Context, graphs []*graph.Graph, set pattern.FeatureSet, workers int) (*Matrix, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	m := NewMatrix(len(graphs), len(set))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, gr := range graphs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fill(m.Row(i), gr, set)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building feature matrix: %w", err)
	}
	return m, nil
}
