package filter

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/sgindex/internal/features"
	"github.com/Benny93/sgindex/internal/graph"
)

func matrix(t *testing.T, rows [][]uint8) *features.Matrix {
	t.Helper()
	m, err := features.FromRows(rows)
	require.NoError(t, err)
	return m
}

func TestDominates(t *testing.T) {
	t.Parallel()

	assert.True(t, Dominates([]uint8{1, 1, 1}, []uint8{1, 0, 1}))
	assert.True(t, Dominates([]uint8{1, 0, 1}, []uint8{1, 0, 1}))
	assert.False(t, Dominates([]uint8{0, 0, 1}, []uint8{1, 0, 1}))
	assert.True(t, Dominates(nil, nil))
}

func TestFilter(t *testing.T) {
	t.Parallel()
	opts := Options{Workers: 2, Logger: zerolog.Nop()}

	t.Run("Domination", func(t *testing.T) {
		t.Parallel()
		db := matrix(t, [][]uint8{{1, 1, 1}, {0, 0, 1}, {1, 0, 1}})
		q := matrix(t, [][]uint8{{1, 0, 1}})

		results, err := Filter(context.Background(), db, q, opts)
		require.NoError(t, err)

		require.Len(t, results, 1)
		assert.Equal(t, Result{QueryID: 1, IDs: []int{1, 3}}, results[0])
	})

	t.Run("FallbackToFullRange", func(t *testing.T) {
		t.Parallel()
		db := matrix(t, [][]uint8{{1, 0, 0}, {0, 1, 0}})
		q := matrix(t, [][]uint8{{1, 1, 1}})

		results, err := Filter(context.Background(), db, q, opts)
		require.NoError(t, err)

		assert.Equal(t, []Result{{QueryID: 1, IDs: []int{1, 2}, Fallback: true}}, results)
	})

	t.Run("NeverEmpty", func(t *testing.T) {
		t.Parallel()
		var dbRows, qRows [][]uint8
		for i := range 8 {
			dbRows = append(dbRows, []uint8{uint8(i & 1), uint8(i >> 1 & 1), uint8(i >> 2 & 1)})
		}
		for i := range 8 {
			qRows = append(qRows, []uint8{uint8(i >> 2 & 1), uint8(i & 1), uint8(i >> 1 & 1)})
		}
		db := matrix(t, dbRows[1:])

		results, err := Filter(context.Background(), db, matrix(t, qRows), opts)
		require.NoError(t, err)

		require.Len(t, results, 8)
		for i, r := range results {
			assert.Equal(t, i+1, r.QueryID)
			assert.NotEmpty(t, r.IDs)
			assert.IsIncreasing(t, r.IDs)
		}
	})

	t.Run("ZeroQueryMatchesAll", func(t *testing.T) {
		t.Parallel()
		db := matrix(t, [][]uint8{{0, 1}, {1, 0}, {0, 0}})
		results, err := Filter(context.Background(), db, matrix(t, [][]uint8{{0, 0}}), opts)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, results[0].IDs)
		assert.False(t, results[0].Fallback)
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		t.Parallel()
		db := matrix(t, [][]uint8{{1, 0, 1}})
		q := matrix(t, [][]uint8{{1, 0}})

		_, err := Filter(context.Background(), db, q, opts)
		assert.True(t, errors.Is(err, ErrDimensionMismatch))
	})

	t.Run("EmptyDatabase", func(t *testing.T) {
		t.Parallel()
		_, err := Filter(context.Background(), features.NewMatrix(0, 2), matrix(t, [][]uint8{{1, 0}}), opts)
		assert.True(t, errors.Is(err, graph.ErrEmptyCorpus))
	})

	t.Run("Canceled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := Filter(ctx, matrix(t, [][]uint8{{1}}), matrix(t, [][]uint8{{1}}), opts)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestCandidatesFile(t *testing.T) {
	t.Parallel()

	results := []Result{
		{QueryID: 1, IDs: []int{1, 3}},
		{QueryID: 2, IDs: []int{1, 2}, Fallback: true},
	}

	t.Run("Write", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, WriteCandidates(&buf, results))
		assert.Equal(t, "q # 1\nc # 1 3\nq # 2\nc # 1 2\n", buf.String())
	})

	t.Run("ReadBack", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "candidates.dat")
		require.NoError(t, SaveCandidates(path, results))

		back, err := LoadCandidates(path)
		require.NoError(t, err)
		require.Len(t, back, 2)
		assert.Equal(t, []int{1, 3}, back[0].IDs)
		assert.Equal(t, 2, back[1].QueryID)
		assert.False(t, back[1].Fallback)
	})

	t.Run("ContinuationLines", func(t *testing.T) {
		t.Parallel()
		back, err := ReadCandidates(strings.NewReader("q # 5\nc # 1 2\n3 4\n\nq # 6\nc #\n"))
		require.NoError(t, err)
		require.Len(t, back, 2)
		assert.Equal(t, []int{1, 2, 3, 4}, back[0].IDs)
		assert.Empty(t, back[1].IDs)
	})

	t.Run("Malformed", func(t *testing.T) {
		t.Parallel()
		inputs := []string{"c # 1\n", "q # x\n", "q # 1 2\n", "q # 1\nc # 1 y\n"}
		for _, in := range inputs {
			_, err := ReadCandidates(strings.NewReader(in))
			assert.True(t, errors.Is(err, ErrMalformedCandidates), "input %q", in)
		}
	})
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	t.Run("Stats", func(t *testing.T) {
		t.Parallel()
		results := []Result{
			{QueryID: 1, IDs: []int{1}},
			{QueryID: 2, IDs: []int{1, 2, 3, 4}},
			{QueryID: 3, IDs: []int{2, 3}},
			{QueryID: 4, IDs: []int{1, 2, 3}},
		}

		report := Summarize(results, 4, 2)

		assert.Equal(t, 4, report.Queries)
		assert.InDelta(t, 1.0, report.Min, 1e-12)
		assert.InDelta(t, 4.0, report.Max, 1e-12)
		assert.InDelta(t, 2.5, report.Mean, 1e-12)
		assert.InDelta(t, 2.5, report.Median, 1e-12)
		assert.Equal(t, 1, report.FullRange)
		assert.Equal(t, 0, report.Zero)
		assert.InDelta(t, 0.375, report.PruneRatio, 1e-12)
		assert.Equal(t, []QuerySize{{QueryID: 2, Size: 4}, {QueryID: 4, Size: 3}}, report.Largest)
	})

	t.Run("OddMedianUnknownDatabase", func(t *testing.T) {
		t.Parallel()
		results := []Result{
			{QueryID: 1, IDs: []int{1, 2, 3}},
			{QueryID: 2},
			{QueryID: 3, IDs: []int{7}},
		}

		report := Summarize(results, 0, 10)

		assert.InDelta(t, 1.0, report.Median, 1e-12)
		assert.Equal(t, 1, report.Zero)
		assert.Zero(t, report.FullRange)
		assert.Zero(t, report.PruneRatio)
		assert.Len(t, report.Largest, 3)
	})

	t.Run("Empty", func(t *testing.T) {
		t.Parallel()
		report := Summarize(nil, 10, 5)
		assert.Equal(t, Report{}, report)
	})
}
