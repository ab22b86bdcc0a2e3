package filter

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// QuerySize is the candidate count of one query.
type QuerySize struct {
	QueryID int `json:"query_id"`
	Size    int `json:"size"`
}

// Report summarizes candidate set sizes over all queries.
type Report struct {
	Queries int     `json:"queries"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`

	// Zero counts queries with no candidates (only possible in foreign files)
	Zero int `json:"zero"`

	// FullRange counts queries whose candidate set is the whole database;
	// zero when the database size is unknown
	FullRange int `json:"full_range"`

	// PruneRatio is 1 - mean/dbSize, zero when the database size is unknown
	PruneRatio float64 `json:"prune_ratio"`

	// Largest lists the queries with the most candidates, biggest first
	Largest []QuerySize `json:"largest"`
}

// Summarize computes candidate-size statistics. dbSize may be 0 when unknown.
// top bounds the Largest list.
func Summarize(results []Result, dbSize, top int) Report {
	report := Report{Queries: len(results)}
	if len(results) == 0 {
		return report
	}

	sizes := make([]float64, len(results))
	bySize := make([]QuerySize, len(results))
	for i, r := range results {
		n := len(r.IDs)
		sizes[i] = float64(n)
		bySize[i] = QuerySize{QueryID: r.QueryID, Size: n}
		if n == 0 {
			report.Zero++
		}
		if dbSize > 0 && n == dbSize {
			report.FullRange++
		}
	}

	report.Min = floats.Min(sizes)
	report.Max = floats.Max(sizes)
	report.Mean = stat.Mean(sizes, nil)
	report.Median = median(sizes)
	if dbSize > 0 {
		report.PruneRatio = 1 - report.Mean/float64(dbSize)
	}

	slices.SortStableFunc(bySize, func(a, b QuerySize) int {
		return cmp.Compare(b.Size, a.Size)
	})
	report.Largest = bySize[:max(0, min(top, len(bySize)))]
	return report
}

// median averages the two middle values for an even count.
func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
