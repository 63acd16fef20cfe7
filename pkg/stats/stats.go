// Package stats provides summary statistics over clone sizes.
package stats

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Percentile calculates the p-th percentile of a sorted slice.
// The slice must already be sorted in ascending order.
// Returns 0 if the slice is empty.
func Percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	q := float64(p) / 100
	q = min(max(q, 0), 1)
	return stat.Quantile(q, stat.Empirical, sorted, nil)
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Summary holds the distribution of a set of sizes.
type Summary struct {
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
	Max  float64 `json:"max"`
}

// Summarize computes mean, median, p95 and max of values. The input is not
// modified.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return Summary{
		Mean: Mean(sorted),
		P50:  Percentile(sorted, 50),
		P95:  Percentile(sorted, 95),
		Max:  sorted[len(sorted)-1],
	}
}
