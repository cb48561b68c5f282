// Package recall scores a search engine's results against exact
// ground-truth neighbors, for offline recall evaluation of IVF-Flat and
// Vamana builds (spec'd by the CLI's --groundtruth_uri flag).
package recall

import (
	"slices"

	"github.com/hupe1980/vsearch/verrors"
)

// Report holds the result of scoring one batch of queries against their
// ground truth at a fixed K.
type Report struct {
	K int
	// PerQuery holds |result_i ∩ truth_i| / k for each query, in order.
	PerQuery []float64
	// RecallAtK is (Σ |result_i ∩ truth_i|) / (k * Q), the aggregate
	// recall across all queries.
	RecallAtK float64
}

// Compute scores results against groundTruth at K: R@k = (Σ |result_i ∩
// truth_i|) / (k·Q), each row sorted before set intersection. Both
// slices must have one row per query; rows may be longer than k, in
// which case only the first k entries of each are considered.
func Compute(results [][]uint64, groundTruth [][]uint64, k int) (*Report, error) {
	if k <= 0 {
		return nil, verrors.InvalidConfig("recall: K must be positive")
	}
	if len(results) != len(groundTruth) {
		return nil, verrors.InvalidConfigf("recall: %d result rows vs %d ground-truth rows", len(results), len(groundTruth))
	}

	q := len(results)
	report := &Report{K: k, PerQuery: make([]float64, q)}

	var totalOverlap int
	for i := range results {
		overlap := intersectCount(truncate(results[i], k), truncate(groundTruth[i], k))
		totalOverlap += overlap
		report.PerQuery[i] = float64(overlap) / float64(k)
	}

	if q > 0 {
		report.RecallAtK = float64(totalOverlap) / float64(k*q)
	}
	return report, nil
}

func truncate(row []uint64, k int) []uint64 {
	if len(row) > k {
		row = row[:k]
	}
	return row
}

// intersectCount counts the ids common to a and b, sorting copies of
// both first so set intersection doesn't depend on result ordering.
func intersectCount(a, b []uint64) int {
	as := slices.Clone(a)
	bs := slices.Clone(b)
	slices.Sort(as)
	slices.Sort(bs)

	var i, j, n int
	for i < len(as) && j < len(bs) {
		switch {
		case as[i] < bs[j]:
			i++
		case as[i] > bs[j]:
			j++
		default:
			n++
			i++
			j++
		}
	}
	return n
}
