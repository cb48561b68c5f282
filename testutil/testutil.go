// Package testutil provides seeded vector generators and a brute-force
// ground-truth helper for IVF-Flat/Vamana tests and benchmarks, so test
// data is reproducible across runs without every package hand-rolling
// its own random-matrix setup.
package testutil

import (
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/vsearch/internal/simd"
	"github.com/hupe1980/vsearch/tensor"
)

// RNG wraps a seeded math/rand source behind a mutex so the same
// generator can be shared across parallel benchmark setup without data
// races, while still producing deterministic output for a given seed.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates an RNG seeded deterministically.
func NewRNG(seed int64) *RNG {
	return &RNG{rand: rand.New(rand.NewSource(seed)), seed: seed}
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 { return r.seed }

// Reset rewinds the RNG back to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// UniformMatrix returns a dim×num column-major matrix with entries
// drawn uniformly from [0, 1).
func (r *RNG) UniformMatrix(dim, num int) *tensor.ColMajorMatrix[float32] {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := tensor.NewColMajorMatrix[float32](dim, num)
	data := m.Data()
	for i := range data {
		data[i] = r.rand.Float32()
	}
	return m
}

// GaussianMatrix returns a dim×num column-major matrix with entries
// drawn from a standard normal distribution.
func (r *RNG) GaussianMatrix(dim, num int) *tensor.ColMajorMatrix[float32] {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := tensor.NewColMajorMatrix[float32](dim, num)
	data := m.Data()
	for i := range data {
		data[i] = float32(r.rand.NormFloat64())
	}
	return m
}

// UnitMatrix returns a dim×num column-major matrix whose columns are
// L2-normalized random vectors, uniformly distributed on the unit
// hypersphere. Useful for cosine-distance-flavored recall benchmarks
// and for stress-testing Vamana graph quality on well-separated data.
func (r *RNG) UnitMatrix(dim, num int) *tensor.ColMajorMatrix[float32] {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := tensor.NewColMajorMatrix[float32](dim, num)
	for j := 0; j < num; j++ {
		col := m.Column(j)
		var norm float64
		for i := range col {
			v := r.rand.NormFloat64()
			col[i] = float32(v)
			norm += v * v
		}
		if norm == 0 {
			norm = 1
		}
		simd.ScaleInPlace(col, float32(1.0/math.Sqrt(norm)))
	}
	return m
}

// ClusteredMatrix returns a dim×num matrix whose columns are scattered
// with Gaussian noise around one of clusters random unit-vector
// centroids, for testing IVF-Flat partitioning and Vamana graph quality
// on non-uniform data rather than the uniform/Gaussian default.
func (r *RNG) ClusteredMatrix(dim, num, clusters int, spread float32) *tensor.ColMajorMatrix[float32] {
	centroids := r.UnitMatrix(dim, clusters)

	r.mu.Lock()
	defer r.mu.Unlock()

	m := tensor.NewColMajorMatrix[float32](dim, num)
	for j := 0; j < num; j++ {
		centroid := centroids.Column(j % clusters)
		col := m.Column(j)
		for i := range col {
			col[i] = centroid[i] + float32(r.rand.NormFloat64())*spread
		}
	}
	return m
}

// BruteForceGroundTruth returns, for every query column, the ids of the
// k nearest columns of db under squared L2 distance, sorted nearest
// first. It exists for tests that need a ground truth without pulling
// in the full bruteforce package's worker-pool machinery.
func BruteForceGroundTruth(db *tensor.ColMajorMatrix[float32], queries *tensor.ColMajorMatrix[float32], k int) [][]uint64 {
	out := make([][]uint64, queries.NumCols())
	for qi := 0; qi < queries.NumCols(); qi++ {
		q := queries.Column(qi)

		type scored struct {
			id   uint64
			dist float32
		}
		scores := make([]scored, db.NumCols())
		for i := 0; i < db.NumCols(); i++ {
			scores[i] = scored{id: uint64(i), dist: simd.SquaredL2(q, db.Column(i))}
		}

		n := k
		if n > len(scores) {
			n = len(scores)
		}
		// Partial selection sort over the first n slots is fine here:
		// ground truth is computed once per test, not on a hot path.
		for i := 0; i < n; i++ {
			minIdx := i
			for j := i + 1; j < len(scores); j++ {
				if scores[j].dist < scores[minIdx].dist {
					minIdx = j
				}
			}
			scores[i], scores[minIdx] = scores[minIdx], scores[i]
		}

		ids := make([]uint64, n)
		for i := 0; i < n; i++ {
			ids[i] = scores[i].id
		}
		out[qi] = ids
	}
	return out
}
