// Package kernel provides the scoring primitives used as leaves by both
// the IVF-Flat and Vamana engines: squared L2 distance, column-wise
// squared-sum reductions, and an optional BLAS-accelerated matrix
// product for the gemm brute-force variant. Ranking properties match
// true Euclidean distance, so the square root is never taken on the
// critical path (callers that need true distances call Sqrt
// explicitly).
package kernel

import (
	"math"

	"github.com/hupe1980/vsearch/distance"
)

// L2 returns the squared Euclidean distance between a and b, using the
// arch-specific SIMD kernel when available.
// Callers are responsible for ensuring len(a) == len(b).
func L2(a, b []float32) float32 {
	return distance.SquaredL2(a, b)
}

// SumOfSquares returns the sum of squared elements of v: Σ v[i]^2.
// Used by the gemm path via ||a-b||^2 = ||a||^2 + ||b||^2 - 2 a·b.
func SumOfSquares(v []float32) float32 {
	return Dot(v, v)
}

// Dot returns the dot product of a and b, using the arch-specific SIMD
// kernel when available.
func Dot(a, b []float32) float32 {
	return distance.Dot(a, b)
}

// Sqrt is the one place callers may take a real Euclidean distance once
// ranking is finished.
func Sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

// ColumnSumOfSquares computes Σ col[i]^2 for every column of m (D×N,
// column-major) and writes the N results into dst.
func ColumnSumOfSquares(data []float32, rows, cols int, dst []float32) {
	for j := 0; j < cols; j++ {
		dst[j] = SumOfSquares(data[j*rows : (j+1)*rows])
	}
}
