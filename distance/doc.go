// Package distance provides vector distance calculations.
//
// All distance functions delegate to internal/simd, which currently
// provides only portable Go implementations.
//
// # Functions
//
//   - SquaredL2: squared Euclidean distance
//   - Dot: dot product (inner product)
//   - Hamming: number of differing bits between two byte slices
//   - NormalizeL2InPlace / NormalizeL2Copy: L2 normalization
//
// # Usage
//
//	dist := distance.SquaredL2(a, b)
//	sim := distance.Dot(a, b)
//	normalized, ok := distance.NormalizeL2Copy(vec)
package distance
