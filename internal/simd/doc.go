// Package simd provides the scalar vector-distance kernels used by the
// distance package: dot product, squared Euclidean distance, Hamming
// distance, and in-place scaling. Batch variants amortize the call overhead
// of the qv brute-force kernels over many targets sharing one query.
//
// Implementations are dispatched through package-level function variables
// (dotImpl, squaredL2Impl, ...) so an architecture-specific build can
// override them in an init() without touching call sites; only the portable
// Go fallback is wired in today.
package simd
