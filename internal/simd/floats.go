package simd

import (
	"encoding/binary"
	"math"
	"math/bits"
)

var (
	dotImpl       = dotGeneric
	squaredL2Impl = squaredL2Generic
	scaleImpl     = scaleGeneric
	hammingImpl   = hammingGeneric

	squaredL2BatchImpl = squaredL2BatchGeneric
	dotBatchImpl       = dotBatchGeneric
)

// Dot calculates the dot product of two vectors.
// Public for use by the distance package.
//
// SAFETY: This function assumes len(a) == len(b).
// It does NOT perform bounds checks for performance reasons.
// Callers MUST ensure lengths match.
func Dot(a, b []float32) float32 {
	return dotImpl(a, b)
}

// DotBatch calculates dot products for a batch of vectors.
// targets is a flattened array of N vectors, each of dimension dim.
// out must have length N (len(targets) / dim).
func DotBatch(query []float32, targets []float32, dim int, out []float32) {
	dotBatchImpl(query, targets, dim, out)
}

func dotGeneric(a, b []float32) float32 {
	var ret float32
	for i := range a {
		ret += a[i] * b[i]
	}
	return ret
}

func dotBatchGeneric(query []float32, targets []float32, dim int, out []float32) {
	if dim <= 0 || len(out) == 0 || len(query) < dim {
		return
	}

	q := query[:dim]
	n := min(len(out), len(targets)/dim)
	for i := 0; i < n; i++ {
		offset := i * dim
		out[i] = dotImpl(q, targets[offset:offset+dim])
	}
}

// SquaredL2 calculates the squared L2 distance.
// Public for use by the distance package.
//
// SAFETY: This function assumes len(a) == len(b).
// It does NOT perform bounds checks for performance reasons.
// Callers MUST ensure lengths match.
func SquaredL2(a, b []float32) float32 {
	return squaredL2Impl(a, b)
}

// SquaredL2Batch calculates squared L2 distance for a batch of vectors.
// targets is a flattened array of N vectors, each of dimension dim.
// out must have length N (len(targets) / dim).
func SquaredL2Batch(query []float32, targets []float32, dim int, out []float32) {
	squaredL2BatchImpl(query, targets, dim, out)
}

func squaredL2Generic(a, b []float32) float32 {
	var distance float32
	for i := range a {
		d := a[i] - b[i]
		distance += d * d
	}
	return distance
}

func squaredL2BatchGeneric(query []float32, targets []float32, dim int, out []float32) {
	if dim <= 0 || len(out) == 0 || len(query) < dim {
		return
	}

	q := query[:dim]
	n := min(len(out), len(targets)/dim)
	for i := 0; i < n; i++ {
		offset := i * dim
		out[i] = squaredL2Impl(q, targets[offset:offset+dim])
	}
}

// ScaleInPlace multiplies all elements of a by scalar.
//
// This is primarily used by distance normalization.
func ScaleInPlace(a []float32, scalar float32) {
	scaleImpl(a, scalar)
}

func scaleGeneric(a []float32, scalar float32) {
	for i := range a {
		a[i] *= scalar
	}
}

// Hamming computes the Hamming distance between a and b, i.e. the number of
// differing bits.
func Hamming(a, b []byte) int64 {
	return hammingImpl(a, b)
}

func hammingGeneric(a, b []byte) int64 {
	var sum int64
	n := len(a)
	for n >= 8 {
		v1 := binary.LittleEndian.Uint64(a)
		v2 := binary.LittleEndian.Uint64(b)
		sum += int64(bits.OnesCount64(v1 ^ v2))
		a = a[8:]
		b = b[8:]
		n -= 8
	}
	for i := range a {
		sum += int64(bits.OnesCount8(a[i] ^ b[i]))
	}
	return sum
}

// Sqrt returns the square root of x. Distance kernels rank by squared
// distance on the hot path; Sqrt is called only where a caller needs the
// true Euclidean distance (e.g. reporting results to a user).
func Sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}
