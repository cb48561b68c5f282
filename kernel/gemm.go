package kernel

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

// Gemm computes C = -2*A^T*B using BLAS (alpha fixed at -2, beta at 0, so
// the prior contents of c are overwritten), where A is D×N (database,
// column-major) and B is D×Q (queries, column-major). The result C is the
// N×Q matrix of dot products times -2, row-major, used by the gemm
// brute-force variant to derive squared distances via
// ||a-b||^2 = ||a||^2 + ||b||^2 - 2 a·b.
//
// A and B are passed as flat column-major buffers; gonum's blas64.General
// is row-major, so A and B are presented to BLAS as their transposes
// (Q×D / N×D row-major, which is numerically identical to D×Q / D×N
// column-major) and the Trans flags compensate.
func Gemm(aData []float32, aRows, aCols int, bData []float32, bRows, bCols int, c []float64) {
	if aRows != bRows {
		panic("kernel: Gemm dimension mismatch")
	}
	dim := aRows

	a64 := make([]float64, len(aData))
	for i, v := range aData {
		a64[i] = float64(v)
	}
	b64 := make([]float64, len(bData))
	for i, v := range bData {
		b64[i] = float64(v)
	}

	// A stored column-major D x N is the same bytes as A^T stored
	// row-major N x D, so Ar below already equals A^T with no Trans
	// flag needed. Br likewise equals B^T (Q x D); transposing it back
	// to D x Q via the Trans flag gives Ar * Br^T = A^T * B.
	Ar := blas64.General{Rows: aCols, Cols: dim, Stride: dim, Data: a64}
	Br := blas64.General{Rows: bCols, Cols: dim, Stride: dim, Data: b64}

	out := blas64.General{Rows: aCols, Cols: bCols, Stride: bCols, Data: c}

	blas64.Gemm(blas.NoTrans, blas.Trans, -2.0, Ar, Br, 0.0, out)
}
