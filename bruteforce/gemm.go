package bruteforce

import (
	"context"

	"github.com/hupe1980/vsearch/kernel"
	"github.com/hupe1980/vsearch/tensor"
	"github.com/hupe1980/vsearch/topk"
	"github.com/hupe1980/vsearch/workerpool"
)

// Gemm computes exact top-k by materializing an N×Q score matrix via a
// single BLAS -2*A^T*B call, correcting it with column-norm outer
// products, taking the square root, and then selecting top-k per column
// with a bounded heap. It parallelizes the selection step (not the BLAS
// call itself, which is single-threaded by design) over the query axis.
func Gemm(ctx context.Context, db, q *tensor.ColMajorMatrix[float32], opts Options) (*Result, error) {
	return gemm(ctx, db, q, opts, heapSelect)
}

// GemmNthElement is Gemm's selection step replaced with a quickselect
// partition (topk.SelectNth) over each column's fully materialized score
// buffer instead of an online heap. Since gemm already computes every
// candidate's distance before selecting, the whole column is available
// up front, which is exactly the shape SelectNth expects; the two differ
// only in how they pick the k smallest from a known score buffer, and
// agree on every tie-free input.
func GemmNthElement(ctx context.Context, db, q *tensor.ColMajorMatrix[float32], opts Options) (*Result, error) {
	return gemm(ctx, db, q, opts, nthElementSelect)
}

// columnSelector picks the k nearest ids (and, if withScores, their
// distances) from a column's full n-length distance buffer.
type columnSelector func(dist []float32, k int, withScores bool) ([]uint64, []float32)

func heapSelect(dist []float32, k int, withScores bool) ([]uint64, []float32) {
	h := topk.New(k)
	for i, d := range dist {
		h.Insert(d, uint64(i))
	}
	return drainPairs(h.DrainSorted(), withScores)
}

func nthElementSelect(dist []float32, k int, withScores bool) ([]uint64, []float32) {
	pairs := make([]topk.Pair, len(dist))
	for i, d := range dist {
		pairs[i] = topk.Pair{Score: d, ID: uint64(i)}
	}
	return drainPairs(topk.SelectNth(pairs, k), withScores)
}

func drainPairs(pairs []topk.Pair, withScores bool) ([]uint64, []float32) {
	ids := make([]uint64, len(pairs))
	var scores []float32
	if withScores {
		scores = make([]float32, len(pairs))
	}
	for i, p := range pairs {
		ids[i] = p.ID
		if withScores {
			scores[i] = p.Score
		}
	}
	return ids, scores
}

func gemm(ctx context.Context, db, q *tensor.ColMajorMatrix[float32], opts Options, selector columnSelector) (*Result, error) {
	if err := validate(opts, db.NumRows(), q.NumRows()); err != nil {
		return nil, err
	}

	n, qn, dim := db.NumCols(), q.NumCols(), db.NumRows()

	dbNorms := make([]float32, n)
	kernel.ColumnSumOfSquares(db.Data(), dim, n, dbNorms)
	qNorms := make([]float32, qn)
	kernel.ColumnSumOfSquares(q.Data(), dim, qn, qNorms)

	scores := make([]float64, n*qn) // row-major N x Q
	kernel.Gemm(db.Data(), dim, n, q.Data(), dim, qn, scores)

	res := &Result{IDs: make([][]uint64, qn)}
	if opts.WithScores {
		res.Scores = make([][]float32, qn)
	}

	// The gemm path takes the square root of each corrected element
	// before selection, unlike qv/vq-heap which rank on squared
	// distance; since sqrt is monotonic for d >= 0 the resulting top-k
	// id sets are identical, only the reported scores differ (true L2
	// here, squared L2 elsewhere).
	err := workerpool.Run(ctx, qn, opts.NumWorkers, func(_ context.Context, j, _ int) error {
		dist := make([]float32, n)
		for i := 0; i < n; i++ {
			d := float32(scores[i*qn+j]) + dbNorms[i] + qNorms[j]
			if d < 0 {
				d = 0 // numerical noise can push near-zero distances slightly negative
			}
			dist[i] = kernel.Sqrt(d)
		}
		ids, sc := selector(dist, opts.K, opts.WithScores)
		res.IDs[j] = ids
		if opts.WithScores {
			res.Scores[j] = sc
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
