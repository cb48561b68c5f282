// Package bruteforce implements the exact top-k query kernels used as
// leaves by IVF-Flat and as a correctness oracle for Vamana: the qv,
// vq-heap, and gemm variants. All three compute, for every query column j
// and every database column i, the L2 distance (squared for qv and
// vq-heap; gemm reports its square root), and return the k nearest
// database indices per query. They are logically equivalent;
// recall differences arise only from tie-breaking on equal distances.
package bruteforce

import (
	"context"
	"runtime"

	"github.com/hupe1980/vsearch/kernel"
	"github.com/hupe1980/vsearch/tensor"
	"github.com/hupe1980/vsearch/topk"
	"github.com/hupe1980/vsearch/verrors"
	"github.com/hupe1980/vsearch/workerpool"
)

// Result holds the k×Q matrix of winning database indices (row-major:
// Result.IDs[q] has length K) plus, optionally, their scores.
type Result struct {
	IDs    [][]uint64
	Scores [][]float32
}

// BlockMode selects which axis of a vq-heap scan streams in bounded
// blocks. The two axes cannot both stream simultaneously.
type BlockMode int

const (
	// BlockNone holds both the full database and full query set resident.
	BlockNone BlockMode = iota
	// BlockDB streams the database in blocks while queries stay resident.
	BlockDB
	// BlockQueries streams queries in blocks while the database stays resident.
	BlockQueries
)

// Options configures a brute-force kernel invocation.
type Options struct {
	// K is the number of nearest neighbors to return per query.
	K int
	// NumWorkers is the outer-axis worker pool size. 0 = GOMAXPROCS.
	NumWorkers int
	// WithScores, when true, populates Result.Scores alongside Result.IDs.
	WithScores bool
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{K: 10, NumWorkers: runtime.GOMAXPROCS(0)}
}

// Option mutates an Options.
type Option func(*Options)

// NewOptions applies opts over DefaultOptions().
func NewOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// WithK sets the number of nearest neighbors returned per query.
func WithK(k int) Option {
	return func(o *Options) { o.K = k }
}

// WithWorkers overrides GOMAXPROCS as the outer-axis worker count.
func WithWorkers(n int) Option {
	return func(o *Options) { o.NumWorkers = n }
}

// WithScores requests that matching scores be returned alongside ids.
func WithScores(v bool) Option {
	return func(o *Options) { o.WithScores = v }
}

func validate(opts Options, dbRows, qRows int) error {
	if opts.K <= 0 {
		return verrors.InvalidConfig("K must be positive")
	}
	if dbRows != qRows {
		return verrors.DimensionMismatch(dbRows, qRows)
	}
	return nil
}

// QV computes exact top-k for every query against the full database,
// parallelized over the query axis (outer loop over queries, inner over
// db). Each worker owns a private heap.
func QV(ctx context.Context, db *tensor.ColMajorMatrix[float32], q *tensor.ColMajorMatrix[float32], opts Options) (*Result, error) {
	if err := validate(opts, db.NumRows(), q.NumRows()); err != nil {
		return nil, err
	}

	n, qn := db.NumCols(), q.NumCols()
	res := &Result{IDs: make([][]uint64, qn)}
	if opts.WithScores {
		res.Scores = make([][]float32, qn)
	}

	err := workerpool.Run(ctx, qn, opts.NumWorkers, func(_ context.Context, j, _ int) error {
		query := q.Column(j)
		h := topk.New(opts.K)
		for i := 0; i < n; i++ {
			d := kernel.L2(db.Column(i), query)
			h.Insert(d, uint64(i))
		}
		pairs := h.DrainSorted()
		ids := make([]uint64, len(pairs))
		var scores []float32
		if opts.WithScores {
			scores = make([]float32, len(pairs))
		}
		for i, p := range pairs {
			ids[i] = p.ID
			if opts.WithScores {
				scores[i] = p.Score
			}
		}
		res.IDs[j] = ids
		if opts.WithScores {
			res.Scores[j] = scores
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
