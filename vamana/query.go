package vamana

import (
	"context"
	"time"

	vsearch "github.com/hupe1980/vsearch"
	"github.com/hupe1980/vsearch/instrument"
	"github.com/hupe1980/vsearch/tensor"
	"github.com/hupe1980/vsearch/verrors"
	"github.com/hupe1980/vsearch/workerpool"
)

// QueryOptions configures Query.
type QueryOptions struct {
	K int
	// L is the query-time search list size; L >= K. Zero defaults to the
	// index's build-time LBuild, matching the reference.
	L          int
	NumWorkers int
	WithScores bool

	// Logger and Recorder, if set, receive a LogQuery/Record call when
	// Query returns. Both are nil-safe.
	Logger   *vsearch.Logger
	Recorder *instrument.Recorder
}

// QueryOption mutates a QueryOptions.
type QueryOption func(*QueryOptions)

// DefaultQueryOptions returns the reference query defaults for k nearest
// neighbors, with L defaulting to the index's build-time LBuild.
func DefaultQueryOptions(k int) QueryOptions {
	return QueryOptions{K: k}
}

// NewQueryOptions applies opts over DefaultQueryOptions(k).
func NewQueryOptions(k int, opts ...QueryOption) QueryOptions {
	o := DefaultQueryOptions(k)
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// WithL sets the query-time search list size.
func WithL(l int) QueryOption {
	return func(o *QueryOptions) { o.L = l }
}

// WithQueryWorkers overrides GOMAXPROCS as the per-query worker count.
func WithQueryWorkers(n int) QueryOption {
	return func(o *QueryOptions) { o.NumWorkers = n }
}

// WithQueryScores requests that matching scores be returned alongside ids.
func WithQueryScores(v bool) QueryOption {
	return func(o *QueryOptions) { o.WithScores = v }
}

// WithQueryLogger attaches a logger to Query's entry/exit reporting.
func WithQueryLogger(l *vsearch.Logger) QueryOption {
	return func(o *QueryOptions) { o.Logger = l }
}

// WithQueryRecorder attaches a timing recorder to Query.
func WithQueryRecorder(r *instrument.Recorder) QueryOption {
	return func(o *QueryOptions) { o.Recorder = r }
}

// Result holds per-query nearest ids (and optional scores).
type Result struct {
	IDs    [][]uint64
	Scores [][]float32
}

// Query runs GreedySearch from the index's medoid for every column of
// queries, parallelized over the query axis.
func Query(ctx context.Context, idx *Index, queries *tensor.ColMajorMatrix[float32], opts QueryOptions) (*Result, error) {
	start := time.Now()
	res, err := query(ctx, idx, queries, opts)
	elapsed := time.Since(start)
	opts.Logger.LogQuery(ctx, "vamana", queries.NumCols(), opts.K, elapsed.Seconds(), err)
	opts.Recorder.Record("vamana.query", elapsed, err)
	return res, err
}

func query(ctx context.Context, idx *Index, queries *tensor.ColMajorMatrix[float32], opts QueryOptions) (*Result, error) {
	if idx.Vectors.NumRows() != queries.NumRows() {
		return nil, verrors.DimensionMismatch(idx.Vectors.NumRows(), queries.NumRows())
	}
	if opts.K <= 0 {
		return nil, verrors.InvalidConfig("vamana: K must be positive")
	}
	l := opts.L
	if l == 0 {
		l = idx.LBuild
	}
	if l < opts.K {
		return nil, verrors.Precondition("vamana: L must be >= K")
	}

	qn := queries.NumCols()
	res := &Result{IDs: make([][]uint64, qn)}
	if opts.WithScores {
		res.Scores = make([][]float32, qn)
	}

	if idx.Graph.NumNodes() == 0 {
		return res, nil
	}

	err := workerpool.Run(ctx, qn, opts.NumWorkers, func(_ context.Context, j, _ int) error {
		sr, err := GreedySearch(idx.Graph, idx.Vectors, idx.Medoid, queries.Column(j), opts.K, l)
		if err != nil {
			return err
		}
		ids := make([]uint64, len(sr.TopK))
		var scores []float32
		if opts.WithScores {
			scores = make([]float32, len(sr.TopK))
		}
		for i, p := range sr.TopK {
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
