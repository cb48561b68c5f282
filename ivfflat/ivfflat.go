// Package ivfflat builds and queries the inverted-file index: database
// vectors are partitioned by nearest centroid, and queries probe only the
// nprobe closest partitions before running an exact brute-force scan
// inside them.
//
// Build produces a shuffled, partition-contiguous copy of the training
// data alongside the centroids and partition offsets, so that both the
// infinite-RAM and finite-RAM query paths can address a partition's
// vectors as one contiguous column range.
package ivfflat

import (
	"context"
	"runtime"
	"time"

	vsearch "github.com/hupe1980/vsearch"
	"github.com/hupe1980/vsearch/bruteforce"
	"github.com/hupe1980/vsearch/instrument"
	"github.com/hupe1980/vsearch/kmeans"
	"github.com/hupe1980/vsearch/tensor"
	"github.com/hupe1980/vsearch/verrors"
)

// Group holds the four persisted IVF artifacts in memory: centroids, the
// shuffled D×N vector matrix, the length-N external id vector permuted
// to match the shuffle, and the length-(K+1) partition offset vector.
//
// Invariants: Indices[0] == 0, Indices[K] == N, Indices is monotonically
// non-decreasing; columns [Indices[j], Indices[j+1]) of Vectors belong
// to partition j.
type Group struct {
	Centroids *tensor.ColMajorMatrix[float32]
	Vectors   *tensor.ColMajorMatrix[float32]
	Ids       []uint64
	Indices   []int32
}

// BuildOptions configures Build.
type BuildOptions struct {
	K          int
	MaxIters   int
	Init       kmeans.Init
	Seed       int64
	NumWorkers int

	// Logger and Recorder, if set, receive a LogBuild/Record call when
	// Build returns. Both are nil-safe; leaving them unset is equivalent
	// to vsearch.NoopLogger() and instrument.Noop.
	Logger   *vsearch.Logger
	Recorder *instrument.Recorder
}

// BuildOption mutates a BuildOptions.
type BuildOption func(*BuildOptions)

// DefaultBuildOptions returns the reference Lloyd-iteration defaults for
// K clusters.
func DefaultBuildOptions(k int) BuildOptions {
	return BuildOptions{K: k, MaxIters: 25, Init: kmeans.InitKMeansPP}
}

// NewBuildOptions applies opts over DefaultBuildOptions(k).
func NewBuildOptions(k int, opts ...BuildOption) BuildOptions {
	o := DefaultBuildOptions(k)
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// WithMaxIters caps the number of Lloyd iterations run during Build.
func WithMaxIters(n int) BuildOption {
	return func(o *BuildOptions) { o.MaxIters = n }
}

// WithInit selects the centroid seeding strategy used by Build.
func WithInit(init kmeans.Init) BuildOption {
	return func(o *BuildOptions) { o.Init = init }
}

// WithSeed fixes the RNG seed used for centroid seeding.
func WithSeed(seed int64) BuildOption {
	return func(o *BuildOptions) { o.Seed = seed }
}

// WithBuildWorkers overrides GOMAXPROCS as the partition-assignment
// worker count during Build.
func WithBuildWorkers(n int) BuildOption {
	return func(o *BuildOptions) { o.NumWorkers = n }
}

// WithBuildLogger attaches a logger to Build's entry/exit reporting.
func WithBuildLogger(l *vsearch.Logger) BuildOption {
	return func(o *BuildOptions) { o.Logger = l }
}

// WithBuildRecorder attaches a timing recorder to Build.
func WithBuildRecorder(r *instrument.Recorder) BuildOption {
	return func(o *BuildOptions) { o.Recorder = r }
}

// Build trains centroids on training, partition-assigns every column of
// db, and shuffles db into partition-contiguous order.
func Build(ctx context.Context, db *tensor.ColMajorMatrix[float32], training *tensor.ColMajorMatrix[float32], ids []uint64, opts BuildOptions) (*Group, error) {
	start := time.Now()
	g, err := build(ctx, db, training, ids, opts)
	elapsed := time.Since(start)
	opts.Logger.LogBuild(ctx, "ivfflat", db.NumCols(), elapsed.Seconds(), err)
	opts.Recorder.Record("ivfflat.build", elapsed, err)
	return g, err
}

func build(ctx context.Context, db *tensor.ColMajorMatrix[float32], training *tensor.ColMajorMatrix[float32], ids []uint64, opts BuildOptions) (*Group, error) {
	if len(ids) != db.NumCols() {
		return nil, verrors.InvalidConfigf("ivfflat: len(ids)=%d does not match db columns=%d", len(ids), db.NumCols())
	}

	kopts := kmeans.Options{K: opts.K, MaxIters: opts.MaxIters, Init: opts.Init, Seed: opts.Seed, NumWorkers: opts.NumWorkers}
	if kopts.MaxIters == 0 {
		kopts.MaxIters = 25
	}
	kres, err := kmeans.Train(ctx, training, kopts)
	if err != nil {
		return nil, err
	}

	n, k := db.NumCols(), opts.K
	assignments, err := kmeans.AssignAll(ctx, db, kres.Centroids, opts.NumWorkers)
	if err != nil {
		return nil, err
	}

	// per-partition sizes, then prefix-sum into the K+1 offset vector.
	sizes := make([]int32, k)
	for _, p := range assignments {
		sizes[p]++
	}
	indices := make([]int32, k+1)
	for j := 0; j < k; j++ {
		indices[j+1] = indices[j] + sizes[j]
	}

	dim := db.NumRows()
	shuffled := tensor.NewColMajorMatrix[float32](dim, n)
	shuffledIds := make([]uint64, n)

	cursor := make([]int32, k)
	copy(cursor, indices[:k])
	for i := 0; i < n; i++ {
		p := assignments[i]
		slot := cursor[p]
		cursor[p]++
		shuffled.SetColumn(int(slot), db.Column(i))
		shuffledIds[slot] = ids[i]
	}

	return &Group{
		Centroids: kres.Centroids,
		Vectors:   shuffled,
		Ids:       shuffledIds,
		Indices:   indices,
	}, nil
}

// QueryOptions configures InfiniteRAM and FiniteRAM.
type QueryOptions struct {
	K          int
	Nprobe     int
	NumWorkers int
	WithScores bool
	// BlockCols is the column-block width FiniteRAM streams from its
	// ColumnSource. Ignored by InfiniteRAM. Zero means "whole matrix in
	// one block," matching tensor.NewStreamingMatrix's own default.
	BlockCols int

	// Logger and Recorder, if set, receive a LogQuery/Record call when
	// InfiniteRAM or FiniteRAM returns. Both are nil-safe.
	Logger   *vsearch.Logger
	Recorder *instrument.Recorder
}

// QueryOption mutates a QueryOptions.
type QueryOption func(*QueryOptions)

// DefaultQueryOptions returns the reference query defaults for k nearest
// neighbors, probing every partition.
func DefaultQueryOptions(k int) QueryOptions {
	return QueryOptions{K: k, Nprobe: 0}
}

// NewQueryOptions applies opts over DefaultQueryOptions(k).
func NewQueryOptions(k int, opts ...QueryOption) QueryOptions {
	o := DefaultQueryOptions(k)
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// WithNProbe sets the number of nearest partitions probed per query.
func WithNProbe(nprobe int) QueryOption {
	return func(o *QueryOptions) { o.Nprobe = nprobe }
}

// WithQueryWorkers sets QueryOptions.NumWorkers (GOMAXPROCS when <= 0).
// InfiniteRAM and FiniteRAM score queries on the calling goroutine and do
// not read it.
func WithQueryWorkers(n int) QueryOption {
	return func(o *QueryOptions) { o.NumWorkers = n }
}

// WithScores requests that matching scores be returned alongside ids.
func WithScores(v bool) QueryOption {
	return func(o *QueryOptions) { o.WithScores = v }
}

// WithBlockSize sets the FiniteRAM streaming block width, in columns.
func WithBlockSize(blockCols int) QueryOption {
	return func(o *QueryOptions) { o.BlockCols = blockCols }
}

// WithQueryLogger attaches a logger to InfiniteRAM/FiniteRAM's
// entry/exit reporting.
func WithQueryLogger(l *vsearch.Logger) QueryOption {
	return func(o *QueryOptions) { o.Logger = l }
}

// WithQueryRecorder attaches a timing recorder to InfiniteRAM/FiniteRAM.
func WithQueryRecorder(r *instrument.Recorder) QueryOption {
	return func(o *QueryOptions) { o.Recorder = r }
}

// Result holds per-query nearest external ids (and optional scores).
type Result struct {
	IDs    [][]uint64
	Scores [][]float32
}

func validateQuery(g *Group, queries *tensor.ColMajorMatrix[float32], opts *QueryOptions) error {
	if g.Centroids.NumRows() != queries.NumRows() {
		return verrors.DimensionMismatch(g.Centroids.NumRows(), queries.NumRows())
	}
	if opts.K <= 0 {
		return verrors.InvalidConfig("ivfflat: K must be positive")
	}
	k := g.Centroids.NumCols()
	if opts.Nprobe <= 0 || opts.Nprobe > k {
		opts.Nprobe = k
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = runtime.GOMAXPROCS(0)
	}
	return nil
}

// InfiniteRAM serves queries by materializing the union of each query's
// probed partitions into a contiguous scratch matrix and running exact
// qv brute-force against it.
func InfiniteRAM(ctx context.Context, g *Group, queries *tensor.ColMajorMatrix[float32], opts QueryOptions) (*Result, error) {
	start := time.Now()
	res, err := infiniteRAM(ctx, g, queries, opts)
	elapsed := time.Since(start)
	opts.Logger.LogQuery(ctx, "ivfflat", queries.NumCols(), opts.K, elapsed.Seconds(), err)
	opts.Recorder.Record("ivfflat.query", elapsed, err)
	return res, err
}

func infiniteRAM(ctx context.Context, g *Group, queries *tensor.ColMajorMatrix[float32], opts QueryOptions) (*Result, error) {
	if err := validateQuery(g, queries, &opts); err != nil {
		return nil, err
	}

	qn := queries.NumCols()
	res := &Result{IDs: make([][]uint64, qn)}
	if opts.WithScores {
		res.Scores = make([][]float32, qn)
	}

	for j := 0; j < qn; j++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		query := queries.Column(j)
		probed := kmeans.FindClosestCentroids(query, g.Centroids, opts.Nprobe)

		var allCols []float32
		var allIds []uint64
		dim := g.Vectors.NumRows()
		for _, p := range probed {
			lo, hi := g.Indices[p], g.Indices[p+1]
			for c := lo; c < hi; c++ {
				allCols = append(allCols, g.Vectors.Column(int(c))...)
				allIds = append(allIds, g.Ids[c])
			}
		}
		if len(allIds) == 0 {
			res.IDs[j] = nil
			continue
		}

		scratch, err := tensor.ColMajorMatrixFrom(allCols, dim, len(allIds))
		if err != nil {
			return nil, err
		}
		qcol, err := tensor.ColMajorMatrixFrom(append([]float32{}, query...), dim, 1)
		if err != nil {
			return nil, err
		}

		bfRes, err := bruteforce.QV(ctx, scratch, qcol, bruteforce.Options{K: opts.K, WithScores: opts.WithScores})
		if err != nil {
			return nil, err
		}

		localIDs := bfRes.IDs[0]
		ids := make([]uint64, len(localIDs))
		for i, local := range localIDs {
			ids[i] = allIds[local]
		}
		res.IDs[j] = ids
		if opts.WithScores {
			res.Scores[j] = bfRes.Scores[0]
		}
	}

	return res, nil
}
