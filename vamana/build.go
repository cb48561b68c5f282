package vamana

import (
	"context"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	vsearch "github.com/hupe1980/vsearch"
	"github.com/hupe1980/vsearch/instrument"
	"github.com/hupe1980/vsearch/kernel"
	"github.com/hupe1980/vsearch/tensor"
	"github.com/hupe1980/vsearch/verrors"
)

// Index is a built Vamana graph: an owned copy of the training vectors,
// the adjacency list, and the precomputed medoid entry point.
type Index struct {
	Vectors *tensor.ColMajorMatrix[float32]
	Graph   *AdjacencyList
	Medoid  uint32

	LBuild int
	RMax   int
}

// BuildOptions configures Build.
type BuildOptions struct {
	// LBuild is the search list size used during the build-time greedy
	// search (DiskANN paper default: 100).
	LBuild int
	// RMax is the out-degree bound (DiskANN paper default: 64).
	RMax int
	// Alpha is the single-pass diversification threshold. The reference
	// disables the two-pass alpha_min/alpha_max schedule and runs one
	// pass at alpha_max = 1.2; this knob is kept for experimentation but
	// defaults to that single value.
	Alpha float32

	// Logger and Recorder, if set, receive a LogGraphBuild call per node
	// and a LogBuild/Record call when Build returns. Both are nil-safe.
	Logger   *vsearch.Logger
	Recorder *instrument.Recorder
}

// DefaultBuildOptions mirrors the DiskANN paper defaults used by the
// reference single-pass build.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{LBuild: 100, RMax: 64, Alpha: 1.2}
}

// BuildOption mutates a BuildOptions.
type BuildOption func(*BuildOptions)

// NewBuildOptions applies opts over DefaultBuildOptions().
func NewBuildOptions(opts ...BuildOption) BuildOptions {
	o := DefaultBuildOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// WithLBuild sets the build-time greedy-search list size.
func WithLBuild(l int) BuildOption {
	return func(o *BuildOptions) { o.LBuild = l }
}

// WithRMax sets the out-degree bound enforced by robust_prune.
func WithRMax(r int) BuildOption {
	return func(o *BuildOptions) { o.RMax = r }
}

// WithAlpha sets the single-pass diversification threshold.
func WithAlpha(alpha float32) BuildOption {
	return func(o *BuildOptions) { o.Alpha = alpha }
}

// WithBuildLogger attaches a logger to Build's per-node and entry/exit
// reporting.
func WithBuildLogger(l *vsearch.Logger) BuildOption {
	return func(o *BuildOptions) { o.Logger = l }
}

// WithBuildRecorder attaches a timing recorder to Build.
func WithBuildRecorder(r *instrument.Recorder) BuildOption {
	return func(o *BuildOptions) { o.Recorder = r }
}

// Build trains a Vamana graph over training: compute the medoid, then
// for each node p in natural order, run greedy_search from the medoid to
// p to gather a candidate pool, robust_prune p's out-edges from that
// pool, and propagate reverse edges to every new neighbor — re-pruning
// the neighbor if the reverse edge would exceed RMax.
func Build(ctx context.Context, training *tensor.ColMajorMatrix[float32], opts BuildOptions) (*Index, error) {
	start := time.Now()
	idx, err := build(ctx, training, opts)
	elapsed := time.Since(start)
	opts.Logger.LogBuild(ctx, "vamana", training.NumCols(), elapsed.Seconds(), err)
	opts.Recorder.Record("vamana.build", elapsed, err)
	return idx, err
}

func build(ctx context.Context, training *tensor.ColMajorMatrix[float32], opts BuildOptions) (*Index, error) {
	if opts.LBuild <= 0 || opts.RMax <= 0 {
		return nil, verrors.InvalidConfig("vamana: LBuild and RMax must be positive")
	}
	if opts.Alpha == 0 {
		opts.Alpha = 1.2
	}

	n := training.NumCols()
	if n > 1<<32-1 {
		return nil, verrors.Precondition("vamana: node count overflows uint32 id type")
	}

	graph := NewAdjacencyList(n)
	medoid := Medoid(training)

	for p := 0; p < n; p++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sr, err := GreedySearch(graph, training, medoid, training.Column(p), 1, opts.LBuild)
		if err != nil {
			return nil, err
		}

		vcand := bitmapToSlice(sr.Visited)
		RobustPrune(graph, training, uint32(p), vcand, opts.Alpha, opts.RMax)
		opts.Logger.LogGraphBuild(ctx, uint32(p), len(vcand), graph.OutDegree(uint32(p)))

		for _, e := range graph.OutEdges(uint32(p)) {
			j := e.Target
			tmp := make([]uint32, 0, graph.OutDegree(j)+1)
			tmp = append(tmp, uint32(p))
			for _, je := range graph.OutEdges(j) {
				tmp = append(tmp, je.Target)
			}

			if len(tmp) > opts.RMax {
				RobustPrune(graph, training, j, tmp, opts.Alpha, opts.RMax)
			} else {
				graph.AddEdge(j, uint32(p), kernel.L2(training.Column(p), training.Column(int(j))))
			}
		}
	}

	owned := tensor.NewColMajorMatrix[float32](training.NumRows(), n)
	copy(owned.Data(), training.Data())

	return &Index{Vectors: owned, Graph: graph, Medoid: medoid, LBuild: opts.LBuild, RMax: opts.RMax}, nil
}

func bitmapToSlice(b *roaring.Bitmap) []uint32 {
	out := make([]uint32, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		out = append(out, it.Next())
	}
	return out
}
