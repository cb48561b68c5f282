// Package kmeans implements Lloyd's algorithm with two seeding
// strategies (uniform-random and k-means++) plus a "none" strategy for
// externally pre-set centroids, and the qv partition-assignment
// primitive shared with IVF-Flat build. An empty centroid is left
// unchanged for that iteration rather than reseeded from a random
// point.
package kmeans

import (
	"context"
	"math"
	"math/rand"

	"github.com/hupe1980/vsearch/kernel"
	"github.com/hupe1980/vsearch/tensor"
	"github.com/hupe1980/vsearch/verrors"
	"github.com/hupe1980/vsearch/workerpool"
)

// Init selects the centroid seeding strategy.
type Init int

const (
	// InitRandom samples K column indices uniformly (with replacement).
	InitRandom Init = iota
	// InitKMeansPP uses the k-means++ weighted sampling scheme.
	InitKMeansPP
	// InitNone requires centroids to be pre-set externally (via
	// Options.Centroids) before Train is called.
	InitNone
)

// Options configures a Train call.
type Options struct {
	K         int
	MaxIters  int
	Init      Init
	Seed      int64
	NumWorkers int
	// Centroids pre-seeds the trainer when Init == InitNone. Must be a
	// D x K column-major matrix.
	Centroids *tensor.ColMajorMatrix[float32]
}

// DefaultOptions returns the reference defaults.
func DefaultOptions(k int) Options {
	return Options{K: k, MaxIters: 25, Init: InitKMeansPP}
}

// Option mutates an Options.
type Option func(*Options)

// NewOptions applies opts over DefaultOptions(k).
func NewOptions(k int, opts ...Option) Options {
	o := DefaultOptions(k)
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// WithMaxIters caps the number of Lloyd iterations run by Train.
func WithMaxIters(n int) Option {
	return func(o *Options) { o.MaxIters = n }
}

// WithInit selects the centroid seeding strategy.
func WithInit(init Init) Option {
	return func(o *Options) { o.Init = init }
}

// WithSeed fixes the RNG seed used for centroid seeding.
func WithSeed(seed int64) Option {
	return func(o *Options) { o.Seed = seed }
}

// WithNumWorkers overrides GOMAXPROCS as the assignment worker count.
func WithNumWorkers(n int) Option {
	return func(o *Options) { o.NumWorkers = n }
}

// WithCentroids pre-seeds the trainer; required when Init == InitNone.
func WithCentroids(c *tensor.ColMajorMatrix[float32]) Option {
	return func(o *Options) { o.Centroids = c }
}

// Result is the outcome of a Train call.
type Result struct {
	Centroids *tensor.ColMajorMatrix[float32]
	// Assignments[i] is the partition index of training column i.
	Assignments []int32
}

// Train runs seeding followed by Lloyd iteration (train_no_init) on the
// D x N training matrix.
func Train(ctx context.Context, training *tensor.ColMajorMatrix[float32], opts Options) (*Result, error) {
	if opts.K <= 0 {
		return nil, verrors.InvalidConfig("kmeans: K must be positive")
	}
	dim, n := training.NumRows(), training.NumCols()
	if n < opts.K && opts.Init != InitNone {
		return nil, verrors.InvalidConfigf("kmeans: N=%d is smaller than K=%d", n, opts.K)
	}
	if opts.Init == InitNone && opts.Centroids != nil && opts.Centroids.NumRows() != dim {
		return nil, verrors.DimensionMismatch(dim, opts.Centroids.NumRows())
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	var centroids *tensor.ColMajorMatrix[float32]
	switch opts.Init {
	case InitRandom:
		centroids = seedRandom(training, opts.K, rng)
	case InitKMeansPP:
		centroids = seedKMeansPP(training, opts.K, rng)
	case InitNone:
		if opts.Centroids == nil {
			return nil, verrors.InvalidConfig("kmeans: InitNone requires Options.Centroids")
		}
		centroids = opts.Centroids
	default:
		return nil, verrors.InvalidConfigf("kmeans: unknown init strategy %d", opts.Init)
	}

	assignments, err := TrainNoInit(ctx, training, centroids, opts.MaxIters, opts.NumWorkers)
	if err != nil {
		return nil, err
	}

	return &Result{Centroids: centroids, Assignments: assignments}, nil
}

// seedRandom samples K column indices uniformly, with replacement, from
// [0, N) and copies those columns as the initial centroids.
func seedRandom(training *tensor.ColMajorMatrix[float32], k int, rng *rand.Rand) *tensor.ColMajorMatrix[float32] {
	dim, n := training.NumRows(), training.NumCols()
	centroids := tensor.NewColMajorMatrix[float32](dim, k)
	for j := 0; j < k; j++ {
		src := rng.Intn(n)
		centroids.SetColumn(j, training.Column(src))
	}
	return centroids
}

// seedKMeansPP implements k-means++: pick one uniform random vector as
// centroid 0, then for i = 1..K-1 sample the next centroid from the
// discrete distribution proportional to each point's squared distance to
// its nearest already-picked centroid. Once picked, a point's distance
// is fixed to 0 so it cannot be chosen again.
func seedKMeansPP(training *tensor.ColMajorMatrix[float32], k int, rng *rand.Rand) *tensor.ColMajorMatrix[float32] {
	dim, n := training.NumRows(), training.NumCols()
	centroids := tensor.NewColMajorMatrix[float32](dim, k)

	first := rng.Intn(n)
	centroids.SetColumn(0, training.Column(first))

	dist := make([]float64, n)
	for i := range dist {
		dist[i] = math.MaxFloat64
	}
	dist[first] = 0

	for c := 1; c < k; c++ {
		prev := centroids.Column(c - 1)
		var total float64
		for i := 0; i < n; i++ {
			if dist[i] == 0 {
				continue
			}
			d := float64(kernel.L2(training.Column(i), prev))
			if d < dist[i] {
				dist[i] = d
			}
			total += dist[i]
		}

		var next int
		if total <= 0 {
			// All remaining points coincide with a picked centroid;
			// fall back to uniform choice to keep progressing.
			next = rng.Intn(n)
		} else {
			target := rng.Float64() * total
			var cum float64
			next = n - 1
			for i := 0; i < n; i++ {
				cum += dist[i]
				if cum >= target {
					next = i
					break
				}
			}
		}

		centroids.SetColumn(c, training.Column(next))
		dist[next] = 0
	}
	return centroids
}

// AssignPartition finds the closest centroid for a single vector.
func AssignPartition(vec []float32, centroids *tensor.ColMajorMatrix[float32]) int32 {
	best := int32(-1)
	minDist := float32(math.MaxFloat32)
	for j := 0; j < centroids.NumCols(); j++ {
		d := kernel.L2(vec, centroids.Column(j))
		if d < minDist {
			minDist = d
			best = int32(j)
		}
	}
	return best
}

// AssignAll runs the qv partition-assignment primitive in parallel over
// the N training vectors.
func AssignAll(ctx context.Context, data *tensor.ColMajorMatrix[float32], centroids *tensor.ColMajorMatrix[float32], numWorkers int) ([]int32, error) {
	n := data.NumCols()
	assignments := make([]int32, n)
	err := workerpool.Run(ctx, n, numWorkers, func(_ context.Context, i, _ int) error {
		assignments[i] = AssignPartition(data.Column(i), centroids)
		return nil
	})
	return assignments, err
}

// TrainNoInit runs Lloyd iteration starting from pre-seeded centroids,
// mutating centroids in place and returning the final assignments.
//
// Empty-cluster policy: if a centroid receives no assigned vectors in an
// iteration, it is left unchanged rather than reseeded.
func TrainNoInit(ctx context.Context, data *tensor.ColMajorMatrix[float32], centroids *tensor.ColMajorMatrix[float32], maxIters, numWorkers int) ([]int32, error) {
	dim, n := data.NumRows(), data.NumCols()
	k := centroids.NumCols()

	sums := make([]float32, dim*k)
	counts := make([]int32, k)

	var assignments []int32
	var err error

	for iter := 0; iter < maxIters; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		assignments, err = AssignAll(ctx, data, centroids, numWorkers)
		if err != nil {
			return nil, err
		}

		for i := range sums {
			sums[i] = 0
		}
		for i := range counts {
			counts[i] = 0
		}

		for i := 0; i < n; i++ {
			c := assignments[i]
			vec := data.Column(i)
			base := int(c) * dim
			for d := 0; d < dim; d++ {
				sums[base+d] += vec[d]
			}
			counts[c]++
		}

		for j := 0; j < k; j++ {
			if counts[j] == 0 {
				continue // leave this centroid unchanged this iteration
			}
			scale := 1.0 / float32(counts[j])
			base := j * dim
			col := centroids.Column(j)
			for d := 0; d < dim; d++ {
				col[d] = sums[base+d] * scale
			}
		}
	}

	return assignments, nil
}

// FindClosestCentroids returns the indices of the nprobe closest
// centroids to query, nearest first.
func FindClosestCentroids(query []float32, centroids *tensor.ColMajorMatrix[float32], nprobe int) []int32 {
	k := centroids.NumCols()
	if nprobe > k {
		nprobe = k
	}

	type cd struct {
		id   int32
		dist float32
	}
	dists := make([]cd, k)
	for i := 0; i < k; i++ {
		dists[i] = cd{id: int32(i), dist: kernel.L2(query, centroids.Column(i))}
	}

	for i := 1; i < len(dists); i++ {
		for j := i; j > 0 && dists[j].dist < dists[j-1].dist; j-- {
			dists[j], dists[j-1] = dists[j-1], dists[j]
		}
	}

	out := make([]int32, nprobe)
	for i := 0; i < nprobe; i++ {
		out[i] = dists[i].id
	}
	return out
}
