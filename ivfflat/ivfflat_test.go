package ivfflat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vsearch/instrument"
	"github.com/hupe1980/vsearch/kmeans"
	"github.com/hupe1980/vsearch/tensor"
)

func mustMatrix(t *testing.T, data []float32, rows, cols int) *tensor.ColMajorMatrix[float32] {
	m, err := tensor.ColMajorMatrixFrom(data, rows, cols)
	require.NoError(t, err)
	return m
}

func gridDB(t *testing.T) (*tensor.ColMajorMatrix[float32], []uint64) {
	data := make([]float32, 0, 2*8)
	ids := make([]uint64, 0, 8)
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			data = append(data, float32(x), float32(y))
			ids = append(ids, uint64(100+len(ids)))
		}
	}
	return mustMatrix(t, data, 2, 8), ids
}

// TestTrivialPartition covers the degenerate K=1 case: everything lands
// in one partition, indices = [0, 8], and the query returns the true
// nearest neighbor.
func TestTrivialPartition(t *testing.T) {
	db, ids := gridDB(t)
	opts := BuildOptions{K: 1, MaxIters: 5, Init: kmeans.InitRandom, Seed: 3}

	g, err := Build(context.Background(), db, db, ids, opts)
	require.NoError(t, err)

	assert.Equal(t, []int32{0, 8}, g.Indices)
	assert.ElementsMatch(t, ids, g.Ids)

	q := mustMatrix(t, []float32{0.1, 0.1}, 2, 1)
	res, err := InfiniteRAM(context.Background(), g, q, QueryOptions{K: 1, Nprobe: 1})
	require.NoError(t, err)
	require.Len(t, res.IDs[0], 1)
	assert.Equal(t, ids[0], res.IDs[0][0])
}

func TestBuildRejectsIdLengthMismatch(t *testing.T) {
	db, ids := gridDB(t)
	_, err := Build(context.Background(), db, db, ids[:3], BuildOptions{K: 2, MaxIters: 3})
	require.Error(t, err)
}

func TestFiniteAndInfiniteRAMAgree(t *testing.T) {
	db, ids := gridDB(t)
	opts := BuildOptions{K: 2, MaxIters: 10, Init: kmeans.InitKMeansPP, Seed: 11}
	g, err := Build(context.Background(), db, db, ids, opts)
	require.NoError(t, err)

	q := mustMatrix(t, []float32{0.4, 0.4, 3.2, 1.1}, 2, 2)
	qopts := QueryOptions{K: 3, Nprobe: 2}

	infRes, err := InfiniteRAM(context.Background(), g, q, qopts)
	require.NoError(t, err)

	src := memColumnSource{g.Vectors}
	finOpts := qopts
	finOpts.BlockCols = 3
	finRes, err := FiniteRAM(context.Background(), g.Centroids, src, g.Ids, g.Indices, q, finOpts)
	require.NoError(t, err)

	for j := range infRes.IDs {
		assert.ElementsMatch(t, infRes.IDs[j], finRes.IDs[j])
	}
}

func TestNprobeClampsToK(t *testing.T) {
	db, ids := gridDB(t)
	g, err := Build(context.Background(), db, db, ids, BuildOptions{K: 2, MaxIters: 5, Seed: 1})
	require.NoError(t, err)

	q := mustMatrix(t, []float32{0, 0}, 2, 1)
	_, err = InfiniteRAM(context.Background(), g, q, QueryOptions{K: 1, Nprobe: 500})
	require.NoError(t, err)
}

func TestQueryRejectsDimensionMismatch(t *testing.T) {
	db, ids := gridDB(t)
	g, err := Build(context.Background(), db, db, ids, BuildOptions{K: 2, MaxIters: 5, Seed: 1})
	require.NoError(t, err)

	q := mustMatrix(t, []float32{0, 0, 0}, 3, 1)
	_, err = InfiniteRAM(context.Background(), g, q, QueryOptions{K: 1, Nprobe: 1})
	require.Error(t, err)
}

// memColumnSource adapts a resident matrix to tensor.ColumnSource for the
// finite-RAM streaming path under test.
type memColumnSource struct {
	m *tensor.ColMajorMatrix[float32]
}

func (s memColumnSource) Dimension() int { return s.m.NumRows() }
func (s memColumnSource) NumCols() int   { return s.m.NumCols() }
func (s memColumnSource) ReadColumns(_ context.Context, offset, count int, dst []float32) (int, error) {
	n := s.m.NumCols()
	if offset+count > n {
		count = n - offset
	}
	d := s.m.NumRows()
	for i := 0; i < count; i++ {
		copy(dst[i*d:(i+1)*d], s.m.Column(offset+i))
	}
	return count, nil
}

func TestNewBuildOptionsAppliesOverrides(t *testing.T) {
	opts := NewBuildOptions(4, WithMaxIters(5), WithInit(kmeans.InitRandom), WithSeed(3), WithBuildWorkers(2))
	assert.Equal(t, 4, opts.K)
	assert.Equal(t, 5, opts.MaxIters)
	assert.Equal(t, kmeans.InitRandom, opts.Init)
	assert.Equal(t, int64(3), opts.Seed)
	assert.Equal(t, 2, opts.NumWorkers)
}

func TestNewQueryOptionsAppliesOverrides(t *testing.T) {
	opts := NewQueryOptions(5, WithNProbe(2), WithQueryWorkers(4), WithScores(true), WithBlockSize(64))
	assert.Equal(t, 5, opts.K)
	assert.Equal(t, 2, opts.Nprobe)
	assert.Equal(t, 4, opts.NumWorkers)
	assert.True(t, opts.WithScores)
	assert.Equal(t, 64, opts.BlockCols)
}

func TestBuildAndQueryRecordTimings(t *testing.T) {
	db, ids := gridDB(t)
	rec := instrument.New()

	bopts := NewBuildOptions(2, WithMaxIters(5), WithInit(kmeans.InitRandom), WithSeed(3), WithBuildRecorder(rec))
	g, err := Build(context.Background(), db, db, ids, bopts)
	require.NoError(t, err)

	buildStat := rec.Summary()["ivfflat.build"]
	assert.Equal(t, int64(1), buildStat.Count)
	assert.Equal(t, int64(0), buildStat.Errors)

	q := mustMatrix(t, []float32{0.1, 0.1}, 2, 1)
	qopts := NewQueryOptions(1, WithNProbe(2), WithQueryRecorder(rec))
	_, err = InfiniteRAM(context.Background(), g, q, qopts)
	require.NoError(t, err)

	queryStat := rec.Summary()["ivfflat.query"]
	assert.Equal(t, int64(1), queryStat.Count)
}
