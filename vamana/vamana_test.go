package vamana

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vsearch/instrument"
	"github.com/hupe1980/vsearch/tensor"
)

func mustMatrix(t *testing.T, data []float32, rows, cols int) *tensor.ColMajorMatrix[float32] {
	m, err := tensor.ColMajorMatrixFrom(data, rows, cols)
	require.NoError(t, err)
	return m
}

// grid5x7 lays out a 5-wide, 7-tall 2D grid of unit-spaced points and
// wires uni-directional edges from each node to its right and down
// neighbors, giving a deterministic graph with a known shortest path
// between any two nodes. Nodes are numbered column by column:
// id = x*7 + y.
func grid5x7(t *testing.T) (*tensor.ColMajorMatrix[float32], *AdjacencyList) {
	const w, h = 5, 7
	data := make([]float32, 0, 2*w*h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			data = append(data, float32(x), float32(y))
		}
	}
	db := mustMatrix(t, data, 2, w*h)

	idx := func(x, y int) uint32 { return uint32(x*h + y) }
	g := NewAdjacencyList(w * h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := idx(x, y)
			if x+1 < w {
				q := idx(x+1, y)
				g.AddEdge(p, q, 1)
			}
			if y+1 < h {
				q := idx(x, y+1)
				g.AddEdge(p, q, 1)
			}
		}
	}
	return db, g
}

func TestGreedySearchGridPath(t *testing.T) {
	db, g := grid5x7(t)
	// node (2,3) = x*7+y = 2*7+3 = 17
	query := db.Column(17)

	sr, err := GreedySearch(g, db, 0, query, 1, 10)
	require.NoError(t, err)

	visited := make(map[uint32]bool)
	it := sr.Visited.Iterator()
	for it.HasNext() {
		visited[it.Next()] = true
	}

	for _, id := range []uint32{10, 16, 17, 18, 24} {
		assert.True(t, visited[id], "expected node %d to be visited", id)
	}
	assert.GreaterOrEqual(t, len(visited), 5)
}

func TestGreedySearchReturnsSourceFirstAtZeroDistance(t *testing.T) {
	db, g := grid5x7(t)
	sr, err := GreedySearch(g, db, 12, db.Column(12), 1, 5)
	require.NoError(t, err)
	require.Len(t, sr.TopK, 1)
	assert.Equal(t, uint64(12), sr.TopK[0].ID)
	assert.Equal(t, float32(0), sr.TopK[0].Score)
}

func TestGreedySearchRejectsLLessThanK(t *testing.T) {
	db, g := grid5x7(t)
	_, err := GreedySearch(g, db, 0, db.Column(0), 5, 2)
	require.Error(t, err)
}

func TestAddEdgeIgnoresSelfLoopsAndDuplicates(t *testing.T) {
	g := NewAdjacencyList(3)
	g.AddEdge(0, 0, 0) // self-loop
	g.AddEdge(0, 1, 1)
	g.AddEdge(0, 1, 2) // duplicate target, different score
	assert.Empty(t, filterSelf(g.OutEdges(0)))
	assert.Len(t, g.OutEdges(0), 1)
	assert.Equal(t, float32(1), g.OutEdges(0)[0].Score)
}

func filterSelf(edges []Edge) []Edge {
	out := make([]Edge, 0)
	for _, e := range edges {
		if e.Target == 0 {
			out = append(out, e)
		}
	}
	return out
}

func TestRobustPruneRespectsOutDegreeBound(t *testing.T) {
	db, _ := grid5x7(t)
	g := NewAdjacencyList(db.NumCols())

	all := make([]uint32, db.NumCols())
	for i := range all {
		all[i] = uint32(i)
	}

	RobustPrune(g, db, 17, all, 1.2, 4)
	assert.LessOrEqual(t, g.OutDegree(17), 4)
	for _, e := range g.OutEdges(17) {
		assert.NotEqual(t, uint32(17), e.Target)
	}
}

func TestRobustPruneIsIdempotent(t *testing.T) {
	db, _ := grid5x7(t)
	all := make([]uint32, db.NumCols())
	for i := range all {
		all[i] = uint32(i)
	}

	g1 := NewAdjacencyList(db.NumCols())
	RobustPrune(g1, db, 17, all, 1.2, 4)
	first := append([]Edge{}, g1.OutEdges(17)...)

	RobustPrune(g1, db, 17, all, 1.2, 4)
	second := g1.OutEdges(17)

	assert.ElementsMatch(t, first, second)
}

func TestMedoidIsClosestToCentroid(t *testing.T) {
	db := mustMatrix(t, []float32{0, 0, 10, 0, 0, 10, 5, 5}, 2, 4)
	m := Medoid(db)
	assert.Equal(t, uint32(3), m)
}

func TestBuildProducesBoundedDegreeGraph(t *testing.T) {
	db, _ := grid5x7(t)
	opts := BuildOptions{LBuild: 10, RMax: 4, Alpha: 1.2}

	idx, err := Build(context.Background(), db, opts)
	require.NoError(t, err)

	for p := 0; p < idx.Graph.NumNodes(); p++ {
		assert.LessOrEqual(t, idx.Graph.OutDegree(uint32(p)), opts.RMax)
		seen := make(map[uint32]bool)
		for _, e := range idx.Graph.OutEdges(uint32(p)) {
			assert.NotEqual(t, uint32(p), e.Target)
			assert.False(t, seen[e.Target])
			seen[e.Target] = true
		}
	}
}

func TestQuerySelfRecall(t *testing.T) {
	db, _ := grid5x7(t)
	opts := BuildOptions{LBuild: 20, RMax: 8, Alpha: 1.2}
	idx, err := Build(context.Background(), db, opts)
	require.NoError(t, err)

	res, err := Query(context.Background(), idx, db, QueryOptions{K: 1, L: 20})
	require.NoError(t, err)

	hits := 0
	for i := 0; i < db.NumCols(); i++ {
		if len(res.IDs[i]) > 0 && res.IDs[i][0] == uint64(i) {
			hits++
		}
	}
	// dense grid neighbors share identical distances at several points,
	// so exact top-1 self-recall need not be perfect; require a strong
	// majority.
	assert.GreaterOrEqual(t, hits, db.NumCols()*8/10)
}

func TestQueryRejectsLLessThanK(t *testing.T) {
	db, _ := grid5x7(t)
	idx, err := Build(context.Background(), db, BuildOptions{LBuild: 10, RMax: 4, Alpha: 1.2})
	require.NoError(t, err)

	_, err = Query(context.Background(), idx, db, QueryOptions{K: 5, L: 2})
	require.Error(t, err)
}

func TestNewBuildOptionsAppliesOverrides(t *testing.T) {
	opts := NewBuildOptions(WithLBuild(50), WithRMax(32), WithAlpha(1.1))
	assert.Equal(t, 50, opts.LBuild)
	assert.Equal(t, 32, opts.RMax)
	assert.Equal(t, float32(1.1), opts.Alpha)
}

func TestNewQueryOptionsAppliesOverrides(t *testing.T) {
	opts := NewQueryOptions(5, WithL(20), WithQueryWorkers(4), WithQueryScores(true))
	assert.Equal(t, 5, opts.K)
	assert.Equal(t, 20, opts.L)
	assert.Equal(t, 4, opts.NumWorkers)
	assert.True(t, opts.WithScores)
}

func TestBuildAndQueryRecordTimings(t *testing.T) {
	db, _ := grid5x7(t)
	rec := instrument.New()

	bopts := NewBuildOptions(WithLBuild(10), WithRMax(4), WithBuildRecorder(rec))
	idx, err := Build(context.Background(), db, bopts)
	require.NoError(t, err)

	buildStat := rec.Summary()["vamana.build"]
	assert.Equal(t, int64(1), buildStat.Count)
	assert.Equal(t, int64(0), buildStat.Errors)

	qopts := NewQueryOptions(1, WithL(10), WithQueryRecorder(rec))
	_, err = Query(context.Background(), idx, db, qopts)
	require.NoError(t, err)

	queryStat := rec.Summary()["vamana.query"]
	assert.Equal(t, int64(1), queryStat.Count)
}
