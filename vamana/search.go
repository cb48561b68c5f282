package vamana

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/vsearch/kernel"
	"github.com/hupe1980/vsearch/tensor"
	"github.com/hupe1980/vsearch/topk"
	"github.com/hupe1980/vsearch/verrors"
)

// SearchResult is the outcome of a greedy search: the k nearest (score,
// id) pairs found, plus the full visited set V (the candidate pool
// consumed by robust_prune during build).
type SearchResult struct {
	TopK    []topk.Pair
	Visited *roaring.Bitmap
}

// GreedySearch runs the best-first search described in the DiskANN
// paper: maintain a fixed-capacity-L result heap R (deduped by id) and a
// visited set V; repeatedly take the closest member of the frontier
// F = R \ V, expand its out-edges into R, until F is empty.
//
// L must be >= k; source is the graph entry point (the medoid at build
// and query time).
func GreedySearch(graph *AdjacencyList, db *tensor.ColMajorMatrix[float32], source uint32, query []float32, k, l int) (*SearchResult, error) {
	if l < k {
		return nil, verrors.Precondition("vamana: L must be >= k")
	}

	visited := roaring.New()
	result := topk.NewDeduped(l)

	d0 := kernel.L2(db.Column(int(source)), query)
	result.Insert(d0, uint64(source))

	for {
		pStar, ok := closestUnvisited(result, visited)
		if !ok {
			break
		}
		visited.Add(pStar)

		for _, e := range graph.OutEdges(pStar) {
			if visited.Contains(e.Target) {
				continue
			}
			s := kernel.L2(db.Column(int(e.Target)), query)
			result.Insert(s, uint64(e.Target))
		}
	}

	topKPairs := result.DrainSorted()
	if len(topKPairs) > k {
		topKPairs = topKPairs[:k]
	}

	return &SearchResult{TopK: topKPairs, Visited: visited}, nil
}

// closestUnvisited returns the id of the closest-to-query member of
// result that is not yet in visited, i.e. the current minimum of the
// frontier F = R \ V.
func closestUnvisited(result *topk.FixedMinHeap, visited *roaring.Bitmap) (uint32, bool) {
	for _, p := range result.Snapshot() {
		id := uint32(p.ID)
		if !visited.Contains(id) {
			return id, true
		}
	}
	return 0, false
}
