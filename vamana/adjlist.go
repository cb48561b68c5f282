// Package vamana implements the DiskANN-style proximity graph engine:
// a single-round greedy-search-then-robust-prune build loop over an
// owned feature matrix, with best-first query search against the
// resulting graph.
//
// The build loop follows greedy-search-then-robust-prune with reverse-edge
// propagation, using typed errors, RoaringBitmap visited sets instead of
// unordered_set, and the topk.FixedMinHeap dedup variant for the search
// frontier.
package vamana

// AdjacencyList holds the out-edge lists of every node in a graph of
// NumNodes vertices. Each node's list is an unbounded, append-only
// slice of (score, target) pairs; add_edge ignores an attempt to add an
// edge whose target already appears in the list.
type AdjacencyList struct {
	edges [][]Edge
}

// Edge is an out-edge: Score is the distance from the owning node to
// Target.
type Edge struct {
	Score  float32
	Target uint32
}

// NewAdjacencyList allocates an empty adjacency list for n nodes.
func NewAdjacencyList(n int) *AdjacencyList {
	return &AdjacencyList{edges: make([][]Edge, n)}
}

// NumNodes returns the number of vertices.
func (a *AdjacencyList) NumNodes() int { return len(a.edges) }

// OutEdges returns the current out-edge list of node p. The returned
// slice must not be mutated by the caller; use AddEdge/Clear instead.
func (a *AdjacencyList) OutEdges(p uint32) []Edge { return a.edges[p] }

// OutDegree returns |N_out(p)|.
func (a *AdjacencyList) OutDegree(p uint32) int { return len(a.edges[p]) }

// AddEdge appends (score, q) to p's out-edge list unless q already
// appears there, or q == p (self-loops are never admitted).
func (a *AdjacencyList) AddEdge(p, q uint32, score float32) {
	if p == q {
		return
	}
	for _, e := range a.edges[p] {
		if e.Target == q {
			return
		}
	}
	a.edges[p] = append(a.edges[p], Edge{Score: score, Target: q})
}

// Clear empties p's out-edge list.
func (a *AdjacencyList) Clear(p uint32) {
	a.edges[p] = a.edges[p][:0]
}

// NumEdges returns the total edge count across all nodes.
func (a *AdjacencyList) NumEdges() int {
	n := 0
	for _, es := range a.edges {
		n += len(es)
	}
	return n
}
