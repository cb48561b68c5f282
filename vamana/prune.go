package vamana

import (
	"github.com/hupe1980/vsearch/kernel"
	"github.com/hupe1980/vsearch/tensor"
)

// candidate is a (distance-to-p, id) pair tracked during RobustPrune.
type candidate struct {
	score float32
	id    uint32
}

// RobustPrune rewrites p's out-edge list to an alpha-diversified subset
// of at most R_max neighbors chosen from the candidate pool vcand
// (typically the visited set returned by GreedySearch) unioned with p's
// current out-neighbors.
//
// Per the reference, W is rebuilt into a fresh slice each round rather
// than erased in place. p's current out-edges are folded into the pool
// before N_out(p) is cleared, so a second run on the same (p, vcand)
// chooses from the same pool as the first whenever p's earlier
// out-neighbors were all in vcand.
func RobustPrune(graph *AdjacencyList, db *tensor.ColMajorMatrix[float32], p uint32, vcand []uint32, alpha float32, rMax int) {
	seen := make(map[uint32]float32)
	pVec := db.Column(int(p))

	for _, v := range vcand {
		if v == p {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = kernel.L2(db.Column(int(v)), pVec)
		}
	}
	for _, e := range graph.OutEdges(p) {
		if e.Target == p {
			continue
		}
		if _, ok := seen[e.Target]; !ok {
			seen[e.Target] = e.Score
		}
	}

	w := make([]candidate, 0, len(seen))
	for id, score := range seen {
		w = append(w, candidate{score: score, id: id})
	}

	graph.Clear(p)

	for len(w) > 0 && graph.OutDegree(p) < rMax {
		best := argminScore(w)
		pStar := w[best]
		graph.AddEdge(p, pStar.id, pStar.score)

		if graph.OutDegree(p) >= rMax {
			break
		}

		newW := make([]candidate, 0, len(w))
		for _, c := range w {
			if c.id == pStar.id {
				continue
			}
			if alpha*kernel.L2(db.Column(int(pStar.id)), db.Column(int(c.id))) <= c.score {
				continue // suppressed: too close to the just-picked neighbor
			}
			newW = append(newW, c)
		}
		w = newW
	}
}

func argminScore(w []candidate) int {
	best := 0
	for i := 1; i < len(w); i++ {
		if w[i].score < w[best].score {
			best = i
		}
	}
	return best
}
