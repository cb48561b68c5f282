package vamana

import (
	"math"

	"github.com/hupe1980/vsearch/kernel"
	"github.com/hupe1980/vsearch/tensor"
)

// Medoid returns the index of the column of db closest to the
// arithmetic centroid of every column in db.
func Medoid(db *tensor.ColMajorMatrix[float32]) uint32 {
	dim, n := db.NumRows(), db.NumCols()
	centroid := make([]float32, dim)
	for i := 0; i < n; i++ {
		col := db.Column(i)
		for d := 0; d < dim; d++ {
			centroid[d] += col[d]
		}
	}
	inv := 1.0 / float32(n)
	for d := 0; d < dim; d++ {
		centroid[d] *= inv
	}

	best := uint32(0)
	minScore := float32(math.MaxFloat32)
	for i := 0; i < n; i++ {
		s := kernel.L2(db.Column(i), centroid)
		if s < minScore {
			minScore = s
			best = uint32(i)
		}
	}
	return best
}
