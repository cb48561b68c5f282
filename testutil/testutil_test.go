package testutil

import (
	"testing"

	"github.com/hupe1980/vsearch/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformMatrixDeterministic(t *testing.T) {
	a := NewRNG(7).UniformMatrix(4, 10)
	b := NewRNG(7).UniformMatrix(4, 10)
	assert.Equal(t, a.Data(), b.Data())
}

func TestUnitMatrixIsNormalized(t *testing.T) {
	m := NewRNG(1).UnitMatrix(8, 5)
	for j := 0; j < m.NumCols(); j++ {
		col := m.Column(j)
		var norm float64
		for _, v := range col {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, norm, 1e-4)
	}
}

func TestBruteForceGroundTruthFindsSelf(t *testing.T) {
	rng := NewRNG(3)
	db := rng.GaussianMatrix(6, 20)

	q, err := tensor.ColMajorMatrixFrom(append([]float32{}, db.Column(5)...), db.NumRows(), 1)
	require.NoError(t, err)

	truth := BruteForceGroundTruth(db, q, 1)
	assert.Equal(t, uint64(5), truth[0][0])
}
