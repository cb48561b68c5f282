package recall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePerfectMatch(t *testing.T) {
	results := [][]uint64{{1, 2, 3}, {4, 5, 6}}
	truth := [][]uint64{{3, 2, 1}, {6, 5, 4}}

	report, err := Compute(results, truth, 3)
	require.NoError(t, err)
	assert.Equal(t, 1.0, report.RecallAtK)
	assert.Equal(t, []float64{1, 1}, report.PerQuery)
}

func TestComputePartialOverlap(t *testing.T) {
	results := [][]uint64{{1, 2, 3}}
	truth := [][]uint64{{1, 2, 9}}

	report, err := Compute(results, truth, 3)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, report.RecallAtK, 1e-9)
}

func TestComputeTruncatesRowsLongerThanK(t *testing.T) {
	results := [][]uint64{{9, 8, 1, 2, 3}}
	truth := [][]uint64{{3, 2, 1}}

	report, err := Compute(results, truth, 3)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, report.RecallAtK, 1e-9)
}

func TestComputeRejectsMismatchedRowCounts(t *testing.T) {
	_, err := Compute([][]uint64{{1}}, [][]uint64{{1}, {2}}, 1)
	assert.Error(t, err)
}

func TestComputeRejectsNonPositiveK(t *testing.T) {
	_, err := Compute([][]uint64{{1}}, [][]uint64{{1}}, 0)
	assert.Error(t, err)
}
