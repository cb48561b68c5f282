package topk

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectNthMatchesHeapOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	n, k := 200, 7

	pairs := make([]Pair, n)
	h := New(k)
	for i := 0; i < n; i++ {
		score := rng.Float32() * 100
		pairs[i] = Pair{Score: score, ID: uint64(i)}
		h.Insert(score, uint64(i))
	}

	want := h.DrainSorted()
	got := SelectNth(pairs, k)

	require := assert.New(t)
	require.Len(got, k)
	for i := range want {
		require.Equal(want[i].Score, got[i].Score)
	}
}

func TestSelectNthClampsToLength(t *testing.T) {
	pairs := []Pair{{Score: 3, ID: 1}, {Score: 1, ID: 2}}
	got := SelectNth(pairs, 10)
	assert.Len(t, got, 2)
	assert.Equal(t, float32(1), got[0].Score)
	assert.Equal(t, float32(3), got[1].Score)
}

func TestSelectNthZeroK(t *testing.T) {
	pairs := []Pair{{Score: 3, ID: 1}}
	assert.Empty(t, SelectNth(pairs, 0))
}
