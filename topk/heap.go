// Package topk provides the fixed-capacity top-k selector shared by the
// brute-force kernels and the Vamana graph engine: a bounded max-heap of
// (score, id) pairs that retains the k smallest scores ever inserted.
//
// Ties on score are never broken deterministically (see spec design
// notes); callers comparing results across runs must use score-matched
// set intersection rather than raw id-sequence equality.
package topk

import "github.com/bits-and-blooms/bitset"

// Pair is a (score, id) entry in the heap.
type Pair struct {
	Score float32
	ID    uint64
}

// FixedMinHeap conceptually holds the k smallest (score, id) pairs seen
// so far. It is implemented as a bounded max-heap ordered by score: the
// root is always the current worst (largest-score) retained candidate,
// so a new arrival only needs to beat the root to be admitted.
type FixedMinHeap struct {
	capacity int
	items    []Pair

	// dedup tracks which ids currently occupy the heap, for the
	// "unique_id" insert variant used by Vamana's greedy search to
	// avoid double-counting a node reached via two paths.
	dedup    bool
	resident *bitset.BitSet
}

// New creates a FixedMinHeap with the given capacity (k).
func New(capacity int) *FixedMinHeap {
	return &FixedMinHeap{
		capacity: capacity,
		items:    make([]Pair, 0, capacity),
	}
}

// NewDeduped creates a FixedMinHeap that rejects an insert whose id is
// already resident, and removes the evicted id's membership on replace.
func NewDeduped(capacity int) *FixedMinHeap {
	h := New(capacity)
	h.dedup = true
	h.resident = bitset.New(uint(capacity) * 8)
	return h
}

// Len returns the number of resident entries.
func (h *FixedMinHeap) Len() int { return len(h.items) }

// Cap returns k.
func (h *FixedMinHeap) Cap() int { return h.capacity }

// Full reports whether the heap holds k entries.
func (h *FixedMinHeap) Full() bool { return len(h.items) >= h.capacity }

// Max returns the current worst (largest-score) retained entry.
func (h *FixedMinHeap) Max() (Pair, bool) {
	if len(h.items) == 0 {
		return Pair{}, false
	}
	return h.items[0], true
}

// Contains reports whether id currently occupies the heap. Only valid on
// a deduped heap.
func (h *FixedMinHeap) Contains(id uint64) bool {
	if !h.dedup {
		return false
	}
	return h.resident.Test(uint(id))
}

// Insert attempts to admit (score, id). If the heap has fewer than k
// entries, it is pushed unconditionally. Otherwise, if score is smaller
// than the current max, the max is evicted and replaced. Returns true if
// the entry entered the heap (a graph search uses this to decide
// whether to also push into the frontier).
func (h *FixedMinHeap) Insert(score float32, id uint64) bool {
	if h.dedup && h.resident.Test(uint(id)) {
		return false
	}

	if len(h.items) < h.capacity {
		h.items = append(h.items, Pair{Score: score, ID: id})
		h.siftUp(len(h.items) - 1)
		if h.dedup {
			h.resident.Set(uint(id))
		}
		return true
	}

	if len(h.items) == 0 || score >= h.items[0].Score {
		return false
	}

	evicted := h.items[0].ID
	h.items[0] = Pair{Score: score, ID: id}
	h.siftDown(0)
	if h.dedup {
		h.resident.Clear(uint(evicted))
		h.resident.Set(uint(id))
	}
	return true
}

// DrainSorted empties the heap and returns its entries in ascending
// score order.
func (h *FixedMinHeap) DrainSorted() []Pair {
	out := make([]Pair, len(h.items))
	copy(out, h.items)
	h.items = h.items[:0]
	if h.dedup {
		h.resident.ClearAll()
	}
	sortPairs(out)
	return out
}

// Snapshot returns a copy of the current entries in ascending score
// order without draining the heap.
func (h *FixedMinHeap) Snapshot() []Pair {
	out := make([]Pair, len(h.items))
	copy(out, h.items)
	sortPairs(out)
	return out
}

func sortPairs(s []Pair) {
	// Insertion sort: k is small (typical L/k <= a few hundred).
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].Score < s[j-1].Score; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func (h *FixedMinHeap) less(i, j int) bool {
	// Max-heap on score: parent must be >= children.
	return h.items[i].Score > h.items[j].Score
}

func (h *FixedMinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *FixedMinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		child := left
		right := left + 1
		if right < n && h.less(right, left) {
			child = right
		}
		if !h.less(child, i) {
			break
		}
		h.items[i], h.items[child] = h.items[child], h.items[i]
		i = child
	}
}
