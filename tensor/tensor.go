// Package tensor provides the column-major dense matrix and vector
// primitives shared by every kernel in vsearch. All index builders and
// query kernels consume column-major layouts: column j of a D×N matrix
// is the j-th feature vector, stored contiguously.
package tensor

import "fmt"

// Vector is an owned, length-n buffer of elements.
type Vector[T any] struct {
	data []T
}

// NewVector allocates a zeroed Vector of length n.
func NewVector[T any](n int) *Vector[T] {
	return &Vector[T]{data: make([]T, n)}
}

// VectorFrom wraps an existing slice without copying.
func VectorFrom[T any](data []T) *Vector[T] {
	return &Vector[T]{data: data}
}

// Len returns the number of elements.
func (v *Vector[T]) Len() int { return len(v.data) }

// Data returns the backing slice.
func (v *Vector[T]) Data() []T { return v.data }

// At returns the i-th element.
func (v *Vector[T]) At(i int) T { return v.data[i] }

// Set assigns the i-th element.
func (v *Vector[T]) Set(i int, val T) { v.data[i] = val }

// ColMajorMatrix is an owned D×N buffer. Column i is the contiguous
// slab data[i*rows : (i+1)*rows], matching the "adjacent elements of one
// vector are contiguous" contract.
type ColMajorMatrix[T any] struct {
	data []T
	rows int // D
	cols int // N
}

// NewColMajorMatrix allocates a zeroed rows×cols matrix.
func NewColMajorMatrix[T any](rows, cols int) *ColMajorMatrix[T] {
	return &ColMajorMatrix[T]{
		data: make([]T, rows*cols),
		rows: rows,
		cols: cols,
	}
}

// ColMajorMatrixFrom wraps existing column-major data without copying.
// len(data) must equal rows*cols.
func ColMajorMatrixFrom[T any](data []T, rows, cols int) (*ColMajorMatrix[T], error) {
	if len(data) != rows*cols {
		return nil, fmt.Errorf("tensor: data length %d does not match %d rows x %d cols", len(data), rows, cols)
	}
	return &ColMajorMatrix[T]{data: data, rows: rows, cols: cols}, nil
}

// NumRows returns D, the vector dimension.
func (m *ColMajorMatrix[T]) NumRows() int { return m.rows }

// NumCols returns N, the number of vectors.
func (m *ColMajorMatrix[T]) NumCols() int { return m.cols }

// Column returns the contiguous length-D slab for column j.
func (m *ColMajorMatrix[T]) Column(j int) []T {
	return m.data[j*m.rows : (j+1)*m.rows]
}

// SetColumn copies src into column j. len(src) must equal NumRows().
func (m *ColMajorMatrix[T]) SetColumn(j int, src []T) {
	copy(m.Column(j), src)
}

// Data returns the full backing buffer.
func (m *ColMajorMatrix[T]) Data() []T { return m.data }

// At returns element (row, col).
func (m *ColMajorMatrix[T]) At(row, col int) T {
	return m.data[col*m.rows+row]
}

// ColumnSet is the uniform capability kernels are written against: both a
// resident ColMajorMatrix and a StreamingMatrix satisfy it. Modeled as an
// interface rather than an inheritance chain (see design notes).
type ColumnSet[T any] interface {
	// NumRows returns the vector dimension D.
	NumRows() int
	// NumCols returns the width of the currently resident block.
	NumCols() int
	// Column returns the contiguous length-D slab for column j of the
	// resident block.
	Column(j int) []T
	// Advance loads the next block, returning false when exhausted. A
	// non-streaming matrix advances exactly once, to its single full
	// block, then returns false.
	Advance() (bool, error)
	// Offset reports the absolute column offset of the resident block
	// within the logical dataset.
	Offset() int
	// IsBlocked reports whether this ColumnSet streams in bounded
	// windows (true) or holds the entire dataset resident (false).
	IsBlocked() bool
}

// View wraps a ColMajorMatrix (or a sub-range of one) as a non-streaming
// ColumnSet: Advance succeeds exactly once, and Offset reports the view's
// first column within the matrix (0 for NewView).
type View[T any] struct {
	m         *ColMajorMatrix[T]
	colOffset int
	colCount  int
	advanced  bool
}

// NewView exposes the full matrix as a ColumnSet.
func NewView[T any](m *ColMajorMatrix[T]) *View[T] {
	return &View[T]{m: m, colOffset: 0, colCount: m.NumCols()}
}

// NewSubView exposes columns [start, start+count) of m as a ColumnSet.
func NewSubView[T any](m *ColMajorMatrix[T], start, count int) *View[T] {
	return &View[T]{m: m, colOffset: start, colCount: count}
}

func (v *View[T]) NumRows() int { return v.m.NumRows() }
func (v *View[T]) NumCols() int { return v.colCount }
func (v *View[T]) Column(j int) []T {
	return v.m.Column(v.colOffset + j)
}
func (v *View[T]) Advance() (bool, error) {
	if v.advanced {
		return false, nil
	}
	v.advanced = true
	return true, nil
}
func (v *View[T]) Offset() int   { return v.colOffset }
func (v *View[T]) IsBlocked() bool { return false }
