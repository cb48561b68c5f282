package tensor

import "context"

// ColumnSource is the minimal capability a StreamingMatrix needs from the
// backing array store: read a contiguous range of columns of a D×N
// column-major matrix into a caller-provided buffer. group.ColumnSource
// implements it over a blob from any blobstore.BlobStore (local files,
// in-memory blobs, S3 objects); tensor stays ignorant of where the bytes
// come from.
type ColumnSource interface {
	// Dimension returns D.
	Dimension() int
	// NumCols returns N, the total column count of the logical matrix.
	NumCols() int
	// ReadColumns reads columns [offset, offset+count) into dst, which
	// must have length >= Dimension()*count. Returns the number of
	// columns actually read (less than count only at end of data).
	ReadColumns(ctx context.Context, offset, count int, dst []float32) (int, error)
}

// StreamingMatrix holds a persistent cursor into a ColumnSource plus an
// in-memory window of BlockCols columns. Only one block is resident at a
// time; Advance blocks on I/O to refill the window.
type StreamingMatrix struct {
	ctx       context.Context
	src       ColumnSource
	blockCols int

	window    []float32
	winCols   int // columns currently resident (<= blockCols, last block may be short)
	offset    int // absolute column offset of the resident block
	nextStart int // absolute column offset to fetch on next Advance
	done      bool
}

// NewStreamingMatrix creates a streaming matrix over src with the given
// block width. The window is loaded lazily: callers must call Advance at
// least once before calling Column/NumCols.
func NewStreamingMatrix(ctx context.Context, src ColumnSource, blockCols int) *StreamingMatrix {
	if blockCols <= 0 {
		blockCols = src.NumCols()
	}
	return &StreamingMatrix{
		ctx:       ctx,
		src:       src,
		blockCols: blockCols,
		window:    make([]float32, src.Dimension()*blockCols),
	}
}

func (s *StreamingMatrix) NumRows() int { return s.src.Dimension() }
func (s *StreamingMatrix) NumCols() int { return s.winCols }

func (s *StreamingMatrix) Column(j int) []float32 {
	d := s.src.Dimension()
	return s.window[j*d : (j+1)*d]
}

// Advance fetches the next block of columns from the array store. It
// returns false once the logical matrix has been fully consumed.
func (s *StreamingMatrix) Advance() (bool, error) {
	if s.done {
		return false, nil
	}
	if s.nextStart >= s.src.NumCols() {
		s.done = true
		return false, nil
	}

	want := s.blockCols
	if s.nextStart+want > s.src.NumCols() {
		want = s.src.NumCols() - s.nextStart
	}

	n, err := s.src.ReadColumns(s.ctx, s.nextStart, want, s.window)
	if err != nil {
		return false, err
	}

	s.offset = s.nextStart
	s.winCols = n
	s.nextStart += n
	if n == 0 {
		s.done = true
		return false, nil
	}
	return true, nil
}

func (s *StreamingMatrix) Offset() int     { return s.offset }
func (s *StreamingMatrix) IsBlocked() bool { return true }

var _ ColumnSet[float32] = (*StreamingMatrix)(nil)
