package bruteforce

import (
	"context"
	"runtime"

	"github.com/hupe1980/vsearch/kernel"
	"github.com/hupe1980/vsearch/tensor"
	"github.com/hupe1980/vsearch/topk"
	"github.com/hupe1980/vsearch/verrors"
)

// VQHeap computes exact top-k with the outer loop over the database and
// the inner loop over queries. Each worker maintains Q private heaps
// that are merged sequentially after the parallel region, which is what
// keeps the final result deterministic up to score ties.
//
// Which of db/q streams is decided by their IsBlocked(), in the blocks
// each ColumnSet yields; mode is not consulted. The two axes cannot both
// stream simultaneously (InvalidConfig).
func VQHeap(ctx context.Context, db tensor.ColumnSet[float32], q tensor.ColumnSet[float32], mode BlockMode, opts Options) (*Result, error) {
	// mode documents caller intent; which axis actually streams is
	// driven by IsBlocked() on the ColumnSets passed in.
	if db.IsBlocked() && q.IsBlocked() {
		return nil, verrors.InvalidConfig("vq-heap: database and queries cannot both stream simultaneously")
	}

	if opts.K <= 0 {
		return nil, verrors.InvalidConfig("K must be positive")
	}
	if db.NumRows() != q.NumRows() {
		return nil, verrors.DimensionMismatch(db.NumRows(), q.NumRows())
	}

	numWorkers := opts.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	// Materialize the full resident query set once; per the mode
	// contract only one side streams at a time, so whichever side does
	// not stream is small enough to keep fully resident across blocks.
	var queryCols [][]float32
	qOffsetBase := 0
	if !q.IsBlocked() {
		if _, err := q.Advance(); err != nil {
			return nil, err
		}
		queryCols = snapshotColumns(q)
	}

	var perQueryHeaps []*topk.FixedMinHeap
	initHeaps := func(qn int) {
		perQueryHeaps = make([]*topk.FixedMinHeap, qn)
		for i := range perQueryHeaps {
			perQueryHeaps[i] = topk.New(opts.K)
		}
	}

	scanBlock := func(dbCols [][]float32, dbOffset int, qCols [][]float32, qOffset int, heaps []*topk.FixedMinHeap, numWorkers int) error {
		return scanVQBlock(ctx, dbCols, dbOffset, qCols, qOffset, heaps, numWorkers)
	}

	if !db.IsBlocked() {
		// Database resident, queries stream (or both resident).
		if _, err := db.Advance(); err != nil {
			return nil, err
		}
		dbCols := snapshotColumns(db)

		if q.IsBlocked() {
			var all []*topk.FixedMinHeap
			for {
				more, err := q.Advance()
				if err != nil {
					return nil, err
				}
				if !more {
					break
				}
				qCols := snapshotColumns(q)
				heaps := make([]*topk.FixedMinHeap, len(qCols))
				for i := range heaps {
					heaps[i] = topk.New(opts.K)
				}
				if err := scanBlock(dbCols, 0, qCols, 0, heaps, numWorkers); err != nil {
					return nil, err
				}
				all = append(all, heaps...)
			}
			return heapsToResult(all, opts), nil
		}

		initHeaps(len(queryCols))
		if err := scanBlock(dbCols, 0, queryCols, qOffsetBase, perQueryHeaps, numWorkers); err != nil {
			return nil, err
		}
		return heapsToResult(perQueryHeaps, opts), nil
	}

	// Database streams, queries resident.
	initHeaps(len(queryCols))
	for {
		more, err := db.Advance()
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		dbCols := snapshotColumns(db)
		if err := scanBlock(dbCols, db.Offset(), queryCols, 0, perQueryHeaps, numWorkers); err != nil {
			return nil, err
		}
	}
	return heapsToResult(perQueryHeaps, opts), nil
}

func snapshotColumns(cs tensor.ColumnSet[float32]) [][]float32 {
	out := make([][]float32, cs.NumCols())
	for i := range out {
		out[i] = cs.Column(i)
	}
	return out
}

// scanVQBlock scans one block of the database against one block of
// queries, partitioned by worker over the database axis (outer loop).
func scanVQBlock(ctx context.Context, dbCols [][]float32, dbOffset int, qCols [][]float32, qOffset int, heaps []*topk.FixedMinHeap, numWorkers int) error {
	if len(dbCols) == 0 || len(qCols) == 0 {
		return nil
	}
	if numWorkers > len(dbCols) {
		numWorkers = len(dbCols)
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}

	// Each worker owns a private set of per-query heaps; merged
	// sequentially afterwards to stay single-threaded per worker.
	workerHeaps := make([][]*topk.FixedMinHeap, numWorkers)
	for w := range workerHeaps {
		hs := make([]*topk.FixedMinHeap, len(qCols))
		for i := range hs {
			hs[i] = topk.New(heaps[0].Cap())
		}
		workerHeaps[w] = hs
	}

	chunk := (len(dbCols) + numWorkers - 1) / numWorkers
	errCh := make(chan error, numWorkers)
	for w := 0; w < numWorkers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(dbCols) {
			hi = len(dbCols)
		}
		if lo >= hi {
			errCh <- nil
			continue
		}
		go func(w, lo, hi int) {
			for i := lo; i < hi; i++ {
				dbID := uint64(dbOffset + i)
				vec := dbCols[i]
				for qi, query := range qCols {
					d := kernel.L2(vec, query)
					workerHeaps[w][qi].Insert(d, dbID)
				}
			}
			errCh <- nil
		}(w, lo, hi)
	}
	for w := 0; w < numWorkers; w++ {
		if err := <-errCh; err != nil {
			return err
		}
	}

	// Sequential, deterministic merge of per-worker heaps into the
	// caller-owned per-query heaps.
	for w := 0; w < numWorkers; w++ {
		for qi, h := range workerHeaps[w] {
			for _, p := range h.Snapshot() {
				heaps[qi].Insert(p.Score, p.ID)
			}
		}
	}
	return nil
}

func heapsToResult(heaps []*topk.FixedMinHeap, opts Options) *Result {
	res := &Result{IDs: make([][]uint64, len(heaps))}
	if opts.WithScores {
		res.Scores = make([][]float32, len(heaps))
	}
	for i, h := range heaps {
		pairs := h.DrainSorted()
		ids := make([]uint64, len(pairs))
		var scores []float32
		if opts.WithScores {
			scores = make([]float32, len(pairs))
		}
		for j, p := range pairs {
			ids[j] = p.ID
			if opts.WithScores {
				scores[j] = p.Score
			}
		}
		res.IDs[i] = ids
		if opts.WithScores {
			res.Scores[i] = scores
		}
	}
	return res
}
