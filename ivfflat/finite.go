package ivfflat

import (
	"context"
	"time"

	"github.com/hupe1980/vsearch/kernel"
	"github.com/hupe1980/vsearch/kmeans"
	"github.com/hupe1980/vsearch/tensor"
	"github.com/hupe1980/vsearch/topk"
)

// FiniteRAM serves queries with bounded memory: the shuffled vector
// matrix is streamed from src in blocks of opts.BlockCols columns, and
// for each block only the (query, partition) pairs that overlap it are
// scored against per-query heaps held resident for the whole scan.
//
// ids and indices are the Group's external-id and partition-offset
// vectors; they must describe the same logical matrix src streams.
func FiniteRAM(ctx context.Context, centroids *tensor.ColMajorMatrix[float32], src tensor.ColumnSource, ids []uint64, indices []int32, queries *tensor.ColMajorMatrix[float32], opts QueryOptions) (*Result, error) {
	start := time.Now()
	res, err := finiteRAM(ctx, centroids, src, ids, indices, queries, opts)
	elapsed := time.Since(start)
	opts.Logger.LogQuery(ctx, "ivfflat", queries.NumCols(), opts.K, elapsed.Seconds(), err)
	opts.Recorder.Record("ivfflat.query", elapsed, err)
	return res, err
}

func finiteRAM(ctx context.Context, centroids *tensor.ColMajorMatrix[float32], src tensor.ColumnSource, ids []uint64, indices []int32, queries *tensor.ColMajorMatrix[float32], opts QueryOptions) (*Result, error) {
	if err := validateQuery(&Group{Centroids: centroids}, queries, &opts); err != nil {
		return nil, err
	}

	qn := queries.NumCols()
	probedBy := make([][]int32, qn)
	for j := 0; j < qn; j++ {
		probedBy[j] = kmeans.FindClosestCentroids(queries.Column(j), centroids, opts.Nprobe)
	}

	heaps := make([]*topk.FixedMinHeap, qn)
	for j := range heaps {
		heaps[j] = topk.New(opts.K)
	}

	stream := tensor.NewStreamingMatrix(ctx, src, opts.BlockCols)

	for {
		more, err := stream.Advance()
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		blockLo := int32(stream.Offset())
		blockHi := blockLo + int32(stream.NumCols())

		for j := 0; j < qn; j++ {
			query := queries.Column(j)
			h := heaps[j]
			for _, p := range probedBy[j] {
				pLo, pHi := indices[p], indices[p+1]
				lo := max32(pLo, blockLo)
				hi := min32(pHi, blockHi)
				for c := lo; c < hi; c++ {
					vec := stream.Column(int(c - blockLo))
					d := kernel.L2(vec, query)
					h.Insert(d, ids[c])
				}
			}
		}
	}

	res := &Result{IDs: make([][]uint64, qn)}
	if opts.WithScores {
		res.Scores = make([][]float32, qn)
	}
	for j, h := range heaps {
		pairs := h.DrainSorted()
		idOut := make([]uint64, len(pairs))
		var sc []float32
		if opts.WithScores {
			sc = make([]float32, len(pairs))
		}
		for i, p := range pairs {
			idOut[i] = p.ID
			if opts.WithScores {
				sc[i] = p.Score
			}
		}
		res.IDs[j] = idOut
		if opts.WithScores {
			res.Scores[j] = sc
		}
	}
	return res, nil
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}
