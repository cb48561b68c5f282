package group

import (
	"context"

	"github.com/hupe1980/vsearch/blobstore"
	"github.com/hupe1980/vsearch/tensor"
	"github.com/hupe1980/vsearch/vamana"
	"github.com/hupe1980/vsearch/verrors"
)

// WriteVamana persists idx to store as a feature matrix plus the CSR
// adjacency encoding: adj_scores[E], adj_ids[E], adj_index[N+1].
func WriteVamana(ctx context.Context, store blobstore.BlobStore, idx *vamana.Index) error {
	l, err := vamanaLayoutFor(CurrentVersion)
	if err != nil {
		return err
	}

	n := idx.Graph.NumNodes()
	e := idx.Graph.NumEdges()

	scores := make([]float32, 0, e)
	ids := make([]int32, 0, e)
	index := make([]int32, n+1)
	for p := 0; p < n; p++ {
		for _, edge := range idx.Graph.OutEdges(uint32(p)) {
			scores = append(scores, edge.Score)
			ids = append(ids, int32(edge.Target))
		}
		index[p+1] = int32(len(scores))
	}

	if err := putFloat32Slice(ctx, store, l.vectors, idx.Vectors.Data()); err != nil {
		return err
	}
	if err := putFloat32Slice(ctx, store, l.adjScores, scores); err != nil {
		return err
	}
	if err := putInt32Slice(ctx, store, l.adjIDs, ids); err != nil {
		return err
	}
	if err := putInt32Slice(ctx, store, l.adjIndex, index); err != nil {
		return err
	}

	meta := Metadata{
		"dimension": uint64(idx.Vectors.NumRows()),
		"ntotal":    uint64(n),
		"l":         uint64(idx.LBuild),
		"r":         uint64(idx.RMax),
		"b":         uint64(0),
		"alpha_min": float32(1.0),
		"alpha_max": float32(1.2),
		"medioid":   uint64(idx.Medoid),
	}
	return writeMetadata(ctx, store, l.metadata, meta)
}

// ReadVamana re-hydrates a full Vamana group into memory: the feature
// matrix, the CSR adjacency arrays unpacked back into an AdjacencyList
// (neighbor order preserved), and the medoid/degree-bound metadata.
func ReadVamana(ctx context.Context, store blobstore.BlobStore, version Version) (*vamana.Index, error) {
	l, err := vamanaLayoutFor(version)
	if err != nil {
		return nil, err
	}

	vecData, err := getFloat32Slice(ctx, store, l.vectors)
	if err != nil {
		return nil, err
	}
	scores, err := getFloat32Slice(ctx, store, l.adjScores)
	if err != nil {
		return nil, err
	}
	ids, err := getInt32Slice(ctx, store, l.adjIDs)
	if err != nil {
		return nil, err
	}
	index, err := getInt32Slice(ctx, store, l.adjIndex)
	if err != nil {
		return nil, err
	}

	meta, err := readMetadata(ctx, store, l.metadata)
	if err != nil {
		return nil, err
	}
	dim, err := meta.GetUint64("dimension")
	if err != nil {
		return nil, err
	}
	ntotal, err := meta.GetUint64("ntotal")
	if err != nil {
		return nil, err
	}
	rMax, err := meta.GetUint64("r")
	if err != nil {
		return nil, err
	}
	lBuild, err := meta.GetUint64("l")
	if err != nil {
		return nil, err
	}
	medoid, err := meta.GetUint64("medioid")
	if err != nil {
		return nil, err
	}

	n := int(ntotal)
	if err := validateCSR(index, len(scores), n); err != nil {
		return nil, err
	}

	vectors, err := tensor.ColMajorMatrixFrom(vecData, int(dim), n)
	if err != nil {
		return nil, verrors.InvalidConfigf("group: malformed Vamana feature matrix: %v", err)
	}

	graph := vamana.NewAdjacencyList(n)
	for p := 0; p < n; p++ {
		lo, hi := index[p], index[p+1]
		for c := lo; c < hi; c++ {
			graph.AddEdge(uint32(p), uint32(ids[c]), scores[c])
		}
	}

	return &vamana.Index{
		Vectors: vectors,
		Graph:   graph,
		Medoid:  uint32(medoid),
		LBuild:  int(lBuild),
		RMax:    int(rMax),
	}, nil
}

func validateCSR(index []int32, e, n int) error {
	if len(index) != n+1 {
		return verrors.InvalidConfigf("group: adj_index length %d does not match N+1=%d", len(index), n+1)
	}
	if index[0] != 0 {
		return verrors.InvalidConfigf("group: adj_index[0] = %d, want 0", index[0])
	}
	if int(index[n]) != e {
		return verrors.InvalidConfigf("group: adj_index[N] = %d, want E=%d", index[n], e)
	}
	for p := 0; p < n; p++ {
		if index[p] > index[p+1] {
			return verrors.InvalidConfigf("group: adj_index not monotonic at %d", p)
		}
	}
	return nil
}
