package group

import (
	"context"

	"github.com/hupe1980/vsearch/blobstore"
	"github.com/hupe1980/vsearch/ivfflat"
	"github.com/hupe1980/vsearch/tensor"
	"github.com/hupe1980/vsearch/verrors"
)

// WriteIVF persists g to store in the current storage version's layout:
// centroids, shuffled vectors, shuffled ids, and both the partition
// prefix-sum offsets and the per-partition sizes (so a reader can pick
// up either artifact per the CLI's --index_uri | --sizes_uri split).
func WriteIVF(ctx context.Context, store blobstore.BlobStore, g *ivfflat.Group) error {
	l, err := ivfLayoutFor(CurrentVersion)
	if err != nil {
		return err
	}

	dim, n := g.Centroids.NumRows(), g.Vectors.NumCols()
	k := g.Centroids.NumCols()

	sizes := make([]int32, k)
	for j := 0; j < k; j++ {
		sizes[j] = g.Indices[j+1] - g.Indices[j]
	}

	if err := putFloat32Slice(ctx, store, l.centroids, g.Centroids.Data()); err != nil {
		return err
	}
	if err := putFloat32Slice(ctx, store, l.vectors, g.Vectors.Data()); err != nil {
		return err
	}
	if err := putUint64Slice(ctx, store, l.ids, g.Ids); err != nil {
		return err
	}
	if err := putInt32Slice(ctx, store, l.indices, g.Indices); err != nil {
		return err
	}
	if err := putInt32Slice(ctx, store, l.sizes, sizes); err != nil {
		return err
	}

	meta := Metadata{
		"dimension": uint64(dim),
		"ntotal":    uint64(n),
		"nlist":     uint64(k),
	}
	return writeMetadata(ctx, store, l.metadata, meta)
}

// ReadIVF loads a full IVF group into memory for the infinite-RAM query
// path. version selects the physical naming scheme; unknown versions
// are rejected.
func ReadIVF(ctx context.Context, store blobstore.BlobStore, version Version) (*ivfflat.Group, error) {
	l, err := ivfLayoutFor(version)
	if err != nil {
		return nil, err
	}

	centroidData, err := getFloat32Slice(ctx, store, l.centroids)
	if err != nil {
		return nil, err
	}
	vecData, err := getFloat32Slice(ctx, store, l.vectors)
	if err != nil {
		return nil, err
	}
	ids, err := getUint64Slice(ctx, store, l.ids)
	if err != nil {
		return nil, err
	}
	indices, err := readIndices(ctx, store, l)
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

	centroids, err := tensor.ColMajorMatrixFrom(centroidData, int(dim), len(centroidData)/int(dim))
	if err != nil {
		return nil, verrors.InvalidConfigf("group: malformed centroid matrix: %v", err)
	}
	n := len(ids)
	vectors, err := tensor.ColMajorMatrixFrom(vecData, int(dim), n)
	if err != nil {
		return nil, verrors.InvalidConfigf("group: malformed shuffled-vector matrix: %v", err)
	}

	if err := validateIVFInvariants(indices, n, centroids.NumCols()); err != nil {
		return nil, err
	}

	return &ivfflat.Group{
		Centroids: centroids,
		Vectors:   vectors,
		Ids:       ids,
		Indices:   indices,
	}, nil
}

// readIndices prefers the prefix-sum "indices" artifact; if absent (a
// group that only shipped per-partition sizes) it prefix-sums "sizes"
// into the offset vector the in-memory Group expects.
func readIndices(ctx context.Context, store blobstore.BlobStore, l ivfLayout) ([]int32, error) {
	indices, err := getInt32Slice(ctx, store, l.indices)
	if err == nil {
		return indices, nil
	}
	if l.sizes == "" {
		return nil, err
	}
	sizes, sizeErr := getInt32Slice(ctx, store, l.sizes)
	if sizeErr != nil {
		return nil, err
	}
	out := make([]int32, len(sizes)+1)
	for j, s := range sizes {
		out[j+1] = out[j] + s
	}
	return out, nil
}

func validateIVFInvariants(indices []int32, n, k int) error {
	if len(indices) != k+1 {
		return verrors.InvalidConfigf("group: indices length %d does not match K+1=%d", len(indices), k+1)
	}
	if indices[0] != 0 {
		return verrors.InvalidConfigf("group: indices[0] = %d, want 0", indices[0])
	}
	if int(indices[k]) != n {
		return verrors.InvalidConfigf("group: indices[K] = %d, want N=%d", indices[k], n)
	}
	for j := 0; j < k; j++ {
		if indices[j] > indices[j+1] {
			return verrors.InvalidConfigf("group: indices not monotonic at %d", j)
		}
	}
	return nil
}

// ColumnSource adapts a persisted, shuffled-vector blob into the
// tensor.ColumnSource the finite-RAM query path streams from, so a
// group never has to be fully materialized in memory to serve queries
// under a bounded footprint.
type ColumnSource struct {
	blob  blobstore.Blob
	dim   int
	ncols int
}

// OpenShuffledVectors opens the shuffled-vector artifact of an IVF group
// for column-range streaming without loading it whole.
func OpenShuffledVectors(ctx context.Context, store blobstore.BlobStore, version Version, dim int) (*ColumnSource, func() error, error) {
	l, err := ivfLayoutFor(version)
	if err != nil {
		return nil, nil, err
	}
	b, err := store.Open(ctx, l.vectors)
	if err != nil {
		return nil, nil, verrors.IoFailure("group: open shuffled vectors", err)
	}
	cs, err := OpenColumnBlob(b, dim)
	if err != nil {
		b.Close()
		return nil, nil, err
	}
	return cs, b.Close, nil
}

// OpenColumnBlob wraps an already-opened blob as a tensor.ColumnSource,
// for callers streaming a shuffled-vector array that was not opened
// through a group's own canonical layout (e.g. the CLI's --parts_uri,
// resolved to an arbitrary blob name via a standalone storage.Open).
// The caller retains ownership of blob and must close it itself.
func OpenColumnBlob(blob blobstore.Blob, dim int) (*ColumnSource, error) {
	// Size is header(8) + N*dim*4 bytes; derive N from it.
	total := blob.Size() - 8
	if total < 0 || total%int64(dim*4) != 0 {
		return nil, verrors.InvalidConfigf("group: shuffled-vector blob size %d inconsistent with dim %d", blob.Size(), dim)
	}
	n := int(total) / (dim * 4)
	return &ColumnSource{blob: blob, dim: dim, ncols: n}, nil
}

func (c *ColumnSource) Dimension() int { return c.dim }
func (c *ColumnSource) NumCols() int   { return c.ncols }

// ReadColumns reads columns [offset, offset+count) into dst.
func (c *ColumnSource) ReadColumns(ctx context.Context, offset, count int, dst []float32) (int, error) {
	if offset >= c.ncols {
		return 0, nil
	}
	if offset+count > c.ncols {
		count = c.ncols - offset
	}
	byteOff := int64(8 + offset*c.dim*4)
	byteLen := count * c.dim * 4

	raw := unsafeBytesOf(dst[:count*c.dim])
	n, err := c.blob.ReadAt(ctx, raw[:byteLen], byteOff)
	if err != nil && n < byteLen {
		return 0, verrors.IoFailure("group: stream shuffled vectors", err)
	}
	return count, nil
}

var _ tensor.ColumnSource = (*ColumnSource)(nil)
