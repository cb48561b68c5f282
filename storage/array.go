// Package storage resolves the array/group URIs named on the CLI surface
// (--db_uri, --centroids_uri, --out_uri, ...) to a blobstore.BlobStore and
// a blob name within it, and provides the raw array codec the CLI uses to
// read/write standalone float32/uint64 vectors outside a group's own
// binary.go codec.
package storage

import (
	"context"
	"encoding/binary"
	"unsafe"

	"github.com/hupe1980/vsearch/blobstore"
	"github.com/hupe1980/vsearch/verrors"
)

// Every array blob is an 8-byte little-endian element count followed by
// the raw element bytes, the same layout group/binary.go uses, so a blob
// written by one side is readable by the other without conversion.

// PutFloat32Array writes v to name as a header-prefixed float32 array.
func PutFloat32Array(ctx context.Context, store blobstore.BlobStore, name string, v []float32) error {
	return putArray(ctx, store, name, v, 4)
}

// PutUint64Array writes v to name as a header-prefixed uint64 array.
func PutUint64Array(ctx context.Context, store blobstore.BlobStore, name string, v []uint64) error {
	return putArray(ctx, store, name, v, 8)
}

// PutInt32Array writes v to name as a header-prefixed int32 array, the
// layout the CLI uses for a standalone --index_uri/--sizes_uri array
// when it is stored apart from a group's own binary.go codec.
func PutInt32Array(ctx context.Context, store blobstore.BlobStore, name string, v []int32) error {
	return putArray(ctx, store, name, v, 4)
}

func putArray[T any](ctx context.Context, store blobstore.BlobStore, name string, v []T, elemSize int) error {
	buf := make([]byte, 8+len(v)*elemSize)
	binary.LittleEndian.PutUint64(buf, uint64(len(v)))
	if len(v) > 0 {
		src := unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*elemSize)
		copy(buf[8:], src)
	}
	if err := store.Put(ctx, name, buf); err != nil {
		return verrors.IoFailuref("storage: write %q: %v", name, err)
	}
	return nil
}

// GetFloat32Array reads a header-prefixed float32 array from name.
func GetFloat32Array(ctx context.Context, store blobstore.BlobStore, name string) ([]float32, error) {
	raw, err := readAll(ctx, store, name)
	if err != nil {
		return nil, err
	}
	n, body, err := decodeHeader(name, raw, 4)
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	if n > 0 {
		dst := unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), n*4)
		copy(dst, body)
	}
	return out, nil
}

// GetUint64Array reads a header-prefixed uint64 array from name.
func GetUint64Array(ctx context.Context, store blobstore.BlobStore, name string) ([]uint64, error) {
	raw, err := readAll(ctx, store, name)
	if err != nil {
		return nil, err
	}
	n, body, err := decodeHeader(name, raw, 8)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, n)
	if n > 0 {
		dst := unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), n*8)
		copy(dst, body)
	}
	return out, nil
}

// GetInt32Array reads a header-prefixed int32 array from name.
func GetInt32Array(ctx context.Context, store blobstore.BlobStore, name string) ([]int32, error) {
	raw, err := readAll(ctx, store, name)
	if err != nil {
		return nil, err
	}
	n, body, err := decodeHeader(name, raw, 4)
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	if n > 0 {
		dst := unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), n*4)
		copy(dst, body)
	}
	return out, nil
}

func readAll(ctx context.Context, store blobstore.BlobStore, name string) ([]byte, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, verrors.IoFailuref("storage: open %q: %v", name, err)
	}
	defer b.Close()

	buf := make([]byte, b.Size())
	if _, err := b.ReadAt(ctx, buf, 0); err != nil {
		return nil, verrors.IoFailuref("storage: read %q: %v", name, err)
	}
	return buf, nil
}

func decodeHeader(name string, raw []byte, elemSize int) (int, []byte, error) {
	if len(raw) < 8 {
		return 0, nil, verrors.IoFailuref("storage: %q truncated header", name)
	}
	n := binary.LittleEndian.Uint64(raw)
	want := 8 + int(n)*elemSize
	if len(raw) != want {
		return 0, nil, verrors.IoFailuref("storage: %q length mismatch: header says %d elements (%d bytes), got %d bytes", name, n, want, len(raw))
	}
	return int(n), raw[8:], nil
}
