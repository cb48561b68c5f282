package group

import (
	"context"
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/hupe1980/vsearch/blobstore"
	"github.com/hupe1980/vsearch/verrors"
)

// Every array blob is written as an 8-byte little-endian element count
// followed by the raw element bytes. Float32/int32/uint64 slices are
// reinterpreted in place rather than copied element-by-element, keeping
// bulk array I/O on the zero-copy path.

func putFloat32Slice(ctx context.Context, store blobstore.BlobStore, name string, v []float32) error {
	return putSlice(ctx, store, name, v, 4)
}

func putInt32Slice(ctx context.Context, store blobstore.BlobStore, name string, v []int32) error {
	return putSlice(ctx, store, name, v, 4)
}

func putUint64Slice(ctx context.Context, store blobstore.BlobStore, name string, v []uint64) error {
	return putSlice(ctx, store, name, v, 8)
}

func putSlice[T any](ctx context.Context, store blobstore.BlobStore, name string, v []T, elemSize int) error {
	buf := make([]byte, 8+len(v)*elemSize)
	binary.LittleEndian.PutUint64(buf, uint64(len(v)))
	if len(v) > 0 {
		src := unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*elemSize)
		copy(buf[8:], src)
	}
	if err := store.Put(ctx, name, buf); err != nil {
		return verrors.IoFailure(fmt.Sprintf("group: write %q", name), err)
	}
	return nil
}

func getFloat32Slice(ctx context.Context, store blobstore.BlobStore, name string) ([]float32, error) {
	raw, err := readBlob(ctx, store, name)
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

func getInt32Slice(ctx context.Context, store blobstore.BlobStore, name string) ([]int32, error) {
	raw, err := readBlob(ctx, store, name)
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

func getUint64Slice(ctx context.Context, store blobstore.BlobStore, name string) ([]uint64, error) {
	raw, err := readBlob(ctx, store, name)
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

// unsafeBytesOf reinterprets a float32 slice's backing array as bytes
// without copying, for use as a ReadAt destination buffer.
func unsafeBytesOf(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}

func readBlob(ctx context.Context, store blobstore.BlobStore, name string) ([]byte, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		if err == blobstore.ErrNotFound {
			return nil, verrors.IoFailuref("group: missing required artifact %q", name)
		}
		return nil, verrors.IoFailure(fmt.Sprintf("group: open %q", name), err)
	}
	defer b.Close()

	buf := make([]byte, b.Size())
	if _, err := b.ReadAt(ctx, buf, 0); err != nil {
		return nil, verrors.IoFailure(fmt.Sprintf("group: read %q", name), err)
	}
	return buf, nil
}

func decodeHeader(name string, raw []byte, elemSize int) (int, []byte, error) {
	if len(raw) < 8 {
		return 0, nil, verrors.IoFailuref("group: %q truncated header", name)
	}
	n := binary.LittleEndian.Uint64(raw)
	want := 8 + int(n)*elemSize
	if len(raw) != want {
		return 0, nil, verrors.IoFailuref("group: %q length mismatch: header says %d elements (%d bytes), got %d bytes", name, n, want, len(raw))
	}
	return int(n), raw[8:], nil
}
