package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is the storage abstraction backing a persisted group: every
// array member of an IVF-Flat or Vamana group is addressed by name
// and read or written as an opaque byte blob. The array store itself
// (tile layout, columnar encoding) is out of scope for this module; group
// persistence only needs range reads and whole-blob writes.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create opens a blob for streaming writes.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a blob atomically in one call.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Implementations return nil if it does not exist.
	Delete(ctx context.Context, name string) error
	// List returns the names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	// ReadAt reads len(p) bytes starting at off. Same contract as io.ReaderAt,
	// plus a context so slow backends (S3, MinIO) can be cancelled.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a handle for streaming a new blob's contents.
type WritableBlob interface {
	io.Writer
	io.Closer
	// Sync flushes the blob. Close commits it on every backend; LocalStore
	// also commits on Sync, while S3 and MemoryStore treat Sync as a no-op.
	Sync() error
}

// Mappable is an optional interface for Blobs that support memory mapping.
type Mappable interface {
	// Bytes returns the underlying byte slice.
	// The slice is valid until the Blob is closed.
	// This is a zero-copy operation if supported.
	Bytes() ([]byte, error)
}

// RangeReader is an optional interface for Blobs whose backend can serve a
// byte range as a stream without buffering the whole blob (S3, MinIO).
// Implementations that lack a native ranged-GET fall back to ReadAt.
type RangeReader interface {
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
}

// Renamer is an optional capability for BlobStore implementations that can
// move a blob to a new name in a single operation (a local rename, or an
// atomic key swap). Callers staging a multi-blob write under a temporary
// prefix prefer this when available and fall back to a copy-then-delete
// otherwise.
type Renamer interface {
	Rename(ctx context.Context, oldName, newName string) error
}
