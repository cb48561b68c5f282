// Package group implements a versioned on-disk group layout: a group is
// a directory of named array blobs plus a typed metadata key/value
// record, addressed through a blobstore.BlobStore so the same code
// serves local disk, S3, and MinIO backends without change.
//
// Arrays are written as fixed little-endian headers over raw slice
// bytes, the fastest path for bulk float32 I/O, organized one blob per
// logical array name rather than one file per index.
package group

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/vsearch/blobstore"
	"github.com/hupe1980/vsearch/verrors"
)

// Version identifies the physical naming scheme of a group on disk.
// Readers must consult ivfLayoutFor/vamanaLayoutFor; an unrecognized
// version is fatal.
type Version string

const (
	// CurrentVersion is the layout this package writes.
	CurrentVersion Version = "0.3"
	VersionV01     Version = "0.1"
	VersionV02     Version = "0.2"
)

// layout maps logical IVF-Flat artifact names to their physical blob
// names for one storage version.
type ivfLayout struct {
	centroids string
	indices   string // prefix-sum offsets, length K+1
	sizes     string // per-partition sizes, length K (v0.3 ships both)
	ids       string
	vectors   string
	metadata  string
}

// layout maps logical Vamana artifact names to physical blob names.
type vamanaLayout struct {
	vectors   string
	adjScores string
	adjIDs    string
	adjIndex  string
	metadata  string
}

var ivfLayouts = map[Version]ivfLayout{
	CurrentVersion: {
		centroids: "partition_centroids",
		indices:   "partition_indexes",
		sizes:     "partition_sizes",
		ids:       "shuffled_vector_ids",
		vectors:   "shuffled_vectors",
		metadata:  "metadata.json",
	},
	VersionV02: {
		centroids: "centroids.tdb",
		indices:   "index.tdb",
		sizes:     "",
		ids:       "ids.tdb",
		vectors:   "parts.tdb",
		metadata:  "metadata.json",
	},
	VersionV01: {
		centroids: "centroids.tdb",
		indices:   "index.tdb",
		sizes:     "",
		ids:       "ids.tdb",
		vectors:   "parts.tdb",
		metadata:  "metadata.json",
	},
}

var vamanaLayouts = map[Version]vamanaLayout{
	CurrentVersion: {
		vectors:   "feature_vectors",
		adjScores: "adj_scores",
		adjIDs:    "adj_ids",
		adjIndex:  "adj_index",
		metadata:  "metadata.json",
	},
}

func ivfLayoutFor(v Version) (ivfLayout, error) {
	l, ok := ivfLayouts[v]
	if !ok {
		return ivfLayout{}, verrors.InvalidConfigf("group: unknown IVF storage version %q", v)
	}
	return l, nil
}

func vamanaLayoutFor(v Version) (vamanaLayout, error) {
	l, ok := vamanaLayouts[v]
	if !ok {
		return vamanaLayout{}, verrors.InvalidConfigf("group: unknown Vamana storage version %q", v)
	}
	return l, nil
}

// Metadata is the typed key/value record attached to a group. Values are
// stored as JSON scalars; callers read them back with the typed Get*
// helpers rather than type-switching.
type Metadata map[string]any

// GetUint64 reads a required uint64 metadata key. There is no default
// for a missing key: callers must treat an absent key as a corrupt or
// incompatible group, not silently fall back.
func (m Metadata) GetUint64(key string) (uint64, error) {
	v, ok := m[key]
	if !ok {
		return 0, verrors.IoFailuref("group: metadata key %q absent", key)
	}
	switch n := v.(type) {
	case float64:
		return uint64(n), nil
	case uint64:
		return n, nil
	case json.Number:
		u, err := n.Int64()
		return uint64(u), err
	default:
		return 0, verrors.InvalidConfigf("group: metadata key %q is not a number", key)
	}
}

// GetFloat32 reads a required float32 metadata key.
func (m Metadata) GetFloat32(key string) (float32, error) {
	v, ok := m[key]
	if !ok {
		return 0, verrors.IoFailuref("group: metadata key %q absent", key)
	}
	switch n := v.(type) {
	case float64:
		return float32(n), nil
	case json.Number:
		f, err := n.Float64()
		return float32(f), err
	default:
		return 0, verrors.InvalidConfigf("group: metadata key %q is not a number", key)
	}
}

func writeMetadata(ctx context.Context, store blobstore.BlobStore, name string, m Metadata) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("group: marshal metadata: %w", err)
	}
	if err := store.Put(ctx, name, data); err != nil {
		return verrors.IoFailuref("group: write metadata %q: %v", name, err)
	}
	return nil
}

func readMetadata(ctx context.Context, store blobstore.BlobStore, name string) (Metadata, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, verrors.IoFailuref("group: open metadata %q: %v", name, err)
	}
	defer b.Close()

	buf := make([]byte, b.Size())
	if _, err := b.ReadAt(ctx, buf, 0); err != nil {
		return nil, verrors.IoFailuref("group: read metadata %q: %v", name, err)
	}

	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	var m Metadata
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("group: unmarshal metadata: %w", err)
	}
	return m, nil
}
