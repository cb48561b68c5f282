package group

import (
	"context"
	"io"

	"github.com/hupe1980/vsearch/blobstore"
	"github.com/hupe1980/vsearch/ivfflat"
	"github.com/hupe1980/vsearch/vamana"
	"github.com/hupe1980/vsearch/verrors"
)

// stagingPrefix roots every staged write under a sub-group invisible to
// ordinary readers: a reader addressing artifacts by their final names
// never observes one of them mid-write.
const stagingPrefix = "temp_data/"

// prefixedStore decorates a BlobStore, routing every name through a fixed
// prefix. WriteStaged uses it to write a full group's artifacts under
// stagingPrefix with the same WriteIVF/WriteVamana logic used for a direct
// write, then commits them into place as a final pass.
type prefixedStore struct {
	inner  blobstore.BlobStore
	prefix string
}

func (p prefixedStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	return p.inner.Open(ctx, p.prefix+name)
}

func (p prefixedStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return p.inner.Create(ctx, p.prefix+name)
}

func (p prefixedStore) Put(ctx context.Context, name string, data []byte) error {
	return p.inner.Put(ctx, p.prefix+name, data)
}

func (p prefixedStore) Delete(ctx context.Context, name string) error {
	return p.inner.Delete(ctx, p.prefix+name)
}

func (p prefixedStore) List(ctx context.Context, prefix string) ([]string, error) {
	return p.inner.List(ctx, p.prefix+prefix)
}

var _ blobstore.BlobStore = prefixedStore{}

// commitStaged moves every name in names from the staging prefix to its
// final location. It prefers store's Renamer capability (a single local
// rename, or an atomic key swap); absent that, it falls back to a
// copy-then-delete. commitStaged runs only after every staged write has
// succeeded, but it commits the names one at a time: if one fails, the
// names before it are already in place and the rest stay under the
// staging prefix.
func commitStaged(ctx context.Context, store blobstore.BlobStore, names []string) error {
	if renamer, ok := store.(blobstore.Renamer); ok {
		for _, name := range names {
			if err := renamer.Rename(ctx, stagingPrefix+name, name); err != nil {
				return verrors.IoFailuref("group: commit staged %q: %v", name, err)
			}
		}
		return nil
	}

	for _, name := range names {
		if err := copyBlob(ctx, store, stagingPrefix+name, name); err != nil {
			return verrors.IoFailuref("group: commit staged %q: %v", name, err)
		}
		_ = store.Delete(ctx, stagingPrefix+name)
	}
	return nil
}

func copyBlob(ctx context.Context, store blobstore.BlobStore, oldName, newName string) error {
	b, err := store.Open(ctx, oldName)
	if err != nil {
		return err
	}
	defer b.Close()

	buf := make([]byte, b.Size())
	if _, err := b.ReadAt(ctx, buf, 0); err != nil && err != io.EOF {
		return err
	}
	return store.Put(ctx, newName, buf)
}

// WriteIVFStaged writes g to store's current-version layout through a
// temp_data/ staging sub-group, committing every artifact into place only
// once the full set has been written successfully.
func WriteIVFStaged(ctx context.Context, store blobstore.BlobStore, g *ivfflat.Group) error {
	if err := WriteIVF(ctx, prefixedStore{inner: store, prefix: stagingPrefix}, g); err != nil {
		return err
	}
	l, err := ivfLayoutFor(CurrentVersion)
	if err != nil {
		return err
	}
	return commitStaged(ctx, store, ivfArtifactNames(l))
}

// WriteVamanaStaged writes idx through the same temp_data/ staging
// discipline as WriteIVFStaged.
func WriteVamanaStaged(ctx context.Context, store blobstore.BlobStore, idx *vamana.Index) error {
	if err := WriteVamana(ctx, prefixedStore{inner: store, prefix: stagingPrefix}, idx); err != nil {
		return err
	}
	l, err := vamanaLayoutFor(CurrentVersion)
	if err != nil {
		return err
	}
	return commitStaged(ctx, store, vamanaArtifactNames(l))
}

func ivfArtifactNames(l ivfLayout) []string {
	names := []string{l.centroids, l.ids, l.vectors, l.metadata}
	if l.indices != "" {
		names = append(names, l.indices)
	}
	if l.sizes != "" {
		names = append(names, l.sizes)
	}
	return names
}

func vamanaArtifactNames(l vamanaLayout) []string {
	return []string{l.vectors, l.adjScores, l.adjIDs, l.adjIndex, l.metadata}
}
