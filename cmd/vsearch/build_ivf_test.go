package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vsearch/storage"
)

func TestIdsOrIdentityDefaultsToZeroBasedRange(t *testing.T) {
	ids, err := idsOrIdentity(context.Background(), "", 4)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1, 2, 3}, ids)
}

func TestIdsOrIdentityLoadsExternalArray(t *testing.T) {
	ctx := context.Background()
	uri := filepath.Join(t.TempDir(), "ids")

	store, name, err := storage.Open(ctx, uri)
	require.NoError(t, err)
	require.NoError(t, storage.PutUint64Array(ctx, store, name, []uint64{7, 9, 11}))

	ids, err := idsOrIdentity(ctx, uri, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint64{7, 9, 11}, ids)
}
