package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vsearch/storage"
)

func TestLoadIVFIndicesFromIndexURI(t *testing.T) {
	ctx := context.Background()
	uri := filepath.Join(t.TempDir(), "index")

	store, name, err := storage.Open(ctx, uri)
	require.NoError(t, err)
	require.NoError(t, storage.PutInt32Array(ctx, store, name, []int32{0, 3, 7, 10}))

	indices, err := loadIVFIndices(ctx, uri, "")
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 3, 7, 10}, indices)
}

func TestLoadIVFIndicesFromSizesURIPrefixSums(t *testing.T) {
	ctx := context.Background()
	uri := filepath.Join(t.TempDir(), "sizes")

	store, name, err := storage.Open(ctx, uri)
	require.NoError(t, err)
	require.NoError(t, storage.PutInt32Array(ctx, store, name, []int32{3, 4, 3}))

	indices, err := loadIVFIndices(ctx, "", uri)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 3, 7, 10}, indices)
}
