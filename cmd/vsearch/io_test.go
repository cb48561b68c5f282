package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vsearch/storage"
)

func TestPadUint64(t *testing.T) {
	assert.Equal(t, []uint64{1, 2, 3}, padUint64([]uint64{1, 2, 3, 4}, 3))
	assert.Equal(t, []uint64{1, 2, 0}, padUint64([]uint64{1, 2}, 3))
	assert.Equal(t, []uint64{1, 2, 3}, padUint64([]uint64{1, 2, 3}, 3))
}

func TestPadFloat32(t *testing.T) {
	assert.Equal(t, []float32{1, 2}, padFloat32([]float32{1, 2, 3}, 2))
	assert.Equal(t, []float32{1, 0}, padFloat32([]float32{1}, 2))
}

func TestLoadGroundTruthRowsSplitsByInferredWidth(t *testing.T) {
	ctx := context.Background()
	uri := filepath.Join(t.TempDir(), "groundtruth")

	store, name, err := storage.Open(ctx, uri)
	require.NoError(t, err)
	require.NoError(t, storage.PutUint64Array(ctx, store, name, []uint64{
		10, 11, 12,
		20, 21, 22,
		30, 31, 32,
	}))

	rows, err := loadGroundTruthRows(ctx, uri, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []uint64{10, 11, 12}, rows[0])
	assert.Equal(t, []uint64{20, 21, 22}, rows[1])
	assert.Equal(t, []uint64{30, 31, 32}, rows[2])
}

func TestLoadGroundTruthRowsRejectsUnevenSplit(t *testing.T) {
	ctx := context.Background()
	uri := filepath.Join(t.TempDir(), "groundtruth")

	store, name, err := storage.Open(ctx, uri)
	require.NoError(t, err)
	require.NoError(t, storage.PutUint64Array(ctx, store, name, []uint64{1, 2, 3, 4, 5}))

	_, err = loadGroundTruthRows(ctx, uri, 3)
	assert.Error(t, err)
}

func TestWriteAndLoadMatrixRoundTrip(t *testing.T) {
	ctx := context.Background()
	uri := filepath.Join(t.TempDir(), "vectors")

	store, name, err := storage.Open(ctx, uri)
	require.NoError(t, err)
	require.NoError(t, storage.PutFloat32Array(ctx, store, name, []float32{
		1, 2, 3,
		4, 5, 6,
	}))

	m, err := loadMatrix(ctx, uri, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, m.NumRows())
	assert.Equal(t, 2, m.NumCols())
}

func TestLoadMatrixRejectsBadDim(t *testing.T) {
	ctx := context.Background()
	uri := filepath.Join(t.TempDir(), "vectors")

	store, name, err := storage.Open(ctx, uri)
	require.NoError(t, err)
	require.NoError(t, storage.PutFloat32Array(ctx, store, name, []float32{1, 2, 3, 4, 5}))

	_, err = loadMatrix(ctx, uri, 3)
	assert.Error(t, err)
}
