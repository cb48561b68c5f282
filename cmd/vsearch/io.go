package main

import (
	"context"

	"github.com/hupe1980/vsearch/storage"
	"github.com/hupe1980/vsearch/tensor"
	"github.com/hupe1980/vsearch/verrors"
)

// loadMatrix resolves uri and reads a flat float32 array back as a
// dim×N column-major matrix; N is derived from the array length.
func loadMatrix(ctx context.Context, uri string, dim int) (*tensor.ColMajorMatrix[float32], error) {
	store, name, err := storage.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	data, err := storage.GetFloat32Array(ctx, store, name)
	if err != nil {
		return nil, err
	}
	if dim <= 0 || len(data)%dim != 0 {
		return nil, verrors.InvalidConfigf("vsearch: array at %q has length %d, not a multiple of dim %d", uri, len(data), dim)
	}
	return tensor.ColMajorMatrixFrom(data, dim, len(data)/dim)
}

func loadUint64Array(ctx context.Context, uri string) ([]uint64, error) {
	store, name, err := storage.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	return storage.GetUint64Array(ctx, store, name)
}

func loadInt32Array(ctx context.Context, uri string) ([]int32, error) {
	store, name, err := storage.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	return storage.GetInt32Array(ctx, store, name)
}

func writeUint64Rows(ctx context.Context, uri string, rows [][]uint64, width int) error {
	store, name, err := storage.Open(ctx, uri)
	if err != nil {
		return err
	}
	flat := make([]uint64, 0, len(rows)*width)
	for _, row := range rows {
		flat = append(flat, padUint64(row, width)...)
	}
	return storage.PutUint64Array(ctx, store, name, flat)
}

func writeFloat32Rows(ctx context.Context, uri string, rows [][]float32, width int) error {
	store, name, err := storage.Open(ctx, uri)
	if err != nil {
		return err
	}
	flat := make([]float32, 0, len(rows)*width)
	for _, row := range rows {
		flat = append(flat, padFloat32(row, width)...)
	}
	return storage.PutFloat32Array(ctx, store, name, flat)
}

// loadGroundTruthRows reads a flat row-major uint64 array and splits it
// into nqueries rows, inferring each row's width from the array's total
// length rather than requiring a separate shape flag.
func loadGroundTruthRows(ctx context.Context, uri string, nqueries int) ([][]uint64, error) {
	flat, err := loadUint64Array(ctx, uri)
	if err != nil {
		return nil, err
	}
	if nqueries <= 0 || len(flat)%nqueries != 0 {
		return nil, verrors.InvalidConfigf("vsearch: ground truth at %q has length %d, not a multiple of %d queries", uri, len(flat), nqueries)
	}
	width := len(flat) / nqueries
	rows := make([][]uint64, nqueries)
	for i := range rows {
		rows[i] = flat[i*width : (i+1)*width]
	}
	return rows, nil
}

func padUint64(row []uint64, width int) []uint64 {
	if len(row) >= width {
		return row[:width]
	}
	out := make([]uint64, width)
	copy(out, row)
	return out
}

func padFloat32(row []float32, width int) []float32 {
	if len(row) >= width {
		return row[:width]
	}
	out := make([]float32, width)
	copy(out, row)
	return out
}
