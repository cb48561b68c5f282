package blobstore

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionKind selects the block compressor a CachingStore uses when
// spilling fetched blocks into its block cache.
type CompressionKind uint8

const (
	// CompressionNone stores cached blocks as-is.
	CompressionNone CompressionKind = 0
	// CompressionLZ4 favors decode speed over ratio, for hot partitions
	// (IVF-Flat centroid lookups, Vamana beam-search neighbor fetches).
	CompressionLZ4 CompressionKind = 1
	// CompressionZSTD favors ratio over decode speed, for cold blocks
	// (full shuffled-vector scans during a rebuild).
	CompressionZSTD CompressionKind = 2
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) { zstdEncoderPool.Put(enc) }

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) { zstdDecoderPool.Put(dec) }

// blockHeader is [uncompressedSize uint32][compressedSize uint32]; a zero
// compressedSize means the block is stored uncompressed (compression did
// not help, or CompressionNone was selected).
const blockHeaderSize = 8

// compressBlock compresses data for cache storage, falling back to an
// uncompressed block when compression barely helps (ratio > 0.9).
func compressBlock(data []byte, kind CompressionKind) ([]byte, error) {
	if kind == CompressionNone || len(data) == 0 {
		return storeUncompressed(data), nil
	}

	var compressed []byte
	var err error
	switch kind {
	case CompressionLZ4:
		compressed, err = compressLZ4(data)
	case CompressionZSTD:
		compressed = getZstdEncoder().EncodeAll(data, nil)
	default:
		return storeUncompressed(data), nil
	}
	if err != nil {
		return nil, err
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		return storeUncompressed(data), nil
	}

	out := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	copy(out[blockHeaderSize:], compressed)
	return out, nil
}

func storeUncompressed(data []byte) []byte {
	out := make([]byte, blockHeaderSize+len(data))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], 0)
	copy(out[blockHeaderSize:], data)
	return out
}

func compressLZ4(data []byte) ([]byte, error) {
	out := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, out, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}
	return out[:n], nil
}

// decompressBlock reverses compressBlock. kind must match what the block
// was written with.
func decompressBlock(data []byte, kind CompressionKind) ([]byte, error) {
	if len(data) < blockHeaderSize {
		return nil, errors.New("blobstore: cached block too small for header")
	}

	uncompressedSize := binary.LittleEndian.Uint32(data[0:])
	compressedSize := binary.LittleEndian.Uint32(data[4:])

	if compressedSize == 0 {
		if uint32(len(data)) < blockHeaderSize+uncompressedSize {
			return nil, errors.New("blobstore: cached block shorter than its header claims")
		}
		return data[blockHeaderSize : blockHeaderSize+uncompressedSize], nil
	}

	if uint32(len(data)) < blockHeaderSize+compressedSize {
		return nil, errors.New("blobstore: compressed block shorter than its header claims")
	}
	body := data[blockHeaderSize : blockHeaderSize+compressedSize]
	out := make([]byte, uncompressedSize)

	switch kind {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, err
		}
		if uint32(n) != uncompressedSize {
			return nil, errors.New("blobstore: lz4 decompressed size mismatch")
		}
		return out, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		decoded, err := dec.DecodeAll(body, out[:0])
		putZstdDecoder(dec)
		if err != nil {
			return nil, err
		}
		if uint32(len(decoded)) != uncompressedSize {
			return nil, errors.New("blobstore: zstd decompressed size mismatch")
		}
		return decoded, nil
	default:
		return nil, errors.New("blobstore: unknown block compression kind")
	}
}
