package mcap

import (
	"fmt"
	"hash/crc32"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// checksum computes the CRC32 (IEEE polynomial) of data.
func checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// compressChunk compresses chunk records with the named format and returns
// the format actually recorded. Empty or "none" passes the data through
// untouched; incompressible LZ4 input falls back to no compression, since an
// LZ4 block cannot represent it more compactly.
func compressChunk(compression CompressionFormat, data []byte) ([]byte, CompressionFormat, error) {
	switch compression {
	case CompressionNone, "none":
		return data, CompressionNone, nil
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		var c lz4.Compressor
		n, err := c.CompressBlock(data, buf)
		if err != nil {
			return nil, "", fmt.Errorf("lz4 compression failed: %w", err)
		}
		if n == 0 || n >= len(data) {
			return data, CompressionNone, nil
		}
		return buf[:n], CompressionLZ4, nil
	case CompressionZSTD:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, "", fmt.Errorf("failed to build zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), CompressionZSTD, nil
	default:
		return nil, "", UnknownCompressionError(compression)
	}
}

// decompressChunk inflates chunk records. LZ4 blocks carry no size header, so
// the uncompressed size from the chunk record is required.
func decompressChunk(compression CompressionFormat, data []byte, uncompressedSize uint64) ([]byte, error) {
	switch compression {
	case CompressionNone, "none":
		return data, nil
	case CompressionLZ4:
		out := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompression failed: %w", err)
		}
		return out[:n], nil
	case CompressionZSTD:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build zstd decoder: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("zstd decompression failed: %w", err)
		}
		return out, nil
	default:
		return nil, UnknownCompressionError(compression)
	}
}
