package mcap

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkCodecRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("the quick brown fox "), 100)
	cases := []struct {
		format     CompressionFormat
		compressed bool
	}{
		{CompressionNone, false},
		{CompressionLZ4, true},
		{CompressionZSTD, true},
	}
	for _, c := range cases {
		t.Run(c.format.String(), func(t *testing.T) {
			compressed, format, err := compressChunk(c.format, payload)
			require.NoError(t, err)
			assert.Equal(t, c.format, format)
			if c.compressed {
				assert.Less(t, len(compressed), len(payload))
			}
			decompressed, err := decompressChunk(format, compressed, uint64(len(payload)))
			require.NoError(t, err)
			assert.Equal(t, payload, decompressed)
		})
	}
}

func TestChunkCodecAcceptsNoneAlias(t *testing.T) {
	payload := []byte("data")
	out, err := decompressChunk("none", payload, uint64(len(payload)))
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestUnknownCompressionRejected(t *testing.T) {
	_, _, err := compressChunk("snappy", []byte("data"))
	assert.ErrorIs(t, err, UnknownCompressionError("snappy"))
	_, err = decompressChunk("snappy", []byte("data"), 4)
	assert.ErrorIs(t, err, UnknownCompressionError("snappy"))
}

func TestIncompressibleLZ4FallsBackToNone(t *testing.T) {
	payload := []byte{0x01} // too small for LZ4 to win
	out, format, err := compressChunk(CompressionLZ4, payload)
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, format)
	assert.Equal(t, payload, out)
}

func TestChecksumIsIEEE(t *testing.T) {
	assert.Equal(t, uint32(0x0d4a1185), checksum([]byte("hello world")))
}
