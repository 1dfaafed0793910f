package mcap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckMagic(t *testing.T) {
	t.Run("valid magic", func(t *testing.T) {
		version, err := CheckMagic(Magic)
		require.NoError(t, err)
		assert.Equal(t, byte('0'), version)
	})
	t.Run("future version accepted", func(t *testing.T) {
		magic := append([]byte{}, Magic...)
		magic[5] = '1'
		version, err := CheckMagic(magic)
		require.NoError(t, err)
		assert.Equal(t, byte('1'), version)
	})
	t.Run("every corrupted byte rejected", func(t *testing.T) {
		for i := 0; i < len(Magic); i++ {
			if i == 5 {
				continue // version byte is not validated
			}
			magic := append([]byte{}, Magic...)
			magic[i] ^= 0xff
			_, err := CheckMagic(magic)
			assert.ErrorIs(t, err, ErrInvalidMagic, "byte %d", i)
		}
	})
	t.Run("short input rejected", func(t *testing.T) {
		_, err := CheckMagic(Magic[:7])
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})
}

func TestHeaderRoundTrip(t *testing.T) {
	header := &Header{Profile: "ros2", Library: "pybag"}
	parsed, err := ParseHeader(encodeHeader(header))
	require.NoError(t, err)
	assert.Equal(t, header, parsed)
}

func TestFooterRoundTrip(t *testing.T) {
	footer := &Footer{SummaryStart: 1024, SummaryOffsetStart: 0, SummaryCRC: 0}
	parsed, err := ParseFooter(encodeFooter(footer))
	require.NoError(t, err)
	assert.Equal(t, footer, parsed)
}

func TestFooterLengthSentinel(t *testing.T) {
	for _, n := range []int{0, 19, 21} {
		_, err := ParseFooter(make([]byte, n))
		assert.ErrorIs(t, err, ErrInvalidFormat, "length %d", n)
	}
}

func TestSchemaRoundTrip(t *testing.T) {
	cases := []struct {
		assertion string
		schema    *Schema
	}{
		{"simple", &Schema{ID: 1, Name: "pkg/Type", Encoding: "ros2msg", Data: []byte("int32 x\n")}},
		{"empty data", &Schema{ID: 42, Name: "x", Encoding: "", Data: []byte{}}},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			parsed, err := ParseSchema(encodeSchema(c.schema))
			require.NoError(t, err)
			assert.Equal(t, c.schema, parsed)
		})
	}
	t.Run("reserved id zero ignored", func(t *testing.T) {
		parsed, err := ParseSchema(encodeSchema(&Schema{ID: 0, Name: "x"}))
		require.NoError(t, err)
		assert.Nil(t, parsed)
	})
}

func TestChannelRoundTrip(t *testing.T) {
	channel := &Channel{
		ID:              7,
		SchemaID:        3,
		Topic:           "/camera/image",
		MessageEncoding: "cdr",
		Metadata:        map[string]string{"offered_qos_profiles": "default", "a": "b"},
	}
	parsed, err := ParseChannel(encodeChannel(channel))
	require.NoError(t, err)
	assert.Equal(t, channel, parsed)
}

func TestMessageRoundTrip(t *testing.T) {
	msg := &Message{
		ChannelID:   1,
		Sequence:    9,
		LogTime:     1000,
		PublishTime: 999,
		Data:        []byte{1, 2, 3},
	}
	parsed, err := ParseMessage(encodeMessage(msg))
	require.NoError(t, err)
	assert.Equal(t, msg, parsed)

	t.Run("empty payload", func(t *testing.T) {
		msg := &Message{ChannelID: 1, Data: []byte{}}
		parsed, err := ParseMessage(encodeMessage(msg))
		require.NoError(t, err)
		assert.Equal(t, msg, parsed)
	})
	t.Run("short body rejected", func(t *testing.T) {
		_, err := ParseMessage(make([]byte, 21))
		assert.ErrorIs(t, err, ErrInvalidFormat)
	})
}

func TestChunkRoundTrip(t *testing.T) {
	chunk := &Chunk{
		MessageStartTime: 10,
		MessageEndTime:   20,
		UncompressedSize: 100,
		UncompressedCRC:  0xdeadbeef,
		Compression:      "lz4",
		Records:          []byte{5, 0, 0, 0, 0, 0, 0, 0, 0},
	}
	parsed, err := ParseChunk(encodeChunk(chunk))
	require.NoError(t, err)
	assert.Equal(t, chunk, parsed)
}

func TestMessageIndexRoundTrip(t *testing.T) {
	idx := &MessageIndex{
		ChannelID: 3,
		Records: []MessageIndexEntry{
			{Timestamp: 1, Offset: 0},
			{Timestamp: 2, Offset: 31},
		},
	}
	parsed, err := ParseMessageIndex(encodeMessageIndex(idx))
	require.NoError(t, err)
	assert.Equal(t, idx, parsed)
}

func TestChunkIndexRoundTrip(t *testing.T) {
	idx := &ChunkIndex{
		MessageStartTime:    5,
		MessageEndTime:      10,
		ChunkStartOffset:    1000,
		ChunkLength:         512,
		MessageIndexOffsets: map[uint16]uint64{},
		MessageIndexLength:  0,
		Compression:         CompressionZSTD,
		CompressedSize:      128,
		UncompressedSize:    400,
	}
	parsed, err := ParseChunkIndex(encodeChunkIndex(idx))
	require.NoError(t, err)
	assert.Equal(t, idx, parsed)

	t.Run("with offsets", func(t *testing.T) {
		idx.MessageIndexOffsets = map[uint16]uint64{1: 10, 2: 20, 9: 90}
		parsed, err := ParseChunkIndex(encodeChunkIndex(idx))
		require.NoError(t, err)
		assert.Equal(t, idx, parsed)
	})
}

func TestAttachmentRoundTrip(t *testing.T) {
	attachment := &Attachment{
		LogTime:    1,
		CreateTime: 2,
		Name:       "calibration",
		MediaType:  "application/octet-stream",
		Data:       []byte{1, 2, 3, 4},
	}
	body := encodeAttachment(attachment)
	parsed, err := ParseAttachment(body)
	require.NoError(t, err)
	assert.Equal(t, attachment.Name, parsed.Name)
	assert.Equal(t, attachment.MediaType, parsed.MediaType)
	assert.Equal(t, attachment.Data, parsed.Data)
	// trailing CRC covers everything before it
	assert.Equal(t, checksum(body[:len(body)-4]), parsed.CRC)
}

func TestAttachmentIndexRoundTrip(t *testing.T) {
	idx := &AttachmentIndex{
		Offset:     100,
		Length:     50,
		LogTime:    1,
		CreateTime: 2,
		DataSize:   4,
		Name:       "calibration",
		MediaType:  "application/octet-stream",
	}
	parsed, err := ParseAttachmentIndex(encodeAttachmentIndex(idx))
	require.NoError(t, err)
	assert.Equal(t, idx, parsed)
}

func TestStatisticsRoundTrip(t *testing.T) {
	stats := &Statistics{
		MessageCount:         100,
		SchemaCount:          1,
		ChannelCount:         2,
		AttachmentCount:      3,
		MetadataCount:        4,
		ChunkCount:           5,
		MessageStartTime:     1000,
		MessageEndTime:       2000,
		ChannelMessageCounts: map[uint16]uint64{1: 60, 2: 40},
	}
	parsed, err := ParseStatistics(encodeStatistics(stats))
	require.NoError(t, err)
	assert.Equal(t, stats, parsed)
}

func TestMetadataRoundTrip(t *testing.T) {
	metadata := &Metadata{
		Name:     "robot",
		Metadata: map[string]string{"serial": "A12", "site": "lab"},
	}
	parsed, err := ParseMetadata(encodeMetadata(metadata))
	require.NoError(t, err)
	assert.Equal(t, metadata, parsed)
}

func TestMetadataIndexRoundTrip(t *testing.T) {
	idx := &MetadataIndex{Offset: 12, Length: 34, Name: "robot"}
	parsed, err := ParseMetadataIndex(encodeMetadataIndex(idx))
	require.NoError(t, err)
	assert.Equal(t, idx, parsed)
}

func TestSummaryOffsetRoundTrip(t *testing.T) {
	so := &SummaryOffset{GroupOpcode: OpSchema, GroupStart: 10, GroupLength: 20}
	parsed, err := ParseSummaryOffset(encodeSummaryOffset(so))
	require.NoError(t, err)
	assert.Equal(t, so, parsed)
}

func TestDataEndRoundTrip(t *testing.T) {
	de := &DataEnd{DataSectionCRC: 0}
	parsed, err := ParseDataEnd(encodeDataEnd(de))
	require.NoError(t, err)
	assert.Equal(t, de, parsed)
}

func TestStringMapByteLengthPrefix(t *testing.T) {
	// the u32 prefix counts body bytes, not entries
	m := map[string]string{"k": "v", "key2": "value2"}
	buf := appendStringMap(nil, m)
	bodyLen := 4 + 1 + 4 + 1 + 4 + 4 + 4 + 6
	assert.Equal(t, 4+bodyLen, len(buf))
	assert.Equal(t, byte(bodyLen), buf[0])
}

func TestTruncatedBodiesRejected(t *testing.T) {
	channel := &Channel{ID: 1, Topic: "/t", MessageEncoding: "cdr", Metadata: map[string]string{}}
	body := encodeChannel(channel)
	for n := 0; n < len(body); n++ {
		_, err := ParseChannel(body[:n])
		assert.Error(t, err, "truncation at %d", n)
	}
}
