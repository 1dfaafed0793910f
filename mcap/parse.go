package mcap

import (
	"bytes"
	"fmt"

	"github.com/siliconlad/pybag/bio"
)

const (
	// footerLength is the fixed footer body size. Files with any other
	// footer length are rejected.
	footerLength = 8 + 8 + 4
	// messageHeaderLength is the fixed portion of a message body before the
	// payload bytes.
	messageHeaderLength = 2 + 4 + 8 + 8
)

// CheckMagic validates the 8-byte magic and returns the version byte. Any
// version byte is accepted.
func CheckMagic(buf []byte) (byte, error) {
	if len(buf) < len(Magic) ||
		!bytes.Equal(buf[:5], Magic[:5]) ||
		!bytes.Equal(buf[6:8], Magic[6:8]) {
		return 0, ErrInvalidMagic
	}
	return buf[5], nil
}

func parseString(v *bio.SliceView) (string, error) {
	n, err := v.Uint32()
	if err != nil {
		return "", err
	}
	s, err := v.Slice(int(n))
	if err != nil {
		return "", err
	}
	return string(s), nil
}

func parseBytes(v *bio.SliceView) ([]byte, error) {
	n, err := v.Uint32()
	if err != nil {
		return nil, err
	}
	s, err := v.Slice(int(n))
	if err != nil {
		return nil, err
	}
	return append([]byte{}, s...), nil
}

// parseStringMap decodes a byte-length-prefixed string map. The prefix counts
// body bytes, not entries.
func parseStringMap(v *bio.SliceView) (map[string]string, error) {
	byteLen, err := v.Uint32()
	if err != nil {
		return nil, err
	}
	body, err := v.Slice(int(byteLen))
	if err != nil {
		return nil, err
	}
	m := make(map[string]string)
	inner := bio.NewSliceView(body)
	for !inner.Empty() {
		key, err := parseString(inner)
		if err != nil {
			return nil, fmt.Errorf("failed to read map key: %w", err)
		}
		value, err := parseString(inner)
		if err != nil {
			return nil, fmt.Errorf("failed to read map value: %w", err)
		}
		m[key] = value
	}
	return m, nil
}

// parseIDMap decodes a byte-length-prefixed map of channel id to uint64.
func parseIDMap(v *bio.SliceView) (map[uint16]uint64, error) {
	byteLen, err := v.Uint32()
	if err != nil {
		return nil, err
	}
	body, err := v.Slice(int(byteLen))
	if err != nil {
		return nil, err
	}
	m := make(map[uint16]uint64)
	inner := bio.NewSliceView(body)
	for !inner.Empty() {
		id, err := inner.Uint16()
		if err != nil {
			return nil, fmt.Errorf("failed to read map key: %w", err)
		}
		value, err := inner.Uint64()
		if err != nil {
			return nil, fmt.Errorf("failed to read map value: %w", err)
		}
		m[id] = value
	}
	return m, nil
}

// ParseHeader parses a header record body.
func ParseHeader(buf []byte) (*Header, error) {
	v := bio.NewSliceView(buf)
	profile, err := parseString(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	library, err := parseString(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read library: %w", err)
	}
	return &Header{Profile: profile, Library: library}, nil
}

// ParseFooter parses a footer record body.
func ParseFooter(buf []byte) (*Footer, error) {
	if len(buf) != footerLength {
		return nil, fmt.Errorf("%w: footer body is %d bytes, expected %d",
			ErrInvalidFormat, len(buf), footerLength)
	}
	v := bio.NewSliceView(buf)
	summaryStart, _ := v.Uint64()
	summaryOffsetStart, _ := v.Uint64()
	summaryCRC, _ := v.Uint32()
	return &Footer{
		SummaryStart:       summaryStart,
		SummaryOffsetStart: summaryOffsetStart,
		SummaryCRC:         summaryCRC,
	}, nil
}

// ParseSchema parses a schema record body. Schemas with the reserved ID zero
// yield nil and should be ignored.
func ParseSchema(buf []byte) (*Schema, error) {
	v := bio.NewSliceView(buf)
	id, err := v.Uint16()
	if err != nil {
		return nil, fmt.Errorf("failed to read schema ID: %w", err)
	}
	if id == 0 {
		return nil, nil
	}
	name, err := parseString(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema name: %w", err)
	}
	encoding, err := parseString(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema encoding: %w", err)
	}
	data, err := parseBytes(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema data: %w", err)
	}
	return &Schema{ID: id, Name: name, Encoding: encoding, Data: data}, nil
}

// ParseChannel parses a channel record body.
func ParseChannel(buf []byte) (*Channel, error) {
	v := bio.NewSliceView(buf)
	id, err := v.Uint16()
	if err != nil {
		return nil, fmt.Errorf("failed to read channel ID: %w", err)
	}
	schemaID, err := v.Uint16()
	if err != nil {
		return nil, fmt.Errorf("failed to read schema ID: %w", err)
	}
	topic, err := parseString(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read topic: %w", err)
	}
	messageEncoding, err := parseString(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read message encoding: %w", err)
	}
	metadata, err := parseStringMap(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read channel metadata: %w", err)
	}
	return &Channel{
		ID:              id,
		SchemaID:        schemaID,
		Topic:           topic,
		MessageEncoding: messageEncoding,
		Metadata:        metadata,
	}, nil
}

// ParseMessage parses a message record body. The payload is copied out of buf.
func ParseMessage(buf []byte) (*Message, error) {
	if len(buf) < messageHeaderLength {
		return nil, fmt.Errorf("%w: message body is %d bytes, expected at least %d",
			ErrInvalidFormat, len(buf), messageHeaderLength)
	}
	v := bio.NewSliceView(buf)
	channelID, _ := v.Uint16()
	sequence, _ := v.Uint32()
	logTime, _ := v.Uint64()
	publishTime, _ := v.Uint64()
	data, _ := v.Slice(v.Remaining())
	return &Message{
		ChannelID:   channelID,
		Sequence:    sequence,
		LogTime:     logTime,
		PublishTime: publishTime,
		Data:        append([]byte{}, data...),
	}, nil
}

// ParseChunk parses a chunk record body. Records alias buf.
func ParseChunk(buf []byte) (*Chunk, error) {
	v := bio.NewSliceView(buf)
	messageStartTime, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read start time: %w", err)
	}
	messageEndTime, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read end time: %w", err)
	}
	uncompressedSize, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read uncompressed size: %w", err)
	}
	uncompressedCRC, err := v.Uint32()
	if err != nil {
		return nil, fmt.Errorf("failed to read uncompressed CRC: %w", err)
	}
	compression, err := parseString(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read compression: %w", err)
	}
	recordsLen, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read records length: %w", err)
	}
	records, err := v.Slice(int(recordsLen))
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk records: %w", err)
	}
	return &Chunk{
		MessageStartTime: messageStartTime,
		MessageEndTime:   messageEndTime,
		UncompressedSize: uncompressedSize,
		UncompressedCRC:  uncompressedCRC,
		Compression:      compression,
		Records:          records,
	}, nil
}

// ParseMessageIndex parses a message index record body.
func ParseMessageIndex(buf []byte) (*MessageIndex, error) {
	v := bio.NewSliceView(buf)
	channelID, err := v.Uint16()
	if err != nil {
		return nil, fmt.Errorf("failed to read channel ID: %w", err)
	}
	byteLen, err := v.Uint32()
	if err != nil {
		return nil, fmt.Errorf("failed to read entry byte length: %w", err)
	}
	body, err := v.Slice(int(byteLen))
	if err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}
	inner := bio.NewSliceView(body)
	records := make([]MessageIndexEntry, 0, len(body)/(8+8))
	for !inner.Empty() {
		timestamp, err := inner.Uint64()
		if err != nil {
			return nil, fmt.Errorf("failed to read entry timestamp: %w", err)
		}
		offset, err := inner.Uint64()
		if err != nil {
			return nil, fmt.Errorf("failed to read entry offset: %w", err)
		}
		records = append(records, MessageIndexEntry{Timestamp: timestamp, Offset: offset})
	}
	return &MessageIndex{ChannelID: channelID, Records: records}, nil
}

// ParseChunkIndex parses a chunk index record body.
func ParseChunkIndex(buf []byte) (*ChunkIndex, error) {
	v := bio.NewSliceView(buf)
	messageStartTime, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read start time: %w", err)
	}
	messageEndTime, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read end time: %w", err)
	}
	chunkStartOffset, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk start offset: %w", err)
	}
	chunkLength, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk length: %w", err)
	}
	messageIndexOffsets, err := parseIDMap(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read message index offsets: %w", err)
	}
	messageIndexLength, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read message index length: %w", err)
	}
	compression, err := parseString(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read compression: %w", err)
	}
	compressedSize, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read compressed size: %w", err)
	}
	uncompressedSize, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read uncompressed size: %w", err)
	}
	return &ChunkIndex{
		MessageStartTime:    messageStartTime,
		MessageEndTime:      messageEndTime,
		ChunkStartOffset:    chunkStartOffset,
		ChunkLength:         chunkLength,
		MessageIndexOffsets: messageIndexOffsets,
		MessageIndexLength:  messageIndexLength,
		Compression:         CompressionFormat(compression),
		CompressedSize:      compressedSize,
		UncompressedSize:    uncompressedSize,
	}, nil
}

// ParseAttachment parses an attachment record body. The data is copied.
func ParseAttachment(buf []byte) (*Attachment, error) {
	v := bio.NewSliceView(buf)
	logTime, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read log time: %w", err)
	}
	createTime, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read create time: %w", err)
	}
	name, err := parseString(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment name: %w", err)
	}
	mediaType, err := parseString(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read media type: %w", err)
	}
	dataLen, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read data size: %w", err)
	}
	data, err := v.Slice(int(dataLen))
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment data: %w", err)
	}
	crc, err := v.Uint32()
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment CRC: %w", err)
	}
	return &Attachment{
		LogTime:    logTime,
		CreateTime: createTime,
		Name:       name,
		MediaType:  mediaType,
		Data:       append([]byte{}, data...),
		CRC:        crc,
	}, nil
}

// ParseAttachmentIndex parses an attachment index record body.
func ParseAttachmentIndex(buf []byte) (*AttachmentIndex, error) {
	v := bio.NewSliceView(buf)
	offset, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read offset: %w", err)
	}
	length, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read length: %w", err)
	}
	logTime, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read log time: %w", err)
	}
	createTime, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read create time: %w", err)
	}
	dataSize, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read data size: %w", err)
	}
	name, err := parseString(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment name: %w", err)
	}
	mediaType, err := parseString(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read media type: %w", err)
	}
	return &AttachmentIndex{
		Offset:     offset,
		Length:     length,
		LogTime:    logTime,
		CreateTime: createTime,
		DataSize:   dataSize,
		Name:       name,
		MediaType:  mediaType,
	}, nil
}

// ParseStatistics parses a statistics record body.
func ParseStatistics(buf []byte) (*Statistics, error) {
	v := bio.NewSliceView(buf)
	messageCount, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read message count: %w", err)
	}
	schemaCount, err := v.Uint16()
	if err != nil {
		return nil, fmt.Errorf("failed to read schema count: %w", err)
	}
	channelCount, err := v.Uint32()
	if err != nil {
		return nil, fmt.Errorf("failed to read channel count: %w", err)
	}
	attachmentCount, err := v.Uint32()
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment count: %w", err)
	}
	metadataCount, err := v.Uint32()
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata count: %w", err)
	}
	chunkCount, err := v.Uint32()
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk count: %w", err)
	}
	messageStartTime, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read message start time: %w", err)
	}
	messageEndTime, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read message end time: %w", err)
	}
	channelMessageCounts, err := parseIDMap(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read channel message counts: %w", err)
	}
	return &Statistics{
		MessageCount:         messageCount,
		SchemaCount:          schemaCount,
		ChannelCount:         channelCount,
		AttachmentCount:      attachmentCount,
		MetadataCount:        metadataCount,
		ChunkCount:           chunkCount,
		MessageStartTime:     messageStartTime,
		MessageEndTime:       messageEndTime,
		ChannelMessageCounts: channelMessageCounts,
	}, nil
}

// ParseMetadata parses a metadata record body.
func ParseMetadata(buf []byte) (*Metadata, error) {
	v := bio.NewSliceView(buf)
	name, err := parseString(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata name: %w", err)
	}
	metadata, err := parseStringMap(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata map: %w", err)
	}
	return &Metadata{Name: name, Metadata: metadata}, nil
}

// ParseMetadataIndex parses a metadata index record body.
func ParseMetadataIndex(buf []byte) (*MetadataIndex, error) {
	v := bio.NewSliceView(buf)
	offset, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read offset: %w", err)
	}
	length, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read length: %w", err)
	}
	name, err := parseString(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata name: %w", err)
	}
	return &MetadataIndex{Offset: offset, Length: length, Name: name}, nil
}

// ParseSummaryOffset parses a summary offset record body.
func ParseSummaryOffset(buf []byte) (*SummaryOffset, error) {
	v := bio.NewSliceView(buf)
	groupOpcode, err := v.Uint8()
	if err != nil {
		return nil, fmt.Errorf("failed to read group opcode: %w", err)
	}
	groupStart, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read group start: %w", err)
	}
	groupLength, err := v.Uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to read group length: %w", err)
	}
	return &SummaryOffset{
		GroupOpcode: OpCode(groupOpcode),
		GroupStart:  groupStart,
		GroupLength: groupLength,
	}, nil
}

// ParseDataEnd parses a data end record body.
func ParseDataEnd(buf []byte) (*DataEnd, error) {
	v := bio.NewSliceView(buf)
	crc, err := v.Uint32()
	if err != nil {
		return nil, fmt.Errorf("failed to read data section CRC: %w", err)
	}
	return &DataEnd{DataSectionCRC: crc}, nil
}
