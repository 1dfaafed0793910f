package mcap

import (
	"encoding/binary"
	"io"
	"sort"
)

func appendUint16(buf []byte, x uint16) []byte {
	return binary.LittleEndian.AppendUint16(buf, x)
}

func appendUint32(buf []byte, x uint32) []byte {
	return binary.LittleEndian.AppendUint32(buf, x)
}

func appendUint64(buf []byte, x uint64) []byte {
	return binary.LittleEndian.AppendUint64(buf, x)
}

func appendPrefixedString(buf []byte, s string) []byte {
	buf = appendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendPrefixedBytes(buf []byte, b []byte) []byte {
	buf = appendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

// appendStringMap encodes a string map with its byte-length prefix. Keys are
// emitted in sorted order so encoding is deterministic.
func appendStringMap(buf []byte, m map[string]string) []byte {
	bodyLen := 0
	keys := make([]string, 0, len(m))
	for k, v := range m {
		bodyLen += 4 + len(k) + 4 + len(v)
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf = appendUint32(buf, uint32(bodyLen))
	for _, k := range keys {
		buf = appendPrefixedString(buf, k)
		buf = appendPrefixedString(buf, m[k])
	}
	return buf
}

// appendIDMap encodes a channel-id map with its byte-length prefix, in
// ascending id order.
func appendIDMap(buf []byte, m map[uint16]uint64) []byte {
	ids := make([]uint16, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	buf = appendUint32(buf, uint32(len(m)*(2+8)))
	for _, id := range ids {
		buf = appendUint16(buf, id)
		buf = appendUint64(buf, m[id])
	}
	return buf
}

func encodeHeader(h *Header) []byte {
	buf := make([]byte, 0, 4+len(h.Profile)+4+len(h.Library))
	buf = appendPrefixedString(buf, h.Profile)
	return appendPrefixedString(buf, h.Library)
}

func encodeFooter(f *Footer) []byte {
	buf := make([]byte, 0, footerLength)
	buf = appendUint64(buf, f.SummaryStart)
	buf = appendUint64(buf, f.SummaryOffsetStart)
	return appendUint32(buf, f.SummaryCRC)
}

func encodeSchema(s *Schema) []byte {
	buf := make([]byte, 0, 2+4+len(s.Name)+4+len(s.Encoding)+4+len(s.Data))
	buf = appendUint16(buf, s.ID)
	buf = appendPrefixedString(buf, s.Name)
	buf = appendPrefixedString(buf, s.Encoding)
	return appendPrefixedBytes(buf, s.Data)
}

func encodeChannel(c *Channel) []byte {
	buf := appendUint16(nil, c.ID)
	buf = appendUint16(buf, c.SchemaID)
	buf = appendPrefixedString(buf, c.Topic)
	buf = appendPrefixedString(buf, c.MessageEncoding)
	return appendStringMap(buf, c.Metadata)
}

func encodeMessage(m *Message) []byte {
	buf := make([]byte, 0, messageHeaderLength+len(m.Data))
	buf = appendUint16(buf, m.ChannelID)
	buf = appendUint32(buf, m.Sequence)
	buf = appendUint64(buf, m.LogTime)
	buf = appendUint64(buf, m.PublishTime)
	return append(buf, m.Data...)
}

func encodeChunk(c *Chunk) []byte {
	buf := make([]byte, 0, 8+8+8+4+4+len(c.Compression)+8+len(c.Records))
	buf = appendUint64(buf, c.MessageStartTime)
	buf = appendUint64(buf, c.MessageEndTime)
	buf = appendUint64(buf, c.UncompressedSize)
	buf = appendUint32(buf, c.UncompressedCRC)
	buf = appendPrefixedString(buf, c.Compression)
	buf = appendUint64(buf, uint64(len(c.Records)))
	return append(buf, c.Records...)
}

func encodeMessageIndex(idx *MessageIndex) []byte {
	buf := appendUint16(nil, idx.ChannelID)
	buf = appendUint32(buf, uint32(len(idx.Records)*(8+8)))
	for _, e := range idx.Records {
		buf = appendUint64(buf, e.Timestamp)
		buf = appendUint64(buf, e.Offset)
	}
	return buf
}

func encodeChunkIndex(idx *ChunkIndex) []byte {
	buf := appendUint64(nil, idx.MessageStartTime)
	buf = appendUint64(buf, idx.MessageEndTime)
	buf = appendUint64(buf, idx.ChunkStartOffset)
	buf = appendUint64(buf, idx.ChunkLength)
	buf = appendIDMap(buf, idx.MessageIndexOffsets)
	buf = appendUint64(buf, idx.MessageIndexLength)
	buf = appendPrefixedString(buf, string(idx.Compression))
	buf = appendUint64(buf, idx.CompressedSize)
	return appendUint64(buf, idx.UncompressedSize)
}

// encodeAttachment encodes the attachment body. The trailing CRC is computed
// over the preceding body bytes, overriding any value in a.CRC.
func encodeAttachment(a *Attachment) []byte {
	buf := appendUint64(nil, a.LogTime)
	buf = appendUint64(buf, a.CreateTime)
	buf = appendPrefixedString(buf, a.Name)
	buf = appendPrefixedString(buf, a.MediaType)
	buf = appendUint64(buf, uint64(len(a.Data)))
	buf = append(buf, a.Data...)
	return appendUint32(buf, checksum(buf))
}

func encodeAttachmentIndex(idx *AttachmentIndex) []byte {
	buf := appendUint64(nil, idx.Offset)
	buf = appendUint64(buf, idx.Length)
	buf = appendUint64(buf, idx.LogTime)
	buf = appendUint64(buf, idx.CreateTime)
	buf = appendUint64(buf, idx.DataSize)
	buf = appendPrefixedString(buf, idx.Name)
	return appendPrefixedString(buf, idx.MediaType)
}

func encodeStatistics(s *Statistics) []byte {
	buf := appendUint64(nil, s.MessageCount)
	buf = appendUint16(buf, s.SchemaCount)
	buf = appendUint32(buf, s.ChannelCount)
	buf = appendUint32(buf, s.AttachmentCount)
	buf = appendUint32(buf, s.MetadataCount)
	buf = appendUint32(buf, s.ChunkCount)
	buf = appendUint64(buf, s.MessageStartTime)
	buf = appendUint64(buf, s.MessageEndTime)
	return appendIDMap(buf, s.ChannelMessageCounts)
}

func encodeMetadata(m *Metadata) []byte {
	buf := appendPrefixedString(nil, m.Name)
	return appendStringMap(buf, m.Metadata)
}

func encodeMetadataIndex(idx *MetadataIndex) []byte {
	buf := appendUint64(nil, idx.Offset)
	buf = appendUint64(buf, idx.Length)
	return appendPrefixedString(buf, idx.Name)
}

func encodeSummaryOffset(s *SummaryOffset) []byte {
	buf := append([]byte(nil), byte(s.GroupOpcode))
	buf = appendUint64(buf, s.GroupStart)
	return appendUint64(buf, s.GroupLength)
}

func encodeDataEnd(d *DataEnd) []byte {
	return appendUint32(nil, d.DataSectionCRC)
}

// writeRecord frames a record body with its opcode and length prefix.
func writeRecord(w io.Writer, op OpCode, body []byte) (int, error) {
	prefix := make([]byte, 9)
	prefix[0] = byte(op)
	binary.LittleEndian.PutUint64(prefix[1:], uint64(len(body)))
	n, err := w.Write(prefix)
	if err != nil {
		return n, err
	}
	m, err := w.Write(body)
	return n + m, err
}
