package mcap

import "fmt"

// Magic is the 8-byte sequence found at both ends of an MCAP file. Byte 5 is
// the ASCII format version.
var Magic = []byte{0x89, 'M', 'C', 'A', 'P', '0', '\r', '\n'}

// Version of the pybag library, recorded in the header of written files.
const Version = "0.1.0"

const (
	// CompressionNone leaves chunk records uncompressed.
	CompressionNone CompressionFormat = ""
	// CompressionLZ4 compresses chunks with block LZ4.
	CompressionLZ4 CompressionFormat = "lz4"
	// CompressionZSTD compresses chunks with zstd.
	CompressionZSTD CompressionFormat = "zstd"
)

// CompressionFormat names a chunk compression algorithm.
type CompressionFormat string

func (c CompressionFormat) String() string {
	return string(c)
}

const (
	OpInvalid         OpCode = 0x00
	OpHeader          OpCode = 0x01
	OpFooter          OpCode = 0x02
	OpSchema          OpCode = 0x03
	OpChannel         OpCode = 0x04
	OpMessage         OpCode = 0x05
	OpChunk           OpCode = 0x06
	OpMessageIndex    OpCode = 0x07
	OpChunkIndex      OpCode = 0x08
	OpAttachment      OpCode = 0x09
	OpAttachmentIndex OpCode = 0x0A
	OpStatistics      OpCode = 0x0B
	OpMetadata        OpCode = 0x0C
	OpMetadataIndex   OpCode = 0x0D
	OpSummaryOffset   OpCode = 0x0E
	OpDataEnd         OpCode = 0x0F
)

// OpCode identifies a record type on the wire.
type OpCode byte

func (c OpCode) String() string {
	switch c {
	case OpHeader:
		return "header"
	case OpFooter:
		return "footer"
	case OpSchema:
		return "schema"
	case OpChannel:
		return "channel"
	case OpMessage:
		return "message"
	case OpChunk:
		return "chunk"
	case OpMessageIndex:
		return "message index"
	case OpChunkIndex:
		return "chunk index"
	case OpAttachment:
		return "attachment"
	case OpAttachmentIndex:
		return "attachment index"
	case OpStatistics:
		return "statistics"
	case OpMetadata:
		return "metadata"
	case OpMetadataIndex:
		return "metadata index"
	case OpSummaryOffset:
		return "summary offset"
	case OpDataEnd:
		return "data end"
	default:
		return fmt.Sprintf("<unknown opcode 0x%02x>", byte(c))
	}
}

// Header is the first record in a file, immediately after the leading magic.
type Header struct {
	Profile string
	Library string
}

// Footer is the last record in a file, immediately before the trailing magic.
// A SummaryStart of zero means the file has no summary section.
type Footer struct {
	SummaryStart       uint64
	SummaryOffsetStart uint64
	SummaryCRC         uint32
}

// Schema describes the structure of messages on channels referencing its ID.
// ID zero is reserved and ignored on read.
type Schema struct {
	ID       uint16
	Name     string
	Encoding string
	Data     []byte
}

// Channel binds a topic to a schema and a message encoding. Topics are unique
// within a file.
type Channel struct {
	ID              uint16
	SchemaID        uint16
	Topic           string
	MessageEncoding string
	Metadata        map[string]string
}

// Message is a single timestamped payload on a channel.
type Message struct {
	ChannelID   uint16
	Sequence    uint32
	LogTime     uint64
	PublishTime uint64
	Data        []byte
}

// Chunk is an optionally compressed batch of schema, channel, and message
// records. An UncompressedCRC of zero means no checksum was recorded.
type Chunk struct {
	MessageStartTime uint64
	MessageEndTime   uint64
	UncompressedSize uint64
	UncompressedCRC  uint32
	Compression      string
	Records          []byte
}

// MessageIndexEntry locates one message within a chunk by timestamp.
type MessageIndexEntry struct {
	Timestamp uint64
	Offset    uint64
}

// MessageIndex lists the messages of one channel within a chunk.
type MessageIndex struct {
	ChannelID uint16
	Records   []MessageIndexEntry
}

// ChunkIndex locates a chunk in the file and carries its time range and
// compression metadata.
type ChunkIndex struct {
	MessageStartTime    uint64
	MessageEndTime      uint64
	ChunkStartOffset    uint64
	ChunkLength         uint64
	MessageIndexOffsets map[uint16]uint64
	MessageIndexLength  uint64
	Compression         CompressionFormat
	CompressedSize      uint64
	UncompressedSize    uint64
}

// Attachment carries an auxiliary artifact stored outside of chunks. CRC is
// computed over the preceding body fields when written.
type Attachment struct {
	LogTime    uint64
	CreateTime uint64
	Name       string
	MediaType  string
	Data       []byte
	CRC        uint32
}

// AttachmentIndex locates an attachment in the file.
type AttachmentIndex struct {
	Offset     uint64
	Length     uint64
	LogTime    uint64
	CreateTime uint64
	DataSize   uint64
	Name       string
	MediaType  string
}

// Statistics summarizes the recorded data.
type Statistics struct {
	MessageCount         uint64
	SchemaCount          uint16
	ChannelCount         uint32
	AttachmentCount      uint32
	MetadataCount        uint32
	ChunkCount           uint32
	MessageStartTime     uint64
	MessageEndTime       uint64
	ChannelMessageCounts map[uint16]uint64
}

// Metadata holds arbitrary user key-value pairs.
type Metadata struct {
	Name     string
	Metadata map[string]string
}

// MetadataIndex locates a metadata record in the file.
type MetadataIndex struct {
	Offset uint64
	Length uint64
	Name   string
}

// SummaryOffset locates a group of same-opcode records within the summary
// section. The writer does not emit these; the reader skips them.
type SummaryOffset struct {
	GroupOpcode OpCode
	GroupStart  uint64
	GroupLength uint64
}

// DataEnd terminates the data section. A zero CRC means "not computed".
type DataEnd struct {
	DataSectionCRC uint32
}
