package mcap

import (
	"fmt"
	"io"
	"sort"

	"github.com/siliconlad/pybag/bio"
)

// ReaderOptions configure a Reader.
type ReaderOptions struct {
	// ValidateCRC enables chunk CRC verification during message iteration.
	// Chunks with a zero recorded CRC are never verified.
	ValidateCRC bool
}

// summary holds the tables built from the summary section, or from a data
// section rescan when no summary exists.
type summary struct {
	schemas           map[uint16]*Schema
	channels          map[uint16]*Channel
	statistics        *Statistics
	chunkIndexes      []*ChunkIndex
	attachmentIndexes []*AttachmentIndex
	metadataIndexes   []*MetadataIndex
}

func newSummary() *summary {
	return &summary{
		schemas:  make(map[uint16]*Schema),
		channels: make(map[uint16]*Channel),
	}
}

// Reader reads an MCAP file. It is immutable after Open; iteration state is
// local to each call.
type Reader struct {
	r       bio.Reader
	opts    ReaderOptions
	version byte
	header  *Header
	footer  *Footer
	summary *summary

	topicToChannel map[string]uint16
	closer         io.Closer
}

// OpenFile maps the file at path and reads its structure.
func OpenFile(path string, opts *ReaderOptions) (*Reader, error) {
	f, err := bio.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader reads the file structure from r: magic, header, footer, and
// either the summary section or a data-section rescan.
func NewReader(r bio.Reader, opts *ReaderOptions) (*Reader, error) {
	if opts == nil {
		opts = &ReaderOptions{}
	}
	reader := &Reader{r: r, opts: *opts}

	magic, err := r.Read(len(Magic))
	if err != nil {
		return nil, ErrInvalidMagic
	}
	if reader.version, err = CheckMagic(magic); err != nil {
		return nil, err
	}
	headerBody, err := readRecordExpect(r, OpHeader)
	if err != nil {
		return nil, err
	}
	if reader.header, err = ParseHeader(headerBody); err != nil {
		return nil, err
	}

	// footer record plus trailing magic occupy the last 37 bytes
	if r.Len() < int64(len(Magic)+9+footerLength+len(Magic)) {
		return nil, fmt.Errorf("%w: file too small", ErrInvalidFormat)
	}
	if _, err := r.Seek(-int64(9+footerLength+len(Magic)), io.SeekEnd); err != nil {
		return nil, fmt.Errorf("failed to seek to footer: %w", err)
	}
	footerBody, err := readRecordExpect(r, OpFooter)
	if err != nil {
		return nil, err
	}
	if reader.footer, err = ParseFooter(footerBody); err != nil {
		return nil, err
	}
	trailer, err := r.Read(len(Magic))
	if err != nil {
		return nil, ErrInvalidMagic
	}
	if _, err := CheckMagic(trailer); err != nil {
		return nil, err
	}

	if reader.footer.SummaryStart > 0 {
		reader.summary, err = parseSummary(r, reader.footer.SummaryStart)
	} else {
		reader.summary, err = scanDataSection(r)
	}
	if err != nil {
		return nil, err
	}

	reader.topicToChannel = make(map[string]uint16, len(reader.summary.channels))
	for id, ch := range reader.summary.channels {
		reader.topicToChannel[ch.Topic] = id
	}
	return reader, nil
}

// Close releases the underlying file mapping, if the reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// peekOpcode returns the next record's opcode without consuming it, or false
// at end of data.
func peekOpcode(r bio.Reader) (OpCode, bool, error) {
	b, err := r.Peek(1)
	if err != nil {
		return 0, false, err
	}
	if len(b) == 0 {
		return 0, false, nil
	}
	return OpCode(b[0]), true, nil
}

// readRecord consumes the next record and returns its opcode and body. The
// body aliases the reader's backing storage.
func readRecord(r bio.Reader) (OpCode, []byte, error) {
	prefix, err := r.Read(9)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read record prefix: %w", err)
	}
	op := OpCode(prefix[0])
	length := bio.NewSliceView(prefix[1:])
	n, _ := length.Uint64()
	body, err := r.Read(int(n))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s record overruns file: %w", ErrInvalidFormat, op, err)
	}
	return op, body, nil
}

// readRecordExpect reads the next record and fails unless it has the given
// opcode.
func readRecordExpect(r bio.Reader, expected OpCode) ([]byte, error) {
	op, body, err := readRecord(r)
	if err != nil {
		return nil, err
	}
	if op != expected {
		return nil, &UnexpectedRecordError{Expected: expected, Got: op}
	}
	return body, nil
}

// skipRecord advances past the next record using only its length prefix.
func skipRecord(r bio.Reader) error {
	prefix, err := r.Read(9)
	if err != nil {
		return fmt.Errorf("failed to read record prefix: %w", err)
	}
	length := bio.NewSliceView(prefix[1:])
	n, _ := length.Uint64()
	if _, err := r.Seek(int64(n), io.SeekCurrent); err != nil {
		return fmt.Errorf("failed to skip record: %w", err)
	}
	return nil
}

func parseSummary(r bio.Reader, summaryStart uint64) (*summary, error) {
	s := newSummary()
	if _, err := r.Seek(int64(summaryStart), io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to summary: %w", err)
	}
	for r.Position() < r.Len() {
		op, ok, err := peekOpcode(r)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		switch op {
		case OpSchema:
			body, err := readRecordExpect(r, OpSchema)
			if err != nil {
				return nil, err
			}
			schema, err := ParseSchema(body)
			if err != nil {
				return nil, fmt.Errorf("failed to parse schema: %w", err)
			}
			if schema != nil {
				s.schemas[schema.ID] = schema
			}
		case OpChannel:
			body, err := readRecordExpect(r, OpChannel)
			if err != nil {
				return nil, err
			}
			channel, err := ParseChannel(body)
			if err != nil {
				return nil, fmt.Errorf("failed to parse channel: %w", err)
			}
			s.channels[channel.ID] = channel
		case OpStatistics:
			body, err := readRecordExpect(r, OpStatistics)
			if err != nil {
				return nil, err
			}
			if s.statistics, err = ParseStatistics(body); err != nil {
				return nil, fmt.Errorf("failed to parse statistics: %w", err)
			}
		case OpChunkIndex:
			body, err := readRecordExpect(r, OpChunkIndex)
			if err != nil {
				return nil, err
			}
			idx, err := ParseChunkIndex(body)
			if err != nil {
				return nil, fmt.Errorf("failed to parse chunk index: %w", err)
			}
			s.chunkIndexes = append(s.chunkIndexes, idx)
		case OpAttachmentIndex:
			body, err := readRecordExpect(r, OpAttachmentIndex)
			if err != nil {
				return nil, err
			}
			idx, err := ParseAttachmentIndex(body)
			if err != nil {
				return nil, fmt.Errorf("failed to parse attachment index: %w", err)
			}
			s.attachmentIndexes = append(s.attachmentIndexes, idx)
		case OpMetadataIndex:
			body, err := readRecordExpect(r, OpMetadataIndex)
			if err != nil {
				return nil, err
			}
			idx, err := ParseMetadataIndex(body)
			if err != nil {
				return nil, fmt.Errorf("failed to parse metadata index: %w", err)
			}
			s.metadataIndexes = append(s.metadataIndexes, idx)
		case OpFooter:
			return s, nil
		default:
			// includes SummaryOffset and unknown opcodes
			if err := skipRecord(r); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// scanDataSection rebuilds schema and channel tables for files without a
// summary section. Statistics and indexes stay absent.
func scanDataSection(r bio.Reader) (*summary, error) {
	s := newSummary()
	if _, err := r.Seek(int64(len(Magic)), io.SeekStart); err != nil {
		return nil, err
	}
	if err := skipRecord(r); err != nil { // header
		return nil, err
	}
	for r.Position() < r.Len() {
		op, ok, err := peekOpcode(r)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		switch op {
		case OpSchema:
			body, err := readRecordExpect(r, OpSchema)
			if err != nil {
				return nil, err
			}
			schema, err := ParseSchema(body)
			if err != nil {
				return nil, fmt.Errorf("failed to parse schema: %w", err)
			}
			if schema != nil {
				s.schemas[schema.ID] = schema
			}
		case OpChannel:
			body, err := readRecordExpect(r, OpChannel)
			if err != nil {
				return nil, err
			}
			channel, err := ParseChannel(body)
			if err != nil {
				return nil, fmt.Errorf("failed to parse channel: %w", err)
			}
			s.channels[channel.ID] = channel
		case OpDataEnd, OpFooter:
			return s, nil
		default:
			if err := skipRecord(r); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Profile returns the profile from the header record.
func (r *Reader) Profile() string { return r.header.Profile }

// FormatVersion returns the version byte from the leading magic.
func (r *Reader) FormatVersion() byte { return r.version }

// Header returns the header record.
func (r *Reader) Header() *Header { return r.header }

// Footer returns the footer record.
func (r *Reader) Footer() *Footer { return r.footer }

// Schemas returns all schemas keyed by ID.
func (r *Reader) Schemas() map[uint16]*Schema { return r.summary.schemas }

// Schema returns the schema with the given ID.
func (r *Reader) Schema(id uint16) (*Schema, error) {
	s, ok := r.summary.schemas[id]
	if !ok {
		return nil, UnknownSchemaError(id)
	}
	return s, nil
}

// Channels returns all channels keyed by ID.
func (r *Reader) Channels() map[uint16]*Channel { return r.summary.channels }

// Channel returns the channel with the given ID.
func (r *Reader) Channel(id uint16) (*Channel, error) {
	c, ok := r.summary.channels[id]
	if !ok {
		return nil, UnknownChannelError(id)
	}
	return c, nil
}

// ChannelIDByTopic resolves a topic name to its channel ID.
func (r *Reader) ChannelIDByTopic(topic string) (uint16, error) {
	id, ok := r.topicToChannel[topic]
	if !ok {
		return 0, UnknownTopicError(topic)
	}
	return id, nil
}

// ChannelSchema returns the schema referenced by a channel.
func (r *Reader) ChannelSchema(channelID uint16) (*Schema, error) {
	c, err := r.Channel(channelID)
	if err != nil {
		return nil, err
	}
	return r.Schema(c.SchemaID)
}

// Topics returns all topic names in the file.
func (r *Reader) Topics() []string {
	topics := make([]string, 0, len(r.topicToChannel))
	for topic := range r.topicToChannel {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// Statistics returns the statistics record, or nil when the file has no
// summary section.
func (r *Reader) Statistics() *Statistics { return r.summary.statistics }

// ChunkIndexes returns the chunk index records from the summary section.
func (r *Reader) ChunkIndexes() []*ChunkIndex { return r.summary.chunkIndexes }

// MessageCount returns the recorded message count for a topic. The second
// result is false when statistics are unavailable.
func (r *Reader) MessageCount(topic string) (uint64, bool) {
	id, ok := r.topicToChannel[topic]
	if !ok || r.summary.statistics == nil {
		return 0, false
	}
	count, ok := r.summary.statistics.ChannelMessageCounts[id]
	return count, ok
}

// StartTime returns the earliest message log time. The second result is false
// when statistics are unavailable.
func (r *Reader) StartTime() (uint64, bool) {
	if r.summary.statistics == nil {
		return 0, false
	}
	return r.summary.statistics.MessageStartTime, true
}

// EndTime returns the latest message log time. The second result is false
// when statistics are unavailable.
func (r *Reader) EndTime() (uint64, bool) {
	if r.summary.statistics == nil {
		return 0, false
	}
	return r.summary.statistics.MessageEndTime, true
}

// MessageQuery filters and orders message iteration. The time bounds are
// inclusive on log time; nil means unbounded. A nil ChannelIDs slice selects
// every channel.
type MessageQuery struct {
	ChannelIDs     []uint16
	StartTime      *uint64
	EndTime        *uint64
	InLogTimeOrder bool
	Reverse        bool
}

func (q *MessageQuery) wantsChannel(id uint16) bool {
	if q.ChannelIDs == nil {
		return true
	}
	for _, want := range q.ChannelIDs {
		if want == id {
			return true
		}
	}
	return false
}

func (q *MessageQuery) wantsTime(t uint64) bool {
	if q.StartTime != nil && t < *q.StartTime {
		return false
	}
	if q.EndTime != nil && t > *q.EndTime {
		return false
	}
	return true
}

func (q *MessageQuery) wantsChunk(ci *ChunkIndex) bool {
	if q.StartTime != nil && ci.MessageEndTime < *q.StartTime {
		return false
	}
	if q.EndTime != nil && ci.MessageStartTime > *q.EndTime {
		return false
	}
	if q.ChannelIDs != nil && len(ci.MessageIndexOffsets) > 0 {
		for _, id := range q.ChannelIDs {
			if _, ok := ci.MessageIndexOffsets[id]; ok {
				return true
			}
		}
		return false
	}
	return true
}

// Messages collects the messages matching the query. With chunk indexes
// present, only overlapping chunks are decompressed; otherwise the data
// section is scanned linearly.
func (r *Reader) Messages(query *MessageQuery) ([]*Message, error) {
	if query == nil {
		query = &MessageQuery{}
	}
	var messages []*Message
	var err error
	if len(r.summary.chunkIndexes) > 0 {
		messages, err = r.chunkedMessages(query)
	} else {
		messages, err = r.linearMessages(query)
	}
	if err != nil {
		return nil, err
	}
	if query.InLogTimeOrder {
		if query.Reverse {
			sort.SliceStable(messages, func(i, j int) bool {
				return messages[i].LogTime > messages[j].LogTime
			})
		} else {
			sort.SliceStable(messages, func(i, j int) bool {
				return messages[i].LogTime < messages[j].LogTime
			})
		}
	}
	return messages, nil
}

func (r *Reader) chunkedMessages(query *MessageQuery) ([]*Message, error) {
	chunks := make([]*ChunkIndex, 0, len(r.summary.chunkIndexes))
	for _, ci := range r.summary.chunkIndexes {
		if query.wantsChunk(ci) {
			chunks = append(chunks, ci)
		}
	}
	if query.Reverse {
		sort.SliceStable(chunks, func(i, j int) bool {
			return chunks[i].MessageStartTime > chunks[j].MessageStartTime
		})
	} else {
		sort.SliceStable(chunks, func(i, j int) bool {
			return chunks[i].MessageStartTime < chunks[j].MessageStartTime
		})
	}

	var messages []*Message
	for _, ci := range chunks {
		records, err := r.loadChunk(ci.ChunkStartOffset)
		if err != nil {
			return nil, err
		}
		if err := scanChunkRecords(records, query, &messages); err != nil {
			return nil, err
		}
	}
	return messages, nil
}

// loadChunk seeks to a chunk record, decompresses it, and optionally verifies
// its CRC.
func (r *Reader) loadChunk(offset uint64) ([]byte, error) {
	if _, err := r.r.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to chunk: %w", err)
	}
	body, err := readRecordExpect(r.r, OpChunk)
	if err != nil {
		return nil, err
	}
	chunk, err := ParseChunk(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse chunk: %w", err)
	}
	records, err := decompressChunk(
		CompressionFormat(chunk.Compression), chunk.Records, chunk.UncompressedSize)
	if err != nil {
		return nil, err
	}
	if r.opts.ValidateCRC && chunk.UncompressedCRC != 0 {
		if computed := checksum(records); computed != chunk.UncompressedCRC {
			return nil, &CRCMismatchError{Expected: chunk.UncompressedCRC, Computed: computed}
		}
	}
	return records, nil
}

// scanChunkRecords walks a decompressed record stream, appending matching
// messages. Schema, channel, and unknown records are skipped.
func scanChunkRecords(records []byte, query *MessageQuery, out *[]*Message) error {
	v := bio.NewSliceView(records)
	for v.Remaining() >= 9 {
		op, err := v.Uint8()
		if err != nil {
			return err
		}
		length, err := v.Uint64()
		if err != nil {
			return err
		}
		body, err := v.Slice(int(length))
		if err != nil {
			return fmt.Errorf("%s record overruns chunk: %w", OpCode(op), err)
		}
		if OpCode(op) != OpMessage {
			continue
		}
		msg, err := ParseMessage(body)
		if err != nil {
			return err
		}
		if query.wantsChannel(msg.ChannelID) && query.wantsTime(msg.LogTime) {
			*out = append(*out, msg)
		}
	}
	return nil
}

func (r *Reader) linearMessages(query *MessageQuery) ([]*Message, error) {
	if _, err := r.r.Seek(int64(len(Magic)), io.SeekStart); err != nil {
		return nil, err
	}
	if err := skipRecord(r.r); err != nil { // header
		return nil, err
	}
	var messages []*Message
	for r.r.Position() < r.r.Len() {
		op, ok, err := peekOpcode(r.r)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		switch op {
		case OpMessage:
			body, err := readRecordExpect(r.r, OpMessage)
			if err != nil {
				return nil, err
			}
			msg, err := ParseMessage(body)
			if err != nil {
				return nil, err
			}
			if query.wantsChannel(msg.ChannelID) && query.wantsTime(msg.LogTime) {
				messages = append(messages, msg)
			}
		case OpChunk:
			body, err := readRecordExpect(r.r, OpChunk)
			if err != nil {
				return nil, err
			}
			chunk, err := ParseChunk(body)
			if err != nil {
				return nil, err
			}
			records, err := decompressChunk(
				CompressionFormat(chunk.Compression), chunk.Records, chunk.UncompressedSize)
			if err != nil {
				return nil, err
			}
			if r.opts.ValidateCRC && chunk.UncompressedCRC != 0 {
				if computed := checksum(records); computed != chunk.UncompressedCRC {
					return nil, &CRCMismatchError{Expected: chunk.UncompressedCRC, Computed: computed}
				}
			}
			if err := scanChunkRecords(records, query, &messages); err != nil {
				return nil, err
			}
		case OpDataEnd, OpFooter:
			return messages, nil
		default:
			if err := skipRecord(r.r); err != nil {
				return nil, err
			}
		}
	}
	return messages, nil
}

// Attachments fetches attachment records through the attachment indexes. An
// empty name matches every attachment.
func (r *Reader) Attachments(name string) ([]*Attachment, error) {
	var attachments []*Attachment
	for _, idx := range r.summary.attachmentIndexes {
		if name != "" && idx.Name != name {
			continue
		}
		if _, err := r.r.Seek(int64(idx.Offset), io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to seek to attachment: %w", err)
		}
		body, err := readRecordExpect(r.r, OpAttachment)
		if err != nil {
			return nil, err
		}
		attachment, err := ParseAttachment(body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse attachment: %w", err)
		}
		attachments = append(attachments, attachment)
	}
	return attachments, nil
}

// Metadata fetches metadata records through the metadata indexes. An empty
// name matches every record.
func (r *Reader) Metadata(name string) ([]*Metadata, error) {
	var metadata []*Metadata
	for _, idx := range r.summary.metadataIndexes {
		if name != "" && idx.Name != name {
			continue
		}
		if _, err := r.r.Seek(int64(idx.Offset), io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to seek to metadata: %w", err)
		}
		body, err := readRecordExpect(r.r, OpMetadata)
		if err != nil {
			return nil, err
		}
		m, err := ParseMetadata(body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse metadata: %w", err)
		}
		metadata = append(metadata, m)
	}
	return metadata, nil
}
