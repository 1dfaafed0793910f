package mcap

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/siliconlad/pybag/bio"
)

const libraryName = "pybag go " + Version

// WriterOptions configure a Writer.
type WriterOptions struct {
	// Profile is recorded in the header record.
	Profile string
	// ChunkSize enables chunking when positive: records are buffered and
	// flushed as a chunk once the buffer reaches this many bytes.
	ChunkSize int64
	// Compression selects the chunk compression format. Ignored when
	// chunking is disabled.
	Compression CompressionFormat
}

// Writer serializes schemas, channels, messages, attachments, and metadata
// into an MCAP file. Close must be called to produce a valid file; after
// Close the writer is spent.
type Writer struct {
	w    bio.Writer
	opts WriterOptions

	schemas    map[uint16]*Schema
	channels   map[uint16]*Channel
	schemaIDs  []uint16
	channelIDs []uint16

	chunkBuf       bytes.Buffer
	chunkStartTime uint64
	chunkEndTime   uint64
	chunkHasTime   bool

	chunkIndexes      []*ChunkIndex
	attachmentIndexes []*AttachmentIndex
	metadataIndexes   []*MetadataIndex

	stats  Statistics
	closed bool
}

// NewWriter writes the leading magic and header to w and returns a writer
// ready for records.
func NewWriter(w bio.Writer, opts *WriterOptions) (*Writer, error) {
	if opts == nil {
		opts = &WriterOptions{}
	}
	if _, err := w.Write(Magic); err != nil {
		return nil, fmt.Errorf("failed to write magic: %w", err)
	}
	header := &Header{Profile: opts.Profile, Library: libraryName}
	if _, err := writeRecord(w, OpHeader, encodeHeader(header)); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return &Writer{
		w:        w,
		opts:     *opts,
		schemas:  make(map[uint16]*Schema),
		channels: make(map[uint16]*Channel),
		stats: Statistics{
			ChannelMessageCounts: make(map[uint16]uint64),
		},
	}, nil
}

func (w *Writer) chunked() bool {
	return w.opts.ChunkSize > 0
}

// WriteSchema writes a schema record. Inside a chunked file the record joins
// the current chunk.
func (w *Writer) WriteSchema(s *Schema) error {
	if w.closed {
		return ErrWriterClosed
	}
	body := encodeSchema(s)
	var err error
	if w.chunked() {
		_, err = writeRecord(&w.chunkBuf, OpSchema, body)
	} else {
		_, err = writeRecord(w.w, OpSchema, body)
	}
	if err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}
	if _, ok := w.schemas[s.ID]; !ok {
		w.schemas[s.ID] = s
		w.schemaIDs = append(w.schemaIDs, s.ID)
		w.stats.SchemaCount++
	}
	return nil
}

// WriteChannel writes a channel record. The referenced schema must have been
// written first, unless the channel is schemaless (SchemaID zero).
func (w *Writer) WriteChannel(c *Channel) error {
	if w.closed {
		return ErrWriterClosed
	}
	if c.SchemaID > 0 {
		if _, ok := w.schemas[c.SchemaID]; !ok {
			return ErrUnknownSchema
		}
	}
	body := encodeChannel(c)
	var err error
	if w.chunked() {
		_, err = writeRecord(&w.chunkBuf, OpChannel, body)
	} else {
		_, err = writeRecord(w.w, OpChannel, body)
	}
	if err != nil {
		return fmt.Errorf("failed to write channel: %w", err)
	}
	if _, ok := w.channels[c.ID]; !ok {
		w.channels[c.ID] = c
		w.channelIDs = append(w.channelIDs, c.ID)
		w.stats.ChannelCount++
	}
	return nil
}

// WriteMessage writes a message record, flushing the current chunk if it has
// reached the configured size.
func (w *Writer) WriteMessage(m *Message) error {
	if w.closed {
		return ErrWriterClosed
	}
	if _, ok := w.channels[m.ChannelID]; !ok {
		return UnknownChannelError(m.ChannelID)
	}
	body := encodeMessage(m)
	if w.chunked() {
		if _, err := writeRecord(&w.chunkBuf, OpMessage, body); err != nil {
			return fmt.Errorf("failed to write message: %w", err)
		}
		if !w.chunkHasTime || m.LogTime < w.chunkStartTime {
			w.chunkStartTime = m.LogTime
		}
		if !w.chunkHasTime || m.LogTime > w.chunkEndTime {
			w.chunkEndTime = m.LogTime
		}
		w.chunkHasTime = true
	} else {
		if _, err := writeRecord(w.w, OpMessage, body); err != nil {
			return fmt.Errorf("failed to write message: %w", err)
		}
	}
	if w.stats.MessageCount == 0 || m.LogTime < w.stats.MessageStartTime {
		w.stats.MessageStartTime = m.LogTime
	}
	if w.stats.MessageCount == 0 || m.LogTime > w.stats.MessageEndTime {
		w.stats.MessageEndTime = m.LogTime
	}
	w.stats.MessageCount++
	w.stats.ChannelMessageCounts[m.ChannelID]++
	if w.chunked() && int64(w.chunkBuf.Len()) >= w.opts.ChunkSize {
		return w.flushChunk()
	}
	return nil
}

// WriteAttachment writes an attachment record. Attachments live outside
// chunks, so any pending chunk is flushed first.
func (w *Writer) WriteAttachment(a *Attachment) error {
	if w.closed {
		return ErrWriterClosed
	}
	if err := w.flushChunk(); err != nil {
		return err
	}
	offset := w.w.Position()
	n, err := writeRecord(w.w, OpAttachment, encodeAttachment(a))
	if err != nil {
		return fmt.Errorf("failed to write attachment: %w", err)
	}
	w.attachmentIndexes = append(w.attachmentIndexes, &AttachmentIndex{
		Offset:     offset,
		Length:     uint64(n),
		LogTime:    a.LogTime,
		CreateTime: a.CreateTime,
		DataSize:   uint64(len(a.Data)),
		Name:       a.Name,
		MediaType:  a.MediaType,
	})
	w.stats.AttachmentCount++
	return nil
}

// WriteMetadata writes a metadata record outside of any chunk.
func (w *Writer) WriteMetadata(m *Metadata) error {
	if w.closed {
		return ErrWriterClosed
	}
	if err := w.flushChunk(); err != nil {
		return err
	}
	offset := w.w.Position()
	n, err := writeRecord(w.w, OpMetadata, encodeMetadata(m))
	if err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	w.metadataIndexes = append(w.metadataIndexes, &MetadataIndex{
		Offset: offset,
		Length: uint64(n),
		Name:   m.Name,
	})
	w.stats.MetadataCount++
	return nil
}

func (w *Writer) flushChunk() error {
	if !w.chunked() || w.chunkBuf.Len() == 0 {
		return nil
	}
	uncompressed := w.chunkBuf.Bytes()
	uncompressedSize := uint64(len(uncompressed))
	crc := checksum(uncompressed)
	compressed, format, err := compressChunk(w.opts.Compression, uncompressed)
	if err != nil {
		return fmt.Errorf("failed to compress chunk: %w", err)
	}
	chunkStartOffset := w.w.Position()
	chunk := &Chunk{
		MessageStartTime: w.chunkStartTime,
		MessageEndTime:   w.chunkEndTime,
		UncompressedSize: uncompressedSize,
		UncompressedCRC:  crc,
		Compression:      string(format),
		Records:          compressed,
	}
	if _, err := writeRecord(w.w, OpChunk, encodeChunk(chunk)); err != nil {
		return fmt.Errorf("failed to write chunk: %w", err)
	}
	w.chunkIndexes = append(w.chunkIndexes, &ChunkIndex{
		MessageStartTime:    w.chunkStartTime,
		MessageEndTime:      w.chunkEndTime,
		ChunkStartOffset:    chunkStartOffset,
		ChunkLength:         w.w.Position() - chunkStartOffset,
		MessageIndexOffsets: make(map[uint16]uint64),
		MessageIndexLength:  0,
		Compression:         format,
		CompressedSize:      uint64(len(compressed)),
		UncompressedSize:    uncompressedSize,
	})
	w.stats.ChunkCount++
	w.chunkBuf.Reset()
	w.chunkStartTime = 0
	w.chunkEndTime = 0
	w.chunkHasTime = false
	return nil
}

// Close flushes any pending chunk and writes the data end record, the summary
// section, the footer, and the trailing magic. The writer cannot be used
// afterwards.
func (w *Writer) Close() error {
	if w.closed {
		return ErrWriterClosed
	}
	if err := w.flushChunk(); err != nil {
		return err
	}
	if _, err := writeRecord(w.w, OpDataEnd, encodeDataEnd(&DataEnd{})); err != nil {
		return fmt.Errorf("failed to write data end: %w", err)
	}

	summaryStart := w.w.Position()
	sort.Slice(w.schemaIDs, func(i, j int) bool { return w.schemaIDs[i] < w.schemaIDs[j] })
	for _, id := range w.schemaIDs {
		if _, err := writeRecord(w.w, OpSchema, encodeSchema(w.schemas[id])); err != nil {
			return fmt.Errorf("failed to write summary schema: %w", err)
		}
	}
	sort.Slice(w.channelIDs, func(i, j int) bool { return w.channelIDs[i] < w.channelIDs[j] })
	for _, id := range w.channelIDs {
		if _, err := writeRecord(w.w, OpChannel, encodeChannel(w.channels[id])); err != nil {
			return fmt.Errorf("failed to write summary channel: %w", err)
		}
	}
	for _, idx := range w.chunkIndexes {
		if _, err := writeRecord(w.w, OpChunkIndex, encodeChunkIndex(idx)); err != nil {
			return fmt.Errorf("failed to write chunk index: %w", err)
		}
	}
	for _, idx := range w.attachmentIndexes {
		if _, err := writeRecord(w.w, OpAttachmentIndex, encodeAttachmentIndex(idx)); err != nil {
			return fmt.Errorf("failed to write attachment index: %w", err)
		}
	}
	for _, idx := range w.metadataIndexes {
		if _, err := writeRecord(w.w, OpMetadataIndex, encodeMetadataIndex(idx)); err != nil {
			return fmt.Errorf("failed to write metadata index: %w", err)
		}
	}
	if _, err := writeRecord(w.w, OpStatistics, encodeStatistics(&w.stats)); err != nil {
		return fmt.Errorf("failed to write statistics: %w", err)
	}
	footer := &Footer{SummaryStart: summaryStart}
	if _, err := writeRecord(w.w, OpFooter, encodeFooter(footer)); err != nil {
		return fmt.Errorf("failed to write footer: %w", err)
	}
	if _, err := w.w.Write(Magic); err != nil {
		return fmt.Errorf("failed to write trailing magic: %w", err)
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	w.closed = true
	return nil
}

// Statistics returns the counts accumulated so far.
func (w *Writer) Statistics() *Statistics {
	return &w.stats
}
