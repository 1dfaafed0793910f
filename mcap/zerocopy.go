package mcap

import (
	"fmt"

	"github.com/siliconlad/pybag/bio"
)

// MessageRef is a borrowed view of a message. Data aliases either the
// reader's mmap region or, during chunk traversal, a scratch buffer that is
// reused for the next chunk — callers that retain it must copy.
type MessageRef struct {
	ChannelID   uint16
	Sequence    uint32
	LogTime     uint64
	PublishTime uint64
	Data        []byte
}

// chunkRef locates one chunk for zero-copy traversal.
type chunkRef struct {
	offset           uint64
	messageStartTime uint64
	messageEndTime   uint64
	compression      CompressionFormat
	compressedSize   uint64
	uncompressedSize uint64
}

// FastReader iterates messages over a memory-mapped file without copying
// payload bytes. Only the file structure (header, footer, chunk indexes) is
// parsed up front.
type FastReader struct {
	f         *bio.FileReader
	chunks    []chunkRef
	dataStart uint64
	dataEnd   uint64
	scratch   []byte
}

// OpenFast maps the file at path for zero-copy reading.
func OpenFast(path string) (*FastReader, error) {
	f, err := bio.Open(path)
	if err != nil {
		return nil, err
	}
	r := &FastReader{f: f}
	if err := r.parseStructure(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Close releases the mapping. MessageRefs derived from the reader must not be
// used afterwards.
func (r *FastReader) Close() error {
	return r.f.Close()
}

// ChunkCount returns the number of indexed chunks.
func (r *FastReader) ChunkCount() int {
	return len(r.chunks)
}

// Data returns the mapped file contents.
func (r *FastReader) Data() []byte {
	return r.f.Data()
}

func (r *FastReader) parseStructure() error {
	data := r.f.Data()
	if _, err := CheckMagic(data); err != nil {
		return err
	}
	if len(data) < len(Magic)+9+footerLength+len(Magic) {
		return fmt.Errorf("%w: file too small", ErrInvalidFormat)
	}

	footerStart := len(data) - (9 + footerLength + len(Magic))
	v := bio.NewSliceView(data[footerStart:])
	op, _ := v.Uint8()
	if OpCode(op) != OpFooter {
		return &UnexpectedRecordError{Expected: OpFooter, Got: OpCode(op)}
	}
	footerLen, _ := v.Uint64()
	if footerLen != footerLength {
		return fmt.Errorf("%w: footer body is %d bytes, expected %d",
			ErrInvalidFormat, footerLen, footerLength)
	}
	summaryStart, _ := v.Uint64()

	v = bio.NewSliceView(data[len(Magic):])
	op, _ = v.Uint8()
	if OpCode(op) != OpHeader {
		return &UnexpectedRecordError{Expected: OpHeader, Got: OpCode(op)}
	}
	headerLen, err := v.Uint64()
	if err != nil {
		return err
	}
	r.dataStart = uint64(len(Magic)) + 9 + headerLen
	if summaryStart > 0 {
		r.dataEnd = summaryStart
	} else {
		r.dataEnd = uint64(footerStart)
	}
	if summaryStart > 0 && summaryStart < uint64(len(data)) {
		return r.parseSummary(data[summaryStart:])
	}
	return nil
}

// parseSummary collects chunk index entries; everything else in the summary
// is skipped by length.
func (r *FastReader) parseSummary(data []byte) error {
	v := bio.NewSliceView(data)
	for v.Remaining() > 9 {
		op, err := v.Uint8()
		if err != nil {
			return err
		}
		recordLen, err := v.Uint64()
		if err != nil {
			return err
		}
		switch OpCode(op) {
		case OpChunkIndex:
			body, err := v.Slice(int(recordLen))
			if err != nil {
				return fmt.Errorf("%w: chunk index overruns file: %w", ErrInvalidFormat, err)
			}
			idx, err := ParseChunkIndex(body)
			if err != nil {
				return err
			}
			r.chunks = append(r.chunks, chunkRef{
				offset:           idx.ChunkStartOffset,
				messageStartTime: idx.MessageStartTime,
				messageEndTime:   idx.MessageEndTime,
				compression:      idx.Compression,
				compressedSize:   idx.CompressedSize,
				uncompressedSize: idx.UncompressedSize,
			})
		case OpFooter:
			return nil
		default:
			if err := v.Skip(int(recordLen)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Messages returns a zero-copy iterator over the data section. It only yields
// messages stored outside chunks; files with chunks should use
// ForEachMessage.
func (r *FastReader) Messages() *DirectIterator {
	return &DirectIterator{
		data: r.f.Data(),
		pos:  r.dataStart,
		end:  r.dataEnd,
	}
}

// ForEachMessage invokes fn for every message in the file, in file order.
// For chunked files each chunk is decompressed into a scratch buffer that is
// reused, so the MessageRef data is only valid during the callback.
func (r *FastReader) ForEachMessage(fn func(MessageRef) error) (int, error) {
	count := 0
	if len(r.chunks) == 0 {
		it := r.Messages()
		for {
			ref, ok := it.Next()
			if !ok {
				break
			}
			if err := fn(ref); err != nil {
				return count, err
			}
			count++
		}
		return count, nil
	}
	data := r.f.Data()
	for i := range r.chunks {
		records, err := r.loadChunk(data, &r.chunks[i])
		if err != nil {
			return count, err
		}
		v := bio.NewSliceView(records)
		for v.Remaining() > 9 {
			op, err := v.Uint8()
			if err != nil {
				return count, err
			}
			recordLen, err := v.Uint64()
			if err != nil {
				return count, err
			}
			if OpCode(op) == OpMessage && recordLen >= messageHeaderLength {
				body, err := v.Slice(int(recordLen))
				if err != nil {
					return count, fmt.Errorf("message overruns chunk: %w", err)
				}
				if err := fn(messageRefFrom(body)); err != nil {
					return count, err
				}
				count++
			} else if err := v.Skip(int(recordLen)); err != nil {
				return count, err
			}
		}
	}
	return count, nil
}

// loadChunk parses the chunk record at the ref's offset and decompresses its
// records into the shared scratch buffer.
func (r *FastReader) loadChunk(data []byte, ref *chunkRef) ([]byte, error) {
	if ref.offset+9 > uint64(len(data)) {
		return nil, fmt.Errorf("%w: chunk offset %d beyond file", ErrInvalidFormat, ref.offset)
	}
	v := bio.NewSliceView(data[ref.offset:])
	op, _ := v.Uint8()
	if OpCode(op) != OpChunk {
		return nil, &UnexpectedRecordError{Expected: OpChunk, Got: OpCode(op)}
	}
	recordLen, err := v.Uint64()
	if err != nil {
		return nil, err
	}
	body, err := v.Slice(int(recordLen))
	if err != nil {
		return nil, fmt.Errorf("%w: chunk overruns file: %w", ErrInvalidFormat, err)
	}
	chunk, err := ParseChunk(body)
	if err != nil {
		return nil, err
	}
	compression := CompressionFormat(chunk.Compression)
	if compression == CompressionNone || compression == "none" {
		return chunk.Records, nil
	}
	records, err := decompressChunk(compression, chunk.Records, chunk.UncompressedSize)
	if err != nil {
		return nil, err
	}
	r.scratch = records
	return r.scratch, nil
}

func messageRefFrom(body []byte) MessageRef {
	v := bio.NewSliceView(body)
	channelID, _ := v.Uint16()
	sequence, _ := v.Uint32()
	logTime, _ := v.Uint64()
	publishTime, _ := v.Uint64()
	return MessageRef{
		ChannelID:   channelID,
		Sequence:    sequence,
		LogTime:     logTime,
		PublishTime: publishTime,
		Data:        body[messageHeaderLength:],
	}
}

// DirectIterator yields MessageRefs whose data slices point into the mmap
// region. It terminates at DataEnd, the footer, or the end of the data
// section.
type DirectIterator struct {
	data []byte
	pos  uint64
	end  uint64
}

// Next returns the next message reference. The second result is false when
// iteration is finished.
func (it *DirectIterator) Next() (MessageRef, bool) {
	for it.pos+9 < it.end {
		op := OpCode(it.data[it.pos])
		v := bio.NewSliceView(it.data[it.pos+1:])
		recordLen, err := v.Uint64()
		if err != nil {
			return MessageRef{}, false
		}
		it.pos += 9
		if it.pos+recordLen > it.end {
			return MessageRef{}, false
		}
		body := it.data[it.pos : it.pos+recordLen]
		it.pos += recordLen
		switch {
		case op == OpMessage && recordLen >= messageHeaderLength:
			return messageRefFrom(body), true
		case op == OpDataEnd || op == OpFooter:
			return MessageRef{}, false
		}
	}
	return MessageRef{}, false
}
