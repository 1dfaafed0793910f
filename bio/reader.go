package bio

import (
	"fmt"
	"io"
)

// Reader is a positional byte reader. Unlike io.Reader, Read returns exactly
// n bytes or an error; short reads never occur.
type Reader interface {
	// Read returns the next n bytes, advancing the position.
	Read(n int) ([]byte, error)
	// Peek returns up to n bytes without advancing the position.
	Peek(n int) ([]byte, error)
	// Seek repositions the cursor like io.Seeker.
	Seek(offset int64, whence int) (int64, error)
	// Position returns the current cursor position.
	Position() int64
	// Len returns the total length of the underlying data.
	Len() int64
}

// BytesReader reads from an in-memory byte slice.
type BytesReader struct {
	data []byte
	pos  int64
}

// NewBytesReader returns a reader over data. The slice is not copied.
func NewBytesReader(data []byte) *BytesReader {
	return &BytesReader{data: data}
}

func (r *BytesReader) Read(n int) ([]byte, error) {
	start := int(r.pos)
	if start+n > len(r.data) {
		return nil, &BufferTooSmallError{Needed: n, Available: len(r.data) - start}
	}
	r.pos += int64(n)
	return r.data[start : start+n], nil
}

func (r *BytesReader) Peek(n int) ([]byte, error) {
	start := int(r.pos)
	end := start + n
	if end > len(r.data) {
		end = len(r.data)
	}
	return r.data[start:end], nil
}

func (r *BytesReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := resolveSeek(offset, whence, r.pos, int64(len(r.data)))
	if err != nil {
		return 0, err
	}
	r.pos = pos
	return r.pos, nil
}

func (r *BytesReader) Position() int64 { return r.pos }

func (r *BytesReader) Len() int64 { return int64(len(r.data)) }

// Data returns the underlying byte slice.
func (r *BytesReader) Data() []byte { return r.data }

// FileReader reads from a memory-mapped file. Reads and slices are views into
// the mapping and remain valid until Close.
type FileReader struct {
	data   []byte
	pos    int64
	closer func() error
}

// Open maps the file at path for reading.
func Open(path string) (*FileReader, error) {
	data, closer, err := mapFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to map %s: %w", path, err)
	}
	return &FileReader{data: data, closer: closer}, nil
}

func (r *FileReader) Read(n int) ([]byte, error) {
	start := int(r.pos)
	if start+n > len(r.data) {
		return nil, &BufferTooSmallError{Needed: n, Available: len(r.data) - start}
	}
	r.pos += int64(n)
	return r.data[start : start+n], nil
}

func (r *FileReader) Peek(n int) ([]byte, error) {
	start := int(r.pos)
	end := start + n
	if end > len(r.data) {
		end = len(r.data)
	}
	return r.data[start:end], nil
}

func (r *FileReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := resolveSeek(offset, whence, r.pos, int64(len(r.data)))
	if err != nil {
		return 0, err
	}
	r.pos = pos
	return r.pos, nil
}

func (r *FileReader) Position() int64 { return r.pos }

func (r *FileReader) Len() int64 { return int64(len(r.data)) }

// Data returns the full mapped region.
func (r *FileReader) Data() []byte { return r.data }

// Close releases the mapping. Slices returned from Read and Data must not be
// used afterwards.
func (r *FileReader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer()
	r.closer = nil
	r.data = nil
	return err
}

func resolveSeek(offset int64, whence int, cur, length int64) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = cur + offset
	case io.SeekEnd:
		pos = length + offset
	default:
		return 0, fmt.Errorf("invalid seek whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("negative seek position %d", pos)
	}
	if pos > length {
		pos = length
	}
	return pos, nil
}
