package bio

import "encoding/binary"

// SliceView is a non-owning cursor over a byte slice. Slices handed out by
// Slice and PeekSlice alias the underlying data.
type SliceView struct {
	data []byte
	pos  int
}

// NewSliceView returns a view positioned at the start of data.
func NewSliceView(data []byte) *SliceView {
	return &SliceView{data: data}
}

// Slice returns the next n bytes and advances the cursor.
func (v *SliceView) Slice(n int) ([]byte, error) {
	if v.pos+n > len(v.data) {
		return nil, &BufferTooSmallError{Needed: n, Available: len(v.data) - v.pos}
	}
	s := v.data[v.pos : v.pos+n]
	v.pos += n
	return s, nil
}

// PeekSlice returns the next n bytes without advancing.
func (v *SliceView) PeekSlice(n int) ([]byte, error) {
	if v.pos+n > len(v.data) {
		return nil, &BufferTooSmallError{Needed: n, Available: len(v.data) - v.pos}
	}
	return v.data[v.pos : v.pos+n], nil
}

// Skip advances the cursor by n bytes.
func (v *SliceView) Skip(n int) error {
	if v.pos+n > len(v.data) {
		return &BufferTooSmallError{Needed: n, Available: len(v.data) - v.pos}
	}
	v.pos += n
	return nil
}

// Remaining returns the number of unread bytes.
func (v *SliceView) Remaining() int { return len(v.data) - v.pos }

// Empty reports whether the cursor has reached the end of the data.
func (v *SliceView) Empty() bool { return v.pos >= len(v.data) }

// Position returns the cursor offset from the start of the data.
func (v *SliceView) Position() int { return v.pos }

// Data returns the full underlying slice.
func (v *SliceView) Data() []byte { return v.data }

func (v *SliceView) Uint8() (uint8, error) {
	s, err := v.Slice(1)
	if err != nil {
		return 0, err
	}
	return s[0], nil
}

func (v *SliceView) Uint16() (uint16, error) {
	s, err := v.Slice(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(s), nil
}

func (v *SliceView) Uint32() (uint32, error) {
	s, err := v.Slice(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(s), nil
}

func (v *SliceView) Uint64() (uint64, error) {
	s, err := v.Slice(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(s), nil
}
