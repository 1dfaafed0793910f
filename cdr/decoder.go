// Package cdr implements the CDR serialization used for message payloads: a
// 4-byte encapsulation header followed by size-aligned primitives.
package cdr

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/siliconlad/pybag/bio"
)

const headerSize = 4

// DecodeError indicates a malformed payload beyond a simple underflow.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cdr decode error: %s", e.Reason)
}

func (e *DecodeError) Is(err error) bool {
	_, ok := err.(*DecodeError)
	return ok
}

// Decoder reads aligned primitives from a CDR-encoded payload. Alignment is
// measured from the end of the 4-byte encapsulation header, i.e. on the
// payload offset.
type Decoder struct {
	data  []byte
	pos   int
	order binary.ByteOrder
}

// NewDecoder reads the encapsulation header of data. Byte 1 carries the
// endianness flag: nonzero means little-endian.
func NewDecoder(data []byte) (*Decoder, error) {
	if len(data) < headerSize {
		return nil, &DecodeError{Reason: "payload shorter than the 4-byte header"}
	}
	var order binary.ByteOrder = binary.BigEndian
	if data[1] != 0 {
		order = binary.LittleEndian
	}
	return &Decoder{data: data, pos: headerSize, order: order}, nil
}

// Position returns the physical cursor offset, including the header.
func (d *Decoder) Position() int {
	return d.pos
}

// align advances the cursor so the payload offset (the physical position
// minus the header) is a multiple of n. Padding byte values are ignored.
func (d *Decoder) align(n int) {
	if rem := (d.pos - headerSize) % n; rem != 0 {
		d.pos += n - rem
	}
}

func (d *Decoder) take(n int) ([]byte, error) {
	if d.pos+n > len(d.data) {
		return nil, &bio.BufferTooSmallError{Needed: n, Available: len(d.data) - d.pos}
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.take(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func (d *Decoder) ReadInt8() (int8, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

func (d *Decoder) ReadUint8() (uint8, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadChar reads a single-byte character.
func (d *Decoder) ReadChar() (byte, error) {
	return d.ReadUint8()
}

func (d *Decoder) ReadInt16() (int16, error) {
	u, err := d.ReadUint16()
	return int16(u), err
}

func (d *Decoder) ReadUint16() (uint16, error) {
	d.align(2)
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return d.order.Uint16(b), nil
}

func (d *Decoder) ReadInt32() (int32, error) {
	u, err := d.ReadUint32()
	return int32(u), err
}

func (d *Decoder) ReadUint32() (uint32, error) {
	d.align(4)
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return d.order.Uint32(b), nil
}

func (d *Decoder) ReadInt64() (int64, error) {
	u, err := d.ReadUint64()
	return int64(u), err
}

func (d *Decoder) ReadUint64() (uint64, error) {
	d.align(8)
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return d.order.Uint64(b), nil
}

func (d *Decoder) ReadFloat32() (float32, error) {
	u, err := d.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

func (d *Decoder) ReadFloat64() (float64, error) {
	u, err := d.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// ReadString reads a length-prefixed, null-terminated UTF-8 string. Both a
// zero length and a length of one with a bare terminator denote the empty
// string.
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadUint32()
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}
	b, err := d.take(int(length))
	if err != nil {
		return "", err
	}
	content := b[:length-1]
	if !utf8.Valid(content) {
		return "", &DecodeError{Reason: "invalid UTF-8 string"}
	}
	return string(content), nil
}

// ReadWString reads a wide string of aligned 32-bit code points. The length
// prefix counts code points including the terminator. Values that are not
// valid code points are dropped from the result but still advance the cursor.
func (d *Decoder) ReadWString() (string, error) {
	length, err := d.ReadUint32()
	if err != nil {
		return "", err
	}
	if length <= 1 {
		if length == 1 {
			if _, err := d.ReadUint32(); err != nil {
				return "", err
			}
		}
		return "", nil
	}
	runes := make([]rune, 0, length-1)
	for i := uint32(0); i < length-1; i++ {
		code, err := d.ReadUint32()
		if err != nil {
			return "", err
		}
		if utf8.ValidRune(rune(code)) {
			runes = append(runes, rune(code))
		}
	}
	if _, err := d.ReadUint32(); err != nil { // terminator
		return "", err
	}
	return string(runes), nil
}

// ReadBytes reads length raw bytes with no alignment.
func (d *Decoder) ReadBytes(length int) ([]byte, error) {
	b, err := d.take(length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, b)
	return out, nil
}

// SequenceLength reads the u32 element count preceding a sequence.
func (d *Decoder) SequenceLength() (int, error) {
	n, err := d.ReadUint32()
	return int(n), err
}
