package cdr

import (
	"encoding/binary"
	"math"
)

// Encoder builds a CDR payload, padding primitives to their natural
// alignment. The zero byte padding written here is ignored by decoders.
type Encoder struct {
	buf   []byte
	order binary.ByteOrder
}

// NewEncoder returns an encoder with the 4-byte encapsulation header already
// written.
func NewEncoder(littleEndian bool) *Encoder {
	var flag byte
	var order binary.ByteOrder = binary.BigEndian
	if littleEndian {
		flag = 1
		order = binary.LittleEndian
	}
	return &Encoder{
		buf:   []byte{0x00, flag, 0x00, 0x00},
		order: order,
	}
}

// Bytes returns the encoded payload including the header.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// align pads so the payload offset (buffer length minus the 4-byte header)
// is a multiple of n.
func (e *Encoder) align(n int) {
	if rem := (len(e.buf) - 4) % n; rem != 0 {
		for i := 0; i < n-rem; i++ {
			e.buf = append(e.buf, 0)
		}
	}
}

func (e *Encoder) WriteBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

func (e *Encoder) WriteInt8(v int8) {
	e.buf = append(e.buf, byte(v))
}

func (e *Encoder) WriteUint8(v uint8) {
	e.buf = append(e.buf, v)
}

// WriteChar appends a single-byte character.
func (e *Encoder) WriteChar(v byte) {
	e.buf = append(e.buf, v)
}

func (e *Encoder) WriteInt16(v int16) {
	e.WriteUint16(uint16(v))
}

func (e *Encoder) WriteUint16(v uint16) {
	e.align(2)
	e.buf = e.order.AppendUint16(e.buf, v)
}

func (e *Encoder) WriteInt32(v int32) {
	e.WriteUint32(uint32(v))
}

func (e *Encoder) WriteUint32(v uint32) {
	e.align(4)
	e.buf = e.order.AppendUint32(e.buf, v)
}

func (e *Encoder) WriteInt64(v int64) {
	e.WriteUint64(uint64(v))
}

func (e *Encoder) WriteUint64(v uint64) {
	e.align(8)
	e.buf = e.order.AppendUint64(e.buf, v)
}

func (e *Encoder) WriteFloat32(v float32) {
	e.WriteUint32(math.Float32bits(v))
}

func (e *Encoder) WriteFloat64(v float64) {
	e.WriteUint64(math.Float64bits(v))
}

// WriteString writes a length-prefixed string. The prefix counts the content
// plus the null terminator.
func (e *Encoder) WriteString(s string) {
	e.WriteUint32(uint32(len(s) + 1))
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
}

// WriteWString writes a wide string of aligned 32-bit code points. The prefix
// counts code points including the terminator.
func (e *Encoder) WriteWString(s string) {
	runes := []rune(s)
	e.WriteUint32(uint32(len(runes) + 1))
	for _, r := range runes {
		e.WriteUint32(uint32(r))
	}
	e.WriteUint32(0)
}

// WriteBytes appends raw bytes with no alignment.
func (e *Encoder) WriteBytes(b []byte) {
	e.buf = append(e.buf, b...)
}

// WriteSequenceLength writes the u32 element count preceding a sequence.
func (e *Encoder) WriteSequenceLength(n int) {
	e.WriteUint32(uint32(n))
}
