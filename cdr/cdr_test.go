package cdr

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siliconlad/pybag/bio"
)

func TestPrimitiveRoundTrip(t *testing.T) {
	for _, littleEndian := range []bool{true, false} {
		name := "big endian"
		if littleEndian {
			name = "little endian"
		}
		t.Run(name, func(t *testing.T) {
			e := NewEncoder(littleEndian)
			e.WriteBool(true)
			e.WriteInt8(-42)
			e.WriteUint8(42)
			e.WriteInt16(-1000)
			e.WriteUint16(1000)
			e.WriteInt32(-100000)
			e.WriteUint32(100000)
			e.WriteInt64(-10_000_000_000)
			e.WriteUint64(10_000_000_000)
			e.WriteFloat32(3.5)
			e.WriteFloat64(3.14159265359)
			e.WriteChar('x')

			d, err := NewDecoder(e.Bytes())
			require.NoError(t, err)

			b, err := d.ReadBool()
			require.NoError(t, err)
			assert.True(t, b)
			i8, err := d.ReadInt8()
			require.NoError(t, err)
			assert.Equal(t, int8(-42), i8)
			u8, err := d.ReadUint8()
			require.NoError(t, err)
			assert.Equal(t, uint8(42), u8)
			i16, err := d.ReadInt16()
			require.NoError(t, err)
			assert.Equal(t, int16(-1000), i16)
			u16, err := d.ReadUint16()
			require.NoError(t, err)
			assert.Equal(t, uint16(1000), u16)
			i32, err := d.ReadInt32()
			require.NoError(t, err)
			assert.Equal(t, int32(-100000), i32)
			u32, err := d.ReadUint32()
			require.NoError(t, err)
			assert.Equal(t, uint32(100000), u32)
			i64, err := d.ReadInt64()
			require.NoError(t, err)
			assert.Equal(t, int64(-10_000_000_000), i64)
			u64, err := d.ReadUint64()
			require.NoError(t, err)
			assert.Equal(t, uint64(10_000_000_000), u64)
			f32, err := d.ReadFloat32()
			require.NoError(t, err)
			assert.Equal(t, float32(3.5), f32)
			f64, err := d.ReadFloat64()
			require.NoError(t, err)
			assert.InDelta(t, 3.14159265359, f64, 1e-12)
			c, err := d.ReadChar()
			require.NoError(t, err)
			assert.Equal(t, byte('x'), c)
		})
	}
}

func TestAlignmentRelativeToHeader(t *testing.T) {
	// after one u8, each wider primitive must start at a physical offset
	// congruent to 4 modulo its size
	cases := []struct {
		assertion string
		write     func(*Encoder)
		size      int
	}{
		{"u16", func(e *Encoder) { e.WriteUint16(0xaabb) }, 2},
		{"u32", func(e *Encoder) { e.WriteUint32(0xaabbccdd) }, 4},
		{"u64", func(e *Encoder) { e.WriteUint64(0xaabbccddeeff0011) }, 8},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			e := NewEncoder(true)
			e.WriteUint8(1)
			c.write(e)
			buf := e.Bytes()
			// header(4) + u8(1) + padding up to the next multiple of size
			padded := c.size
			assert.Len(t, buf, 4+padded+c.size)
			start := 4 + padded
			assert.Equal(t, (4+padded)%c.size, 4%c.size)
			for _, pad := range buf[5:start] {
				assert.Zero(t, pad)
			}
		})
	}
}

func TestDecoderAlignmentSkipsPadding(t *testing.T) {
	e := NewEncoder(true)
	e.WriteUint8(7)
	e.WriteUint64(99)
	d, err := NewDecoder(e.Bytes())
	require.NoError(t, err)
	u8, err := d.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(7), u8)
	u64, err := d.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(99), u64)
}

func TestStringRoundTrip(t *testing.T) {
	cases := []string{"", "hello world", "héllo wörld", "日本語"}
	for _, s := range cases {
		t.Run(s, func(t *testing.T) {
			e := NewEncoder(true)
			e.WriteString(s)
			// length prefix counts content plus terminator
			assert.Len(t, e.Bytes(), 4+4+len(s)+1)
			d, err := NewDecoder(e.Bytes())
			require.NoError(t, err)
			out, err := d.ReadString()
			require.NoError(t, err)
			assert.Equal(t, s, out)
		})
	}
}

func TestEmptyStringLengthZeroAccepted(t *testing.T) {
	buf := []byte{0x00, 0x01, 0x00, 0x00}
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	d, err := NewDecoder(buf)
	require.NoError(t, err)
	s, err := d.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestInvalidUTF8Rejected(t *testing.T) {
	buf := []byte{0x00, 0x01, 0x00, 0x00}
	buf = binary.LittleEndian.AppendUint32(buf, 3)
	buf = append(buf, 0xff, 0xfe, 0x00)
	d, err := NewDecoder(buf)
	require.NoError(t, err)
	_, err = d.ReadString()
	assert.ErrorIs(t, err, &DecodeError{})
}

func TestWStringRoundTrip(t *testing.T) {
	for _, s := range []string{"", "wide", "日本語"} {
		t.Run(s, func(t *testing.T) {
			e := NewEncoder(true)
			e.WriteWString(s)
			d, err := NewDecoder(e.Bytes())
			require.NoError(t, err)
			out, err := d.ReadWString()
			require.NoError(t, err)
			assert.Equal(t, s, out)
		})
	}
}

func TestWStringInvalidCodePointSkipped(t *testing.T) {
	buf := []byte{0x00, 0x01, 0x00, 0x00}
	buf = binary.LittleEndian.AppendUint32(buf, 3) // two code points plus terminator
	buf = binary.LittleEndian.AppendUint32(buf, uint32('a'))
	buf = binary.LittleEndian.AppendUint32(buf, 0xd800) // surrogate, not a valid rune
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	d, err := NewDecoder(buf)
	require.NoError(t, err)
	out, err := d.ReadWString()
	require.NoError(t, err)
	assert.Equal(t, "a", out)
}

func TestEndianHeaderFlag(t *testing.T) {
	le := NewEncoder(true).Bytes()
	assert.Equal(t, []byte{0x00, 0x01, 0x00, 0x00}, le)
	be := NewEncoder(false).Bytes()
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, be)
}

func TestShortHeaderRejected(t *testing.T) {
	_, err := NewDecoder([]byte{0x00, 0x01})
	assert.ErrorIs(t, err, &DecodeError{})
}

func TestUnderflowReportsSizes(t *testing.T) {
	d, err := NewDecoder([]byte{0x00, 0x01, 0x00, 0x00, 0x01})
	require.NoError(t, err)
	_, err = d.ReadUint64()
	var tooSmall *bio.BufferTooSmallError
	require.ErrorAs(t, err, &tooSmall)
	assert.Equal(t, 8, tooSmall.Needed)
	assert.Equal(t, 1, tooSmall.Available)
}

func TestReadBytesAndSequenceLength(t *testing.T) {
	e := NewEncoder(true)
	e.WriteSequenceLength(3)
	e.WriteBytes([]byte{1, 2, 3})
	d, err := NewDecoder(e.Bytes())
	require.NoError(t, err)
	n, err := d.SequenceLength()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	b, err := d.ReadBytes(n)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)
}
