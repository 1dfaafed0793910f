package bio

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesReader(t *testing.T) {
	r := NewBytesReader([]byte{1, 2, 3, 4, 5})

	b, err := r.Read(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, b)
	assert.Equal(t, int64(2), r.Position())

	peeked, err := r.Peek(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 4}, peeked)
	assert.Equal(t, int64(2), r.Position())

	// peeking past the end returns what is left
	long, err := r.Peek(100)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 4, 5}, long)

	_, err = r.Read(10)
	var tooSmall *BufferTooSmallError
	require.ErrorAs(t, err, &tooSmall)
	assert.Equal(t, 10, tooSmall.Needed)
	assert.Equal(t, 3, tooSmall.Available)

	pos, err := r.Seek(-1, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(4), pos)
	b, err = r.Read(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{5}, b)

	_, err = r.Seek(2, io.SeekStart)
	require.NoError(t, err)
	pos, err = r.Seek(1, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pos)
	assert.Equal(t, int64(5), r.Len())
}

func TestFileReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	content := []byte("hello mapped world")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), r.Len())
	b, err := r.Read(5)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), b)
	assert.Equal(t, content, r.Data())
	require.NoError(t, r.Close())
	// double close is harmless
	require.NoError(t, r.Close())
}

func TestFileReaderMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.bin"))
	assert.Error(t, err)
}

func TestSliceView(t *testing.T) {
	v := NewSliceView([]byte{
		0x01,
		0x02, 0x00,
		0x03, 0x00, 0x00, 0x00,
		0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0xaa, 0xbb,
	})
	u8, err := v.Uint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), u8)
	u16, err := v.Uint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(2), u16)
	u32, err := v.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(3), u32)
	u64, err := v.Uint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), u64)

	assert.Equal(t, 2, v.Remaining())
	peeked, err := v.PeekSlice(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa, 0xbb}, peeked)
	assert.Equal(t, 2, v.Remaining())

	require.NoError(t, v.Skip(1))
	s, err := v.Slice(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xbb}, s)
	assert.True(t, v.Empty())

	_, err = v.Slice(1)
	var tooSmall *BufferTooSmallError
	assert.ErrorAs(t, err, &tooSmall)
}

func TestWriters(t *testing.T) {
	t.Run("bytes", func(t *testing.T) {
		w := NewBytesWriter()
		n, err := w.Write([]byte("abc"))
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, uint64(3), w.Position())
		require.NoError(t, w.Flush())
		assert.Equal(t, []byte("abc"), w.Bytes())
	})
	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.bin")
		w, err := Create(path)
		require.NoError(t, err)
		_, err = w.Write([]byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, uint64(5), w.Position())
		require.NoError(t, w.Close())

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), content)
	})
}
