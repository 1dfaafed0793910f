package mcap

import (
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.mcap")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestDirectIterator(t *testing.T) {
	data := writeTestFile(t, &WriterOptions{Profile: "ros2"}, 10000, 1000)
	reader, err := OpenFast(writeTempFile(t, data))
	require.NoError(t, err)
	defer reader.Close()

	assert.Zero(t, reader.ChunkCount())

	mapped := reader.Data()
	base := uintptr(unsafe.Pointer(&mapped[0]))
	end := base + uintptr(len(mapped))

	it := reader.Messages()
	count := 0
	for {
		ref, ok := it.Next()
		if !ok {
			break
		}
		assert.Equal(t, uint16(1), ref.ChannelID)
		assert.Equal(t, uint64(count)*1000, ref.LogTime)
		require.Len(t, ref.Data, 5)
		// the payload slice must lie inside the mapped region
		p := uintptr(unsafe.Pointer(&ref.Data[0]))
		assert.GreaterOrEqual(t, p, base)
		assert.Less(t, p, end)
		count++
	}
	assert.Equal(t, 10000, count)
}

func TestForEachMessageUnchunked(t *testing.T) {
	data := writeTestFile(t, &WriterOptions{Profile: "ros2"}, 100, 1000)
	reader, err := OpenFast(writeTempFile(t, data))
	require.NoError(t, err)
	defer reader.Close()

	var logTimes []uint64
	count, err := reader.ForEachMessage(func(ref MessageRef) error {
		logTimes = append(logTimes, ref.LogTime)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 100, count)
	assert.Equal(t, uint64(99000), logTimes[99])
}

func TestForEachMessageChunked(t *testing.T) {
	for _, compression := range []CompressionFormat{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(compression.String(), func(t *testing.T) {
			data := writeTestFile(t, &WriterOptions{
				Profile:     "ros2",
				ChunkSize:   4096,
				Compression: compression,
			}, 1000, 1000)
			reader, err := OpenFast(writeTempFile(t, data))
			require.NoError(t, err)
			defer reader.Close()

			assert.Greater(t, reader.ChunkCount(), 1)
			next := uint64(0)
			count, err := reader.ForEachMessage(func(ref MessageRef) error {
				assert.Equal(t, next, ref.LogTime)
				next += 1000
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, 1000, count)
		})
	}
}

func TestForEachMessagePropagatesCallbackError(t *testing.T) {
	data := writeTestFile(t, &WriterOptions{Profile: "ros2"}, 10, 1000)
	reader, err := OpenFast(writeTempFile(t, data))
	require.NoError(t, err)
	defer reader.Close()

	calls := 0
	_, err = reader.ForEachMessage(func(MessageRef) error {
		calls++
		if calls == 3 {
			return os.ErrClosed
		}
		return nil
	})
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.Equal(t, 3, calls)
}

func TestOpenFastRejectsCorruptFooter(t *testing.T) {
	data := append([]byte{}, writeTestFile(t, &WriterOptions{Profile: "ros2"}, 1, 1000)...)
	footerStart := len(data) - 37
	data[footerStart] = byte(OpChannel) // clobber the footer opcode
	_, err := OpenFast(writeTempFile(t, data))
	assert.ErrorIs(t, err, &UnexpectedRecordError{})
}
