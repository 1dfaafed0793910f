package mcap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/siliconlad/pybag/bio"
)

func u64p(v uint64) *uint64 {
	return &v
}

// writeTestFile produces a file with one schema, one channel, and count
// messages at logTime = i * step.
func writeTestFile(t *testing.T, opts *WriterOptions, count int, step uint64) []byte {
	t.Helper()
	sink := bio.NewBytesWriter()
	w, err := NewWriter(sink, opts)
	require.NoError(t, err)
	require.NoError(t, w.WriteSchema(&Schema{
		ID:       1,
		Name:     "geometry_msgs/msg/Point",
		Encoding: "ros2msg",
		Data:     []byte("float64 x\nfloat64 y\nfloat64 z\n"),
	}))
	require.NoError(t, w.WriteChannel(&Channel{
		ID:              1,
		SchemaID:        1,
		Topic:           "/p",
		MessageEncoding: "cdr",
		Metadata:        map[string]string{},
	}))
	for i := 0; i < count; i++ {
		require.NoError(t, w.WriteMessage(&Message{
			ChannelID:   1,
			Sequence:    uint32(i),
			LogTime:     uint64(i) * step,
			PublishTime: uint64(i) * step,
			Data:        []byte{0xde, 0xad, 0xbe, 0xef, byte(i)},
		}))
	}
	require.NoError(t, w.Close())
	return sink.Bytes()
}
