package mcap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siliconlad/pybag/bio"
	"github.com/siliconlad/pybag/cdr"
	"github.com/siliconlad/pybag/ros2msg"
)

// Writes a single CDR-encoded point message and decodes it back through the
// schema parser.
func TestSingleMessageDecode(t *testing.T) {
	e := cdr.NewEncoder(true)
	e.WriteFloat64(1.0)
	e.WriteFloat64(2.0)
	e.WriteFloat64(3.0)

	sink := bio.NewBytesWriter()
	w, err := NewWriter(sink, &WriterOptions{Profile: "ros2"})
	require.NoError(t, err)
	schemaData := []byte("float64 x\nfloat64 y\nfloat64 z\n")
	require.NoError(t, w.WriteSchema(&Schema{
		ID: 1, Name: "geometry_msgs/msg/Point", Encoding: "ros2msg", Data: schemaData,
	}))
	require.NoError(t, w.WriteChannel(&Channel{
		ID: 1, SchemaID: 1, Topic: "/p", MessageEncoding: "cdr", Metadata: map[string]string{},
	}))
	require.NoError(t, w.WriteMessage(&Message{
		ChannelID:   1,
		Sequence:    0,
		LogTime:     1_000_000,
		PublishTime: 1_000_000,
		Data:        e.Bytes(),
	}))
	require.NoError(t, w.Close())

	reader, err := NewReader(bio.NewBytesReader(sink.Bytes()), nil)
	require.NoError(t, err)
	messages, err := reader.Messages(nil)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	schema, err := reader.ChannelSchema(messages[0].ChannelID)
	require.NoError(t, err)
	parsed, subs, err := ros2msg.NewParser().Parse(schema.Name, schema.Data)
	require.NoError(t, err)
	tree, err := ros2msg.DecodeMessage(parsed, subs, messages[0].Data)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1.0, "y": 2.0, "z": 3.0}, tree)
}
