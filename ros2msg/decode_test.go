package ros2msg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siliconlad/pybag/cdr"
)

func TestDecodePoint(t *testing.T) {
	parser := NewParser()
	schema, subs, err := parser.Parse("geometry_msgs/msg/Point", []byte("float64 x\nfloat64 y\nfloat64 z\n"))
	require.NoError(t, err)

	e := cdr.NewEncoder(true)
	e.WriteFloat64(1.0)
	e.WriteFloat64(2.0)
	e.WriteFloat64(3.0)

	tree, err := DecodeMessage(schema, subs, e.Bytes())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1.0, "y": 2.0, "z": 3.0}, tree)
}

func TestDecodeMixedPrimitives(t *testing.T) {
	parser := NewParser()
	text := "bool flag\nuint8 small\nint64 big\nfloat32 ratio\nstring label\n"
	schema, subs, err := parser.Parse("pkg/T", []byte(text))
	require.NoError(t, err)

	e := cdr.NewEncoder(true)
	e.WriteBool(true)
	e.WriteUint8(9)
	e.WriteInt64(-5)
	e.WriteFloat32(0.5)
	e.WriteString("base_link")

	tree, err := DecodeMessage(schema, subs, e.Bytes())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"flag":  true,
		"small": uint8(9),
		"big":   int64(-5),
		"ratio": float32(0.5),
		"label": "base_link",
	}, tree)
}

func TestDecodeArraysAndSequences(t *testing.T) {
	parser := NewParser()
	schema, subs, err := parser.Parse("pkg/T", []byte("float64[3] fixed\nint32[] varying\n"))
	require.NoError(t, err)

	e := cdr.NewEncoder(true)
	e.WriteFloat64(1)
	e.WriteFloat64(2)
	e.WriteFloat64(3)
	e.WriteSequenceLength(2)
	e.WriteInt32(10)
	e.WriteInt32(20)

	tree, err := DecodeMessage(schema, subs, e.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, tree["fixed"])
	assert.Equal(t, []any{int32(10), int32(20)}, tree["varying"])
}

func TestDecodeNestedComplex(t *testing.T) {
	divider := strings.Repeat("=", 80)
	text := strings.Join([]string{
		"Point position",
		"float64 confidence",
		divider,
		"MSG: geometry_msgs/Point",
		"float64 x",
		"float64 y",
		"float64 z",
	}, "\n")
	parser := NewParser()
	schema, subs, err := parser.Parse("geometry_msgs/msg/Detection", []byte(text))
	require.NoError(t, err)

	e := cdr.NewEncoder(true)
	e.WriteFloat64(1)
	e.WriteFloat64(2)
	e.WriteFloat64(3)
	e.WriteFloat64(0.9)

	tree, err := DecodeMessage(schema, subs, e.Bytes())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1.0, "y": 2.0, "z": 3.0}, tree["position"])
	assert.Equal(t, 0.9, tree["confidence"])
}

func TestDecodeComplexMsgFallback(t *testing.T) {
	// a field qualified with /msg/ resolves against a sub-schema registered
	// without it
	divider := strings.Repeat("=", 80)
	text := strings.Join([]string{
		"geometry_msgs/msg/Point p",
		divider,
		"MSG: geometry_msgs/Point",
		"float64 x",
		"float64 y",
		"float64 z",
	}, "\n")
	parser := NewParser()
	schema, subs, err := parser.Parse("pkg/T", []byte(text))
	require.NoError(t, err)

	e := cdr.NewEncoder(true)
	e.WriteFloat64(4)
	e.WriteFloat64(5)
	e.WriteFloat64(6)

	tree, err := DecodeMessage(schema, subs, e.Bytes())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 4.0, "y": 5.0, "z": 6.0}, tree["p"])
}

func TestDecodeUnknownComplexFails(t *testing.T) {
	parser := NewParser()
	schema, subs, err := parser.Parse("pkg/T", []byte("Missing m\n"))
	require.NoError(t, err)
	e := cdr.NewEncoder(true)
	_, err = DecodeMessage(schema, subs, e.Bytes())
	assert.ErrorIs(t, err, UnknownTypeError("pkg/Missing"))
}

func TestDecodeStampedMessage(t *testing.T) {
	parser := NewParser()
	schema, subs, err := parser.Parse("pkg/Stamped", []byte("builtin_interfaces/Time stamp\nstring frame\n"))
	require.NoError(t, err)

	e := cdr.NewEncoder(true)
	e.WriteInt32(100)
	e.WriteUint32(500)
	e.WriteString("map")

	tree, err := DecodeMessage(schema, subs, e.Bytes())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"sec": int32(100), "nanosec": uint32(500)}, tree["stamp"])
	assert.Equal(t, "map", tree["frame"])
}

func TestDecodeUnderflowAborts(t *testing.T) {
	parser := NewParser()
	schema, subs, err := parser.Parse("pkg/T", []byte("float64 x\nfloat64 y\n"))
	require.NoError(t, err)
	e := cdr.NewEncoder(true)
	e.WriteFloat64(1)
	_, err = DecodeMessage(schema, subs, e.Bytes())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `"y"`)
}
