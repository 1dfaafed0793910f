// Package ros2msg parses ROS2 message definitions and decodes CDR payloads
// against them.
package ros2msg

// PrimitiveType enumerates the builtin field types.
type PrimitiveType int

const (
	Bool PrimitiveType = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
	Byte
	Char
)

var primitiveNames = map[string]PrimitiveType{
	"bool":    Bool,
	"int8":    Int8,
	"uint8":   Uint8,
	"int16":   Int16,
	"uint16":  Uint16,
	"int32":   Int32,
	"uint32":  Uint32,
	"int64":   Int64,
	"uint64":  Uint64,
	"float32": Float32,
	"float64": Float64,
	"byte":    Byte,
	"octet":   Byte,
	"char":    Char,
}

func (p PrimitiveType) String() string {
	switch p {
	case Bool:
		return "bool"
	case Int8:
		return "int8"
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	case Int64:
		return "int64"
	case Uint64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Byte:
		return "byte"
	case Char:
		return "char"
	default:
		return "unknown"
	}
}

// FieldType is one of Primitive, String, Array, Sequence, or Complex.
type FieldType interface {
	isFieldType()
}

// Primitive is a builtin scalar type.
type Primitive struct {
	Kind PrimitiveType
}

// String is a narrow or wide string, optionally bounded.
type String struct {
	Wide bool
	// MaxLength bounds the string length; zero means unbounded.
	MaxLength int
}

// Array is a fixed-size (or bounded) sequence of elements.
type Array struct {
	Element FieldType
	Length  int
	// Bounded marks a `[<=N]` declaration: up to Length elements.
	Bounded bool
}

// Sequence is a variable-length list with a u32 count prefix.
type Sequence struct {
	Element FieldType
	// MaxLength bounds the sequence; zero means unbounded.
	MaxLength int
}

// Complex references another schema by fully qualified name.
type Complex struct {
	TypeName string
}

func (Primitive) isFieldType() {}
func (String) isFieldType()    {}
func (Array) isFieldType()     {}
func (Sequence) isFieldType()  {}
func (Complex) isFieldType()   {}

// Field is a named, typed schema member with an optional default value.
type Field struct {
	Name    string
	Type    FieldType
	Default any
}

// Constant is a named compile-time value declared in a schema.
type Constant struct {
	Name  string
	Type  FieldType
	Value any
}

// Schema is a parsed message definition.
type Schema struct {
	Name      string
	Fields    []Field
	Constants []Constant
}
