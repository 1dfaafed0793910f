package ros2msg

import (
	"fmt"
	"strings"

	"github.com/siliconlad/pybag/cdr"
)

// UnknownTypeError indicates a complex field references a type absent from
// the sub-schema table.
type UnknownTypeError string

func (e UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown complex type: %q", string(e))
}

// DecodeMessage decodes a CDR payload against a parsed schema, returning a
// value tree keyed by field name.
func DecodeMessage(schema *Schema, subSchemas map[string]*Schema, data []byte) (map[string]any, error) {
	dec, err := cdr.NewDecoder(data)
	if err != nil {
		return nil, err
	}
	return decodeFields(schema, subSchemas, dec)
}

func decodeFields(schema *Schema, subSchemas map[string]*Schema, dec *cdr.Decoder) (map[string]any, error) {
	values := make(map[string]any, len(schema.Fields))
	for _, field := range schema.Fields {
		value, err := decodeField(field.Type, subSchemas, dec)
		if err != nil {
			return nil, fmt.Errorf("failed to decode field %q: %w", field.Name, err)
		}
		values[field.Name] = value
	}
	return values, nil
}

func decodeField(fieldType FieldType, subSchemas map[string]*Schema, dec *cdr.Decoder) (any, error) {
	switch t := fieldType.(type) {
	case Primitive:
		return decodePrimitive(t.Kind, dec)
	case String:
		if t.Wide {
			return dec.ReadWString()
		}
		return dec.ReadString()
	case Array:
		values := make([]any, 0, t.Length)
		for i := 0; i < t.Length; i++ {
			v, err := decodeField(t.Element, subSchemas, dec)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, nil
	case Sequence:
		length, err := dec.SequenceLength()
		if err != nil {
			return nil, err
		}
		values := make([]any, 0, length)
		for i := 0; i < length; i++ {
			v, err := decodeField(t.Element, subSchemas, dec)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, nil
	case Complex:
		sub, err := lookupSchema(subSchemas, t.TypeName)
		if err != nil {
			return nil, err
		}
		return decodeFields(sub, subSchemas, dec)
	}
	return nil, fmt.Errorf("unhandled field type %T", fieldType)
}

// lookupSchema resolves a complex type name, retrying with the "/msg/"
// segment removed to match definitions that qualify names differently.
func lookupSchema(subSchemas map[string]*Schema, name string) (*Schema, error) {
	if sub, ok := subSchemas[name]; ok {
		return sub, nil
	}
	if sub, ok := subSchemas[strings.Replace(name, "/msg/", "/", 1)]; ok {
		return sub, nil
	}
	return nil, UnknownTypeError(name)
}

func decodePrimitive(kind PrimitiveType, dec *cdr.Decoder) (any, error) {
	switch kind {
	case Bool:
		return dec.ReadBool()
	case Int8:
		return dec.ReadInt8()
	case Uint8, Byte:
		return dec.ReadUint8()
	case Int16:
		return dec.ReadInt16()
	case Uint16:
		return dec.ReadUint16()
	case Int32:
		return dec.ReadInt32()
	case Uint32:
		return dec.ReadUint32()
	case Int64:
		return dec.ReadInt64()
	case Uint64:
		return dec.ReadUint64()
	case Float32:
		return dec.ReadFloat32()
	case Float64:
		return dec.ReadFloat64()
	case Char:
		return dec.ReadChar()
	}
	return nil, fmt.Errorf("unhandled primitive type %s", kind)
}
