package ros2msg

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError indicates malformed message-definition text.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("schema parse error: %s", e.Reason)
}

func (e *ParseError) Is(err error) bool {
	_, ok := err.(*ParseError)
	return ok
}

// schemaDivider separates the main schema from each concatenated sub-schema.
var schemaDivider = strings.Repeat("=", 80)

// Parser parses ROS2 message definitions. The zero value is not usable; call
// NewParser.
type Parser struct {
	builtins map[string]*Schema
}

// NewParser returns a parser preloaded with the builtin_interfaces schemas.
func NewParser() *Parser {
	stamp := func(name string) *Schema {
		return &Schema{
			Name: name,
			Fields: []Field{
				{Name: "sec", Type: Primitive{Kind: Int32}},
				{Name: "nanosec", Type: Primitive{Kind: Uint32}},
			},
		}
	}
	return &Parser{
		builtins: map[string]*Schema{
			"builtin_interfaces/Time":     stamp("builtin_interfaces/Time"),
			"builtin_interfaces/Duration": stamp("builtin_interfaces/Duration"),
		},
	}
}

// Parse parses the message definition for the schema called name. The data
// may concatenate sub-schema definitions after divider lines of 80 equals
// signs; these are returned keyed by fully qualified type name. Builtin
// stamp schemas are injected whenever the text mentions them.
func (p *Parser) Parse(name string, data []byte) (*Schema, map[string]*Schema, error) {
	text := string(data)
	packageName, _, _ := strings.Cut(name, "/")

	var cleaned []string
	for _, line := range strings.Split(text, "\n") {
		line = stripComment(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	parts := strings.Split(strings.Join(cleaned, "\n"), schemaDivider)

	main, err := p.parseFields(name, strings.TrimSpace(parts[0]), packageName)
	if err != nil {
		return nil, nil, err
	}

	subSchemas := make(map[string]*Schema)
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lines := strings.Split(part, "\n")
		first := strings.TrimSpace(lines[0])
		if !strings.HasPrefix(first, "MSG: ") {
			continue
		}
		subName := strings.TrimPrefix(first, "MSG: ")
		subPackage, _, _ := strings.Cut(subName, "/")
		sub, err := p.parseFields(subName, strings.Join(lines[1:], "\n"), subPackage)
		if err != nil {
			return nil, nil, err
		}
		subSchemas[subName] = sub
	}

	for builtinName, builtin := range p.builtins {
		if _, ok := subSchemas[builtinName]; !ok && strings.Contains(text, builtinName) {
			subSchemas[builtinName] = builtin
		}
	}
	return main, subSchemas, nil
}

// parseFields parses the body of one schema. Lines that are neither a field
// nor a constant are dropped, preserving forward compatibility with new
// annotations.
func (p *Parser) parseFields(name, text, packageName string) (*Schema, error) {
	schema := &Schema{Name: name}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		typeStr := parts[0]
		nameToken := parts[1]

		if strings.Contains(nameToken, "=") || (len(parts) > 2 && strings.HasPrefix(parts[2], "=")) {
			constName, constValue := splitConstant(parts)
			fieldType, err := p.parseFieldType(typeStr, packageName)
			if err != nil {
				return nil, err
			}
			value, err := parseValue(fieldType, constValue)
			if err != nil {
				return nil, err
			}
			schema.Constants = append(schema.Constants, Constant{
				Name:  constName,
				Type:  fieldType,
				Value: value,
			})
			continue
		}

		fieldType, err := p.parseFieldType(typeStr, packageName)
		if err != nil {
			return nil, err
		}
		field := Field{Name: nameToken, Type: fieldType}
		if len(parts) > 2 {
			value, err := parseValue(fieldType, strings.Join(parts[2:], " "))
			if err != nil {
				return nil, err
			}
			field.Default = value
		}
		schema.Fields = append(schema.Fields, field)
	}
	return schema, nil
}

// splitConstant extracts the name and value tokens of a constant line, which
// may embed the equals sign in the name token or carry it separately.
func splitConstant(parts []string) (name, value string) {
	nameToken := parts[1]
	if eq := strings.Index(nameToken, "="); eq >= 0 {
		return nameToken[:eq], nameToken[eq+1:]
	}
	switch {
	case len(parts) > 3:
		return nameToken, strings.Join(parts[3:], " ")
	case len(parts) > 2 && len(parts[2]) > 1:
		return nameToken, parts[2][1:]
	default:
		return nameToken, ""
	}
}

func (p *Parser) parseFieldType(typeStr, packageName string) (FieldType, error) {
	if bracket := strings.Index(typeStr, "["); bracket >= 0 {
		if !strings.HasSuffix(typeStr, "]") {
			return nil, &ParseError{Reason: fmt.Sprintf("malformed array type %q", typeStr)}
		}
		element, err := p.parseFieldType(typeStr[:bracket], packageName)
		if err != nil {
			return nil, err
		}
		lengthStr := typeStr[bracket+1 : len(typeStr)-1]
		if lengthStr == "" {
			return Sequence{Element: element}, nil
		}
		if bound, ok := strings.CutPrefix(lengthStr, "<="); ok {
			maxLen, err := strconv.Atoi(bound)
			if err != nil {
				return nil, &ParseError{Reason: fmt.Sprintf("invalid bounded length %q", lengthStr)}
			}
			return Array{Element: element, Length: maxLen, Bounded: true}, nil
		}
		length, err := strconv.Atoi(lengthStr)
		if err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("invalid array length %q", lengthStr)}
		}
		return Array{Element: element, Length: length}, nil
	}

	if rest, ok := strings.CutPrefix(typeStr, "wstring"); ok {
		return parseStringBound(rest, typeStr, true)
	}
	if rest, ok := strings.CutPrefix(typeStr, "string"); ok {
		return parseStringBound(rest, typeStr, false)
	}

	if prim, ok := primitiveNames[typeStr]; ok {
		return Primitive{Kind: prim}, nil
	}

	fullName := typeStr
	if fullName == "Header" {
		fullName = "std_msgs/Header"
	} else if !strings.Contains(fullName, "/") {
		fullName = packageName + "/" + fullName
	}
	return Complex{TypeName: fullName}, nil
}

func parseStringBound(rest, typeStr string, wide bool) (FieldType, error) {
	if rest == "" {
		return String{Wide: wide}, nil
	}
	bound, ok := strings.CutPrefix(rest, "<=")
	if !ok {
		return nil, &ParseError{Reason: fmt.Sprintf("malformed string type %q", typeStr)}
	}
	maxLen, err := strconv.Atoi(bound)
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid string bound %q", typeStr)}
	}
	return String{Wide: wide, MaxLength: maxLen}, nil
}

// parseValue parses a default or constant token sequence against the declared
// type.
func parseValue(fieldType FieldType, valueStr string) (any, error) {
	valueStr = strings.TrimSpace(valueStr)
	switch t := fieldType.(type) {
	case Primitive:
		switch t.Kind {
		case Bool:
			return valueStr == "true" || valueStr == "True" || valueStr == "1", nil
		case Int8, Int16, Int32, Int64:
			v, err := strconv.ParseInt(valueStr, 10, 64)
			if err != nil {
				return nil, &ParseError{Reason: fmt.Sprintf("invalid int %q", valueStr)}
			}
			return v, nil
		case Uint8, Uint16, Uint32, Uint64, Byte:
			v, err := strconv.ParseUint(valueStr, 10, 64)
			if err != nil {
				return nil, &ParseError{Reason: fmt.Sprintf("invalid uint %q", valueStr)}
			}
			return v, nil
		case Float32, Float64:
			v, err := strconv.ParseFloat(valueStr, 64)
			if err != nil {
				return nil, &ParseError{Reason: fmt.Sprintf("invalid float %q", valueStr)}
			}
			return v, nil
		case Char:
			if valueStr == "" {
				return uint64(0), nil
			}
			return uint64(valueStr[0]), nil
		}
		return nil, &ParseError{Reason: fmt.Sprintf("unhandled primitive %s", t.Kind)}
	case String:
		return strings.Trim(strings.Trim(valueStr, `"`), "'"), nil
	case Array:
		return parseArrayValue(t.Element, valueStr)
	case Sequence:
		return parseArrayValue(t.Element, valueStr)
	case Complex:
		return nil, &ParseError{Reason: "complex types cannot have default values"}
	}
	return nil, &ParseError{Reason: "unhandled field type"}
}

func parseArrayValue(element FieldType, valueStr string) (any, error) {
	if !strings.HasPrefix(valueStr, "[") || !strings.HasSuffix(valueStr, "]") {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid array literal %q", valueStr)}
	}
	inner := valueStr[1 : len(valueStr)-1]
	var values []any
	if strings.TrimSpace(inner) != "" {
		for _, token := range strings.Split(inner, ",") {
			v, err := parseValue(element, token)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
	}
	return values, nil
}

// stripComment removes a trailing # comment, ignoring hashes inside single or
// double quoted literals, and trims whitespace.
func stripComment(line string) string {
	inSingle := false
	inDouble := false
	for i, c := range line {
		switch c {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '#':
			if !inSingle && !inDouble {
				return strings.TrimSpace(line[:i])
			}
		}
	}
	return strings.TrimSpace(line)
}
