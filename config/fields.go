package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Field identifies a named scalar of the record reachable through get/set.
type Field uint8

const (
	FieldDelay Field = iota
	FieldLayout
	FieldMode
	FieldAxes
	FieldButtons
	FieldHats
	FieldShift

	fieldCount
)

// FieldType is the wire type tag of a field. The numeric values are the ones
// listed by the help command.
type FieldType uint8

const (
	TypeUint8 FieldType = iota
	TypeInt8
	TypeUint16
	TypeInt16
)

// Digits is the number of hex digits a value of t is formatted with.
func (t FieldType) Digits() int {
	switch t {
	case TypeUint16, TypeInt16:
		return 4
	default:
		return 2
	}
}

func (t FieldType) bits() int { return 4 * t.Digits() }

func (t FieldType) String() string {
	switch t {
	case TypeUint8:
		return "u8"
	case TypeInt8:
		return "i8"
	case TypeUint16:
		return "u16"
	case TypeInt16:
		return "i16"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

var fieldTable = [fieldCount]struct {
	key string
	typ FieldType
}{
	FieldDelay:   {"delay", TypeUint16},
	FieldLayout:  {"kblay", TypeUint8},
	FieldMode:    {"emode", TypeUint8},
	FieldAxes:    {"axes", TypeUint8},
	FieldButtons: {"btns", TypeUint8},
	FieldHats:    {"hats", TypeUint8},
	FieldShift:   {"shift", TypeUint8},
}

// Fields lists every field in protocol order.
func Fields() []Field {
	out := make([]Field, 0, fieldCount)
	for f := range fieldCount {
		out = append(out, f)
	}
	return out
}

// Key returns the protocol key of f.
func (f Field) Key() string {
	if f >= fieldCount {
		return fmt.Sprintf("field(%d)", uint8(f))
	}
	return fieldTable[f].key
}

// Type returns the wire type tag of f.
func (f Field) Type() FieldType {
	if f >= fieldCount {
		return FieldType(0xFF)
	}
	return fieldTable[f].typ
}

func (f Field) String() string { return f.Key() }

// LookupField resolves a protocol key.
func LookupField(key string) (Field, error) {
	for f := range fieldCount {
		if fieldTable[f].key == key {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
}

// Get returns the raw value of f.
func (c *DeviceConfig) Get(f Field) (uint32, error) {
	switch f {
	case FieldDelay:
		return uint32(c.DelayMicros), nil
	case FieldLayout:
		return uint32(c.Layout), nil
	case FieldMode:
		return uint32(c.Mode), nil
	case FieldAxes:
		return uint32(c.JoyAxes), nil
	case FieldButtons:
		return uint32(c.JoyButtons), nil
	case FieldHats:
		return uint32(c.JoyHats), nil
	case FieldShift:
		return uint32(c.ShiftInput), nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedType, f)
}

// Set stores v into f. The value must already fit the field width; range
// checks beyond the width are left to Validate.
func (c *DeviceConfig) Set(f Field, v uint32) error {
	if t := f.Type(); t.Digits() == 2 && v > 0xFF || v > 0xFFFF {
		return fmt.Errorf("%w: %#x does not fit %s", ErrInvalidValue, v, f)
	}
	switch f {
	case FieldDelay:
		c.DelayMicros = uint16(v)
	case FieldLayout:
		c.Layout = KeyboardLayout(v)
	case FieldMode:
		c.Mode = EmulationMode(v)
	case FieldAxes:
		c.JoyAxes = uint8(v)
	case FieldButtons:
		c.JoyButtons = uint8(v)
	case FieldHats:
		c.JoyHats = uint8(v)
	case FieldShift:
		c.ShiftInput = uint8(v)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, f)
	}
	return nil
}

// ParseValue parses hex text (optionally 0x-prefixed) for f. Text that is not
// hex or does not fit the field width is rejected.
func ParseValue(f Field, text string) (uint32, error) {
	t := f.Type()
	switch t {
	case TypeUint8, TypeInt8, TypeUint16, TypeInt16:
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedType, f)
	}
	s := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(text), "0x"), "0X")
	if s == "" {
		return 0, fmt.Errorf("%w: empty value for %s", ErrInvalidValue, f)
	}
	v, err := strconv.ParseUint(s, 16, t.bits())
	if err != nil {
		return 0, fmt.Errorf("%w: %q for %s", ErrInvalidValue, text, f)
	}
	return uint32(v), nil
}

// FormatValue renders v with the fixed hex width of f.
func FormatValue(f Field, v uint32) string {
	return fmt.Sprintf("%0*X", f.Type().Digits(), v)
}
