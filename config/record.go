package config

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Alia5/jammaio/crc"
)

// Record geometry.
const (
	DefaultOffset = 0x80

	headerSize       = 5
	digitalEntrySize = 3 + NameLength
	analogEntrySize  = 5 + NameLength
	trailerSize      = 4

	// RecordSize is the encoded length of a DeviceConfig.
	RecordSize = headerSize + DigitalInputs*digitalEntrySize + AnalogInputs*analogEntrySize + trailerSize
)

func putName(b []byte, n string) {
	for i := range NameLength {
		b[i] = 0
	}
	copy(b[:NameLength], n)
}

func getName(b []byte) string {
	b = b[:NameLength]
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// MarshalBinary encodes c into its RecordSize-byte stored form.
//
// Layout (little-endian):
//
//	0      crc8 over bytes [1..end)
//	1      emulation mode
//	2-3    poll delay in microseconds
//	4      keyboard layout
//	5      32 x {kind, target, shifted, name[3]}
//	197    4 x {kind, positive, negative, deadzone min, deadzone max, name[3]}
//	229    joystick buttons, axes, hats
//	232    shift input (1-based)
func (c *DeviceConfig) MarshalBinary() ([]byte, error) {
	b := make([]byte, RecordSize)
	b[0] = c.CRC8
	b[1] = uint8(c.Mode)
	binary.LittleEndian.PutUint16(b[2:], c.DelayMicros)
	b[4] = uint8(c.Layout)

	off := headerSize
	for _, d := range c.Digital {
		b[off] = uint8(d.Kind)
		b[off+1] = uint8(d.Target)
		b[off+2] = uint8(d.Shifted)
		putName(b[off+3:], d.Name)
		off += digitalEntrySize
	}
	for _, a := range c.Analog {
		b[off] = uint8(a.Kind)
		b[off+1] = uint8(a.Positive)
		b[off+2] = uint8(a.Negative)
		b[off+3] = a.DeadzoneMin
		b[off+4] = a.DeadzoneMax
		putName(b[off+5:], a.Name)
		off += analogEntrySize
	}
	b[off] = c.JoyButtons
	b[off+1] = c.JoyAxes
	b[off+2] = c.JoyHats
	b[off+3] = c.ShiftInput
	return b, nil
}

// UnmarshalBinary decodes a stored record without checking its CRC. The
// decoded record must pass Validate.
func (c *DeviceConfig) UnmarshalBinary(b []byte) error {
	if len(b) < RecordSize {
		return io.ErrUnexpectedEOF
	}
	var n DeviceConfig
	n.CRC8 = b[0]
	n.Mode = EmulationMode(b[1])
	n.DelayMicros = binary.LittleEndian.Uint16(b[2:])
	n.Layout = KeyboardLayout(b[4])

	off := headerSize
	for i := range n.Digital {
		n.Digital[i] = DigitalInput{
			Kind:    MappingKind(b[off]),
			Target:  Target(b[off+1]),
			Shifted: Target(b[off+2]),
			Name:    getName(b[off+3:]),
		}
		off += digitalEntrySize
	}
	for i := range n.Analog {
		n.Analog[i] = AnalogInput{
			Kind:        MappingKind(b[off]),
			Positive:    Target(b[off+1]),
			Negative:    Target(b[off+2]),
			DeadzoneMin: b[off+3],
			DeadzoneMax: b[off+4],
			Name:        getName(b[off+5:]),
		}
		off += analogEntrySize
	}
	n.JoyButtons = b[off]
	n.JoyAxes = b[off+1]
	n.JoyHats = b[off+2]
	n.ShiftInput = b[off+3]

	if err := n.Validate(); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	*c = n
	return nil
}

// Checksum computes the CRC of an encoded record (every byte but the first).
func Checksum(record []byte) uint8 {
	return crc.Checksum(record[1:])
}

// ComputeCRC returns the CRC c would be saved with.
func (c *DeviceConfig) ComputeCRC() uint8 {
	b, _ := c.MarshalBinary()
	return Checksum(b)
}
