package joystick

import (
	"encoding/binary"
	"io"
)

// Hard limits of the report format.
const (
	MaxButtons = 32
	MaxAxes    = 7
	MaxHats    = 3
	Players    = 2

	AxisMin    = 0
	AxisMax    = 1023
	AxisCenter = 511

	// HatCentered is the angle of a released HAT switch.
	HatCentered = -1
)

// Capabilities is the button, axis and HAT count advertised to the host.
type Capabilities struct {
	Buttons uint8
	Axes    uint8
	Hats    uint8
}

// Clamp returns c limited to what the report format can carry.
func (c Capabilities) Clamp() Capabilities {
	c.Buttons = min(c.Buttons, MaxButtons)
	c.Axes = min(c.Axes, MaxAxes)
	c.Hats = min(c.Hats, MaxHats)
	return c
}

// ReportSize returns the input report length for c.
func (c Capabilities) ReportSize() int {
	c = c.Clamp()
	return (int(c.Buttons)+7)/8 + (int(c.Hats)+1)/2 + 2*int(c.Axes)
}

// InputState is one player's joystick state.
type InputState struct {
	Buttons uint32
	Hats    [MaxHats]int16 // degrees, HatCentered when released
	Axes    [MaxAxes]uint16
}

// NeutralState returns a state with all axes centered and all HATs released.
func NeutralState() InputState {
	var st InputState
	for i := range st.Axes {
		st.Axes[i] = AxisCenter
	}
	for i := range st.Hats {
		st.Hats[i] = HatCentered
	}
	return st
}

// hatValue maps an angle to the 0..7 HID value, 8 for null.
func hatValue(angle int16) uint8 {
	if angle < 0 || angle >= 360 || angle%45 != 0 {
		return 8
	}
	return uint8(angle / 45)
}

// BuildReport encodes st for the given capabilities.
//
// Report layout:
//
//	Buttons: 1 bit each, padded to a byte boundary
//	HATs:    4 bits each (0-7 = N, NE, ... NW; 8 = null), padded to a byte
//	Axes:    uint16 little-endian each, 0-1023
func (st InputState) BuildReport(c Capabilities) []byte {
	c = c.Clamp()
	b := make([]byte, c.ReportSize())
	off := 0

	nb := (int(c.Buttons) + 7) / 8
	for i := 0; i < nb; i++ {
		b[off+i] = byte(st.Buttons >> (8 * i))
	}
	if c.Buttons > 0 && c.Buttons < 32 {
		// Mask buttons the host was not told about.
		last := c.Buttons % 8
		if last != 0 {
			b[off+nb-1] &= byte(1<<last) - 1
		}
	}
	off += nb

	for i := 0; i < int(c.Hats); i++ {
		v := hatValue(st.Hats[i])
		if i%2 == 0 {
			b[off+i/2] = v
		} else {
			b[off+i/2] |= v << 4
		}
	}
	off += (int(c.Hats) + 1) / 2

	for i := 0; i < int(c.Axes); i++ {
		binary.LittleEndian.PutUint16(b[off+2*i:], min(st.Axes[i], AxisMax))
	}
	return b
}

// MarshalBinary encodes the full state (all buttons, HATs and axes) to
// 4 + 2*MaxHats + 2*MaxAxes bytes.
func (st *InputState) MarshalBinary() ([]byte, error) {
	b := make([]byte, 4+2*MaxHats+2*MaxAxes)
	binary.LittleEndian.PutUint32(b, st.Buttons)
	for i, h := range st.Hats {
		binary.LittleEndian.PutUint16(b[4+2*i:], uint16(h))
	}
	for i, a := range st.Axes {
		binary.LittleEndian.PutUint16(b[4+2*MaxHats+2*i:], a)
	}
	return b, nil
}

// UnmarshalBinary decodes the form produced by MarshalBinary.
func (st *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < 4+2*MaxHats+2*MaxAxes {
		return io.ErrUnexpectedEOF
	}
	st.Buttons = binary.LittleEndian.Uint32(data)
	for i := range st.Hats {
		st.Hats[i] = int16(binary.LittleEndian.Uint16(data[4+2*i:]))
	}
	for i := range st.Axes {
		st.Axes[i] = binary.LittleEndian.Uint16(data[4+2*MaxHats+2*i:])
	}
	return nil
}
