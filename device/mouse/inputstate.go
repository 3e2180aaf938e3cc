package mouse

import (
	"encoding/binary"
	"io"
)

// ReportSize is the length of a mouse input report: the button byte followed
// by X, Y and wheel as little-endian int16.
const ReportSize = 7

// Button bits.
const (
	ButtonLeft    = 0x01
	ButtonRight   = 0x02
	ButtonMiddle  = 0x04
	ButtonBack    = 0x08
	ButtonForward = 0x10

	MaxButtons = 5
)

const buttonMask = 1<<MaxButtons - 1

// InputState is what one player's mouse reports on the next flush. Buttons
// persist; the deltas are consumed by the flush.
type InputState struct {
	Buttons       uint8
	DX, DY, Wheel int16
}

// BuildReport encodes the state as a ReportDescriptor input report. Bits
// above the fifth button are padding and always sent as zero.
func (m *InputState) BuildReport() []byte {
	b := make([]byte, 1, ReportSize)
	b[0] = m.Buttons & buttonMask
	for _, v := range [...]int16{m.DX, m.DY, m.Wheel} {
		b = binary.LittleEndian.AppendUint16(b, uint16(v))
	}
	return b
}

// UnmarshalBinary decodes a report produced by BuildReport.
func (m *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < ReportSize {
		return io.ErrUnexpectedEOF
	}
	m.Buttons = data[0]
	m.DX = int16(binary.LittleEndian.Uint16(data[1:]))
	m.DY = int16(binary.LittleEndian.Uint16(data[3:]))
	m.Wheel = int16(binary.LittleEndian.Uint16(data[5:]))
	return nil
}
