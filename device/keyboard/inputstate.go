package keyboard

import (
	"io"
)

// ReportSize is the length of a keyboard input report.
const ReportSize = 34

// InputState represents the keyboard state used to build a report.
// Internally uses a 256-bit bitmap for N-key rollover support.
type InputState struct {
	Modifiers uint8     // bit 0-7: LCtrl, LShift, LAlt, LGui, RCtrl, RShift, RAlt, RGui
	KeyBitmap [32]uint8 // 256 bits for HID usage codes 0x00-0xFF
}

// Set marks usage as pressed.
func (st *InputState) Set(usage uint8) {
	st.KeyBitmap[usage/8] |= 1 << (usage % 8)
}

// Clear marks usage as released.
func (st *InputState) Clear(usage uint8) {
	st.KeyBitmap[usage/8] &^= 1 << (usage % 8)
}

// IsSet reports whether usage is pressed.
func (st *InputState) IsSet(usage uint8) bool {
	return st.KeyBitmap[usage/8]&(1<<(usage%8)) != 0
}

// Pressed lists the pressed usages in ascending order.
func (st *InputState) Pressed() []uint8 {
	var keys []uint8
	for i := 0; i < 256; i++ {
		if st.IsSet(uint8(i)) {
			keys = append(keys, uint8(i))
		}
	}
	return keys
}

// BuildReport encodes an InputState into the 34-byte HID keyboard report.
//
// Report layout (34 bytes):
//
//	Byte 0: Modifiers (8 bits)
//	Byte 1: Reserved (0x00)
//	Bytes 2-33: Key bitmap (256 bits, 32 bytes)
func (st InputState) BuildReport() []byte {
	b := make([]byte, ReportSize)
	b[0] = st.Modifiers
	copy(b[2:ReportSize], st.KeyBitmap[:])
	return b
}

// MarshalBinary encodes InputState to the compact form used in dumps.
//
// Wire format:
//
//	Byte 0: Modifiers
//	Byte 1: Key count
//	Bytes 2+: Key codes (HID usage codes of pressed keys)
func (st *InputState) MarshalBinary() ([]byte, error) {
	keys := st.Pressed()
	b := make([]byte, 2+len(keys))
	b[0] = st.Modifiers
	b[1] = uint8(len(keys))
	copy(b[2:], keys)
	return b, nil
}

// UnmarshalBinary decodes the compact form produced by MarshalBinary.
func (st *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return io.ErrUnexpectedEOF
	}
	keyCount := int(data[1])
	if len(data) < 2+keyCount {
		return io.ErrUnexpectedEOF
	}

	st.Modifiers = data[0]
	st.KeyBitmap = [32]uint8{}
	for _, usage := range data[2 : 2+keyCount] {
		st.Set(usage)
	}
	return nil
}
