// Package keyboard provides the N-key rollover keyboard backend.
//
// Callers press and release record key codes (see Code* constants); the
// backend resolves them through the active Layout, reference counts every
// usage and modifier so overlapping mappings do not release each other, and
// only writes a report on Flush when something changed.
package keyboard

import (
	"fmt"
	"sync"

	"github.com/Alia5/jammaio/device"
)

// Keyboard is a keyboard report buffer bound to a sink.
type Keyboard struct {
	mu     sync.Mutex
	sink   device.Sink
	layout *Layout

	state     InputState
	usageRefs [256]uint8
	modRefs   [8]uint8
	codeRefs  [256]uint8
	held      [256]Stroke
	dirty     bool
}

var (
	_ device.Flusher       = (*Keyboard)(nil)
	_ device.ReportBuilder = (*Keyboard)(nil)
	_ device.ReportBuilder = InputState{}
)

// New returns a keyboard writing reports to sink. A nil layout selects en-US.
func New(layout *Layout, sink device.Sink) *Keyboard {
	if layout == nil {
		layout = LayoutUS
	}
	if sink == nil {
		sink = device.Discard
	}
	return &Keyboard{layout: layout, sink: sink}
}

// SetLayout changes the layout used for subsequent presses. Keys already
// held are released with the stroke they were pressed with.
func (k *Keyboard) SetLayout(l *Layout) {
	if l == nil {
		l = LayoutUS
	}
	k.mu.Lock()
	k.layout = l
	k.mu.Unlock()
}

// Layout returns the active layout.
func (k *Keyboard) Layout() *Layout {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.layout
}

// Resolve translates a record key code into a stroke using layout.
func Resolve(layout *Layout, code uint8) (Stroke, bool) {
	switch {
	case code == CodeNone:
		return Stroke{}, false
	case code < 0x80:
		return layout.Lookup(code)
	case code < CodeUsageBase:
		return Stroke{Modifiers: 1 << (code - CodeLeftCtrl)}, true
	default:
		return Stroke{Usage: code - CodeUsageBase}, true
	}
}

// KeyDown presses code. Unknown codes are ignored.
func (k *Keyboard) KeyDown(code uint8) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.codeRefs[code] == 0 {
		s, ok := Resolve(k.layout, code)
		if !ok {
			return
		}
		k.held[code] = s
		k.apply(s, true)
	}
	if k.codeRefs[code] < 0xFF {
		k.codeRefs[code]++
	}
}

// KeyUp releases code. Releasing a key that is not held is a no-op.
func (k *Keyboard) KeyUp(code uint8) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.codeRefs[code] == 0 {
		return
	}
	k.codeRefs[code]--
	if k.codeRefs[code] == 0 {
		k.apply(k.held[code], false)
		k.held[code] = Stroke{}
	}
}

// ReleaseAll drops every held key and modifier.
func (k *Keyboard) ReleaseAll() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.state != (InputState{}) {
		k.dirty = true
	}
	k.state = InputState{}
	k.usageRefs = [256]uint8{}
	k.modRefs = [8]uint8{}
	k.codeRefs = [256]uint8{}
	k.held = [256]Stroke{}
}

func (k *Keyboard) apply(s Stroke, down bool) {
	if s.Usage != 0 {
		if down {
			k.usageRefs[s.Usage]++
			if k.usageRefs[s.Usage] == 1 {
				k.state.Set(s.Usage)
				k.dirty = true
			}
		} else if k.usageRefs[s.Usage] > 0 {
			k.usageRefs[s.Usage]--
			if k.usageRefs[s.Usage] == 0 {
				k.state.Clear(s.Usage)
				k.dirty = true
			}
		}
	}
	for bit := 0; bit < 8; bit++ {
		mask := uint8(1) << bit
		if s.Modifiers&mask == 0 {
			continue
		}
		if down {
			k.modRefs[bit]++
			if k.modRefs[bit] == 1 {
				k.state.Modifiers |= mask
				k.dirty = true
			}
		} else if k.modRefs[bit] > 0 {
			k.modRefs[bit]--
			if k.modRefs[bit] == 0 {
				k.state.Modifiers &^= mask
				k.dirty = true
			}
		}
	}
}

// State returns a copy of the current report state.
func (k *Keyboard) State() InputState {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state
}

// Dirty reports whether a report is pending.
func (k *Keyboard) Dirty() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.dirty
}

// BuildReport implements device.ReportBuilder.
func (k *Keyboard) BuildReport() []byte {
	return k.State().BuildReport()
}

// Flush writes the report when it changed since the last successful flush.
func (k *Keyboard) Flush() error {
	k.mu.Lock()
	if !k.dirty {
		k.mu.Unlock()
		return nil
	}
	report := k.state.BuildReport()
	k.mu.Unlock()

	if err := k.sink.WriteReport(report); err != nil {
		return fmt.Errorf("keyboard: %w", err)
	}

	k.mu.Lock()
	k.dirty = false
	k.mu.Unlock()
	return nil
}

// ReportDescriptor is the HID report descriptor matching BuildReport.
var ReportDescriptor = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x06, // Usage (Keyboard)
	0xA1, 0x01, // Collection (Application)
	0x05, 0x07, //   Usage Page (Keyboard)
	0x19, 0xE0, //   Usage Minimum (Left Control)
	0x29, 0xE7, //   Usage Maximum (Right GUI)
	0x15, 0x00, //   Logical Minimum (0)
	0x25, 0x01, //   Logical Maximum (1)
	0x75, 0x01, //   Report Size (1)
	0x95, 0x08, //   Report Count (8)
	0x81, 0x02, //   Input (Data, Variable, Absolute)
	0x75, 0x08, //   Report Size (8)
	0x95, 0x01, //   Report Count (1)
	0x81, 0x01, //   Input (Constant) reserved byte
	0x05, 0x07, //   Usage Page (Keyboard)
	0x19, 0x00, //   Usage Minimum (0)
	0x29, 0xFF, //   Usage Maximum (255)
	0x15, 0x00, //   Logical Minimum (0)
	0x25, 0x01, //   Logical Maximum (1)
	0x75, 0x01, //   Report Size (1)
	0x96, 0x00, 0x01, // Report Count (256)
	0x81, 0x02, //   Input (Data, Variable, Absolute)
	0x05, 0x08, //   Usage Page (LEDs)
	0x19, 0x01, //   Usage Minimum (Num Lock)
	0x29, 0x05, //   Usage Maximum (Kana)
	0x15, 0x00, //   Logical Minimum (0)
	0x25, 0x01, //   Logical Maximum (1)
	0x75, 0x01, //   Report Size (1)
	0x95, 0x05, //   Report Count (5)
	0x91, 0x02, //   Output (Data, Variable, Absolute)
	0x75, 0x03, //   Report Size (3)
	0x95, 0x01, //   Report Count (1)
	0x91, 0x01, //   Output (Constant)
	0xC0, // End Collection
}
