// Package mouse provides the two-player relative mouse backend.
package mouse

import (
	"fmt"
	"math"
	"sync"

	"github.com/Alia5/jammaio/device"
)

// Players is the number of independent mice.
const Players = 2

type player struct {
	state      InputState
	buttonRefs [MaxButtons]uint8
	dirty      bool
	sink       device.Sink
}

// Mouse holds one report buffer per player. Buttons persist until released;
// movement accumulates until the next Flush consumes it.
type Mouse struct {
	mu      sync.Mutex
	players [Players]player
}

var (
	_ device.Flusher       = (*Mouse)(nil)
	_ device.ReportBuilder = (*InputState)(nil)
)

// New returns a mouse backend. Nil sinks discard reports.
func New(sinks ...device.Sink) *Mouse {
	m := &Mouse{}
	for i := range m.players {
		m.players[i].sink = device.Discard
		if i < len(sinks) && sinks[i] != nil {
			m.players[i].sink = sinks[i]
		}
	}
	return m
}

func (m *Mouse) player(p uint8) *player {
	if int(p) >= Players {
		return nil
	}
	return &m.players[p]
}

// Press presses button (0=Left .. 4=Forward) for player p.
func (m *Mouse) Press(p, button uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pl := m.player(p)
	if pl == nil || button >= MaxButtons {
		return
	}
	pl.buttonRefs[button]++
	if pl.buttonRefs[button] == 1 {
		pl.state.Buttons |= 1 << button
		pl.dirty = true
	}
}

// Release releases button for player p.
func (m *Mouse) Release(p, button uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pl := m.player(p)
	if pl == nil || button >= MaxButtons || pl.buttonRefs[button] == 0 {
		return
	}
	pl.buttonRefs[button]--
	if pl.buttonRefs[button] == 0 {
		pl.state.Buttons &^= 1 << button
		pl.dirty = true
	}
}

func saturate(a, b int16) int16 {
	s := int32(a) + int32(b)
	return int16(max(math.MinInt16, min(math.MaxInt16, s)))
}

// Move adds a relative movement for player p.
func (m *Mouse) Move(p uint8, dx, dy, wheel int16) {
	if dx == 0 && dy == 0 && wheel == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	pl := m.player(p)
	if pl == nil {
		return
	}
	pl.state.DX = saturate(pl.state.DX, dx)
	pl.state.DY = saturate(pl.state.DY, dy)
	pl.state.Wheel = saturate(pl.state.Wheel, wheel)
	pl.dirty = true
}

// ReleaseAll releases every button and drops pending movement.
func (m *Mouse) ReleaseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.players {
		pl := &m.players[i]
		if pl.state.Buttons != 0 {
			pl.dirty = true
		}
		pl.state = InputState{}
		pl.buttonRefs = [MaxButtons]uint8{}
	}
}

// State returns a copy of player p's pending state.
func (m *Mouse) State(p uint8) InputState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pl := m.player(p); pl != nil {
		return pl.state
	}
	return InputState{}
}

// Flush writes the reports of dirty players and consumes their movement.
func (m *Mouse) Flush() error {
	for i := range m.players {
		m.mu.Lock()
		pl := &m.players[i]
		if !pl.dirty {
			m.mu.Unlock()
			continue
		}
		report := pl.state.BuildReport()
		sink := pl.sink
		// Relative deltas are one-shot; buttons persist.
		pl.state.DX, pl.state.DY, pl.state.Wheel = 0, 0, 0
		pl.dirty = false
		m.mu.Unlock()

		if err := sink.WriteReport(report); err != nil {
			return fmt.Errorf("mouse player %d: %w", i+1, err)
		}
	}
	return nil
}

// ReportDescriptor is the HID report descriptor for a 5-button mouse with
// 16-bit relative X, Y and wheel, matching InputState.BuildReport.
var ReportDescriptor = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x02, // Usage (Mouse)
	0xA1, 0x01, // Collection (Application)
	0x09, 0x01, //   Usage (Pointer)
	0xA1, 0x00, //   Collection (Physical)
	0x05, 0x09, //     Usage Page (Button)
	0x19, 0x01, //     Usage Minimum (Button 1)
	0x29, 0x05, //     Usage Maximum (Button 5)
	0x15, 0x00, //     Logical Minimum (0)
	0x25, 0x01, //     Logical Maximum (1)
	0x95, 0x05, //     Report Count (5)
	0x75, 0x01, //     Report Size (1)
	0x81, 0x02, //     Input (Data, Variable, Absolute)
	0x95, 0x01, //     Report Count (1)
	0x75, 0x03, //     Report Size (3)
	0x81, 0x01, //     Input - padding
	0x05, 0x01, //     Usage Page (Generic Desktop)
	0x09, 0x30, //     Usage (X)
	0x09, 0x31, //     Usage (Y)
	0x09, 0x38, //     Usage (Wheel)
	0x16, 0x01, 0x80, // Logical Minimum (-32767)
	0x26, 0xFF, 0x7F, // Logical Maximum (32767)
	0x75, 0x10, //     Report Size (16)
	0x95, 0x03, //     Report Count (3)
	0x81, 0x06, //     Input (Data, Variable, Relative)
	0xC0, //   End Collection
	0xC0, // End Collection
}
