// Package joystick provides the two-player joystick backend.
package joystick

import (
	"fmt"
	"sync"

	"github.com/Alia5/jammaio/device"
)

type player struct {
	state      InputState
	buttonRefs [MaxButtons]uint8
	dirty      bool
	sink       device.Sink
}

// Joystick holds one report buffer per player. Each player is exposed to the
// host as its own HID interface, so each gets its own sink.
type Joystick struct {
	mu      sync.Mutex
	caps    Capabilities
	players [Players]player
}

var _ device.Flusher = (*Joystick)(nil)

// New returns a joystick advertising caps. Nil sinks discard reports.
func New(caps Capabilities, sinks ...device.Sink) *Joystick {
	j := &Joystick{caps: caps.Clamp()}
	for i := range j.players {
		j.players[i].state = NeutralState()
		j.players[i].sink = device.Discard
		if i < len(sinks) && sinks[i] != nil {
			j.players[i].sink = sinks[i]
		}
	}
	return j
}

// Capabilities returns the advertised counts.
func (j *Joystick) Capabilities() Capabilities {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.caps
}

// SetCapabilities changes the advertised counts and marks both players dirty.
func (j *Joystick) SetCapabilities(c Capabilities) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.caps = c.Clamp()
	for i := range j.players {
		j.players[i].dirty = true
	}
}

func (j *Joystick) player(p uint8) *player {
	if int(p) >= Players {
		return nil
	}
	return &j.players[p]
}

// PressButton presses button for player p. Presses are reference counted.
func (j *Joystick) PressButton(p, button uint8) {
	j.mu.Lock()
	defer j.mu.Unlock()
	pl := j.player(p)
	if pl == nil || button >= MaxButtons {
		return
	}
	pl.buttonRefs[button]++
	if pl.buttonRefs[button] == 1 {
		pl.state.Buttons |= 1 << button
		pl.dirty = true
	}
}

// ReleaseButton releases button for player p.
func (j *Joystick) ReleaseButton(p, button uint8) {
	j.mu.Lock()
	defer j.mu.Unlock()
	pl := j.player(p)
	if pl == nil || button >= MaxButtons || pl.buttonRefs[button] == 0 {
		return
	}
	pl.buttonRefs[button]--
	if pl.buttonRefs[button] == 0 {
		pl.state.Buttons &^= 1 << button
		pl.dirty = true
	}
}

// SetAxis sets axis for player p to value (clamped to 0..1023).
func (j *Joystick) SetAxis(p, axis uint8, value uint16) {
	j.mu.Lock()
	defer j.mu.Unlock()
	pl := j.player(p)
	if pl == nil || axis >= MaxAxes {
		return
	}
	value = min(value, AxisMax)
	if pl.state.Axes[axis] != value {
		pl.state.Axes[axis] = value
		pl.dirty = true
	}
}

// SetHat sets HAT slot for player p to angle in degrees, HatCentered for none.
func (j *Joystick) SetHat(p, slot uint8, angle int16) {
	j.mu.Lock()
	defer j.mu.Unlock()
	pl := j.player(p)
	if pl == nil || slot >= MaxHats {
		return
	}
	if pl.state.Hats[slot] != angle {
		pl.state.Hats[slot] = angle
		pl.dirty = true
	}
}

// ReleaseAll returns both players to the neutral state.
func (j *Joystick) ReleaseAll() {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := range j.players {
		pl := &j.players[i]
		if pl.state != NeutralState() {
			pl.dirty = true
		}
		pl.state = NeutralState()
		pl.buttonRefs = [MaxButtons]uint8{}
	}
}

// State returns a copy of player p's state.
func (j *Joystick) State(p uint8) InputState {
	j.mu.Lock()
	defer j.mu.Unlock()
	if pl := j.player(p); pl != nil {
		return pl.state
	}
	return InputState{}
}

// Dirty reports whether player p has a pending report.
func (j *Joystick) Dirty(p uint8) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	pl := j.player(p)
	return pl != nil && pl.dirty
}

// Flush writes the reports of dirty players.
func (j *Joystick) Flush() error {
	for i := range j.players {
		j.mu.Lock()
		pl := &j.players[i]
		if !pl.dirty {
			j.mu.Unlock()
			continue
		}
		report := pl.state.BuildReport(j.caps)
		sink := pl.sink
		j.mu.Unlock()

		if err := sink.WriteReport(report); err != nil {
			return fmt.Errorf("joystick player %d: %w", i+1, err)
		}

		j.mu.Lock()
		pl.dirty = false
		j.mu.Unlock()
	}
	return nil
}

var axisUsages = [MaxAxes]byte{
	0x30, // X
	0x31, // Y
	0x32, // Z
	0x33, // Rx
	0x34, // Ry
	0x35, // Rz
	0x36, // Slider
}

// ReportDescriptor builds the HID report descriptor matching
// InputState.BuildReport for c.
func ReportDescriptor(c Capabilities) []byte {
	c = c.Clamp()
	d := []byte{
		0x05, 0x01, // Usage Page (Generic Desktop)
		0x09, 0x04, // Usage (Joystick)
		0xA1, 0x01, // Collection (Application)
	}

	if c.Buttons > 0 {
		d = append(d,
			0x05, 0x09, // Usage Page (Button)
			0x19, 0x01, // Usage Minimum (1)
			0x29, c.Buttons, // Usage Maximum
			0x15, 0x00, // Logical Minimum (0)
			0x25, 0x01, // Logical Maximum (1)
			0x75, 0x01, // Report Size (1)
			0x95, c.Buttons, // Report Count
			0x81, 0x02, // Input (Data, Variable, Absolute)
		)
		if pad := (8 - c.Buttons%8) % 8; pad != 0 {
			d = append(d, 0x75, 0x01, 0x95, pad, 0x81, 0x01)
		}
	}

	for i := uint8(0); i < c.Hats; i++ {
		d = append(d,
			0x05, 0x01, // Usage Page (Generic Desktop)
			0x09, 0x39, // Usage (Hat switch)
			0x15, 0x00, // Logical Minimum (0)
			0x25, 0x07, // Logical Maximum (7)
			0x35, 0x00, // Physical Minimum (0)
			0x46, 0x3B, 0x01, // Physical Maximum (315)
			0x65, 0x14, // Unit (Degrees)
			0x75, 0x04, // Report Size (4)
			0x95, 0x01, // Report Count (1)
			0x81, 0x42, // Input (Data, Variable, Absolute, Null State)
		)
	}
	if c.Hats > 0 {
		d = append(d, 0x65, 0x00) // Unit (None)
		if c.Hats%2 != 0 {
			d = append(d, 0x75, 0x04, 0x95, 0x01, 0x81, 0x01)
		}
	}

	if c.Axes > 0 {
		d = append(d,
			0x05, 0x01, // Usage Page (Generic Desktop)
			0x15, 0x00, // Logical Minimum (0)
			0x26, 0xFF, 0x03, // Logical Maximum (1023)
			0x75, 0x10, // Report Size (16)
			0x95, c.Axes, // Report Count
		)
		for i := uint8(0); i < c.Axes; i++ {
			d = append(d, 0x09, axisUsages[i])
		}
		d = append(d, 0x81, 0x02)
	}

	return append(d, 0xC0)
}
