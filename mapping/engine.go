// Package mapping translates raw input edges and analog samples into HID
// backend calls according to the live configuration record.
package mapping

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/Alia5/jammaio/config"
	"github.com/Alia5/jammaio/device"
	"github.com/Alia5/jammaio/device/joystick"
	"github.com/Alia5/jammaio/device/keyboard"
)

// Keyboard is the keyboard backend consumed by the engine.
type Keyboard interface {
	SetLayout(l *keyboard.Layout)
	KeyDown(code uint8)
	KeyUp(code uint8)
	ReleaseAll()
	device.Flusher
}

// Joystick is the two-player joystick backend consumed by the engine.
type Joystick interface {
	PressButton(player, button uint8)
	ReleaseButton(player, button uint8)
	SetAxis(player, axis uint8, value uint16)
	SetHat(player, slot uint8, angle int16)
	ReleaseAll()
	device.Flusher
}

// Mouse is the two-player mouse backend consumed by the engine.
type Mouse interface {
	Press(player, button uint8)
	Release(player, button uint8)
	Move(player uint8, dx, dy, wheel int16)
	ReleaseAll()
	device.Flusher
}

// ConfigView gives read access to the live record. *config.Store implements it.
type ConfigView interface {
	View(fn func(c *config.DeviceConfig))
}

// Backends groups the HID outputs of one emulation mode. Nil members are
// simply not driven.
type Backends struct {
	Keyboard Keyboard
	Joystick Joystick
	Mouse    Mouse
}

// Tuning for mouse emulation.
const (
	// MouseStep is the distance of one digital increment.
	MouseStep = 8
	// mouseDivisor scales analog deviation past the dead band to counts per tick.
	mouseDivisor = 16
	mouseMaxStep = 127

	sampleMax = 1023
)

type held struct {
	kind   config.MappingKind
	target config.Target
}

// Engine holds the per-input state the translation needs between calls: the
// logical level of every digital input, the mapping each held input was
// pressed with, accumulated HAT masks and analog band positions.
type Engine struct {
	mu       sync.Mutex
	cfg      ConfigView
	out      Backends
	logger   *slog.Logger
	enabled  bool
	layout   config.KeyboardLayout
	layoutOK bool

	levels  [config.DigitalInputs]bool
	pressed [config.DigitalInputs]*held
	hats    [2][config.MaxHatSlots]uint8

	analogSide [config.AnalogInputs]int8
	analogKey  [config.AnalogInputs]config.Target
	lastAxis   [config.AnalogInputs]int32
}

// New returns an enabled engine.
func New(cfg ConfigView, out Backends, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Engine{cfg: cfg, out: out, logger: logger, enabled: true}
	e.resetAnalog()
	return e
}

func (e *Engine) resetAnalog() {
	for i := range e.lastAxis {
		e.lastAxis[i] = -1
		e.analogSide[i] = 0
		e.analogKey[i] = 0
	}
}

// Enabled reports whether events reach the backends.
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// SetEnabled turns emulation on or off. Turning it off releases everything
// still held so the host never sees a stuck key.
func (e *Engine) SetEnabled(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.enabled == on {
		return
	}
	e.enabled = on
	if !on {
		e.releaseAll()
	}
}

// SetBackends replaces the HID outputs, for instance after the emulation
// mode changed. Everything held on the previous backends is released first.
func (e *Engine) SetBackends(out Backends) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releaseAll()
	e.out = out
	e.layoutOK = false
}

func (e *Engine) releaseAll() {
	e.pressed = [config.DigitalInputs]*held{}
	e.hats = [2][config.MaxHatSlots]uint8{}
	e.resetAnalog()
	if e.out.Keyboard != nil {
		e.out.Keyboard.ReleaseAll()
	}
	if e.out.Joystick != nil {
		e.out.Joystick.ReleaseAll()
	}
	if e.out.Mouse != nil {
		e.out.Mouse.ReleaseAll()
	}
}

// OnDigitalEdge handles a change of the logical level of a digital input.
// Repeated calls with the same level are ignored.
func (e *Engine) OnDigitalEdge(index int, pressed bool) {
	if index < 0 || index >= config.DigitalInputs {
		e.logger.Debug("digital input out of range", "index", index)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.levels[index] == pressed {
		return
	}
	e.levels[index] = pressed
	if !e.enabled {
		return
	}

	if !pressed {
		if h := e.pressed[index]; h != nil {
			e.pressed[index] = nil
			e.dispatch(h.kind, h.target, false)
		}
		return
	}

	var (
		d      config.DigitalInput
		shift  int
		layout config.KeyboardLayout
	)
	e.cfg.View(func(c *config.DeviceConfig) {
		d = c.Digital[index]
		shift = c.ShiftIndex()
		layout = c.Layout
	})
	if d.Kind == config.KindNone {
		return
	}

	target := d.Target
	if shift >= 0 && shift != index && e.levels[shift] && d.Shifted != 0 {
		target = d.Shifted
	}
	e.syncLayout(layout)
	e.pressed[index] = &held{kind: d.Kind, target: target}
	e.dispatch(d.Kind, target, true)
}

func (e *Engine) syncLayout(l config.KeyboardLayout) {
	if e.layoutOK && e.layout == l {
		return
	}
	e.layout, e.layoutOK = l, true
	if e.out.Keyboard != nil {
		e.out.Keyboard.SetLayout(keyboard.LayoutByIndex(uint8(l)))
	}
}

func (e *Engine) dispatch(kind config.MappingKind, t config.Target, down bool) {
	switch kind {
	case config.KindKey:
		e.key(t, down)

	case config.KindJoyButton:
		if e.out.Joystick == nil {
			return
		}
		if down {
			e.out.Joystick.PressButton(t.Player(), t.Index())
		} else {
			e.out.Joystick.ReleaseButton(t.Player(), t.Index())
		}

	case config.KindJoyHat:
		if e.out.Joystick == nil {
			return
		}
		p, slot := t.Player(), t.HatSlot()
		if down {
			e.hats[p][slot] |= t.HatDirections()
		} else {
			e.hats[p][slot] &^= t.HatDirections()
		}
		e.out.Joystick.SetHat(p, slot, HatAngle(e.hats[p][slot]))

	case config.KindJoyAxis:
		if e.out.Joystick == nil {
			return
		}
		v := uint16(joystick.AxisCenter)
		if down {
			v = joystick.AxisMax
			if t.Inverted() {
				v = joystick.AxisMin
			}
		}
		e.out.Joystick.SetAxis(t.Player(), t.Axis(), v)

	case config.KindMouseButton:
		if e.out.Mouse == nil {
			return
		}
		if down {
			e.out.Mouse.Press(t.Player(), t.Index())
		} else {
			e.out.Mouse.Release(t.Player(), t.Index())
		}

	case config.KindMouseAxisIncrement:
		if e.out.Mouse == nil || !down {
			return
		}
		var dx, dy int16
		dirs := t.HatDirections()
		if dirs&config.HatUp != 0 {
			dy -= MouseStep
		}
		if dirs&config.HatDown != 0 {
			dy += MouseStep
		}
		if dirs&config.HatRight != 0 {
			dx += MouseStep
		}
		if dirs&config.HatLeft != 0 {
			dx -= MouseStep
		}
		e.out.Mouse.Move(t.Player(), dx, dy, 0)

	default:
		e.logger.Debug("mapping kind not usable on a digital input", "kind", kind)
	}
}

func (e *Engine) key(t config.Target, down bool) {
	if e.out.Keyboard == nil || t == 0 {
		return
	}
	if down {
		e.out.Keyboard.KeyDown(uint8(t))
	} else {
		e.out.Keyboard.KeyUp(uint8(t))
	}
}

// OnAnalogSample handles a new sample (0..1023) of an analog input.
func (e *Engine) OnAnalogSample(index int, sample uint16) {
	if index < 0 || index >= config.AnalogInputs {
		e.logger.Debug("analog input out of range", "index", index)
		return
	}
	sample = min(sample, sampleMax)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled {
		return
	}

	var (
		a      config.AnalogInput
		layout config.KeyboardLayout
	)
	e.cfg.View(func(c *config.DeviceConfig) {
		a = c.Analog[index]
		layout = c.Layout
	})
	lo, hi := a.Thresholds()

	// A key pressed under a mapping that is gone must not stay held.
	if a.Kind != config.KindKey && e.analogKey[index] != 0 {
		e.key(e.analogKey[index], false)
		e.analogKey[index] = 0
		e.analogSide[index] = 0
	}

	switch a.Kind {
	case config.KindJoyAxis:
		if e.out.Joystick == nil {
			return
		}
		v := sample
		if a.Positive.Inverted() {
			v = sampleMax - v
		}
		if e.lastAxis[index] == int32(v) {
			return
		}
		e.lastAxis[index] = int32(v)
		e.out.Joystick.SetAxis(a.Positive.Player(), a.Positive.Axis(), v)

	case config.KindMouseAxis:
		if e.out.Mouse == nil {
			return
		}
		var dev int
		switch {
		case sample < lo:
			dev = -int(lo - sample)
		case sample > hi:
			dev = int(sample - hi)
		default:
			return
		}
		step := dev / mouseDivisor
		if step == 0 {
			step = dev / abs(dev)
		}
		step = max(-mouseMaxStep, min(mouseMaxStep, step))
		if a.Positive.Inverted() {
			step = -step
		}
		var dx, dy, dw int16
		axes := a.Positive.MouseAxes()
		if axes&config.MouseX != 0 {
			dx = int16(step)
		}
		if axes&config.MouseY != 0 {
			dy = int16(step)
		}
		if axes&config.MouseWheel != 0 {
			dw = int16(step)
		}
		e.out.Mouse.Move(a.Positive.Player(), dx, dy, dw)

	case config.KindKey:
		var side int8
		switch {
		case sample < lo:
			side = -1
		case sample > hi:
			side = 1
		}
		if side == e.analogSide[index] {
			return
		}
		if prev := e.analogKey[index]; prev != 0 {
			e.key(prev, false)
		}
		e.analogSide[index] = side
		e.analogKey[index] = 0
		var next config.Target
		switch side {
		case 1:
			next = a.Positive
		case -1:
			next = a.Negative
		}
		if next != 0 {
			e.syncLayout(layout)
			e.analogKey[index] = next
			e.key(next, true)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Flush hands the accumulated reports of every backend to the host.
func (e *Engine) Flush() error {
	var errs []error
	if e.out.Keyboard != nil {
		errs = append(errs, e.out.Keyboard.Flush())
	}
	if e.out.Joystick != nil {
		errs = append(errs, e.out.Joystick.Flush())
	}
	if e.out.Mouse != nil {
		errs = append(errs, e.out.Mouse.Flush())
	}
	return errors.Join(errs...)
}
