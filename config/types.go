// Package config holds the persisted board configuration record: its data
// model, binary codec, per-mode defaults, the named scalar fields reachable
// from the command protocol and the Store that owns the live instance.
package config

import (
	"fmt"
	"strings"
)

// Table sizes and capability limits.
const (
	DigitalInputs = 32
	AnalogInputs  = 4
	NameLength    = 3

	MaxButtons  = 32
	MaxAxes     = 7
	MaxHats     = 3
	MaxHatSlots = 4
)

// MappingKind selects how an input is translated. The numeric values are the
// ones stored in the record and accepted by setdin/setain.
type MappingKind uint8

const (
	KindNone MappingKind = iota
	KindKey
	KindJoyAxis // JoyAxisDigital on digital inputs
	KindJoyHat
	KindJoyButton
	KindMouseAxis
	KindMouseButton
	KindMouseAxisIncrement
)

var kindNames = [...]string{
	KindNone:               "none",
	KindKey:                "key",
	KindJoyAxis:            "joyaxis",
	KindJoyHat:             "joyhat",
	KindJoyButton:          "joybutton",
	KindMouseAxis:          "mouseaxis",
	KindMouseButton:        "mousebutton",
	KindMouseAxisIncrement: "mouseaxisinc",
}

// Valid reports whether k is a known kind.
func (k MappingKind) Valid() bool { return int(k) < len(kindNames) }

// ValidAnalog reports whether k can drive an analog input.
func (k MappingKind) ValidAnalog() bool {
	switch k {
	case KindNone, KindKey, KindJoyAxis, KindMouseAxis:
		return true
	}
	return false
}

func (k MappingKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// ParseMappingKind parses a kind name as produced by String.
func ParseMappingKind(s string) (MappingKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range kindNames {
		if n == s {
			return MappingKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: mapping kind %q", ErrInvalidValue, s)
}

func (k MappingKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *MappingKind) UnmarshalText(b []byte) error {
	v, err := ParseMappingKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// EmulationMode selects which HID backends are active.
type EmulationMode uint8

const (
	ModeNone EmulationMode = iota
	ModeKeyboard
	ModeJoystick
	ModeJoystickAndKeyboard
	ModeMouse
	ModeMouseAndKeyboard
)

var modeNames = [...]string{
	ModeNone:                "none",
	ModeKeyboard:            "keyboard",
	ModeJoystick:            "joystick",
	ModeJoystickAndKeyboard: "joystick+keyboard",
	ModeMouse:               "mouse",
	ModeMouseAndKeyboard:    "mouse+keyboard",
}

func (m EmulationMode) Valid() bool { return int(m) < len(modeNames) }

func (m EmulationMode) HasKeyboard() bool {
	return m == ModeKeyboard || m == ModeJoystickAndKeyboard || m == ModeMouseAndKeyboard
}

func (m EmulationMode) HasJoystick() bool {
	return m == ModeJoystick || m == ModeJoystickAndKeyboard
}

func (m EmulationMode) HasMouse() bool {
	return m == ModeMouse || m == ModeMouseAndKeyboard
}

func (m EmulationMode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
	return modeNames[m]
}

// ParseEmulationMode parses a mode name as produced by String.
func ParseEmulationMode(s string) (EmulationMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == s {
			return EmulationMode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: emulation mode %q", ErrInvalidValue, s)
}

func (m EmulationMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *EmulationMode) UnmarshalText(b []byte) error {
	v, err := ParseEmulationMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// KeyboardLayout selects the host keyboard layout printable key codes are
// translated for. Values match keyboard.LayoutIndex*.
type KeyboardLayout uint8

const (
	LayoutUS KeyboardLayout = iota
	LayoutFR
	LayoutDE
	LayoutIT
	LayoutES
)

var layoutNames = [...]string{
	LayoutUS: "us",
	LayoutFR: "fr",
	LayoutDE: "de",
	LayoutIT: "it",
	LayoutES: "es",
}

func (l KeyboardLayout) Valid() bool { return int(l) < len(layoutNames) }

func (l KeyboardLayout) String() string {
	if !l.Valid() {
		return fmt.Sprintf("layout(%d)", uint8(l))
	}
	return layoutNames[l]
}

// ParseKeyboardLayout parses a layout name as produced by String.
func ParseKeyboardLayout(s string) (KeyboardLayout, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range layoutNames {
		if n == s {
			return KeyboardLayout(i), nil
		}
	}
	return 0, fmt.Errorf("%w: keyboard layout %q", ErrInvalidValue, s)
}

func (l KeyboardLayout) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *KeyboardLayout) UnmarshalText(b []byte) error {
	v, err := ParseKeyboardLayout(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Target is an 8-bit mapping code. Bit 7 selects the player. The meaning of
// the low bits depends on the mapping kind:
//
//	Key:                 key code (0 = no key)
//	JoyButton/MouseButton: button index in bits 0-6
//	JoyAxis:             axis in bits 0-2, bit 6 inverts the value
//	JoyHat:              slot in bits 5-6, direction mask in bits 0-3
//	MouseAxis(Increment): axis mask in bits 0-2 (1=X, 2=Y, 4=wheel), or the
//	                     HAT direction mask for digital increments
type Target uint8

const (
	PlayerBit Target = 0x80
	InvertBit Target = 0x40
)

// Hat direction bits.
const (
	HatUp    = 0x01
	HatDown  = 0x02
	HatRight = 0x04
	HatLeft  = 0x08
)

// Mouse axis bits.
const (
	MouseX     = 0x01
	MouseY     = 0x02
	MouseWheel = 0x04
)

// PlayerTarget returns index tagged with player (0 or 1).
func PlayerTarget(player, index uint8) Target {
	t := Target(index & 0x7F)
	if player != 0 {
		t |= PlayerBit
	}
	return t
}

// HatTarget builds a JoyHat target.
func HatTarget(player, slot, dirs uint8) Target {
	return PlayerTarget(player, (slot&0x03)<<5|dirs&0x0F)
}

func (t Target) Player() uint8        { return uint8(t >> 7) }
func (t Target) Index() uint8         { return uint8(t & 0x7F) }
func (t Target) Axis() uint8          { return uint8(t & 0x07) }
func (t Target) Inverted() bool       { return t&InvertBit != 0 }
func (t Target) HatSlot() uint8       { return uint8(t>>5) & 0x03 }
func (t Target) HatDirections() uint8 { return uint8(t & 0x0F) }
func (t Target) MouseAxes() uint8     { return uint8(t & 0x07) }

// DigitalInput maps one digital input.
type DigitalInput struct {
	Kind    MappingKind
	Target  Target
	Shifted Target // 0 = no alternate mapping
	Name    string
}

// AnalogInput maps one analog input. Positive drives the axis or the key used
// above the dead band, Negative the key used below it.
type AnalogInput struct {
	Kind        MappingKind
	Positive    Target
	Negative    Target
	DeadzoneMin uint8 // x4 in the 0..1023 sample domain
	DeadzoneMax uint8
	Name        string
}

// Thresholds returns the dead band in the 0..1023 sample domain.
func (a AnalogInput) Thresholds() (lo, hi uint16) {
	return uint16(a.DeadzoneMin) << 2, uint16(a.DeadzoneMax) << 2
}

// DeviceConfig is the persisted record.
type DeviceConfig struct {
	CRC8        uint8
	Mode        EmulationMode
	DelayMicros uint16
	Layout      KeyboardLayout
	Digital     [DigitalInputs]DigitalInput
	Analog      [AnalogInputs]AnalogInput
	JoyButtons  uint8
	JoyAxes     uint8
	JoyHats     uint8
	ShiftInput  uint8 // 1-based digital input index, 0 = none
}

// ShiftIndex returns the 0-based shift input, or -1 when none is configured.
func (c *DeviceConfig) ShiftIndex() int {
	if c.ShiftInput == 0 || int(c.ShiftInput) > DigitalInputs {
		return -1
	}
	return int(c.ShiftInput) - 1
}

func validName(n string) error {
	if len(n) > NameLength {
		return fmt.Errorf("%w: name %q longer than %d bytes", ErrInvalidValue, n, NameLength)
	}
	if strings.IndexByte(n, 0) >= 0 {
		return fmt.Errorf("%w: name %q contains NUL", ErrInvalidValue, n)
	}
	return nil
}

// Validate checks d on its own.
func (d DigitalInput) Validate() error {
	if !d.Kind.Valid() {
		return fmt.Errorf("%w: digital kind %d", ErrInvalidValue, uint8(d.Kind))
	}
	return validName(d.Name)
}

// Validate checks a on its own.
func (a AnalogInput) Validate() error {
	if !a.Kind.ValidAnalog() {
		return fmt.Errorf("%w: analog kind %d", ErrInvalidValue, uint8(a.Kind))
	}
	if a.Kind != KindNone && a.Kind != KindJoyAxis && a.DeadzoneMin > a.DeadzoneMax {
		return fmt.Errorf("%w: dead zone %#02x > %#02x", ErrInvalidValue, a.DeadzoneMin, a.DeadzoneMax)
	}
	return validName(a.Name)
}

// Validate checks every field of c against its allowed range.
func (c *DeviceConfig) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: emulation mode %d", ErrInvalidValue, uint8(c.Mode))
	}
	if !c.Layout.Valid() {
		return fmt.Errorf("%w: keyboard layout %d", ErrInvalidValue, uint8(c.Layout))
	}
	if c.JoyButtons > MaxButtons {
		return fmt.Errorf("%w: %d buttons, max %d", ErrInvalidValue, c.JoyButtons, MaxButtons)
	}
	if c.JoyAxes > MaxAxes {
		return fmt.Errorf("%w: %d axes, max %d", ErrInvalidValue, c.JoyAxes, MaxAxes)
	}
	if c.JoyHats > MaxHats {
		return fmt.Errorf("%w: %d hats, max %d", ErrInvalidValue, c.JoyHats, MaxHats)
	}
	if c.ShiftInput > DigitalInputs {
		return fmt.Errorf("%w: shift input %d, max %d", ErrInvalidValue, c.ShiftInput, DigitalInputs)
	}
	for i, d := range c.Digital {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("digital input %d: %w", i, err)
		}
	}
	for i, a := range c.Analog {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("analog input %d: %w", i, err)
		}
	}
	return nil
}
