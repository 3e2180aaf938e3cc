package config_test

import (
	"testing"

	"github.com/Alia5/jammaio/config"
	"github.com/Alia5/jammaio/device/keyboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	for m := config.ModeNone; m <= config.ModeMouseAndKeyboard; m++ {
		t.Run(m.String(), func(t *testing.T) {
			c := config.Defaults(m)
			require.NoError(t, c.Validate())
			assert.Equal(t, m, c.Mode)
			assert.Equal(t, config.LayoutFR, c.Layout)
			assert.Zero(t, c.DelayMicros)
		})
	}
	assert.Equal(t, config.ModeNone, config.Defaults(config.EmulationMode(42)).Mode)
}

func TestJoystickDefaults(t *testing.T) {
	c := config.Defaults(config.ModeJoystick)

	assert.Equal(t, uint8(12), c.JoyButtons)
	assert.Equal(t, uint8(2), c.JoyAxes)
	assert.Equal(t, uint8(1), c.JoyHats)
	assert.Zero(t, c.ShiftInput)

	assert.Equal(t, config.DigitalInput{Kind: config.KindJoyButton, Target: 0x00}, c.Digital[0])
	assert.Equal(t, config.DigitalInput{Kind: config.KindJoyButton, Target: 0x87}, c.Digital[21])

	type hat struct {
		index int
		want  config.Target
	}
	for _, h := range []hat{
		{8, config.HatUp},
		{9, config.HatDown},
		{10, config.HatLeft},
		{11, config.HatRight},
		{22, 0x80 | config.HatUp},
		{25, 0x80 | config.HatRight},
	} {
		assert.Equal(t, config.KindJoyHat, c.Digital[h.index].Kind, "input %d", h.index)
		assert.Equal(t, h.want, c.Digital[h.index].Target, "input %d", h.index)
	}

	assert.Equal(t, config.Target(8), c.Digital[12].Target)
	assert.Equal(t, config.Target(9), c.Digital[13].Target)
	assert.Equal(t, config.Target(0x89), c.Digital[27].Target)

	assert.Equal(t, config.Target(10), c.Digital[28].Target)
	assert.Equal(t, config.Target(11), c.Digital[29].Target)
	assert.Equal(t, config.Target(0x8A), c.Digital[30].Target)
	assert.Equal(t, config.Target(0x8B), c.Digital[31].Target)

	for i, want := range []config.Target{0x00, 0x01, 0x80, 0x81} {
		a := c.Analog[i]
		assert.Equal(t, config.KindJoyAxis, a.Kind)
		assert.Equal(t, want, a.Positive)
		assert.Equal(t, uint8(0x60), a.DeadzoneMin)
		assert.Equal(t, uint8(0xA0), a.DeadzoneMax)
	}
}

func TestJoystickAndKeyboardDefaults(t *testing.T) {
	c := config.Defaults(config.ModeJoystickAndKeyboard)
	assert.Equal(t, uint8(10), c.JoyButtons)
	for i, code := range []uint8{keyboard.CodeF2, keyboard.CodeF1, keyboard.CodeF4, keyboard.CodeF3} {
		assert.Equal(t, config.DigitalInput{Kind: config.KindKey, Target: config.Target(code)}, c.Digital[28+i])
	}
}

func TestKeyboardDefaults(t *testing.T) {
	c := config.Defaults(config.ModeKeyboard)

	assert.Equal(t, uint8(14), c.ShiftInput)
	assert.Equal(t, 13, c.ShiftIndex())
	for i, d := range c.Digital {
		assert.Equal(t, config.KindKey, d.Kind, "input %d", i)
		assert.NotZero(t, d.Target, "input %d", i)
	}
	assert.Equal(t, config.Target(keyboard.CodeLeftCtrl), c.Digital[0].Target)
	assert.Equal(t, config.Target('5'), c.Digital[0].Shifted)
	assert.Equal(t, config.Target(keyboard.CodeUpArrow), c.Digital[8].Target)
	assert.Equal(t, config.Target(keyboard.CodeEsc), c.Digital[27].Shifted)
	assert.Equal(t, config.Target('t'), c.Digital[30].Target)

	assert.Equal(t, config.Target(keyboard.CodeKp8), c.Analog[0].Positive)
	assert.Equal(t, config.Target(keyboard.CodeKp2), c.Analog[0].Negative)
	assert.Equal(t, config.KindKey, c.Analog[3].Kind)
}

func TestMouseDefaults(t *testing.T) {
	c := config.Defaults(config.ModeMouse)
	assert.Equal(t, config.DigitalInput{Kind: config.KindMouseButton, Target: 0x02}, c.Digital[2])
	assert.Equal(t, config.DigitalInput{Kind: config.KindMouseButton, Target: 0x80}, c.Digital[14])
	assert.Equal(t, config.KindNone, c.Digital[3].Kind)
	assert.Equal(t, config.DigitalInput{Kind: config.KindMouseAxisIncrement, Target: config.HatLeft}, c.Digital[10])
	assert.Equal(t, config.Target(0x80|config.MouseY), c.Analog[3].Positive)

	mk := config.Defaults(config.ModeMouseAndKeyboard)
	assert.Equal(t, config.KindMouseButton, mk.Digital[0].Kind)
	assert.Equal(t, config.DigitalInput{Kind: config.KindKey, Target: 'z'}, mk.Digital[4])
	assert.Equal(t, config.DigitalInput{Kind: config.KindKey, Target: '2'}, mk.Digital[27])
}

func TestTargetDecoding(t *testing.T) {
	tg := config.HatTarget(1, 2, config.HatUp|config.HatRight)
	assert.Equal(t, config.Target(0x80|2<<5|0x05), tg)
	assert.Equal(t, uint8(1), tg.Player())
	assert.Equal(t, uint8(2), tg.HatSlot())
	assert.Equal(t, uint8(0x05), tg.HatDirections())

	ax := config.PlayerTarget(0, 3) | config.InvertBit
	assert.Equal(t, uint8(0), ax.Player())
	assert.Equal(t, uint8(3), ax.Axis())
	assert.True(t, ax.Inverted())

	assert.Equal(t, uint8(0x7F), config.Target(0xFF).Index())
}

func TestEnumText(t *testing.T) {
	var k config.MappingKind
	require.NoError(t, k.UnmarshalText([]byte("MouseAxisInc")))
	assert.Equal(t, config.KindMouseAxisIncrement, k)
	assert.ErrorIs(t, k.UnmarshalText([]byte("nope")), config.ErrInvalidValue)

	var m config.EmulationMode
	require.NoError(t, m.UnmarshalText([]byte("joystick+keyboard")))
	assert.Equal(t, config.ModeJoystickAndKeyboard, m)
	assert.True(t, m.HasJoystick())
	assert.True(t, m.HasKeyboard())
	assert.False(t, m.HasMouse())

	var l config.KeyboardLayout
	require.NoError(t, l.UnmarshalText([]byte("es")))
	assert.Equal(t, config.LayoutES, l)
	b, err := l.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "es", string(b))

	assert.Equal(t, "kind(9)", config.MappingKind(9).String())
}

func TestValidate(t *testing.T) {
	type testCase struct {
		name   string
		mutate func(c *config.DeviceConfig)
	}
	cases := []testCase{
		{"too many buttons", func(c *config.DeviceConfig) { c.JoyButtons = 33 }},
		{"too many axes", func(c *config.DeviceConfig) { c.JoyAxes = 8 }},
		{"too many hats", func(c *config.DeviceConfig) { c.JoyHats = 4 }},
		{"shift past table", func(c *config.DeviceConfig) { c.ShiftInput = 33 }},
		{"bad mode", func(c *config.DeviceConfig) { c.Mode = 6 }},
		{"bad layout", func(c *config.DeviceConfig) { c.Layout = 5 }},
		{"long name", func(c *config.DeviceConfig) { c.Digital[0].Name = "abcd" }},
		{"nul in name", func(c *config.DeviceConfig) { c.Analog[0].Name = "a\x00b" }},
		{"digital kind", func(c *config.DeviceConfig) { c.Digital[1].Kind = 8 }},
		{"analog kind", func(c *config.DeviceConfig) { c.Analog[1].Kind = config.KindJoyButton }},
		{"inverted dead zone", func(c *config.DeviceConfig) {
			c.Analog[2] = config.AnalogInput{Kind: config.KindKey, DeadzoneMin: 0xA0, DeadzoneMax: 0x60}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := config.Defaults(config.ModeJoystick)
			tc.mutate(&c)
			assert.ErrorIs(t, c.Validate(), config.ErrInvalidValue)
		})
	}
}
