package config

import "github.com/Alia5/jammaio/device/keyboard"

// Default dead band, x4 in the sample domain: 384..640 around 511.
const (
	DefaultDeadzoneMin = 0x60
	DefaultDeadzoneMax = 0xA0
)

// DefaultLayout is the keyboard layout a reset record starts with.
const DefaultLayout = LayoutFR

// Input banks. Each player bank holds 8 buttons, 4 directions, coin and start.
const (
	Player1Base = 0
	Player2Base = 14
	CabinetBase = 28

	bankButtons = 8
	bankUp      = 8
	bankDown    = 9
	bankLeft    = 10
	bankRight   = 11
	bankCoin    = 12
	bankStart   = 13
)

var directionBits = [...]struct {
	offset int
	dirs   uint8
}{
	{bankUp, HatUp},
	{bankDown, HatDown},
	{bankLeft, HatLeft},
	{bankRight, HatRight},
}

var bankBases = [...]int{Player1Base, Player2Base}

// Defaults returns the factory record for mode. Unknown modes yield the
// zeroed record with ModeNone.
func Defaults(mode EmulationMode) DeviceConfig {
	c := DeviceConfig{Layout: DefaultLayout}
	switch mode {
	case ModeKeyboard:
		keyboardDefaults(&c)
	case ModeJoystick:
		joystickDefaults(&c)
		c.JoyButtons = 12
		for i, p := range [...]uint8{0, 0, 1, 1} {
			c.Digital[CabinetBase+i] = DigitalInput{Kind: KindJoyButton, Target: PlayerTarget(p, 10+uint8(i%2))}
		}
	case ModeJoystickAndKeyboard:
		joystickDefaults(&c)
		c.JoyButtons = 10
		cabinetKeys(&c, keyboard.CodeF4)
	case ModeMouse:
		mouseDefaults(&c)
	case ModeMouseAndKeyboard:
		mouseDefaults(&c)
		p1 := [...]uint8{keyboard.CodeLeftShift, 'z', 'x', 'c', 'v'}
		p2 := [...]uint8{'w', 'i', 'k', 'j', 'l'}
		for i := range p1 {
			c.Digital[Player1Base+3+i] = DigitalInput{Kind: KindKey, Target: Target(p1[i])}
			c.Digital[Player2Base+3+i] = DigitalInput{Kind: KindKey, Target: Target(p2[i])}
		}
		startCoinKeys(&c)
		cabinetKeys(&c, keyboard.CodeF4)
	default:
		mode = ModeNone
	}
	c.Mode = mode
	return c
}

func keyboardDefaults(c *DeviceConfig) {
	c.ShiftInput = Player1Base + bankStart + 1

	// MAME default layout.
	keys := [DigitalInputs]struct{ primary, shifted uint8 }{
		{keyboard.CodeLeftCtrl, '5'},
		{keyboard.CodeLeftAlt, 0},
		{' ', 0},
		{keyboard.CodeLeftShift, 0},
		{'z', 0},
		{'x', 0},
		{'c', 0},
		{'v', 0},
		{keyboard.CodeUpArrow, '~'},
		{keyboard.CodeDownArrow, 'p'},
		{keyboard.CodeLeftArrow, keyboard.CodeReturn},
		{keyboard.CodeRightArrow, keyboard.CodeTab},
		{'5', 0},
		{'1', 0},

		{'a', 0},
		{'s', 0},
		{'q', 0},
		{'w', 0},
		{'i', 0},
		{'k', 0},
		{'j', 0},
		{'l', 0},
		{'r', 0},
		{'f', 0},
		{'d', 0},
		{'g', 0},
		{'6', 0},
		{'2', keyboard.CodeEsc},

		{keyboard.CodeF2, 0}, // test
		{keyboard.CodeF1, 0}, // service
		{'t', 0},             // test2
		{keyboard.CodeF3, 0}, // tilt
	}
	for i, k := range keys {
		c.Digital[i] = DigitalInput{Kind: KindKey, Target: Target(k.primary), Shifted: Target(k.shifted)}
	}

	pads := [AnalogInputs][2]uint8{
		{keyboard.CodeKp8, keyboard.CodeKp2},
		{keyboard.CodeKp6, keyboard.CodeKp4},
		{keyboard.CodeKp9, keyboard.CodeKp1},
		{keyboard.CodeKp7, keyboard.CodeKp3},
	}
	for i, p := range pads {
		c.Analog[i] = AnalogInput{
			Kind:        KindKey,
			Positive:    Target(p[0]),
			Negative:    Target(p[1]),
			DeadzoneMin: DefaultDeadzoneMin,
			DeadzoneMax: DefaultDeadzoneMax,
		}
	}
}

func joystickDefaults(c *DeviceConfig) {
	c.JoyAxes = 2
	c.JoyHats = 1
	for p, base := range bankBases {
		player := uint8(p)
		for b := range bankButtons {
			c.Digital[base+b] = DigitalInput{Kind: KindJoyButton, Target: PlayerTarget(player, uint8(b))}
		}
		for _, d := range directionBits {
			c.Digital[base+d.offset] = DigitalInput{Kind: KindJoyHat, Target: HatTarget(player, 0, d.dirs)}
		}
		c.Digital[base+bankCoin] = DigitalInput{Kind: KindJoyButton, Target: PlayerTarget(player, 8)}
		c.Digital[base+bankStart] = DigitalInput{Kind: KindJoyButton, Target: PlayerTarget(player, 9)}
	}
	for i := range c.Analog {
		c.Analog[i] = AnalogInput{
			Kind:        KindJoyAxis,
			Positive:    PlayerTarget(uint8(i/2), uint8(i%2)),
			DeadzoneMin: DefaultDeadzoneMin,
			DeadzoneMax: DefaultDeadzoneMax,
		}
	}
}

func mouseDefaults(c *DeviceConfig) {
	for p, base := range bankBases {
		player := uint8(p)
		for b := range 3 {
			c.Digital[base+b] = DigitalInput{Kind: KindMouseButton, Target: PlayerTarget(player, uint8(b))}
		}
		for _, d := range directionBits {
			c.Digital[base+d.offset] = DigitalInput{Kind: KindMouseAxisIncrement, Target: PlayerTarget(player, d.dirs)}
		}
	}
	axes := [2]uint8{MouseX, MouseY}
	for i := range c.Analog {
		c.Analog[i] = AnalogInput{
			Kind:        KindMouseAxis,
			Positive:    PlayerTarget(uint8(i/2), axes[i%2]),
			DeadzoneMin: DefaultDeadzoneMin,
			DeadzoneMax: DefaultDeadzoneMax,
		}
	}
}

func startCoinKeys(c *DeviceConfig) {
	c.Digital[Player1Base+bankCoin] = DigitalInput{Kind: KindKey, Target: '5'}
	c.Digital[Player1Base+bankStart] = DigitalInput{Kind: KindKey, Target: '1'}
	c.Digital[Player2Base+bankCoin] = DigitalInput{Kind: KindKey, Target: '6'}
	c.Digital[Player2Base+bankStart] = DigitalInput{Kind: KindKey, Target: '2'}
}

func cabinetKeys(c *DeviceConfig, test2 uint8) {
	for i, k := range [...]uint8{keyboard.CodeF2, keyboard.CodeF1, test2, keyboard.CodeF3} {
		c.Digital[CabinetBase+i] = DigitalInput{Kind: KindKey, Target: Target(k)}
	}
}
