package config_test

import (
	"testing"

	"github.com/Alia5/jammaio/config"
	"github.com/Alia5/jammaio/crc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSize(t *testing.T) {
	assert.Equal(t, 233, config.RecordSize)
	c := config.Defaults(config.ModeKeyboard)
	b, err := c.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, b, config.RecordSize)
}

func TestRecordLayout(t *testing.T) {
	c := config.Defaults(config.ModeNone)
	c.CRC8 = 0xAA
	c.Mode = config.ModeMouse
	c.DelayMicros = 0x1234
	c.Layout = config.LayoutDE
	c.Digital[0] = config.DigitalInput{Kind: config.KindKey, Target: 0x22, Shifted: 0x33, Name: "ab"}
	c.Digital[31] = config.DigitalInput{Kind: config.KindJoyButton, Target: 0x85, Name: "xyz"}
	c.Analog[3] = config.AnalogInput{Kind: config.KindMouseAxis, Positive: 0x81, Negative: 0x02, DeadzoneMin: 0x60, DeadzoneMax: 0xA0, Name: "an"}
	c.JoyButtons, c.JoyAxes, c.JoyHats, c.ShiftInput = 12, 2, 1, 14

	b, err := c.MarshalBinary()
	require.NoError(t, err)

	assert.Equal(t, []byte{0xAA, 4, 0x34, 0x12, 2}, b[:5])
	assert.Equal(t, []byte{1, 0x22, 0x33, 'a', 'b', 0}, b[5:11])
	assert.Equal(t, []byte{4, 0x85, 0, 'x', 'y', 'z'}, b[5+31*6:5+32*6])
	assert.Equal(t, []byte{5, 0x81, 0x02, 0x60, 0xA0, 'a', 'n', 0}, b[197+3*8:197+4*8])
	assert.Equal(t, []byte{12, 2, 1, 14}, b[229:])
}

func TestRecordRoundTrip(t *testing.T) {
	modes := []config.EmulationMode{
		config.ModeNone,
		config.ModeKeyboard,
		config.ModeJoystick,
		config.ModeJoystickAndKeyboard,
		config.ModeMouse,
		config.ModeMouseAndKeyboard,
	}
	for _, m := range modes {
		t.Run(m.String(), func(t *testing.T) {
			c := config.Defaults(m)
			c.Digital[5].Name = "xyz"
			c.CRC8 = c.ComputeCRC()

			b, err := c.MarshalBinary()
			require.NoError(t, err)

			var got config.DeviceConfig
			require.NoError(t, got.UnmarshalBinary(b))
			assert.Equal(t, c, got)

			again, err := got.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, b, again)
		})
	}
}

func TestUnmarshalRejectsInvalidEnums(t *testing.T) {
	c := config.Defaults(config.ModeJoystick)
	b, err := c.MarshalBinary()
	require.NoError(t, err)

	bad := append([]byte(nil), b...)
	bad[1] = 9 // mode
	var got config.DeviceConfig
	assert.ErrorIs(t, got.UnmarshalBinary(bad), config.ErrInvalidValue)

	bad = append([]byte(nil), b...)
	bad[197] = uint8(config.KindJoyHat) // analog kind
	assert.ErrorIs(t, got.UnmarshalBinary(bad), config.ErrInvalidValue)

	assert.Error(t, got.UnmarshalBinary(b[:100]))
}

func TestChecksumSkipsFirstByte(t *testing.T) {
	c := config.Defaults(config.ModeKeyboard)
	b, err := c.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, crc.Checksum(b[1:]), config.Checksum(b))

	b[0] ^= 0xFF
	assert.Equal(t, crc.Checksum(b[1:]), config.Checksum(b))
	assert.Equal(t, config.Checksum(b), c.ComputeCRC())
}
