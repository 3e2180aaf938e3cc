package board_test

import (
	"testing"

	"github.com/Alia5/jammaio/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawStateFrame(t *testing.T) {
	s := board.RawState{Digital: 0x80000001, Analog: [4]uint16{0, 511, 1023, 0x0102}}
	b, err := s.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x01, 0x00, 0x00, 0x80,
		0x00, 0x00,
		0xFF, 0x01,
		0xFF, 0x03,
		0x02, 0x01,
	}, b)

	var got board.RawState
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, s, got)
	assert.True(t, got.Pressed(0))
	assert.True(t, got.Pressed(31))
	assert.False(t, got.Pressed(1))
	assert.False(t, got.Pressed(32))

	b[4], b[5] = 0xFF, 0xFF
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, uint16(board.AnalogMax), got.Analog[0])

	assert.Error(t, got.UnmarshalBinary(b[:board.FrameSize-1]))
}

func TestLatest(t *testing.T) {
	l := board.NewLatest()
	assert.Equal(t, [4]uint16{511, 511, 511, 511}, l.Get().Analog)
	l.Set(board.RawState{Digital: 3})
	assert.Equal(t, uint32(3), l.Get().Digital)
}

func TestOutputs(t *testing.T) {
	o := board.NewOutputs()
	ch, cancel := o.Subscribe()
	assert.Equal(t, board.OutputState{}, <-ch)

	o.SetDigitalOutputs(0xFF)
	o.SetAnalogOutput(2, 0x80)
	o.SetAnalogOutput(7, 0x80)
	assert.Equal(t, board.OutputState{Digital: 0x0F, Analog: [4]uint8{0, 0, 0x80, 0}}, <-ch, "only the newest state is kept")

	o.SetDigitalOutputs(0x0F)
	select {
	case s := <-ch:
		t.Fatalf("unexpected notification %+v", s)
	default:
	}

	b, err := o.State().MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0F, 0, 0, 0x80, 0}, b)
	var back board.OutputState
	require.NoError(t, back.UnmarshalBinary(b))
	assert.Equal(t, o.State(), back)

	cancel()
	_, open := <-ch
	assert.False(t, open)
	cancel()
}
