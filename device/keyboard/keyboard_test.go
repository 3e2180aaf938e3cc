package keyboard_test

import (
	"testing"

	"github.com/Alia5/jammaio/device"
	"github.com/Alia5/jammaio/device/keyboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	type testCase struct {
		name   string
		layout *keyboard.Layout
		code   uint8
		want   keyboard.Stroke
		ok     bool
	}

	cases := []testCase{
		{name: "none", layout: keyboard.LayoutUS, code: keyboard.CodeNone, ok: false},
		{name: "us lower a", layout: keyboard.LayoutUS, code: 'a', want: keyboard.Stroke{Usage: keyboard.KeyA}, ok: true},
		{name: "us upper A", layout: keyboard.LayoutUS, code: 'A', want: keyboard.Stroke{Usage: keyboard.KeyA, Modifiers: keyboard.ModLeftShift}, ok: true},
		{name: "fr a is q key", layout: keyboard.LayoutFR, code: 'a', want: keyboard.Stroke{Usage: keyboard.KeyQ}, ok: true},
		{name: "fr digit needs shift", layout: keyboard.LayoutFR, code: '5', want: keyboard.Stroke{Usage: keyboard.Key5, Modifiers: keyboard.ModLeftShift}, ok: true},
		{name: "de z is y key", layout: keyboard.LayoutDE, code: 'z', want: keyboard.Stroke{Usage: keyboard.KeyY}, ok: true},
		{name: "left ctrl", layout: keyboard.LayoutUS, code: keyboard.CodeLeftCtrl, want: keyboard.Stroke{Modifiers: keyboard.ModLeftCtrl}, ok: true},
		{name: "right alt", layout: keyboard.LayoutUS, code: keyboard.CodeRightAlt, want: keyboard.Stroke{Modifiers: keyboard.ModRightAlt}, ok: true},
		{name: "up arrow", layout: keyboard.LayoutFR, code: keyboard.CodeUpArrow, want: keyboard.Stroke{Usage: keyboard.KeyUp}, ok: true},
		{name: "f1", layout: keyboard.LayoutUS, code: keyboard.CodeF1, want: keyboard.Stroke{Usage: keyboard.KeyF1}, ok: true},
		{name: "unmapped control char", layout: keyboard.LayoutUS, code: 0x01, ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := keyboard.Resolve(tc.layout, tc.code)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestRecordCodes(t *testing.T) {
	assert.Equal(t, 0xDA, keyboard.CodeUpArrow)
	assert.Equal(t, 0xC2, keyboard.CodeF1)
	assert.Equal(t, 0xB0, keyboard.CodeReturn)
}

func TestLayoutByIndex(t *testing.T) {
	assert.Same(t, keyboard.LayoutUS, keyboard.LayoutByIndex(keyboard.LayoutIndexUS))
	assert.Same(t, keyboard.LayoutFR, keyboard.LayoutByIndex(keyboard.LayoutIndexFR))
	assert.Same(t, keyboard.LayoutES, keyboard.LayoutByIndex(keyboard.LayoutIndexES))
	assert.Same(t, keyboard.LayoutUS, keyboard.LayoutByIndex(42))
}

func TestKeyboardFlushOnlyWhenDirty(t *testing.T) {
	rec := &device.Recorder{}
	kb := keyboard.New(keyboard.LayoutUS, rec)

	require.NoError(t, kb.Flush())
	assert.Empty(t, rec.Reports, "nothing pressed, nothing sent")

	kb.KeyDown('a')
	require.NoError(t, kb.Flush())
	require.Len(t, rec.Reports, 1)
	report := rec.Last()
	require.Len(t, report, keyboard.ReportSize)
	assert.Equal(t, byte(0), report[0])
	assert.Equal(t, byte(1<<(keyboard.KeyA%8)), report[2+keyboard.KeyA/8])

	require.NoError(t, kb.Flush())
	assert.Len(t, rec.Reports, 1, "unchanged state is not resent")

	kb.KeyUp('a')
	require.NoError(t, kb.Flush())
	require.Len(t, rec.Reports, 2)
	assert.Equal(t, make([]byte, keyboard.ReportSize), rec.Last())
}

func TestKeyboardRefcounting(t *testing.T) {
	kb := keyboard.New(keyboard.LayoutUS, nil)

	// 'a' and 'A' share the A usage.
	kb.KeyDown('a')
	kb.KeyDown('A')
	st := kb.State()
	assert.True(t, st.IsSet(keyboard.KeyA))
	assert.Equal(t, uint8(keyboard.ModLeftShift), st.Modifiers)

	kb.KeyUp('A')
	st = kb.State()
	assert.True(t, st.IsSet(keyboard.KeyA), "still held through 'a'")
	assert.Zero(t, st.Modifiers)

	kb.KeyUp('a')
	assert.False(t, kb.State().IsSet(keyboard.KeyA))

	// Same code from two inputs.
	kb.KeyDown(keyboard.CodeLeftCtrl)
	kb.KeyDown(keyboard.CodeLeftCtrl)
	kb.KeyUp(keyboard.CodeLeftCtrl)
	assert.Equal(t, uint8(keyboard.ModLeftCtrl), kb.State().Modifiers)
	kb.KeyUp(keyboard.CodeLeftCtrl)
	assert.Zero(t, kb.State().Modifiers)

	// Spurious release.
	kb.KeyUp('z')
	assert.Equal(t, keyboard.InputState{}, kb.State())
}

func TestKeyboardReleaseUsesPressStroke(t *testing.T) {
	kb := keyboard.New(keyboard.LayoutUS, nil)
	kb.KeyDown('a')
	kb.SetLayout(keyboard.LayoutFR)
	kb.KeyUp('a')
	assert.Equal(t, keyboard.InputState{}, kb.State())
}

func TestKeyboardReleaseAll(t *testing.T) {
	rec := &device.Recorder{}
	kb := keyboard.New(nil, rec)
	kb.KeyDown('Q')
	kb.KeyDown(keyboard.CodeF12)
	require.NoError(t, kb.Flush())

	kb.ReleaseAll()
	assert.True(t, kb.Dirty())
	require.NoError(t, kb.Flush())
	assert.Equal(t, make([]byte, keyboard.ReportSize), rec.Last())

	kb.KeyDown('Q')
	assert.True(t, kb.State().IsSet(keyboard.KeyQ), "refcounts restart from zero")
}

func TestInputStateMarshalRoundTrip(t *testing.T) {
	var st keyboard.InputState
	st.Modifiers = keyboard.ModRightAlt
	st.Set(keyboard.KeyEnter)
	st.Set(keyboard.KeyA)

	b, err := st.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{keyboard.ModRightAlt, 2, keyboard.KeyA, keyboard.KeyEnter}, b)

	var got keyboard.InputState
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, st, got)

	assert.Error(t, got.UnmarshalBinary([]byte{0, 3, 1}))
}
