package device_test

import (
	"testing"

	"github.com/Alia5/jammaio/device"
	"github.com/Alia5/jammaio/device/joystick"
	"github.com/Alia5/jammaio/device/keyboard"
	"github.com/Alia5/jammaio/device/mouse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendsFlushOnlyChanges(t *testing.T) {
	kbSink, joySink, mouseSink := &device.Recorder{}, &device.Recorder{}, &device.Recorder{}
	kb := keyboard.New(keyboard.LayoutUS, kbSink)
	joy := joystick.New(joystick.Capabilities{Buttons: 4, Axes: 2, Hats: 1}, joySink)
	ms := mouse.New(mouseSink)

	kb.KeyDown('a')
	joy.PressButton(0, 0)
	ms.Press(0, 0)

	backends := []device.Flusher{kb, joy, ms}
	for _, f := range backends {
		require.NoError(t, f.Flush())
	}
	for _, f := range backends {
		require.NoError(t, f.Flush())
	}
	assert.Len(t, kbSink.Reports, 1)
	assert.Len(t, joySink.Reports, 1)
	assert.Len(t, mouseSink.Reports, 1)
}

func TestKeyboardReportBuilderMatchesSink(t *testing.T) {
	sink := &device.Recorder{}
	kb := keyboard.New(keyboard.LayoutUS, sink)
	kb.KeyDown('a')

	var rb device.ReportBuilder = kb
	want := rb.BuildReport()
	require.NoError(t, kb.Flush())
	require.Len(t, sink.Reports, 1)
	assert.Equal(t, want, sink.Reports[0])
}
