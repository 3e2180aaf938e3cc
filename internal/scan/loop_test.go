package scan_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/Alia5/jammaio/board"
	"github.com/Alia5/jammaio/config"
	"github.com/Alia5/jammaio/internal/scan"
	"github.com/Alia5/jammaio/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	events  []string
	flushes int
	err     error
}

func (e *fakeEngine) OnDigitalEdge(i int, pressed bool) {
	e.events = append(e.events, fmt.Sprintf("d%d=%v", i, pressed))
}

func (e *fakeEngine) OnAnalogSample(i int, v uint16) {
	if v != 511 {
		e.events = append(e.events, fmt.Sprintf("a%d=%d", i, v))
	}
}

func (e *fakeEngine) Flush() error {
	e.flushes++
	return e.err
}

type fakeInterpreter struct {
	lines     []string
	streaming bool
	statuses  int
}

func (p *fakeInterpreter) Execute(line string) { p.lines = append(p.lines, line) }
func (p *fakeInterpreter) Streaming() bool     { return p.streaming }
func (p *fakeInterpreter) SendStatus()         { p.statuses++ }

func newLoop(t *testing.T, cfg scan.Config) (*scan.Loop, *board.Latest, *fakeEngine, *fakeInterpreter, *board.Outputs) {
	t.Helper()
	src := board.NewLatest()
	eng := &fakeEngine{}
	proto := &fakeInterpreter{}
	outs := board.NewOutputs()
	store := config.NewStore(storage.NewMemory(1024), config.StoreConfig{Offset: config.DefaultOffset, DefaultMode: config.ModeJoystick}, nil)
	l := scan.New(cfg, src, eng, store, outs, slog.New(slog.DiscardHandler))
	l.SetInterpreter(proto)
	return l, src, eng, proto, outs
}

func TestTickEmitsEdges(t *testing.T) {
	l, src, eng, _, _ := newLoop(t, scan.Config{StreamEvery: 10, QueueSize: 4})

	l.Tick()
	assert.Empty(t, eng.events)
	assert.Equal(t, 1, eng.flushes)

	src.Set(board.RawState{Digital: 1<<0 | 1<<5, Analog: [4]uint16{511, 511, 511, 900}})
	l.Tick()
	assert.Equal(t, []string{"d0=true", "d5=true", "a3=900"}, eng.events)

	eng.events = nil
	src.Set(board.RawState{Digital: 1 << 5, Analog: [4]uint16{511, 511, 511, 511}})
	l.Tick()
	l.Tick()
	assert.Equal(t, []string{"d0=false"}, eng.events)
}

func TestTickRunsQueuedLinesAndStreams(t *testing.T) {
	l, _, _, proto, _ := newLoop(t, scan.Config{StreamEvery: 2, QueueSize: 2})

	assert.True(t, l.Submit("?"))
	assert.True(t, l.Submit("V"))
	assert.False(t, l.Submit("L"), "queue full")
	l.Tick()
	assert.Equal(t, []string{"?", "V"}, proto.lines)

	proto.streaming = true
	for range 4 {
		l.Tick()
	}
	assert.Equal(t, 2, proto.statuses)
}

func TestFlushErrorKeepsScanning(t *testing.T) {
	l, _, eng, _, _ := newLoop(t, scan.Config{})
	eng.err = errors.New("gadget gone")
	l.Tick()
	l.Tick()
	assert.Equal(t, 2, eng.flushes)
}

func TestStatus(t *testing.T) {
	l, src, _, _, outs := newLoop(t, scan.Config{})
	src.Set(board.RawState{Digital: 0xF0000001, Analog: [4]uint16{1, 2, 3, 4}})
	outs.SetDigitalOutputs(0x3)
	outs.SetAnalogOutput(1, 0x7F)
	l.Tick()
	time.Sleep(time.Millisecond)
	l.Tick()

	s := l.Status()
	assert.Equal(t, uint32(0xF0000001), s.Digital)
	assert.Equal(t, [4]uint16{1, 2, 3, 4}, s.Analog)
	assert.Equal(t, uint8(0x3), s.DigitalOut)
	assert.Equal(t, [4]uint8{0, 0x7F, 0, 0}, s.AnalogOut)
	assert.GreaterOrEqual(t, s.ScanPeriod, time.Millisecond)
}

func TestRunExecutesJobs(t *testing.T) {
	l, _, eng, _, _ := newLoop(t, scan.Config{Period: time.Millisecond, StreamEvery: 1, QueueSize: 1})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	ran := false
	require.NoError(t, l.Do(ctx, func() { ran = true }))
	assert.True(t, ran)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
	assert.Positive(t, eng.flushes)
}
