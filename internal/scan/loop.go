// Package scan runs the board scan loop: it samples the raw inputs, feeds the
// mapping engine, flushes the HID backends and executes queued protocol lines,
// all from a single goroutine.
package scan

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Alia5/jammaio/board"
	"github.com/Alia5/jammaio/config"
	"github.com/Alia5/jammaio/device"
	"github.com/Alia5/jammaio/protocol"
)

// Config controls the cadence of the loop.
type Config struct {
	Period      time.Duration `help:"Scan loop period" default:"1ms" env:"JAMMAIO_SCAN_PERIOD"`
	StreamEvery int           `help:"Scans between two status frames while streaming" default:"100" env:"JAMMAIO_STREAM_EVERY"`
	QueueSize   int           `help:"Protocol lines buffered between two scans" default:"16" env:"JAMMAIO_LINE_QUEUE"`
}

// Source provides the latest raw sample. *board.Latest implements it.
type Source interface {
	Get() board.RawState
}

// Engine is the part of the mapping engine driven by the loop.
type Engine interface {
	OnDigitalEdge(index int, pressed bool)
	OnAnalogSample(index int, sample uint16)
	device.Flusher
}

// Interpreter is the part of the protocol interpreter driven by the loop.
type Interpreter interface {
	Execute(line string)
	Streaming() bool
	SendStatus()
}

// Loop is the scan loop. Lines and jobs submitted from other goroutines are
// executed between two scans so they never race the engine.
type Loop struct {
	cfg     Config
	src     Source
	engine  Engine
	proto   Interpreter
	store   *config.Store
	outputs *board.Outputs
	logger  *slog.Logger

	lines chan string
	jobs  chan func()

	prev      uint32
	ticks     uint64
	lastStart time.Time
	flushFail bool

	mu     sync.Mutex
	last   board.RawState
	period time.Duration
}

// New creates a loop. The interpreter is attached with SetInterpreter since
// it usually needs the loop as its StatusSource.
func New(cfg Config, src Source, engine Engine, store *config.Store, outputs *board.Outputs, logger *slog.Logger) *Loop {
	if cfg.StreamEvery <= 0 {
		cfg.StreamEvery = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	return &Loop{
		cfg:     cfg,
		src:     src,
		engine:  engine,
		store:   store,
		outputs: outputs,
		logger:  logger,
		lines:   make(chan string, cfg.QueueSize),
		jobs:    make(chan func(), cfg.QueueSize),
	}
}

// SetInterpreter attaches the protocol interpreter. Call before Run.
func (l *Loop) SetInterpreter(p Interpreter) { l.proto = p }

// Submit queues one protocol line. It reports false when the queue is full
// and the line was dropped.
func (l *Loop) Submit(line string) bool {
	select {
	case l.lines <- line:
		return true
	default:
		l.logger.Warn("protocol queue full, dropping line", "line", line)
		return false
	}
}

// Do queues fn to run on the loop goroutine and waits for it, or for ctx.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	job := func() {
		defer close(done)
		fn()
	}
	select {
	case l.jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status implements protocol.StatusSource.
func (l *Loop) Status() protocol.Status {
	l.mu.Lock()
	s := protocol.Status{
		Digital:    l.last.Digital,
		Analog:     l.last.Analog,
		ScanPeriod: l.period,
	}
	l.mu.Unlock()
	if l.outputs != nil {
		o := l.outputs.State()
		s.DigitalOut = o.Digital
		s.AnalogOut = o.Analog
	}
	return s
}

// Tick runs one scan.
func (l *Loop) Tick() {
	start := time.Now()
	s := l.src.Get()

	changed := s.Digital ^ l.prev
	for i := 0; changed != 0 && i < config.DigitalInputs; i++ {
		if changed&(1<<i) != 0 {
			l.engine.OnDigitalEdge(i, s.Pressed(i))
		}
	}
	l.prev = s.Digital
	for i, v := range s.Analog {
		l.engine.OnAnalogSample(i, v)
	}

	if err := l.engine.Flush(); err != nil {
		if !l.flushFail {
			l.logger.Warn("failed to send HID reports", "error", err)
		}
		l.flushFail = true
	} else if l.flushFail {
		l.logger.Info("HID reports flowing again")
		l.flushFail = false
	}

	l.mu.Lock()
	l.last = s
	if !l.lastStart.IsZero() {
		l.period = start.Sub(l.lastStart)
	}
	l.mu.Unlock()
	l.lastStart = start

	l.drain()

	l.ticks++
	if l.proto != nil && l.proto.Streaming() && l.ticks%uint64(l.cfg.StreamEvery) == 0 {
		l.proto.SendStatus()
	}
}

func (l *Loop) drain() {
	for {
		select {
		case line := <-l.lines:
			if l.proto != nil {
				l.proto.Execute(line)
			}
		case job := <-l.jobs:
			job()
		default:
			return
		}
	}
}

// delay is the extra per-scan wait configured in the record.
func (l *Loop) delay() time.Duration {
	if l.store == nil {
		return 0
	}
	var us uint16
	l.store.View(func(c *config.DeviceConfig) { us = c.DelayMicros })
	return time.Duration(us) * time.Microsecond
}

// Run scans until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("scan loop started", "period", l.cfg.Period)
	defer l.logger.Info("scan loop stopped")
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		l.Tick()
		timer.Reset(l.cfg.Period + l.delay())
	}
}
