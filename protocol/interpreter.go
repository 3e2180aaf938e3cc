package protocol

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Alia5/jammaio/config"
	"github.com/Alia5/jammaio/internal/log"
)

const (
	ProtocolMajor = 0x0001
	ProtocolMinor = 0x0000

	// MaxLineLength is the size of the receive buffer of the board; longer
	// lines are cut by the transports.
	MaxLineLength = 112

	// Outputs available on the board.
	DigitalOutputs = 4
	AnalogOutputs  = 4
)

// Rebooter restarts the board (or the emulating process).
type Rebooter interface {
	Reboot()
}

// Emulation turns HID output on and off. *mapping.Engine implements it.
type Emulation interface {
	SetEnabled(on bool)
}

// Outputs drives the digital and PWM outputs of the board.
type Outputs interface {
	SetDigitalOutputs(mask uint8)
	SetAnalogOutput(channel int, value uint8)
}

// StatusSource provides the data of a status frame.
type StatusSource interface {
	Status() Status
}

// Status is the raw board state reported by the status frame.
type Status struct {
	// Digital holds the level of every digital input, bit i = input i.
	Digital    uint32
	Analog     [config.AnalogInputs]uint16
	DigitalOut uint8
	AnalogOut  [AnalogOutputs]uint8
	// ScanPeriod is the measured duration of one scan loop iteration.
	ScanPeriod time.Duration
}

// Frame renders the status frame. The digital inputs are split along the
// physical banks: player 1 (mcp1), player 2 (mcp2) and the cabinet switches
// wired on the MCU itself.
func (s Status) Frame() string {
	var b strings.Builder
	p1 := s.Digital >> config.Player1Base & (1<<(config.Player2Base-config.Player1Base) - 1)
	p2 := s.Digital >> config.Player2Base & (1<<(config.CabinetBase-config.Player2Base) - 1)
	cab := s.Digital >> config.CabinetBase
	fmt.Fprintf(&b, "Mmcp1=%X mcp2=%X mcu=%X", p1, p2, cab)
	for i, v := range s.Analog {
		fmt.Fprintf(&b, " an%d=%X", i, v)
	}
	fmt.Fprintf(&b, " do=%X", s.DigitalOut)
	for i, v := range s.AnalogOut {
		fmt.Fprintf(&b, " ao%d=%X", i, v)
	}
	fmt.Fprintf(&b, " rr=%d us", s.ScanPeriod.Microseconds())
	return b.String()
}

// Config holds interpreter settings.
type Config struct {
	Version string `help:"Version string answered to the V command" default:"V0.2.0.0 JAMMAIO BOARD" env:"JAMMAIO_VERSION_STRING"`
}

// Collaborators are the board services the interpreter drives. Nil members
// make the matching commands no-ops.
type Collaborators struct {
	Reboot    Rebooter
	Emulation Emulation
	Outputs   Outputs
	Status    StatusSource
}

// Interpreter executes protocol lines and writes reply frames to w. It owns
// the volatile debug and streaming flags.
type Interpreter struct {
	mu        sync.Mutex
	store     *config.Store
	w         io.Writer
	c         Collaborators
	cfg       Config
	logger    *slog.Logger
	raw       log.RawLogger
	debug     bool
	streaming bool
}

// New creates an interpreter writing frames to w.
func New(store *config.Store, w io.Writer, c Collaborators, cfg Config, logger *slog.Logger, raw log.RawLogger) *Interpreter {
	if logger == nil {
		logger = log.Discard()
	}
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	return &Interpreter{store: store, w: w, c: c, cfg: cfg, logger: logger, raw: raw}
}

// Debug reports whether debug frames are emitted.
func (p *Interpreter) Debug() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.debug
}

// Streaming reports whether the scan loop should emit status frames.
func (p *Interpreter) Streaming() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streaming
}

// SendStatus writes one status frame.
func (p *Interpreter) SendStatus() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendStatus()
}

func (p *Interpreter) sendStatus() {
	if p.c.Status == nil {
		return
	}
	p.send(p.c.Status.Status().Frame())
}

// Execute parses and runs one inbound line.
func (p *Interpreter) Execute(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.raw.Log("rx", []byte(line))
	cmds, err := Parse(line)
	for _, cmd := range cmds {
		p.run(cmd)
	}
	if err != nil {
		p.logger.Debug("rejected command line", "line", strings.TrimSpace(line), "error", err)
		p.sendError(err, "")
	}
}

func (p *Interpreter) run(cmd Command) {
	switch cmd.Op {
	case OpReboot:
		p.logger.Info("reboot requested")
		if p.c.Reboot != nil {
			p.c.Reboot.Reboot()
		}
	case OpDebugOn:
		p.debug = true
		p.sendDebug("Debug ON")
	case OpDebugOff:
		p.debug = false
		p.sendDebug("Debug OFF")
	case OpHandshake:
		p.send(fmt.Sprintf("?%04X%04X", ProtocolMajor, ProtocolMinor))
	case OpVersion:
		p.send(p.cfg.Version)
	case OpStatus:
		if !p.streaming {
			p.sendStatus()
		}
	case OpStreamStart:
		p.streaming = true
	case OpStreamStop:
		p.streaming = false
	case OpEmulationOn, OpEmulationOff:
		if p.c.Emulation != nil {
			p.c.Emulation.SetEnabled(cmd.Op == OpEmulationOn)
		}
	case OpDigitalOutputs:
		if p.c.Outputs != nil {
			p.c.Outputs.SetDigitalOutputs(uint8(cmd.Value) & (1<<DigitalOutputs - 1))
		}
		p.sendDebug(fmt.Sprintf("O=%x", cmd.Value))
	case OpAnalogOutput:
		if p.c.Outputs != nil {
			for ch := range AnalogOutputs {
				if cmd.Value>>(ch+8)&1 != 0 {
					p.c.Outputs.SetAnalogOutput(ch, uint8(cmd.Value))
				}
			}
		}
		p.sendDebug(fmt.Sprintf("pwm=%x", cmd.Value))
	case OpDump:
		p.dump()
	case OpKeyword:
		p.sendDebug(fmt.Sprintf("keyword=%s", cmd.Keyword))
		p.keyword(cmd)
	}
}

func (p *Interpreter) keyword(cmd Command) {
	switch cmd.Keyword {
	case KeywordResetCfg:
		p.store.Reset()
		if err := p.store.Save(); err != nil {
			p.sendError(err, "EEPROM")
			return
		}
		p.logger.Info("configuration reset to defaults")
		p.sendMessage("EEPROM reset")

	case KeywordLoadCfg:
		if err := p.store.Load(); err != nil {
			p.sendError(err, "EEPROM")
			return
		}
		p.sendMessage("EEPROM load")

	case KeywordSaveCfg:
		if err := p.store.Save(); err != nil {
			p.sendError(err, "EEPROM")
			return
		}
		p.sendMessage("EEPROM save")

	case KeywordGet:
		key := cmd.Args
		f, v, err := p.store.GetField(key)
		if err != nil {
			p.sendError(err, key)
			return
		}
		p.sendMessage(key + "=" + config.FormatValue(f, v))

	case KeywordSet:
		key, value, err := ParseSetArgs(cmd.Args)
		if err != nil {
			p.sendError(err, "")
			return
		}
		f, v, err := p.store.SetField(key, value)
		if err != nil {
			p.sendError(err, key)
			return
		}
		p.sendMessage(key + "=" + config.FormatValue(f, v))

	case KeywordHelp:
		for _, k := range Keywords() {
			p.sendMessage("Keyword =" + k.String())
		}
		for _, f := range config.Fields() {
			p.sendMessage(fmt.Sprintf("Param %s=%02X", f.Key(), uint8(f.Type())))
		}
		p.sendMessage(fmt.Sprintf("Help listed %d keywords and %d params", len(Keywords()), len(config.Fields())))

	case KeywordSetDigital:
		idx, d, err := ParseDigitalArgs(cmd.Args)
		if err == nil {
			err = p.store.SetDigital(idx, d)
		}
		if err != nil {
			p.sendError(err, cmd.Args)
			return
		}
		p.sendMessage(digitalLine(idx, d))

	case KeywordSetAnalog:
		idx, a, err := ParseAnalogArgs(cmd.Args)
		if err == nil {
			err = p.store.SetAnalog(idx, a)
		}
		if err != nil {
			p.sendError(err, cmd.Args)
			return
		}
		p.sendMessage(analogLine(idx, a))
	}
}

func (p *Interpreter) dump() {
	c := p.store.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "cfg crc=%02X", c.CRC8)
	for _, f := range config.Fields() {
		v, _ := c.Get(f)
		fmt.Fprintf(&b, " %s=%s", f.Key(), config.FormatValue(f, v))
	}
	p.sendMessage(b.String())
	for i, d := range c.Digital {
		p.sendMessage(digitalLine(i, d))
	}
	for i, a := range c.Analog {
		p.sendMessage(analogLine(i, a))
	}
}

func digitalLine(i int, d config.DigitalInput) string {
	return fmt.Sprintf("di %d tp=%X mp=%X sh=%X nm=%s", i, uint8(d.Kind), uint8(d.Target), uint8(d.Shifted), d.Name)
}

func analogLine(i int, a config.AnalogInput) string {
	return fmt.Sprintf("ai %d tp=%X po=%X ne=%X dmi=%X dma=%X nm=%s",
		i, uint8(a.Kind), uint8(a.Positive), uint8(a.Negative), a.DeadzoneMin, a.DeadzoneMax, a.Name)
}

func (p *Interpreter) sendMessage(msg string) { p.send("M" + msg) }

func (p *Interpreter) sendDebug(msg string) {
	if p.debug {
		p.sendMessage(msg)
	}
}

func (p *Interpreter) sendError(err error, detail string) {
	se := WrapError(err, detail)
	p.logger.Debug("command failed", "status", se.Code, "error", err)
	p.send(se.Frame())
}

func (p *Interpreter) send(frame string) {
	if p.w == nil {
		return
	}
	b := []byte(frame + "\n")
	p.raw.Log("tx", b)
	if _, err := p.w.Write(b); err != nil {
		p.logger.Debug("failed to write frame", "error", err)
	}
}
