package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/Alia5/jammaio/client"
	"github.com/Alia5/jammaio/config"
	"github.com/alecthomas/kong"
)

// Ctl groups the commands talking to a running board.
type Ctl struct {
	Addr    string        `help:"Address of the board line protocol" default:"localhost:3243" env:"JAMMAIO_CTL_ADDR"`
	Timeout time.Duration `help:"Time allowed per command" default:"5s" env:"JAMMAIO_CTL_TIMEOUT"`
	Idle    time.Duration `help:"A raw reply ends after this much silence" default:"150ms" env:"JAMMAIO_CTL_IDLE"`
	Host    HostKey       `embed:""`

	Handshake CtlHandshake `cmd:"" help:"Print the protocol version"`
	Version   CtlVersion   `cmd:"" help:"Print the firmware version string"`
	Get       CtlGet       `cmd:"" help:"Read a configuration field"`
	Set       CtlSet       `cmd:"" help:"Write a configuration field (RAM only until save)"`
	Setdin    CtlSetdin    `cmd:"" help:"Map a digital input"`
	Setain    CtlSetain    `cmd:"" help:"Map an analog input"`
	Save      CtlStore     `cmd:"" help:"Persist the RAM configuration"`
	Load      CtlStore     `cmd:"" help:"Reload the persisted configuration"`
	Reset     CtlStore     `cmd:"" help:"Restore and persist the factory configuration"`
	Dump      CtlDump      `cmd:"" help:"Print the RAM configuration as a document"`
	Status    CtlStatus    `cmd:"" help:"Print one status frame"`
	Outputs   CtlOutputs   `cmd:"" help:"Drive the digital and PWM outputs"`
	Emulation CtlEmulation `cmd:"" help:"Turn HID emulation on or off"`
	Raw       CtlRaw       `cmd:"" help:"Send a raw protocol line and print every frame received"`
}

// ctlSession is bound for the ctl subcommands.
type ctlSession struct {
	client  *client.Client
	timeout time.Duration
	out     io.Writer
}

func (s *ctlSession) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// AfterApply binds the client the subcommands run with.
func (c *Ctl) AfterApply(kctx *kong.Context) error {
	key, err := c.Host.resolve()
	if err != nil {
		return err
	}
	kctx.Bind(&ctlSession{
		client: client.NewWithConfig(c.Addr, &client.Config{
			DialTimeout:  c.Timeout,
			WriteTimeout: c.Timeout,
			ReadTimeout:  c.Timeout,
			IdleTimeout:  c.Idle,
			Key:          key,
		}),
		timeout: c.Timeout,
		out:     os.Stdout,
	})
	return nil
}

type CtlHandshake struct{}

func (c *CtlHandshake) Run(s *ctlSession) error {
	ctx, cancel := s.context()
	defer cancel()
	ma, mi, err := s.client.Handshake(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(s.out, "protocol %d.%d\n", ma, mi)
	return err
}

type CtlVersion struct{}

func (c *CtlVersion) Run(s *ctlSession) error {
	ctx, cancel := s.context()
	defer cancel()
	v, err := s.client.Version(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.out, v)
	return err
}

type CtlGet struct {
	Key string `arg:"" help:"Field key (delay, kblay, emode, axes, btns, hats, shift)"`
}

func (c *CtlGet) Run(s *ctlSession) error {
	ctx, cancel := s.context()
	defer cancel()
	v, err := s.client.Get(ctx, c.Key)
	if err != nil {
		return err
	}
	return printField(s.out, c.Key, v)
}

type CtlSet struct {
	Key   string `arg:"" help:"Field key"`
	Value string `arg:"" help:"New value in hex"`
}

func (c *CtlSet) Run(s *ctlSession) error {
	v, err := strconv.ParseUint(c.Value, 16, 32)
	if err != nil {
		return fmt.Errorf("value %q is not hex", c.Value)
	}
	ctx, cancel := s.context()
	defer cancel()
	got, err := s.client.Set(ctx, c.Key, uint32(v))
	if err != nil {
		return err
	}
	return printField(s.out, c.Key, got)
}

func printField(w io.Writer, key string, v uint32) error {
	if f, err := config.LookupField(key); err == nil {
		_, err := fmt.Fprintf(w, "%s=%s\n", key, config.FormatValue(f, v))
		return err
	}
	_, err := fmt.Fprintf(w, "%s=%X\n", key, v)
	return err
}

type CtlSetdin struct {
	Index   int                `arg:"" help:"Digital input index (0-31)"`
	Kind    config.MappingKind `arg:"" help:"Mapping kind (none, key, joyaxis, joyhat, joybutton, mouseaxis, mousebutton, mouseaxisinc)"`
	Target  uint8              `arg:"" help:"Mapping code"`
	Shifted uint8              `help:"Mapping code used while the shift input is held"`
	Name    string             `help:"Label of up to 3 characters"`
}

func (c *CtlSetdin) Run(s *ctlSession) error {
	ctx, cancel := s.context()
	defer cancel()
	return s.client.SetDigitalInput(ctx, c.Index, config.DigitalInput{
		Kind:    c.Kind,
		Target:  config.Target(c.Target),
		Shifted: config.Target(c.Shifted),
		Name:    c.Name,
	})
}

type CtlSetain struct {
	Index       int                `arg:"" help:"Analog input index (0-3)"`
	Kind        config.MappingKind `arg:"" help:"Mapping kind (none, key, joyaxis, mouseaxis)"`
	Positive    uint8              `arg:"" help:"Axis, or key used above the dead band"`
	Negative    uint8              `help:"Key used below the dead band"`
	DeadzoneMin uint8              `help:"Lower dead band edge, x4 in sample units" default:"96"`
	DeadzoneMax uint8              `help:"Upper dead band edge, x4 in sample units" default:"160"`
	Name        string             `help:"Label of up to 3 characters"`
}

func (c *CtlSetain) Run(s *ctlSession) error {
	ctx, cancel := s.context()
	defer cancel()
	return s.client.SetAnalogInput(ctx, c.Index, config.AnalogInput{
		Kind:        c.Kind,
		Positive:    config.Target(c.Positive),
		Negative:    config.Target(c.Negative),
		DeadzoneMin: c.DeadzoneMin,
		DeadzoneMax: c.DeadzoneMax,
		Name:        c.Name,
	})
}

// CtlStore backs save, load and reset; the command name selects the action.
type CtlStore struct{}

func (c *CtlStore) Run(kctx *kong.Context, s *ctlSession) error {
	ctx, cancel := s.context()
	defer cancel()
	switch kctx.Selected().Name {
	case "save":
		return s.client.Save(ctx)
	case "load":
		return s.client.Load(ctx)
	case "reset":
		return s.client.Reset(ctx)
	}
	return fmt.Errorf("unexpected command %q", kctx.Selected().Name)
}

type CtlDump struct {
	Format string `help:"Output format" enum:"yaml,toml,json" default:"yaml"`
}

func (c *CtlDump) Run(s *ctlSession) error {
	ctx, cancel := s.context()
	defer cancel()
	cfg, err := s.client.Dump(ctx)
	if err != nil {
		return err
	}
	return config.EncodeDocument(s.out, c.Format, config.NewDocument(*cfg))
}

type CtlStatus struct{}

func (c *CtlStatus) Run(s *ctlSession) error {
	ctx, cancel := s.context()
	defer cancel()
	st, err := s.client.Status(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.out, st.Frame())
	return err
}

type CtlOutputs struct {
	Digital int   `help:"Digital output mask (bits 0-3), negative leaves the outputs alone" default:"-1"`
	PWM     []int `help:"PWM channels to set (0-3)" name:"pwm"`
	Duty    uint8 `help:"PWM duty written to the selected channels"`
}

func (c *CtlOutputs) Run(s *ctlSession) error {
	ctx, cancel := s.context()
	defer cancel()
	if c.Digital >= 0 {
		if err := s.client.SetDigitalOutputs(ctx, uint8(c.Digital)); err != nil {
			return err
		}
	}
	if len(c.PWM) > 0 {
		var mask uint8
		for _, ch := range c.PWM {
			if ch < 0 || ch > 3 {
				return fmt.Errorf("pwm channel %d out of range", ch)
			}
			mask |= 1 << ch
		}
		return s.client.SetAnalogOutputs(ctx, mask, c.Duty)
	}
	return nil
}

type CtlEmulation struct {
	State string `arg:"" enum:"on,off" help:"on or off"`
}

func (c *CtlEmulation) Run(s *ctlSession) error {
	ctx, cancel := s.context()
	defer cancel()
	return s.client.SetEmulation(ctx, c.State == "on")
}

type CtlRaw struct {
	Line string `arg:"" help:"Protocol line, e.g. 'D\\$get btns'"`
}

func (c *CtlRaw) Run(s *ctlSession) error {
	ctx, cancel := s.context()
	defer cancel()
	frames, err := s.client.Raw(ctx, c.Line)
	for _, f := range frames {
		if _, werr := fmt.Fprintln(s.out, f); werr != nil {
			return werr
		}
	}
	return err
}
