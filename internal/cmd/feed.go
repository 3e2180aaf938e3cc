package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alia5/jammaio/board"
	"github.com/Alia5/jammaio/client"
	"github.com/Alia5/jammaio/config"
)

// Feed holds a set of raw inputs on a running board for a while, then lets
// go. It stands in for the hardware bridge when testing mappings.
type Feed struct {
	Addr    string        `help:"Address of the raw input stream" default:"localhost:3244" env:"JAMMAIO_FEED_ADDR"`
	Press   []int         `help:"Digital inputs held down (0-31)" sep:","`
	Analog  []uint16      `help:"Analog samples an0..an3 (0-1023), unspecified inputs stay centered" sep:","`
	Hold    time.Duration `help:"How long the inputs are held, 0 until interrupted" default:"200ms"`
	Outputs bool          `help:"Print output frames received while holding"`
	Host    HostKey       `embed:""`
}

func (f *Feed) state() (board.RawState, error) {
	st := board.Idle()
	for _, i := range f.Press {
		if i < 0 || i >= config.DigitalInputs {
			return st, fmt.Errorf("digital input %d out of range", i)
		}
		st.Digital |= 1 << i
	}
	if len(f.Analog) > config.AnalogInputs {
		return st, fmt.Errorf("at most %d analog samples", config.AnalogInputs)
	}
	for i, v := range f.Analog {
		if v > board.AnalogMax {
			return st, fmt.Errorf("analog sample %d above %d", v, board.AnalogMax)
		}
		st.Analog[i] = v
	}
	return st, nil
}

// Run is called by Kong when the feed command is executed.
func (f *Feed) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if f.Hold > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Hold)
		defer cancel()
	}
	return f.feed(ctx, os.Stdout, logger)
}

func (f *Feed) feed(ctx context.Context, out io.Writer, logger *slog.Logger) error {
	st, err := f.state()
	if err != nil {
		return err
	}
	key, err := f.Host.resolve()
	if err != nil {
		return err
	}
	cfg := client.DefaultConfig()
	cfg.Key = key
	s, err := client.OpenInputStream(ctx, f.Addr, &cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Send(st); err != nil {
		return err
	}
	logger.Info("holding inputs", "digital", fmt.Sprintf("%08X", st.Digital), "analog", st.Analog)

	if f.Outputs {
		go func() {
			for {
				o, err := s.ReadOutputs(0)
				if err != nil {
					return
				}
				fmt.Fprintf(out, "do=%X ao=% X\n", o.Digital, o.Analog[:])
			}
		}()
	}

	<-ctx.Done()
	return nil
}
