package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Alia5/jammaio/board"
	"github.com/Alia5/jammaio/config"
	"github.com/Alia5/jammaio/device"
	"github.com/Alia5/jammaio/device/joystick"
	"github.com/Alia5/jammaio/device/keyboard"
	"github.com/Alia5/jammaio/device/mouse"
	"github.com/Alia5/jammaio/internal/auth"
	"github.com/Alia5/jammaio/internal/configpaths"
	"github.com/Alia5/jammaio/internal/log"
	"github.com/Alia5/jammaio/internal/scan"
	"github.com/Alia5/jammaio/internal/server/input"
	"github.com/Alia5/jammaio/internal/server/line"
	"github.com/Alia5/jammaio/mapping"
	"github.com/Alia5/jammaio/protocol"
	"github.com/Alia5/jammaio/storage"
)

// HIDConfig names the HID gadget devices reports are written to. Reports of
// a backend without a device are only logged at trace level.
type HIDConfig struct {
	Keyboard  string `help:"Keyboard HID device (e.g. /dev/hidg0)" env:"JAMMAIO_HID_KEYBOARD"`
	Joystick1 string `help:"Player 1 joystick HID device" env:"JAMMAIO_HID_JOYSTICK1"`
	Joystick2 string `help:"Player 2 joystick HID device" env:"JAMMAIO_HID_JOYSTICK2"`
	Mouse1    string `help:"Player 1 mouse HID device" env:"JAMMAIO_HID_MOUSE1"`
	Mouse2    string `help:"Player 2 mouse HID device" env:"JAMMAIO_HID_MOUSE2"`
}

// Serve runs the board.
type Serve struct {
	Image     string             `help:"EEPROM image file (defaults to eeprom.bin in the config directory)" type:"path" env:"JAMMAIO_IMAGE"`
	ImageSize int                `help:"Capacity of a newly created EEPROM image" default:"1024" env:"JAMMAIO_IMAGE_SIZE"`
	Watch     bool               `help:"Reload the configuration when the EEPROM image changes on disk" env:"JAMMAIO_WATCH"`
	Store     config.StoreConfig `embed:"" prefix:"store."`
	HID       HIDConfig          `embed:"" prefix:"hid."`
	Scan      scan.Config        `embed:"" prefix:"scan."`
	Line      line.ServerConfig  `embed:"" prefix:"line."`
	Input     input.ServerConfig `embed:"" prefix:"input."`
	Auth      auth.Config        `embed:"" prefix:"auth."`
	Protocol  protocol.Config    `embed:"" prefix:"protocol."`
}

// Run is called by Kong when the serve command is executed.
func (s *Serve) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.StartServer(ctx, logger, rawLogger)
}

func (s *Serve) StartServer(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	image, err := s.imagePath()
	if err != nil {
		return err
	}
	eeprom, err := storage.OpenFile(image, s.ImageSize)
	if err != nil {
		return err
	}
	defer eeprom.Close()

	store := config.NewStore(eeprom, s.Store, logger)
	if err := store.LoadOrReset(); err != nil {
		if errors.Is(err, config.ErrStorageTooSmall) {
			return err
		}
		if err := store.Save(); err != nil {
			return fmt.Errorf("write default configuration: %w", err)
		}
	}
	logger.Info("configuration loaded", "image", image, "mode", store.Snapshot().Mode)

	devs, closers, err := openDevices(s.HID, rawLogger)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	engine := mapping.New(store, mapping.Backends{}, logger)
	m := &machine{store: store, devs: devs, engine: engine, logger: logger}
	m.apply()

	latest := board.NewLatest()
	outputs := board.NewOutputs()
	loop := scan.New(s.Scan, latest, engine, store, outputs, logger)

	hub := line.NewHub(logger)
	defer hub.Close()
	interp := protocol.New(store, hub, protocol.Collaborators{
		Reboot:    m,
		Emulation: engine,
		Outputs:   outputs,
		Status:    loop,
	}, s.Protocol, logger, rawLogger)
	loop.SetInterpreter(interp)

	if s.Line.Addr != "" || s.Input.Addr != "" {
		guard, err := s.Auth.Guard(logger)
		if err != nil {
			return err
		}
		s.Line.Guard, s.Input.Guard = guard, guard
	}
	if s.Line.Addr != "" {
		lineSrv := line.New(s.Line, hub, loop, logger)
		if err := lineSrv.Start(); err != nil {
			return fmt.Errorf("start line server: %w", err)
		}
		defer lineSrv.Close()
	}
	if s.Line.TTY != "" {
		tty, err := line.OpenTTY(s.Line.TTY, logger)
		if err != nil {
			return err
		}
		defer tty.Close()
		go func() {
			if err := tty.Serve(hub, loop); err != nil {
				logger.Error("serial line stopped", "tty", s.Line.TTY, "error", err)
			}
		}()
	}
	if s.Input.Addr != "" {
		inputSrv := input.New(s.Input, latest, outputs, logger, rawLogger)
		if err := inputSrv.Start(); err != nil {
			return fmt.Errorf("start raw input server: %w", err)
		}
		defer inputSrv.Close()
	}
	if s.Watch {
		w, err := watchImage(image, logger, func() {
			if err := eeprom.Reopen(); err != nil {
				logger.Warn("eeprom image not reopened", "error", err)
				return
			}
			if err := loop.Do(ctx, m.reload); err != nil {
				logger.Debug("reload skipped", "error", err)
			}
		})
		if err != nil {
			return err
		}
		defer w.Close()
	}

	err = loop.Run(ctx)
	engine.SetEnabled(false)
	if ferr := engine.Flush(); ferr != nil {
		logger.Warn("final release not delivered", "error", ferr)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Serve) imagePath() (string, error) {
	if s.Image != "" {
		return s.Image, nil
	}
	p, err := configpaths.DefaultImagePath()
	if err != nil {
		return "", fmt.Errorf("resolve eeprom image path: %w", err)
	}
	if err := configpaths.EnsureDir(p); err != nil {
		return "", err
	}
	return p, nil
}

// devices are the HID backends of every mode. Which of them the engine
// drives depends on the emulation mode of the record.
type devices struct {
	kb  *keyboard.Keyboard
	joy *joystick.Joystick
	ms  *mouse.Mouse
}

func openSink(path, tag string, raw log.RawLogger, closers *[]io.Closer) (device.Sink, error) {
	if path == "" {
		return device.LogSink{Tag: tag, Raw: raw}, nil
	}
	f, err := device.OpenFileSink(path)
	if err != nil {
		return nil, err
	}
	*closers = append(*closers, f)
	return f, nil
}

func openDevices(cfg HIDConfig, raw log.RawLogger) (*devices, []io.Closer, error) {
	var closers []io.Closer
	fail := func(err error) (*devices, []io.Closer, error) {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, nil, err
	}
	kb, err := openSink(cfg.Keyboard, "kbd", raw, &closers)
	if err != nil {
		return fail(err)
	}
	j1, err := openSink(cfg.Joystick1, "joy1", raw, &closers)
	if err != nil {
		return fail(err)
	}
	j2, err := openSink(cfg.Joystick2, "joy2", raw, &closers)
	if err != nil {
		return fail(err)
	}
	m1, err := openSink(cfg.Mouse1, "mouse1", raw, &closers)
	if err != nil {
		return fail(err)
	}
	m2, err := openSink(cfg.Mouse2, "mouse2", raw, &closers)
	if err != nil {
		return fail(err)
	}
	return &devices{
		kb:  keyboard.New(keyboard.LayoutByIndex(uint8(config.DefaultLayout)), kb),
		joy: joystick.New(joystick.Capabilities{}, j1, j2),
		ms:  mouse.New(m1, m2),
	}, closers, nil
}

func (d *devices) backends(mode config.EmulationMode) mapping.Backends {
	var b mapping.Backends
	if mode.HasKeyboard() {
		b.Keyboard = d.kb
	}
	if mode.HasJoystick() {
		b.Joystick = d.joy
	}
	if mode.HasMouse() {
		b.Mouse = d.ms
	}
	return b
}

// machine applies the persisted record to the HID side. It runs on the scan
// loop goroutine, either from the ~ command or from a watched reload.
type machine struct {
	store  *config.Store
	devs   *devices
	engine *mapping.Engine
	logger *slog.Logger
}

// apply advertises the joystick counts of the record and selects the
// backends of its emulation mode.
func (r *machine) apply() {
	c := r.store.Snapshot()
	r.devs.joy.SetCapabilities(capsOf(c))
	r.engine.SetBackends(r.devs.backends(c.Mode))
	r.engine.SetEnabled(true)
	r.logger.Info("emulation configured", "mode", c.Mode, "layout", c.Layout,
		"buttons", c.JoyButtons, "axes", c.JoyAxes, "hats", c.JoyHats)
}

// Reboot implements protocol.Rebooter: the stored record replaces the live
// one and the HID side starts over.
func (r *machine) Reboot() {
	r.logger.Info("reboot requested")
	_ = r.store.LoadOrReset()
	r.apply()
}

// reload picks up an image rewritten by another process. Unsaved changes
// are lost, like on a reboot.
func (r *machine) reload() {
	before := r.store.Snapshot()
	dirty := r.store.Dirty()
	if err := r.store.Load(); err != nil {
		r.logger.Warn("ignoring unusable eeprom image change", "error", err)
		return
	}
	if r.store.Snapshot() == before {
		return
	}
	if dirty {
		r.logger.Warn("unsaved configuration changes dropped by reload")
	}
	r.logger.Info("configuration reloaded from eeprom image")
	r.apply()
}
