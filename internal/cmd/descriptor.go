package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Alia5/jammaio/config"
	"github.com/Alia5/jammaio/device/joystick"
	"github.com/Alia5/jammaio/device/keyboard"
	"github.com/Alia5/jammaio/device/mouse"
	"github.com/Alia5/jammaio/storage"
	"github.com/alecthomas/kong"
)

// DescriptorCommand prints the HID report descriptors a gadget has to be
// set up with for a configuration.
type DescriptorCommand struct {
	Image   string               `help:"Take mode and joystick counts from this EEPROM image" type:"existingfile"`
	Store   config.StoreConfig   `embed:"" prefix:"store."`
	Mode    config.EmulationMode `help:"Emulation mode when no image is given" default:"joystick+keyboard"`
	Buttons uint8                `help:"Joystick button count, overrides the configuration"`
	Axes    uint8                `help:"Joystick axis count, overrides the configuration"`
	Hats    uint8                `help:"Joystick HAT count, overrides the configuration"`
}

// Run is called by Kong when the descriptor command is executed.
func (d *DescriptorCommand) Run(kctx *kong.Context, logger *slog.Logger) error {
	cfg, err := d.record(logger)
	if err != nil {
		return err
	}
	caps := capsOf(cfg)
	if flagSet(kctx, "buttons") {
		caps.Buttons = d.Buttons
	}
	if flagSet(kctx, "axes") {
		caps.Axes = d.Axes
	}
	if flagSet(kctx, "hats") {
		caps.Hats = d.Hats
	}
	return writeDescriptors(os.Stdout, cfg.Mode, caps)
}

func (d *DescriptorCommand) record(logger *slog.Logger) (config.DeviceConfig, error) {
	if d.Image == "" {
		return config.Defaults(d.Mode), nil
	}
	f, err := storage.OpenFile(d.Image, 0)
	if err != nil {
		return config.DeviceConfig{}, err
	}
	defer f.Close()
	store := config.NewStore(f, d.Store, logger)
	if err := store.Load(); err != nil {
		return config.DeviceConfig{}, fmt.Errorf("%s: %w", d.Image, err)
	}
	return store.Snapshot(), nil
}

// capsOf returns the joystick counts advertised for c.
func capsOf(c config.DeviceConfig) joystick.Capabilities {
	return joystick.Capabilities{Buttons: c.JoyButtons, Axes: c.JoyAxes, Hats: c.JoyHats}
}

func writeDescriptors(w io.Writer, mode config.EmulationMode, caps joystick.Capabilities) error {
	type entry struct {
		name string
		desc []byte
	}
	var list []entry
	if mode.HasKeyboard() {
		list = append(list, entry{"keyboard", keyboard.ReportDescriptor})
	}
	if mode.HasJoystick() {
		caps = caps.Clamp()
		name := fmt.Sprintf("joystick (%d buttons, %d axes, %d hats, report %d bytes)",
			caps.Buttons, caps.Axes, caps.Hats, caps.ReportSize())
		list = append(list, entry{name, joystick.ReportDescriptor(caps)})
	}
	if mode.HasMouse() {
		list = append(list, entry{"mouse", mouse.ReportDescriptor})
	}
	if len(list) == 0 {
		_, err := fmt.Fprintf(w, "mode %s exposes no HID device\n", mode)
		return err
	}
	for _, e := range list {
		if _, err := fmt.Fprintf(w, "%s: %d bytes\n%s", e.name, len(e.desc), hexRows(e.desc)); err != nil {
			return err
		}
	}
	return nil
}

func hexRows(b []byte) string {
	var sb strings.Builder
	for len(b) > 0 {
		n := min(len(b), 16)
		fmt.Fprintf(&sb, "  % X\n", b[:n])
		b = b[n:]
	}
	return sb.String()
}
