package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Alia5/jammaio/config"
	"github.com/Alia5/jammaio/internal/configpaths"
	"github.com/Alia5/jammaio/storage"
	"github.com/alecthomas/kong"
)

// EepromCommand edits an EEPROM image while no board holds it.
type EepromCommand struct {
	Image string             `help:"EEPROM image file (defaults to eeprom.bin in the config directory)" type:"path" env:"JAMMAIO_IMAGE"`
	Size  int                `help:"Capacity of a newly created EEPROM image" default:"1024" env:"JAMMAIO_IMAGE_SIZE"`
	Store config.StoreConfig `embed:"" prefix:"store."`

	Dump   EepromDump   `cmd:"" help:"Print the stored configuration as a document"`
	Import EepromImport `cmd:"" help:"Validate a document and store it"`
	Reset  EepromReset  `cmd:"" help:"Store the factory configuration of a mode"`
}

// eepromImage is bound for the eeprom subcommands.
type eepromImage struct {
	path  string
	size  int
	store config.StoreConfig
	out   io.Writer
}

// AfterApply binds the image the subcommands work on.
func (e *EepromCommand) AfterApply(kctx *kong.Context) error {
	path := e.Image
	if path == "" {
		p, err := configpaths.DefaultImagePath()
		if err != nil {
			return fmt.Errorf("resolve eeprom image path: %w", err)
		}
		path = p
	}
	kctx.Bind(&eepromImage{path: path, size: e.Size, store: e.Store, out: os.Stdout})
	return nil
}

// open locks the image and returns a store over it. The caller closes the
// returned file.
func (im *eepromImage) open(logger *slog.Logger) (*storage.File, *config.Store, error) {
	if err := configpaths.EnsureDir(im.path); err != nil {
		return nil, nil, err
	}
	f, err := storage.OpenFile(im.path, im.size)
	if err != nil {
		return nil, nil, err
	}
	return f, config.NewStore(f, im.store, logger), nil
}

// formatFor picks the document format: the explicit one if set, the file
// extension otherwise, yaml as a last resort.
func formatFor(explicit, path string) (string, error) {
	if explicit != "" {
		if f := config.NormalizeFormat(explicit); f != "" {
			return f, nil
		}
		return "", fmt.Errorf("unsupported format: %s", explicit)
	}
	if path != "" {
		if f := config.NormalizeFormat(filepath.Ext(path)); f != "" {
			return f, nil
		}
	}
	return "yaml", nil
}

type EepromDump struct {
	Format string `help:"Output format (yaml, toml, json), guessed from --output when unset"`
	Output string `help:"Write the document to this file instead of stdout" type:"path"`
}

func (c *EepromDump) Run(im *eepromImage, logger *slog.Logger) error {
	format, err := formatFor(c.Format, c.Output)
	if err != nil {
		return err
	}
	f, store, err := im.open(logger)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := store.Load(); err != nil {
		return fmt.Errorf("%s: %w", im.path, err)
	}

	out := im.out
	if c.Output != "" {
		if err := configpaths.EnsureDir(c.Output); err != nil {
			return err
		}
		file, err := os.Create(c.Output)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}
	return config.EncodeDocument(out, format, config.NewDocument(store.Snapshot()))
}

type EepromImport struct {
	File   string `arg:"" help:"Document to store" type:"existingfile"`
	Format string `help:"Document format (yaml, toml, json), guessed from the file extension when unset"`
}

func (c *EepromImport) Run(im *eepromImage, logger *slog.Logger) error {
	format, err := formatFor(c.Format, c.File)
	if err != nil {
		return err
	}
	src, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer src.Close()
	doc, err := config.DecodeDocument(src, format)
	if err != nil {
		return fmt.Errorf("%s: %w", c.File, err)
	}
	cfg, err := doc.Config()
	if err != nil {
		return fmt.Errorf("%s: %w", c.File, err)
	}

	f, store, err := im.open(logger)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := store.Replace(cfg); err != nil {
		return err
	}
	if err := store.Save(); err != nil {
		return err
	}
	logger.Info("configuration stored", "image", im.path, "mode", cfg.Mode,
		"crc", fmt.Sprintf("%02X", store.Snapshot().CRC8))
	return nil
}

type EepromReset struct {
	Mode config.EmulationMode `help:"Emulation mode whose defaults are stored (defaults to --store.default-mode)"`
}

func (c *EepromReset) Run(kctx *kong.Context, im *eepromImage, logger *slog.Logger) error {
	mode := im.store.DefaultMode
	if flagSet(kctx, "mode") {
		mode = c.Mode
	}
	return c.reset(im, mode, logger)
}

func (c *EepromReset) reset(im *eepromImage, mode config.EmulationMode, logger *slog.Logger) error {
	f, store, err := im.open(logger)
	if err != nil {
		return err
	}
	defer f.Close()
	store.ResetTo(mode)
	if err := store.Save(); err != nil {
		return err
	}
	logger.Info("factory configuration stored", "image", im.path, "mode", mode)
	return nil
}

// flagSet reports whether the flag was given on the command line, in the
// environment or in a configuration file.
func flagSet(kctx *kong.Context, name string) bool {
	for _, f := range kctx.Flags() {
		if f.Name == name {
			return f.Set
		}
	}
	return false
}
