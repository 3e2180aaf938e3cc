package cmd

import "github.com/Alia5/jammaio/internal/log"

// CLI is the root command line of jammaio.
type CLI struct {
	Config string     `help:"Configuration file (json, yaml or toml)" type:"path" env:"JAMMAIO_CONFIG"`
	Log    log.Config `embed:"" prefix:"log."`

	Serve      Serve             `cmd:"" help:"Run the board and its protocol listeners"`
	Ctl        Ctl               `cmd:"" help:"Send commands to a running board"`
	Feed       Feed              `cmd:"" help:"Drive the raw inputs of a running board"`
	Eeprom     EepromCommand     `cmd:"" help:"Inspect and edit an EEPROM image offline"`
	Descriptor DescriptorCommand `cmd:"" help:"Print the HID report descriptors for a configuration"`
	ConfigCmd  ConfigCommand     `cmd:"" name:"config" help:"Configuration file helpers"`
	Service    ServiceCommand    `cmd:"" help:"Run the board as a systemd service"`
}
