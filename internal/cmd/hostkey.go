package cmd

import (
	"github.com/Alia5/jammaio/internal/auth"
)

// HostKey selects the key a client presents to a board that requires one.
type HostKey struct {
	Key     string `help:"Key of a board that requires one (see jammaio.key next to the board's configuration)" env:"JAMMAIO_KEY"`
	KeyFile string `help:"Read the key from this file" type:"path" env:"JAMMAIO_KEY_FILE"`
}

// resolve returns the key to present, empty when none was given.
func (k HostKey) resolve() (string, error) {
	if k.Key != "" || k.KeyFile == "" {
		return k.Key, nil
	}
	return auth.ReadKeyFile(k.KeyFile)
}
