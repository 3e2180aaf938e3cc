//go:build !linux

package cmd

import (
	"errors"
	"runtime"
)

var errNoSystemd = errors.New("service management needs systemd, not available on " + runtime.GOOS)

func (s *ServiceInstall) Run() error   { return errNoSystemd }
func (s *ServiceUninstall) Run() error { return errNoSystemd }
