package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	serviceName = "jammaio.service"
	servicePath = "/etc/systemd/system/jammaio.service"
)

// ServiceCommand manages the systemd unit running the board at boot.
type ServiceCommand struct {
	Install   ServiceInstall   `cmd:"" help:"Install, enable and start the systemd unit"`
	Uninstall ServiceUninstall `cmd:"" help:"Stop, disable and remove the systemd unit"`
}

type ServiceInstall struct {
	Args []string `arg:"" optional:"" passthrough:"" help:"Extra arguments for the serve command"`
}

type ServiceUninstall struct{}

func systemdUnitContent(exePath string, args []string) string {
	workingDir := filepath.Dir(exePath)
	exec := strconv.Quote(exePath) + " serve"
	for _, a := range args {
		exec += " " + strconv.Quote(a)
	}
	return fmt.Sprintf(`[Unit]
Description=jammaio arcade I/O board
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart=%s
WorkingDirectory=%s
Restart=on-failure

[Install]
WantedBy=multi-user.target
`, strings.TrimSpace(exec), workingDir)
}
