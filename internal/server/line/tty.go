package line

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/Alia5/jammaio/protocol"
)

// TTY carries the protocol over a serial device such as a USB gadget ACM port
// (/dev/ttyGS0) or a host-side adapter. Terminals are switched to raw mode so
// the line discipline neither echoes nor rewrites bytes.
type TTY struct {
	path   string
	f      *os.File
	state  *term.State
	logger *slog.Logger
	once   sync.Once
}

// OpenTTY opens path for reading and writing.
func OpenTTY(path string, logger *slog.Logger) (*TTY, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open tty %s: %w", path, err)
	}
	t := &TTY{path: path, f: f, logger: logger}
	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		st, err := term.MakeRaw(fd)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("raw mode on %s: %w", path, err)
		}
		t.state = st
	} else {
		logger.Debug("not a terminal, using as plain stream", "path", path)
	}
	return t, nil
}

// Serve attaches the device to hub and submits its lines until the device is
// closed or fails.
func (t *TTY) Serve(hub *Hub, sink Submitter) error {
	detach := hub.Attach(t.path, t.f, nil)
	defer detach()
	t.logger.Info("line protocol on tty", "path", t.path)
	err := ReadLines(t.f, protocol.MaxLineLength, func(line string) {
		sink.Submit(line)
	})
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

// Close restores the terminal mode and closes the device.
func (t *TTY) Close() error {
	var err error
	t.once.Do(func() {
		if t.state != nil {
			_ = term.Restore(int(t.f.Fd()), t.state)
		}
		err = t.f.Close()
	})
	return err
}
