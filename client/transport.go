package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/Alia5/jammaio/internal/auth"
)

// Config controls low-level transport behavior such as timeouts.
type Config struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	// ReadTimeout bounds the wait for the first reply frame.
	ReadTimeout time.Duration
	// IdleTimeout ends a reply once no further frame arrived for this long.
	IdleTimeout time.Duration
	// Key authenticates with a board that requires it. Empty skips the
	// handshake, which only loopback hosts may do.
	Key string
}

// DefaultConfig returns the timeouts used when no Config is given.
func DefaultConfig() Config {
	return Config{
		DialTimeout:  3 * time.Second,
		WriteTimeout: 5 * time.Second,
		ReadTimeout:  2 * time.Second,
		IdleTimeout:  150 * time.Millisecond,
	}
}

// Until reports whether the frames collected so far complete the reply.
type Until func(frames []string) bool

// NoReply completes a request as soon as the line is written.
func NoReply([]string) bool { return true }

// Transport is the low-level line protocol implementation used by Client.
// A request is one command line terminated by '\n'. The board answers with
// zero or more '\n' terminated frames and never signals the end of a reply,
// so frames are collected until the Until callback is satisfied or the
// connection stays quiet for IdleTimeout.
type Transport struct {
	addr string
	mock func(line string) ([]string, error)
	cfg  Config
}

// NewTransport creates a new low-level transport.
func NewTransport(addr string) *Transport { return NewTransportWithConfig(addr, nil) }

// NewTransportWithConfig creates a new low-level transport with optional timeouts configuration.
func NewTransportWithConfig(addr string, cfg *Config) *Transport {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
	}
	return &Transport{addr: addr, cfg: c}
}

// NewMockTransport creates a transport that returns canned frames without real networking.
func NewMockTransport(responder func(line string) ([]string, error)) *Transport {
	return &Transport{addr: "mock", mock: responder, cfg: DefaultConfig()}
}

// Do sends a command line and returns the reply frames without terminators.
func (t *Transport) Do(line string, until Until) ([]string, error) {
	return t.DoCtx(context.Background(), line, until)
}

// DoCtx is like Do but honors the provided context.
func (t *Transport) DoCtx(ctx context.Context, line string, until Until) ([]string, error) {
	if strings.ContainsAny(line, "\r\n") {
		return nil, fmt.Errorf("command line must not contain line breaks")
	}
	if t.mock != nil {
		frames, err := t.mock(line)
		if err != nil {
			return nil, err
		}
		if until == nil {
			return frames, nil
		}
		for i := 0; i <= len(frames); i++ {
			if until(frames[:i]) {
				return frames[:i], nil
			}
		}
		return frames, fmt.Errorf("read: no complete reply to %q", line)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	d := &net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			slog.Warn("failed to set TCP_NODELAY", "error", err)
		}
	}

	if t.cfg.Key != "" {
		sealed, err := auth.Secure(conn, t.cfg.Key, t.cfg.ReadTimeout)
		if err != nil {
			return nil, fmt.Errorf("authenticate: %w", err)
		}
		conn = sealed
	}

	if t.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	r := bufio.NewReader(conn)
	var frames []string
	wait := t.cfg.IdleTimeout
	if until != nil {
		wait = t.cfg.ReadTimeout
	}
	for {
		if until != nil && until(frames) {
			return frames, nil
		}
		_ = conn.SetReadDeadline(time.Now().Add(wait))
		s, err := r.ReadString('\n')
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return frames, ctxErr
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				if until != nil {
					return frames, fmt.Errorf("read: no complete reply to %q", line)
				}
				return frames, nil
			}
			return frames, fmt.Errorf("read: %w", err)
		}
		frames = append(frames, strings.TrimRight(s, "\r\n"))
		wait = t.cfg.IdleTimeout
		if until != nil {
			wait = t.cfg.ReadTimeout
		}
	}
}
