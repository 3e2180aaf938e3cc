package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/Alia5/jammaio/board"
	"github.com/Alia5/jammaio/internal/auth"
)

// InputStream is a connection to the raw input stream. The feeder writes
// board.RawState frames and receives a board.OutputState frame whenever the
// board outputs change.
type InputStream struct {
	conn   net.Conn
	wmu    sync.Mutex
	closed bool
}

// OpenInputStream dials the raw input stream at addr.
func OpenInputStream(ctx context.Context, addr string, cfg *Config) (*InputStream, error) {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
	}
	d := &net.Dialer{Timeout: c.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			slog.Warn("failed to set TCP_NODELAY", "error", err)
		}
	}
	if c.Key != "" {
		sealed, err := auth.Secure(conn, c.Key, c.ReadTimeout)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("authenticate: %w", err)
		}
		conn = sealed
	}
	return &InputStream{conn: conn}, nil
}

// Send writes one input sample.
func (s *InputStream) Send(st board.RawState) error {
	b, err := st.MarshalBinary()
	if err != nil {
		return err
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.closed {
		return net.ErrClosed
	}
	_, err = s.conn.Write(b)
	return err
}

// ReadOutputs blocks until the next output frame arrives or timeout elapses.
// A zero timeout waits forever.
func (s *InputStream) ReadOutputs(timeout time.Duration) (board.OutputState, error) {
	var o board.OutputState
	if timeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(timeout))
	} else {
		_ = s.conn.SetReadDeadline(time.Time{})
	}
	buf := make([]byte, board.OutputFrameSize)
	if _, err := io.ReadFull(s.conn, buf); err != nil {
		return o, err
	}
	err := o.UnmarshalBinary(buf)
	return o, err
}

// Close releases the connection. The board returns every input to idle.
func (s *InputStream) Close() error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
