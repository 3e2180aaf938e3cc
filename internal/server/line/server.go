// Package line serves the board command protocol over TCP (serial-over-TCP)
// and over a serial tty. Inbound lines go to the scan loop, outbound frames
// are broadcast to every connected host through a Hub.
package line

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/Alia5/jammaio/internal/auth"
	"github.com/Alia5/jammaio/protocol"
)

// ServerConfig represents the line transport configuration.
type ServerConfig struct {
	Addr         string        `help:"Serial-over-TCP listen address, empty to disable" default:":3243" env:"JAMMAIO_LINE_ADDR"`
	TTY          string        `help:"Serial device carrying the protocol as well (e.g. /dev/ttyGS0)" env:"JAMMAIO_TTY"`
	WriteTimeout time.Duration `help:"Drop a host that does not accept a frame within this time" default:"1s" env:"JAMMAIO_LINE_WRITE_TIMEOUT"`
	Guard        *auth.Guard   `kong:"-"`
}

// Submitter receives complete inbound lines. *scan.Loop implements it.
type Submitter interface {
	Submit(line string) bool
}

// Server accepts TCP hosts speaking the line protocol.
type Server struct {
	config ServerConfig
	hub    *Hub
	sink   Submitter
	logger *slog.Logger

	ln    net.Listener
	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// New creates a line server bound to hub and sink.
func New(config ServerConfig, hub *Hub, sink Submitter, logger *slog.Logger) *Server {
	return &Server{
		config: config,
		hub:    hub,
		sink:   sink,
		logger: logger,
		conns:  map[net.Conn]struct{}{},
	}
}

// Start listens on the configured address and serves hosts in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("line protocol listening", "addr", ln.Addr().String())
	s.wg.Add(1)
	go s.serve()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Close stops accepting and disconnects every host.
func (s *Server) Close() {
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		c, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.logger.Info("line server stopped")
				return
			}
			s.logger.Error("line accept error", "error", err)
			return
		}
		s.mu.Lock()
		s.conns[c] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(c)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()
	connLogger := s.logger.With("remote", conn.RemoteAddr().String())
	connLogger.Info("line host connected")
	defer connLogger.Info("line host disconnected")

	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			connLogger.Warn("failed to set TCP_NODELAY", "error", err)
		}
	}

	host, err := s.config.Guard.Accept(conn)
	if err != nil {
		connLogger.Warn("line host rejected", "error", err)
		return
	}

	w := &deadlineWriter{conn: host, timeout: s.config.WriteTimeout}
	detach := s.hub.Attach(conn.RemoteAddr().String(), w, func() { _ = conn.Close() })
	defer detach()

	err = ReadLines(host, protocol.MaxLineLength, func(line string) {
		s.sink.Submit(line)
	})
	if err != nil && !errors.Is(err, net.ErrClosed) {
		connLogger.Debug("line read ended", "error", err)
	}
}

type deadlineWriter struct {
	conn    net.Conn
	timeout time.Duration
}

func (d *deadlineWriter) Write(p []byte) (int, error) {
	if d.timeout > 0 {
		_ = d.conn.SetWriteDeadline(time.Now().Add(d.timeout))
	}
	return d.conn.Write(p)
}

// ReadLines calls fn for every line read from r until EOF. Lines are cut at
// limit bytes the way the board's receive buffer does: the remainder is
// delivered as the next line. Empty lines and the terminator are dropped.
func ReadLines(r io.Reader, limit int, fn func(line string)) error {
	br := bufio.NewReaderSize(r, limit)
	var buf []byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			if l := strings.TrimRight(string(buf), "\r"); l != "" {
				fn(l)
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if b == '\n' {
			if l := strings.TrimRight(string(buf), "\r"); l != "" {
				fn(l)
			}
			buf = buf[:0]
			continue
		}
		buf = append(buf, b)
		if len(buf) == limit {
			fn(string(buf))
			buf = buf[:0]
		}
	}
}
