// Package input accepts raw board input streams over TCP. A feeder (the
// hardware bridge or a test tool) writes board.RawState frames; the server
// answers with a board.OutputState frame each time the outputs change.
package input

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/Alia5/jammaio/board"
	"github.com/Alia5/jammaio/internal/auth"
	"github.com/Alia5/jammaio/internal/log"
)

// ServerConfig represents the raw input stream configuration.
type ServerConfig struct {
	Addr  string      `help:"Raw input stream listen address, empty to disable" default:":3244" env:"JAMMAIO_INPUT_ADDR"`
	Guard *auth.Guard `kong:"-"`
}

// Sink receives decoded samples. *board.Latest implements it.
type Sink interface {
	Set(s board.RawState)
}

// Server is the raw input stream listener.
type Server struct {
	config  ServerConfig
	sink    Sink
	outputs *board.Outputs
	logger  *slog.Logger
	raw     log.RawLogger

	ln    net.Listener
	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// New creates a raw input server. outputs may be nil.
func New(config ServerConfig, sink Sink, outputs *board.Outputs, logger *slog.Logger, raw log.RawLogger) *Server {
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	return &Server{
		config:  config,
		sink:    sink,
		outputs: outputs,
		logger:  logger,
		raw:     raw,
		conns:   map[net.Conn]struct{}{},
	}
}

// Start listens on the configured address.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("raw input stream listening", "addr", ln.Addr().String())
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

// Close stops the server and disconnects every feeder.
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
				s.logger.Info("raw input server stopped")
				return
			}
			s.logger.Error("raw input accept error", "error", err)
			return
		}
		s.mu.Lock()
		s.conns[c] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			connLogger := s.logger.With("remote", c.RemoteAddr().String())
			if err := s.handleConn(c, connLogger); err != nil {
				connLogger.Error("raw input stream error", "error", err)
			}
		}()
	}
}

func (s *Server) handleConn(conn net.Conn, logger *slog.Logger) error {
	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()
	host, err := s.config.Guard.Accept(conn)
	if err != nil {
		logger.Warn("raw input feeder rejected", "error", err)
		return nil
	}
	// a vanished feeder must not leave inputs held
	defer s.sink.Set(board.Idle())
	logger.Info("raw input feeder connected")

	if s.outputs != nil {
		updates, cancel := s.outputs.Subscribe()
		defer cancel()
		go func() {
			for o := range updates {
				b, _ := o.MarshalBinary()
				s.raw.Log("out", b)
				if _, err := host.Write(b); err != nil {
					logger.Warn("failed to write output state", "error", err)
					return
				}
			}
		}()
	}

	buf := make([]byte, board.FrameSize)
	for {
		if _, err := io.ReadFull(host, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				logger.Info("raw input feeder disconnected")
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		s.raw.Log("in", buf)
		var st board.RawState
		if err := st.UnmarshalBinary(buf); err != nil {
			return fmt.Errorf("decode frame: %w", err)
		}
		s.sink.Set(st)
	}
}
