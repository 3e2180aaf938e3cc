package auth

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/Alia5/jammaio/internal/configpaths"
)

// HandshakeTimeout bounds the handshake of one connection.
const HandshakeTimeout = 5 * time.Second

// Config selects how TCP hosts authenticate.
type Config struct {
	KeyFile  string `help:"Key TCP hosts authenticate with, created on first start (defaults to jammaio.key in the config directory)" type:"path" env:"JAMMAIO_KEY_FILE"`
	Disable  bool   `help:"Accept TCP hosts without a key" env:"JAMMAIO_AUTH_DISABLE"`
	Loopback bool   `help:"Require the key from loopback hosts as well" env:"JAMMAIO_AUTH_LOOPBACK"`
}

// Guard loads the key file, creating it if needed, and returns the guard the
// listeners use. It returns nil when authentication is disabled.
func (c Config) Guard(logger *slog.Logger) (*Guard, error) {
	if c.Disable {
		logger.Warn("TCP hosts are accepted without a key")
		return nil, nil
	}
	path := c.KeyFile
	if path == "" {
		p, err := configpaths.DefaultKeyPath()
		if err != nil {
			return nil, fmt.Errorf("resolve key file path: %w", err)
		}
		path = p
	}
	key, created, err := LoadOrCreateKey(path)
	if err != nil {
		return nil, err
	}
	if created {
		logger.Info("generated TCP key", "path", path)
		logger.Info("-------------------------------------")
		logger.Info("Remote hosts authenticate with:")
		logger.Info(key)
		logger.Info("-------------------------------------")
		logger.Info("You can change this key at any time by editing the file")
	}
	return NewGuard(key, c.Loopback)
}

// Guard runs the server side of the handshake on accepted connections.
type Guard struct {
	key      []byte
	loopback bool
}

// NewGuard derives the key once for every connection. When loopback is false
// hosts on a loopback address may skip the handshake.
func NewGuard(key string, loopback bool) (*Guard, error) {
	k, err := DeriveKey(key)
	if err != nil {
		return nil, err
	}
	return &Guard{key: k, loopback: loopback}, nil
}

// Accept authenticates conn and returns the connection to serve. A nil guard
// returns conn unchanged. On error the caller closes conn.
func (g *Guard) Accept(conn net.Conn) (net.Conn, error) {
	if g == nil {
		return conn, nil
	}
	// Exempt hosts may stay quiet until their first line, so only the others
	// are held to the handshake deadline.
	exempt := !g.loopback && isLoopback(conn.RemoteAddr())
	if !exempt {
		_ = conn.SetDeadline(time.Now().Add(HandshakeTimeout))
		defer func() { _ = conn.SetDeadline(time.Time{}) }()
	}

	r := bufio.NewReader(conn)
	first, err := r.Peek(1)
	if err != nil {
		return nil, fmt.Errorf("read handshake: %w", err)
	}
	if first[0] != Magic[0] || !g.handshakeMatches(r) {
		if exempt {
			return &bufferedConn{Conn: conn, r: r}, nil
		}
		_, _ = conn.Write(replyDenied)
		return nil, fmt.Errorf("%w: no handshake", ErrUnauthorized)
	}
	sessionKey, err := ServerHandshake(r, conn, g.key)
	if err != nil {
		return nil, err
	}
	return WrapConn(conn, r, sessionKey, false)
}

func (g *Guard) handshakeMatches(r *bufio.Reader) bool {
	ok, err := IsHandshake(r)
	return err == nil && ok
}

// Secure runs the client side of the handshake on conn and returns the
// sealed connection.
func Secure(conn net.Conn, key string, timeout time.Duration) (net.Conn, error) {
	k, err := DeriveKey(key)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(timeout))
		defer func() { _ = conn.SetDeadline(time.Time{}) }()
	}
	sessionKey, err := ClientHandshake(conn, k)
	if err != nil {
		return nil, err
	}
	return WrapConn(conn, nil, sessionKey, true)
}

func isLoopback(addr net.Addr) bool {
	tcp, ok := addr.(*net.TCPAddr)
	return ok && tcp.IP.IsLoopback()
}

// bufferedConn serves reads from the buffer that peeked at the handshake.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (b *bufferedConn) Read(p []byte) (int, error) { return b.r.Read(p) }
