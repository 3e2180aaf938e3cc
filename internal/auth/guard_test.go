package auth_test

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/Alia5/jammaio/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoOnce accepts one host through g and answers its first line.
func echoOnce(t *testing.T, g *auth.Guard) (addr string, accepted <-chan error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	done := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			done <- err
			return
		}
		defer conn.Close()
		host, err := g.Accept(conn)
		done <- err
		if err != nil {
			return
		}
		l, err := bufio.NewReader(host).ReadString('\n')
		if err != nil {
			return
		}
		_, _ = host.Write([]byte("echo " + l))
	}()
	return ln.Addr().String(), done
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func roundTrip(t *testing.T, conn net.Conn) string {
	t.Helper()
	_, err := conn.Write([]byte("?\n"))
	require.NoError(t, err)
	l, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	return l
}

func newGuard(t *testing.T, key string, loopback bool) *auth.Guard {
	t.Helper()
	g, err := auth.NewGuard(key, loopback)
	require.NoError(t, err)
	return g
}

func TestGuardAcceptsKey(t *testing.T) {
	addr, accepted := echoOnce(t, newGuard(t, "cabinet", true))
	conn, err := auth.Secure(dial(t, addr), "cabinet", time.Second)
	require.NoError(t, err)
	require.NoError(t, <-accepted)
	assert.Equal(t, "echo ?\n", roundTrip(t, conn))
}

func TestGuardRejectsWrongKey(t *testing.T) {
	addr, accepted := echoOnce(t, newGuard(t, "cabinet", true))
	_, err := auth.Secure(dial(t, addr), "arcade", time.Second)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
	assert.ErrorIs(t, <-accepted, auth.ErrUnauthorized)
}

func TestGuardRejectsPlainHost(t *testing.T) {
	addr, accepted := echoOnce(t, newGuard(t, "cabinet", true))
	conn := dial(t, addr)
	_, err := conn.Write([]byte("?\n"))
	require.NoError(t, err)
	reply, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "NO\x00", string(reply))
	assert.ErrorIs(t, <-accepted, auth.ErrUnauthorized)
}

func TestGuardLetsLoopbackSkipKey(t *testing.T) {
	addr, accepted := echoOnce(t, newGuard(t, "cabinet", false))
	conn := dial(t, addr)
	assert.Equal(t, "echo ?\n", roundTrip(t, conn))
	require.NoError(t, <-accepted)

	// A loopback host that has the key still gets a sealed session.
	addr, accepted = echoOnce(t, newGuard(t, "cabinet", false))
	sealedConn, err := auth.Secure(dial(t, addr), "cabinet", time.Second)
	require.NoError(t, err)
	require.NoError(t, <-accepted)
	assert.Equal(t, "echo ?\n", roundTrip(t, sealedConn))
}

func TestNilGuardPassesThrough(t *testing.T) {
	var g *auth.Guard
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	got, err := g.Accept(a)
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestConfigGuard(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	g, err := auth.Config{Disable: true}.Guard(logger)
	require.NoError(t, err)
	assert.Nil(t, g)

	path := filepath.Join(t.TempDir(), "jammaio.key")
	g, err = auth.Config{KeyFile: path, Loopback: true}.Guard(logger)
	require.NoError(t, err)
	require.NotNil(t, g)
	key, err := auth.ReadKeyFile(path)
	require.NoError(t, err)

	addr, accepted := echoOnce(t, g)
	conn, err := auth.Secure(dial(t, addr), key, time.Second)
	require.NoError(t, err)
	require.NoError(t, <-accepted)
	assert.Equal(t, "echo ?\n", roundTrip(t, conn))
}
