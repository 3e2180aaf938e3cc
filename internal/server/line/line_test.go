package line_test

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Alia5/jammaio/internal/auth"
	"github.com/Alia5/jammaio/internal/server/line"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu    sync.Mutex
	lines []string
	got   chan string
}

func newCollector() *collector { return &collector{got: make(chan string, 16)} }

func (c *collector) Submit(l string) bool {
	c.mu.Lock()
	c.lines = append(c.lines, l)
	c.mu.Unlock()
	c.got <- l
	return true
}

func (c *collector) next(t *testing.T) string {
	t.Helper()
	select {
	case l := <-c.got:
		return l
	case <-time.After(2 * time.Second):
		t.Fatal("no line received")
		return ""
	}
}

func TestReadLines(t *testing.T) {
	type testCase struct {
		name  string
		input string
		want  []string
	}
	long := strings.Repeat("a", 10)
	cases := []testCase{
		{"single", "?\n", []string{"?"}},
		{"crlf and blanks", "V\r\n\n\nU\n", []string{"V", "U"}},
		{"unterminated tail", "$get btns", []string{"$get btns"}},
		{"cut at limit", long + "bc\n", []string{strings.Repeat("a", 8), "aabc"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got []string
			err := line.ReadLines(strings.NewReader(tc.input), 8, func(l string) { got = append(got, l) })
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("gone") }

type safeBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// stuckWriter blocks every write until release is closed.
type stuckWriter struct{ release chan struct{} }

func (s stuckWriter) Write([]byte) (int, error) {
	<-s.release
	return 0, errors.New("released")
}

func TestHubDropsFailingPeers(t *testing.T) {
	hub := line.NewHub(slog.New(slog.DiscardHandler))
	var a, b safeBuffer
	hub.Attach("a", &a, nil)
	detachB := hub.Attach("b", &b, nil)
	dropped := make(chan struct{})
	hub.Attach("bad", failingWriter{}, func() { close(dropped) })
	require.Equal(t, 3, hub.Peers())

	n, err := hub.Write([]byte("M1\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	select {
	case <-dropped:
	case <-time.After(2 * time.Second):
		t.Fatal("failing peer not dropped")
	}
	assert.Equal(t, 2, hub.Peers())

	require.Eventually(t, func() bool { return b.String() == "M1\n" }, 2*time.Second, 5*time.Millisecond)
	detachB()
	_, _ = hub.Write([]byte("M2\n"))
	hub.Close()
	assert.Equal(t, "M1\nM2\n", a.String())
	assert.Equal(t, "M1\n", b.String())
	assert.Zero(t, hub.Peers())
}

func TestHubSlowPeerDoesNotStallOthers(t *testing.T) {
	hub := line.NewHub(slog.New(slog.DiscardHandler))
	var fast safeBuffer
	hub.Attach("fast", &fast, nil)
	stuck := stuckWriter{release: make(chan struct{})}
	dropped := make(chan struct{})
	hub.Attach("stuck", stuck, func() { close(dropped) })

	// One frame sits in the blocked write, PeerQueue more fill the queue, the
	// next one overflows it.
	frames := line.PeerQueue + 2
	for i := 0; i < frames; i++ {
		done := make(chan struct{})
		go func() {
			_, _ = hub.Write([]byte("F\n"))
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("write %d blocked", i)
		}
		want := strings.Repeat("F\n", i+1)
		require.Eventually(t, func() bool { return fast.String() == want }, 2*time.Second, time.Millisecond)
	}

	select {
	case <-dropped:
	case <-time.After(2 * time.Second):
		t.Fatal("stuck peer not dropped")
	}
	assert.Equal(t, 1, hub.Peers())

	close(stuck.release)
	hub.Close()
	assert.Equal(t, strings.Repeat("F\n", frames), fast.String())
}

func TestServerRoundTrip(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	hub := line.NewHub(logger)
	sink := newCollector()
	srv := line.New(line.ServerConfig{Addr: "127.0.0.1:0", WriteTimeout: time.Second}, hub, sink, logger)
	require.NoError(t, srv.Start())
	defer srv.Close()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("?\r\n$get btns\n"))
	require.NoError(t, err)
	assert.Equal(t, "?", sink.next(t))
	assert.Equal(t, "$get btns", sink.next(t))

	require.Eventually(t, func() bool { return hub.Peers() == 1 }, 2*time.Second, 10*time.Millisecond)
	_, _ = hub.Write([]byte("?00010000\n"))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reply, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "?00010000\n", reply)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Peers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServerRequiresKey(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	guard, err := auth.NewGuard("cabinet", true)
	require.NoError(t, err)
	hub := line.NewHub(logger)
	sink := newCollector()
	srv := line.New(line.ServerConfig{Addr: "127.0.0.1:0", WriteTimeout: time.Second, Guard: guard}, hub, sink, logger)
	require.NoError(t, srv.Start())
	defer srv.Close()

	plain, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer plain.Close()
	_ = plain.SetDeadline(time.Now().Add(2 * time.Second))
	_, err = plain.Write([]byte("?\n"))
	require.NoError(t, err)
	reply, _ := io.ReadAll(plain)
	assert.Equal(t, "NO\x00", string(reply))
	assert.Zero(t, hub.Peers())

	raw, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	conn, err := auth.Secure(raw, "cabinet", 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("V\n"))
	require.NoError(t, err)
	assert.Equal(t, "V", sink.next(t))

	require.Eventually(t, func() bool { return hub.Peers() == 1 }, 2*time.Second, 10*time.Millisecond)
	_, _ = hub.Write([]byte("V1.0\n"))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "V1.0\n", got)
	assert.Equal(t, []string{"V"}, sink.lines)
}

func TestTTYOnPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tty")
	require.NoError(t, os.WriteFile(path, []byte("V\nU\n"), 0o600))

	logger := slog.New(slog.DiscardHandler)
	tty, err := line.OpenTTY(path, logger)
	require.NoError(t, err)
	defer tty.Close()

	sink := newCollector()
	require.NoError(t, tty.Serve(line.NewHub(logger), sink))
	assert.Equal(t, []string{"V", "U"}, sink.lines)
	assert.NoError(t, tty.Close())
	assert.NoError(t, tty.Close())
}

func TestOpenTTYMissing(t *testing.T) {
	_, err := line.OpenTTY(filepath.Join(t.TempDir(), "nope"), slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}
