package auth_test

import (
	"bytes"
	"io"
	"net"
	"testing"

	"github.com/Alia5/jammaio/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture is a net.Conn that only records what is written to it.
type capture struct {
	net.Conn
	buf bytes.Buffer
}

func (c *capture) Write(p []byte) (int, error) { return c.buf.Write(p) }

func sessionKey(t *testing.T) []byte {
	t.Helper()
	key, err := auth.DeriveKey("cabinet")
	require.NoError(t, err)
	return auth.DeriveSessionKey(key, []byte("server"), []byte("client"))
}

func sealed(t *testing.T, key []byte, lines ...string) []byte {
	t.Helper()
	out := &capture{}
	c, err := auth.WrapConn(out, nil, key, true)
	require.NoError(t, err)
	for _, l := range lines {
		n, err := c.Write([]byte(l))
		require.NoError(t, err)
		require.Equal(t, len(l), n)
	}
	return out.buf.Bytes()
}

func TestConn(t *testing.T) {
	key := sessionKey(t)
	wire := sealed(t, key, "?\n", "$get btns\n")
	assert.NotContains(t, string(wire), "btns", "payload is not sent in the clear")

	type testCase struct {
		name    string
		wire    []byte
		key     []byte
		client  bool
		want    string
		wantErr bool
	}
	otherKey := auth.DeriveSessionKey(key, []byte("x"), []byte("y"))
	firstLen := len(sealed(t, key, "?\n"))
	tampered := bytes.Clone(wire)
	tampered[len(tampered)-1] ^= 0x01
	cases := []testCase{
		{name: "in order", wire: wire, key: key, want: "?\n$get btns\n"},
		{name: "wrong key", wire: wire, key: otherKey, wantErr: true},
		{name: "own direction", wire: wire, key: key, client: true, wantErr: true},
		{name: "replayed packet", wire: append(bytes.Clone(wire[:firstLen]), wire[:firstLen]...), key: key, want: "?\n", wantErr: true},
		{name: "dropped packet", wire: wire[firstLen:], key: key, wantErr: true},
		{name: "tampered", wire: tampered, key: key, want: "?\n", wantErr: true},
		{name: "oversized header", wire: []byte{0xFF, 0xFF, 0xFF, 0xFF}, key: key, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := auth.WrapConn(nil, bytes.NewReader(tc.wire), tc.key, tc.client)
			require.NoError(t, err)
			var got []byte
			buf := make([]byte, 4)
			for {
				n, err := c.Read(buf)
				got = append(got, buf[:n]...)
				if err != nil {
					if tc.wantErr {
						assert.NotErrorIs(t, err, io.EOF, "the stream is refused, not just over")
					} else {
						t.Fatalf("unexpected error: %v", err)
					}
					break
				}
				if !tc.wantErr && len(got) == len(tc.want) {
					break
				}
			}
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestWrapConnRejectsBadKey(t *testing.T) {
	_, err := auth.WrapConn(nil, bytes.NewReader(nil), []byte("short"), false)
	assert.Error(t, err)
}
