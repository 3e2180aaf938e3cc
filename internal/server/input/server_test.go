package input_test

import (
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/Alia5/jammaio/board"
	"github.com/Alia5/jammaio/internal/auth"
	"github.com/Alia5/jammaio/internal/server/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamFeedsLatestAndReturnsOutputs(t *testing.T) {
	latest := board.NewLatest()
	outs := board.NewOutputs()
	srv := input.New(input.ServerConfig{Addr: "127.0.0.1:0"}, latest, outs, slog.New(slog.DiscardHandler), nil)
	require.NoError(t, srv.Start())
	defer srv.Close()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	out := make([]byte, board.OutputFrameSize)
	_, err = io.ReadFull(conn, out)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 0}, out, "current outputs are sent on connect")

	want := board.RawState{Digital: 0x21, Analog: [4]uint16{1, 2, 3, 1023}}
	frame, err := want.MarshalBinary()
	require.NoError(t, err)
	_, err = conn.Write(frame)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return latest.Get() == want }, 2*time.Second, 5*time.Millisecond)

	outs.SetDigitalOutputs(0x05)
	_, err = io.ReadFull(conn, out)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05, 0, 0, 0, 0}, out)

	conn.Close()
	require.Eventually(t, func() bool { return latest.Get() == board.Idle() }, 2*time.Second, 5*time.Millisecond,
		"inputs are released when the feeder goes away")
}

func TestStreamRejectsAfterClose(t *testing.T) {
	srv := input.New(input.ServerConfig{Addr: "127.0.0.1:0"}, board.NewLatest(), nil, slog.New(slog.DiscardHandler), nil)
	require.NoError(t, srv.Start())
	addr := srv.Addr().String()
	srv.Close()

	_, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
	assert.Error(t, err)
}

func TestRejectedFeederLeavesInputsAlone(t *testing.T) {
	guard, err := auth.NewGuard("cabinet", true)
	require.NoError(t, err)
	latest := board.NewLatest()
	srv := input.New(input.ServerConfig{Addr: "127.0.0.1:0", Guard: guard}, latest, nil, slog.New(slog.DiscardHandler), nil)
	require.NoError(t, srv.Start())
	defer srv.Close()

	raw, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	feeder, err := auth.Secure(raw, "cabinet", 2*time.Second)
	require.NoError(t, err)
	defer feeder.Close()
	held := board.RawState{Digital: 0x80, Analog: [4]uint16{511, 511, 511, 511}}
	frame, err := held.MarshalBinary()
	require.NoError(t, err)
	_, err = feeder.Write(frame)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return latest.Get() == held }, 2*time.Second, 5*time.Millisecond)

	intruder, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer intruder.Close()
	_ = intruder.SetReadDeadline(time.Now().Add(2 * time.Second))
	idle, err := board.Idle().MarshalBinary()
	require.NoError(t, err)
	_, err = intruder.Write(idle)
	require.NoError(t, err)
	reply, _ := io.ReadAll(intruder)
	assert.Equal(t, "NO\x00", string(reply))
	assert.Equal(t, held, latest.Get(), "a rejected connection does not release the feeder's inputs")
}
