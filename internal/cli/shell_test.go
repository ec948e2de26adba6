package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-lxi/lxi"
)

func newTestSession(t *testing.T) (*shellSession, *bytes.Buffer) {
	t.Helper()

	emu := startEmulator(t)

	cfg, err := lxi.NewDeviceConfig(emu.Host(), emu.Port(), lxi.WithTimeout(time.Second))
	require.NoError(t, err)
	dev, err := lxi.NewDevice(cfg)
	require.NoError(t, err)
	require.NoError(t, dev.Connect(context.Background()))
	t.Cleanup(func() { _ = dev.Close() })

	out := new(bytes.Buffer)

	return &shellSession{ctx: context.Background(), dev: dev, out: out, format: outputText}, out
}

func TestShellSession_QueryAndSend(t *testing.T) {
	require := require.New(t)

	sess, out := newTestSession(t)

	require.False(sess.exec("  *IDN?  "))
	require.Equal("Emulator\n", out.String())

	out.Reset()
	require.False(sess.exec("*RST"))
	require.Empty(out.String())

	// *RST was answered with "Error" because the emulator replies to everything
	require.False(sess.exec("DATA?"))
	require.Contains(out.String(), "Error")

	out.Reset()
	require.False(sess.exec(""))
	require.Empty(out.String())
}

func TestShellSession_Meta(t *testing.T) {
	require := require.New(t)

	sess, out := newTestSession(t)

	require.False(sess.exec(":timeout 250ms"))
	require.Equal(250*time.Millisecond, sess.dev.Timeout())

	require.False(sess.exec(":timeout"))
	require.Contains(out.String(), "timeout=250ms")

	out.Reset()
	require.False(sess.exec(":timeout soon"))
	require.Contains(out.String(), "error:")
	require.Equal(250*time.Millisecond, sess.dev.Timeout())

	out.Reset()
	require.False(sess.exec("WAIT?"))
	require.Contains(out.String(), "timeout")

	out.Reset()
	require.False(sess.exec(":status"))
	require.Contains(out.String(), "Connected")
	require.Contains(out.String(), "timeouts=1")

	out.Reset()
	require.False(sess.exec(":reconnect"))
	require.Contains(out.String(), "connected to "+sess.dev.Addr())

	out.Reset()
	require.False(sess.exec(":bogus"))
	require.Contains(out.String(), "unknown meta command")

	out.Reset()
	require.False(sess.exec(":help"))
	require.Contains(out.String(), ":reconnect")

	require.True(sess.exec(":quit"))
	require.True(sess.exec(":q"))
}

func TestShellSession_ReconnectWhenDisconnected(t *testing.T) {
	require := require.New(t)

	sess, out := newTestSession(t)
	require.NoError(sess.dev.Disconnect())

	require.False(sess.exec("*IDN?"))
	require.Contains(out.String(), "not connected")

	out.Reset()
	require.False(sess.exec(":reconnect"))
	require.True(sess.dev.IsConnected())

	out.Reset()
	require.False(sess.exec("*IDN?"))
	require.Equal("Emulator\n", out.String())
}
