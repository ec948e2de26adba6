package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-lxi/emulator"
	"github.com/arloliu/go-lxi/frame"
	"github.com/arloliu/go-lxi/lxi"
)

func startEmulator(t *testing.T) *emulator.Emulator {
	t.Helper()

	emu, err := emulator.New("127.0.0.1:0", emulator.WithResponder(emulator.DefaultTable().Add("WAIT?", nil)))
	require.NoError(t, err)
	emu.Start()
	t.Cleanup(func() { _ = emu.Close() })

	return emu
}

func executeCommand(ctx context.Context, args ...string) (string, string, error) {
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)

	root := NewRootCmd()
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)

	return stdout.String(), stderr.String(), err
}

func targetArgs(emu *emulator.Emulator) []string {
	return []string{"--host", emu.Host(), "--port", strconv.Itoa(emu.Port())}
}

func TestQueryCommand(t *testing.T) {
	require := require.New(t)

	emu := startEmulator(t)
	ctx := context.Background()

	out, _, err := executeCommand(ctx, append([]string{"query", "*IDN?"}, targetArgs(emu)...)...)
	require.NoError(err)
	require.Equal("Emulator\n", out)

	out, _, err = executeCommand(ctx, append([]string{"query", "-o", "hex", "DATA?"}, targetArgs(emu)...)...)
	require.NoError(err)
	require.Equal("00ff0a80\n", out)

	out, _, err = executeCommand(ctx, append([]string{"query", "-o", "yaml", "DATA?"}, targetArgs(emu)...)...)
	require.NoError(err)
	require.Equal("kind: binary\nlength: 4\nhex: 00ff0a80\n", out)

	out, _, err = executeCommand(ctx, append([]string{"query", "DATA?"}, targetArgs(emu)...)...)
	require.NoError(err)
	require.True(strings.HasPrefix(out, "binary(4 bytes)\n"))
}

func TestQueryCommand_JoinsArgs(t *testing.T) {
	require := require.New(t)

	echo := emulator.ResponderFunc(func(cmd []byte) []byte { return emulator.TextReply(string(cmd)) })
	emu, err := emulator.New("127.0.0.1:0", emulator.WithResponder(echo))
	require.NoError(err)
	emu.Start()
	t.Cleanup(func() { _ = emu.Close() })

	out, _, err := executeCommand(context.Background(), append([]string{"query", "MEAS:VOLT?", "DEF,", "MIN"}, targetArgs(emu)...)...)
	require.NoError(err)
	require.Equal("MEAS:VOLT? DEF, MIN\n", out)
}

func TestQueryCommand_Timeout(t *testing.T) {
	emu := startEmulator(t)

	_, _, err := executeCommand(context.Background(), append([]string{"query", "--timeout", "50ms", "WAIT?"}, targetArgs(emu)...)...)
	require.ErrorIs(t, err, lxi.ErrTimeout)
}

func TestQueryCommand_Errors(t *testing.T) {
	ctx := context.Background()

	_, _, err := executeCommand(ctx, "query", "*IDN?")
	require.ErrorContains(t, err, "--host")

	_, _, err = executeCommand(ctx, "query")
	require.Error(t, err)

	_, _, err = executeCommand(ctx, "query", "--host", "127.0.0.1", "-o", "json", "*IDN?")
	require.ErrorContains(t, err, "output format")

	_, _, err = executeCommand(ctx, "query", "--host", "127.0.0.1", "--log-level", "loud", "*IDN?")
	require.Error(t, err)

	_, _, err = executeCommand(ctx, "query", "--device", "scope", "*IDN?")
	require.ErrorContains(t, err, "unknown device profile")
}

func TestSendCommand(t *testing.T) {
	require := require.New(t)

	received := make(chan string, 1)
	recorder := emulator.ResponderFunc(func(cmd []byte) []byte {
		received <- string(cmd)
		return nil
	})
	emu, err := emulator.New("127.0.0.1:0", emulator.WithResponder(recorder))
	require.NoError(err)
	emu.Start()
	t.Cleanup(func() { _ = emu.Close() })

	out, _, err := executeCommand(context.Background(), append([]string{"send", "*RST"}, targetArgs(emu)...)...)
	require.NoError(err)
	require.Empty(out)

	select {
	case cmd := <-received:
		require.Equal("*RST", cmd)
	case <-time.After(2 * time.Second):
		require.Fail("command not received")
	}
}

func TestDeviceProfile(t *testing.T) {
	require := require.New(t)

	emu := startEmulator(t)

	cfgFile := filepath.Join(t.TempDir(), "lxictl.yaml")
	content := "devices:\n  emu:\n    host: " + emu.Host() + "\n    port: " + strconv.Itoa(emu.Port()) + "\n    timeout_ms: 1000\n"
	require.NoError(os.WriteFile(cfgFile, []byte(content), 0o600))

	out, _, err := executeCommand(context.Background(), "--config", cfgFile, "--device", "emu", "query", "*IDN?")
	require.NoError(err)
	require.Equal("Emulator\n", out)

	// a flag overrides the profile
	_, _, err = executeCommand(context.Background(), "--config", cfgFile, "--device", "emu", "--port", "1", "query", "*IDN?")
	require.ErrorIs(err, lxi.ErrConnectFailed)
}

func TestEmulateCommand(t *testing.T) {
	require := require.New(t)

	cfgFile := filepath.Join(t.TempDir(), "lxictl.yaml")
	content := "emulator:\n  responses:\n    - match: \"*IDN?\"\n      text: \"ACME,DMM\"\n"
	require.NoError(os.WriteFile(cfgFile, []byte(content), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	var (
		out string
		err error
	)
	go func() {
		defer close(done)
		out, _, err = executeCommand(ctx, "--config", cfgFile, "emulate", "--listen", "127.0.0.1:0")
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.Fail("emulate did not stop")
	}

	require.NoError(err)
	require.Contains(out, "emulator listening on 127.0.0.1:")
	require.Contains(out, "emulator stopped, 0 replies served")
}

func TestVersionCommand(t *testing.T) {
	out, _, err := executeCommand(context.Background(), "version")
	require.NoError(t, err)
	require.Contains(t, out, "lxictl version "+version)
}

func TestFormatReply(t *testing.T) {
	require := require.New(t)

	out, err := formatReply(frame.Text([]byte("1.25E+00")), outputText)
	require.NoError(err)
	require.Equal("1.25E+00\n", out)

	out, err = formatReply(frame.Text([]byte("OK")), outputHex)
	require.NoError(err)
	require.Equal("4f4b\n", out)

	out, err = formatReply(frame.Text([]byte("OK")), outputYAML)
	require.NoError(err)
	require.Equal("kind: text\nlength: 2\ntext: OK\n", out)

	out, err = formatReply(frame.Binary([]byte{0x01, 0x02}), outputText)
	require.NoError(err)
	require.Contains(out, "binary(2 bytes)\n")
	require.Contains(out, "01 02")
}
