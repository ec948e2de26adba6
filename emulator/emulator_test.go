package emulator

import (
	"bufio"
	"io"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-lxi/logger"
)

func TestMain(m *testing.M) {
	level, err := logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logger.InfoLevel
	}
	logger.SetLevel(level)

	os.Exit(m.Run())
}

func startEmulator(t *testing.T, opts ...Option) *Emulator {
	t.Helper()

	emu, err := New("127.0.0.1:0", opts...)
	require.NoError(t, err)
	emu.Start()
	t.Cleanup(func() { _ = emu.Close() })

	return emu
}

func dialEmulator(t *testing.T, emu *Emulator) (net.Conn, *bufio.Reader) {
	t.Helper()

	conn, err := net.DialTimeout("tcp", emu.Addr().String(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	return conn, bufio.NewReader(conn)
}

func TestEmulator_DefaultReplies(t *testing.T) {
	require := require.New(t)

	emu := startEmulator(t)
	conn, reader := dialEmulator(t, emu)

	_, err := conn.Write([]byte("*IDN?\r\n"))
	require.NoError(err)
	line, err := reader.ReadString('\n')
	require.NoError(err)
	require.Equal("Emulator\r\n", line)

	_, err = conn.Write([]byte("DATA?\r\n"))
	require.NoError(err)
	block := make([]byte, 9)
	_, err = io.ReadFull(reader, block)
	require.NoError(err)
	require.Equal([]byte{'#', '1', '4', 0x00, 0xFF, 0x0A, 0x80, '\r', '\n'}, block)

	_, err = conn.Write([]byte("FOO\r\n"))
	require.NoError(err)
	line, err = reader.ReadString('\n')
	require.NoError(err)
	require.Equal("Error\r\n", line)

	require.Equal(uint64(3), emu.Served())
}

func TestEmulator_MultipleClients(t *testing.T) {
	require := require.New(t)

	emu := startEmulator(t)
	connA, readerA := dialEmulator(t, emu)
	connB, readerB := dialEmulator(t, emu)

	require.Eventually(func() bool { return emu.Clients() == 2 }, time.Second, 10*time.Millisecond)

	_, err := connB.Write([]byte("*IDN?\n"))
	require.NoError(err)
	_, err = connA.Write([]byte("*IDN?\n"))
	require.NoError(err)

	for _, reader := range []*bufio.Reader{readerA, readerB} {
		line, err := reader.ReadString('\n')
		require.NoError(err)
		require.Equal("Emulator\r\n", line)
	}

	require.NoError(connA.Close())
	require.Eventually(func() bool { return emu.Clients() == 1 }, time.Second, 10*time.Millisecond)
}

func TestEmulator_SilentReply(t *testing.T) {
	require := require.New(t)

	table := NewTable(TextReply("Error")).Add("WAIT?", nil)
	emu := startEmulator(t, WithResponder(table))
	conn, reader := dialEmulator(t, emu)

	_, err := conn.Write([]byte("WAIT?\r\n*IDN?\r\n"))
	require.NoError(err)

	// the first command gets no reply, so the first line belongs to the second
	line, err := reader.ReadString('\n')
	require.NoError(err)
	require.Equal("Error\r\n", line)
	require.Equal(uint64(1), emu.Served())
}

func TestEmulator_ResponderFunc(t *testing.T) {
	require := require.New(t)

	echo := ResponderFunc(func(cmd []byte) []byte {
		return TextReply(string(cmd))
	})
	emu := startEmulator(t, WithResponder(echo))
	conn, reader := dialEmulator(t, emu)

	_, err := conn.Write([]byte("MEAS:VOLT?\r\n"))
	require.NoError(err)
	line, err := reader.ReadString('\n')
	require.NoError(err)
	require.Equal("MEAS:VOLT?\r\n", line)
}

func TestEmulator_DisconnectClients(t *testing.T) {
	require := require.New(t)

	emu := startEmulator(t)
	_, reader := dialEmulator(t, emu)
	require.Eventually(func() bool { return emu.Clients() == 1 }, time.Second, 10*time.Millisecond)

	emu.DisconnectClients()

	_, err := reader.ReadByte()
	require.Error(err)
	require.Eventually(func() bool { return emu.Clients() == 0 }, time.Second, 10*time.Millisecond)

	// still accepting
	conn, reader := dialEmulator(t, emu)
	_, err = conn.Write([]byte("*IDN?\r\n"))
	require.NoError(err)
	line, err := reader.ReadString('\n')
	require.NoError(err)
	require.Equal("Emulator\r\n", line)
}

func TestEmulator_Close(t *testing.T) {
	require := require.New(t)

	emu, err := New("127.0.0.1:0")
	require.NoError(err)
	emu.Start()
	emu.Start()

	_, reader := dialEmulator(t, emu)
	require.Eventually(func() bool { return emu.Clients() == 1 }, time.Second, 10*time.Millisecond)

	for range 3 {
		require.NoError(emu.Close())
	}

	_, err = reader.ReadByte()
	require.Error(err)
	require.Equal(0, emu.Clients())

	_, err = net.DialTimeout("tcp", emu.Addr().String(), 200*time.Millisecond)
	require.Error(err)
}

func TestEmulator_Serve(t *testing.T) {
	require := require.New(t)

	emu, err := New("127.0.0.1:0")
	require.NoError(err)
	require.Equal("127.0.0.1", emu.Host())
	require.NotZero(emu.Port())

	done := make(chan error, 1)
	go func() { done <- emu.Serve() }()

	conn, reader := dialEmulator(t, emu)
	_, err = conn.Write([]byte("*IDN?\r\n"))
	require.NoError(err)
	line, err := reader.ReadString('\n')
	require.NoError(err)
	require.Equal("Emulator\r\n", line)

	require.Error(emu.Serve())

	require.NoError(emu.Close())
	select {
	case err := <-done:
		require.NoError(err)
	case <-time.After(2 * time.Second):
		require.Fail("Serve did not return after Close")
	}
}

func TestEmulator_ServeAfterClose(t *testing.T) {
	require := require.New(t)

	emu, err := New("127.0.0.1:0")
	require.NoError(err)
	require.NoError(emu.Close())

	done := make(chan error, 1)
	go func() { done <- emu.Serve() }()

	select {
	case err := <-done:
		require.NoError(err)
	case <-time.After(2 * time.Second):
		require.Fail("Serve blocked on a closed emulator")
	}
}

func TestEmulator_ServeCloseWithClients(t *testing.T) {
	require := require.New(t)

	for range 20 {
		emu, err := New("127.0.0.1:0")
		require.NoError(err)

		done := make(chan error, 1)
		go func() { done <- emu.Serve() }()

		var wg sync.WaitGroup
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				conn, err := net.DialTimeout("tcp", emu.Addr().String(), time.Second)
				if err == nil {
					_, _ = conn.Write([]byte("*IDN?\r\n"))
					_ = conn.Close()
				}
			}()
		}

		require.NoError(emu.Close())
		wg.Wait()

		select {
		case err := <-done:
			require.NoError(err)
		case <-time.After(2 * time.Second):
			require.Fail("Serve did not return after Close")
		}
		require.Zero(emu.Clients())
	}
}

func TestNew_InvalidAddr(t *testing.T) {
	_, err := New("256.0.0.1:bogus")
	require.Error(t, err)
}
