package lxi

import (
	"bufio"
	"io"
	"net"
	"sync/atomic"
	"time"
)

// half carries the timeout of one direction of the socket.
//
// Go sockets have absolute deadlines, so the timeout is re-armed before every underlying
// Read or Write: it bounds each wait for the peer, not the whole frame.
type half struct {
	timeout     atomic.Int64
	setDeadline func(time.Time) error
}

// Timeout returns the timeout currently applied to this half.
func (h *half) Timeout() time.Duration {
	return time.Duration(h.timeout.Load())
}

// setTimeout stores d and applies it to the socket right away. It fails only when the socket
// is already closed.
func (h *half) setTimeout(d time.Duration) error {
	h.timeout.Store(int64(d))
	if d == 0 {
		return h.setDeadline(time.Time{})
	}

	return h.setDeadline(time.Now().Add(d))
}

func (h *half) arm() error {
	if d := h.Timeout(); d > 0 {
		return h.setDeadline(time.Now().Add(d))
	}

	return nil
}

type readHalf struct {
	half
	r io.Reader
	n int64 // bytes read from the socket
}

func (h *readHalf) Read(p []byte) (int, error) {
	if err := h.arm(); err != nil {
		return 0, err
	}

	n, err := h.r.Read(p)
	h.n += int64(n)

	return n, err
}

type writeHalf struct {
	half
	w io.Writer
}

func (h *writeHalf) Write(p []byte) (int, error) {
	if err := h.arm(); err != nil {
		return 0, err
	}

	return h.w.Write(p)
}

// transport is the live connection of a Device: one socket split into a buffered read half
// and a buffered write half with independent timeouts.
type transport struct {
	conn   net.Conn
	rd     *readHalf
	wr     *writeHalf
	reader *bufio.Reader
	writer *bufio.Writer

	// desynced is set once a failed receive has consumed part of a frame. The reader no
	// longer sits on a frame boundary and stays unusable until the transport is replaced.
	desynced atomic.Bool
}

func newTransport(conn net.Conn, timeout time.Duration) (*transport, error) {
	tr := &transport{
		conn: conn,
		rd:   &readHalf{half: half{setDeadline: conn.SetReadDeadline}, r: conn},
		wr:   &writeHalf{half: half{setDeadline: conn.SetWriteDeadline}, w: conn},
	}
	tr.reader = bufio.NewReader(tr.rd)
	tr.writer = bufio.NewWriter(tr.wr)

	if err := tr.rd.setTimeout(timeout); err != nil {
		return nil, err
	}
	if err := tr.wr.setTimeout(timeout); err != nil {
		return nil, err
	}

	return tr, nil
}

// consumed returns the number of bytes handed out by the buffered reader so far.
func (tr *transport) consumed() int64 {
	return tr.rd.n - int64(tr.reader.Buffered())
}

// writeFrame writes payload and the terminator, then flushes.
//
// After a failure the unflushed bytes are discarded so the next frame starts clean locally;
// what already reached the peer is unknown.
func (tr *transport) writeFrame(payload []byte, terminator string) error {
	_, err := tr.writer.Write(payload)
	if err == nil {
		_, err = tr.writer.WriteString(terminator)
	}
	if err == nil {
		err = tr.writer.Flush()
	}

	if err != nil {
		tr.writer.Reset(tr.wr)
	}

	return err
}

// shutdown half-closes the write side, then closes the socket. Any goroutine blocked in a
// read or write on the socket returns with net.ErrClosed.
func (tr *transport) shutdown() error {
	if tcpConn, ok := tr.conn.(*net.TCPConn); ok {
		_ = tcpConn.CloseWrite()
	}

	return tr.conn.Close()
}
