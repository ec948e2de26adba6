package lxi

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"

	"github.com/arloliu/go-lxi/frame"
)

var (
	// ErrAlreadyConnected indicates Connect was called on a device that already holds
	// (or is establishing) a connection. The existing connection is left untouched.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrNotConnected indicates an operation that needs a live connection was called on a
	// disconnected device.
	ErrNotConnected = errors.New("not connected")

	// ErrAddressResolution indicates the device host could not be resolved.
	ErrAddressResolution = errors.New("address resolution failed")

	// ErrConnectFailed indicates the TCP connection could not be established.
	ErrConnectFailed = errors.New("connect failed")

	// ErrTimeout indicates a configured timeout elapsed while connecting, sending or receiving.
	ErrTimeout = errors.New("timeout")

	// ErrConnectionClosed indicates the connection was closed, by the peer or by Disconnect,
	// before a complete reply was read.
	ErrConnectionClosed = frame.ErrConnectionClosed

	// ErrMalformedFrame indicates the reply violates the framing grammar.
	ErrMalformedFrame = frame.ErrMalformedFrame

	// ErrDesync indicates an earlier receive failed in the middle of a frame, so the stream
	// position is lost. Every later receive fails with it until Reconnect.
	ErrDesync = errors.New("stream out of sync, reconnect required")

	// ErrDeviceClosed indicates Close was called while Connect was in progress. The new
	// connection is discarded.
	ErrDeviceClosed = errors.New("device closed")

	// ErrIO indicates any other transport failure.
	ErrIO = errors.New("i/o error")
)

var (
	// ErrDeviceConfigNil indicates that a nil DeviceConfig was provided.
	ErrDeviceConfigNil = errors.New("device config is nil")

	// ErrInvalidTimeout indicates a negative timeout.
	ErrInvalidTimeout = errors.New("invalid timeout, should not be negative")
)

// Operation names reported in OpError.Op.
const (
	OpConnect        = "connect"
	OpDisconnect     = "disconnect"
	OpSend           = "send"
	OpReceive        = "receive"
	OpDecode         = "decode"
	OpSetTimeout     = "set timeout"
	OpRestoreTimeout = "restore timeout"
)

// OpError is the error type returned by Device operations.
//
// It unwraps to both Kind and Err, so errors.Is(err, lxi.ErrTimeout) and
// errors.As(err, &netErr) work on the same value.
type OpError struct {
	// Op is the phase that failed, one of the Op* constants.
	Op string
	// Addr is the device endpoint.
	Addr string
	// Kind is one of the sentinel errors of this package.
	Kind error
	// Err is the underlying cause, nil when Kind says everything.
	Err error
}

func (e *OpError) Error() string {
	s := "lxi: " + e.Op
	if e.Addr != "" {
		s += " " + e.Addr
	}

	switch {
	case e.Err == nil:
		return s + ": " + e.Kind.Error()
	case errors.Is(e.Err, e.Kind):
		return s + ": " + e.Err.Error()
	default:
		return s + ": " + e.Kind.Error() + ": " + e.Err.Error()
	}
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// Timeout reports whether the operation failed because a timeout elapsed.
func (e *OpError) Timeout() bool { return e.Kind == ErrTimeout }

// isTimeout reports whether err is a deadline or dial timeout.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

// sendKind classifies a write or flush failure.
func sendKind(err error) error {
	if isTimeout(err) {
		return ErrTimeout
	}

	return ErrIO
}

// receiveKind classifies a decode failure. Decoders report framing problems themselves;
// anything else is a transport error.
func receiveKind(err error) error {
	switch {
	case errors.Is(err, frame.ErrMalformedFrame):
		return ErrMalformedFrame
	case errors.Is(err, frame.ErrConnectionClosed):
		return ErrConnectionClosed
	case isTimeout(err):
		return ErrTimeout
	case errors.Is(err, net.ErrClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET):
		return ErrConnectionClosed
	default:
		return ErrIO
	}
}

// deadlineKind classifies a failure to apply a deadline, which only happens on a closed socket.
func deadlineKind(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return ErrConnectionClosed
	}

	return ErrIO
}
