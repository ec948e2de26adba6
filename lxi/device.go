package lxi

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-lxi/frame"
	"github.com/arloliu/go-lxi/logger"
)

// Device is a handle to one instrument endpoint. It holds zero or one live connection.
type Device struct {
	cfg     *DeviceConfig
	logger  logger.Logger
	decoder frame.Decoder

	// timeout is the persisted setting. It outlives connections and is never touched by
	// per-call overrides.
	timeout atomic.Int64

	state  atomicConnState
	connMu sync.Mutex // guards tr and closeGen
	tr     *transport

	// closeGen is bumped by Close. Connect discards its connection when it changed during
	// the dial.
	closeGen uint64

	dialContext func(ctx context.Context, network, address string) (net.Conn, error)

	// reqMu serializes frames on the wire. Disconnect never takes it, so it can interrupt a
	// blocked Send or Receive.
	reqMu sync.Mutex

	metrics DeviceMetrics
}

// NewDevice creates a disconnected Device for cfg.
func NewDevice(cfg *DeviceConfig) (*Device, error) {
	if cfg == nil {
		return nil, ErrDeviceConfigNil
	}

	d := &Device{
		cfg:     cfg,
		logger:  cfg.logger.With("device", cfg.Addr()),
		decoder: cfg.decoder,
	}
	d.timeout.Store(int64(cfg.timeout))

	dialer := &net.Dialer{KeepAlive: cfg.keepAlive}
	d.dialContext = dialer.DialContext

	return d, nil
}

// Config returns the configuration the device was created with.
func (d *Device) Config() *DeviceConfig { return d.cfg }

// Addr returns the device endpoint as "host:port".
func (d *Device) Addr() string { return d.cfg.Addr() }

// GetLogger returns the logger associated with the device.
func (d *Device) GetLogger() logger.Logger { return d.logger }

// Metrics returns the metrics of the device.
func (d *Device) Metrics() *DeviceMetrics { return &d.metrics }

// State returns the current connection state.
func (d *Device) State() ConnState { return d.state.Get() }

// IsConnected reports whether the device holds a live connection.
func (d *Device) IsConnected() bool { return d.state.IsConnected() }

// Timeout returns the persisted timeout. Per-call overrides never change it.
func (d *Device) Timeout() time.Duration { return time.Duration(d.timeout.Load()) }

// LocalAddr returns the local address of the live connection, or nil when disconnected.
func (d *Device) LocalAddr() net.Addr {
	if tr := d.transport(); tr != nil {
		return tr.conn.LocalAddr()
	}

	return nil
}

// RemoteAddr returns the remote address of the live connection, or nil when disconnected.
func (d *Device) RemoteAddr() net.Addr {
	if tr := d.transport(); tr != nil {
		return tr.conn.RemoteAddr()
	}

	return nil
}

// Connect resolves the device host and opens a TCP connection to the first address that
// accepts it.
//
// When a timeout is set it bounds the whole attempt, resolution and every dial included;
// otherwise Connect waits as long as ctx allows. The timeout is then applied to both halves
// of the connection.
//
// Connect fails with ErrAlreadyConnected, leaving the existing connection in place, when the
// device is not disconnected, and with ErrDeviceClosed when Close runs before the dial
// completes.
func (d *Device) Connect(ctx context.Context) error {
	if !d.state.toConnecting() {
		return d.opError(OpConnect, ErrAlreadyConnected, nil)
	}

	d.connMu.Lock()
	gen := d.closeGen
	d.connMu.Unlock()

	tr, err := d.dial(ctx)
	if err != nil {
		d.state.toDisconnected()
		d.metrics.incConnectErrCount()
		d.countTimeout(err)
		d.logger.Debug("failed to connect", "method", "Connect", "error", err)

		return err
	}

	d.connMu.Lock()
	if d.closeGen != gen {
		d.connMu.Unlock()
		_ = tr.shutdown()
		d.state.toDisconnected()
		d.logger.Debug("device closed while connecting", "method", "Connect")

		return d.opError(OpConnect, ErrDeviceClosed, nil)
	}
	d.tr = tr
	d.state.toConnected()
	d.connMu.Unlock()
	d.metrics.incConnectCount()

	d.logger.Debug("device connected",
		"method", "Connect",
		"local_addr", tr.conn.LocalAddr().String(),
		"remote_addr", tr.conn.RemoteAddr().String(),
		"timeout", d.Timeout(),
	)

	return nil
}

func (d *Device) dial(ctx context.Context) (*transport, error) {
	timeout := d.Timeout()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	addrs, err := net.DefaultResolver.LookupHost(ctx, d.cfg.host)
	if err != nil {
		kind := ErrAddressResolution
		if isTimeout(err) {
			kind = ErrTimeout
		}

		return nil, d.opError(OpConnect, kind, err)
	}

	port := strconv.Itoa(d.cfg.port)

	var lastErr error
	for _, addr := range addrs {
		conn, err := d.dialContext(ctx, "tcp", net.JoinHostPort(addr, port))
		if err != nil {
			lastErr = err
			continue
		}

		tr, err := newTransport(conn, timeout)
		if err != nil {
			_ = conn.Close()
			return nil, d.opError(OpConnect, ErrIO, err)
		}

		return tr, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no addresses")
		return nil, d.opError(OpConnect, ErrAddressResolution, lastErr)
	}

	kind := ErrConnectFailed
	if isTimeout(lastErr) {
		kind = ErrTimeout
	}

	return nil, d.opError(OpConnect, kind, lastErr)
}

// Disconnect releases the live connection. The socket is shut down and closed, so a Send or
// Receive blocked on it in another goroutine returns with an error.
//
// Disconnect fails with ErrNotConnected, without side effects, when there is no connection.
func (d *Device) Disconnect() error {
	if !d.state.toDisconnecting() {
		return d.opError(OpDisconnect, ErrNotConnected, nil)
	}

	d.connMu.Lock()
	tr := d.tr
	d.tr = nil
	d.connMu.Unlock()

	if err := tr.shutdown(); err != nil {
		d.logger.Debug("error while closing connection", "method", "Disconnect", "error", err)
	}

	d.state.toDisconnected()
	d.metrics.incDisconnectCount()
	d.logger.Debug("device disconnected", "method", "Disconnect")

	return nil
}

// Reconnect disconnects then connects again. It stops at the first failure; when the connect
// step fails the device is left disconnected.
func (d *Device) Reconnect(ctx context.Context) error {
	if err := d.Disconnect(); err != nil {
		return err
	}

	return d.Connect(ctx)
}

// Close disconnects the device if it is connected and aborts a Connect still in progress.
// It is safe to call more than once. The device may be connected again afterwards.
func (d *Device) Close() error {
	d.connMu.Lock()
	d.closeGen++
	d.connMu.Unlock()

	if err := d.Disconnect(); err != nil && !errors.Is(err, ErrNotConnected) {
		return err
	}

	return nil
}

// SetTimeout stores timeout as the device timeout and applies it to both halves of the live
// connection, if any. Zero disables timeouts.
func (d *Device) SetTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return d.opError(OpSetTimeout, ErrInvalidTimeout, nil)
	}

	d.timeout.Store(int64(timeout))

	tr := d.transport()
	if tr == nil {
		return nil
	}

	if err := errors.Join(tr.rd.setTimeout(timeout), tr.wr.setTimeout(timeout)); err != nil {
		return d.opError(OpSetTimeout, deadlineKind(err), err)
	}

	return nil
}

// Send writes payload followed by CR LF and flushes it.
//
// A failed Send leaves the stream in an unknown state; the caller may Reconnect.
func (d *Device) Send(payload []byte) error {
	d.reqMu.Lock()
	defer d.reqMu.Unlock()

	return d.send(payload)
}

// SendTimeout is Send with timeout applied to the write half for this call only.
func (d *Device) SendTimeout(payload []byte, timeout time.Duration) (err error) {
	d.reqMu.Lock()
	defer d.reqMu.Unlock()

	tr := d.transport()
	if tr == nil {
		return d.opError(OpSend, ErrNotConnected, nil)
	}

	guard, err := d.overrideTimeout(&tr.wr.half, timeout)
	if err != nil {
		return err
	}
	defer guard.restore(&err)

	return d.sendOn(tr, payload)
}

// Receive reads exactly one reply frame with the configured decoder.
func (d *Device) Receive() (frame.Response, error) {
	d.reqMu.Lock()
	defer d.reqMu.Unlock()

	return d.receive()
}

// ReceiveTimeout is Receive with timeout applied to the read half for this call only.
func (d *Device) ReceiveTimeout(timeout time.Duration) (resp frame.Response, err error) {
	d.reqMu.Lock()
	defer d.reqMu.Unlock()

	tr := d.transport()
	if tr == nil {
		return frame.Response{}, d.opError(OpReceive, ErrNotConnected, nil)
	}

	guard, err := d.overrideTimeout(&tr.rd.half, timeout)
	if err != nil {
		return frame.Response{}, err
	}
	defer guard.restore(&err)

	return d.receiveOn(tr)
}

// Query sends payload and reads its reply while holding the request lock, so concurrent
// queries on one device never interleave.
func (d *Device) Query(payload []byte) (frame.Response, error) {
	d.reqMu.Lock()
	defer d.reqMu.Unlock()

	tr := d.transport()
	if tr == nil {
		return frame.Response{}, d.opError(OpSend, ErrNotConnected, nil)
	}
	if err := d.checkSync(tr); err != nil {
		return frame.Response{}, err
	}

	if err := d.sendOn(tr, payload); err != nil {
		return frame.Response{}, err
	}

	return d.receiveOn(tr)
}

// QueryTimeout is Query with timeout applied to both halves for this call only.
func (d *Device) QueryTimeout(payload []byte, timeout time.Duration) (resp frame.Response, err error) {
	d.reqMu.Lock()
	defer d.reqMu.Unlock()

	tr := d.transport()
	if tr == nil {
		return frame.Response{}, d.opError(OpSend, ErrNotConnected, nil)
	}
	if err := d.checkSync(tr); err != nil {
		return frame.Response{}, err
	}

	wrGuard, err := d.overrideTimeout(&tr.wr.half, timeout)
	if err != nil {
		return frame.Response{}, err
	}
	defer wrGuard.restore(&err)

	rdGuard, err := d.overrideTimeout(&tr.rd.half, timeout)
	if err != nil {
		return frame.Response{}, err
	}
	defer rdGuard.restore(&err)

	if err := d.sendOn(tr, payload); err != nil {
		return frame.Response{}, err
	}

	return d.receiveOn(tr)
}

func (d *Device) send(payload []byte) error {
	tr := d.transport()
	if tr == nil {
		return d.opError(OpSend, ErrNotConnected, nil)
	}

	return d.sendOn(tr, payload)
}

func (d *Device) sendOn(tr *transport, payload []byte) error {
	d.metrics.incSendCount()

	if err := tr.writeFrame(payload, frame.Terminator); err != nil {
		d.metrics.incSendErrCount()
		opErr := d.opError(OpSend, sendKind(err), err)
		d.countTimeout(opErr)

		return opErr
	}

	return nil
}

func (d *Device) receive() (frame.Response, error) {
	tr := d.transport()
	if tr == nil {
		return frame.Response{}, d.opError(OpReceive, ErrNotConnected, nil)
	}

	return d.receiveOn(tr)
}

// receiveOn decodes one frame. A failure after part of the frame was consumed marks the
// transport desynced: a retry would start in the middle of that frame.
func (d *Device) receiveOn(tr *transport) (frame.Response, error) {
	if err := d.checkSync(tr); err != nil {
		return frame.Response{}, err
	}

	start := tr.consumed()
	resp, err := d.decoder.Decode(tr.reader)
	if err != nil {
		d.metrics.incRecvErrCount()

		if tr.consumed() != start {
			tr.desynced.Store(true)
			d.logger.Debug("receive failed inside a frame, stream out of sync",
				"method", "receiveOn", "consumed", tr.consumed()-start, "error", err)
		}

		kind := receiveKind(err)
		op := OpReceive
		if kind == ErrMalformedFrame {
			op = OpDecode
		}
		opErr := d.opError(op, kind, err)
		d.countTimeout(opErr)

		return frame.Response{}, opErr
	}

	d.metrics.incRecvCount(resp.IsBinary())

	return resp, nil
}

func (d *Device) checkSync(tr *transport) error {
	if tr.desynced.Load() {
		d.metrics.incRecvErrCount()
		return d.opError(OpReceive, ErrDesync, nil)
	}

	return nil
}

func (d *Device) transport() *transport {
	d.connMu.Lock()
	defer d.connMu.Unlock()

	return d.tr
}

func (d *Device) opError(op string, kind error, err error) *OpError {
	return &OpError{Op: op, Addr: d.cfg.Addr(), Kind: kind, Err: err}
}

func (d *Device) countTimeout(err error) {
	if errors.Is(err, ErrTimeout) {
		d.metrics.incTimeoutCount()
	}
}
