package emulator

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-lxi/frame"
	"github.com/arloliu/go-lxi/logger"
)

// Emulator is a TCP server answering instrument commands with canned replies.
type Emulator struct {
	listener  net.Listener
	responder Responder
	logger    logger.Logger

	clients *xsync.MapOf[uint64, net.Conn]
	nextID  atomic.Uint64
	served  atomic.Uint64

	// mu orders the accept loop joining wg against Close marking the emulator closed.
	mu        sync.Mutex
	wg        sync.WaitGroup
	started   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
}

// Option configures an Emulator.
type Option func(*Emulator)

// WithResponder sets the reply source. The default is DefaultTable().
func WithResponder(r Responder) Option {
	return func(e *Emulator) {
		if r != nil {
			e.responder = r
		}
	}
}

// WithLogger sets the logger of the emulator. The default is the global logger instance.
func WithLogger(l logger.Logger) Option {
	return func(e *Emulator) {
		if l != nil {
			e.logger = l
		}
	}
}

// New binds a TCP listener on addr, e.g. "127.0.0.1:0" for an ephemeral port.
// The emulator does not accept connections until Start or Serve is called.
func New(addr string, opts ...Option) (*Emulator, error) {
	e := &Emulator{
		responder: DefaultTable(),
		logger:    logger.GetLogger(),
		clients:   xsync.NewMapOf[uint64, net.Conn](),
	}

	for _, opt := range opts {
		opt(e)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("emulator: listen %s: %w", addr, err)
	}
	e.listener = listener
	e.logger = e.logger.With("emulator", listener.Addr().String())

	return e, nil
}

// Addr returns the bound listener address.
func (e *Emulator) Addr() net.Addr { return e.listener.Addr() }

// Host returns the IP the emulator listens on.
func (e *Emulator) Host() string {
	if tcpAddr, ok := e.listener.Addr().(*net.TCPAddr); ok {
		return tcpAddr.IP.String()
	}

	host, _, _ := net.SplitHostPort(e.listener.Addr().String())

	return host
}

// Port returns the TCP port the emulator listens on.
func (e *Emulator) Port() int {
	if tcpAddr, ok := e.listener.Addr().(*net.TCPAddr); ok {
		return tcpAddr.Port
	}

	return 0
}

// Clients returns the number of connected clients.
func (e *Emulator) Clients() int { return e.clients.Size() }

// Served returns the number of replies written since the emulator started.
func (e *Emulator) Served() uint64 { return e.served.Load() }

// Start runs Serve in a background goroutine. Calling Start more than once has no effect.
func (e *Emulator) Start() {
	if !e.started.CompareAndSwap(false, true) {
		return
	}

	if !e.track() {
		return
	}

	go func() {
		defer e.wg.Done()
		if err := e.serve(); err != nil {
			e.logger.Error("accept loop stopped", "method", "Start", "error", err)
		}
	}()
}

// Serve accepts clients until Close is called. It returns nil after Close, right away when
// Close already ran.
func (e *Emulator) Serve() error {
	if !e.started.CompareAndSwap(false, true) {
		return errors.New("emulator: already serving")
	}

	if !e.track() {
		return nil
	}
	defer e.wg.Done()

	return e.serve()
}

// track counts the accept loop in wg unless the emulator is closed.
func (e *Emulator) track() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return false
	}
	e.wg.Add(1)

	return true
}

func (e *Emulator) serve() error {
	e.logger.Debug("emulator listening", "method", "serve")

	for {
		conn, err := e.listener.Accept()
		if err != nil {
			if e.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}

			return fmt.Errorf("emulator: accept: %w", err)
		}

		id := e.nextID.Add(1)
		e.clients.Store(id, conn)

		// Close may have swept the registry between Accept and Store.
		if e.closed.Load() {
			e.clients.Delete(id)
			_ = conn.Close()

			return nil
		}

		e.wg.Add(1)
		go e.handleClient(id, conn)
	}
}

func (e *Emulator) handleClient(id uint64, conn net.Conn) {
	defer e.wg.Done()
	defer func() {
		e.clients.Delete(id)
		_ = conn.Close()
		e.logger.Debug("client disconnected", "method", "handleClient", "client_id", id)
	}()

	e.logger.Debug("client connected", "method", "handleClient", "client_id", id, "remote_addr", conn.RemoteAddr().String())

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}

		cmd := frame.TrimTerminator(line)
		reply := e.responder.Respond(cmd)
		if len(reply) == 0 {
			e.logger.Debug("command left unanswered", "method", "handleClient", "client_id", id, "cmd", string(cmd))
			continue
		}

		if _, err := conn.Write(reply); err != nil {
			e.logger.Debug("failed to write reply", "method", "handleClient", "client_id", id, "error", err)
			return
		}
		e.served.Add(1)
	}
}

// DisconnectClients closes every connected client socket while the emulator keeps accepting
// new clients. It simulates an instrument dropping its sessions.
func (e *Emulator) DisconnectClients() {
	e.clients.Range(func(_ uint64, conn net.Conn) bool {
		_ = conn.Close()
		return true
	})
}

// Close stops accepting, closes all client sockets and waits for every goroutine of the
// emulator to exit.
func (e *Emulator) Close() error {
	var err error

	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed.Store(true)
		e.mu.Unlock()

		err = e.listener.Close()
		e.DisconnectClients()
		e.wg.Wait()
		e.logger.Debug("emulator closed", "method", "Close", "served", e.served.Load())
	})

	return err
}
