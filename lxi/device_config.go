package lxi

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/arloliu/go-lxi/frame"
	"github.com/arloliu/go-lxi/logger"
)

const (
	// DefaultPort is the SCPI raw socket port assigned by the LXI standard.
	DefaultPort = 5025

	// DefaultTimeout disables timeouts: connect, send and receive block until they finish.
	DefaultTimeout time.Duration = 0

	// DefaultKeepAlive is the TCP keep-alive period of the device socket.
	DefaultKeepAlive = 30 * time.Second
)

// DeviceConfig holds the endpoint and settings of a Device.
//
// The endpoint is fixed once the config is created; the timeout is only the initial value,
// Device.SetTimeout changes it afterwards.
type DeviceConfig struct {
	host string
	port int

	// timeout bounds the connect attempt and each read or write on the socket. Zero disables it.
	timeout time.Duration

	// keepAlive is passed to net.Dialer.KeepAlive. A negative value disables keep-alive.
	keepAlive time.Duration

	// decoder reads one reply frame per Receive.
	decoder frame.Decoder

	logger logger.Logger
}

// NewDeviceConfig creates a device configuration for the instrument at host:port.
//
// host may be an IP address or a host name; names are resolved on each Connect, not here.
// opts are functional options applied in order; see the With* functions.
func NewDeviceConfig(host string, port int, opts ...DeviceOption) (*DeviceConfig, error) {
	cfg := &DeviceConfig{
		timeout:   DefaultTimeout,
		keepAlive: DefaultKeepAlive,
		decoder:   frame.BlockDecoder{},
		logger:    logger.GetLogger(),
	}

	if err := cfg.setHost(host); err != nil {
		return nil, err
	}
	if err := cfg.setPort(port); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (cfg *DeviceConfig) setHost(host string) error {
	host = strings.TrimSpace(host)
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if host == "" {
		return errors.New("lxi: host is empty")
	}
	if strings.ContainsAny(host, " /\\") {
		return fmt.Errorf("lxi: invalid host %q", host)
	}
	cfg.host = host

	return nil
}

func (cfg *DeviceConfig) setPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("lxi: port %d out of range [1, 65535]", port)
	}
	cfg.port = port

	return nil
}

// Host returns the configured host.
func (cfg *DeviceConfig) Host() string { return cfg.host }

// Port returns the configured TCP port.
func (cfg *DeviceConfig) Port() int { return cfg.port }

// Addr returns the endpoint as "host:port", bracketing IPv6 literals.
func (cfg *DeviceConfig) Addr() string { return net.JoinHostPort(cfg.host, strconv.Itoa(cfg.port)) }

// Timeout returns the initial timeout.
func (cfg *DeviceConfig) Timeout() time.Duration { return cfg.timeout }

// KeepAlive returns the TCP keep-alive period.
func (cfg *DeviceConfig) KeepAlive() time.Duration { return cfg.keepAlive }

// Decoder returns the reply decoder.
func (cfg *DeviceConfig) Decoder() frame.Decoder { return cfg.decoder }

// GetLogger returns the configured logger.
func (cfg *DeviceConfig) GetLogger() logger.Logger { return cfg.logger }

// DeviceOption is a functional option for configuring a DeviceConfig.
type DeviceOption interface {
	apply(*DeviceConfig) error
}

type deviceOptFunc func(*DeviceConfig) error

func (f deviceOptFunc) apply(cfg *DeviceConfig) error { return f(cfg) }

// WithTimeout sets the initial timeout for connecting and for each socket read and write.
// Zero disables timeouts; negative values are rejected.
//
// The default is DefaultTimeout (disabled).
func WithTimeout(d time.Duration) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		if d < 0 {
			return fmt.Errorf("lxi: %w: %v", ErrInvalidTimeout, d)
		}
		cfg.timeout = d

		return nil
	})
}

// WithKeepAlive sets the TCP keep-alive period. Zero selects the operating system default
// and a negative value disables keep-alive, as with net.Dialer.
//
// The default is DefaultKeepAlive.
func WithKeepAlive(d time.Duration) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		cfg.keepAlive = d
		return nil
	})
}

// WithDecoder sets the reply decoder used by Receive and Query.
//
// The default is frame.BlockDecoder{}, which classifies replies as text or binary blocks.
// Use frame.LineDecoder{} for instruments that never send blocks, or frame.DecoderFunc for
// custom framing.
func WithDecoder(dec frame.Decoder) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		if dec == nil {
			return errors.New("lxi: decoder is nil")
		}
		cfg.decoder = dec

		return nil
	})
}

// WithLogger sets the logger of the device.
//
// The default logger is the global logger instance.
func WithLogger(l logger.Logger) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		if l == nil {
			return errors.New("lxi: logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
