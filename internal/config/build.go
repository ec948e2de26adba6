package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/arloliu/go-lxi/emulator"
	"github.com/arloliu/go-lxi/frame"
	"github.com/arloliu/go-lxi/lxi"
)

// Decoder names accepted by DeviceProfile.Decoder.
const (
	DecoderBlock = "block"
	DecoderLine  = "line"
)

// DefaultListen is the emulator address used when none is configured.
const DefaultListen = "127.0.0.1:5025"

// Address returns the profile port, defaulting to lxi.DefaultPort.
func (p DeviceProfile) Address() (string, int) {
	port := p.Port
	if port == 0 {
		port = lxi.DefaultPort
	}

	return p.Host, port
}

// Options converts a validated profile to device options.
func (p DeviceProfile) Options() []lxi.DeviceOption {
	opts := []lxi.DeviceOption{
		lxi.WithTimeout(time.Duration(p.TimeoutMs) * time.Millisecond),
	}

	switch {
	case p.KeepAliveMs < 0:
		opts = append(opts, lxi.WithKeepAlive(-1))
	case p.KeepAliveMs > 0:
		opts = append(opts, lxi.WithKeepAlive(time.Duration(p.KeepAliveMs)*time.Millisecond))
	}

	if p.Decoder == DecoderLine {
		opts = append(opts, lxi.WithDecoder(frame.LineDecoder{MaxLineLength: p.MaxLineLength}))
	} else if p.MaxBlockLength > 0 || p.MaxLineLength > 0 {
		opts = append(opts, lxi.WithDecoder(frame.BlockDecoder{
			MaxLength:     p.MaxBlockLength,
			MaxLineLength: p.MaxLineLength,
		}))
	}

	return opts
}

// ListenAddr returns the configured listen address or DefaultListen.
func (e EmulatorConfig) ListenAddr() string {
	if e.Listen == "" {
		return DefaultListen
	}

	return e.Listen
}

// Table builds the emulator reply table. Without configured responses the built-in
// *IDN? and DATA? replies are served.
func (e EmulatorConfig) Table() (*emulator.Table, error) {
	if len(e.Responses) == 0 && e.Default == nil {
		return emulator.DefaultTable(), nil
	}

	fallback := emulator.TextReply("Error")
	if e.Default != nil {
		fallback = emulator.TextReply(*e.Default)
	}

	table := emulator.NewTable(fallback)
	for _, r := range e.Responses {
		reply, err := r.reply()
		if err != nil {
			return nil, fmt.Errorf("emulator: response %q: %w", r.Match, err)
		}
		table.Add(r.Match, reply)
	}

	return table, nil
}

func (r ResponseConfig) reply() ([]byte, error) {
	switch {
	case r.Silent:
		return nil, nil
	case r.Text != nil:
		return emulator.TextReply(*r.Text), nil
	case r.Hex != "":
		return hex.DecodeString(r.Hex)
	default:
		payload, err := hex.DecodeString(r.BlockHex)
		if err != nil {
			return nil, err
		}

		return emulator.BlockReply(payload)
	}
}
