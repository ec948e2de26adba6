package config

import (
	"encoding/hex"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/arloliu/go-lxi/frame"
)

// Validate checks configuration correctness.
// It performs declarative validation only and never mutates cfg.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	// map order is random; report the first bad profile by name
	names := make([]string, 0, len(cfg.Devices))
	for name := range cfg.Devices {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := validateDevice(cfg.Devices[name]); err != nil {
			return fmt.Errorf("device %q: %w", name, err)
		}
	}

	return validateEmulator(&cfg.Emulator)
}

func validateDevice(p DeviceProfile) error {
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("host is required")
	}

	if p.Port < 0 || p.Port > 65535 {
		return fmt.Errorf("port %d out of range", p.Port)
	}

	if p.TimeoutMs < 0 {
		return fmt.Errorf("timeout_ms must not be negative")
	}

	if p.KeepAliveMs < -1 {
		return fmt.Errorf("keepalive_ms must be -1, 0 or positive")
	}

	if p.MaxLineLength < 0 {
		return fmt.Errorf("max_line_length must not be negative")
	}

	switch p.Decoder {
	case "", DecoderBlock:
		if p.MaxBlockLength < 0 || p.MaxBlockLength > frame.MaxBlockLength {
			return fmt.Errorf("max_block_length %d out of range", p.MaxBlockLength)
		}
	case DecoderLine:
		if p.MaxBlockLength != 0 {
			return fmt.Errorf("max_block_length requires the block decoder")
		}
	default:
		return fmt.Errorf("unknown decoder %q", p.Decoder)
	}

	return nil
}

func validateEmulator(e *EmulatorConfig) error {
	if e.Listen != "" {
		if _, _, err := net.SplitHostPort(e.Listen); err != nil {
			return fmt.Errorf("emulator: listen %q: %w", e.Listen, err)
		}
	}

	if e.Default != nil && strings.ContainsAny(*e.Default, "\r\n") {
		return fmt.Errorf("emulator: default reply must be a single line")
	}

	for i, r := range e.Responses {
		if r.Match == "" {
			return fmt.Errorf("emulator: response %d: match is required", i)
		}

		kinds := 0
		if r.Text != nil {
			kinds++
			if strings.ContainsAny(*r.Text, "\r\n") {
				return fmt.Errorf("emulator: response %q: text must be a single line", r.Match)
			}
		}
		if r.Hex != "" {
			kinds++
			if _, err := hex.DecodeString(r.Hex); err != nil {
				return fmt.Errorf("emulator: response %q: hex: %w", r.Match, err)
			}
		}
		if r.BlockHex != "" {
			kinds++
			if _, err := hex.DecodeString(r.BlockHex); err != nil {
				return fmt.Errorf("emulator: response %q: block_hex: %w", r.Match, err)
			}
		}
		if r.Silent {
			kinds++
		}

		if kinds != 1 {
			return fmt.Errorf("emulator: response %q: exactly one of text, hex, block_hex or silent is required", r.Match)
		}
	}

	return nil
}
