// Package config loads the lxictl YAML configuration file.
package config

// Config is the lxictl configuration file.
type Config struct {
	Devices  map[string]DeviceProfile `yaml:"devices"`
	Emulator EmulatorConfig           `yaml:"emulator"`
}

// ---- DEVICES ----

// DeviceProfile is a named instrument endpoint.
type DeviceProfile struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`         // 0 => 5025
	TimeoutMs   int    `yaml:"timeout_ms"`   // 0 => disabled
	KeepAliveMs int    `yaml:"keepalive_ms"` // 0 => library default, -1 => off

	// Decoder is "block" (default) or "line".
	Decoder        string `yaml:"decoder"`
	MaxBlockLength int    `yaml:"max_block_length"` // block decoder only
	MaxLineLength  int    `yaml:"max_line_length"`  // 0 => frame.DefaultMaxLineLength
}

// ---- EMULATOR ----

// EmulatorConfig is the reply table served by `lxictl emulate`.
type EmulatorConfig struct {
	Listen    string           `yaml:"listen"`  // "" => DefaultListen
	Default   *string          `yaml:"default"` // nil => "Error"
	Responses []ResponseConfig `yaml:"responses"`
}

// ResponseConfig maps a command prefix to exactly one kind of reply.
type ResponseConfig struct {
	Match string `yaml:"match"`

	Text     *string `yaml:"text"`      // sent with CR LF appended
	Hex      string  `yaml:"hex"`       // raw bytes, sent as is
	BlockHex string  `yaml:"block_hex"` // payload of a definite length block
	Silent   bool    `yaml:"silent"`    // no reply at all
}
