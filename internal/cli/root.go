// Package cli implements the lxictl command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-lxi/internal/config"
	"github.com/arloliu/go-lxi/logger"
	"github.com/arloliu/go-lxi/lxi"
)

// app holds the global flags and the state shared by subcommands during one execution.
type app struct {
	cfgFile  string
	device   string
	host     string
	port     int
	timeout  time.Duration
	logLevel string
	output   string

	cfg    *config.Config
	logger logger.Logger
}

// NewRootCmd builds the lxictl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "lxictl",
		Short: "Talk to SCPI instruments over LXI raw sockets",
		Long: `lxictl sends SCPI commands to instruments listening on a raw TCP socket
(port 5025 by default) and prints their replies. Replies are either text lines
or IEEE 488.2 definite length binary blocks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "YAML config file with device profiles and emulator replies")
	flags.StringVarP(&a.device, "device", "d", "", "device profile name from the config file")
	flags.StringVar(&a.host, "host", "", "instrument host name or IP address")
	flags.IntVarP(&a.port, "port", "p", lxi.DefaultPort, "instrument TCP port")
	flags.DurationVarP(&a.timeout, "timeout", "t", 5*time.Second, "connect, read and write timeout, 0 disables it")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flags.StringVarP(&a.output, "output", "o", outputText, "reply format: text, hex, yaml")

	rootCmd.AddCommand(
		newQueryCmd(a),
		newSendCmd(a),
		newShellCmd(a),
		newEmulateCmd(a),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs lxictl with the process arguments.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) init(logOutput io.Writer) error {
	level, err := logger.ParseLevel(a.logLevel)
	if err != nil {
		return err
	}
	a.logger = logger.NewSlogWriter(logOutput, level, false)

	if err := checkOutputFormat(a.output); err != nil {
		return err
	}

	if a.cfgFile == "" {
		a.cfg = &config.Config{}
		return nil
	}

	a.cfg, err = config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.Validate(a.cfg); err != nil {
		return fmt.Errorf("invalid config %s: %w", a.cfgFile, err)
	}

	return nil
}

// deviceConfig merges the selected profile with the flags the user set explicitly.
func (a *app) deviceConfig(cmd *cobra.Command) (*lxi.DeviceConfig, error) {
	var profile config.DeviceProfile
	if a.device != "" {
		p, ok := a.cfg.Devices[a.device]
		if !ok {
			return nil, fmt.Errorf("unknown device profile %q", a.device)
		}
		profile = p
	}

	host, port := profile.Address()
	opts := profile.Options()

	flags := cmd.Flags()
	if a.device == "" || flags.Changed("host") {
		host = a.host
	}
	if a.device == "" || flags.Changed("port") {
		port = a.port
	}
	if a.device == "" || flags.Changed("timeout") {
		opts = append(opts, lxi.WithTimeout(a.timeout))
	}

	if host == "" {
		return nil, errors.New("no instrument given, use --host or --device")
	}

	opts = append(opts, lxi.WithLogger(a.logger))

	return lxi.NewDeviceConfig(host, port, opts...)
}

// connect creates and connects the device selected by the flags.
func (a *app) connect(cmd *cobra.Command) (*lxi.Device, error) {
	cfg, err := a.deviceConfig(cmd)
	if err != nil {
		return nil, err
	}

	dev, err := lxi.NewDevice(cfg)
	if err != nil {
		return nil, err
	}

	if err := dev.Connect(cmd.Context()); err != nil {
		return nil, err
	}

	return dev, nil
}
