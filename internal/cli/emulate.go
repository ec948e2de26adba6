package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-lxi/emulator"
)

func newEmulateCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "emulate",
		Short: "Run an instrument emulator until interrupted",
		Long: `emulate serves canned replies on a TCP socket. Without an emulator section in
the config file it answers *IDN? with "Emulator", DATA? with a four byte binary
block and every other command with "Error".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := a.cfg.Emulator.Table()
			if err != nil {
				return err
			}

			addr := a.cfg.Emulator.ListenAddr()
			if cmd.Flags().Changed("listen") {
				addr = listen
			}

			emu, err := emulator.New(addr, emulator.WithResponder(table), emulator.WithLogger(a.logger))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			emu.Start()
			fmt.Fprintf(cmd.OutOrStdout(), "emulator listening on %s\n", emu.Addr())

			<-ctx.Done()

			if err := emu.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "emulator stopped, %d replies served\n", emu.Served())

			return nil
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (default from config or 127.0.0.1:5025)")

	return cmd
}
