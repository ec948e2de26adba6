package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newQueryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "query <command>",
		Short: "Send a command and print the reply",
		Example: `  lxictl query --host 192.168.1.20 '*IDN?'
  lxictl query -d scope -o hex 'CURV?'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := a.connect(cmd)
			if err != nil {
				return err
			}
			defer dev.Close()

			resp, err := dev.Query([]byte(strings.Join(args, " ")))
			if err != nil {
				return err
			}

			out, err := formatReply(resp, a.output)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)

			return nil
		},
	}
}

func newSendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "send <command>",
		Short:   "Send a command without reading a reply",
		Example: `  lxictl send --host 192.168.1.20 '*RST'`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := a.connect(cmd)
			if err != nil {
				return err
			}
			defer dev.Close()

			return dev.Send([]byte(strings.Join(args, " ")))
		},
	}
}
