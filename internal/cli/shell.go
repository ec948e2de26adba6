package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/arloliu/go-lxi/lxi"
)

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	blockStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle   = lipgloss.NewStyle().Faint(true)
)

const shellHelp = `Lines containing '?' are queries, anything else is sent without reading a reply.
Meta commands:
  :status          show connection state and counters
  :timeout [dur]   show or set the device timeout, e.g. :timeout 500ms
  :reconnect       drop and re-open the connection
  :help            show this help
  :quit            leave the shell`

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session with one instrument",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := a.connect(cmd)
			if err != nil {
				return err
			}
			defer dev.Close()

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          promptStyle.Render(dev.Addr()+">") + " ",
				HistoryLimit:    1000,
				AutoComplete:    shellCompleter(),
				InterruptPrompt: "^C",
				EOFPrompt:       ":quit",
			})
			if err != nil {
				return fmt.Errorf("failed to create readline: %w", err)
			}
			defer rl.Close()

			sess := &shellSession{ctx: cmd.Context(), dev: dev, out: rl.Stdout(), format: a.output}
			for {
				line, err := rl.Readline()
				if err != nil {
					if errors.Is(err, readline.ErrInterrupt) {
						continue
					}
					if errors.Is(err, io.EOF) {
						return nil
					}

					return err
				}

				if sess.exec(line) {
					return nil
				}
			}
		},
	}
}

func shellCompleter() readline.AutoCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem(":status"),
		readline.PcItem(":timeout"),
		readline.PcItem(":reconnect"),
		readline.PcItem(":help"),
		readline.PcItem(":quit"),
		readline.PcItem("*IDN?"),
		readline.PcItem("*RST"),
		readline.PcItem("*CLS"),
		readline.PcItem("*OPC?"),
		readline.PcItem("SYST:ERR?"),
	)
}

// shellSession executes shell lines against one device.
type shellSession struct {
	ctx    context.Context
	dev    *lxi.Device
	out    io.Writer
	format string
}

// exec runs one input line and reports whether the shell should exit.
func (s *shellSession) exec(line string) bool {
	line = strings.TrimSpace(line)

	switch {
	case line == "":
		return false
	case strings.HasPrefix(line, ":"):
		return s.meta(strings.Fields(line))
	case strings.Contains(line, "?"):
		resp, err := s.dev.Query([]byte(line))
		if err != nil {
			s.printErr(err)
			return false
		}

		out, err := formatReply(resp, s.format)
		if err != nil {
			s.printErr(err)
			return false
		}
		if resp.IsBinary() && s.format == outputText {
			out = blockStyle.Render(strings.TrimSuffix(out, "\n")) + "\n"
		}
		fmt.Fprint(s.out, out)
	default:
		if err := s.dev.Send([]byte(line)); err != nil {
			s.printErr(err)
		}
	}

	return false
}

func (s *shellSession) meta(fields []string) bool {
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true

	case ":help":
		fmt.Fprintln(s.out, shellHelp)

	case ":status":
		m := s.dev.Metrics()
		fmt.Fprintln(s.out, infoStyle.Render(fmt.Sprintf(
			"%s %s timeout=%s sent=%d text=%d binary=%d errors=%d timeouts=%d",
			s.dev.Addr(), s.dev.State(), s.dev.Timeout(),
			m.SendCount.Load(), m.TextRecvCount.Load(), m.BinaryRecvCount.Load(),
			m.SendErrCount.Load()+m.RecvErrCount.Load(), m.TimeoutCount.Load(),
		)))

	case ":timeout":
		if len(fields) < 2 {
			fmt.Fprintln(s.out, infoStyle.Render("timeout="+s.dev.Timeout().String()))
			return false
		}

		d, err := time.ParseDuration(fields[1])
		if err != nil {
			s.printErr(err)
			return false
		}
		if err := s.dev.SetTimeout(d); err != nil {
			s.printErr(err)
		}

	case ":reconnect":
		var err error
		if s.dev.IsConnected() {
			err = s.dev.Reconnect(s.ctx)
		} else {
			err = s.dev.Connect(s.ctx)
		}
		if err != nil {
			s.printErr(err)
			return false
		}
		fmt.Fprintln(s.out, infoStyle.Render("connected to "+s.dev.Addr()))

	default:
		s.printErr(fmt.Errorf("unknown meta command %s, try :help", fields[0]))
	}

	return false
}

func (s *shellSession) printErr(err error) {
	fmt.Fprintln(s.out, errorStyle.Render("error: "+err.Error()))
}
