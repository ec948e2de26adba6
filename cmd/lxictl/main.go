// Command lxictl talks to SCPI instruments over LXI raw sockets and runs a local
// instrument emulator.
package main

import "github.com/arloliu/go-lxi/internal/cli"

func main() {
	cli.Execute()
}
