// Command agentprobe runs end-to-end checks against the agent
// dashboard stack.
package main

import (
	"fmt"
	"os"

	"digital.vasic.agentprobe/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.ExitCode(err))
	}
}
