// Command guardrail validates universal-schema writes from the command
// line, over HTTP, and in batches.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/guardrail/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
