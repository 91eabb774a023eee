// Command ncd compiles, validates, runs and inspects statement programs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/ncd/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
