// Command into runs, validates and inspects dataflow pipelines.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/into/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	code := cli.GetExitCode(err)

	// Commands print their own ExitErrors. Anything else comes from cobra,
	// such as a missing argument or flag.
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		code = cli.ExitCommandError
	}
	os.Exit(code)
}
