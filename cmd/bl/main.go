// bl is the CLI for backlog-lite, a task board stored as markdown files.
package main

import (
	"fmt"
	"os"

	"backlog-lite/internal/cmd"
)

var (
	run    = func() error { return cmd.Execute() }
	osExit = os.Exit
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		osExit(1)
	}
}
