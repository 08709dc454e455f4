// Command ralph is the entry point for the Ralph agent-loop CLI.
package main

import (
	"fmt"
	"os"

	"github.com/andywolf/ralph/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
