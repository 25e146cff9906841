package main

import (
	"fmt"
	"os"

	"github.com/FordUniver/wald/cmd/wald/cli"
	"github.com/FordUniver/wald/cmd/wald/commands"
)

func main() {
	if err := run(); err != nil {
		if _, isExitErr := err.(*cli.ExitError); !isExitErr {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(cli.ExitCodeFor(err))
	}
}

func run() error {
	return commands.Root().Execute(os.Args[1:])
}
