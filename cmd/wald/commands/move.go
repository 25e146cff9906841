package commands

import (
	"fmt"

	"github.com/FordUniver/wald/cmd/wald/cli"
	"github.com/FordUniver/wald/lib/baum"
)

func moveCommand() *cli.Command {
	return &cli.Command{
		Name:    "move",
		Summary: "Relocate a baum container with a tracked rename",
		Usage:   "wald move <src> <dst>",
		Run: func(args []string) error {
			if err := requireArgs(args, 2, "wald move <src> <dst>"); err != nil {
				return err
			}
			root, err := discoverRoot()
			if err != nil {
				return err
			}
			if err := baum.Move(background(), root, args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("moved %s to %s\n", args[0], args[1])
			return nil
		},
	}
}
