package commands

import (
	"fmt"

	"github.com/FordUniver/wald/cmd/wald/cli"
	"github.com/FordUniver/wald/lib/baum"
	"github.com/spf13/pflag"
)

func uprootCommand() *cli.Command {
	var force bool
	return &cli.Command{
		Name:    "uproot",
		Summary: "Remove every worktree in a baum and delete the container",
		Usage:   "wald uproot <baum-path> [--force]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("uproot", pflag.ContinueOnError)
			fs.BoolVar(&force, "force", false, "remove worktrees even with uncommitted changes")
			return fs
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "wald uproot <baum-path>"); err != nil {
				return err
			}
			if err := baum.Uproot(background(), args[0], force); err != nil {
				return err
			}
			fmt.Printf("uprooted %s\n", args[0])
			return nil
		},
	}
}
