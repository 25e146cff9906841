package commands

import (
	"fmt"

	"github.com/FordUniver/wald/cmd/wald/cli"
	"github.com/FordUniver/wald/lib/baum"
	"github.com/spf13/pflag"
)

func pruneCommand() *cli.Command {
	var force bool
	return &cli.Command{
		Name:    "prune",
		Summary: "Remove one or more branches' worktrees from a baum",
		Usage:   "wald prune <baum-path> <branch>... [--force]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("prune", pflag.ContinueOnError)
			fs.BoolVar(&force, "force", false, "remove worktrees even with uncommitted changes")
			return fs
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 2, "wald prune <baum-path> <branch>..."); err != nil {
				return err
			}
			result, err := baum.Prune(background(), args[0], args[1:], force)
			if err != nil {
				return err
			}
			for _, branch := range result.Removed {
				fmt.Printf("pruned %s\n", branch)
			}
			for _, warning := range result.Warnings {
				fmt.Printf("warning: %s\n", warning.Message)
			}
			return nil
		},
	}
}
