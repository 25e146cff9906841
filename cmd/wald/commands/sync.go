package commands

import (
	"fmt"

	"github.com/FordUniver/wald/cmd/wald/cli"
	"github.com/FordUniver/wald/lib/syncengine"
	"github.com/spf13/pflag"
)

func syncCommand() *cli.Command {
	var force, autostash bool
	return &cli.Command{
		Name:    "sync",
		Summary: "Reconcile the local filesystem with the workspace's latest history",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("sync", pflag.ContinueOnError)
			fs.BoolVar(&force, "force", false, "proceed through a diverged workspace via autostash + rebase")
			fs.BoolVar(&autostash, "autostash", false, "stash and reapply uncommitted changes around the rebase")
			return fs
		},
		Run: func(args []string) error {
			root, err := discoverRoot()
			if err != nil {
				return err
			}
			logger := cli.NewCommandLogger().With("command", "sync")
			result, err := syncengine.Sync(background(), root, syncengine.Options{
				Force:     force,
				Autostash: autostash,
			}, logger)
			if err != nil {
				return err
			}
			if result.NoOp {
				fmt.Println("already up to date")
				return nil
			}
			fmt.Printf("synced %s..%s\n", result.From, result.To)
			for _, outcome := range result.BaumOutcomes {
				if outcome.Err != nil {
					fmt.Printf("error: %s %s: %v\n", outcome.Kind, outcome.Path, outcome.Err)
					continue
				}
				fmt.Printf("%s %s\n", outcome.Kind, outcome.Path)
				for _, warning := range outcome.Warnings {
					fmt.Printf("  warning: %s\n", warning.Message)
				}
			}
			return nil
		},
	}
}
