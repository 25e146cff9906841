// Package commands wires each CLI leaf command to the core operations
// in lib/, per C11 (spec.md §4.11). Runs validate arguments and format
// results; "repo add" additionally fills unset fields from config
// defaults and rejects an already-registered repo-id itself.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/FordUniver/wald/cmd/wald/cli"
	"github.com/FordUniver/wald/lib/workspace"
)

// Root builds the wald command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name:    "wald",
		Summary: "Unify many git repositories under one tracked workspace",
		Description: "wald tracks which upstream repositories exist, where their worktrees\n" +
			"live on disk, and replays that layout across machines by syncing the\n" +
			"workspace itself as a git repository.",
		Subcommands: []*cli.Command{
			initCommand(),
			repoCommand(),
			plantCommand(),
			branchCommand(),
			pruneCommand(),
			uprootCommand(),
			moveCommand(),
			worktreesCommand(),
			statusCommand(),
			doctorCommand(),
			syncCommand(),
		},
	}
}

// discoverRoot finds the workspace root above the current directory,
// exiting with a clear message if none is found.
func discoverRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return workspace.Discover(cwd)
}

func background() context.Context { return context.Background() }

func requireArgs(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}
