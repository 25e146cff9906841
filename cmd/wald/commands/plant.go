package commands

import (
	"fmt"

	"github.com/FordUniver/wald/cmd/wald/cli"
	"github.com/FordUniver/wald/lib/baum"
	"github.com/FordUniver/wald/lib/manifest"
)

func plantCommand() *cli.Command {
	return &cli.Command{
		Name:    "plant",
		Summary: "Create or extend a baum container with one worktree per branch",
		Usage:   "wald plant <repo-id-or-alias> <container-path> <branch>...",
		Run: func(args []string) error {
			if err := requireArgs(args, 3, "wald plant <repo-id-or-alias> <container-path> <branch>..."); err != nil {
				return err
			}
			root, err := discoverRoot()
			if err != nil {
				return err
			}
			reg, err := manifest.ReadWorkspace(root)
			if err != nil {
				return err
			}
			result, err := baum.Plant(background(), root, args[1], reg, args[0], args[2:])
			if err != nil {
				return err
			}
			for _, entry := range result.Added {
				fmt.Printf("planted %s at %s\n", entry.Branch, entry.Path)
			}
			for _, warning := range result.Warnings {
				fmt.Printf("warning: %s\n", warning.Message)
			}
			return nil
		},
	}
}
