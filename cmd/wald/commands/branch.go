package commands

import (
	"fmt"

	"github.com/FordUniver/wald/cmd/wald/cli"
	"github.com/FordUniver/wald/lib/baum"
	"github.com/FordUniver/wald/lib/manifest"
)

func branchCommand() *cli.Command {
	return &cli.Command{
		Name:    "branch",
		Summary: "Add a single branch's worktree to an existing baum",
		Usage:   "wald branch <baum-path> <branch>",
		Run: func(args []string) error {
			if err := requireArgs(args, 2, "wald branch <baum-path> <branch>"); err != nil {
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
			result, err := baum.Branch(background(), root, args[0], reg, args[1])
			if err != nil {
				return err
			}
			for _, entry := range result.Added {
				fmt.Printf("planted %s at %s\n", entry.Branch, entry.Path)
			}
			return nil
		},
	}
}
