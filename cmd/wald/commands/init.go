package commands

import (
	"fmt"
	"os"

	"github.com/FordUniver/wald/cmd/wald/cli"
	"github.com/FordUniver/wald/lib/workspace"
	"github.com/spf13/pflag"
)

func initCommand() *cli.Command {
	var force bool
	return &cli.Command{
		Name:        "init",
		Summary:     "Initialize a new wald workspace in the current directory",
		Description: "Creates .wald/, an empty repo registry, default config, and a\nwald-managed .gitignore block.",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("init", pflag.ContinueOnError)
			fs.BoolVar(&force, "force", false, "re-initialize an already-initialized workspace")
			return fs
		},
		Run: func(args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			result, err := workspace.Init(cwd, force)
			if err != nil {
				return err
			}
			fmt.Printf("initialized wald workspace at %s\n", result.Root)
			if result.NotAGitRepoWarning {
				fmt.Println("warning: this directory is not a git repository; commit it to track the workspace")
			}
			return nil
		},
	}
}
