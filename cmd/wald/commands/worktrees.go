package commands

import (
	"fmt"
	"path/filepath"

	"github.com/FordUniver/wald/cmd/wald/cli"
	"github.com/FordUniver/wald/lib/doctor"
	"github.com/FordUniver/wald/lib/manifest"
	"github.com/spf13/pflag"
)

func worktreesCommand() *cli.Command {
	out := &cli.JSONOutput{}
	return &cli.Command{
		Name:    "worktrees",
		Summary: "List declared worktrees across every baum in the workspace",
		Usage:   "wald worktrees [container-path]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("worktrees", pflag.ContinueOnError)
			fs.BoolVar(&out.Enabled, "json", false, "output as JSON")
			return fs
		},
		Run: func(args []string) error {
			root, err := discoverRoot()
			if err != nil {
				return err
			}
			var containers []string
			if len(args) > 0 {
				containers = []string{args[0]}
			} else {
				containers, err = doctor.DiscoverBaumContainers(root)
				if err != nil {
					return err
				}
			}

			type row struct {
				Container string `json:"container"`
				Branch    string `json:"branch"`
				Path      string `json:"path"`
				RepoID    string `json:"repo_id"`
			}
			var rows []row
			for _, containerPath := range containers {
				b, err := manifest.ReadBaum(containerPath)
				if err != nil {
					return err
				}
				for _, wt := range b.Worktrees {
					rows = append(rows, row{
						Container: containerPath,
						Branch:    wt.Branch,
						Path:      filepath.Join(containerPath, wt.Path),
						RepoID:    b.RepoID,
					})
				}
			}

			if done, err := out.EmitJSON(rows); done {
				return err
			}
			for _, r := range rows {
				fmt.Printf("%s\t%s\t%s\n", r.RepoID, r.Branch, r.Path)
			}
			return nil
		},
	}
}
