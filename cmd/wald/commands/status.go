package commands

import (
	"fmt"
	"strings"

	"github.com/FordUniver/wald/cmd/wald/cli"
	"github.com/FordUniver/wald/lib/doctor"
	"github.com/FordUniver/wald/lib/gitdriver"
	"github.com/FordUniver/wald/lib/manifest"
	"github.com/FordUniver/wald/lib/state"
	"github.com/FordUniver/wald/lib/syncengine"
	"github.com/spf13/pflag"
)

type statusReport struct {
	Root      string `json:"root"`
	LastSync  string `json:"last_sync,omitempty"`
	Ahead     int    `json:"ahead"`
	Behind    int    `json:"behind"`
	Dirty     bool   `json:"dirty"`
	RepoCount int    `json:"repo_count"`
	BaumCount int    `json:"baum_count"`
}

func statusCommand() *cli.Command {
	out := &cli.JSONOutput{}
	return &cli.Command{
		Name:    "status",
		Summary: "Report the workspace's sync position and inventory",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("status", pflag.ContinueOnError)
			fs.BoolVar(&out.Enabled, "json", false, "output as JSON")
			return fs
		},
		Run: func(args []string) error {
			root, err := discoverRoot()
			if err != nil {
				return err
			}
			ctx := background()

			st, err := state.Read(root)
			if err != nil {
				return err
			}
			ahead, behind, err := gitdriver.AheadBehind(ctx, root, syncengine.Branch, syncengine.Upstream)
			if err != nil {
				return err
			}
			porcelain, err := gitdriver.StatusPorcelain(ctx, root)
			if err != nil {
				return err
			}
			reg, err := manifest.ReadWorkspace(root)
			if err != nil {
				return err
			}
			containers, err := doctor.DiscoverBaumContainers(root)
			if err != nil {
				return err
			}

			report := statusReport{
				Root:      root,
				Ahead:     ahead,
				Behind:    behind,
				Dirty:     strings.TrimSpace(porcelain) != "",
				RepoCount: len(reg.Repos),
				BaumCount: len(containers),
			}
			if st.LastSync != nil {
				report.LastSync = *st.LastSync
			}

			if done, err := out.EmitJSON(report); done {
				return err
			}
			fmt.Printf("workspace: %s\n", report.Root)
			if report.LastSync != "" {
				fmt.Printf("last sync: %s\n", report.LastSync)
			} else {
				fmt.Println("last sync: never")
			}
			fmt.Printf("ahead %d, behind %d, dirty=%v\n", report.Ahead, report.Behind, report.Dirty)
			fmt.Printf("%d registered repos, %d baum containers\n", report.RepoCount, report.BaumCount)
			return nil
		},
	}
}
