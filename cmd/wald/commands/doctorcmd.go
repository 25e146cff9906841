package commands

import (
	"fmt"

	"github.com/FordUniver/wald/cmd/wald/cli"
	"github.com/FordUniver/wald/lib/doctor"
	"github.com/spf13/pflag"
)

func doctorCommand() *cli.Command {
	var fix bool
	out := &cli.JSONOutput{}
	return &cli.Command{
		Name:    "doctor",
		Summary: "Check (and optionally repair) workspace invariants",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("doctor", pflag.ContinueOnError)
			fs.BoolVar(&fix, "fix", false, "attempt to repair fixable issues")
			fs.BoolVar(&out.Enabled, "json", false, "output as JSON")
			return fs
		},
		Run: func(args []string) error {
			root, err := discoverRoot()
			if err != nil {
				return err
			}
			ctx := background()

			results, err := doctor.Check(ctx, root)
			if err != nil {
				return err
			}
			outcome := doctor.ExecuteFixes(ctx, results, !fix)

			if done, err := out.EmitJSON(results); done {
				return err
			}
			for _, r := range results {
				fmt.Printf("[%s] %s: %s\n", r.Status, r.Name, r.Message)
			}
			if fix {
				fmt.Printf("fixed %d issue(s)\n", outcome.FixedCount)
			}
			if !doctor.OK(results) {
				return &cli.ExitError{Code: cli.ExitGeneric}
			}
			return nil
		},
	}
}
