package commands

import (
	"fmt"

	"github.com/FordUniver/wald/cmd/wald/cli"
	"github.com/FordUniver/wald/lib/manifest"
	"github.com/FordUniver/wald/lib/repodriver"
	"github.com/FordUniver/wald/lib/repoid"
	"github.com/FordUniver/wald/lib/walderr"
	"github.com/spf13/pflag"
)

func repoCommand() *cli.Command {
	return &cli.Command{
		Name:    "repo",
		Summary: "Manage the workspace's repo registry",
		Subcommands: []*cli.Command{
			repoAddCommand(),
			repoRemoveCommand(),
			repoListCommand(),
			repoFetchCommand(),
			repoGcCommand(),
		},
	}
}

func repoAddCommand() *cli.Command {
	var lfs, filter, depthStr, upstream string
	var aliases []string
	return &cli.Command{
		Name:    "add",
		Summary: "Register a repo-id in the workspace",
		Usage:   "wald repo add <repo-id> [flags]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("add", pflag.ContinueOnError)
			fs.StringVar(&lfs, "lfs", "", "lfs label (none|minimal|full); default from config")
			fs.StringVar(&filter, "filter", "", "partial-clone filter (none|blob-none|tree-zero); default blob-none")
			fs.StringVar(&depthStr, "depth", "", "clone depth (positive integer or \"full\"); default from config")
			fs.StringVar(&upstream, "upstream", "", "upstream repo-id this is a fork of")
			fs.StringArrayVar(&aliases, "alias", nil, "short alias (repeatable)")
			return fs
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "wald repo add <repo-id>"); err != nil {
				return err
			}
			id, err := repoid.Parse(args[0])
			if err != nil {
				return err
			}
			root, err := discoverRoot()
			if err != nil {
				return err
			}
			cfg, err := manifest.ReadConfig(root)
			if err != nil {
				return err
			}
			entry := &manifest.RepoEntry{
				LFS:      lfs,
				Filter:   filter,
				Aliases:  aliases,
				Upstream: upstream,
			}
			if entry.LFS == "" {
				entry.LFS = cfg.DefaultLFS
			}
			if entry.Filter == "" {
				entry.Filter = manifest.FilterBlobNone
			}
			entry.Depth = cfg.DefaultDepth
			if depthStr != "" {
				depth, err := manifest.ParseDepth(depthStr)
				if err != nil {
					return err
				}
				entry.Depth = depth
			}
			if err := entry.Validate(); err != nil {
				return err
			}

			return manifest.UpdateWorkspace(root, func(w *manifest.Workspace) error {
				if _, exists := w.Repos[id.String()]; exists {
					return walderr.New(walderr.KindRepoAlreadyRegistered, "%s is already registered", id)
				}
				w.Repos[id.String()] = entry
				return nil
			})
		},
	}
}

func repoRemoveCommand() *cli.Command {
	return &cli.Command{
		Name:    "remove",
		Summary: "Unregister a repo (the bare repo on disk is left untouched)",
		Usage:   "wald repo remove <repo-id-or-alias>",
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "wald repo remove <repo-id-or-alias>"); err != nil {
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
			id, err := repoid.Resolve(reg, args[0])
			if err != nil {
				return err
			}
			return manifest.UpdateWorkspace(root, func(w *manifest.Workspace) error {
				delete(w.Repos, id.String())
				return nil
			})
		},
	}
}

func repoListCommand() *cli.Command {
	out := &cli.JSONOutput{}
	return &cli.Command{
		Name:    "list",
		Summary: "List registered repos",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
			fs.BoolVar(&out.Enabled, "json", false, "output as JSON")
			return fs
		},
		Run: func(args []string) error {
			root, err := discoverRoot()
			if err != nil {
				return err
			}
			reg, err := manifest.ReadWorkspace(root)
			if err != nil {
				return err
			}
			ids := reg.RepoIDs()
			if done, err := out.EmitJSON(ids); done {
				return err
			}
			for _, id := range ids {
				entry := reg.Repos[id]
				fmt.Printf("%s\tlfs=%s\tdepth=%s\tfilter=%s\n", id, entry.LFS, entry.Depth, entry.Filter)
			}
			return nil
		},
	}
}

func repoFetchCommand() *cli.Command {
	var full bool
	return &cli.Command{
		Name:    "fetch",
		Summary: "Fetch (cloning if necessary) a repo's bare repo",
		Usage:   "wald repo fetch <repo-id-or-alias> [--full]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("fetch", pflag.ContinueOnError)
			fs.BoolVar(&full, "full", false, "promote a partial clone to a full clone")
			return fs
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "wald repo fetch <repo-id-or-alias>"); err != nil {
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
			result, err := repodriver.Fetch(background(), root, reg, args[0], full)
			if err != nil {
				return err
			}
			if result.Cloned {
				fmt.Printf("cloned %s\n", result.RepoID)
			} else {
				fmt.Printf("fetched %s\n", result.RepoID)
			}
			return nil
		},
	}
}

func repoGcCommand() *cli.Command {
	return &cli.Command{
		Name:    "gc",
		Summary: "Run git gc against a repo's bare repo",
		Usage:   "wald repo gc <repo-id-or-alias>",
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "wald repo gc <repo-id-or-alias>"); err != nil {
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
			return repodriver.Gc(background(), root, reg, args[0])
		},
	}
}
