// Package repodriver implements C14: the "repo fetch"/"repo gc"
// operations layered on top of the git driver (C4) and the repo
// registry (C2) — the one place wald is allowed to clone a bare repo
// on its own, since the caller named the repo explicitly.
package repodriver

import (
	"context"
	"os"
	"strings"

	"github.com/FordUniver/wald/lib/gitdriver"
	"github.com/FordUniver/wald/lib/manifest"
	"github.com/FordUniver/wald/lib/repoid"
	"github.com/FordUniver/wald/lib/walderr"
)

// cloneURL derives the clone URL for a repo-id: the host segment
// becomes the remote host and the remaining segments the repo path,
// e.g. "github.com/acme/widgets" -> "https://github.com/acme/widgets.git".
// upstream's repo-id field is informational only (§3) and never used
// here, by design: a fork still clones from its own id, not its
// upstream's.
func cloneURL(id repoid.ID) string {
	segments := append([]string{id.Host}, id.Path...)
	segments = append(segments, id.Name)
	return "https://" + strings.Join(segments, "/") + ".git"
}

// FetchResult reports whether Fetch performed an initial clone.
type FetchResult struct {
	RepoID string
	Cloned bool
}

// Fetch resolves identifier against the workspace registry and
// advances its bare repo. If the bare repo does not yet exist locally,
// it is cloned first using the registry entry's recorded filter/depth
// policy — this is the one auto-clone path in wald (§9), because the
// caller named this repo explicitly.
func Fetch(ctx context.Context, workspaceRoot string, reg *manifest.Workspace, identifier string, full bool) (*FetchResult, error) {
	id, err := repoid.Resolve(reg, identifier)
	if err != nil {
		return nil, err
	}
	entry, ok := reg.Repos[id.String()]
	if !ok {
		return nil, walderr.New(walderr.KindRepoNotRegistered, "repo %q is not registered", identifier)
	}

	bareDir := id.BarePath(workspaceRoot)
	result := &FetchResult{RepoID: id.String()}

	if _, statErr := os.Stat(bareDir); statErr != nil {
		if err := gitdriver.CloneBare(ctx, cloneURL(id), bareDir, gitdriver.CloneOptions{
			Filter: entry.Filter,
			Depth:  entry.Depth,
		}); err != nil {
			return nil, err
		}
		result.Cloned = true
	}

	if full {
		return result, gitdriver.ConvertToFull(ctx, bareDir)
	}
	return result, gitdriver.Fetch(ctx, bareDir, gitdriver.FetchOptions{Prune: true})
}

// Gc runs "git gc" against identifier's bare repo. Purely a
// maintenance passthrough; no manifest changes.
func Gc(ctx context.Context, workspaceRoot string, reg *manifest.Workspace, identifier string) error {
	id, err := repoid.Resolve(reg, identifier)
	if err != nil {
		return err
	}
	bareDir := id.BarePath(workspaceRoot)
	if _, err := os.Stat(bareDir); err != nil {
		return walderr.Wrap(walderr.KindBareRepoMissing, err, "bare repo for %s not found", id)
	}
	return gitdriver.Gc(ctx, bareDir)
}
