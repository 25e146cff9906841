// Package materializer implements C7: given a baum manifest on disk
// whose worktrees are missing, recreate those worktrees from the
// corresponding bare repo. Grounded on the "ensure, don't recreate"
// idempotence idiom used throughout the teacher's lib/artifact cache
// population (check existence before fetching).
package materializer

import (
	"context"
	"os"
	"path/filepath"

	"github.com/FordUniver/wald/lib/gitdriver"
	"github.com/FordUniver/wald/lib/manifest"
	"github.com/FordUniver/wald/lib/repoid"
	"github.com/FordUniver/wald/lib/walderr"
)

// Result reports which branches were materialized and which were
// already valid and left untouched.
type Result struct {
	ContainerPath string
	Created       []string
	AlreadyValid  []string
}

// Materialize ensures every {branch, path} entry declared in the baum
// manifest at containerPath has a valid, registered worktree on disk,
// creating any that are missing. It is idempotent: calling it twice
// with no external change between calls is a no-op the second time.
func Materialize(ctx context.Context, workspaceRoot, containerPath string) (*Result, error) {
	b, err := manifest.ReadBaum(containerPath)
	if err != nil {
		return nil, walderr.Wrap(walderr.KindInvalidBaumManifest, err, "reading baum manifest at %s", containerPath)
	}
	id, err := repoid.Parse(b.RepoID)
	if err != nil {
		return nil, walderr.Wrap(walderr.KindInvalidBaumManifest, err, "baum at %s has an invalid repo_id", containerPath)
	}
	bareDir := id.BarePath(workspaceRoot)
	if _, statErr := os.Stat(bareDir); statErr != nil {
		return nil, walderr.Wrap(walderr.KindBareRepoMissing, statErr, "bare repo for %s not found", id)
	}

	result := &Result{ContainerPath: containerPath}
	pruned := false
	for _, wt := range b.Worktrees {
		worktreeDir := filepath.Join(containerPath, wt.Path)
		if isValidWorktree(worktreeDir) {
			result.AlreadyValid = append(result.AlreadyValid, wt.Branch)
			continue
		}
		if !pruned {
			// A worktree directory deleted by hand stays registered in the
			// bare repo, and git refuses to add it again until pruned.
			if err := gitdriver.WorktreePrune(ctx, bareDir); err != nil {
				return result, err
			}
			pruned = true
		}
		if err := gitdriver.WorktreeAdd(ctx, bareDir, worktreeDir, wt.Branch, true); err != nil {
			return result, err
		}
		result.Created = append(result.Created, wt.Branch)
	}
	return result, nil
}

// isValidWorktree reports whether dir looks like a registered git
// worktree: the directory exists and contains a ".git" pointer file
// (worktrees have a .git file, not a .git directory).
func isValidWorktree(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	gitInfo, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && !gitInfo.IsDir()
}
