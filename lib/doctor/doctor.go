// Package doctor implements C9: enumerating and optionally repairing
// discrepancies between the tracked manifests, the bare-repo store,
// and the worktree directories on disk (spec.md §4.9). The Result/
// Status/FixAction shape and the ExecuteFixes loop are grounded
// directly on the teacher's cmd/bureau/cli/doctor package, trimmed of
// concerns wald has no analog for (elevated/root fixes — wald never
// needs privilege escalation to repair a workspace).
package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/FordUniver/wald/lib/gitdriver"
	"github.com/FordUniver/wald/lib/manifest"
	"github.com/FordUniver/wald/lib/materializer"
	"github.com/FordUniver/wald/lib/repoid"
	"github.com/FordUniver/wald/lib/workspace"
)

// Status is the outcome of a single health check.
type Status string

const (
	StatusPass  Status = "pass"
	StatusFail  Status = "fail"
	StatusWarn  Status = "warn"
	StatusFixed Status = "fixed"
)

// FixAction repairs a failed check. Domain-specific dependencies
// (workspace root, container path, ...) are captured in the closure at
// check-construction time.
type FixAction func(ctx context.Context) error

// Result holds the outcome of a single health check.
type Result struct {
	Name    string
	Status  Status
	Message string
	FixHint string
	fix     FixAction
}

// HasFix reports whether this result carries a fix action.
func (r *Result) HasFix() bool { return r.fix != nil }

func Pass(name, message string) Result { return Result{Name: name, Status: StatusPass, Message: message} }
func Fail(name, message string) Result { return Result{Name: name, Status: StatusFail, Message: message} }
func Warn(name, message string) Result { return Result{Name: name, Status: StatusWarn, Message: message} }

// FailWithFix creates a failing result carrying an automatic repair.
func FailWithFix(name, message, fixHint string, fix FixAction) Result {
	return Result{Name: name, Status: StatusFail, Message: message, FixHint: fixHint, fix: fix}
}

// Outcome holds the aggregate results of a fix pass.
type Outcome struct {
	FixedCount int
	Failed     int
}

// ExecuteFixes runs the fix action for each fixable failure, updating
// results in place. In dry-run mode, no fixes execute.
func ExecuteFixes(ctx context.Context, results []Result, dryRun bool) Outcome {
	var outcome Outcome
	if dryRun {
		return outcome
	}
	for i := range results {
		if results[i].Status != StatusFail || results[i].fix == nil {
			continue
		}
		if err := results[i].fix(ctx); err != nil {
			results[i].Message = fmt.Sprintf("%s (fix failed: %v)", results[i].Message, err)
			outcome.Failed++
			continue
		}
		results[i].Status = StatusFixed
		outcome.FixedCount++
	}
	return outcome
}

// OK reports whether every result passed (or was fixed).
func OK(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return false
		}
	}
	return true
}

// Check enumerates every issue in the §4.9 table against the
// workspace at root.
func Check(ctx context.Context, root string) ([]Result, error) {
	var results []Result

	reposDirResults, reposDir := checkReposDir(root)
	results = append(results, reposDirResults)

	reg, err := manifest.ReadWorkspace(root)
	if err != nil {
		return nil, err
	}
	bareRepoIDs, err := discoverBareRepos(reposDir)
	if err != nil {
		return nil, err
	}
	results = append(results, checkRegistryVsBareRepos(reg, bareRepoIDs)...)

	containers, err := DiscoverBaumContainers(root)
	if err != nil {
		return nil, err
	}
	for _, containerPath := range containers {
		results = append(results, checkBaum(ctx, root, containerPath)...)
	}

	return results, nil
}

func checkReposDir(root string) (Result, string) {
	reposDir := workspace.ReposDir(root)
	if info, err := os.Stat(reposDir); err == nil && info.IsDir() {
		return Pass("repos-dir", ".wald/repos/ exists"), reposDir
	}
	return FailWithFix("repos-dir", ".wald/repos/ is missing", "recreate .wald/repos/", func(ctx context.Context) error {
		return os.MkdirAll(reposDir, 0o755)
	}), reposDir
}

// checkRegistryVsBareRepos cross-references the repo registry against
// what bare repos actually exist on disk (issues 1 and 2 of §4.9).
func checkRegistryVsBareRepos(reg *manifest.Workspace, bareRepoIDs []string) []Result {
	var results []Result
	bareSet := map[string]bool{}
	for _, id := range bareRepoIDs {
		bareSet[id] = true
	}
	for id := range reg.Repos {
		if !bareSet[id] {
			results = append(results, Warn("bare-repo-missing:"+id,
				fmt.Sprintf("repo %s is registered but has no bare repo on disk; run 'repo fetch' to clone it", id)))
		}
	}
	registered := map[string]bool{}
	for id := range reg.Repos {
		registered[id] = true
	}
	for _, id := range bareRepoIDs {
		if !registered[id] {
			results = append(results, Warn("unregistered-bare-repo:"+id,
				fmt.Sprintf("bare repo for %s exists on disk but is not registered; run 'repo add' if it should be tracked", id)))
		}
	}
	return results
}

// checkBaum runs the per-baum checks (issues 3, 4, 5, 6 of §4.9)
// against one container.
func checkBaum(ctx context.Context, root, containerPath string) []Result {
	var results []Result
	name := relDisplay(root, containerPath)

	b, err := manifest.ReadBaum(containerPath)
	if err != nil {
		results = append(results, Warn("baum-manifest:"+name,
			fmt.Sprintf("baum manifest at %s is unparseable: %v", name, err)))
		return results
	}

	id, err := repoid.Parse(b.RepoID)
	var bareDir string
	var bareExists bool
	if err == nil {
		bareDir = id.BarePath(root)
		if info, statErr := os.Stat(bareDir); statErr == nil && info.IsDir() {
			bareExists = true
		}
	}

	registeredWorktrees := map[string]bool{}
	if bareExists {
		if infos, err := gitdriver.WorktreeList(ctx, bareDir); err == nil {
			for _, wt := range infos {
				registeredWorktrees[filepath.Clean(wt.Path)] = true
			}
		}
	}

	declaredPaths := map[string]bool{}
	for _, wt := range b.Worktrees {
		declaredPaths[wt.Path] = true
		worktreeDir := filepath.Join(containerPath, wt.Path)
		exists := dirExists(worktreeDir)
		if !exists {
			path, container := worktreeDir, containerPath
			results = append(results, FailWithFix(
				"missing-worktree:"+name+"/"+wt.Branch,
				fmt.Sprintf("%s declares branch %q but %s is absent", name, wt.Branch, relDisplay(root, path)),
				"materialize the baum",
				func(ctx context.Context) error {
					_, err := materializer.Materialize(ctx, root, container)
					return err
				},
			))
			continue
		}
		if bareExists && !registeredWorktrees[filepath.Clean(worktreeDir)] {
			results = append(results, Warn("unregistered-worktree:"+name+"/"+wt.Branch,
				fmt.Sprintf("%s exists but is not registered with its bare repo", relDisplay(root, worktreeDir))))
		}
	}

	// Issue 4: a worktree directory on disk that the manifest doesn't
	// declare.
	entries, _ := os.ReadDir(containerPath)
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == ".baum" {
			continue
		}
		if !declaredPaths[entry.Name()] {
			results = append(results, Warn("undeclared-worktree:"+name+"/"+entry.Name(),
				fmt.Sprintf("%s exists but is not declared in the baum manifest", relDisplay(root, filepath.Join(containerPath, entry.Name())))))
		}
	}

	if len(results) == 0 {
		results = append(results, Pass("baum:"+name, name+" is coherent"))
	}
	return results
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func relDisplay(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

// DiscoverBaumContainers walks the workspace tree (excluding .wald/)
// looking for .baum/manifest.yaml files, returning their container
// directories.
func DiscoverBaumContainers(root string) ([]string, error) {
	var containers []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && (d.Name() == workspace.WaldDir || d.Name() == ".git") {
			return filepath.SkipDir
		}
		if !d.IsDir() && d.Name() == "manifest.yaml" && filepath.Base(filepath.Dir(path)) == ".baum" {
			containers = append(containers, filepath.Dir(filepath.Dir(path)))
		}
		return nil
	})
	return containers, err
}

// discoverBareRepos walks .wald/repos/ looking for "*.git" directories,
// reconstructing each one's repo-id from its path relative to reposDir.
func discoverBareRepos(reposDir string) ([]string, error) {
	var ids []string
	if _, err := os.Stat(reposDir); err != nil {
		return nil, nil
	}
	err := filepath.WalkDir(reposDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && strings.HasSuffix(d.Name(), ".git") {
			rel, relErr := filepath.Rel(reposDir, path)
			if relErr != nil {
				return relErr
			}
			id := strings.TrimSuffix(rel, ".git")
			ids = append(ids, filepath.ToSlash(id))
			return filepath.SkipDir
		}
		return nil
	})
	return ids, err
}
