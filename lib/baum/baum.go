// Package baum implements C5, the filesystem mutations that create or
// destroy a baum container and its worktrees: plant, branch, prune,
// uproot, move. Every mutator keeps three authorities coherent — the
// git worktree registry (capability), the baum manifest (intent), and
// the container's .gitignore — the bare-repo/baum/manifest triangle.
// Grounded on the teacher's validate → call-git-driver →
// update-manifest → update-gitignore shape (cmd/bureau/workspace's
// worktree add/remove commands), generalized from a single
// request/response RPC into a direct, synchronous core operation.
package baum

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/FordUniver/wald/lib/gitdriver"
	"github.com/FordUniver/wald/lib/gitignore"
	"github.com/FordUniver/wald/lib/manifest"
	"github.com/FordUniver/wald/lib/repoid"
	"github.com/FordUniver/wald/lib/walderr"
)

// WorktreeDirName is the conventional (not load-bearing) worktree
// directory name for a branch. Path separators in multi-segment
// branch names (feature/foo) are flattened to "--" so the result is
// always a single directory, matching the *_*.wt ignore pattern.
func WorktreeDirName(branch string) string {
	return "_" + strings.ReplaceAll(branch, "/", "--") + ".wt"
}

// ensureInsideWorkspace rejects a path that resolves to a location
// outside the workspace root. Plant and Move take caller-supplied
// paths, so "the container is inside the workspace" is a precondition
// they must enforce themselves; prune and uproot rediscover the root
// upward from the container and are contained by construction.
func ensureInsideWorkspace(workspaceRoot, path string) error {
	absRoot, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return walderr.New(walderr.KindOutsideWorkspace, "%s is outside the workspace %s", path, workspaceRoot)
	}
	return nil
}

// PlantResult carries the outcome of a successful plant/branch call,
// including any non-fatal advisories (§4.5 step 7).
type PlantResult struct {
	ContainerPath string
	Added         []manifest.WorktreeEntry
	Warnings      []walderr.Warning
}

// Plant creates or extends a baum container at containerPath for the
// given repo (resolved via identifier against reg), adding a worktree
// per requested branch in input order.
func Plant(ctx context.Context, workspaceRoot, containerPath string, reg repoid.Registry, identifier string, branches []string) (*PlantResult, error) {
	if err := ensureInsideWorkspace(workspaceRoot, containerPath); err != nil {
		return nil, err
	}
	id, err := repoid.Resolve(reg, identifier)
	if err != nil {
		return nil, err
	}
	bareDir := id.BarePath(workspaceRoot)
	if _, err := os.Stat(bareDir); err != nil {
		return nil, walderr.Wrap(walderr.KindBareRepoMissing, err, "bare repo for %s not found; run 'repo fetch' first", id)
	}

	if info, err := os.Stat(containerPath); err == nil {
		if !info.IsDir() {
			return nil, walderr.New(walderr.KindContainerNotDirectory, "%s exists and is not a directory", containerPath)
		}
		// An existing directory is acceptable only when empty or when
		// it already is a baum (extended below after the repo check).
		if !manifest.BaumExists(containerPath) {
			entries, readErr := os.ReadDir(containerPath)
			if readErr != nil {
				return nil, walderr.Wrap(walderr.KindManifestReadFailed, readErr, "inspecting %s", containerPath)
			}
			if len(entries) > 0 {
				return nil, walderr.New(walderr.KindContainerAlreadyExists, "%s exists and is not empty", containerPath)
			}
		}
	}
	if err := os.MkdirAll(manifest.BaumDir(containerPath), 0o755); err != nil {
		return nil, walderr.Wrap(walderr.KindManifestWriteFailed, err, "creating %s", manifest.BaumDir(containerPath))
	}

	var b *manifest.Baum
	if manifest.BaumExists(containerPath) {
		b, err = manifest.ReadBaum(containerPath)
		if err != nil {
			return nil, err
		}
		if b.RepoID != id.String() {
			return nil, walderr.New(walderr.KindBaumRepoMismatch, "baum at %s is planted for %s, not %s", containerPath, b.RepoID, id)
		}
	} else {
		b = &manifest.Baum{RepoID: id.String()}
	}

	for _, branch := range branches {
		if b.HasBranch(branch) {
			return nil, walderr.New(walderr.KindBranchAlreadyPlanted, "branch %q is already planted at %s", branch, containerPath)
		}
	}

	result := &PlantResult{ContainerPath: containerPath}
	for _, branch := range branches {
		worktreeDir := filepath.Join(containerPath, WorktreeDirName(branch))
		if err := gitdriver.WorktreeAdd(ctx, bareDir, worktreeDir, branch, true); err != nil {
			// Partial result left on disk by design (§4.5 step 4) — a
			// subsequent doctor/materialize pass reconciles it, not a
			// rollback here.
			return nil, err
		}
		entry := manifest.WorktreeEntry{Branch: branch, Path: WorktreeDirName(branch)}
		b.Worktrees = append(b.Worktrees, entry)
		result.Added = append(result.Added, entry)
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := manifest.WriteBaum(containerPath, b); err != nil {
		return nil, err
	}

	if err := writeContainerGitignore(containerPath, b); err != nil {
		return nil, err
	}

	if isPartialClone(ctx, bareDir) {
		result.Warnings = append(result.Warnings, walderr.Warning{
			Kind:    walderr.KindPartialCloneWarning,
			Message: fmt.Sprintf("%s is a partial clone; first access of unfetched blobs requires network", id),
		})
	}

	return result, nil
}

// Branch adds a single branch to an existing baum; equivalent to Plant
// with one requested branch against a pre-existing container.
func Branch(ctx context.Context, workspaceRoot, containerPath string, reg repoid.Registry, branch string) (*PlantResult, error) {
	if !manifest.BaumExists(containerPath) {
		return nil, walderr.New(walderr.KindBaumNotFound, "%s is not a baum", containerPath)
	}
	b, err := manifest.ReadBaum(containerPath)
	if err != nil {
		return nil, err
	}
	return Plant(ctx, workspaceRoot, containerPath, reg, b.RepoID, []string{branch})
}

// PruneResult reports per-branch outcomes of a prune call.
type PruneResult struct {
	Removed  []string
	Warnings []walderr.Warning
}

// Prune removes the given branches' worktrees from the baum at
// containerPath. Branches absent from the manifest are recorded as a
// warning and skipped, not an error. The manifest is written once,
// after the whole per-branch loop, so a mid-loop failure leaves the
// manifest consistent only for the branches fully processed before it
// (§4.5 prune; open question 1 in DESIGN.md — doctor reconciles the
// tail on a crash).
func Prune(ctx context.Context, containerPath string, branches []string, force bool) (*PruneResult, error) {
	b, err := manifest.ReadBaum(containerPath)
	if err != nil {
		return nil, err
	}
	id, err := repoid.Parse(b.RepoID)
	if err != nil {
		return nil, walderr.Wrap(walderr.KindInvalidBaumManifest, err, "baum at %s has an invalid repo_id", containerPath)
	}
	workspaceRoot, err := workspaceRootAbove(containerPath)
	if err != nil {
		return nil, err
	}
	bareDir := id.BarePath(workspaceRoot)

	result := &PruneResult{}
	var loopErr error
	for _, branch := range branches {
		entry, ok := b.EntryForBranch(branch)
		if !ok {
			result.Warnings = append(result.Warnings, walderr.Warning{
				Kind:    walderr.KindMissingWorktreeWarning,
				Message: fmt.Sprintf("branch %q is not declared in %s", branch, containerPath),
			})
			continue
		}
		worktreeDir := filepath.Join(containerPath, entry.Path)
		if err := gitdriver.WorktreeRemove(ctx, bareDir, worktreeDir, force); err != nil {
			loopErr = err
			break
		}
		b.RemoveBranch(branch)
		result.Removed = append(result.Removed, branch)
	}

	if err := manifest.WriteBaum(containerPath, b); err != nil {
		return result, err
	}
	if err := writeContainerGitignore(containerPath, b); err != nil {
		return result, err
	}
	return result, loopErr
}

// Uproot removes every declared worktree and deletes the whole
// container. The workspace manifest's repo registry entry and the
// bare repo are left untouched (§4.5 uproot).
func Uproot(ctx context.Context, containerPath string, force bool) error {
	b, err := manifest.ReadBaum(containerPath)
	if err != nil {
		return err
	}
	id, err := repoid.Parse(b.RepoID)
	if err != nil {
		return walderr.Wrap(walderr.KindInvalidBaumManifest, err, "baum at %s has an invalid repo_id", containerPath)
	}
	workspaceRoot, err := workspaceRootAbove(containerPath)
	if err != nil {
		return err
	}
	bareDir := id.BarePath(workspaceRoot)

	for _, wt := range b.Worktrees {
		worktreeDir := filepath.Join(containerPath, wt.Path)
		if err := gitdriver.WorktreeRemove(ctx, bareDir, worktreeDir, force); err != nil {
			return err
		}
	}
	return os.RemoveAll(containerPath)
}

// Move atomically relocates a baum directory from src to dst using a
// tracked rename ("git mv"), so the workspace history records a
// rename of <src>/.baum/manifest.yaml — the signal the move detector
// looks for on other machines (§4.5 move). Afterward, each worktree's
// absolute path in the bare repo's registry is rewritten to the new
// location, since git's directory rename alone does not update it.
func Move(ctx context.Context, workspaceRoot, src, dst string) error {
	if err := ensureInsideWorkspace(workspaceRoot, src); err != nil {
		return err
	}
	if err := ensureInsideWorkspace(workspaceRoot, dst); err != nil {
		return err
	}
	src, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	dst, err = filepath.Abs(dst)
	if err != nil {
		return err
	}
	if !manifest.BaumExists(src) {
		return walderr.New(walderr.KindBaumNotFound, "%s is not a baum", src)
	}
	if _, err := os.Stat(dst); err == nil {
		return walderr.New(walderr.KindDestinationExists, "%s already exists", dst)
	}

	b, err := manifest.ReadBaum(src)
	if err != nil {
		return err
	}
	id, err := repoid.Parse(b.RepoID)
	if err != nil {
		return walderr.Wrap(walderr.KindInvalidBaumManifest, err, "baum at %s has an invalid repo_id", src)
	}

	if err := gitdriver.RenameTracked(ctx, workspaceRoot, src, dst); err != nil {
		return err
	}

	bareDir := id.BarePath(workspaceRoot)
	var absPaths []string
	for _, wt := range b.Worktrees {
		absPaths = append(absPaths, filepath.Join(dst, wt.Path))
	}
	if len(absPaths) > 0 {
		if err := gitdriver.WorktreeRepair(ctx, bareDir, absPaths...); err != nil {
			return err
		}
	}
	return nil
}

// writeContainerGitignore rewrites the baum's .gitignore block to list
// every currently-declared worktree directory.
func writeContainerGitignore(containerPath string, b *manifest.Baum) error {
	names := make([]string, 0, len(b.Worktrees))
	for _, wt := range b.Worktrees {
		names = append(names, wt.Path)
	}
	sort.Strings(names)
	return gitignore.EnsureBlock(filepath.Join(containerPath, ".gitignore"), names)
}

// workspaceRootAbove walks upward from start looking for a .wald
// directory. Prune and Uproot are reached via containerPath alone and must
// rediscover the owning workspace to resolve the bare repo path.
func workspaceRootAbove(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, ".wald")); err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", walderr.New(walderr.KindBaumNotFound, "no workspace found above %s", start)
		}
		dir = parent
	}
}

// isPartialClone reports whether the bare repo at bareDir has the
// promisor remote config set.
func isPartialClone(ctx context.Context, bareDir string) bool {
	value, err := gitdriver.ConfigGet(ctx, bareDir, "remote.origin.promisor")
	return err == nil && value == "true"
}
