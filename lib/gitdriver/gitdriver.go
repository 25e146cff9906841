// Package gitdriver provides typed access to the git CLI for every
// subprocess invocation wald performs: bare clones, fetches, worktree
// management, rename-detecting diffs, and workspace rebase/push. All
// commands target a specific directory via "-C", mirroring the
// teacher's lib/git package — there is no default directory, callers
// always say which repository they mean. No operation retries or
// swallows a failure; every non-zero exit becomes a
// walderr.KindGitCommandFailed carrying the exit code and stderr.
package gitdriver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/FordUniver/wald/lib/manifest"
	"github.com/FordUniver/wald/lib/walderr"
)

// Repository targets a single git directory (bare repo or worktree)
// via "git -C <dir>".
type Repository struct {
	dir string
}

// NewRepository returns a Repository targeting dir.
func NewRepository(dir string) *Repository { return &Repository{dir: dir} }

// Dir returns the directory this Repository targets.
func (r *Repository) Dir() string { return r.dir }

// run executes a git command against this repository and returns
// stdout. Stderr is captured separately and folded into the returned
// error, along with the process exit code.
func (r *Repository) run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	return runGit(ctx, r.dir, fullArgs)
}

// runGit executes "git <args>" with no implicit -C, for operations
// (clone, in particular) whose target directory does not exist yet.
// dirForError is recorded on the error for diagnostics only.
func runGit(ctx context.Context, dirForError string, args []string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return "", walderr.GitCommandFailed(args, dirForError, exitCode, strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}

// CloneOptions configures an initial bare clone.
type CloneOptions struct {
	Filter string // manifest.FilterNone/FilterBlobNone/FilterTreeZero
	Depth  manifest.Depth
}

// CloneBare creates dest as a bare clone of url, applying the recorded
// filter/depth policy. If filter is non-none, the promisor remote
// config is set explicitly (in addition to whatever --filter already
// configures) so the recorded policy survives a later "git remote"
// rewrite.
func CloneBare(ctx context.Context, url, dest string, opts CloneOptions) error {
	args := []string{"clone", "--bare"}
	if !opts.Depth.Full && opts.Depth.Value > 0 {
		args = append(args, "--depth", strconv.Itoa(opts.Depth.Value))
	}
	if opts.Filter != "" && opts.Filter != manifest.FilterNone {
		args = append(args, "--filter="+opts.Filter)
	}
	args = append(args, url, dest)
	if _, err := runGit(ctx, dest, args); err != nil {
		return err
	}
	if opts.Filter != "" && opts.Filter != manifest.FilterNone {
		repo := NewRepository(dest)
		if _, err := repo.run(ctx, "config", "remote.origin.promisor", "true"); err != nil {
			return err
		}
		if _, err := repo.run(ctx, "config", "remote.origin.partialclonefilter", opts.Filter); err != nil {
			return err
		}
	}
	return nil
}

// FetchOptions configures a fetch against a bare repo.
type FetchOptions struct {
	Prune bool
}

// Fetch advances refs in the bare repo at bareDir from origin.
func Fetch(ctx context.Context, bareDir string, opts FetchOptions) error {
	repo := NewRepository(bareDir)
	args := []string{"fetch", "origin"}
	if opts.Prune {
		args = append(args, "--prune")
	}
	_, err := repo.run(ctx, args...)
	return err
}

// ConvertToFull promotes a partial clone at bareDir to a full clone:
// an unfiltered fetch, followed by unconditionally clearing the
// promisor remote config. The clear runs even when the fetch fails —
// this is intentional (§9): a failed network attempt at promotion must
// not leave the repo permanently stuck half-promisor.
func ConvertToFull(ctx context.Context, bareDir string) error {
	repo := NewRepository(bareDir)
	_, fetchErr := repo.run(ctx, "fetch", "origin", "--no-filter", "--refetch")

	_, unsetPromisor := repo.run(ctx, "config", "--unset", "remote.origin.promisor")
	_, unsetFilter := repo.run(ctx, "config", "--unset", "remote.origin.partialclonefilter")
	// "config --unset" on an already-absent key exits 5; that is not a
	// failure worth surfacing here, the end state (no promisor config)
	// is what we want either way.
	_ = unsetPromisor
	_ = unsetFilter

	return fetchErr
}

// WorktreeInfo is one entry from "git worktree list --porcelain".
type WorktreeInfo struct {
	Path   string
	Head   string
	Branch string // refs/heads/<branch>, empty when detached
	Bare   bool
}

// WorktreeList returns the worktrees registered against the bare repo
// at bareDir, including the bare repo's own "worktree" entry.
func WorktreeList(ctx context.Context, bareDir string) ([]WorktreeInfo, error) {
	repo := NewRepository(bareDir)
	out, err := repo.run(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parseWorktreeList(out), nil
}

func parseWorktreeList(out string) []WorktreeInfo {
	var infos []WorktreeInfo
	var current WorktreeInfo
	flush := func() {
		if current.Path != "" {
			infos = append(infos, current)
		}
		current = WorktreeInfo{}
	}
	for _, line := range strings.Split(out, "\n") {
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			current.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "HEAD "):
			current.Head = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			current.Branch = strings.TrimPrefix(line, "branch ")
		case line == "bare":
			current.Bare = true
		}
	}
	flush()
	return infos
}

// branchExists reports whether branch already exists in the bare repo.
func branchExists(ctx context.Context, bareDir, branch string) bool {
	repo := NewRepository(bareDir)
	_, err := repo.run(ctx, "rev-parse", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

// WorktreeAdd registers worktreeDir as a worktree of the bare repo at
// bareDir, checked out to branch. If createIfMissing and branch does
// not yet exist, it is created pointing at the bare repo's HEAD.
func WorktreeAdd(ctx context.Context, bareDir, worktreeDir, branch string, createIfMissing bool) error {
	repo := NewRepository(bareDir)
	args := []string{"worktree", "add"}
	if createIfMissing && !branchExists(ctx, bareDir, branch) {
		args = append(args, "-b", branch, worktreeDir)
	} else {
		args = append(args, worktreeDir, branch)
	}
	_, err := repo.run(ctx, args...)
	return err
}

// WorktreeRemove deregisters and deletes worktreeDir. Fails with
// walderr.KindWorktreeRemoveFailed if the worktree has uncommitted
// changes, unless force is set.
func WorktreeRemove(ctx context.Context, bareDir, worktreeDir string, force bool) error {
	repo := NewRepository(bareDir)
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, worktreeDir)
	if _, err := repo.run(ctx, args...); err != nil {
		return walderr.Wrap(walderr.KindWorktreeRemoveFailed, err, "removing worktree %s", worktreeDir)
	}
	return nil
}

// WorktreeRepair rewrites the bare repo's worktree registry entries
// for the given absolute worktree paths after they have moved on disk
// — git's own "worktree repair". Idempotent: repairing already-correct
// paths is a no-op.
func WorktreeRepair(ctx context.Context, bareDir string, worktreeDirs ...string) error {
	repo := NewRepository(bareDir)
	args := append([]string{"worktree", "repair"}, worktreeDirs...)
	_, err := repo.run(ctx, args...)
	return err
}

// WorktreePrune removes stale administrative files for worktrees whose
// directory no longer exists.
func WorktreePrune(ctx context.Context, bareDir string) error {
	repo := NewRepository(bareDir)
	_, err := repo.run(ctx, "worktree", "prune")
	return err
}

// ConfigGet reads a single git config key from the repository at dir
// (bare or worktree). Returns an error if the key is unset.
func ConfigGet(ctx context.Context, dir, key string) (string, error) {
	repo := NewRepository(dir)
	out, err := repo.run(ctx, "config", "--get", key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Gc runs "git gc" against the bare repo at bareDir.
func Gc(ctx context.Context, bareDir string) error {
	repo := NewRepository(bareDir)
	_, err := repo.run(ctx, "gc")
	return err
}

// RenameTracked performs a tracked rename of the workspace directory
// entry src to dst, staging both sides of the rename in one operation
// ("git mv") so the resulting commit is legible to similarity-based
// rename detection. Fails if dst already exists.
func RenameTracked(ctx context.Context, workspaceDir, src, dst string) error {
	repo := NewRepository(workspaceDir)
	_, err := repo.run(ctx, "mv", src, dst)
	return err
}

// DiffStatus is a single-letter git diff status: A(dd), D(elete),
// M(odify), R(ename).
type DiffStatus string

const (
	DiffAdded    DiffStatus = "A"
	DiffDeleted  DiffStatus = "D"
	DiffModified DiffStatus = "M"
	DiffRenamed  DiffStatus = "R"
)

// DiffEntry is one line of a rename-aware diff. For non-renames,
// NewPath carries the path and OldPath is empty; for renames, both are
// populated and Similarity holds the detected percentage.
type DiffEntry struct {
	Status     DiffStatus
	OldPath    string
	NewPath    string
	Similarity int
}

// Diff returns the rename-aware diff between two commits (first-parent
// history only), restricted to paths matching pathFilter (a git
// pathspec). Rename detection uses git's similarity heuristic; an
// add/delete pair falling below the similarity threshold is reported
// as separate DiffAdded/DiffDeleted entries rather than one DiffRenamed
// entry — this is the "rename vs. delete+add" boundary the move
// detector (and the sync engine's classification) relies on.
func Diff(ctx context.Context, workspaceDir, from, to, pathFilter string) ([]DiffEntry, error) {
	repo := NewRepository(workspaceDir)
	args := []string{"diff", "--no-color", "-M", "--name-status", "--first-parent", from, to}
	if pathFilter != "" {
		args = append(args, "--", pathFilter)
	}
	out, err := repo.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseDiffNameStatus(out), nil
}

func parseDiffNameStatus(out string) []DiffEntry {
	var entries []DiffEntry
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		code := fields[0]
		switch {
		case strings.HasPrefix(code, "R"):
			if len(fields) < 3 {
				continue
			}
			similarity, _ := strconv.Atoi(strings.TrimPrefix(code, "R"))
			entries = append(entries, DiffEntry{
				Status: DiffRenamed, OldPath: fields[1], NewPath: fields[2], Similarity: similarity,
			})
		case strings.HasPrefix(code, "A"):
			entries = append(entries, DiffEntry{Status: DiffAdded, NewPath: fields[1]})
		case strings.HasPrefix(code, "D"):
			entries = append(entries, DiffEntry{Status: DiffDeleted, NewPath: fields[1]})
		case strings.HasPrefix(code, "M"):
			entries = append(entries, DiffEntry{Status: DiffModified, NewPath: fields[1]})
		}
	}
	return entries
}

// PullRebase rebases the workspace's current branch onto its upstream.
// With autostash, uncommitted changes are stashed before the rebase
// and reapplied after.
func PullRebase(ctx context.Context, workspaceDir string, autostash bool) error {
	repo := NewRepository(workspaceDir)
	args := []string{"pull", "--rebase"}
	if autostash {
		args = append(args, "--autostash")
	}
	_, err := repo.run(ctx, args...)
	return err
}

// Push pushes branch to origin.
func Push(ctx context.Context, workspaceDir, branch string) error {
	repo := NewRepository(workspaceDir)
	_, err := repo.run(ctx, "push", "origin", branch)
	return err
}

// FetchRemote fetches origin into the workspace repo without merging.
func FetchRemote(ctx context.Context, workspaceDir string) error {
	repo := NewRepository(workspaceDir)
	_, err := repo.run(ctx, "fetch", "origin")
	return err
}

// RevParse resolves rev to a commit hash.
func RevParse(ctx context.Context, workspaceDir, rev string) (string, error) {
	repo := NewRepository(workspaceDir)
	out, err := repo.run(ctx, "rev-parse", rev)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// StatusPorcelain returns "git status --porcelain" output for the
// workspace; an empty string means a clean tree.
func StatusPorcelain(ctx context.Context, workspaceDir string) (string, error) {
	repo := NewRepository(workspaceDir)
	out, err := repo.run(ctx, "status", "--porcelain")
	if err != nil {
		return "", err
	}
	return out, nil
}

// AheadBehind reports how many commits the workspace's current branch
// is ahead of and behind its upstream.
func AheadBehind(ctx context.Context, workspaceDir, branch, upstream string) (ahead, behind int, err error) {
	repo := NewRepository(workspaceDir)
	out, err := repo.run(ctx, "rev-list", "--left-right", "--count", branch+"..."+upstream)
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected rev-list --left-right --count output: %q", out)
	}
	ahead, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, err
	}
	behind, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, err
	}
	return ahead, behind, nil
}

// ShowFile returns the content of path as it existed at commit. Errors
// (including "path did not exist at that commit") surface as
// walderr.KindGitCommandFailed; callers that want to treat a missing
// path as "empty" should check for that explicitly.
func ShowFile(ctx context.Context, workspaceDir, commit, path string) (string, error) {
	repo := NewRepository(workspaceDir)
	return repo.run(ctx, "show", commit+":"+path)
}

// InitialCommit returns the root commit of ref's history (the commit
// with no parents). Used as the diff lower bound on a machine's first
// sync, when no last_sync is recorded yet.
func InitialCommit(ctx context.Context, workspaceDir, ref string) (string, error) {
	repo := NewRepository(workspaceDir)
	out, err := repo.run(ctx, "rev-list", "--max-parents=0", ref)
	if err != nil {
		return "", err
	}
	lines := strings.Fields(out)
	if len(lines) == 0 {
		return "", fmt.Errorf("no root commit found for %s", ref)
	}
	return lines[len(lines)-1], nil
}

// IsAncestor reports whether ancestor is an ancestor of (or equal to)
// descendant in the workspace's history — used to enforce last_sync
// monotonicity (§8 property 8).
func IsAncestor(ctx context.Context, workspaceDir, ancestor, descendant string) bool {
	repo := NewRepository(workspaceDir)
	_, err := repo.run(ctx, "merge-base", "--is-ancestor", ancestor, descendant)
	return err == nil
}
