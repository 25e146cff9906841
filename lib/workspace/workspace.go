// Package workspace implements C10: discovering a workspace root by
// walking upward for a .wald directory, and bootstrapping a new one —
// creating the .wald/ layout, the empty manifest/config/state files,
// and the workspace-root wald-managed .gitignore block.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/FordUniver/wald/lib/gitignore"
	"github.com/FordUniver/wald/lib/manifest"
	"github.com/FordUniver/wald/lib/walderr"
)

// WaldDir is the name of a workspace's metadata directory.
const WaldDir = ".wald"

// reposSubdir is the gitignored directory holding every bare repo.
const reposSubdir = "repos"

// ReposDir returns the bare-repo store directory under a workspace root.
func ReposDir(root string) string {
	return filepath.Join(root, WaldDir, reposSubdir)
}

// IgnoreBlockLines are the lines wald manages inside a workspace root's
// .gitignore (§6 ".gitignore block").
var IgnoreBlockLines = []string{
	WaldDir + "/" + reposSubdir + "/",
	WaldDir + "/state.yaml",
	"*_*.wt/",
}

// Discover walks upward from start looking for a directory containing
// .wald/. Returns the workspace root, or an error if none is found
// before reaching the filesystem root.
func Discover(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		if hasWaldDir(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no wald workspace found above %s (no ancestor has a %s directory)", start, WaldDir)
		}
		dir = parent
	}
}

func hasWaldDir(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, WaldDir))
	return err == nil && info.IsDir()
}

// hasNestedAncestorWorkspace reports whether any strict ancestor of
// path already holds its own .wald directory — the "workspace may not
// be nested inside another workspace" invariant (§3).
func hasNestedAncestorWorkspace(path string) (string, bool, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return "", false, err
	}
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
		if hasWaldDir(dir) {
			return dir, true, nil
		}
	}
}

// InitResult reports what Init created, for CLI reporting.
type InitResult struct {
	Root               string
	CreatedWaldDir     bool
	NotAGitRepoWarning bool
}

// Init bootstraps a new workspace at path: creates .wald/, .wald/repos/,
// an empty manifest, the default config, an empty state file, and
// ensures the root .gitignore carries exactly one wald-managed block —
// idempotent even across repeated "init --force" calls (§8 property 4,
// §4.10 step 4).
func Init(path string, force bool) (*InitResult, error) {
	waldDir := filepath.Join(path, WaldDir)
	alreadyInitialized := hasWaldDir(path)
	if alreadyInitialized && !force {
		return nil, walderr.New(walderr.KindAlreadyInitialized, "%s is already a wald workspace", path)
	}

	if ancestor, nested, err := hasNestedAncestorWorkspace(path); err != nil {
		return nil, err
	} else if nested {
		return nil, walderr.New(walderr.KindNestedWorkspace, "%s is inside an existing workspace at %s", path, ancestor)
	}

	if err := os.MkdirAll(ReposDir(path), 0o755); err != nil {
		return nil, walderr.Wrap(walderr.KindManifestWriteFailed, err, "creating %s", ReposDir(path))
	}

	if !manifestExists(manifest.WorkspacePath(path)) {
		if err := manifest.WriteWorkspace(path, manifest.NewWorkspace()); err != nil {
			return nil, err
		}
	}
	if !manifestExists(manifest.ConfigPath(path)) {
		if err := manifest.WriteConfig(path, manifest.DefaultConfig()); err != nil {
			return nil, err
		}
	}
	statePath := filepath.Join(waldDir, "state.yaml")
	if !manifestExists(statePath) {
		if err := os.WriteFile(statePath, nil, 0o644); err != nil {
			return nil, walderr.Wrap(walderr.KindManifestWriteFailed, err, "creating %s", statePath)
		}
	}

	if err := gitignore.EnsureBlock(filepath.Join(path, ".gitignore"), IgnoreBlockLines); err != nil {
		return nil, walderr.Wrap(walderr.KindManifestWriteFailed, err, "updating %s", filepath.Join(path, ".gitignore"))
	}

	result := &InitResult{Root: path, CreatedWaldDir: !alreadyInitialized}
	if !isGitRepo(path) {
		result.NotAGitRepoWarning = true
	}
	return result, nil
}

func manifestExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isGitRepo(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && info.IsDir()
}
