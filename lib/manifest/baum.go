package manifest

import (
	"os"
	"path/filepath"

	"github.com/FordUniver/wald/lib/walderr"
)

// WorktreeEntry is one declared {branch, path} pair in a baum manifest.
// Path is relative to the baum container directory.
type WorktreeEntry struct {
	Branch string `yaml:"branch"`
	Path   string `yaml:"path"`
}

// Baum is a baum container's tracked manifest (<container>/.baum/manifest.yaml).
type Baum struct {
	RepoID    string          `yaml:"repo_id"`
	Worktrees []WorktreeEntry `yaml:"worktrees"`
}

// Validate checks the single-baum invariant that no two entries share a
// branch.
func (b *Baum) Validate() error {
	seen := map[string]bool{}
	for _, wt := range b.Worktrees {
		if seen[wt.Branch] {
			return walderr.New(walderr.KindInvalidBaumManifest, "duplicate branch %q in baum manifest", wt.Branch)
		}
		seen[wt.Branch] = true
	}
	return nil
}

// HasBranch reports whether branch is already declared.
func (b *Baum) HasBranch(branch string) bool {
	for _, wt := range b.Worktrees {
		if wt.Branch == branch {
			return true
		}
	}
	return false
}

// EntryForBranch returns the entry for branch, if declared.
func (b *Baum) EntryForBranch(branch string) (WorktreeEntry, bool) {
	for _, wt := range b.Worktrees {
		if wt.Branch == branch {
			return wt, true
		}
	}
	return WorktreeEntry{}, false
}

// RemoveBranch removes the entry for branch, if present, preserving the
// declared order of the remaining entries.
func (b *Baum) RemoveBranch(branch string) {
	out := make([]WorktreeEntry, 0, len(b.Worktrees))
	for _, wt := range b.Worktrees {
		if wt.Branch != branch {
			out = append(out, wt)
		}
	}
	b.Worktrees = out
}

// BaumDir returns the .baum metadata directory for a container path.
func BaumDir(containerPath string) string {
	return filepath.Join(containerPath, ".baum")
}

// BaumManifestPath returns the baum manifest path for a container path.
func BaumManifestPath(containerPath string) string {
	return filepath.Join(BaumDir(containerPath), "manifest.yaml")
}

// BaumExists reports whether containerPath already has a baum manifest.
func BaumExists(containerPath string) bool {
	_, err := os.Stat(BaumManifestPath(containerPath))
	return err == nil
}

// ReadBaum reads and parses a baum manifest. Returns os.ErrNotExist
// (checkable with os.IsNotExist) when the container has not been
// planted yet, distinct from a parse failure, which is reported as
// walderr.KindInvalidBaumManifest.
func ReadBaum(containerPath string) (*Baum, error) {
	b := &Baum{}
	err := readYAML(BaumManifestPath(containerPath), b)
	if os.IsNotExist(err) {
		return nil, err
	}
	if err != nil {
		return nil, walderr.Wrap(walderr.KindInvalidBaumManifest, err, "parsing baum manifest at %s", containerPath)
	}
	return b, nil
}

// WriteBaum atomically writes a baum manifest.
func WriteBaum(containerPath string, b *Baum) error {
	return writeAtomic(BaumManifestPath(containerPath), b)
}

// UpdateBaum performs a load-modify-write cycle on an existing baum
// manifest: read, apply fn, validate, write back atomically.
func UpdateBaum(containerPath string, fn func(*Baum) error) error {
	b, err := ReadBaum(containerPath)
	if err != nil {
		return err
	}
	if err := fn(b); err != nil {
		return err
	}
	if err := b.Validate(); err != nil {
		return err
	}
	return WriteBaum(containerPath, b)
}
