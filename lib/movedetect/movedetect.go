// Package movedetect implements C6: given two workspace commits,
// return the baum renames between them. It is a thin filter over
// gitdriver's rename-aware diff, restricted to paths named
// ".baum/manifest.yaml" — everything else in the diff is irrelevant to
// move replay and ignored here.
package movedetect

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/FordUniver/wald/lib/gitdriver"
)

// Move is one detected baum rename: the container directory moved from
// Old to New.
type Move struct {
	Old string
	New string
}

const manifestSuffix = ".baum/manifest.yaml"

// Detect returns every baum rename in the first-parent history between
// from and to. An add/delete pair that falls below git's similarity
// threshold is not a rename and is intentionally absent from this
// result — it will show up to the sync engine as a separate Appeared
// and Vanished event (§4.6, §8 property 7).
func Detect(ctx context.Context, workspaceDir, from, to string) ([]Move, error) {
	entries, err := gitdriver.Diff(ctx, workspaceDir, from, to, "*"+manifestSuffix)
	if err != nil {
		return nil, err
	}
	var moves []Move
	for _, e := range entries {
		if e.Status != gitdriver.DiffRenamed {
			continue
		}
		if !strings.HasSuffix(e.OldPath, manifestSuffix) || !strings.HasSuffix(e.NewPath, manifestSuffix) {
			continue
		}
		moves = append(moves, Move{
			Old: baumDirOf(e.OldPath),
			New: baumDirOf(e.NewPath),
		})
	}
	return moves, nil
}

// baumDirOf returns the baum container directory for a
// ".../.baum/manifest.yaml" path: the grandparent of manifest.yaml.
func baumDirOf(manifestPath string) string {
	return filepath.Dir(filepath.Dir(manifestPath))
}
