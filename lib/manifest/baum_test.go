package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBaumValidateRejectsDuplicateBranch(t *testing.T) {
	t.Parallel()

	b := &Baum{
		RepoID: "github.com/test/repo",
		Worktrees: []WorktreeEntry{
			{Branch: "main", Path: "_main.wt"},
			{Branch: "main", Path: "_main2.wt"},
		},
	}
	if err := b.Validate(); err == nil {
		t.Fatal("expected error for duplicate branch")
	}
}

func TestBaumHasBranchAndEntryForBranch(t *testing.T) {
	t.Parallel()

	b := &Baum{Worktrees: []WorktreeEntry{{Branch: "main", Path: "_main.wt"}}}
	if !b.HasBranch("main") {
		t.Error("HasBranch(main) = false")
	}
	if b.HasBranch("feature") {
		t.Error("HasBranch(feature) = true")
	}
	entry, ok := b.EntryForBranch("main")
	if !ok || entry.Path != "_main.wt" {
		t.Errorf("EntryForBranch(main) = %+v, %v", entry, ok)
	}
	if _, ok := b.EntryForBranch("nope"); ok {
		t.Error("EntryForBranch(nope) found an entry")
	}
}

func TestBaumRemoveBranchPreservesOrder(t *testing.T) {
	t.Parallel()

	b := &Baum{Worktrees: []WorktreeEntry{
		{Branch: "a", Path: "_a.wt"},
		{Branch: "b", Path: "_b.wt"},
		{Branch: "c", Path: "_c.wt"},
	}}
	b.RemoveBranch("b")
	if len(b.Worktrees) != 2 || b.Worktrees[0].Branch != "a" || b.Worktrees[1].Branch != "c" {
		t.Errorf("Worktrees = %+v, want [a, c] in order", b.Worktrees)
	}
}

func TestReadBaumMissingReturnsNotExist(t *testing.T) {
	t.Parallel()

	_, err := ReadBaum(filepath.Join(t.TempDir(), "no-such-container"))
	if !os.IsNotExist(err) {
		t.Errorf("err = %v, want os.IsNotExist", err)
	}
}

func TestReadBaumRejectsCorruptManifest(t *testing.T) {
	t.Parallel()

	container := t.TempDir()
	if err := os.MkdirAll(BaumDir(container), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(BaumManifestPath(container), []byte(":::not yaml:::"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadBaum(container); err == nil {
		t.Fatal("expected error parsing corrupt manifest")
	}
}

func TestWriteBaumRoundTrip(t *testing.T) {
	t.Parallel()

	container := t.TempDir()
	want := &Baum{
		RepoID:    "github.com/test/repo",
		Worktrees: []WorktreeEntry{{Branch: "main", Path: "_main.wt"}},
	}
	if err := WriteBaum(container, want); err != nil {
		t.Fatalf("WriteBaum: %v", err)
	}
	got, err := ReadBaum(container)
	if err != nil {
		t.Fatalf("ReadBaum: %v", err)
	}
	if got.RepoID != want.RepoID || len(got.Worktrees) != 1 || got.Worktrees[0] != want.Worktrees[0] {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestUpdateBaumAppliesAndValidates(t *testing.T) {
	t.Parallel()

	container := t.TempDir()
	if err := WriteBaum(container, &Baum{RepoID: "github.com/test/repo"}); err != nil {
		t.Fatal(err)
	}

	err := UpdateBaum(container, func(b *Baum) error {
		b.Worktrees = append(b.Worktrees, WorktreeEntry{Branch: "main", Path: "_main.wt"})
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateBaum: %v", err)
	}

	got, err := ReadBaum(container)
	if err != nil {
		t.Fatal(err)
	}
	if !got.HasBranch("main") {
		t.Error("UpdateBaum did not persist the new branch")
	}

	err = UpdateBaum(container, func(b *Baum) error {
		b.Worktrees = append(b.Worktrees, WorktreeEntry{Branch: "main", Path: "_dup.wt"})
		return nil
	})
	if err == nil {
		t.Fatal("expected UpdateBaum to reject a duplicate branch via Validate")
	}
}
