package repodriver

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/FordUniver/wald/lib/manifest"
	"github.com/FordUniver/wald/lib/repoid"
)

func runGit(t *testing.T, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func TestCloneURLDerivesFromRepoID(t *testing.T) {
	t.Parallel()

	id, err := repoid.Parse("github.com/acme/widgets")
	if err != nil {
		t.Fatal(err)
	}
	got := cloneURL(id)
	want := "https://github.com/acme/widgets.git"
	if got != want {
		t.Errorf("cloneURL = %q, want %q", got, want)
	}
}

func TestCloneURLIgnoresUpstreamField(t *testing.T) {
	t.Parallel()

	// cloneURL takes a repoid.ID, not a RepoEntry, so there is no
	// Upstream field in scope at all — this documents that choice as
	// a regression guard rather than exercising new behavior.
	id, err := repoid.Parse("gitlab.com/org/team/repo")
	if err != nil {
		t.Fatal(err)
	}
	got := cloneURL(id)
	want := "https://gitlab.com/org/team/repo.git"
	if got != want {
		t.Errorf("cloneURL = %q, want %q", got, want)
	}
}

func TestFetchReturnsNotRegisteredError(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	reg := manifest.NewWorkspace()

	if _, err := Fetch(context.Background(), root, reg, "github.com/test/repo", false); err == nil {
		t.Fatal("expected error for an unregistered repo")
	}
}

func TestFetchSkipsCloneWhenBareRepoAlreadyExists(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	id, err := repoid.Parse("github.com/test/repo")
	if err != nil {
		t.Fatal(err)
	}

	upstream := filepath.Join(t.TempDir(), "upstream.git")
	runGit(t, "init", "--bare", upstream)
	seed := filepath.Join(t.TempDir(), "seed")
	runGit(t, "clone", upstream, seed)
	if err := os.WriteFile(filepath.Join(seed, "README"), []byte("hi\n"), 0644); err != nil {
		t.Fatal(err)
	}
	runGit(t, "-C", seed, "add", "README")
	cmd := exec.Command("git", "-C", seed, "commit", "-m", "initial", "--author", "Test <test@test.local>")
	cmd.Env = append(os.Environ(), "GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@test.local")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git commit: %v\n%s", err, out)
	}
	runGit(t, "-C", seed, "push", "origin", "HEAD:main")
	runGit(t, "-C", upstream, "symbolic-ref", "HEAD", "refs/heads/main")

	bareDir := id.BarePath(root)
	if err := os.MkdirAll(filepath.Dir(bareDir), 0o755); err != nil {
		t.Fatal(err)
	}
	// Pre-populate the bare repo as a clone of the local upstream — not
	// of cloneURL's derived https address, which would require network.
	runGit(t, "clone", "--bare", upstream, bareDir)

	reg := manifest.NewWorkspace()
	reg.Repos[id.String()] = &manifest.RepoEntry{LFS: manifest.LFSMinimal, Depth: manifest.DepthFull, Filter: manifest.FilterNone}

	result, err := Fetch(context.Background(), root, reg, id.String(), false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.Cloned {
		t.Error("Cloned = true, want false when the bare repo already existed")
	}
	if result.RepoID != id.String() {
		t.Errorf("RepoID = %q, want %q", result.RepoID, id.String())
	}
}

func TestGcFailsWhenBareRepoMissing(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	id, err := repoid.Parse("github.com/test/repo")
	if err != nil {
		t.Fatal(err)
	}
	reg := manifest.NewWorkspace()
	reg.Repos[id.String()] = &manifest.RepoEntry{LFS: manifest.LFSMinimal, Depth: manifest.DepthFull, Filter: manifest.FilterNone}

	if err := Gc(context.Background(), root, reg, id.String()); err == nil {
		t.Fatal("expected error when the bare repo does not exist")
	}
}

func TestGcSucceedsOnExistingBareRepo(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	id, err := repoid.Parse("github.com/test/repo")
	if err != nil {
		t.Fatal(err)
	}
	bareDir := id.BarePath(root)
	if err := os.MkdirAll(filepath.Dir(bareDir), 0o755); err != nil {
		t.Fatal(err)
	}
	runGit(t, "init", "--bare", bareDir)

	reg := manifest.NewWorkspace()
	reg.Repos[id.String()] = &manifest.RepoEntry{LFS: manifest.LFSMinimal, Depth: manifest.DepthFull, Filter: manifest.FilterNone}

	if err := Gc(context.Background(), root, reg, id.String()); err != nil {
		t.Fatalf("Gc: %v", err)
	}
}
