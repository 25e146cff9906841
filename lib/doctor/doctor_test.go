package doctor

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/FordUniver/wald/lib/baum"
	"github.com/FordUniver/wald/lib/manifest"
	"github.com/FordUniver/wald/lib/repoid"
	"github.com/FordUniver/wald/lib/workspace"
)

type fakeRegistry struct{ id string }

func (f fakeRegistry) RepoIDs() []string { return []string{f.id} }
func (f fakeRegistry) AliasTargets() map[string]string { return nil }

func runGit(t *testing.T, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

// newWorkspaceWithBareRepo initializes a workspace and a registered
// bare repo with a "main" branch, returning the root and the repo id.
func newWorkspaceWithBareRepo(t *testing.T) (root string, id repoid.ID) {
	t.Helper()

	root = t.TempDir()
	if _, err := workspace.Init(root, false); err != nil {
		t.Fatalf("workspace.Init: %v", err)
	}

	id, err := repoid.Parse("github.com/test/repo")
	if err != nil {
		t.Fatal(err)
	}
	bareDir := id.BarePath(root)
	if err := os.MkdirAll(filepath.Dir(bareDir), 0o755); err != nil {
		t.Fatal(err)
	}
	runGit(t, "init", "--bare", bareDir)

	seed := filepath.Join(t.TempDir(), "seed")
	runGit(t, "clone", bareDir, seed)
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

	err = manifest.UpdateWorkspace(root, func(w *manifest.Workspace) error {
		w.Repos[id.String()] = &manifest.RepoEntry{LFS: manifest.LFSMinimal, Depth: manifest.DepthFull, Filter: manifest.FilterNone}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	return root, id
}

func TestCheckCleanWorkspacePasses(t *testing.T) {
	t.Parallel()

	root, _ := newWorkspaceWithBareRepo(t)

	results, err := Check(context.Background(), root)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !OK(results) {
		t.Errorf("Check() found failures on a clean workspace: %+v", results)
	}
}

func TestCheckDetectsMissingReposDirAndFixes(t *testing.T) {
	t.Parallel()

	root, _ := newWorkspaceWithBareRepo(t)
	if err := os.RemoveAll(workspace.ReposDir(root)); err != nil {
		t.Fatal(err)
	}

	results, err := Check(context.Background(), root)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if OK(results) {
		t.Fatal("expected Check to report the missing repos dir")
	}

	outcome := ExecuteFixes(context.Background(), results, false)
	if outcome.FixedCount != 1 {
		t.Errorf("FixedCount = %d, want 1", outcome.FixedCount)
	}
	if _, err := os.Stat(workspace.ReposDir(root)); err != nil {
		t.Errorf("repos dir not recreated: %v", err)
	}
}

func TestExecuteFixesDryRunLeavesFailuresUntouched(t *testing.T) {
	t.Parallel()

	root, _ := newWorkspaceWithBareRepo(t)
	if err := os.RemoveAll(workspace.ReposDir(root)); err != nil {
		t.Fatal(err)
	}

	results, err := Check(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	outcome := ExecuteFixes(context.Background(), results, true)
	if outcome.FixedCount != 0 {
		t.Errorf("FixedCount = %d, want 0 for a dry run", outcome.FixedCount)
	}
	if OK(results) {
		t.Fatal("dry run should leave the failure in place")
	}
}

func TestCheckWarnsOnUnregisteredBareRepo(t *testing.T) {
	t.Parallel()

	root, id := newWorkspaceWithBareRepo(t)
	if err := manifest.UpdateWorkspace(root, func(w *manifest.Workspace) error {
		delete(w.Repos, id.String())
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	results, err := Check(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, r := range results {
		if r.Status == StatusWarn && r.Name == "unregistered-bare-repo:"+id.String() {
			found = true
		}
	}
	if !found {
		t.Errorf("results = %+v, want a warning for the unregistered bare repo", results)
	}
}

func TestCheckWarnsOnMissingBareRepo(t *testing.T) {
	t.Parallel()

	root, id := newWorkspaceWithBareRepo(t)
	if err := os.RemoveAll(id.BarePath(root)); err != nil {
		t.Fatal(err)
	}

	results, err := Check(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, r := range results {
		if r.Status == StatusWarn && r.Name == "bare-repo-missing:"+id.String() {
			found = true
		}
	}
	if !found {
		t.Errorf("results = %+v, want a warning for the missing bare repo", results)
	}
}

func TestCheckDetectsMissingWorktreeAndFixes(t *testing.T) {
	t.Parallel()

	root, id := newWorkspaceWithBareRepo(t)
	reg := fakeRegistry{id: id.String()}
	containerPath := filepath.Join(root, "container")
	if _, err := baum.Plant(context.Background(), root, containerPath, reg, id.String(), []string{"main"}); err != nil {
		t.Fatalf("Plant: %v", err)
	}

	worktreeDir := filepath.Join(containerPath, baum.WorktreeDirName("main"))
	if err := os.RemoveAll(worktreeDir); err != nil {
		t.Fatal(err)
	}

	results, err := Check(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if OK(results) {
		t.Fatal("expected Check to detect the missing worktree")
	}

	outcome := ExecuteFixes(context.Background(), results, false)
	if outcome.FixedCount == 0 {
		t.Error("ExecuteFixes did not repair the missing worktree")
	}
	if _, err := os.Stat(filepath.Join(worktreeDir, "README")); err != nil {
		t.Errorf("worktree not materialized: %v", err)
	}
}

func TestCheckWarnsOnUndeclaredWorktree(t *testing.T) {
	t.Parallel()

	root, id := newWorkspaceWithBareRepo(t)
	reg := fakeRegistry{id: id.String()}
	containerPath := filepath.Join(root, "container")
	if _, err := baum.Plant(context.Background(), root, containerPath, reg, id.String(), []string{"main"}); err != nil {
		t.Fatalf("Plant: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(containerPath, "stray"), 0o755); err != nil {
		t.Fatal(err)
	}

	results, err := Check(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, r := range results {
		if r.Status == StatusWarn && r.Name == "undeclared-worktree:container/stray" {
			found = true
		}
	}
	if !found {
		t.Errorf("results = %+v, want a warning for the undeclared directory", results)
	}
}

func TestDiscoverBaumContainersSkipsWaldAndGit(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mustMkBaum := func(rel string) {
		dir := filepath.Join(root, rel, ".baum")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte("repo_id: x\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	mustMkBaum("real-container")
	mustMkBaum(filepath.Join(".wald", "should-be-skipped"))
	mustMkBaum(filepath.Join(".git", "should-be-skipped"))

	containers, err := DiscoverBaumContainers(root)
	if err != nil {
		t.Fatalf("DiscoverBaumContainers: %v", err)
	}
	if len(containers) != 1 || filepath.Base(containers[0]) != "real-container" {
		t.Errorf("containers = %v, want exactly [real-container]", containers)
	}
}
