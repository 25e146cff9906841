package movedetect

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func run(t *testing.T, dir, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("%s %v: %v\n%s", name, args, err, out)
	}
}

func commit(t *testing.T, dir, message string) {
	t.Helper()
	cmd := exec.Command("git", "-C", dir, "commit", "-m", message, "--author", "Test <test@test.local>")
	cmd.Env = append(os.Environ(), "GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@test.local")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git commit: %v\n%s", err, out)
	}
}

func initWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run(t, dir, "git", "init", dir)
	run(t, dir, "git", "-C", dir, "config", "user.name", "Test")
	run(t, dir, "git", "-C", dir, "config", "user.email", "test@test.local")
	return dir
}

func writeBaumManifest(t *testing.T, dir string) {
	t.Helper()
	baumDir := filepath.Join(dir, ".baum")
	if err := os.MkdirAll(baumDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(baumDir, "manifest.yaml"), []byte("repo_id: github.com/test/repo\nworktrees: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDetectFindsBaumRename(t *testing.T) {
	t.Parallel()

	dir := initWorkspace(t)
	writeBaumManifest(t, filepath.Join(dir, "old-name"))
	run(t, dir, "git", "-C", dir, "add", "-A")
	commit(t, dir, "plant")

	run(t, dir, "git", "-C", dir, "mv", "old-name", "new-name")
	commit(t, dir, "rename container")

	moves, err := Detect(context.Background(), dir, "HEAD~1", "HEAD")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(moves) != 1 {
		t.Fatalf("moves = %+v, want one", moves)
	}
	if moves[0].Old != "old-name" || moves[0].New != "new-name" {
		t.Errorf("move = %+v, want old-name -> new-name", moves[0])
	}
}

func TestDetectIgnoresUnrelatedRename(t *testing.T) {
	t.Parallel()

	dir := initWorkspace(t)
	writeBaumManifest(t, filepath.Join(dir, "container"))
	if err := os.WriteFile(filepath.Join(dir, "container", "unrelated.txt"), []byte("some content that is long enough to matter for similarity\n"), 0644); err != nil {
		t.Fatal(err)
	}
	run(t, dir, "git", "-C", dir, "add", "-A")
	commit(t, dir, "plant")

	run(t, dir, "git", "-C", dir, "mv", "container/unrelated.txt", "container/renamed.txt")
	commit(t, dir, "rename a plain file, not the manifest")

	moves, err := Detect(context.Background(), dir, "HEAD~1", "HEAD")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(moves) != 0 {
		t.Errorf("moves = %+v, want none for a non-manifest rename", moves)
	}
}

func TestDetectNoMovesBetweenIdenticalCommits(t *testing.T) {
	t.Parallel()

	dir := initWorkspace(t)
	writeBaumManifest(t, filepath.Join(dir, "container"))
	run(t, dir, "git", "-C", dir, "add", "-A")
	commit(t, dir, "plant")

	moves, err := Detect(context.Background(), dir, "HEAD", "HEAD")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(moves) != 0 {
		t.Errorf("moves = %+v, want none", moves)
	}
}
