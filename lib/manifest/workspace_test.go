package manifest

import (
	"os"
	"testing"

	"github.com/FordUniver/wald/lib/walderr"
)

func TestParseDepth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Depth
		wantErr bool
	}{
		{"full", DepthFull, false},
		{"100", Depth{Value: 100}, false},
		{"1", Depth{Value: 1}, false},
		{"0", Depth{}, true},
		{"-3", Depth{}, true},
		{"not-a-number", Depth{}, true},
	}
	for _, test := range tests {
		got, err := ParseDepth(test.in)
		if test.wantErr {
			if err == nil {
				t.Errorf("ParseDepth(%q) = %v, want error", test.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDepth(%q): %v", test.in, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseDepth(%q) = %+v, want %+v", test.in, got, test.want)
		}
	}
}

func TestDepthString(t *testing.T) {
	t.Parallel()

	if got := DepthFull.String(); got != "full" {
		t.Errorf("DepthFull.String() = %q, want %q", got, "full")
	}
	if got := (Depth{Value: 42}).String(); got != "42" {
		t.Errorf("Depth{42}.String() = %q, want %q", got, "42")
	}
}

func TestDepthYAMLRoundTrip(t *testing.T) {
	t.Parallel()

	container := t.TempDir()
	want := &RepoEntry{LFS: LFSMinimal, Depth: Depth{Value: 50}, Filter: FilterNone}
	if err := writeAtomic(WorkspacePath(container), want); err != nil {
		t.Fatalf("writeAtomic: %v", err)
	}
	got := &RepoEntry{}
	if err := readYAML(WorkspacePath(container), got); err != nil {
		t.Fatalf("readYAML: %v", err)
	}
	if got.Depth != want.Depth {
		t.Errorf("Depth round trip = %+v, want %+v", got.Depth, want.Depth)
	}

	full := &RepoEntry{LFS: LFSFull, Depth: DepthFull, Filter: FilterNone}
	if err := writeAtomic(WorkspacePath(container), full); err != nil {
		t.Fatalf("writeAtomic: %v", err)
	}
	gotFull := &RepoEntry{}
	if err := readYAML(WorkspacePath(container), gotFull); err != nil {
		t.Fatalf("readYAML: %v", err)
	}
	if gotFull.Depth != DepthFull {
		t.Errorf("Depth round trip = %+v, want DepthFull", gotFull.Depth)
	}
}

func TestDepthUnmarshalRejectsNonPositiveInt(t *testing.T) {
	t.Parallel()

	container := t.TempDir()
	path := WorkspacePath(container)
	if err := os.MkdirAll(container+"/.wald", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("lfs: minimal\ndepth: 0\nfilter: none\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got := &RepoEntry{}
	if err := readYAML(path, got); err == nil {
		t.Fatal("expected error unmarshaling depth: 0")
	}
}

func TestRepoEntryValidate(t *testing.T) {
	t.Parallel()

	valid := RepoEntry{LFS: LFSMinimal, Depth: DepthFull, Filter: FilterBlobNone}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() on a valid entry: %v", err)
	}

	badLFS := RepoEntry{LFS: "bogus", Filter: FilterNone}
	if err := badLFS.Validate(); !walderr.IsKind(err, walderr.KindInvalidWorkspaceManifest) {
		t.Errorf("Validate() bad lfs = %v, want KindInvalidWorkspaceManifest", err)
	}

	badFilter := RepoEntry{LFS: LFSNone, Filter: "bogus"}
	if err := badFilter.Validate(); !walderr.IsKind(err, walderr.KindInvalidFilter) {
		t.Errorf("Validate() bad filter = %v, want KindInvalidFilter", err)
	}

	emptyAlias := RepoEntry{LFS: LFSNone, Filter: FilterNone, Aliases: []string{""}}
	if err := emptyAlias.Validate(); !walderr.IsKind(err, walderr.KindInvalidWorkspaceManifest) {
		t.Errorf("Validate() empty alias = %v, want KindInvalidWorkspaceManifest", err)
	}
}

func TestWorkspaceRepoIDsSorted(t *testing.T) {
	t.Parallel()

	w := NewWorkspace()
	w.Repos["github.com/z/last"] = &RepoEntry{}
	w.Repos["github.com/a/first"] = &RepoEntry{}
	ids := w.RepoIDs()
	if len(ids) != 2 || ids[0] != "github.com/a/first" || ids[1] != "github.com/z/last" {
		t.Errorf("RepoIDs() = %v, want sorted order", ids)
	}
}

func TestWorkspaceAliasTargets(t *testing.T) {
	t.Parallel()

	w := NewWorkspace()
	w.Repos["github.com/acme/widgets"] = &RepoEntry{Aliases: []string{"widgets", "w"}}
	targets := w.AliasTargets()
	if targets["widgets"] != "github.com/acme/widgets" || targets["w"] != "github.com/acme/widgets" {
		t.Errorf("AliasTargets() = %v", targets)
	}
}

func TestWorkspaceValidateAliasesRejectsAliasCollisionWithRepoID(t *testing.T) {
	t.Parallel()

	w := NewWorkspace()
	w.Repos["github.com/acme/widgets"] = &RepoEntry{}
	w.Repos["github.com/acme/gadgets"] = &RepoEntry{Aliases: []string{"github.com/acme/widgets"}}
	if err := w.ValidateAliases(); !walderr.IsKind(err, walderr.KindAliasAlreadyUsed) {
		t.Errorf("ValidateAliases() = %v, want KindAliasAlreadyUsed", err)
	}
}

func TestWorkspaceValidateAliasesRejectsDuplicateAlias(t *testing.T) {
	t.Parallel()

	w := NewWorkspace()
	w.Repos["github.com/acme/widgets"] = &RepoEntry{Aliases: []string{"w"}}
	w.Repos["github.com/acme/gadgets"] = &RepoEntry{Aliases: []string{"w"}}
	if err := w.ValidateAliases(); !walderr.IsKind(err, walderr.KindAliasAlreadyUsed) {
		t.Errorf("ValidateAliases() = %v, want KindAliasAlreadyUsed", err)
	}
}

func TestReadWorkspaceMissingReturnsEmpty(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w, err := ReadWorkspace(root)
	if err != nil {
		t.Fatalf("ReadWorkspace: %v", err)
	}
	if len(w.Repos) != 0 {
		t.Errorf("Repos = %v, want empty", w.Repos)
	}
}

func TestWriteWorkspaceSortsKeysOnDisk(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.MkdirAll(root+"/.wald", 0o755); err != nil {
		t.Fatal(err)
	}
	w := NewWorkspace()
	w.Repos["github.com/z/last"] = &RepoEntry{LFS: LFSNone, Depth: DepthFull, Filter: FilterNone}
	w.Repos["github.com/a/first"] = &RepoEntry{LFS: LFSNone, Depth: DepthFull, Filter: FilterNone}
	if err := WriteWorkspace(root, w); err != nil {
		t.Fatalf("WriteWorkspace: %v", err)
	}

	data, err := os.ReadFile(WorkspacePath(root))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	firstIdx := indexOf(content, "github.com/a/first")
	lastIdx := indexOf(content, "github.com/z/last")
	if firstIdx < 0 || lastIdx < 0 || firstIdx > lastIdx {
		t.Errorf("manifest not sorted lexicographically:\n%s", content)
	}
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func TestUpdateWorkspaceAppliesAndValidates(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.MkdirAll(root+"/.wald", 0o755); err != nil {
		t.Fatal(err)
	}

	err := UpdateWorkspace(root, func(w *Workspace) error {
		w.Repos["github.com/acme/widgets"] = &RepoEntry{LFS: LFSMinimal, Depth: DepthFull, Filter: FilterNone}
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateWorkspace: %v", err)
	}

	w, err := ReadWorkspace(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := w.Repos["github.com/acme/widgets"]; !ok {
		t.Error("UpdateWorkspace did not persist the new entry")
	}

	err = UpdateWorkspace(root, func(w *Workspace) error {
		w.Repos["github.com/acme/gadgets"] = &RepoEntry{Aliases: []string{"github.com/acme/widgets"}}
		return nil
	})
	if !walderr.IsKind(err, walderr.KindAliasAlreadyUsed) {
		t.Errorf("UpdateWorkspace with colliding alias = %v, want KindAliasAlreadyUsed", err)
	}
}

func TestReadConfigDefaultsWhenAbsent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	c, err := ReadConfig(root)
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if c.DefaultLFS != LFSMinimal || c.DefaultDepth != (Depth{Value: 100}) {
		t.Errorf("ReadConfig() on absent file = %+v, want DefaultConfig()", c)
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.MkdirAll(root+"/.wald", 0o755); err != nil {
		t.Fatal(err)
	}
	want := &Config{DefaultLFS: LFSFull, DefaultDepth: DepthFull}
	if err := WriteConfig(root, want); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	got, err := ReadConfig(root)
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if got.DefaultLFS != want.DefaultLFS || got.DefaultDepth != want.DefaultDepth {
		t.Errorf("Config round trip = %+v, want %+v", got, want)
	}
}
