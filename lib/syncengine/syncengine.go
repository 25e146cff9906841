// Package syncengine implements C8, the top-level reconciliation loop
// (spec.md §4.8): fetch the workspace, rebase, classify what changed
// in the baum/registry manifests between the last sync point and the
// new HEAD, replay baum moves, uproot vanished baums, materialize
// new/changed ones, and finally advance last_sync. Grounded on the
// teacher's cmd/bureau/cli/doctor per-item apply-and-record-outcome
// loop: a per-baum error is recorded but does not abort the remaining
// baums, the same way a failed doctor fix does not abort the rest of
// the run.
package syncengine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/FordUniver/wald/lib/gitdriver"
	"github.com/FordUniver/wald/lib/manifest"
	"github.com/FordUniver/wald/lib/materializer"
	"github.com/FordUniver/wald/lib/movedetect"
	"github.com/FordUniver/wald/lib/repoid"
	"github.com/FordUniver/wald/lib/state"
	"github.com/FordUniver/wald/lib/walderr"
	"gopkg.in/yaml.v3"
)

// Branch is the workspace repository's tracked branch. The spec fixes
// this as a precondition rather than a configurable value (§4.8).
const Branch = "main"

// Upstream is the tracked branch's upstream ref.
const Upstream = "origin/" + Branch

const (
	baumPathFilter = "*.baum/manifest.yaml"
	baumSuffix     = ".baum/manifest.yaml"
	registryPath   = ".wald/manifest.yaml"
)

// Options configures one sync invocation.
type Options struct {
	// Force allows a diverged (ahead+behind) workspace to proceed via
	// autostash + rebase instead of failing WorkspaceDiverged (§4.8 S1).
	Force bool
	// Autostash allows PullRebase to stash/reapply uncommitted changes
	// instead of failing WorkspaceDirty (§4.8 S0). Off by default,
	// matching the spec's "default off for safety against surprise
	// filesystem moves".
	Autostash bool
}

// BaumEventKind classifies one baum-level change detected in S4.
type BaumEventKind string

const (
	EventMove     BaumEventKind = "move"
	EventAppeared BaumEventKind = "appeared"
	EventVanished BaumEventKind = "vanished"
	EventTouched  BaumEventKind = "touched"
)

// BaumOutcome reports what happened when one baum-level event was
// applied in S6.
type BaumOutcome struct {
	Kind     BaumEventKind
	Path     string // current/new path
	OldPath  string // only for EventMove
	Err      error
	Warnings []walderr.Warning
}

// RegistryChangeKind classifies a change to the repo registry (S4).
type RegistryChangeKind string

const (
	RepoAdded         RegistryChangeKind = "repo_added"
	RepoRemoved       RegistryChangeKind = "repo_removed"
	RepoConfigChanged RegistryChangeKind = "repo_config_changed"
)

// RegistryChange is one detected change to the repo registry between
// the last sync and the new HEAD.
type RegistryChange struct {
	Kind   RegistryChangeKind
	RepoID string
}

// Result reports what one sync invocation did.
type Result struct {
	From         string
	To           string
	NoOp         bool // true when From == To (S3 short-circuit, §8 property 5)
	BaumOutcomes []BaumOutcome
	RegistryDiff []RegistryChange
}

// Sync runs the full reconciliation loop against the workspace at root.
func Sync(ctx context.Context, root string, opts Options, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// S0: inspect.
	st, err := state.Read(root)
	if err != nil {
		return nil, err
	}

	if err := gitdriver.FetchRemote(ctx, root); err != nil {
		return nil, err
	}

	status, err := gitdriver.StatusPorcelain(ctx, root)
	if err != nil {
		return nil, err
	}
	dirty := strings.TrimSpace(status) != ""
	if dirty && !opts.Autostash && !opts.Force {
		return nil, walderr.New(walderr.KindWorkspaceDirty, "workspace has uncommitted changes; commit, stash, or pass --autostash")
	}

	ahead, behind, err := gitdriver.AheadBehind(ctx, root, Branch, Upstream)
	if err != nil {
		return nil, err
	}

	// S1: diverged check.
	if ahead > 0 && behind > 0 && !opts.Force {
		return nil, walderr.New(walderr.KindWorkspaceDiverged, "workspace is both ahead and behind %s; resolve manually or pass --force", Upstream)
	}

	// S2: advance. Autostash is always on here: S0 already rejected a
	// dirty tree unless the caller opted in, so by this point stashing
	// is either a no-op or explicitly requested.
	if behind > 0 {
		if err := gitdriver.PullRebase(ctx, root, true); err != nil {
			return nil, err
		}
	}

	head, err := gitdriver.RevParse(ctx, root, "HEAD")
	if err != nil {
		return nil, err
	}

	// S3: diff bounds.
	from := ""
	if st.LastSync != nil {
		from = *st.LastSync
	} else {
		from, err = gitdriver.InitialCommit(ctx, root, head)
		if err != nil {
			return nil, err
		}
	}
	to := head

	result := &Result{From: from, To: to}
	if from == to {
		result.NoOp = true
		// Record the baseline on a first sync of an up-to-date clone;
		// when last_sync already points at HEAD, skip the write so a
		// repeated sync touches nothing on disk (§8 property 5).
		if st.LastSync == nil {
			if err := state.WriteLastSync(root, to); err != nil {
				return result, err
			}
		}
		return result, nil
	}

	// S4: classify.
	baumEvents, err := classifyBaumChanges(ctx, root, from, to)
	if err != nil {
		return result, err
	}
	registryDiff, err := classifyRegistryChanges(ctx, root, from, to)
	if err != nil {
		return result, err
	}
	result.RegistryDiff = registryDiff

	// S5: registry changes are bookkeeping-only (§4.8 S5) — no
	// filesystem action, just a log line for visibility.
	for _, change := range registryDiff {
		logger.Info("registry change", "kind", change.Kind, "repo_id", change.RepoID)
	}

	// S6: apply baum changes in order — moves, then vanished, then
	// appeared/touched (§4.8 S6 ordering rationale).
	moves := filterEvents(baumEvents, EventMove)
	vanished := filterEvents(baumEvents, EventVanished)
	materializable := append(filterEvents(baumEvents, EventAppeared), filterEvents(baumEvents, EventTouched)...)

	for _, ev := range moves {
		result.BaumOutcomes = append(result.BaumOutcomes, applyMove(ctx, root, ev, logger))
	}
	for _, ev := range vanished {
		result.BaumOutcomes = append(result.BaumOutcomes, applyVanished(ctx, root, ev, logger))
	}
	for _, ev := range materializable {
		result.BaumOutcomes = append(result.BaumOutcomes, applyMaterialize(ctx, root, ev, logger))
	}

	// S7: commit state unconditionally — per-baum errors are recorded
	// above but never block advancement (§7 propagation policy: the
	// workspace history is already reconciled regardless of filesystem
	// divergence, which doctor handles separately).
	if err := state.WriteLastSync(root, to); err != nil {
		return result, err
	}
	return result, nil
}

type baumEvent struct {
	Kind    BaumEventKind
	Path    string
	OldPath string
}

func filterEvents(events []baumEvent, kind BaumEventKind) []baumEvent {
	var out []baumEvent
	for _, e := range events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// classifyBaumChanges delegates rename detection to movedetect (C6)
// and classifies everything else directly from the rename-aware diff:
// any add/delete pair movedetect didn't fold into a rename is exactly
// what should surface here as Appeared/Vanished (§8 property 7).
func classifyBaumChanges(ctx context.Context, root, from, to string) ([]baumEvent, error) {
	moves, err := movedetect.Detect(ctx, root, from, to)
	if err != nil {
		return nil, err
	}
	entries, err := gitdriver.Diff(ctx, root, from, to, baumPathFilter)
	if err != nil {
		return nil, err
	}

	var events []baumEvent
	for _, mv := range moves {
		events = append(events, baumEvent{Kind: EventMove, Path: mv.New, OldPath: mv.Old})
	}
	for _, e := range entries {
		if e.Status == gitdriver.DiffRenamed {
			continue // already captured via movedetect above
		}
		if !strings.HasSuffix(e.NewPath, baumSuffix) {
			continue
		}
		switch e.Status {
		case gitdriver.DiffAdded:
			events = append(events, baumEvent{Kind: EventAppeared, Path: baumDirOf(e.NewPath)})
		case gitdriver.DiffDeleted:
			events = append(events, baumEvent{Kind: EventVanished, Path: baumDirOf(e.NewPath)})
		case gitdriver.DiffModified:
			events = append(events, baumEvent{Kind: EventTouched, Path: baumDirOf(e.NewPath)})
		}
	}
	return events, nil
}

func baumDirOf(manifestPath string) string {
	return filepath.Dir(filepath.Dir(manifestPath))
}

func classifyRegistryChanges(ctx context.Context, root, from, to string) ([]RegistryChange, error) {
	before, err := loadWorkspaceManifestAt(ctx, root, from)
	if err != nil {
		return nil, err
	}
	after, err := loadWorkspaceManifestAt(ctx, root, to)
	if err != nil {
		return nil, err
	}

	var changes []RegistryChange
	for id, entry := range after.Repos {
		prior, existed := before.Repos[id]
		if !existed {
			changes = append(changes, RegistryChange{Kind: RepoAdded, RepoID: id})
			continue
		}
		if !entriesEqual(prior, entry) {
			changes = append(changes, RegistryChange{Kind: RepoConfigChanged, RepoID: id})
		}
	}
	for id := range before.Repos {
		if _, stillExists := after.Repos[id]; !stillExists {
			changes = append(changes, RegistryChange{Kind: RepoRemoved, RepoID: id})
		}
	}
	return changes, nil
}

func entriesEqual(a, b *manifest.RepoEntry) bool {
	if a == nil || b == nil {
		return a == b
	}
	aYAML, _ := yaml.Marshal(a)
	bYAML, _ := yaml.Marshal(b)
	return string(aYAML) == string(bYAML)
}

func loadWorkspaceManifestAt(ctx context.Context, root, commit string) (*manifest.Workspace, error) {
	content, err := gitdriver.ShowFile(ctx, root, commit, registryPath)
	if err != nil {
		// Not present at that commit (pre-init history, or a commit
		// before the manifest file existed) — treat as empty.
		return manifest.NewWorkspace(), nil
	}
	w := manifest.NewWorkspace()
	if err := yaml.Unmarshal([]byte(content), w); err != nil {
		return nil, walderr.Wrap(walderr.KindInvalidWorkspaceManifest, err, "parsing workspace manifest at %s", commit)
	}
	if w.Repos == nil {
		w.Repos = map[string]*manifest.RepoEntry{}
	}
	return w, nil
}

func applyMove(ctx context.Context, root string, ev baumEvent, logger *slog.Logger) BaumOutcome {
	outcome := BaumOutcome{Kind: EventMove, Path: ev.Path, OldPath: ev.OldPath}
	logger.Info("replaying baum move", "old", ev.OldPath, "new", ev.Path)

	oldContainer := filepath.Join(root, ev.OldPath)
	newContainer := filepath.Join(root, ev.Path)
	b, err := manifest.ReadBaum(newContainer)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	id, err := repoid.Parse(b.RepoID)
	if err != nil {
		outcome.Err = walderr.Wrap(walderr.KindInvalidBaumManifest, err, "baum at %s has an invalid repo_id", newContainer)
		return outcome
	}

	// pull_rebase moved the tracked files (the baum manifest and
	// .gitignore) to the new container, but the worktree directories
	// are gitignored: the rebase leaves them behind at the old path.
	// Relocate each one with a plain rename, which preserves any
	// uncommitted work inside it byte for byte.
	for _, wt := range b.Worktrees {
		oldDir := filepath.Join(oldContainer, wt.Path)
		newDir := filepath.Join(newContainer, wt.Path)
		if _, err := os.Stat(newDir); err == nil {
			continue
		}
		if _, err := os.Stat(oldDir); err != nil {
			continue // never materialized here, nothing to carry over
		}
		if err := os.Rename(oldDir, newDir); err != nil {
			outcome.Err = err
			return outcome
		}
	}
	// The old container is now either gone (the rebase pruned it with
	// its tracked files) or an empty husk; os.Remove refuses to touch
	// anything still holding user content.
	os.Remove(filepath.Join(oldContainer, ".baum"))
	os.Remove(oldContainer)

	// Rewrite the absolute worktree paths in the bare repo's registry;
	// repairing already-correct paths is a no-op, keeping the whole
	// move replay idempotent.
	bareDir := id.BarePath(root)
	var absPaths []string
	for _, wt := range b.Worktrees {
		absPaths = append(absPaths, filepath.Join(newContainer, wt.Path))
	}
	if len(absPaths) > 0 {
		if err := gitdriver.WorktreeRepair(ctx, bareDir, absPaths...); err != nil {
			outcome.Err = err
		}
	}
	return outcome
}

func applyVanished(ctx context.Context, root string, ev baumEvent, logger *slog.Logger) BaumOutcome {
	outcome := BaumOutcome{Kind: EventVanished, Path: ev.Path}
	logger.Info("baum vanished upstream", "path", ev.Path)

	containerPath := filepath.Join(root, ev.Path)
	if !manifestExistsAt(containerPath) {
		outcome.Warnings = append(outcome.Warnings, walderr.Warning{
			Kind:    walderr.KindNoRepositoriesToActOn,
			Message: "baum at " + containerPath + " already absent locally",
		})
		return outcome
	}
	if err := uproot(ctx, root, containerPath); err != nil {
		outcome.Err = err
	}
	return outcome
}

func applyMaterialize(ctx context.Context, root string, ev baumEvent, logger *slog.Logger) BaumOutcome {
	outcome := BaumOutcome{Kind: ev.Kind, Path: ev.Path}
	logger.Info("materializing baum", "path", ev.Path)

	containerPath := filepath.Join(root, ev.Path)
	if !manifestExistsAt(containerPath) {
		outcome.Warnings = append(outcome.Warnings, walderr.Warning{
			Kind:    walderr.KindNoRepositoriesToActOn,
			Message: "baum manifest for " + ev.Path + " no longer present",
		})
		return outcome
	}
	if _, err := materializer.Materialize(ctx, root, containerPath); err != nil {
		if walderr.IsKind(err, walderr.KindBareRepoMissing) {
			outcome.Warnings = append(outcome.Warnings, walderr.Warning{
				Kind:    walderr.KindBareRepoMissing,
				Message: err.Error(),
			})
			return outcome
		}
		outcome.Err = err
	}
	return outcome
}

func manifestExistsAt(containerPath string) bool {
	return manifest.BaumExists(containerPath)
}

// uproot removes a vanished baum's worktrees and directory. force is
// false here, per §4.8 S6.2: a vanished baum holding uncommitted work
// fails the operation rather than silently discarding it — the user
// must resolve it, the same as a manual prune without --force.
func uproot(ctx context.Context, root, containerPath string) error {
	b, err := manifest.ReadBaum(containerPath)
	if err != nil {
		return err
	}
	id, err := repoid.Parse(b.RepoID)
	if err != nil {
		return walderr.Wrap(walderr.KindInvalidBaumManifest, err, "baum at %s has an invalid repo_id", containerPath)
	}
	bareDir := id.BarePath(root)
	for _, wt := range b.Worktrees {
		worktreeDir := filepath.Join(containerPath, wt.Path)
		if err := gitdriver.WorktreeRemove(ctx, bareDir, worktreeDir, false); err != nil {
			return err
		}
	}
	return os.RemoveAll(containerPath)
}
