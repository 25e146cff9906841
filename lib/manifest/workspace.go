package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/FordUniver/wald/lib/walderr"
	"gopkg.in/yaml.v3"
)

// LFS labels. Informational only; wald performs no LFS policy
// enforcement of its own.
const (
	LFSNone    = "none"
	LFSMinimal = "minimal"
	LFSFull    = "full"
)

// Partial-clone filter specs.
const (
	FilterNone     = "none"
	FilterBlobNone = "blob-none"
	FilterTreeZero = "tree-zero"
)

// Depth is either a positive integer or the literal token "full".
type Depth struct {
	Full  bool
	Value int
}

// DepthFull is the "full" depth sentinel.
var DepthFull = Depth{Full: true}

// ParseDepth parses a depth token from config/flags.
func ParseDepth(s string) (Depth, error) {
	if s == "full" {
		return DepthFull, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return Depth{}, fmt.Errorf("depth must be a positive integer or %q, got %q", "full", s)
	}
	return Depth{Value: n}, nil
}

func (d Depth) String() string {
	if d.Full {
		return "full"
	}
	return strconv.Itoa(d.Value)
}

func (d Depth) MarshalYAML() (any, error) {
	if d.Full {
		return "full", nil
	}
	return d.Value, nil
}

func (d *Depth) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := ParseDepth(v)
		if err != nil {
			return err
		}
		*d = parsed
	case int:
		if v <= 0 {
			return fmt.Errorf("depth must be a positive integer, got %d", v)
		}
		*d = Depth{Value: v}
	default:
		return fmt.Errorf("depth must be an integer or %q", "full")
	}
	return nil
}

// RepoEntry is one entry in the workspace manifest's repo registry.
type RepoEntry struct {
	LFS      string   `yaml:"lfs"`
	Depth    Depth    `yaml:"depth"`
	Filter   string   `yaml:"filter"`
	Aliases  []string `yaml:"aliases,omitempty"`
	Upstream string   `yaml:"upstream,omitempty"`
}

// Validate checks the invariants a repo entry must satisfy in
// isolation (LFS/filter enum membership; non-empty aliases).
func (e RepoEntry) Validate() error {
	switch e.LFS {
	case LFSNone, LFSMinimal, LFSFull:
	default:
		return walderr.New(walderr.KindInvalidWorkspaceManifest, "invalid lfs label %q", e.LFS)
	}
	switch e.Filter {
	case FilterNone, FilterBlobNone, FilterTreeZero:
	default:
		return walderr.New(walderr.KindInvalidFilter, "invalid filter %q", e.Filter)
	}
	for _, alias := range e.Aliases {
		if alias == "" {
			return walderr.New(walderr.KindInvalidWorkspaceManifest, "alias must not be empty")
		}
	}
	return nil
}

// Workspace is the tracked repo registry (.wald/manifest.yaml).
type Workspace struct {
	Repos map[string]*RepoEntry `yaml:"repos"`
}

// NewWorkspace returns an empty registry.
func NewWorkspace() *Workspace {
	return &Workspace{Repos: map[string]*RepoEntry{}}
}

// RepoIDs implements repoid.Registry.
func (w *Workspace) RepoIDs() []string {
	ids := make([]string, 0, len(w.Repos))
	for id := range w.Repos {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AliasTargets implements repoid.Registry.
func (w *Workspace) AliasTargets() map[string]string {
	targets := map[string]string{}
	for id, entry := range w.Repos {
		for _, alias := range entry.Aliases {
			targets[alias] = id
		}
	}
	return targets
}

// ValidateAliases checks the workspace-wide invariant that the
// multiset (repo_ids ∪ aliases) has no duplicates.
func (w *Workspace) ValidateAliases() error {
	seen := map[string]string{}
	for id := range w.Repos {
		if owner, ok := seen[id]; ok {
			return walderr.New(walderr.KindAliasAlreadyUsed, "%q is used by both %s and a repo id", id, owner)
		}
		seen[id] = "repo:" + id
	}
	for id, entry := range w.Repos {
		for _, alias := range entry.Aliases {
			if owner, ok := seen[alias]; ok {
				return walderr.New(walderr.KindAliasAlreadyUsed, "alias %q of %s collides with %s", alias, id, owner)
			}
			seen[alias] = "alias of " + id
		}
	}
	return nil
}

// MarshalYAML sorts repo keys lexicographically on write for
// deterministic diffs across machines, per C2's stated serializer
// contract.
func (w *Workspace) MarshalYAML() (any, error) {
	type sortedWorkspace struct {
		Repos yaml.Node `yaml:"repos"`
	}
	ids := w.RepoIDs()
	node := yaml.Node{Kind: yaml.MappingNode}
	for _, id := range ids {
		var keyNode, valueNode yaml.Node
		if err := keyNode.Encode(id); err != nil {
			return nil, err
		}
		if err := valueNode.Encode(w.Repos[id]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &keyNode, &valueNode)
	}
	if len(ids) == 0 {
		node.Kind = yaml.MappingNode
	}
	return sortedWorkspace{Repos: node}, nil
}

// WorkspacePath returns the workspace manifest path under a workspace root.
func WorkspacePath(root string) string {
	return filepath.Join(root, ".wald", "manifest.yaml")
}

// ReadWorkspace reads and parses the workspace manifest. A missing
// file yields an empty registry (callers that require a workspace to
// already exist check that separately via workspace.Discover).
func ReadWorkspace(root string) (*Workspace, error) {
	w := NewWorkspace()
	err := readYAML(WorkspacePath(root), w)
	if os.IsNotExist(err) {
		return w, nil
	}
	if err != nil {
		return nil, walderr.Wrap(walderr.KindManifestReadFailed, err, "reading workspace manifest")
	}
	if w.Repos == nil {
		w.Repos = map[string]*RepoEntry{}
	}
	return w, nil
}

// WriteWorkspace atomically writes the workspace manifest.
func WriteWorkspace(root string, w *Workspace) error {
	return writeAtomic(WorkspacePath(root), w)
}

// UpdateWorkspace performs a load-modify-write cycle: it reads the
// current workspace manifest, applies fn, validates alias invariants,
// and writes the result back atomically.
func UpdateWorkspace(root string, fn func(*Workspace) error) error {
	w, err := ReadWorkspace(root)
	if err != nil {
		return err
	}
	if err := fn(w); err != nil {
		return err
	}
	if err := w.ValidateAliases(); err != nil {
		return err
	}
	return WriteWorkspace(root, w)
}

// Config holds default policies applied when adding a repo without
// explicit flags (.wald/config.yaml).
type Config struct {
	DefaultLFS   string `yaml:"default_lfs"`
	DefaultDepth Depth  `yaml:"default_depth"`
}

// DefaultConfig returns the configuration wald writes on init.
func DefaultConfig() *Config {
	return &Config{DefaultLFS: LFSMinimal, DefaultDepth: Depth{Value: 100}}
}

// ConfigPath returns the workspace config path under a workspace root.
func ConfigPath(root string) string {
	return filepath.Join(root, ".wald", "config.yaml")
}

// ReadConfig reads the workspace config, defaulting if absent.
func ReadConfig(root string) (*Config, error) {
	c := DefaultConfig()
	err := readYAML(ConfigPath(root), c)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, walderr.Wrap(walderr.KindManifestReadFailed, err, "reading workspace config")
	}
	return c, nil
}

// WriteConfig atomically writes the workspace config.
func WriteConfig(root string, c *Config) error {
	return writeAtomic(ConfigPath(root), c)
}
