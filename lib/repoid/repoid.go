// Package repoid parses and canonicalizes wald repo identifiers:
// non-empty "/"-separated segment sequences of the form
// host/seg1/…/segN/name (length ≥ 2, no empty segments, no leading or
// trailing "/"). The first segment is the host, the last is the name,
// and anything in between is the path.
package repoid

import (
	"path/filepath"
	"strings"

	"github.com/FordUniver/wald/lib/walderr"
)

// ID is a parsed, canonical repo identifier.
type ID struct {
	Host string
	Path []string
	Name string
}

// Parse validates and parses a repo-id string. It rejects strings with
// empty segments, leading/trailing "/", or fewer than two segments.
func Parse(s string) (ID, error) {
	if s == "" {
		return ID{}, walderr.New(walderr.KindInvalidRepoId, "repo id must not be empty")
	}
	if strings.HasPrefix(s, "/") || strings.HasSuffix(s, "/") {
		return ID{}, walderr.New(walderr.KindInvalidRepoId, "repo id %q must not have a leading or trailing '/'", s)
	}
	segments := strings.Split(s, "/")
	if len(segments) < 2 {
		return ID{}, walderr.New(walderr.KindInvalidRepoId, "repo id %q must have at least two segments (host/name)", s)
	}
	for _, segment := range segments {
		if segment == "" {
			return ID{}, walderr.New(walderr.KindInvalidRepoId, "repo id %q contains an empty segment", s)
		}
	}
	return ID{
		Host: segments[0],
		Path: segments[1 : len(segments)-1],
		Name: segments[len(segments)-1],
	}, nil
}

// String renders the canonical form: parse(id.String()) == id.
func (id ID) String() string {
	segments := append([]string{id.Host}, id.Path...)
	segments = append(segments, id.Name)
	return strings.Join(segments, "/")
}

// Equal reports canonical equality between two repo ids.
func (id ID) Equal(other ID) bool {
	return id.String() == other.String()
}

// BarePath returns the filesystem path of the bare repository for id
// under the given workspace root: <root>/.wald/repos/<host>/<path...>/<name>.git.
func (id ID) BarePath(workspaceRoot string) string {
	segments := append([]string{workspaceRoot, ".wald", "repos", id.Host}, id.Path...)
	segments = append(segments, id.Name+".git")
	return filepath.Join(segments...)
}

// Registry is the minimal view of the workspace manifest's repo
// registry that resolution needs: canonical ids and their aliases.
type Registry interface {
	// RepoIDs returns every registered repo-id string.
	RepoIDs() []string
	// AliasTargets returns a map from alias to the repo-id string it resolves to.
	AliasTargets() map[string]string
}

// Resolve resolves identifier — which may be a repo-id or a
// workspace-registered alias — against reg. Alias resolution is exact
// match; repo-id resolution is canonical-string equality.
func Resolve(reg Registry, identifier string) (ID, error) {
	if target, ok := reg.AliasTargets()[identifier]; ok {
		return Parse(target)
	}
	parsed, err := Parse(identifier)
	if err != nil {
		return ID{}, walderr.New(walderr.KindRepoNotRegistered, "%q is neither a registered alias nor a valid repo id: %v", identifier, err)
	}
	for _, candidate := range reg.RepoIDs() {
		if candidate == parsed.String() {
			return parsed, nil
		}
	}
	return ID{}, walderr.New(walderr.KindRepoNotRegistered, "repo %q is not registered", identifier)
}
