// Package state reads and writes the local, per-machine sync state
// file (.wald/state.yaml). Unlike the workspace manifest, state is
// gitignored: it records how far this machine's filesystem has caught
// up with the workspace's commit history, not anything replicated
// across machines.
package state

import (
	"os"
	"path/filepath"

	"github.com/FordUniver/wald/lib/walderr"
	"gopkg.in/yaml.v3"
)

// State is the local sync state. LastSync is nil before the first
// successful sync.
type State struct {
	LastSync *string `yaml:"last_sync"`
}

// Path returns the state file path under a workspace root.
func Path(root string) string {
	return filepath.Join(root, ".wald", "state.yaml")
}

// Read reads the state file. A missing or empty file reads as
// LastSync == nil, per C3's contract — this is not an error condition,
// it is the expected state of a freshly-initialized workspace.
func Read(root string) (*State, error) {
	data, err := os.ReadFile(Path(root))
	if os.IsNotExist(err) {
		return &State{}, nil
	}
	if err != nil {
		return nil, walderr.Wrap(walderr.KindManifestReadFailed, err, "reading state file")
	}
	s := &State{}
	if len(data) == 0 {
		return s, nil
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, walderr.Wrap(walderr.KindManifestReadFailed, err, "parsing state file")
	}
	return s, nil
}

// WriteLastSync atomically updates the single last_sync field. This is
// the only mutator for state: the sync engine calls it exactly once,
// at the end of a successful sync (§4.8 S7), and it is the one
// deliberately non-idempotent step in the whole reconciliation loop.
func WriteLastSync(root string, hash string) error {
	return write(root, &State{LastSync: &hash})
}

func write(root string, s *State) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return walderr.Wrap(walderr.KindManifestWriteFailed, err, "marshaling state")
	}

	path := Path(root)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return walderr.Wrap(walderr.KindManifestWriteFailed, err, "creating %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "state.*.tmp")
	if err != nil {
		return walderr.Wrap(walderr.KindManifestWriteFailed, err, "creating temp state file")
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return walderr.Wrap(walderr.KindManifestWriteFailed, err, "writing %s", tmpPath)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return walderr.Wrap(walderr.KindManifestWriteFailed, err, "syncing %s", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		return walderr.Wrap(walderr.KindManifestWriteFailed, err, "closing %s", tmpPath)
	}

	success = true // a failed rename leaves the temp file for inspection
	if err := os.Rename(tmpPath, path); err != nil {
		return walderr.Wrap(walderr.KindManifestWriteFailed, err, "renaming %s into place", path)
	}
	return nil
}
