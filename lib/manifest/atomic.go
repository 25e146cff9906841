package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/FordUniver/wald/lib/walderr"
	"gopkg.in/yaml.v3"
)

// writeAtomic marshals value as YAML and writes it to path: a temp
// file in the same directory, Sync, Close, then os.Rename into place.
// The temp file is removed on any failure before the rename; if the
// rename itself fails, the fully-written temp file is left in place
// for inspection and the error surfaces as ManifestWriteFailed.
func writeAtomic(path string, value any) error {
	data, err := yaml.Marshal(value)
	if err != nil {
		return walderr.Wrap(walderr.KindManifestWriteFailed, err, "marshaling %s", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return walderr.Wrap(walderr.KindManifestWriteFailed, err, "creating directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return walderr.Wrap(walderr.KindManifestWriteFailed, err, "creating temp file for %s", path)
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

	success = true // past this point the temp file survives a failure
	if err := os.Rename(tmpPath, path); err != nil {
		return walderr.Wrap(walderr.KindManifestWriteFailed, err, "renaming %s into place", path)
	}
	return nil
}

// readYAML reads path and unmarshals it into value. A missing file is
// reported via os.IsNotExist on the returned error so callers can
// distinguish "not yet created" from a genuine read failure.
func readYAML(path string, value any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, value); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
