// Package snapshot persists the catalog as a single flat JSON file: an
// ordered list of records with explicit nulls.
package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quantella/bondsync/internal/catalog"
)

// Load reads the previous snapshot. A missing or corrupt file is not an
// error — it means no prior state, and the run starts from an empty catalog.
func Load(path string) []catalog.Record {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("snapshot unreadable, starting fresh",
				zap.String("path", path),
				zap.Error(err),
			)
		}
		return nil
	}

	var records []catalog.Record
	if err := json.Unmarshal(data, &records); err != nil {
		zap.L().Warn("snapshot corrupt, starting fresh",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil
	}

	return records
}

// Save atomically replaces the snapshot with the given records: write to a
// temp file in the same directory, sync, rename. A failure here is fatal to
// the run — a silently lost update would corrupt future incremental runs.
func Save(path string, records []catalog.Record) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "snapshot: create dir %s", dir)
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return eris.Wrap(err, "snapshot: marshal")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*.json")
	if err != nil {
		return eris.Wrap(err, "snapshot: create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "snapshot: write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "snapshot: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "snapshot: close temp file")
	}

	if err := os.Rename(tmpName, path); err != nil {
		return eris.Wrapf(err, "snapshot: replace %s", path)
	}
	return nil
}
