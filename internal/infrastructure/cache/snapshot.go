package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/doeshing/shexec/internal/domain"
	"github.com/doeshing/shexec/internal/pkg/filesystem"
)

// SnapshotStore persists cache exports as a JSON file so results survive
// process restarts.
type SnapshotStore struct {
	path string
}

// NewSnapshotStore returns a store at path, defaulting to
// ~/.shexec/cache/snapshot.json.
func NewSnapshotStore(path string) *SnapshotStore {
	if path == "" {
		path = filepath.Join(filesystem.UserHomeDir(), ".shexec", "cache", "snapshot.json")
	}
	return &SnapshotStore{path: filesystem.ExpandPath(path)}
}

// Path exposes the snapshot file path.
func (s *SnapshotStore) Path() string {
	return s.path
}

// Load reads the snapshot. A missing file is an empty export.
func (s *SnapshotStore) Load() (domain.CacheExport, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.CacheExport{}, nil
		}
		return domain.CacheExport{}, err
	}
	var export domain.CacheExport
	if err := json.Unmarshal(data, &export); err != nil {
		return domain.CacheExport{}, fmt.Errorf("decode cache snapshot %s: %w", s.path, err)
	}
	return export, nil
}

// Save writes the full export (with results) atomically.
func (s *SnapshotStore) Save(c *ResultCache) error {
	data, err := json.Marshal(c.Export(true))
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, domain.DirectoryPermissions); err != nil {
		return err
	}

	// Write to a temp file in the same directory so rename is atomic.
	tmp, err := os.CreateTemp(dir, ".snapshot.*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}

// Clear removes the snapshot file.
func (s *SnapshotStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
