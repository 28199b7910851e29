package history

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/shexec/internal/domain"
	"github.com/doeshing/shexec/internal/pkg/logger"
	"github.com/doeshing/shexec/internal/ports"
)

func entry(id, raw string, at time.Time, success bool) domain.HistoryEntry {
	return domain.HistoryEntry{
		ID:          id,
		Timestamp:   at,
		Command:     "shell",
		Args:        []string{raw},
		Raw:         raw,
		Fingerprint: "fp-" + id,
		Dir:         "/tmp",
		Mode:        domain.ModeLocal,
		Success:     success,
		ExitCode:    map[bool]int{true: 0, false: 1}[success],
		DurationMS:  12,
	}
}

func stores(t *testing.T) map[string]ports.HistoryRepository {
	dir := t.TempDir()
	sqlite, err := NewSQLiteStore(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]ports.HistoryRepository{
		"sqlite": sqlite,
		"jsonl":  NewFileStore(filepath.Join(dir, "history.jsonl")),
	}
}

func TestStoresSaveAndQuery(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(entry("01A", "ls -la", base, true)))
			require.NoError(t, store.Save(entry("01B", "cat app.log", base.Add(time.Second), false)))
			require.NoError(t, store.Save(entry("01C", "ls /var", base.Add(2*time.Second), true)))

			all, err := store.Records(0, "")
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "01C", all[0].ID)
			assert.Equal(t, "01A", all[2].ID)
			assert.Equal(t, []string{"cat app.log"}, all[1].Args)
			assert.False(t, all[1].Success)
			assert.Equal(t, 1, all[1].ExitCode)
			assert.Equal(t, domain.ModeLocal, all[1].Mode)
			assert.True(t, all[1].Timestamp.Equal(base.Add(time.Second)))

			limited, err := store.Records(1, "")
			require.NoError(t, err)
			require.Len(t, limited, 1)
			assert.Equal(t, "01C", limited[0].ID)

			found, err := store.Records(0, "ls")
			require.NoError(t, err)
			assert.Len(t, found, 2)

			dest := filepath.Join(t.TempDir(), "export.jsonl")
			require.NoError(t, store.ExportJSON(dest))
			assert.Equal(t, 3, countLines(t, dest))

			require.NoError(t, store.Clear())
			empty, err := store.Records(0, "")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestOpenFallsBackToFileStore(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	store := Open(filepath.Join(blocker, "history.db"), logger.NewNop())
	_, isFile := store.(*FileStore)
	assert.True(t, isFile)
	assert.Equal(t, filepath.Join(blocker, "history.jsonl"), store.Path())
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e domain.HistoryEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		n++
	}
	return n
}
