// Package history persists executed commands across runs.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/shexec/internal/domain"
	"github.com/doeshing/shexec/internal/ports"
)

// sortableTime keeps fractional seconds fixed-width so timestamps order as text.
const sortableTime = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore persists history in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open returns a SQLite store at path, or a jsonl FileStore next to it when
// the database cannot be opened.
func Open(path string, logger ports.Logger) ports.HistoryRepository {
	store, err := NewSQLiteStore(path)
	if err == nil {
		return store
	}
	fallback := NewFileStore(strings.TrimSuffix(path, filepath.Ext(path)) + ".jsonl")
	if logger != nil {
		logger.Warn("sqlite history unavailable, using jsonl", map[string]interface{}{
			"path":  fallback.Path(),
			"error": err.Error(),
		})
	}
	return fallback
}

// NewSQLiteStore creates (or opens) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	store := &SQLiteStore{db: db, path: path}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history db: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS commands (
		id TEXT PRIMARY KEY,
		timestamp TEXT,
		command TEXT,
		args TEXT,
		raw TEXT,
		fingerprint TEXT,
		dir TEXT,
		mode TEXT,
		host TEXT,
		success INTEGER,
		exit_code INTEGER,
		live INTEGER,
		duration_ms INTEGER
	);`)
	return err
}

// Save inserts a new entry.
func (s *SQLiteStore) Save(entry domain.HistoryEntry) error {
	args, err := json.Marshal(entry.Args)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`INSERT INTO commands
		(id, timestamp, command, args, raw, fingerprint, dir, mode, host, success, exit_code, live, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Timestamp.UTC().Format(sortableTime),
		entry.Command,
		string(args),
		entry.Raw,
		entry.Fingerprint,
		entry.Dir,
		string(entry.Mode),
		entry.Host,
		boolToInt(entry.Success),
		entry.ExitCode,
		boolToInt(entry.Live),
		entry.DurationMS,
	)
	return err
}

// Records returns entries newest first. limit <= 0 returns everything; search
// matches the raw command or the command kind.
func (s *SQLiteStore) Records(limit int, search string) ([]domain.HistoryEntry, error) {
	builder := strings.Builder{}
	builder.WriteString("SELECT id, timestamp, command, args, raw, fingerprint, dir, mode, host, success, exit_code, live, duration_ms FROM commands")
	var args []interface{}
	if search != "" {
		builder.WriteString(" WHERE raw LIKE ? OR command LIKE ?")
		args = append(args, "%"+search+"%", "%"+search+"%")
	}
	builder.WriteString(" ORDER BY timestamp DESC, id DESC")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	rows, err := s.db.Query(builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		var ts, rawArgs, mode string
		var success, live int
		if err := rows.Scan(&e.ID, &ts, &e.Command, &rawArgs, &e.Raw, &e.Fingerprint, &e.Dir, &mode, &e.Host, &success, &e.ExitCode, &live, &e.DurationMS); err != nil {
			return nil, err
		}
		if t, err := time.Parse(sortableTime, ts); err == nil {
			e.Timestamp = t
		}
		_ = json.Unmarshal([]byte(rawArgs), &e.Args)
		e.Mode = domain.Mode(mode)
		e.Success = success == 1
		e.Live = live == 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear deletes all history entries.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM commands")
	return err
}

// ExportJSON writes every entry, newest first, to a jsonl file.
func (s *SQLiteStore) ExportJSON(dest string) error {
	entries, err := s.Records(0, "")
	if err != nil {
		return err
	}
	return writeJSONL(dest, entries)
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func writeJSONL(dest string, entries []domain.HistoryEntry) error {
	file, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ports.HistoryRepository = (*SQLiteStore)(nil)
