// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and external
// adapters (infrastructure). The orchestrator and execution context depend only on
// these abstractions; local processes, SSH sessions, SQLite and log sinks are
// plugged in from the infrastructure layer.
package ports

import (
	"context"
	"time"

	"github.com/doeshing/shexec/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.shexec/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// Backend runs a single command string against a local process or a remote
// session. A non-zero exit code is reported in ExecOutput, not as an error;
// errors are reserved for spawn, transport, timeout and connection failures.
type Backend interface {
	Name() string
	Execute(ctx context.Context, req domain.ExecRequest) (domain.ExecOutput, error)
	Close() error
}

// BackendFactory builds a remote backend for a host.
type BackendFactory func(host domain.RemoteHost) (Backend, error)

// OutputNormalizer turns raw command output into structured records.
type OutputNormalizer interface {
	Normalize(stdout string, exitCode int) []domain.Record
}

// RefreshFunc re-executes the raw command behind a cache entry. Returning an
// error wrapping domain.ErrRefreshSkipped leaves the entry untouched without
// counting a failure.
type RefreshFunc func(ctx context.Context, key, rawCommand string) (domain.CommandResult, error)

// ResultCache stores command results by fingerprint and keeps them fresh.
type ResultCache interface {
	Get(key string) (domain.CommandResult, bool)
	Metadata(key string) (map[string]string, bool)
	Store(key, rawCommand string, result domain.CommandResult, metadata map[string]string)
	RefreshOnce(ctx context.Context, refresh RefreshFunc)
	StartRefresh(interval time.Duration, refresh RefreshFunc) error
	StopRefresh()
}

// HistoryRepository persists executed command history across runs.
type HistoryRepository interface {
	Save(entry domain.HistoryEntry) error
	Records(limit int, search string) ([]domain.HistoryEntry, error)
	Clear() error
	ExportJSON(dest string) error
	Path() string
}

// Logger provides structured logging abstraction for the application layer.
// The caller owns the lifecycle: Init before first use, Close when done.
type Logger interface {
	Init() error
	Close() error
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
