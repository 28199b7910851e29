package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Timeout and duration constants
const (
	// DefaultCommandTimeout bounds a single command when nothing else is configured
	DefaultCommandTimeout = 5 * time.Minute
	// DefaultConnectTimeout bounds SSH dials
	DefaultConnectTimeout = 10 * time.Second
	// DefaultRefreshInterval is how often cached results are re-executed
	DefaultRefreshInterval = 5 * time.Minute
	// DefaultWaitDelay bounds pipe draining after a killed process
	DefaultWaitDelay = 2 * time.Second
)

// Limit constants
const (
	// DefaultMaxCacheEntries is the maximum number of cache entries
	DefaultMaxCacheEntries = 100
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 20
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
