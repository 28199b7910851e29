package domain

import "time"

// HistoryEntry describes one executed command. Entries are never modified
// after they are appended.
type HistoryEntry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Command     string    `json:"command"`
	Args        []string  `json:"args"`
	Raw         string    `json:"raw"`
	Fingerprint string    `json:"fingerprint"`
	Dir         string    `json:"dir"`
	Mode        Mode      `json:"mode"`
	Host        string    `json:"host,omitempty"`
	Success     bool      `json:"success"`
	ExitCode    int       `json:"exit_code"`
	Live        bool      `json:"live"`
	DurationMS  int64     `json:"duration_ms"`
}

// CacheHistoryEntry is one store into the result cache.
type CacheHistoryEntry struct {
	Key        string    `json:"key"`
	RawCommand string    `json:"raw_command"`
	Timestamp  time.Time `json:"timestamp"`
	Success    bool      `json:"success"`
}

// CacheStatistics aggregates stores since the last clear.
type CacheStatistics struct {
	TotalCommands int `json:"total_commands"`
	SuccessCount  int `json:"success_count"`
	ErrorCount    int `json:"error_count"`
}

// CachedResult is the exported payload of one cache entry.
type CachedResult struct {
	RawCommand string            `json:"raw_command,omitempty"`
	RawOutput  string            `json:"raw_output"`
	Success    bool              `json:"success"`
	ExitCode   int               `json:"exit_code"`
	Metadata   map[string]string `json:"metadata"`
}

// CacheExport is the serialized form of the result cache.
type CacheExport struct {
	History    []CacheHistoryEntry     `json:"history"`
	Statistics CacheStatistics         `json:"statistics"`
	Results    map[string]CachedResult `json:"results,omitempty"`
}
