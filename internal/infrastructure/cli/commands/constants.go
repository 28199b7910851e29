package commands

import "github.com/doeshing/shexec/internal/domain"

// CLI-specific constants
const (
	// DefaultHistoryLimit is the default number of entries `history list` shows
	DefaultHistoryLimit = domain.DefaultHistoryLimit
	// MaxHistoryAnalysisRecords bounds `history stats`
	MaxHistoryAnalysisRecords = 1000
	// TopCommandsLimit is how many commands `history stats` ranks
	TopCommandsLimit = 5
	// TimestampFormat renders timestamps in listings
	TimestampFormat = domain.TimestampFormat
)

// Error messages
const (
	ErrConfigLoaderUnavailable = "config loader unavailable"
	ErrHistoryStoreUnavailable = "history store unavailable"
	ErrCacheUnavailable        = "result cache unavailable"
)

// Success messages
const (
	MsgConfigurationValid = "Configuration valid"
	MsgNoHistoryRecorded  = "No history recorded yet."
	MsgNoCachedResults    = "No cached results."
	MsgNoAliases          = "No aliases configured."
)
