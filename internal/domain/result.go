package domain

import "time"

// Record is one structured interpretation of a piece of command output.
type Record map[string]any

// Well-known record fields produced by the output normalizer.
const (
	FieldRawLine = "raw_line"
	FieldFile    = "file"
	FieldContent = "content"
)

// CommandResult is the outcome of running a command. Treat it as immutable.
type CommandResult struct {
	RawOutput    string        `json:"raw_output"`
	Stderr       string        `json:"stderr,omitempty"`
	Success      bool          `json:"success"`
	Structured   []Record      `json:"structured_output,omitempty"`
	ExitCode     int           `json:"exit_code"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
}

// WithStructured returns a copy carrying the given records.
func (r CommandResult) WithStructured(records []Record) CommandResult {
	out := r
	out.Structured = append([]Record(nil), records...)
	return out
}

// Failed builds an unsuccessful result from an error.
func Failed(err error, exitCode int) CommandResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return CommandResult{Success: false, ExitCode: exitCode, ErrorMessage: msg}
}
