package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/doeshing/shexec/internal/domain"
)

// RenderOptions select the output shape.
type RenderOptions struct {
	JSON       bool
	Live       bool
	Structured bool
}

// RenderResult prints a command result: the raw output (unless it was
// already streamed), one line per record for structured results, or the
// whole result as JSON. Stderr always goes to errOut.
func RenderResult(out, errOut io.Writer, res domain.CommandResult, opts RenderOptions) error {
	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	switch {
	case opts.Structured && len(res.Structured) > 0:
		for _, rec := range res.Structured {
			fmt.Fprintln(out, formatRecord(rec))
		}
	case !opts.Live:
		fmt.Fprint(out, res.RawOutput)
	}

	if res.Stderr != "" {
		fmt.Fprint(errOut, res.Stderr)
	}
	return nil
}

// formatRecord renders a record as key=value pairs, raw_line last.
func formatRecord(rec domain.Record) string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		if k != domain.FieldRawLine {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return fmt.Sprint(rec[domain.FieldRawLine])
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(rec[k])))
	}
	return strings.Join(parts, " ")
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		if strings.ContainsAny(t, " \t\"") {
			return fmt.Sprintf("%q", t)
		}
		return t
	case nil:
		return "null"
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	}
}
