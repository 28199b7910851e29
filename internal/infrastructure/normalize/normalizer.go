// Package normalize converts raw command output into structured records.
package normalize

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/doeshing/shexec/internal/domain"
	"github.com/doeshing/shexec/internal/ports"
)

var (
	headerPattern   = regexp.MustCompile(`^==>\s*(.+?)\s*<==$`)
	keyValuePattern = regexp.MustCompile(`^\s*([A-Za-z_][\w .\-/]*?)\s*:\s*(.*?)\s*$`)
)

// Normalizer applies, in order: JSON array of objects, header-grouped
// sections, key/value lines, and finally one raw_line record per line.
type Normalizer struct{}

// New returns a Normalizer.
func New() *Normalizer { return &Normalizer{} }

// Normalize implements ports.OutputNormalizer. The exit code does not change
// how output is parsed; failing commands still describe their output.
func (n *Normalizer) Normalize(stdout string, exitCode int) []domain.Record {
	if strings.TrimSpace(stdout) == "" {
		return nil
	}
	if records, ok := parseJSONArray(stdout); ok {
		return records
	}
	if records, ok := parseLines(stdout); ok {
		return records
	}
	return rawLines(stdout)
}

func parseJSONArray(stdout string) ([]domain.Record, bool) {
	trimmed := strings.TrimSpace(stdout)
	if !strings.HasPrefix(trimmed, "[") {
		return nil, false
	}
	var objects []map[string]any
	if err := json.Unmarshal([]byte(trimmed), &objects); err != nil || len(objects) == 0 {
		return nil, false
	}
	records := make([]domain.Record, 0, len(objects))
	for _, obj := range objects {
		if obj == nil {
			return nil, false
		}
		records = append(records, domain.Record(obj))
	}
	return records, true
}

// parseLines handles header-grouped sections and key/value lines. It reports
// false when neither shape appears so the caller falls back to raw lines.
func parseLines(stdout string) ([]domain.Record, bool) {
	lines := nonEmptyLines(stdout)
	records := make([]domain.Record, 0, len(lines))
	structured := false

	currentFile, headerLine := "", ""
	inSection, sectionEmpty := false, false
	closeSection := func() {
		if inSection && sectionEmpty {
			records = append(records, domain.Record{
				domain.FieldFile:    currentFile,
				domain.FieldContent: "",
				domain.FieldRawLine: headerLine,
			})
		}
	}

	for _, line := range lines {
		if m := headerPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			closeSection()
			currentFile, headerLine = m[1], line
			inSection, sectionEmpty = true, true
			structured = true
			continue
		}
		if inSection {
			sectionEmpty = false
			records = append(records, domain.Record{
				domain.FieldFile:    currentFile,
				domain.FieldContent: line,
				domain.FieldRawLine: line,
			})
			continue
		}
		record, ok := lineRecord(line)
		structured = structured || ok
		records = append(records, record)
	}
	closeSection()

	if !structured {
		return nil, false
	}
	return records, true
}

func lineRecord(line string) (domain.Record, bool) {
	if m := keyValuePattern.FindStringSubmatch(line); m != nil && m[1] != domain.FieldRawLine {
		return domain.Record{m[1]: m[2], domain.FieldRawLine: line}, true
	}
	return domain.Record{domain.FieldRawLine: line}, false
}

func rawLines(stdout string) []domain.Record {
	lines := nonEmptyLines(stdout)
	records := make([]domain.Record, 0, len(lines))
	for _, line := range lines {
		records = append(records, domain.Record{domain.FieldRawLine: line})
	}
	return records
}

func nonEmptyLines(stdout string) []string {
	raw := strings.Split(strings.ReplaceAll(stdout, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

var _ ports.OutputNormalizer = (*Normalizer)(nil)
