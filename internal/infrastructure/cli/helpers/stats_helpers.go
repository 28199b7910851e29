// Package helpers holds small utilities shared by CLI subcommands.
package helpers

import (
	"sort"
	"strings"

	"github.com/doeshing/shexec/internal/domain"
)

// CommandStatistic represents usage statistics for a command
type CommandStatistic struct {
	Command string
	Count   int
}

// CalculateTopCommands returns the limit most frequent commands, ties broken
// by name. A limit <= 0 returns all of them.
func CalculateTopCommands(frequency map[string]int, limit int) []CommandStatistic {
	stats := make([]CommandStatistic, 0, len(frequency))
	for cmd, count := range frequency {
		stats = append(stats, CommandStatistic{Command: cmd, Count: count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count == stats[j].Count {
			return stats[i].Command < stats[j].Command
		}
		return stats[i].Count > stats[j].Count
	})
	if limit > 0 && len(stats) > limit {
		return stats[:limit]
	}
	return stats
}

// CalculateSuccessRate calculates the success rate as a percentage
func CalculateSuccessRate(successful, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(successful) / float64(total) * 100.0
}

// undoHints maps a command prefix to advice for reverting its effects.
var undoHints = []struct {
	prefix string
	hint   string
}{
	{"git ", "Use `git status`, `git reflog`, or `git restore` to inspect and undo git changes."},
	{"kubectl ", "Use `kubectl rollout undo` or `kubectl get events` to recover from cluster issues."},
	{"rm ", "Restore files via backups or `git checkout -- <path>` if tracked."},
	{"docker ", "Use `docker ps -a` and `docker logs` to review container history before repeating."},
	{"systemctl ", "Use `systemctl status` and `journalctl -u <unit>` before restarting units again."},
}

// DeriveUndoHints returns sorted, unique hints for the commands in entries,
// looking at every stage of piped or chained scripts.
func DeriveUndoHints(entries []domain.HistoryEntry) []string {
	seen := make(map[string]bool)
	for _, e := range entries {
		for _, stage := range splitStages(strings.ToLower(e.Raw)) {
			for _, h := range undoHints {
				if strings.HasPrefix(stage, h.prefix) {
					seen[h.hint] = true
				}
			}
		}
	}
	hints := make([]string, 0, len(seen))
	for hint := range seen {
		hints = append(hints, hint)
	}
	sort.Strings(hints)
	return hints
}

func splitStages(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '|' || r == ';' || r == '&' || r == '(' || r == ')'
	})
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}
