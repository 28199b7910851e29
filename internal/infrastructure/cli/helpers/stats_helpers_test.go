package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/shexec/internal/domain"
)

func TestCalculateTopCommands(t *testing.T) {
	freq := map[string]int{"ls": 3, "df -h": 3, "uptime": 1, "git pull": 2}

	assert.Equal(t, []CommandStatistic{
		{Command: "df -h", Count: 3},
		{Command: "ls", Count: 3},
	}, CalculateTopCommands(freq, 2))
	assert.Len(t, CalculateTopCommands(freq, 0), 4)
}

func TestCalculateSuccessRate(t *testing.T) {
	assert.Equal(t, 0.0, CalculateSuccessRate(0, 0))
	assert.Equal(t, 75.0, CalculateSuccessRate(3, 4))
}

func TestDeriveUndoHints(t *testing.T) {
	hints := DeriveUndoHints([]domain.HistoryEntry{
		{Raw: "ls -la"},
		{Raw: "cd repo && git reset --hard"},
		{Raw: "RM -rf build"},
		{Raw: "rm old.log"},
	})
	assert.Len(t, hints, 2)
	assert.Contains(t, hints[0]+hints[1], "git reflog")
	assert.Contains(t, hints[0]+hints[1], "backups")

	assert.Empty(t, DeriveUndoHints([]domain.HistoryEntry{{Raw: "uptime"}}))
}

func TestDeriveUndoHintsSeesGroupedChainStages(t *testing.T) {
	hints := DeriveUndoHints([]domain.HistoryEntry{
		{Raw: "(export KEEP=1; rm -rf build) | wc -l"},
	})
	require.Len(t, hints, 1)
	assert.Contains(t, hints[0], "backups")
}
