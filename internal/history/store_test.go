package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coco-ai/tool-service/pkg/tool"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "history.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRecordsExecutions(t *testing.T) {
	s := newTestStore(t)

	s.ToolExecuted(tool.Execution{
		ToolName:      "web_search",
		Success:       true,
		Message:       "Tool executed successfully",
		ExecutionTime: 0.12,
		Timestamp:     time.Now(),
	})
	s.ToolExecuted(tool.Execution{
		ToolName:      "data_analysis",
		Success:       false,
		Message:       "Tool execution failed: boom",
		ExecutionTime: 0.01,
		Timestamp:     time.Now().Add(time.Millisecond),
	})
	s.Flush()

	records, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, "data_analysis", records[0].ToolName)
	assert.False(t, records[0].Success)
	assert.Equal(t, "Tool execution failed: boom", records[0].Message)
	assert.Equal(t, "web_search", records[1].ToolName)
	assert.True(t, records[1].Success)
	assert.NotEmpty(t, records[0].ID)
	assert.NotEqual(t, records[0].ID, records[1].ID)
}

func TestStoreRecentLimit(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		s.ToolExecuted(tool.Execution{
			ToolName:  "trend_analysis",
			Success:   true,
			Timestamp: time.Now().Add(time.Duration(i) * time.Millisecond),
		})
	}
	s.Flush()

	records, err := s.Recent(3)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestStorePruneOlderThan(t *testing.T) {
	s := newTestStore(t)

	s.ToolExecuted(tool.Execution{
		ToolName:  "web_search",
		Success:   true,
		Timestamp: time.Now().AddDate(0, 0, -10),
	})
	s.ToolExecuted(tool.Execution{
		ToolName:  "web_search",
		Success:   true,
		Timestamp: time.Now(),
	})
	s.Flush()

	removed, err := s.PruneOlderThan(7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStorePruneZeroRetentionIsNoop(t *testing.T) {
	s := newTestStore(t)

	s.ToolExecuted(tool.Execution{ToolName: "web_search", Success: true, Timestamp: time.Now().AddDate(0, 0, -30)})
	s.Flush()

	removed, err := s.PruneOlderThan(0)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
