package metrics

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bozorlik/internal/database/dbtest"
	"bozorlik/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreUsageReports(t *testing.T) {
	ctx := context.Background()
	store := NewStore(dbtest.New(t))
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	records := []ExecutionMetric{
		{AgentName: "formatter", Model: "gpt-4o-mini", PromptTokens: 100, CompletionTokens: 40, LatencyMS: 800, Timestamp: now.Add(-time.Hour)},
		{AgentName: "formatter", Model: "gpt-4o-mini", PromptTokens: 50, CompletionTokens: 10, LatencyMS: 400, Timestamp: now.Add(-2 * time.Hour)},
		{AgentName: "editor", Model: "gpt-4o-mini", PromptTokens: 30, CompletionTokens: 5, LatencyMS: 200, Timestamp: now.Add(-25 * time.Hour)},
		{AgentName: "editor", Model: "gpt-4o-mini", PromptTokens: 999, CompletionTokens: 999, LatencyMS: 1, Timestamp: now.AddDate(0, 0, -40)},
	}
	for _, m := range records {
		require.NoError(t, store.Record(ctx, m))
	}

	daily, err := store.GetDailyUsage(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []DailyUsage{
		{Date: "2026-03-10", TotalPrompt: 150, TotalCompletion: 50, TotalExecution: 2},
		{Date: "2026-03-09", TotalPrompt: 30, TotalCompletion: 5, TotalExecution: 1},
	}, daily)

	agents, err := store.GetUsageByAgent(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []AgentUsage{
		{AgentName: "editor", Executions: 1, PromptTokens: 30, CompletionTokens: 5, AvgLatencyMS: 200},
		{AgentName: "formatter", Executions: 2, PromptTokens: 150, CompletionTokens: 50, AvgLatencyMS: 600},
	}, agents)

	removed, err := store.Cleanup(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	removed, err = store.Cleanup(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestRecordMetaSkipsEmptyUsage(t *testing.T) {
	ctx := context.Background()
	store := NewStore(dbtest.New(t))

	require.NoError(t, store.RecordMeta(ctx, shared.AgentMeta{AgentName: "formatter"}))
	require.NoError(t, store.RecordMeta(ctx, shared.AgentMeta{
		AgentName: "editor",
		Usage:     shared.TokenUsage{PromptTokens: 10, CompletionTokens: 2, Model: "llama"},
		Latency:   1500 * time.Millisecond,
	}))

	agents, err := store.GetUsageByAgent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "editor", agents[0].AgentName)
	assert.Equal(t, 1500.0, agents[0].AvgLatencyMS)
}

func TestMapUsage(t *testing.T) {
	m := MapUsage("formatter", shared.TokenUsage{PromptTokens: 7, CompletionTokens: 3, Model: "gemini"}, 250*time.Millisecond)
	assert.Equal(t, "formatter", m.AgentName)
	assert.Equal(t, "gemini", m.Model)
	assert.Equal(t, 7, m.PromptTokens)
	assert.Equal(t, int64(250), m.LatencyMS)
	assert.False(t, m.Timestamp.IsZero())
}

func TestSysHealth(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.db"), make([]byte, 2048), 0o600))

	h := GetSysHealth(dir)
	assert.Equal(t, "2.0 KB", h.DataDiskSize)
	assert.Positive(t, h.Goroutines)
	assert.NotEmpty(t, h.Uptime)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 KB", FormatBytes(1536))
	assert.Equal(t, "3.0 MB", FormatBytes(3*1024*1024))
}
