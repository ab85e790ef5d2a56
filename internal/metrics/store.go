package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	metricsdb "bozorlik/internal/metrics/metrics_db"
	"bozorlik/internal/shared"
)

// ExecutionMetric records metadata for a single agent execution.
type ExecutionMetric struct {
	AgentName        string
	Model            string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	Timestamp        time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	queries *metricsdb.Queries
	db      *sql.DB
	now     func() time.Time
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{
		queries: metricsdb.New(db),
		db:      db,
		now:     time.Now,
	}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m ExecutionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	return s.queries.InsertExecutionMetric(ctx, metricsdb.InsertExecutionMetricParams{
		AgentName:        m.AgentName,
		Model:            m.Model,
		PromptTokens:     int64(m.PromptTokens),
		CompletionTokens: int64(m.CompletionTokens),
		LatencyMs:        m.LatencyMS,
		Timestamp:        ts.UTC(),
	})
}

// RecordMeta records metrics directly from shared.AgentMeta.
// Calls that consumed no tokens (cache hits, failures) are not recorded.
func (s *Store) RecordMeta(ctx context.Context, meta shared.AgentMeta) error {
	if meta.Usage.Empty() {
		return nil
	}
	m := MapUsage(meta.AgentName, meta.Usage, meta.Latency)
	m.Timestamp = s.now()
	return s.Record(ctx, m)
}

// DailyUsage represents token totals for a single day.
type DailyUsage struct {
	Date            string `json:"date"`
	TotalPrompt     int    `json:"prompt_tokens"`
	TotalCompletion int    `json:"completion_tokens"`
	TotalExecution  int    `json:"executions"`
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := s.now().AddDate(0, 0, -days).UTC()
	rows, err := s.queries.GetDailyUsage(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily usage: %w", err)
	}

	results := make([]DailyUsage, 0, len(rows))
	for _, r := range rows {
		u := DailyUsage{
			Date:           dayString(r.Day),
			TotalExecution: int(r.Count),
		}
		if r.Sum.Valid {
			u.TotalPrompt = int(r.Sum.Float64)
		}
		if r.Sum_2.Valid {
			u.TotalCompletion = int(r.Sum_2.Float64)
		}
		results = append(results, u)
	}
	return results, nil
}

// AgentUsage summarizes one agent over a period.
type AgentUsage struct {
	AgentName        string  `json:"agent_name"`
	Executions       int     `json:"executions"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	AvgLatencyMS     float64 `json:"avg_latency_ms"`
}

// GetUsageByAgent retrieves per-agent totals for the last N days.
func (s *Store) GetUsageByAgent(ctx context.Context, days int) ([]AgentUsage, error) {
	since := s.now().AddDate(0, 0, -days).UTC()
	rows, err := s.queries.GetUsageByAgent(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get usage by agent: %w", err)
	}

	results := make([]AgentUsage, 0, len(rows))
	for _, r := range rows {
		u := AgentUsage{AgentName: r.AgentName, Executions: int(r.Count)}
		if r.Sum.Valid {
			u.PromptTokens = int(r.Sum.Float64)
		}
		if r.Sum_2.Valid {
			u.CompletionTokens = int(r.Sum_2.Float64)
		}
		if r.Avg.Valid {
			u.AvgLatencyMS = r.Avg.Float64
		}
		results = append(results, u)
	}
	return results, nil
}

// Cleanup removes records older than retention and reports how many went.
func (s *Store) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	threshold := s.now().Add(-retention).UTC()
	n, err := s.queries.CleanupExecutionMetrics(ctx, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup metrics: %w", err)
	}
	return n, nil
}

// MapUsage helper to convert shared.TokenUsage to ExecutionMetric.
func MapUsage(agentName string, usage shared.TokenUsage, latency time.Duration) ExecutionMetric {
	return ExecutionMetric{
		AgentName:        agentName,
		Model:            usage.Model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		LatencyMS:        latency.Milliseconds(),
		Timestamp:        time.Now().UTC(),
	}
}

func dayString(v interface{}) string {
	switch d := v.(type) {
	case string:
		return d
	case []byte:
		return string(d)
	default:
		return "Unknown"
	}
}
