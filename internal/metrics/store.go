package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"mealmapp/internal/database"
	"mealmapp/internal/shared"
)

// ExecutionMetric records metadata for a single LLM call.
type ExecutionMetric struct {
	AgentName        string
	Model            string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	Timestamp        time.Time
}

// GenerationMetric records the outcome of one menu generation.
type GenerationMetric struct {
	UserID        string
	Outcome       string
	FilledSlots   int
	TotalSlots    int
	StageCounts   []int
	FallbackPicks int
	BudgetSpent   float64
	Shared        bool
	LatencyMS     int64
	Timestamp     time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves an execution metric to the database.
func (s *Store) Record(ctx context.Context, m ExecutionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO execution_metrics (agent_name, model, prompt_tokens, completion_tokens, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.AgentName, m.Model, m.PromptTokens, m.CompletionTokens, m.LatencyMS, database.FormatTime(ts))
	if err != nil {
		return fmt.Errorf("failed to record execution metric: %w", err)
	}
	return nil
}

// RecordMeta records metrics directly from shared.AgentMeta. Calls that
// consumed no tokens are skipped.
func (s *Store) RecordMeta(ctx context.Context, meta shared.AgentMeta) error {
	if meta.Usage.PromptTokens == 0 && meta.Usage.CompletionTokens == 0 {
		return nil
	}
	return s.Record(ctx, MapUsage(meta.AgentName, meta.Usage, meta.Latency))
}

// RecordGeneration saves the outcome of a menu generation.
func (s *Store) RecordGeneration(ctx context.Context, m GenerationMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	stages := m.StageCounts
	if stages == nil {
		stages = []int{}
	}
	stagesJSON, err := json.Marshal(stages)
	if err != nil {
		return fmt.Errorf("failed to marshal stage counts: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO generation_metrics (user_id, outcome, filled_slots, total_slots, stage_counts,
			fallback_picks, budget_spent, shared, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.UserID, m.Outcome, m.FilledSlots, m.TotalSlots, string(stagesJSON),
		m.FallbackPicks, m.BudgetSpent, m.Shared, m.LatencyMS, database.FormatTime(ts))
	if err != nil {
		return fmt.Errorf("failed to record generation metric: %w", err)
	}
	return nil
}

// DailyUsage represents token totals and generation counts for a single day.
type DailyUsage struct {
	Date            string
	TotalPrompt     int
	TotalCompletion int
	TotalExecution  int
	Generations     int
	PartialMenus    int
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := database.FormatTime(time.Now().AddDate(0, 0, -days))

	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(timestamp, 1, 10) AS day, COUNT(*), COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0)
		FROM execution_metrics WHERE timestamp >= ? GROUP BY day`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	byDay := make(map[string]*DailyUsage)
	var order []string
	get := func(day string) *DailyUsage {
		u, ok := byDay[day]
		if !ok {
			u = &DailyUsage{Date: day}
			byDay[day] = u
			order = append(order, day)
		}
		return u
	}

	for rows.Next() {
		var day string
		var count, prompt, completion int
		if err := rows.Scan(&day, &count, &prompt, &completion); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		u := get(day)
		u.TotalExecution, u.TotalPrompt, u.TotalCompletion = count, prompt, completion
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily usage: %w", err)
	}

	genRows, err := s.db.QueryContext(ctx, `
		SELECT substr(timestamp, 1, 10) AS day, COUNT(*), COALESCE(SUM(CASE WHEN outcome = 'partial' THEN 1 ELSE 0 END), 0)
		FROM generation_metrics WHERE timestamp >= ? GROUP BY day`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily generations: %w", err)
	}
	defer genRows.Close()

	for genRows.Next() {
		var day string
		var count, partial int
		if err := genRows.Scan(&day, &count, &partial); err != nil {
			return nil, fmt.Errorf("failed to scan daily generations: %w", err)
		}
		u := get(day)
		u.Generations, u.PartialMenus = count, partial
	}
	if err := genRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily generations: %w", err)
	}

	results := make([]DailyUsage, 0, len(order))
	for _, day := range order {
		results = append(results, *byDay[day])
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Date > results[j].Date })
	return results, nil
}

// Cleanup removes records older than the specified number of days and
// returns how many rows were deleted.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := database.FormatTime(time.Now().AddDate(0, 0, -olderThanDays))

	var total int64
	for _, table := range []string{"execution_metrics", "generation_metrics"} {
		res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE timestamp < ?`, threshold)
		if err != nil {
			return total, fmt.Errorf("failed to clean up %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("failed to count cleaned rows: %w", err)
		}
		total += n
	}
	return total, nil
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
