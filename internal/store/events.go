package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// EventRepo provides append access to domain events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
}

// LLMUsage summarises recorded LLM calls.
type LLMUsage struct {
	Requests     int
	Failures     int
	InputTokens  int
	OutputTokens int
	ByModel      []ModelUsage
}

// ModelUsage is the token total for one model.
type ModelUsage struct {
	Model        string
	Requests     int
	InputTokens  int
	OutputTokens int
}

// EventRepo returns an EventRepo backed by this store.
func (s *SQLite) EventRepo() EventRepo {
	return &eventRepo{s: s}
}

type eventRepo struct {
	s *SQLite
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, d LLMRequestEventData) error {
	query, args := r.s.builder().
		Insert(llmRequestTable.Name).
		Columns("created_at", "provider", "model", "purpose",
			"input_tokens", "output_tokens", "latency_ms", "success", "error_message").
		Values(time.Now().UTC(), d.Provider, d.Model, d.Purpose,
			d.InputTokens, d.OutputTokens, d.LatencyMs, d.Success, d.ErrorMessage).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append llm request: %w", err)
	}
	return nil
}

// LLMUsage totals the LLM request log, overall and per model.
func (s *SQLite) LLMUsage(ctx context.Context) (LLMUsage, error) {
	var u LLMUsage
	query, args := s.builder().
		Select(
			entsql.Count("*"),
			"COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0)",
			"COALESCE(SUM(input_tokens), 0)",
			"COALESCE(SUM(output_tokens), 0)",
		).
		From(entsql.Table(llmRequestTable.Name)).
		Query()
	err := s.db.QueryRowContext(ctx, query, args...).
		Scan(&u.Requests, &u.Failures, &u.InputTokens, &u.OutputTokens)
	if err != nil {
		return LLMUsage{}, fmt.Errorf("query llm usage: %w", err)
	}

	query, args = s.builder().
		Select("model", entsql.Count("*"), entsql.Sum("input_tokens"), entsql.Sum("output_tokens")).
		From(entsql.Table(llmRequestTable.Name)).
		GroupBy("model").
		OrderBy("model").
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return LLMUsage{}, fmt.Errorf("query llm usage by model: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m ModelUsage
		if err := rows.Scan(&m.Model, &m.Requests, &m.InputTokens, &m.OutputTokens); err != nil {
			return LLMUsage{}, fmt.Errorf("scan llm usage: %w", err)
		}
		u.ByModel = append(u.ByModel, m)
	}
	return u, rows.Err()
}
