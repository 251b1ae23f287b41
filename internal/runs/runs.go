// Package runs persists conversion run history in the caneco.runs table.
// The store is optional: deployments without a database skip it and the
// service degrades to stateless conversion.
package runs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// Run is one recorded conversion.
type Run struct {
	ID         int64     `json:"id"`
	Source     string    `json:"source"`
	Total      int       `json:"total"`
	Matched    int       `json:"matched"`
	Skipped    int       `json:"skipped"`
	Defaulted  int       `json:"defaulted"`
	Status     string    `json:"status"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// querier is the minimal interface needed from a pgx pool.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Insert records a finished conversion and fills in ID and CreatedAt.
func Insert(ctx context.Context, q querier, r *Run) error {
	err := q.QueryRow(ctx, `
        INSERT INTO caneco.runs (
            source, total, matched, skipped, defaulted, status, duration_ms
        ) VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at
    `,
		r.Source, r.Total, r.Matched, r.Skipped, r.Defaulted, r.Status, r.DurationMS,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	slog.Info("recorded conversion run",
		"run_id", r.ID, "source", r.Source, "status", r.Status,
		"total", r.Total, "matched", r.Matched, "skipped", r.Skipped)
	return nil
}

// Recent returns the latest runs, newest first.
func Recent(ctx context.Context, q querier, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := q.Query(ctx, `
        SELECT id, source, total, matched, skipped, defaulted, status, duration_ms, created_at
        FROM caneco.runs
        ORDER BY created_at DESC, id DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.ID, &r.Source, &r.Total, &r.Matched, &r.Skipped,
			&r.Defaulted, &r.Status, &r.DurationMS, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return out, nil
}
