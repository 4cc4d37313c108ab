package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Entry is one recorded lifecycle operation.
type Entry struct {
	ID           int64
	Timestamp    time.Time
	TraceID      string
	Command      string
	Target       sql.NullString
	Outcome      string
	Detail       sql.NullString
	ErrorMessage sql.NullString
}

// WriteHistory records a lifecycle operation. Target, detail, and errorMsg
// may be empty.
func (s *Store) WriteHistory(ctx context.Context, traceID, command, target, outcome, detail, errorMsg string) error {
	nullable := func(v string) sql.NullString {
		return sql.NullString{String: v, Valid: v != ""}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (ts, trace_id, command, target, outcome, detail, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, time.Now().UTC(), traceID, command, nullable(target), outcome, nullable(detail), nullable(errorMsg))
	if err != nil {
		return fmt.Errorf("store: write history: %w", err)
	}
	return nil
}

// RecentHistory returns the most recent entries, newest first.
func (s *Store) RecentHistory(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, trace_id, command, target, outcome, detail, error_message
		FROM history
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query history: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(
			&e.ID, &e.Timestamp, &e.TraceID, &e.Command,
			&e.Target, &e.Outcome, &e.Detail, &e.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("store: scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate history: %w", err)
	}
	return entries, nil
}
