// Package store persists a history of analysis runs to SQLite so repeated
// runs over growing exports can be compared over time.
package store

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps SQLite access for the run history.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			input_path TEXT,
			started_at TIMESTAMP,
			finished_at TIMESTAMP,
			total_calls INTEGER,
			answered INTEGER,
			interested INTEGER,
			conversion_pct REAL,
			total_duration_seconds INTEGER,
			skipped_records INTEGER,
			duration_fallbacks INTEGER,
			timestamp_fallbacks INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Run is one completed analysis recorded in the history.
type Run struct {
	ID                   string
	InputPath            string
	StartedAt            time.Time
	FinishedAt           time.Time
	TotalCalls           int
	Answered             int
	Interested           int
	ConversionPct        float64
	TotalDurationSeconds int
	SkippedRecords       int
	DurationFallbacks    int
	TimestampFallbacks   int
}

// RecordRun inserts one completed run.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_path, started_at, finished_at, total_calls,
			answered, interested, conversion_pct, total_duration_seconds,
			skipped_records, duration_fallbacks, timestamp_fallbacks)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.InputPath, run.StartedAt, run.FinishedAt, run.TotalCalls,
		run.Answered, run.Interested, run.ConversionPct, run.TotalDurationSeconds,
		run.SkippedRecords, run.DurationFallbacks, run.TimestampFallbacks)
	return err
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input_path, started_at, finished_at, total_calls, answered,
			interested, conversion_pct, total_duration_seconds, skipped_records,
			duration_fallbacks, timestamp_fallbacks
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		err := rows.Scan(&r.ID, &r.InputPath, &r.StartedAt, &r.FinishedAt,
			&r.TotalCalls, &r.Answered, &r.Interested, &r.ConversionPct,
			&r.TotalDurationSeconds, &r.SkippedRecords,
			&r.DurationFallbacks, &r.TimestampFallbacks)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
