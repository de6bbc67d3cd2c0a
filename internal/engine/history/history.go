package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store records completed analysis runs in a local SQLite database.
// One Store owns one database file; callers keep it for the process
// lifetime and Close it on shutdown.
type Store struct {
	db *sql.DB
}

// Run is one recorded analysis run.
type Run struct {
	ID          int64  `json:"id"`
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name,omitempty"`
	Videos      int    `json:"videos"`
	SortBy      string `json:"sort_by,omitempty"`
	CacheHit    bool   `json:"cache_hit"`
	DurationMS  int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// Stats summarizes the recorded runs.
type Stats struct {
	TotalRuns        int `json:"total_runs"`
	DistinctChannels int `json:"distinct_channels"`
	CacheHits        int `json:"cache_hits"`
	Failures         int `json:"failures"`
}

// Open opens (or creates) the run history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("history: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// initSchema creates the runs table if it doesn't exist.
func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		channel_id   TEXT NOT NULL,
		channel_name TEXT,
		videos       INTEGER NOT NULL DEFAULT 0,
		sort_by      TEXT,
		cache_hit    INTEGER NOT NULL DEFAULT 0,
		duration_ms  INTEGER NOT NULL DEFAULT 0,
		error        TEXT,
		created_at   TEXT NOT NULL
	)`)
	return err
}

// Record inserts one run and returns its id.
func (s *Store) Record(ctx context.Context, run Run) (int64, error) {
	if run.ChannelID == "" {
		run.ChannelID = "unknown"
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (channel_id, channel_name, videos, sort_by, cache_hit, duration_ms, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ChannelID, run.ChannelName, run.Videos, run.SortBy,
		run.CacheHit, run.DurationMS, run.Error, now,
	)
	if err != nil {
		return 0, fmt.Errorf("history: insert: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, channel_id, channel_name, videos, sort_by, cache_hit, duration_ms, error, created_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var name, sortBy, runErr sql.NullString
		if err := rows.Scan(&r.ID, &r.ChannelID, &name, &r.Videos, &sortBy,
			&r.CacheHit, &r.DurationMS, &runErr, &r.CreatedAt); err != nil {
			continue
		}
		r.ChannelName = name.String
		r.SortBy = sortBy.String
		r.Error = runErr.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Aggregate returns totals over the whole history.
func (s *Store) Aggregate(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(DISTINCT channel_id),
		        COALESCE(SUM(cache_hit), 0),
		        COALESCE(SUM(CASE WHEN error IS NOT NULL AND error != '' THEN 1 ELSE 0 END), 0)
		 FROM runs`,
	).Scan(&st.TotalRuns, &st.DistinctChannels, &st.CacheHits, &st.Failures)
	if err != nil {
		return Stats{}, fmt.Errorf("history: stats: %w", err)
	}
	return st, nil
}
