package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage implements EventStore using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		ts REAL NOT NULL,
		kind TEXT,
		node TEXT,
		payload TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run_id ON events(run_id, id);
	CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
	`
	_, err := db.Exec(schema)
	return err
}

func stringField(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

// AppendEvent stores one event. The "event" and "node" fields of payload are
// copied into their own columns so runs can be filtered without decoding JSON.
func (s *SQLiteStorage) AppendEvent(ctx context.Context, runID string, at time.Time, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	ts := float64(at.UnixNano()) / 1e9
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (run_id, ts, kind, node, payload) VALUES (?, ?, ?, ?, ?)`,
		runID, ts, stringField(payload, "event"), stringField(payload, "node"), string(data),
	)
	return err
}

// RunEvents returns the events of runID in insertion order.
func (s *SQLiteStorage) RunEvents(ctx context.Context, runID string) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM events WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var ev map[string]any
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ListRuns returns up to limit runs, most recently active first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, COUNT(*), MIN(ts), MAX(ts) FROM events
		 GROUP BY run_id ORDER BY MAX(ts) DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var first, last float64
		if err := rows.Scan(&r.RunID, &r.Events, &first, &last); err != nil {
			return nil, err
		}
		r.FirstSeen = fromUnix(first)
		r.LastSeen = fromUnix(last)
		out = append(out, r)
	}
	return out, rows.Err()
}

func fromUnix(ts float64) time.Time {
	sec := int64(ts)
	return time.Unix(sec, int64((ts-float64(sec))*1e9))
}

// CountEvents returns the total number of stored events.
func (s *SQLiteStorage) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
