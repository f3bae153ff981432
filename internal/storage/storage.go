// Package storage persists trace events in SQLite and reports disk usage of
// the data directories.
package storage

import (
	"context"
	"time"
)

// RunSummary describes one traced run.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	Events    int       `json:"events"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// EventStore defines trace event persistence operations.
type EventStore interface {
	AppendEvent(ctx context.Context, runID string, at time.Time, payload map[string]any) error
	// RunEvents returns the events of one run in insertion order.
	RunEvents(ctx context.Context, runID string) ([]map[string]any, error)
	// ListRuns returns the most recently active runs first.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	CountEvents(ctx context.Context) (int64, error)

	Close() error
}
