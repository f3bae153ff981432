package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteStorage_AppendAndRead(t *testing.T) {
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "events.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	at := time.Unix(1700000000, 0)
	events := []map[string]any{
		{"event": "start", "component": "orchestrator"},
		{"node": "route", "duration_ms": 1.5},
		{"event": "end", "duration": 0.2},
	}
	for i, ev := range events {
		if err := store.AppendEvent(ctx, "run1", at.Add(time.Duration(i)*time.Second), ev); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.AppendEvent(ctx, "run2", at, map[string]any{"event": "start"}); err != nil {
		t.Fatal(err)
	}

	got, err := store.RunEvents(ctx, "run1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("RunEvents: got %d events, want 3", len(got))
	}
	if got[1]["node"] != "route" {
		t.Errorf("second event node = %v", got[1]["node"])
	}
	if got[2]["event"] != "end" {
		t.Errorf("last event = %v", got[2]["event"])
	}

	missing, err := store.RunEvents(ctx, "nope")
	if err != nil {
		t.Fatal(err)
	}
	if len(missing) != 0 {
		t.Errorf("unknown run returned %d events", len(missing))
	}
}

func TestSQLiteStorage_ListRunsAndCount(t *testing.T) {
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	at := time.Unix(1700000000, 0)
	_ = store.AppendEvent(ctx, "old", at, map[string]any{"event": "start"})
	_ = store.AppendEvent(ctx, "new", at.Add(time.Minute), map[string]any{"event": "start"})
	_ = store.AppendEvent(ctx, "new", at.Add(2*time.Minute), map[string]any{"event": "end"})

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns: got %d, want 2", len(runs))
	}
	if runs[0].RunID != "new" || runs[0].Events != 2 {
		t.Errorf("first run = %+v", runs[0])
	}
	if !runs[0].LastSeen.After(runs[0].FirstSeen) {
		t.Errorf("expected LastSeen after FirstSeen: %+v", runs[0])
	}

	n, err := store.CountEvents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("CountEvents = %d, want 3", n)
	}
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.AppendEvent(context.Background(), "r", time.Now(), map[string]any{"event": "start"}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store, err = NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	n, err := store.CountEvents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("CountEvents after reopen = %d, want 1", n)
	}
}
