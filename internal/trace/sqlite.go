package trace

import (
	"context"
	"time"

	"github.com/hyperjump/shirabe/internal/storage"
	"go.uber.org/zap"
)

// SQLiteSink mirrors events into an event store so runs can be queried.
type SQLiteSink struct {
	store  storage.EventStore
	logger *zap.Logger
	now    func() time.Time
}

// NewSQLiteSink returns a sink writing to store.
func NewSQLiteSink(store storage.EventStore, opts ...Option) *SQLiteSink {
	o := buildOptions(opts)
	return &SQLiteSink{store: store, logger: o.logger, now: o.now}
}

// Append stores ev. Failures are logged and dropped.
func (s *SQLiteSink) Append(runID string, ev Event) {
	if err := s.store.AppendEvent(context.Background(), runID, s.now(), ev); err != nil {
		s.logger.Warn("failed to store trace event", zap.String("run_id", runID), zap.Error(err))
	}
}

// ReadRun returns the stored events of runID in order.
func (s *SQLiteSink) ReadRun(ctx context.Context, runID string) ([]Event, error) {
	raw, err := s.store.RunEvents(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrRunNotFound
	}
	out := make([]Event, len(raw))
	for i, ev := range raw {
		out[i] = ev
	}
	return out, nil
}
