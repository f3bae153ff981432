// Package trace records structured per-run events. Sinks are fire-and-forget:
// a failing sink logs and drops the event and never fails the caller.
package trace

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrRunNotFound is returned when no events exist for a run id.
	ErrRunNotFound = errors.New("trace run not found")
	// ErrInvalidRunID is returned for run ids that cannot name a trace file.
	ErrInvalidRunID = errors.New("invalid run id")
)

// Event is one structured trace record.
type Event map[string]any

// Sink receives trace events.
type Sink interface {
	Append(runID string, ev Event)
}

// Reader reads back the events of a run.
type Reader interface {
	ReadRun(ctx context.Context, runID string) ([]Event, error)
}

// NewRunID returns a fresh run id (uuid hex without dashes).
func NewRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidRunID reports whether id is safe to use as a file name.
func ValidRunID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Option configures a sink or tracer.
type Option func(*options)

type options struct {
	logger *zap.Logger
	now    func() time.Time
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used to report dropped events.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NopSink discards every event.
type NopSink struct{}

// Append does nothing.
func (NopSink) Append(string, Event) {}

// MultiSink fans an event out to several sinks.
type MultiSink []Sink

// Append forwards ev to every sink.
func (m MultiSink) Append(runID string, ev Event) {
	for _, s := range m {
		s.Append(runID, ev)
	}
}

// Tracer wraps a sink with span helpers.
type Tracer struct {
	sink Sink
	now  func() time.Time
}

// NewTracer returns a tracer writing to sink. A nil sink discards events.
func NewTracer(sink Sink, opts ...Option) *Tracer {
	if sink == nil {
		sink = NopSink{}
	}
	o := buildOptions(opts)
	return &Tracer{sink: sink, now: o.now}
}

// Sink returns the underlying sink.
func (t *Tracer) Sink() Sink {
	return t.sink
}

// Append forwards ev to the sink.
func (t *Tracer) Append(runID string, ev Event) {
	t.sink.Append(runID, ev)
}

// Span emits a start event carrying fields and returns a function that emits
// the matching end event, or an error event when called with a non-nil error.
func (t *Tracer) Span(runID string, fields Event) func(err error) {
	start := t.now()
	ev := Event{"event": "start"}
	for k, v := range fields {
		ev[k] = v
	}
	t.sink.Append(runID, ev)
	return func(err error) {
		if err != nil {
			t.sink.Append(runID, Event{"event": "error", "error": err.Error()})
			return
		}
		t.sink.Append(runID, Event{"event": "end", "duration": t.now().Sub(start).Seconds()})
	}
}
