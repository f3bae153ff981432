package trace

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JSONLSink appends events to {dir}/{run_id}.jsonl, adding a UTC timestamp
// to each record.
type JSONLSink struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// NewJSONLSink creates dir if needed and returns a sink writing into it.
func NewJSONLSink(dir string, opts ...Option) (*JSONLSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create trace dir: %w", err)
	}
	o := buildOptions(opts)
	return &JSONLSink{dir: dir, logger: o.logger, now: o.now}, nil
}

func (s *JSONLSink) path(runID string) string {
	return filepath.Join(s.dir, runID+".jsonl")
}

// Append writes ev as one JSON line. Failures are logged and dropped.
func (s *JSONLSink) Append(runID string, ev Event) {
	if !ValidRunID(runID) {
		s.logger.Warn("dropping trace event with invalid run id", zap.String("run_id", runID))
		return
	}
	record := make(Event, len(ev)+1)
	for k, v := range ev {
		record[k] = v
	}
	record["timestamp"] = s.now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(record)
	if err != nil {
		s.logger.Warn("failed to encode trace event", zap.String("run_id", runID), zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path(runID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		s.logger.Warn("failed to open trace file", zap.String("run_id", runID), zap.Error(err))
		return
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		s.logger.Warn("failed to write trace event", zap.String("run_id", runID), zap.Error(err))
	}
	_ = f.Close()
}

// ReadRun returns the events recorded for runID in order.
func (s *JSONLSink) ReadRun(ctx context.Context, runID string) ([]Event, error) {
	if !ValidRunID(runID) {
		return nil, ErrInvalidRunID
	}
	f, err := os.Open(s.path(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	defer f.Close()

	var out []Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, sc.Err()
}
