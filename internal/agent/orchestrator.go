// Package agent runs chat queries end to end and reflects on past episodes.
package agent

import (
	"context"
	"strings"
	"sync"

	"github.com/hyperjump/shirabe/internal/config"
	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/internal/pipeline"
	"github.com/hyperjump/shirabe/internal/trace"
	"go.uber.org/zap"
)

// EpisodeRecorder is the part of episodic memory a chat run needs.
type EpisodeRecorder interface {
	Search(ctx context.Context, query string, k int) ([]models.EpisodeHit, error)
	RecordEpisode(ctx context.Context, query, response, mode string, sources []string, meta map[string]any) (*models.Episode, error)
}

// Orchestrator runs one query at a time through the pipeline and records
// the interaction.
type Orchestrator struct {
	graph       *pipeline.Graph
	memory      EpisodeRecorder
	tracer      *trace.Tracer
	defaultMode string
	memoryK     int
	logger      *zap.Logger
	newRunID    func() string

	mu sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMemoryK sets how many past episodes are attached to the result meta.
func WithMemoryK(k int) Option {
	return func(o *Orchestrator) { o.memoryK = k }
}

// WithRunIDs overrides run id generation.
func WithRunIDs(next func() string) Option {
	return func(o *Orchestrator) { o.newRunID = next }
}

// NewOrchestrator returns an orchestrator. defaultMode replaces empty or
// unknown modes passed to Run.
func NewOrchestrator(graph *pipeline.Graph, memory EpisodeRecorder, tracer *trace.Tracer, defaultMode string, opts ...Option) *Orchestrator {
	if tracer == nil {
		tracer = trace.NewTracer(nil)
	}
	o := &Orchestrator{
		graph:       graph,
		memory:      memory,
		tracer:      tracer,
		defaultMode: config.NormalizeMode(defaultMode),
		memoryK:     3,
		logger:      zap.NewNop(),
		newRunID:    trace.NewRunID,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Mode resolves a requested mode against the default.
func (o *Orchestrator) Mode(mode string) string {
	m := strings.ToLower(strings.TrimSpace(mode))
	if !config.IsValidMode(m) {
		return o.defaultMode
	}
	return m
}

// Run answers query. Collaborator failures degrade the answer; only a
// cancelled context is returned as an error.
func (o *Orchestrator) Run(ctx context.Context, query, mode string) (*models.ChatResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	mode = o.Mode(mode)
	runID := o.newRunID()
	msgs := BuildMessages(query, mode)
	hits := o.searchMemory(ctx, query)

	end := o.tracer.Span(runID, trace.Event{"component": "orchestrator", "mode": mode})
	st, err := o.graph.Run(ctx, runID, msgs, mode)
	if err != nil {
		end(err)
		return nil, err
	}
	o.tracer.Append(runID, trace.Event{"event": "result", "meta": copyMeta(st.Meta)})
	end(nil)

	res := st.Result()
	res.Meta["memory_hits"] = len(hits)
	if len(hits) > 0 {
		refs := make([]models.EpisodeRef, len(hits))
		for i, h := range hits {
			refs[i] = models.EpisodeRef{EpisodeID: h.ID, Score: h.Score, Query: h.Query}
		}
		res.Meta["memory"] = refs
	}
	for _, d := range st.Degraded() {
		o.logger.Info("node degraded",
			zap.String("run_id", runID),
			zap.String("node", d.Node),
			zap.Error(d.Cause))
	}

	if o.memory != nil {
		if _, err := o.memory.RecordEpisode(ctx, query, res.Reply, mode, res.Sources, res.Meta); err != nil {
			o.logger.Warn("failed to record episode", zap.String("run_id", runID), zap.Error(err))
		}
	}
	return &res, nil
}

func (o *Orchestrator) searchMemory(ctx context.Context, query string) []models.EpisodeHit {
	if o.memory == nil {
		return nil
	}
	hits, err := o.memory.Search(ctx, query, o.memoryK)
	if err != nil {
		o.logger.Debug("memory search failed", zap.Error(err))
		return nil
	}
	return hits
}

func copyMeta(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
