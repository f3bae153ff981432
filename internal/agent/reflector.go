package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/shirabe/internal/llm"
	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/internal/trace"
)

// ErrNoEpisodes is returned when there is nothing to reflect on.
var ErrNoEpisodes = errors.New("no memory episodes available to reflect on yet")

const reviewerSystemPrompt = "You are a rigorous AI reviewer."

// ReflectionStore is the part of episodic memory a reflection pass needs.
type ReflectionStore interface {
	LoadRecent(limit int) ([]models.Episode, error)
	AppendReflection(r models.Reflection) error
}

// Reflector reviews recent episodes with the generator and logs its notes.
type Reflector struct {
	memory ReflectionStore
	gen    llm.Generator
	tracer *trace.Tracer
	now    func() time.Time
}

// NewReflector returns a reflector.
func NewReflector(memory ReflectionStore, gen llm.Generator, tracer *trace.Tracer) *Reflector {
	if tracer == nil {
		tracer = trace.NewTracer(nil)
	}
	return &Reflector{memory: memory, gen: gen, tracer: tracer, now: time.Now}
}

// CriticPrompt builds the review request for episodes.
func CriticPrompt(episodes []models.Episode) string {
	lines := make([]string, len(episodes))
	for i, ep := range episodes {
		lines[i] = fmt.Sprintf("- Query: %s\n  Answer: %s\n  Mode: %s", ep.Query, ep.Response, ep.Mode)
	}
	var b strings.Builder
	b.WriteString("You are a critic reviewing an autonomous research assistant. ")
	b.WriteString("Inspect the recent interactions and produce:\n")
	b.WriteString("1. A short bullet list of recurring issues.\n")
	b.WriteString("2. Concrete suggestions to improve future answers.\n")
	b.WriteString("3. Optional follow-up questions the agent should ask users.\n\n")
	b.WriteString("Interactions:\n\"\"\"\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\"\"\"\n")
	b.WriteString("Respond in Markdown with headings `Findings`, `Improvements`, and `Follow-ups`.")
	return b.String()
}

// Run reviews up to limit recent episodes and appends the notes to the
// reflection log.
func (r *Reflector) Run(ctx context.Context, limit int) (*models.Reflection, error) {
	episodes, err := r.memory.LoadRecent(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load episodes: %w", err)
	}
	if len(episodes) == 0 {
		return nil, ErrNoEpisodes
	}
	if r.gen == nil {
		return nil, fmt.Errorf("reflection: %w", llm.ErrGeneration)
	}

	runID := trace.NewRunID()
	end := r.tracer.Span(runID, trace.Event{"component": "reflection", "mode": "offline"})
	notes, err := r.gen.Generate(ctx, []models.Message{
		{Role: models.RoleSystem, Content: reviewerSystemPrompt},
		{Role: models.RoleUser, Content: CriticPrompt(episodes)},
	})
	if err != nil {
		end(err)
		return nil, fmt.Errorf("reflection: %w", err)
	}
	r.tracer.Append(runID, trace.Event{"event": "reflection_complete", "notes_length": len(notes)})
	end(nil)

	rec := models.Reflection{
		Timestamp:    models.UnixSeconds(r.now()),
		Notes:        notes,
		EpisodeCount: len(episodes),
	}
	if err := r.memory.AppendReflection(rec); err != nil {
		return nil, fmt.Errorf("failed to log reflection: %w", err)
	}
	return &rec, nil
}
