// Package cli renders command results for the shirabe CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/internal/trace"
	"github.com/hyperjump/shirabe/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const rule = "─────────────────────────────────────────────────────────"

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func write(w io.Writer, v any, format OutputFormat, text func()) error {
	if format == OutputJSON {
		return WriteJSON(w, v)
	}
	text()
	return nil
}

// WriteChatResult writes a chat reply with its sources.
func WriteChatResult(w io.Writer, res *models.ChatResult, format OutputFormat) error {
	return write(w, res, format, func() {
		fmt.Fprintf(w, "%s\n", res.Reply)
		if len(res.Sources) > 0 {
			fmt.Fprintln(w, "\nSources:")
			for _, s := range res.Sources {
				fmt.Fprintf(w, "  - %s\n", s)
			}
		}
		if res.RunID != "" {
			fmt.Fprintf(w, "\nrun: %s  mode: %v\n", res.RunID, res.Meta["mode"])
		}
	})
}

// WriteIndexStats writes the result of an index build.
func WriteIndexStats(w io.Writer, stats *models.IndexStats, format OutputFormat) error {
	return write(w, stats, format, func() {
		fmt.Fprintf(w, "Indexed %d documents (dim %d)\n", stats.DocumentsIndexed, stats.Dim)
	})
}

// WriteDocumentHits writes similarity search results.
func WriteDocumentHits(w io.Writer, hits []models.DocumentHit, format OutputFormat) error {
	return write(w, map[string]any{"results": hits}, format, func() {
		fmt.Fprintf(w, "\nFound %d documents\n\n", len(hits))
		for i, h := range hits {
			fmt.Fprintln(w, rule)
			fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", i+1, h.Score)
			fmt.Fprintf(w, "Path: %s\n", h.Path)
			fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(h.Snippet, 200))
		}
	})
}

// WriteKeywordHits writes keyword search results with their highlighted fragments.
func WriteKeywordHits(w io.Writer, hits []models.KeywordHit, format OutputFormat) error {
	return write(w, map[string]any{"results": hits}, format, func() {
		fmt.Fprintf(w, "\nFound %d documents\n\n", len(hits))
		for i, h := range hits {
			fmt.Fprintln(w, rule)
			fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", i+1, h.Score)
			fmt.Fprintf(w, "Path: %s\n", h.Path)
			for _, f := range h.Fragments {
				fmt.Fprintf(w, "  … %s\n", strings.TrimSpace(f))
			}
			fmt.Fprintln(w)
		}
	})
}

// WriteEpisodeHits writes memory search results.
func WriteEpisodeHits(w io.Writer, hits []models.EpisodeHit, format OutputFormat) error {
	return write(w, map[string]any{"episodes": hits}, format, func() {
		fmt.Fprintf(w, "\nFound %d episodes\n\n", len(hits))
		for _, h := range hits {
			fmt.Fprintln(w, rule)
			fmt.Fprintf(w, "Score: %.4f\n", h.Score)
			writeEpisode(w, h.Episode)
		}
	})
}

// WriteEpisodes writes episodes newest first, as listed.
func WriteEpisodes(w io.Writer, eps []models.Episode, format OutputFormat) error {
	return write(w, map[string]any{"episodes": eps}, format, func() {
		fmt.Fprintf(w, "\n%d episodes\n\n", len(eps))
		for _, ep := range eps {
			fmt.Fprintln(w, rule)
			writeEpisode(w, ep)
		}
	})
}

func writeEpisode(w io.Writer, ep models.Episode) {
	fmt.Fprintf(w, "ID: %s | %s | mode: %s\n", ep.ID, ep.Time().UTC().Format(time.RFC3339), ep.Mode)
	fmt.Fprintf(w, "Q: %s\n", ep.Query)
	fmt.Fprintf(w, "A: %s\n\n", TruncateWords(ep.Response, 40))
}

// WriteResearch writes a research report.
func WriteResearch(w io.Writer, report *models.ResearchReport, format OutputFormat) error {
	return write(w, report, format, func() {
		fmt.Fprintln(w, "Plan:")
		for _, p := range report.Plan {
			fmt.Fprintf(w, "  - %s\n", p)
		}
		fmt.Fprintf(w, "\nPages (%d):\n", len(report.Pages))
		for _, p := range report.Pages {
			fmt.Fprintf(w, "  - %s  %s\n", p.URL, p.Title)
		}
		fmt.Fprintf(w, "\n%s\n", report.Synthesis.Summary)
	})
}

// WriteReflection writes critic notes.
func WriteReflection(w io.Writer, rec *models.Reflection, format OutputFormat) error {
	return write(w, rec, format, func() {
		fmt.Fprintf(w, "Reviewed %d episodes\n\n%s\n", rec.EpisodeCount, rec.Notes)
	})
}

// WriteEvents writes the trace events of a run, one per line.
func WriteEvents(w io.Writer, runID string, events []trace.Event, format OutputFormat) error {
	return write(w, map[string]any{"run_id": runID, "events": events}, format, func() {
		fmt.Fprintf(w, "run %s (%d events)\n", runID, len(events))
		for _, ev := range events {
			fmt.Fprintf(w, "  %s\n", formatEvent(ev))
		}
	})
}

// formatEvent renders the well-known keys first, then the rest sorted.
func formatEvent(ev trace.Event) string {
	var parts []string
	seen := map[string]bool{}
	for _, k := range []string{"timestamp", "event", "node", "component", "duration"} {
		if v, ok := ev[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(ev))
	for k := range ev {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		parts = append(parts, fmt.Sprintf("%s=%v", k, ev[k]))
	}
	return strings.Join(parts, " ")
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
