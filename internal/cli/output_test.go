package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/internal/trace"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "JSON": OutputJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteChatResult(t *testing.T) {
	res := &models.ChatResult{
		RunID:   "abc",
		Reply:   "The answer.",
		Sources: []string{"/docs/a.md", "https://x.test/"},
		Meta:    map[string]any{"mode": "hybrid"},
	}
	var buf bytes.Buffer
	if err := WriteChatResult(&buf, res, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"The answer.", "  - /docs/a.md", "run: abc  mode: hybrid"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteChatResult(&buf, res, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.ChatResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Reply != res.Reply || len(decoded.Sources) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteDocumentHits(t *testing.T) {
	hits := []models.DocumentHit{{Path: "/docs/a.md", Score: 0.5, Snippet: strings.Repeat("word ", 100)}}
	var buf bytes.Buffer
	if err := WriteDocumentHits(&buf, hits, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Found 1 documents") || !strings.Contains(out, "Score: 0.5000") || !strings.Contains(out, "...") {
		t.Errorf("unexpected output:\n%s", out)
	}

	buf.Reset()
	if err := WriteDocumentHits(&buf, hits, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Results []models.DocumentHit `json:"results"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil || len(decoded.Results) != 1 {
		t.Errorf("decoded = %+v, err %v", decoded, err)
	}
}

func TestWriteKeywordHits(t *testing.T) {
	var buf bytes.Buffer
	hits := []models.KeywordHit{{Path: "/docs/b.md", Score: 1.25, Fragments: []string{" the <mark>river</mark> "}}}
	if err := WriteKeywordHits(&buf, hits, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "… the <mark>river</mark>") {
		t.Errorf("fragment missing:\n%s", buf.String())
	}
}

func TestWriteEpisodes(t *testing.T) {
	eps := []models.Episode{{ID: "e1", Timestamp: 1700000000, Query: "q", Response: "r", Mode: "offline"}}
	var buf bytes.Buffer
	if err := WriteEpisodes(&buf, eps, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "ID: e1 | 2023-11-14T22:13:20Z | mode: offline") {
		t.Errorf("unexpected output:\n%s", out)
	}

	buf.Reset()
	if err := WriteEpisodeHits(&buf, []models.EpisodeHit{{Episode: eps[0], Score: 0.75}}, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Score: 0.7500") {
		t.Errorf("score missing:\n%s", buf.String())
	}
}

func TestWriteEvents(t *testing.T) {
	events := []trace.Event{
		{"event": "start", "component": "orchestrator", "mode": "web"},
		{"node": "route", "duration": 0.5, "memory_hits": 1},
	}
	var buf bytes.Buffer
	if err := WriteEvents(&buf, "r1", events, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "event=start component=orchestrator mode=web") {
		t.Errorf("start event:\n%s", out)
	}
	if !strings.Contains(out, "node=route duration=0.5 memory_hits=1") {
		t.Errorf("node event:\n%s", out)
	}
}

func TestWriteResearchAndReflection(t *testing.T) {
	var buf bytes.Buffer
	report := &models.ResearchReport{
		Plan:      []string{"go"},
		Pages:     []models.CrawlPage{{URL: "https://go.dev/", Title: "Go"}},
		Synthesis: models.Synthesis{Summary: "Go is a language."},
	}
	if err := WriteResearch(&buf, report, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "https://go.dev/  Go") || !strings.Contains(buf.String(), "Go is a language.") {
		t.Errorf("unexpected research output:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteReflection(&buf, &models.Reflection{Notes: "## Findings", EpisodeCount: 3}, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "Reviewed 3 episodes") {
		t.Errorf("unexpected reflection output:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteIndexStats(&buf, &models.IndexStats{DocumentsIndexed: 2, Dim: 384}, OutputText); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "Indexed 2 documents (dim 384)\n" {
		t.Errorf("stats = %q", buf.String())
	}
}

func TestTruncateWords(t *testing.T) {
	if got := TruncateWords("a b c d", 2); got != "a b..." {
		t.Errorf("got %q", got)
	}
	if got := TruncateWords("a b", 5); got != "a b" {
		t.Errorf("got %q", got)
	}
}
