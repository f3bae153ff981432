package pipeline

import (
	"context"
	"strings"

	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/pkg/utils"
)

const (
	synthesizeSystemPrompt = "Answer the question with the provided context and cite sources."
	noAnswerReply          = "No answer generated."
	generationFailedReply  = "Unable to generate response at this time."
	memoryExcerpt          = 400
	webExcerpt             = 500
)

// BuildContext assembles the grounding context and the sources it cites:
// local documents first, then memory, then web pages.
func BuildContext(chunks []models.DocumentHit, memory []models.EpisodeHit, pages []models.CrawlPage) (string, []string) {
	parts := make([]string, 0, len(chunks)+len(memory)+len(pages))
	sources := make([]string, 0, len(parts))
	for _, c := range chunks {
		parts = append(parts, "Local: "+c.Snippet)
		if c.Path != "" {
			sources = append(sources, c.Path)
		}
	}
	for _, ep := range memory {
		parts = append(parts, "Memory: "+utils.Head(ep.Response, memoryExcerpt))
		sources = append(sources, "memory://"+ep.ID)
	}
	for _, p := range pages {
		parts = append(parts, "Web: "+utils.Head(p.Text, webExcerpt))
		if p.URL != "" {
			sources = append(sources, p.URL)
		}
	}
	return strings.Join(parts, "\n\n"), sources
}

// SynthesisMessages returns the generator prompt for query and context.
func SynthesisMessages(query, grounding string) []models.Message {
	return []models.Message{
		{Role: models.RoleSystem, Content: synthesizeSystemPrompt},
		{Role: models.RoleUser, Content: "Question: " + query + "\n\nContext:\n" + grounding},
	}
}

// synthesize returns the reply and sources. A nil generator yields
// noAnswerReply; a failing one yields generationFailedReply and the error.
func synthesize(ctx context.Context, gen Generator, query string, st *State) (string, []string, error) {
	grounding, sources := BuildContext(st.RetrievedChunks, st.MemoryHits, st.Pages)
	if gen == nil {
		return noAnswerReply, sources, ErrUnavailable
	}
	reply, err := gen.Generate(ctx, SynthesisMessages(query, grounding))
	if err != nil {
		return generationFailedReply, sources, err
	}
	if reply == "" {
		reply = noAnswerReply
	}
	return reply, sources, nil
}
