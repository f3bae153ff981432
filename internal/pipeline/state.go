package pipeline

import (
	"github.com/hyperjump/shirabe/internal/models"
)

// Status tags a node outcome.
type Status int

const (
	// Ok means the node completed with its collaborator's real result.
	Ok Status = iota
	// Degraded means the node substituted an empty or fallback result.
	Degraded
)

func (s Status) String() string {
	if s == Degraded {
		return "degraded"
	}
	return "ok"
}

// Outcome records how a node finished.
type Outcome struct {
	Node   string
	Status Status
	Cause  error
}

// State is owned by a single run.
type State struct {
	RunID           string
	Messages        []models.Message
	Mode            string
	MemoryHits      []models.EpisodeHit
	RetrievedChunks []models.DocumentHit
	Plan            []string
	WebResults      []models.WebResult
	Pages           []models.CrawlPage
	Sources         []string
	Reply           string
	Meta            map[string]any
	Outcomes        []Outcome
}

// Query returns the question being answered.
func (s *State) Query() string {
	return models.LastUserContent(s.Messages)
}

// Degraded returns the outcomes that did not complete normally.
func (s *State) Degraded() []Outcome {
	var out []Outcome
	for _, o := range s.Outcomes {
		if o.Status == Degraded {
			out = append(out, o)
		}
	}
	return out
}

// Result is the reply, sources and meta of a finished run.
func (s *State) Result() models.ChatResult {
	sources := s.Sources
	if sources == nil {
		sources = []string{}
	}
	return models.ChatResult{RunID: s.RunID, Reply: s.Reply, Sources: sources, Meta: s.Meta}
}
