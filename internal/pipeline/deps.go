// Package pipeline is the query orchestration state machine:
//
//	route -> retrieve -> respond            (offline)
//	route -> retrieve -> plan -> ...        (hybrid)
//	route -> plan -> search -> crawl -> synthesize -> respond   (web)
//
// Every collaborator is reached through a narrow interface and every failure
// degrades the run instead of aborting it.
package pipeline

import (
	"context"
	"errors"

	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/internal/trace"
	"go.uber.org/zap"
)

// ErrUnavailable marks a node whose collaborator is not configured.
var ErrUnavailable = errors.New("collaborator not configured")

// MemorySearcher finds similar past episodes.
type MemorySearcher interface {
	Search(ctx context.Context, query string, k int) ([]models.EpisodeHit, error)
}

// DocumentRetriever finds similar local documents.
type DocumentRetriever interface {
	Query(ctx context.Context, question string, k int) ([]models.DocumentHit, error)
}

// Planner turns a query into web research questions. An empty plan means
// web access is off.
type Planner interface {
	Plan(query string) ([]string, error)
}

// WebSearcher runs a web search.
type WebSearcher interface {
	Search(ctx context.Context, query string, k int) ([]models.WebResult, error)
}

// Crawler fetches readable pages from seed URLs.
type Crawler interface {
	Crawl(ctx context.Context, urls []string, depth, maxPages int) ([]models.CrawlPage, error)
}

// Generator produces the final answer.
type Generator interface {
	Generate(ctx context.Context, msgs []models.Message) (string, error)
}

// Deps are the collaborators of a run. Any of them may be nil; the node
// that needs a missing one degrades with ErrUnavailable.
type Deps struct {
	Memory    MemorySearcher
	Documents DocumentRetriever
	Planner   Planner
	Web       WebSearcher
	Crawler   Crawler
	Generator Generator
	Sink      trace.Sink
	Logger    *zap.Logger
}

// Settings are the per-node fan-out limits.
type Settings struct {
	MemoryK       int
	RetrieveK     int
	SearchK       int
	CrawlDepth    int
	CrawlMaxPages int
}

// DefaultSettings returns the standard limits.
func DefaultSettings() Settings {
	return Settings{MemoryK: 3, RetrieveK: 4, SearchK: 5, CrawlDepth: 1, CrawlMaxPages: 5}
}
