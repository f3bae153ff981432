package pipeline

import (
	"context"
	"time"

	"github.com/hyperjump/shirabe/internal/config"
	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/internal/trace"
	"go.uber.org/zap"
)

// Node names, also used as the "node" field of trace events.
const (
	NodeRoute      = "route"
	NodeRetrieve   = "retrieve"
	NodePlan       = "plan"
	NodeSearch     = "search"
	NodeCrawl      = "crawl"
	NodeSynthesize = "synthesize"
	NodeRespond    = "respond"
)

const noResponseReply = "No response."

// Graph runs the state machine over a fixed set of collaborators.
type Graph struct {
	deps     Deps
	settings Settings
	now      func() time.Time
}

// Option configures a Graph.
type Option func(*Graph)

// WithSettings overrides the default fan-out limits.
func WithSettings(s Settings) Option {
	return func(g *Graph) { g.settings = s }
}

// WithClock overrides the time source used for node durations.
func WithClock(now func() time.Time) Option {
	return func(g *Graph) { g.now = now }
}

// New returns a graph over deps.
func New(deps Deps, opts ...Option) *Graph {
	if deps.Sink == nil {
		deps.Sink = trace.NopSink{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	g := &Graph{deps: deps, settings: DefaultSettings(), now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run executes one query. Node failures never abort the run; they are
// recorded as Degraded outcomes. The returned error is ctx's error when the
// context ended during the run.
func (g *Graph) Run(ctx context.Context, runID string, msgs []models.Message, mode string) (*State, error) {
	st := &State{RunID: runID, Messages: msgs, Mode: mode}
	for node := NodeRoute; node != ""; {
		node = g.exec(ctx, st, node)
	}
	return st, ctx.Err()
}

// exec runs one node, records its outcome and event, and returns the next node.
func (g *Graph) exec(ctx context.Context, st *State, node string) string {
	start := g.now()
	var (
		summary trace.Event
		err     error
		next    string
	)
	switch node {
	case NodeRoute:
		summary, err = g.route(ctx, st)
		next = NodeRetrieve
		if st.Mode == config.ModeWeb {
			next = NodePlan
		}
	case NodeRetrieve:
		summary, err = g.retrieve(ctx, st)
		next = NodePlan
		if st.Mode == config.ModeOffline {
			next = NodeRespond
		}
	case NodePlan:
		summary, err = g.plan(st)
		next = NodeSearch
	case NodeSearch:
		summary, err = g.search(ctx, st)
		next = NodeCrawl
	case NodeCrawl:
		summary, err = g.crawl(ctx, st)
		next = NodeSynthesize
	case NodeSynthesize:
		summary, err = g.synthesize(ctx, st)
		next = NodeRespond
	case NodeRespond:
		summary = g.respond(st)
	}

	outcome := Outcome{Node: node, Status: Ok}
	ev := trace.Event{"node": node, "duration": g.now().Sub(start).Seconds()}
	for k, v := range summary {
		ev[k] = v
	}
	if err != nil {
		outcome.Status = Degraded
		outcome.Cause = err
		ev["status"] = Degraded.String()
		ev["cause"] = err.Error()
		g.deps.Logger.Debug("node degraded",
			zap.String("run_id", st.RunID),
			zap.String("node", node),
			zap.Error(err))
	}
	st.Outcomes = append(st.Outcomes, outcome)
	g.deps.Sink.Append(st.RunID, ev)
	return next
}

func (g *Graph) route(ctx context.Context, st *State) (trace.Event, error) {
	st.Mode = config.NormalizeMode(st.Mode)
	st.MemoryHits = []models.EpisodeHit{}
	if g.deps.Memory == nil {
		return trace.Event{"mode": st.Mode, "memory_hits": 0}, ErrUnavailable
	}
	hits, err := g.deps.Memory.Search(ctx, st.Query(), g.settings.MemoryK)
	if err == nil && hits != nil {
		st.MemoryHits = hits
	}
	return trace.Event{"mode": st.Mode, "memory_hits": len(st.MemoryHits)}, err
}

func (g *Graph) retrieve(ctx context.Context, st *State) (trace.Event, error) {
	st.RetrievedChunks = []models.DocumentHit{}
	if g.deps.Documents == nil {
		return trace.Event{"hits": 0}, ErrUnavailable
	}
	hits, err := g.deps.Documents.Query(ctx, st.Query(), g.settings.RetrieveK)
	if err == nil && hits != nil {
		st.RetrievedChunks = hits
	}
	return trace.Event{"hits": len(st.RetrievedChunks)}, err
}

func (g *Graph) plan(st *State) (trace.Event, error) {
	st.Plan = []string{}
	if g.deps.Planner == nil {
		return trace.Event{"seeds": []string{}}, ErrUnavailable
	}
	plan, err := g.deps.Planner.Plan(st.Query())
	if err == nil && plan != nil {
		st.Plan = plan
	}
	return trace.Event{"seeds": append([]string{}, st.Plan...)}, err
}

func (g *Graph) search(ctx context.Context, st *State) (trace.Event, error) {
	st.WebResults = []models.WebResult{}
	if g.deps.Web == nil {
		return trace.Event{"results": 0}, ErrUnavailable
	}
	results, err := g.deps.Web.Search(ctx, st.Query(), g.settings.SearchK)
	if err == nil && results != nil {
		st.WebResults = results
	}
	return trace.Event{"results": len(st.WebResults)}, err
}

func (g *Graph) crawl(ctx context.Context, st *State) (trace.Event, error) {
	st.Pages = []models.CrawlPage{}
	urls := make([]string, 0, len(st.WebResults))
	for _, r := range st.WebResults {
		if r.Href != "" {
			urls = append(urls, r.Href)
		}
	}
	if len(urls) == 0 {
		return trace.Event{"pages": 0}, nil
	}
	if g.deps.Crawler == nil {
		return trace.Event{"pages": 0}, ErrUnavailable
	}
	pages, err := g.deps.Crawler.Crawl(ctx, urls, g.settings.CrawlDepth, g.settings.CrawlMaxPages)
	if err == nil && pages != nil {
		st.Pages = pages
	}
	return trace.Event{"pages": len(st.Pages)}, err
}

func (g *Graph) synthesize(ctx context.Context, st *State) (trace.Event, error) {
	reply, sources, err := synthesize(ctx, g.deps.Generator, st.Query(), st)
	st.Reply = reply
	st.Sources = sources
	return trace.Event{"sources": len(sources)}, err
}

func (g *Graph) respond(st *State) trace.Event {
	if st.Reply == "" {
		st.Reply = noResponseReply
	}
	st.Sources = dedupe(st.Sources)
	st.Meta = map[string]any{
		"mode":        st.Mode,
		"retrieved":   len(st.RetrievedChunks),
		"web_results": len(st.WebResults),
		"pages":       len(st.Pages),
		"memory_hits": len(st.MemoryHits),
	}
	return trace.Event{"reply_length": len(st.Reply)}
}

// dedupe keeps the first occurrence of each source.
func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
