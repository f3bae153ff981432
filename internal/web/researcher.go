package web

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/shirabe/internal/llm"
	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/pkg/utils"
)

const (
	summarizePrompt = "Summarize the findings with citations."
	noPagesSummary  = "No web pages retrieved."
	summaryExcerpt  = 800
)

// Researcher runs a standalone plan, search, crawl and summarize cycle.
type Researcher struct {
	web *Client
	gen llm.Generator
}

// NewResearcher returns a researcher. gen may be nil, in which case
// summaries are empty.
func NewResearcher(web *Client, gen llm.Generator) *Researcher {
	return &Researcher{web: web, gen: gen}
}

// Plan returns the research questions for query, or none when web access
// is disabled.
func (r *Researcher) Plan(query string) []string {
	plan, err := r.web.Plan(query)
	if err != nil {
		return []string{}
	}
	return plan
}

// Research searches for query, crawls the result links and summarizes the
// pages. maxResults bounds both the search results and the crawled pages.
func (r *Researcher) Research(ctx context.Context, query string, depth, maxResults int) (*models.ResearchReport, error) {
	plan := r.Plan(query)
	results, err := r.web.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(results))
	for _, res := range results {
		if res.Href != "" {
			urls = append(urls, res.Href)
		}
	}
	pages, err := r.web.Crawl(ctx, urls, depth, maxResults)
	if err != nil {
		return nil, fmt.Errorf("crawl: %w", err)
	}
	synthesis, err := r.Summarize(ctx, pages)
	if err != nil {
		return nil, err
	}
	return &models.ResearchReport{Plan: plan, Pages: pages, Synthesis: synthesis}, nil
}

// Summarize asks the generator for a cited summary of pages.
func (r *Researcher) Summarize(ctx context.Context, pages []models.CrawlPage) (models.Synthesis, error) {
	if len(pages) == 0 {
		return models.Synthesis{Summary: noPagesSummary, Sources: []string{}}, nil
	}
	blocks := make([]string, len(pages))
	sources := make([]string, len(pages))
	for i, p := range pages {
		blocks[i] = "Source: " + p.URL + "\n" + utils.Head(p.Text, summaryExcerpt)
		sources[i] = p.URL
	}
	if r.gen == nil {
		return models.Synthesis{Sources: sources}, nil
	}
	summary, err := r.gen.Generate(ctx, []models.Message{
		{Role: models.RoleSystem, Content: summarizePrompt},
		{Role: models.RoleUser, Content: strings.Join(blocks, "\n\n")},
	})
	if err != nil {
		return models.Synthesis{}, fmt.Errorf("summarize: %w", err)
	}
	return models.Synthesis{Summary: summary, Sources: sources}, nil
}
