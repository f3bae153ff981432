package web

import (
	"context"
	"fmt"

	"github.com/hyperjump/shirabe/internal/config"
	"github.com/hyperjump/shirabe/internal/models"
	"go.uber.org/zap"
)

// DefaultSearchK is the number of search results used when k is not positive.
const DefaultSearchK = 5

// Client gates search and crawl behind the web-enabled capability.
type Client struct {
	enabled  bool
	provider SearchProvider
	crawler  *Crawler
	closer   func() error
}

// NewClient assembles a client from explicit parts.
func NewClient(enabled bool, provider SearchProvider, crawler *Crawler) *Client {
	return &Client{enabled: enabled, provider: provider, crawler: crawler}
}

// New builds the production client: DuckDuckGo search and an HTTP fetcher,
// or a headless browser fetcher when caps allow it.
func New(cfg config.AgentConfig, caps *config.Capabilities, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	httpFetcher := NewHTTPFetcher(cfg.FetchTimeout, cfg.UserAgent)
	var fetcher Fetcher = httpFetcher
	var closer func() error
	if caps != nil && caps.BrowserFetch {
		bf := NewBrowserFetcher(httpFetcher.robots, cfg.FetchTimeout)
		fetcher = bf
		closer = bf.Close
		logger.Debug("using headless browser for page fetches")
	}
	enabled := cfg.WebOrDefault()
	if caps != nil {
		enabled = caps.WebEnabled
	}
	c := NewClient(
		enabled,
		NewDuckDuckGo("", cfg.FetchTimeout),
		NewCrawler(fetcher, WithDelay(cfg.CrawlDelay), WithCrawlerLogger(logger)),
	)
	c.closer = closer
	return c
}

// Enabled reports whether web access is allowed.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Plan returns the query itself plus two contextual reformulations, or an
// empty plan and ErrWebDisabled when web access is off.
func (c *Client) Plan(query string) ([]string, error) {
	if !c.enabled {
		return []string{}, ErrWebDisabled
	}
	return []string{query, "background of " + query, "latest updates on " + query}, nil
}

// Search returns up to k results for query.
func (c *Client) Search(ctx context.Context, query string, k int) ([]models.WebResult, error) {
	if !c.enabled {
		return nil, ErrWebDisabled
	}
	if k <= 0 {
		k = DefaultSearchK
	}
	results, err := c.provider.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Crawl fetches readable pages starting from urls.
func (c *Client) Crawl(ctx context.Context, urls []string, depth, maxPages int) ([]models.CrawlPage, error) {
	if !c.enabled {
		return nil, ErrWebDisabled
	}
	if len(urls) == 0 {
		return []models.CrawlPage{}, nil
	}
	return c.crawler.Crawl(ctx, urls, depth, maxPages)
}

// Close releases the headless browser, if one was started.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}
