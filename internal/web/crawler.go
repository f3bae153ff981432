package web

import (
	"context"
	"time"

	"github.com/hyperjump/shirabe/internal/models"
	"go.uber.org/zap"
)

// Crawler walks pages breadth-first from a set of seed URLs.
type Crawler struct {
	fetcher   Fetcher
	extractor TextExtractor
	delay     time.Duration
	logger    *zap.Logger
}

// CrawlerOption configures a Crawler.
type CrawlerOption func(*Crawler)

// WithDelay sets the pause between successive fetch attempts.
func WithDelay(d time.Duration) CrawlerOption {
	return func(c *Crawler) { c.delay = d }
}

// WithExtractor replaces the readable text extractor.
func WithExtractor(e TextExtractor) CrawlerOption {
	return func(c *Crawler) { c.extractor = e }
}

// WithCrawlerLogger sets a logger for skipped URLs.
func WithCrawlerLogger(l *zap.Logger) CrawlerOption {
	return func(c *Crawler) { c.logger = l }
}

// NewCrawler returns a crawler fetching with fetcher.
func NewCrawler(fetcher Fetcher, opts ...CrawlerOption) *Crawler {
	c := &Crawler{
		fetcher:   fetcher,
		extractor: ReadableExtractor{},
		delay:     DefaultDelay,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type queued struct {
	url   string
	level int
}

// Crawl visits urls breadth-first, following links up to depth levels below
// the seeds, and returns at most maxPages readable pages. A URL is fetched at
// most once. Pages that fail to fetch or parse are skipped. The returned
// error is non-nil only when ctx ends the crawl early; the pages gathered so
// far are returned with it.
func (c *Crawler) Crawl(ctx context.Context, urls []string, depth, maxPages int) ([]models.CrawlPage, error) {
	pages := []models.CrawlPage{}
	if maxPages <= 0 {
		return pages, nil
	}
	queue := make([]queued, 0, len(urls))
	for _, u := range urls {
		queue = append(queue, queued{url: u})
	}
	visited := make(map[string]bool)
	attempts := 0

	for len(queue) > 0 && len(pages) < maxPages {
		item := queue[0]
		queue = queue[1:]
		if visited[item.url] || item.level > depth {
			continue
		}
		visited[item.url] = true

		if attempts > 0 {
			if err := c.wait(ctx); err != nil {
				return pages, err
			}
		}
		attempts++

		doc, err := c.fetcher.Fetch(ctx, item.url)
		if err != nil {
			if ctx.Err() != nil {
				return pages, ctx.Err()
			}
			c.logger.Debug("skipping page", zap.String("url", item.url), zap.Error(err))
			continue
		}
		page, err := c.extractor.Extract(doc.HTML, item.url)
		if err != nil {
			c.logger.Debug("skipping unreadable page", zap.String("url", item.url), zap.Error(err))
			continue
		}
		pages = append(pages, page)

		if item.level < depth {
			for _, link := range ExtractLinks(doc.HTML, item.url) {
				if !visited[link] {
					queue = append(queue, queued{url: link, level: item.level + 1})
				}
			}
		}
	}
	return pages, nil
}

func (c *Crawler) wait(ctx context.Context) error {
	if c.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
