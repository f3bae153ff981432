package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Document is a fetched HTML page.
type Document struct {
	URL  string
	HTML string
}

// Fetcher retrieves a page.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Document, error)
}

// HTTPFetcher fetches pages with net/http under the robots and size policy.
type HTTPFetcher struct {
	client    *http.Client
	robots    *RobotsPolicy
	userAgent string
	maxBytes  int64
}

// NewHTTPFetcher returns a fetcher. A zero timeout uses DefaultTimeout and
// an empty userAgent uses DefaultUserAgent.
func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	client := &http.Client{Timeout: timeout}
	return &HTTPFetcher{
		client:    client,
		robots:    NewRobotsPolicy(client, userAgent),
		userAgent: userAgent,
		maxBytes:  MaxContentLength,
	}
}

// Fetch returns the page body, truncated to MaxContentLength.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	if !f.robots.Allowed(ctx, rawURL) {
		return nil, fmt.Errorf("%w: %s", ErrRobotsDisallowed, rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransientFetch, rawURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransientFetch, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: HTTP %d", ErrTransientFetch, rawURL, resp.StatusCode)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: %s declares %d bytes", ErrContentTooLarge, rawURL, resp.ContentLength)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransientFetch, rawURL, err)
	}
	return &Document{URL: rawURL, HTML: strings.ToValidUTF8(string(body), "")}, nil
}
