package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/shirabe/internal/models"
	"golang.org/x/net/html"
)

// SearchProvider runs a web search.
type SearchProvider interface {
	Search(ctx context.Context, query string, k int) ([]models.WebResult, error)
}

// DefaultDuckDuckGoEndpoint is the HTML (no script) DuckDuckGo endpoint.
const DefaultDuckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

// browserUserAgent is sent to the search endpoint, which refuses unknown agents.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// DuckDuckGo searches the DuckDuckGo HTML endpoint. No API key is needed.
type DuckDuckGo struct {
	endpoint  string
	client    *http.Client
	userAgent string
}

// NewDuckDuckGo returns a provider. An empty endpoint uses
// DefaultDuckDuckGoEndpoint.
func NewDuckDuckGo(endpoint string, timeout time.Duration) *DuckDuckGo {
	if endpoint == "" {
		endpoint = DefaultDuckDuckGoEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &DuckDuckGo{
		endpoint:  endpoint,
		client:    &http.Client{Timeout: timeout},
		userAgent: browserUserAgent,
	}
}

// Search returns up to k results for query.
func (d *DuckDuckGo) Search(ctx context.Context, query string, k int) ([]models.WebResult, error) {
	searchURL := d.endpoint + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: search request: %v", ErrTransientFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: search returned HTTP %d", ErrTransientFetch, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxContentLength))
	if err != nil {
		return nil, fmt.Errorf("%w: read search response: %v", ErrTransientFetch, err)
	}
	return ParseDuckDuckGoResults(string(body), k)
}

// ParseDuckDuckGoResults extracts up to k results from a DuckDuckGo HTML
// results page. Redirect links are decoded to their targets and ads are dropped.
func ParseDuckDuckGoResults(htmlContent string, k int) ([]models.WebResult, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	results := []models.WebResult{}
	var current *models.WebResult
	flush := func() {
		if current != nil && current.Href != "" && current.Title != "" {
			results = append(results, *current)
		}
		current = nil
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "result__a"):
				flush()
				current = &models.WebResult{
					Title: textContent(n),
					Href:  decodeResultURL(attr(n, "href")),
				}
				return
			case hasClass(n, "result__snippet"):
				if current != nil {
					current.Body = textContent(n)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	flush()

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// decodeResultURL unwraps DuckDuckGo redirect links (/l/?uddg=...). Links
// that stay on duckduckgo.com (ads, internal pages) decode to "".
func decodeResultURL(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Hostname(), "duckduckgo.com") {
		target := u.Query().Get("uddg")
		if u.Path != "/l/" || target == "" {
			return ""
		}
		href = target
		if u, err = url.Parse(href); err != nil {
			return ""
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return href
}
