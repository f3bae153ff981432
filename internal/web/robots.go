package web

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
)

const robotsTTL = time.Hour

// RobotsPolicy answers robots.txt checks, caching each host's rules.
// Any failure to obtain or parse robots.txt allows the fetch.
type RobotsPolicy struct {
	client    *http.Client
	userAgent string
	cache     *gocache.Cache
}

// NewRobotsPolicy returns a policy that fetches robots.txt with client.
func NewRobotsPolicy(client *http.Client, userAgent string) *RobotsPolicy {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	// no janitor goroutine; expired entries are simply refetched
	return &RobotsPolicy{client: client, userAgent: userAgent, cache: gocache.New(robotsTTL, 0)}
}

// robotsEntry caches a host's rules. A nil data means allow everything.
type robotsEntry struct {
	data *robotstxt.RobotsData
}

// Allowed reports whether rawURL may be fetched.
func (p *RobotsPolicy) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	key := u.Scheme + "://" + u.Host
	var entry robotsEntry
	if cached, ok := p.cache.Get(key); ok {
		entry = cached.(robotsEntry)
	} else {
		entry = robotsEntry{data: p.load(ctx, key)}
		// a cancelled lookup says nothing about the host
		if ctx.Err() == nil {
			p.cache.SetDefault(key, entry)
		}
	}
	if entry.data == nil {
		return true
	}
	return entry.data.TestAgent(u.RequestURI(), p.userAgent)
}

func (p *RobotsPolicy) load(ctx context.Context, origin string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", p.userAgent)
	resp, err := p.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	// an unreachable robots file allows the fetch, so server errors do too
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil
	}
	return data
}
