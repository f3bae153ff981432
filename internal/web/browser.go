package web

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserAvailable reports whether a Chromium binary can be found for
// headless fetching.
func BrowserAvailable() bool {
	_, ok := launcher.LookPath()
	return ok
}

// BrowserFetcher renders pages in headless Chromium so script-built content
// is captured. The browser is launched on first use.
type BrowserFetcher struct {
	robots   *RobotsPolicy
	timeout  time.Duration
	maxBytes int

	mu      sync.Mutex
	launch  *launcher.Launcher
	browser *rod.Browser
}

// NewBrowserFetcher returns a fetcher sharing robots rules with robots.
func NewBrowserFetcher(robots *RobotsPolicy, timeout time.Duration) *BrowserFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &BrowserFetcher{robots: robots, timeout: timeout, maxBytes: MaxContentLength}
}

func (b *BrowserFetcher) ensure() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}
	l := launcher.New().Headless(true)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	b.launch = l
	b.browser = browser
	return browser, nil
}

// Fetch loads rawURL and returns the rendered HTML, truncated to the cap.
func (b *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	if b.robots != nil && !b.robots.Allowed(ctx, rawURL) {
		return nil, fmt.Errorf("%w: %s", ErrRobotsDisallowed, rawURL)
	}
	browser, err := b.ensure()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransientFetch, err)
	}
	page, err := browser.Context(ctx).Timeout(b.timeout).Page(proto.TargetCreateTarget{URL: rawURL})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransientFetch, rawURL, err)
	}
	defer func() { _ = page.Close() }()

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransientFetch, rawURL, err)
	}
	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransientFetch, rawURL, err)
	}
	if len(html) > b.maxBytes {
		html = strings.ToValidUTF8(html[:b.maxBytes], "")
	}
	return &Document{URL: rawURL, HTML: html}, nil
}

// Close shuts the browser down if it was started.
func (b *BrowserFetcher) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.launch.Kill()
	b.launch.Cleanup()
	b.browser = nil
	b.launch = nil
	return err
}
