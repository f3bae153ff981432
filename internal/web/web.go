// Package web searches the web and crawls result pages into readable text.
// Every fetch honors robots.txt, a size cap and a per-request timeout.
package web

import (
	"errors"
	"time"
)

var (
	// ErrWebDisabled is returned when web access is turned off by configuration.
	ErrWebDisabled = errors.New("web access disabled by configuration")
	// ErrRobotsDisallowed is returned when robots.txt forbids fetching a URL.
	ErrRobotsDisallowed = errors.New("blocked by robots.txt")
	// ErrContentTooLarge is returned when a response declares a body above the cap.
	ErrContentTooLarge = errors.New("content too large")
	// ErrTransientFetch wraps network failures and non-2xx responses.
	ErrTransientFetch = errors.New("fetch failed")
)

const (
	// MaxContentLength caps every fetched body.
	MaxContentLength = 1 << 20
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 15 * time.Second
	// DefaultUserAgent identifies the crawler to sites and robots.txt.
	DefaultUserAgent = "shirabe/0.1"
	// DefaultDelay separates successive fetch attempts of a crawl.
	DefaultDelay = time.Second
)
