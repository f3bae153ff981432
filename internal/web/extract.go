package web

import (
	"fmt"
	"strings"

	"github.com/hyperjump/shirabe/internal/models"
	"golang.org/x/net/html"
)

// TextExtractor turns fetched HTML into a readable page.
type TextExtractor interface {
	Extract(doc, pageURL string) (models.CrawlPage, error)
}

// skippedTags never contribute readable text.
var skippedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true, "svg": true,
	"nav": true, "footer": true, "header": true, "aside": true, "form": true,
}

// ReadableExtractor keeps the main content of a page: <article> or <main>
// when present, otherwise <body>, without navigation and boilerplate.
type ReadableExtractor struct{}

// Extract implements TextExtractor.
func (ReadableExtractor) Extract(doc, pageURL string) (models.CrawlPage, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return models.CrawlPage{}, fmt.Errorf("failed to parse HTML: %w", err)
	}
	title := textContent(findFirst(root, "title"))
	if title == "" {
		title = textContent(findFirst(root, "h1"))
	}

	content := findFirst(root, "article")
	if content == nil {
		content = findFirst(root, "main")
	}
	if content == nil {
		content = findFirst(root, "body")
	}
	if content == nil {
		content = root
	}
	return models.CrawlPage{URL: pageURL, Title: title, Text: readableText(content)}, nil
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// textContent returns the whitespace-collapsed text under n.
func textContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// readableText is textContent without the subtrees of skippedTags.
func readableText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
