package web

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ExtractLinks returns the crawlable links of a page in document order:
// fragment-only links are dropped, root-relative links are resolved against
// the page origin, and only http(s) links are kept. Duplicates are removed.
func ExtractLinks(doc, pageURL string) []string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if link := resolveLink(base, strings.TrimSpace(attr(n, "href"))); link != "" && !seen[link] {
				seen[link] = true
				out = append(out, link)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func resolveLink(base *url.URL, href string) string {
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	if strings.HasPrefix(href, "/") {
		ref, err := url.Parse(href)
		if err != nil {
			return ""
		}
		href = base.ResolveReference(ref).String()
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return ""
}
