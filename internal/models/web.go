package models

// WebResult is one search engine result.
type WebResult struct {
	Title string `json:"title"`
	Href  string `json:"href"`
	Body  string `json:"body"`
}

// CrawlPage is the readable text of a fetched page.
type CrawlPage struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Synthesis is a cited summary of crawled pages.
type Synthesis struct {
	Summary string   `json:"summary"`
	Sources []string `json:"sources"`
}

// ResearchReport is the result of a standalone web research run.
type ResearchReport struct {
	Plan      []string    `json:"plan"`
	Pages     []CrawlPage `json:"pages"`
	Synthesis Synthesis   `json:"synthesis"`
}
