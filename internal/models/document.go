// Package models defines the records shared by the indexes, the pipeline and the front ends.
package models

// DocumentRecord is the sidecar entry for one indexed file. The i-th record
// describes the i-th vector of the document index.
type DocumentRecord struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// DocumentHit is a retrieved document with its similarity score.
type DocumentHit struct {
	Path    string  `json:"path"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

// KeywordHit is a keyword (BM25) match against the document side index.
type KeywordHit struct {
	Path      string   `json:"path"`
	Score     float64  `json:"score"`
	Fragments []string `json:"fragments,omitempty"`
}

// IndexStats summarizes a document index build.
type IndexStats struct {
	DocumentsIndexed int `json:"documents_indexed"`
	Dim              int `json:"dim"`
}
