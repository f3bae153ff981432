// Package search answers queries against the local document index.
package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/shirabe/internal/embedding"
	"github.com/hyperjump/shirabe/internal/keyword"
	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/internal/vector"
	"github.com/hyperjump/shirabe/pkg/utils"
)

// ErrIndexNotBuilt is returned when the document index has not been built yet.
var ErrIndexNotBuilt = errors.New("document index not built")

const (
	// DefaultK is the number of documents returned when k is not positive.
	DefaultK = 4
	// SnippetLength is the number of characters of content kept in a hit.
	SnippetLength = 512
)

// Engine runs similarity and keyword queries over the document index.
type Engine struct {
	embedder     embedding.Embedder
	docs         *vector.Collection[models.DocumentRecord]
	keywordIndex keyword.KeywordIndex
}

// NewEngine creates a search engine with the given dependencies.
// keywordIndex may be nil, in which case Grep reports ErrIndexNotBuilt.
func NewEngine(
	embedder embedding.Embedder,
	docs *vector.Collection[models.DocumentRecord],
	keywordIndex keyword.KeywordIndex,
) *Engine {
	return &Engine{
		embedder:     embedder,
		docs:         docs,
		keywordIndex: keywordIndex,
	}
}

// Query returns up to k documents most similar to question, best first.
func (e *Engine) Query(ctx context.Context, question string, k int) ([]models.DocumentHit, error) {
	if k <= 0 {
		k = DefaultK
	}
	if !e.docs.Exists() {
		return nil, ErrIndexNotBuilt
	}
	emb, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	hits, err := e.docs.Query(ctx, emb, k)
	if err != nil {
		if errors.Is(err, vector.ErrNotPersisted) {
			return nil, ErrIndexNotBuilt
		}
		return nil, fmt.Errorf("document query failed: %w", err)
	}
	out := make([]models.DocumentHit, len(hits))
	for i, h := range hits {
		out[i] = models.DocumentHit{
			Path:    h.Item.Path,
			Score:   h.Score,
			Snippet: utils.Head(h.Item.Content, SnippetLength),
		}
	}
	return out, nil
}

// Grep runs a keyword query against the side index built alongside the
// document index.
func (e *Engine) Grep(ctx context.Context, query string, k int, opts *keyword.SearchOptions) ([]models.KeywordHit, error) {
	if k <= 0 {
		k = DefaultK
	}
	if e.keywordIndex == nil || !e.docs.Exists() {
		return nil, ErrIndexNotBuilt
	}
	hits, err := e.keywordIndex.Search(ctx, query, k, opts)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	return hits, nil
}

// Built reports whether a document index exists.
func (e *Engine) Built() bool {
	return e.docs.Exists()
}
