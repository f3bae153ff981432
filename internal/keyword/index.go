// Package keyword provides keyword (BM25) search over the document index.
package keyword

import (
	"context"

	"github.com/hyperjump/shirabe/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score contribution from matches in the file name.
	// Use 1.0 for no boost.
	TitleBoost float64
	// FuzzyEnabled enables matching within Fuzziness edits of each term.
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance (1 or 2). Default is 1.
	Fuzziness int
}

// KeywordIndex defines keyword search operations.
type KeywordIndex interface {
	// Rebuild replaces the whole index with docs.
	Rebuild(ctx context.Context, docs []models.DocumentRecord) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]models.KeywordHit, error)
	// DocCount returns the total number of documents in the index.
	DocCount() (uint64, error)
	Close() error
}
