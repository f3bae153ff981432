package keyword

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/shirabe/internal/models"
)

// batchSize bounds the number of documents per Bleve batch.
const batchSize = 200

type document struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	path  string
	mu    sync.RWMutex
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
func NewBleveIndex(path string) (*BleveIndex, error) {
	idx, err := openOrCreate(path)
	if err != nil {
		return nil, err
	}
	return &BleveIndex{path: path, index: idx}, nil
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so "bayes" matches
	// "Bayes" but not "Bayesian".
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	docMapping.AddFieldMappingsAt("path", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping
	return im
}

func openOrCreate(path string) (bleve.Index, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return index, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return index, nil
}

// Rebuild writes docs into a fresh index next to the current one and swaps it
// in. The current index stays readable until the new one is complete.
func (b *BleveIndex) Rebuild(ctx context.Context, docs []models.DocumentRecord) error {
	tmpPath := b.path + ".tmp"
	if err := os.RemoveAll(tmpPath); err != nil {
		return fmt.Errorf("failed to clear staging index: %w", err)
	}
	fresh, err := bleve.New(tmpPath, newMapping())
	if err != nil {
		return fmt.Errorf("failed to create staging index: %w", err)
	}

	batch := fresh.NewBatch()
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			_ = fresh.Close()
			_ = os.RemoveAll(tmpPath)
			return err
		}
		doc := document{Path: d.Path, Title: filepath.Base(d.Path), Content: d.Content}
		if err := batch.Index(d.Path, doc); err != nil {
			_ = fresh.Close()
			_ = os.RemoveAll(tmpPath)
			return fmt.Errorf("failed to index %s: %w", d.Path, err)
		}
		if batch.Size() >= batchSize {
			if err := fresh.Batch(batch); err != nil {
				_ = fresh.Close()
				_ = os.RemoveAll(tmpPath)
				return fmt.Errorf("failed to apply batch: %w", err)
			}
			batch = fresh.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := fresh.Batch(batch); err != nil {
			_ = fresh.Close()
			_ = os.RemoveAll(tmpPath)
			return fmt.Errorf("failed to apply batch: %w", err)
		}
	}
	if err := fresh.Close(); err != nil {
		return fmt.Errorf("failed to close staging index: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.index != nil {
		_ = b.index.Close()
		b.index = nil
	}
	if err := os.RemoveAll(b.path); err != nil {
		return fmt.Errorf("failed to remove old index: %w", err)
	}
	if err := os.Rename(tmpPath, b.path); err != nil {
		return fmt.Errorf("failed to swap index: %w", err)
	}
	idx, err := bleve.Open(b.path)
	if err != nil {
		return fmt.Errorf("failed to reopen Bleve index: %w", err)
	}
	b.index = idx
	return nil
}

// Search runs a match query and returns up to limit results with highlighted
// content fragments. When opts.TitleBoost > 1, title and content matches are
// scored separately and added.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]models.KeywordHit, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return []models.KeywordHit{}, nil
	}
	titleBoost := 1.0
	fuzzyEnabled := false
	fuzziness := 1
	if opts != nil {
		if opts.TitleBoost > 0 {
			titleBoost = opts.TitleBoost
		}
		fuzzyEnabled = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.index == nil {
		return nil, fmt.Errorf("Bleve index is closed")
	}

	if titleBoost <= 1.0 {
		q := b.buildQuery(query, fuzzyEnabled, fuzziness, "")
		return b.run(ctx, q, limit)
	}
	return b.searchWithTitleBoost(ctx, query, limit, titleBoost, fuzzyEnabled, fuzziness)
}

func (b *BleveIndex) run(ctx context.Context, q blevequery.Query, limit int) ([]models.KeywordHit, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("content")
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]models.KeywordHit, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = models.KeywordHit{Path: hit.ID, Score: hit.Score, Fragments: hit.Fragments["content"]}
	}
	return out, nil
}

// searchWithTitleBoost merges title and content scores additively:
// score = titleScore*titleBoost + contentScore.
func (b *BleveIndex) searchWithTitleBoost(ctx context.Context, query string, limit int, titleBoost float64, fuzzyEnabled bool, fuzziness int) ([]models.KeywordHit, error) {
	reqSize := limit * 2
	if reqSize < 50 {
		reqSize = 50
	}
	titleHits, err := b.run(ctx, b.buildQuery(query, fuzzyEnabled, fuzziness, "title"), reqSize)
	if err != nil {
		return nil, err
	}
	contentHits, err := b.run(ctx, b.buildQuery(query, fuzzyEnabled, fuzziness, "content"), reqSize)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]*models.KeywordHit)
	for _, h := range titleHits {
		merged[h.Path] = &models.KeywordHit{Path: h.Path, Score: h.Score * titleBoost}
	}
	for _, h := range contentHits {
		if m, ok := merged[h.Path]; ok {
			m.Score += h.Score
			m.Fragments = h.Fragments
			continue
		}
		hit := h
		merged[h.Path] = &hit
	}

	out := make([]models.KeywordHit, 0, len(merged))
	for _, h := range merged {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Path < out[j].Path
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildQuery returns a match query, or a disjunction of fuzzy term queries
// when fuzzy matching is enabled. An empty field searches all fields.
func (b *BleveIndex) buildQuery(queryStr string, fuzzyEnabled bool, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if !fuzzyEnabled || len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.index == nil {
		return 0, nil
	}
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.index == nil {
		return nil
	}
	err := b.index.Close()
	b.index = nil
	return err
}
