// Package indexer builds the local document index: one embedding per file in
// a vector collection, plus a keyword side index over the same files.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/hyperjump/shirabe/internal/embedding"
	"github.com/hyperjump/shirabe/internal/extract"
	"github.com/hyperjump/shirabe/internal/keyword"
	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/internal/vector"
	"go.uber.org/zap"
)

// ErrNoDocumentsFound is returned when a build finds no eligible files.
var ErrNoDocumentsFound = errors.New("no documents found")

const defaultEmbedBatch = 32

// Indexer indexes a directory into the document collection and keyword index.
type Indexer struct {
	embedder     embedding.Embedder
	extractor    *extract.Extractor
	docs         *vector.Collection[models.DocumentRecord]
	keywordIndex keyword.KeywordIndex
	embedBatch   int
	logger       *zap.Logger // optional; when set, logs debug events

	buildMu sync.Mutex
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (file indexed, file skipped, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithEmbedBatch sets how many files are embedded per EmbedBatch call.
func WithEmbedBatch(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.embedBatch = n
		}
	}
}

// NewIndexer creates an indexer with the given dependencies.
// extractor may be nil; when nil, only plain text files are indexed.
// keywordIndex may be nil; when nil, no keyword side index is maintained.
func NewIndexer(
	embedder embedding.Embedder,
	extractor *extract.Extractor,
	docs *vector.Collection[models.DocumentRecord],
	keywordIndex keyword.KeywordIndex,
	opts ...IndexerOption,
) *Indexer {
	if extractor == nil {
		extractor = extract.NewExtractor(false)
	}
	idx := &Indexer{
		embedder:     embedder,
		extractor:    extractor,
		docs:         docs,
		keywordIndex: keywordIndex,
		embedBatch:   defaultEmbedBatch,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// BuildIndex walks dir, embeds every eligible file and replaces the document
// index with the result. When no eligible file exists nothing is written and
// ErrNoDocumentsFound is returned. Concurrent builds run one at a time.
func (idx *Indexer) BuildIndex(ctx context.Context, dir string) (*models.IndexStats, error) {
	idx.buildMu.Lock()
	defer idx.buildMu.Unlock()

	records, err := idx.collect(ctx, dir)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDocumentsFound, dir)
	}

	vectors := make([][]float32, 0, len(records))
	for start := 0; start < len(records); start += idx.embedBatch {
		end := start + idx.embedBatch
		if end > len(records) {
			end = len(records)
		}
		texts := make([]string, end-start)
		for i, r := range records[start:end] {
			texts[i] = r.Content
		}
		embs, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		vectors = append(vectors, embs...)
	}

	dim, err := idx.docs.Replace(ctx, vectors, records)
	if err != nil {
		return nil, fmt.Errorf("failed to write document index: %w", err)
	}

	if idx.keywordIndex != nil {
		kwDocs := make([]models.DocumentRecord, len(records))
		for i, r := range records {
			kwDocs[i] = models.DocumentRecord{Path: r.Path, Content: keywordText(r.Content)}
		}
		if err := idx.keywordIndex.Rebuild(ctx, kwDocs); err != nil {
			// the vector index is already in place; keyword search just goes stale
			if idx.logger != nil {
				idx.logger.Warn("keyword index rebuild failed", zap.Error(err))
			}
		}
	}

	if idx.logger != nil {
		idx.logger.Debug("document index built",
			zap.String("dir", dir),
			zap.Int("documents", len(records)),
			zap.Int("dim", dim))
	}
	return &models.IndexStats{DocumentsIndexed: len(records), Dim: dim}, nil
}

// collect reads every eligible file under dir in lexical order.
func (idx *Indexer) collect(ctx context.Context, dir string) ([]models.DocumentRecord, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var records []models.DocumentRecord
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if idx.logger != nil {
				idx.logger.Debug("skipping unreadable path", zap.String("path", path), zap.Error(walkErr))
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !idx.extractor.Supports(path) {
			return nil
		}
		content, err := idx.extractor.Extract(path)
		if err != nil {
			if idx.logger != nil {
				idx.logger.Warn("failed to extract document", zap.String("path", path), zap.Error(err))
			}
			return nil
		}
		records = append(records, models.DocumentRecord{Path: path, Content: content})
		if idx.logger != nil {
			idx.logger.Debug("document collected", zap.String("path", path), zap.Int("bytes", len(content)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
