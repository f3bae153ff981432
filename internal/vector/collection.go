package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// ErrNotPersisted is returned when the index file or its metadata file does not exist.
var ErrNotPersisted = errors.New("vector collection not persisted")

// Hit is a search result resolved to its metadata record.
type Hit[T any] struct {
	Item  T
	Slot  int
	Score float64
}

// Collection pairs a persisted vector index with a JSON array sidecar whose
// i-th element describes slot i. When an incoming vector's dimension differs
// from the persisted index, both the index and the sidecar are rebuilt from
// empty.
type Collection[T any] struct {
	indexType string
	indexPath string
	metaPath  string
	logger    *zap.Logger
	mu        sync.Mutex
}

// CollectionOption configures a Collection.
type CollectionOption func(*collectionOptions)

type collectionOptions struct {
	logger *zap.Logger
}

// WithLogger sets the logger used to report rebuilds.
func WithLogger(l *zap.Logger) CollectionOption {
	return func(o *collectionOptions) {
		o.logger = l
	}
}

// NewCollection returns a collection stored at indexPath and metaPath.
func NewCollection[T any](indexType, indexPath, metaPath string, opts ...CollectionOption) *Collection[T] {
	var o collectionOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Collection[T]{
		indexType: indexType,
		indexPath: indexPath,
		metaPath:  metaPath,
		logger:    o.logger,
	}
}

// Exists reports whether both the index file and the metadata file are present.
func (c *Collection[T]) Exists() bool {
	if _, err := os.Stat(c.indexPath); err != nil {
		return false
	}
	if _, err := os.Stat(c.metaPath); err != nil {
		return false
	}
	return true
}

// Items returns the persisted metadata, or ErrNotPersisted.
func (c *Collection[T]) Items() ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.Exists() {
		return nil, ErrNotPersisted
	}
	return c.readMeta()
}

// Replace writes a brand new index holding vectors, with items as its sidecar.
// The previous files are only replaced once the new ones are fully written.
func (c *Collection[T]) Replace(ctx context.Context, vectors [][]float32, items []T) (int, error) {
	if len(vectors) != len(items) {
		return 0, fmt.Errorf("vectors and items length mismatch: %d != %d", len(vectors), len(items))
	}
	if len(vectors) == 0 {
		return 0, fmt.Errorf("replace collection: no vectors")
	}
	dim := len(vectors[0])
	idx, err := NewVectorIndex(c.indexType, dim)
	if err != nil {
		return 0, err
	}
	defer idx.Close()

	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		normalized[i] = Normalized(v)
	}
	if err := idx.Add(ctx, normalized); err != nil {
		return 0, fmt.Errorf("add vectors: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.persist(idx, items); err != nil {
		return 0, err
	}
	return dim, nil
}

// Append adds one vector and its record, creating the collection if needed.
// A dimension change rebuilds the collection from empty before the add.
func (c *Collection[T]) Append(ctx context.Context, vector []float32, item T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, items, err := c.open()
	if errors.Is(err, ErrNotPersisted) {
		idx, err = NewVectorIndex(c.indexType, len(vector))
		items = nil
	}
	if err != nil {
		return err
	}
	defer idx.Close()

	if idx.Dimensions() != len(vector) {
		c.logRebuild(idx.Dimensions(), len(vector), len(items))
		if err := idx.Reset(len(vector)); err != nil {
			return fmt.Errorf("reset index: %w", err)
		}
		items = nil
	}
	if err := idx.Add(ctx, [][]float32{Normalized(vector)}); err != nil {
		return fmt.Errorf("add vector: %w", err)
	}
	items = append(items, item)
	return c.persist(idx, items)
}

// Query returns up to k records most similar to vector, best first. Slots
// without a matching metadata entry are skipped. A dimension change rebuilds
// the collection from empty and yields no hits.
func (c *Collection[T]) Query(ctx context.Context, vector []float32, k int) ([]Hit[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, items, err := c.open()
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	if idx.Dimensions() != len(vector) {
		c.logRebuild(idx.Dimensions(), len(vector), len(items))
		if err := idx.Reset(len(vector)); err != nil {
			return nil, fmt.Errorf("reset index: %w", err)
		}
		if err := c.persist(idx, []T{}); err != nil {
			return nil, err
		}
		return []Hit[T]{}, nil
	}

	results, err := idx.Search(ctx, Normalized(vector), k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	hits := make([]Hit[T], 0, len(results))
	for _, r := range results {
		if r.Slot < 0 || r.Slot >= len(items) {
			continue
		}
		hits = append(hits, Hit[T]{Item: items[r.Slot], Slot: r.Slot, Score: r.Score})
	}
	return hits, nil
}

// Size returns the number of vectors in the persisted index, or 0.
func (c *Collection[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, _, err := c.open()
	if err != nil {
		return 0
	}
	defer idx.Close()
	return idx.Size()
}

func (c *Collection[T]) open() (VectorIndex, []T, error) {
	if !c.Exists() {
		return nil, nil, ErrNotPersisted
	}
	idx, err := OpenVectorIndex(c.indexType, c.indexPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load index: %w", err)
	}
	items, err := c.readMeta()
	if err != nil {
		_ = idx.Close()
		return nil, nil, err
	}
	return idx, items, nil
}

func (c *Collection[T]) readMeta() ([]T, error) {
	data, err := os.ReadFile(c.metaPath)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return items, nil
}

func (c *Collection[T]) persist(idx VectorIndex, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := idx.Save(c.indexPath); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	if err := writeFileAtomic(c.metaPath, data); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

func (c *Collection[T]) logRebuild(from, to, dropped int) {
	if c.logger == nil {
		return
	}
	c.logger.Warn("dimension changed, rebuilding vector collection",
		zap.String("index", c.indexPath),
		zap.Int("from", from),
		zap.Int("to", to),
		zap.Int("dropped", dropped))
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
