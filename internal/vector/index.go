// Package vector provides vector index and similarity search.
package vector

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when a vector does not match the index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// VectorIndex is an append-only inner product index. Vectors are addressed by
// the position (slot) they were inserted at.
type VectorIndex interface {
	Add(ctx context.Context, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Save(path string) error
	// Load replaces the contents with the index stored at path, adopting its dimension.
	Load(path string) error
	// Reset drops every vector and starts over at the given dimension.
	Reset(dimensions int) error
	Dimensions() int
	Size() int
	Close() error
}

// VectorResult is a single vector search hit.
type VectorResult struct {
	Slot  int
	Score float64 // Inner product (cosine similarity for normalized vectors)
}
