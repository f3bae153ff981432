package vector

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryIndex_AddSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	if err := idx.Add(ctx, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Slot != 0 || results[1].Slot != 1 {
		t.Errorf("unexpected order: %d, %d", results[0].Slot, results[1].Slot)
	}
	if results[0].Score < results[1].Score {
		t.Error("results not sorted by score")
	}
}

func TestMemoryIndex_SearchEmpty(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	results, err := idx.Search(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("search on empty index should not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewMemoryIndex(3)
	ctx := context.Background()
	if err := idx.Add(ctx, [][]float32{{1, 0}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Add: expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := idx.Search(ctx, []float32{1, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Search: expected ErrDimensionMismatch, got %v", err)
	}
}

func TestMemoryIndex_Reset(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, [][]float32{{1, 0}, {0, 1}})
	if err := idx.Reset(4); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 0 || idx.Dimensions() != 4 {
		t.Errorf("after Reset size=%d dims=%d", idx.Size(), idx.Dimensions())
	}
	if err := idx.Reset(0); err == nil {
		t.Error("expected error for zero dimension")
	}
}

func TestMemoryIndex_SaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "index.bin")

	idx, _ := NewMemoryIndex(3)
	vecs := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	if err := idx.Add(ctx, vecs); err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fresh index adopts the persisted dimension.
	idx2, _ := NewMemoryIndex(1)
	if err := idx2.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if idx2.Size() != 3 || idx2.Dimensions() != 3 {
		t.Fatalf("after Load size=%d dims=%d", idx2.Size(), idx2.Dimensions())
	}
	results, err := idx2.Search(ctx, []float32{0, 0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Slot != 2 {
		t.Fatalf("Search after Load: got %+v", results)
	}
	if math.Abs(results[0].Score-1) > 1e-6 {
		t.Errorf("self-similarity = %f, want ~1", results[0].Score)
	}
}

func TestMemoryIndex_LoadMissingFile(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	if err := idx.Load(filepath.Join(t.TempDir(), "missing.bin")); err != nil {
		t.Errorf("Load missing file should not error: %v", err)
	}
	if idx.Size() != 0 {
		t.Errorf("size=%d", idx.Size())
	}
}

func TestNormalized(t *testing.T) {
	v := []float32{3, 4}
	n := Normalized(v)
	if math.Abs(L2Norm(n)-1) > 1e-6 {
		t.Errorf("norm = %f", L2Norm(n))
	}
	if v[0] != 3 {
		t.Error("input must not be modified")
	}
	zero := Normalized([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Error("zero vector should stay zero")
	}
}

func TestMemoryIndex_LoadCorruptCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	// header claims 2^32-1 vectors of dimension 4, body holds one
	for _, v := range []uint32{4, math.MaxUint32} {
		if err := binary.Write(f, binary.LittleEndian, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := binary.Write(f, binary.LittleEndian, []float32{1, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	idx, _ := NewMemoryIndex(2)
	if err := idx.Load(path); err == nil {
		t.Fatal("Load of truncated index should fail")
	}
	if idx.Size() != 0 || idx.Dimensions() != 2 {
		t.Errorf("failed Load changed index: size=%d dims=%d", idx.Size(), idx.Dimensions())
	}
}
