package vector

import (
	"context"
	"path/filepath"
	"testing"
)

func TestNewVectorIndex_Memory(t *testing.T) {
	idx, err := NewVectorIndex("memory", 3)
	if err != nil {
		t.Fatalf("NewVectorIndex(memory): %v", err)
	}
	defer idx.Close()

	if err := idx.Add(context.Background(), [][]float32{{1, 0, 0}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if idx.Size() != 1 {
		t.Errorf("Size=%d, want 1", idx.Size())
	}
}

func TestNewVectorIndex_Empty(t *testing.T) {
	// Empty string should default to memory
	idx, err := NewVectorIndex("", 3)
	if err != nil {
		t.Fatalf("NewVectorIndex(''): %v", err)
	}
	defer idx.Close()

	if idx.Size() != 0 {
		t.Errorf("Size=%d, want 0", idx.Size())
	}
}

func TestNewVectorIndex_Unknown(t *testing.T) {
	_, err := NewVectorIndex("unknown", 3)
	if err == nil {
		t.Error("expected error for unknown index type")
	}
}

func TestNewVectorIndex_InvalidDimension(t *testing.T) {
	_, err := NewVectorIndex("memory", 0)
	if err == nil {
		t.Error("expected error for zero dimension")
	}
}

func TestOpenVectorIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	idx, _ := NewVectorIndex("memory", 5)
	_ = idx.Add(context.Background(), [][]float32{{1, 0, 0, 0, 0}})
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	opened, err := OpenVectorIndex("memory", path)
	if err != nil {
		t.Fatalf("OpenVectorIndex: %v", err)
	}
	defer opened.Close()
	if opened.Dimensions() != 5 || opened.Size() != 1 {
		t.Errorf("dims=%d size=%d", opened.Dimensions(), opened.Size())
	}
}

func TestIsFAISSAvailable(t *testing.T) {
	// The result depends on build tags.
	t.Logf("FAISS available: %v", IsFAISSAvailable())
}
