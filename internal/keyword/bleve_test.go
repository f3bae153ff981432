package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/shirabe/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "keyword.bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveIndex_SearchFindsContent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	docs := []models.DocumentRecord{
		{Path: "/docs/report.md", Content: "This report mentions Omnisyan and other findings. The Bayes app is also referenced."},
		{Path: "/docs/other.txt", Content: "Nothing relevant here."},
	}
	if err := idx.Rebuild(ctx, docs); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	results, err := idx.Search(ctx, "Omnisyan", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result for \"Omnisyan\", got %d", len(results))
	}
	if results[0].Path != "/docs/report.md" {
		t.Errorf("first result path = %q", results[0].Path)
	}
	if len(results[0].Fragments) == 0 {
		t.Error("expected highlighted fragments")
	}

	// no stemming, so lowercase "bayes" still matches "Bayes"
	results, err = idx.Search(ctx, "bayes", 10, nil)
	if err != nil {
		t.Fatalf("Search bayes: %v", err)
	}
	if len(results) == 0 || results[0].Path != "/docs/report.md" {
		t.Fatalf("unexpected results for bayes: %+v", results)
	}
}

func TestBleveIndex_TitleBoost(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	docs := []models.DocumentRecord{
		{Path: "/docs/notes.txt", Content: "kubernetes kubernetes kubernetes"},
		{Path: "/docs/kubernetes.md", Content: "a short guide to kubernetes"},
	}
	if err := idx.Rebuild(ctx, docs); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	results, err := idx.Search(ctx, "kubernetes", 10, &SearchOptions{TitleBoost: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Path != "/docs/kubernetes.md" {
		t.Errorf("expected title match first, got %q", results[0].Path)
	}
}

func TestBleveIndex_Fuzzy(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	if err := idx.Rebuild(ctx, []models.DocumentRecord{{Path: "a.txt", Content: "vector databases"}}); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	exact, err := idx.Search(ctx, "vectr", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(exact) != 0 {
		t.Errorf("exact search should miss a typo, got %d", len(exact))
	}
	fuzzy, err := idx.Search(ctx, "vectr", 10, &SearchOptions{FuzzyEnabled: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(fuzzy) != 1 {
		t.Errorf("fuzzy search should match, got %d", len(fuzzy))
	}
}

func TestBleveIndex_RebuildReplaces(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	if err := idx.Rebuild(ctx, []models.DocumentRecord{{Path: "old.txt", Content: "alpha"}}); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if err := idx.Rebuild(ctx, []models.DocumentRecord{{Path: "new.txt", Content: "beta"}}); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	n, err := idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if n != 1 {
		t.Errorf("DocCount = %d, want 1", n)
	}
	results, err := idx.Search(ctx, "alpha", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("old document still searchable: %+v", results)
	}
}

func TestBleveIndex_ReopenKeepsDocuments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyword.bleve")
	ctx := context.Background()
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	if err := idx.Rebuild(ctx, []models.DocumentRecord{{Path: "a.txt", Content: "persistent words"}}); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	results, err := reopened.Search(ctx, "persistent", 5, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result after reopen, got %d", len(results))
	}
}

func TestBleveIndex_EmptyQuery(t *testing.T) {
	idx := newTestIndex(t)
	results, err := idx.Search(context.Background(), "   ", 5, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}
