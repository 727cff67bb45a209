package factstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/facttools/factmemory/internal/vector"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store := NewSQLiteStore()
	dbPath := filepath.Join(t.TempDir(), "factmemory_test.db")
	if err := store.Initialize(dbPath); err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func mustEmbed(t *testing.T, text string) ([]float32, []byte) {
	t.Helper()

	embedder := vector.NewMockEmbedder(32)
	embedding, err := embedder.CreateEmbedding(text)
	if err != nil {
		t.Fatalf("Failed to create embedding: %v", err)
	}
	encoded, err := vector.Float32SliceToBytes(embedding)
	if err != nil {
		t.Fatalf("Failed to encode embedding: %v", err)
	}
	return embedding, encoded
}

func TestStoreAndSearch(t *testing.T) {
	store := newTestStore(t)

	queryEmbedding, encoded := mustEmbed(t, "TechCorp Q1 revenue was 25 billion.")
	err := store.Store("fact-1", "TechCorp Q1 revenue was 25 billion.", encoded, time.Now())
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	_, otherEncoded := mustEmbed(t, "HealthPlus operates in the healthcare sector.")
	err = store.Store("fact-2", "HealthPlus operates in the healthcare sector.", otherEncoded, time.Now())
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	results, err := store.Search(queryEmbedding, 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}

	// The exact match must rank first.
	if results[0] != "TechCorp Q1 revenue was 25 billion." {
		t.Errorf("Expected the matching fact first, got: %s", results[0])
	}
}

func TestSearchLimitExceedsResults(t *testing.T) {
	store := newTestStore(t)

	queryEmbedding, encoded := mustEmbed(t, "only fact")
	if err := store.Store("fact-1", "only fact", encoded, time.Now()); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	results, err := store.Search(queryEmbedding, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 1 {
		t.Errorf("Expected limit to clamp to available results, got %d", len(results))
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)

	queryEmbedding, encoded := mustEmbed(t, "fact to delete")
	if err := store.Store("fact-1", "fact to delete", encoded, time.Now()); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	if err := store.Delete("fact-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	results, err := store.Search(queryEmbedding, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no results after delete, got %d", len(results))
	}

	// Deleting an unknown ID is not an error.
	if err := store.Delete("missing"); err != nil {
		t.Errorf("Delete of unknown ID should not fail: %v", err)
	}
}

func TestReplace(t *testing.T) {
	store := newTestStore(t)

	queryEmbedding, encoded := mustEmbed(t, "original fact")
	if err := store.Store("fact-1", "original fact", encoded, time.Now()); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	_, newEncoded := mustEmbed(t, "replacement fact")
	if err := store.Replace("fact-1", "replacement fact", newEncoded, time.Now()); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	results, err := store.Search(queryEmbedding, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0] != "replacement fact" {
		t.Errorf("Expected replaced fact, got: %v", results)
	}

	if err := store.Replace("missing", "text", newEncoded, time.Now()); err == nil {
		t.Error("Replace of unknown ID should fail")
	}
}

func TestClear(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"a", "b", "c"} {
		_, encoded := mustEmbed(t, "fact "+id)
		if err := store.Store(id, "fact "+id, encoded, time.Now()); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}

	count, err := store.Clear()
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 cleared facts, got %d", count)
	}

	count, err = store.Clear()
	if err != nil {
		t.Fatalf("Second clear failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected empty store to clear 0 facts, got %d", count)
	}
}
