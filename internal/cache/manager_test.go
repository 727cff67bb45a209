package cache

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/facttools/factmemory/internal/telemetry"
)

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()

	m, err := NewManager(cfg, telemetry.NewMetricsCollector())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

// largeContent returns content with roughly the requested token count.
func largeContent(tokens int) string {
	return strings.TrimSpace(strings.Repeat("revenue ", tokens))
}

func TestCountTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "words", text: "total revenue for the quarter", want: 5},
		{name: "repeated single character", text: "AAAAAAAAAA", want: 10},
		{name: "repeated character with spaces", text: "AA AA AA", want: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountTokens(tt.text); got != tt.want {
				t.Errorf("CountTokens(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestStoreRejectsSmallContent(t *testing.T) {
	m := newTestManager(t, Config{Prefix: "test", MinTokens: 100, MaxSize: "1MB"})

	_, err := m.Store(m.GenerateHash("small"), "too small to cache")
	if !errors.Is(err, ErrMinTokens) {
		t.Errorf("Expected ErrMinTokens, got %v", err)
	}
}

func TestStoreRejectsEmptyContent(t *testing.T) {
	m := newTestManager(t, Config{Prefix: "test", MinTokens: 10, MaxSize: "1MB"})

	_, err := m.Store(m.GenerateHash("empty"), "")
	if !errors.Is(err, ErrEmptyContent) {
		t.Errorf("Expected ErrEmptyContent, got %v", err)
	}
}

func TestStoreAndGet(t *testing.T) {
	m := newTestManager(t, Config{Prefix: "test", MinTokens: 100, MaxSize: "1MB"})

	content := largeContent(150)
	hash := m.GenerateHash("What was Q1 revenue?")

	stored, err := m.Store(hash, content)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if stored.TokenCount < 100 {
		t.Errorf("Expected at least 100 tokens, got %d", stored.TokenCount)
	}

	entry := m.Get(hash)
	if entry == nil {
		t.Fatal("Expected cache hit, got miss")
	}
	if entry.Content != content {
		t.Error("Cached content does not match stored content")
	}
	if entry.AccessCount != 1 {
		t.Errorf("Expected access count 1, got %d", entry.AccessCount)
	}

	metrics := m.GetMetrics()
	if metrics.CacheHits != 1 || metrics.TotalRequests != 1 {
		t.Errorf("Unexpected metrics: hits=%d requests=%d", metrics.CacheHits, metrics.TotalRequests)
	}
}

func TestGetMiss(t *testing.T) {
	m := newTestManager(t, Config{Prefix: "test", MinTokens: 100, MaxSize: "1MB"})

	if entry := m.Get(m.GenerateHash("never stored")); entry != nil {
		t.Error("Expected miss for unknown hash")
	}

	metrics := m.GetMetrics()
	if metrics.CacheMisses != 1 {
		t.Errorf("Expected 1 miss, got %d", metrics.CacheMisses)
	}
}

func TestGetExpired(t *testing.T) {
	m := newTestManager(t, Config{Prefix: "test", MinTokens: 100, MaxSize: "1MB", TTL: 10 * time.Millisecond})

	hash := m.GenerateHash("expiring query")
	if _, err := m.Store(hash, largeContent(150)); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	if entry := m.Get(hash); entry != nil {
		t.Error("Expected expired entry to be treated as a miss")
	}

	metrics := m.GetMetrics()
	if metrics.TotalEntries != 0 {
		t.Errorf("Expected expired entry to be removed, have %d entries", metrics.TotalEntries)
	}
}

func TestStoreSizeLimit(t *testing.T) {
	m := newTestManager(t, Config{Prefix: "test", MinTokens: 10, MaxSize: "1KB"})

	// 200 tokens of 8 bytes each is well over 1KB.
	_, err := m.Store(m.GenerateHash("big"), largeContent(200))
	if !errors.Is(err, ErrCacheFull) {
		t.Errorf("Expected ErrCacheFull, got %v", err)
	}
}

func TestInvalidateByPrefix(t *testing.T) {
	m := newTestManager(t, Config{Prefix: "fact_v1", MinTokens: 10, MaxSize: "1MB"})

	for _, q := range []string{"a", "b", "c"} {
		if _, err := m.Store(m.GenerateHash(q), largeContent(20)); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}

	if removed := m.InvalidateByPrefix("other"); removed != 0 {
		t.Errorf("Expected 0 removals for foreign prefix, got %d", removed)
	}

	if removed := m.InvalidateOnSchemaChange("table altered"); removed != 3 {
		t.Errorf("Expected 3 removals on schema change, got %d", removed)
	}

	if m.GetMetrics().TotalEntries != 0 {
		t.Error("Expected cache to be empty after invalidation")
	}
}

func TestGenerateHashDeterministic(t *testing.T) {
	m := newTestManager(t, Config{Prefix: "test", MinTokens: 10, MaxSize: "1MB"})

	if m.GenerateHash("query") != m.GenerateHash("query") {
		t.Error("Expected deterministic query hashes")
	}
	if m.GenerateHash("query") == m.GenerateHash("other") {
		t.Error("Expected different hashes for different queries")
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "10MB", want: 10 * 1024 * 1024},
		{in: "512KB", want: 512 * 1024},
		{in: "1GB", want: 1024 * 1024 * 1024},
		{in: "2048", want: 2048},
		{in: " 5mb ", want: 5 * 1024 * 1024},
		{in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseSize(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSize(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
