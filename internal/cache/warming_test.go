package cache

import (
	"testing"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{
			in:   "What was Q1-2025   Revenue?",
			want: "what was {period} revenue?",
		},
		{
			in:   "Show revenue for 2024",
			want: "show revenue for {year}",
		},
		{
			in:   "Total was $1,234.56 last quarter",
			want: "total was {currency} last quarter",
		},
	}

	for _, tt := range tests {
		if got := NormalizeQuery(tt.in); got != tt.want {
			t.Errorf("NormalizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAnalyzeQueryLog(t *testing.T) {
	analyzer := NewPatternAnalyzer()

	log := []string{
		"What was Q1-2025 revenue?",
		"What was Q2-2025 revenue?",
		"What was Q3-2025 revenue?",
		"What was Q4-2025 revenue?",
		"one off query",
	}

	candidates := analyzer.AnalyzeQueryLog(log)

	if len(candidates) != 1 {
		t.Fatalf("Expected 1 warming candidate, got %d", len(candidates))
	}

	if candidates[0].Query != "what was {period} revenue?" {
		t.Errorf("Unexpected candidate: %s", candidates[0].Query)
	}
	if candidates[0].FrequencyScore != 4 {
		t.Errorf("Expected frequency 4, got %f", candidates[0].FrequencyScore)
	}
	if candidates[0].Priority != 4 {
		t.Errorf("Expected priority 4, got %d", candidates[0].Priority)
	}
}

func TestWarmWithResponses(t *testing.T) {
	m := newTestManager(t, Config{Prefix: "test", MinTokens: 10, MaxSize: "1MB"})

	queries := []string{"query one", "query two"}
	responses := []string{largeContent(20), largeContent(30)}

	result := m.Warm(queries, responses)

	if result.QueriesSuccessful != 2 || result.QueriesFailed != 0 {
		t.Fatalf("Expected 2 successes, got %+v", result)
	}

	for _, q := range queries {
		if m.Get(m.GenerateHash(q)) == nil {
			t.Errorf("Expected warmed entry for %q", q)
		}
	}
}

func TestWarmSynthesizesResponses(t *testing.T) {
	m := newTestManager(t, Config{Prefix: "test", MinTokens: 200, MaxSize: "1MB"})

	result := m.Warm([]string{"common query"}, nil)

	if result.QueriesSuccessful != 1 {
		t.Fatalf("Expected synthesized response to be cached, got %+v", result)
	}

	entry := m.Get(m.GenerateHash("common query"))
	if entry == nil {
		t.Fatal("Expected warmed entry")
	}
	if entry.TokenCount < 200 {
		t.Errorf("Synthesized response below token floor: %d", entry.TokenCount)
	}
}

func TestWarmContinuesPastFailures(t *testing.T) {
	// 1KB cache cannot hold a large synthesized response.
	m := newTestManager(t, Config{Prefix: "test", MinTokens: 10, MaxSize: "1KB"})

	queries := []string{"fits", "does not fit"}
	responses := []string{largeContent(20), largeContent(500)}

	result := m.Warm(queries, responses)

	if result.QueriesSuccessful != 1 || result.QueriesFailed != 1 {
		t.Fatalf("Expected one success and one failure, got %+v", result)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Expected one recorded error, got %d", len(result.Errors))
	}
}
