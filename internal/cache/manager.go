package cache

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/facttools/factmemory/internal/telemetry"
	"github.com/facttools/factmemory/internal/util"
)

// Config holds cache manager configuration.
type Config struct {
	// Prefix namespaces every entry and query hash.
	Prefix string

	// MinTokens is the floor below which content is not cached.
	MinTokens int

	// MaxSize is the total content size limit, e.g. "10MB".
	MaxSize string

	// TTL is how long entries stay valid. Zero disables expiry.
	TTL time.Duration
}

// Default cache configuration values.
const (
	DefaultPrefix    = "fact_v1"
	DefaultMinTokens = 500
	DefaultMaxSize   = "10MB"
	DefaultTTL       = time.Hour
)

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() Config {
	return Config{
		Prefix:    DefaultPrefix,
		MinTokens: DefaultMinTokens,
		MaxSize:   DefaultMaxSize,
		TTL:       DefaultTTL,
	}
}

// Metrics is a point-in-time snapshot of cache performance.
type Metrics struct {
	TotalEntries    int     `json:"total_entries"`
	TotalRequests   int64   `json:"total_requests"`
	CacheHits       int64   `json:"cache_hits"`
	CacheMisses     int64   `json:"cache_misses"`
	TotalSize       int     `json:"total_size"`
	HitRate         float64 `json:"hit_rate"`
	MissRate        float64 `json:"miss_rate"`
	AvgAccessCount  float64 `json:"avg_access_count"`
	TokenEfficiency float64 `json:"token_efficiency"`
	Timestamp       int64   `json:"timestamp"`
}

// Manager is the main cache manager for the FACT memory service.
// It handles storage, retrieval, invalidation, and metrics tracking.
type Manager struct {
	prefix       string
	minTokens    int
	maxSizeBytes int
	ttl          time.Duration

	mu      sync.RWMutex
	entries map[string]*Entry

	hits          int64
	misses        int64
	totalRequests int64

	collector *telemetry.MetricsCollector
}

// NewManager creates a cache manager from the given configuration.
func NewManager(cfg Config, collector *telemetry.MetricsCollector) (*Manager, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.MinTokens <= 0 {
		cfg.MinTokens = DefaultMinTokens
	}
	if cfg.MaxSize == "" {
		cfg.MaxSize = DefaultMaxSize
	}
	if collector == nil {
		collector = telemetry.NewMetricsCollector()
	}

	maxSizeBytes, err := ParseSize(cfg.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("invalid max cache size %q: %w", cfg.MaxSize, err)
	}

	m := &Manager{
		prefix:       cfg.Prefix,
		minTokens:    cfg.MinTokens,
		maxSizeBytes: maxSizeBytes,
		ttl:          cfg.TTL,
		entries:      make(map[string]*Entry),
		collector:    collector,
	}

	slog.Info("Cache manager initialized",
		"prefix", m.prefix,
		"min_tokens", m.minTokens,
		"max_size_mb", m.maxSizeBytes/(1024*1024))

	return m, nil
}

// Prefix returns the cache namespace prefix.
func (m *Manager) Prefix() string {
	return m.prefix
}

// GenerateHash creates the deterministic hash used as the cache key for a query.
func (m *Manager) GenerateHash(query string) string {
	return util.QueryHash(m.prefix, query)
}

// Store stores content in the cache after validation. The entry must meet
// the minimum token floor and fit inside the size limit once expired
// entries have been cleaned up.
func (m *Manager) Store(queryHash, content string) (*Entry, error) {
	entry, err := NewEntry(m.prefix, content)
	if err != nil {
		return nil, err
	}

	if entry.TokenCount < m.minTokens {
		return nil, fmt.Errorf("%w: need %d, got %d", ErrMinTokens, m.minTokens, entry.TokenCount)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entrySize := entry.Size()
	currentSize := m.currentSizeLocked()

	if currentSize+entrySize > m.maxSizeBytes {
		evicted := m.cleanupExpiredLocked()
		if evicted > 0 {
			m.collector.IncrementCounter(telemetry.MetricCacheEvicted, int64(evicted))
		}
		currentSize = m.currentSizeLocked()

		if currentSize+entrySize > m.maxSizeBytes {
			return nil, fmt.Errorf("%w: required %d, available %d",
				ErrCacheFull, entrySize, m.maxSizeBytes-currentSize)
		}
	}

	m.entries[queryHash] = entry
	m.collector.SetGauge(telemetry.MetricCacheEntries, float64(len(m.entries)))
	m.collector.SetGauge(telemetry.MetricCacheSize, float64(currentSize+entrySize))

	slog.Debug("Cache entry stored",
		"query_hash", shortHash(queryHash),
		"token_count", entry.TokenCount,
		"size_bytes", entrySize)

	return entry, nil
}

// Get retrieves an entry with access tracking. Expired or corrupted entries
// are removed and count as misses. A nil return means a miss.
func (m *Manager) Get(queryHash string) *Entry {
	start := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests++

	entry, ok := m.entries[queryHash]
	if !ok {
		m.misses++
		m.collector.IncrementCounter(telemetry.MetricCacheMisses, 1)
		return nil
	}

	if entry.IsExpired(m.ttl) {
		delete(m.entries, queryHash)
		m.misses++
		m.collector.IncrementCounter(telemetry.MetricCacheMisses, 1)
		slog.Debug("Cache entry expired", "query_hash", shortHash(queryHash))
		return nil
	}

	if entry.Content == "" {
		delete(m.entries, queryHash)
		m.misses++
		m.collector.IncrementCounter(telemetry.MetricCacheMisses, 1)
		slog.Warn("Corrupted cache entry removed", "query_hash", shortHash(queryHash))
		return nil
	}

	entry.RecordAccess()
	m.hits++
	m.collector.IncrementCounter(telemetry.MetricCacheHits, 1)

	slog.Debug("Cache hit",
		"query_hash", shortHash(queryHash),
		"latency_ms", float64(time.Since(start))/float64(time.Millisecond),
		"access_count", entry.AccessCount)

	return entry
}

// InvalidateByPrefix invalidates all cache entries with the given prefix
// and returns how many were removed.
func (m *Manager) InvalidateByPrefix(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, entry := range m.entries {
		if entry.Prefix == prefix {
			delete(m.entries, key)
			removed++
		}
	}

	m.collector.SetGauge(telemetry.MetricCacheEntries, float64(len(m.entries)))

	slog.Info("Cache invalidated by prefix",
		"prefix", prefix,
		"entries_removed", removed)

	return removed
}

// InvalidateOnSchemaChange drops every entry in this manager's namespace.
// Called when the underlying database schema changes so stale results
// cannot be served.
func (m *Manager) InvalidateOnSchemaChange(reason string) int {
	removed := m.InvalidateByPrefix(m.prefix)
	slog.Info("Cache invalidated due to schema change",
		"reason", reason,
		"entries_invalidated", removed)
	return removed
}

// GetMetrics calculates and returns current cache metrics.
func (m *Manager) GetMetrics() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	totalSize := m.currentSizeLocked()

	var avgAccess float64
	var totalTokens int
	if len(m.entries) > 0 {
		totalAccesses := 0
		for _, entry := range m.entries {
			totalAccesses += entry.AccessCount
			totalTokens += entry.TokenCount
		}
		avgAccess = float64(totalAccesses) / float64(len(m.entries))
	}

	metrics := Metrics{
		TotalEntries:   len(m.entries),
		TotalRequests:  m.totalRequests,
		CacheHits:      m.hits,
		CacheMisses:    m.misses,
		TotalSize:      totalSize,
		AvgAccessCount: avgAccess,
		Timestamp:      time.Now().Unix(),
	}

	if m.totalRequests > 0 {
		metrics.HitRate = float64(m.hits) / float64(m.totalRequests) * 100
		metrics.MissRate = float64(m.misses) / float64(m.totalRequests) * 100
	}

	if totalSize > 0 {
		// Tokens per KB of stored content.
		metrics.TokenEfficiency = float64(totalTokens) / float64(totalSize) * 1000
	}

	return metrics
}

// ParseSize parses a size string such as "10MB" into bytes.
func ParseSize(sizeStr string) (int, error) {
	s := strings.ToUpper(strings.TrimSpace(sizeStr))

	multiplier := 1
	switch {
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "GB")
	}

	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("unparseable size: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("size must be non-negative, got %d", n)
	}

	return n * multiplier, nil
}

// currentSizeLocked calculates current cache size in bytes. Caller holds the lock.
func (m *Manager) currentSizeLocked() int {
	total := 0
	for _, entry := range m.entries {
		total += entry.Size()
	}
	return total
}

// cleanupExpiredLocked removes expired entries. Caller holds the lock.
func (m *Manager) cleanupExpiredLocked() int {
	if m.ttl <= 0 {
		return 0
	}

	removed := 0
	for key, entry := range m.entries {
		if entry.IsExpired(m.ttl) {
			delete(m.entries, key)
			removed++
		}
	}

	if removed > 0 {
		slog.Debug("Expired cache entries cleaned up", "count", removed)
	}

	return removed
}

// shortHash truncates a query hash for log output.
func shortHash(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
