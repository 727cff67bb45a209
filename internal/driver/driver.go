// Package driver orchestrates the query pipeline: cache lookup, SQL
// validation and execution, and cache write-back.
package driver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/facttools/factmemory/internal/cache"
	"github.com/facttools/factmemory/internal/config"
	"github.com/facttools/factmemory/internal/db"
	"github.com/facttools/factmemory/internal/errortypes"
	"github.com/facttools/factmemory/internal/telemetry"
)

// QueryResponse is the result of a processed query.
type QueryResponse struct {
	QueryID string
	Result  *db.QueryResult
	Cached  bool
}

// Metrics summarizes driver activity.
type Metrics struct {
	TotalQueries   int64
	FailedQueries  int64
	CacheHitRate   float64
	CacheEntries   int
	AvgQueryTimeMs float64
	Initialized    bool
}

// Driver coordinates the finance database and the query cache. Every query
// goes cache first; results large enough to be worth keeping are written
// back after execution.
type Driver struct {
	cfg *config.Config

	mu          sync.Mutex
	database    *db.Manager
	queryCache  *cache.ResilientCache
	collector   *telemetry.MetricsCollector
	queryLog    []string
	initialized bool
}

// NewDriver creates a driver from the given configuration.
func NewDriver(cfg *config.Config) *Driver {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Driver{
		cfg:       cfg,
		collector: telemetry.NewMetricsCollector(),
	}
}

// Initialize opens the database and builds the cache. Calling it twice is
// a no-op.
func (d *Driver) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		slog.Info("Driver already initialized")
		return nil
	}

	slog.Info("Initializing query driver")

	database := db.NewManager(d.cfg.Database.Path)
	if err := database.Initialize(); err != nil {
		return errortypes.ConfigError(err, "driver initialization failed")
	}

	manager, err := cache.NewManager(cache.Config{
		Prefix:    d.cfg.Cache.Prefix,
		MinTokens: d.cfg.Cache.MinTokens,
		MaxSize:   d.cfg.Cache.MaxSize,
		TTL:       d.cfg.CacheTTL(),
	}, d.collector)
	if err != nil {
		database.Close()
		return errortypes.ConfigError(err, "driver cache initialization failed")
	}

	breaker := cache.NewCircuitBreaker(cache.BreakerConfig{
		FailureThreshold: d.cfg.Cache.Breaker.FailureThreshold,
		Timeout:          d.cfg.BreakerTimeout(),
		SuccessThreshold: d.cfg.Cache.Breaker.SuccessThreshold,
	}, d.collector)

	d.database = database
	d.queryCache = cache.NewResilientCache(manager, breaker)
	d.initialized = true

	slog.Info("Query driver initialized successfully", "database", d.cfg.Database.Path)
	return nil
}

// ProcessQuery runs a read-only statement through the cache-first pipeline.
func (d *Driver) ProcessQuery(statement string) (*QueryResponse, error) {
	if err := d.ensureInitialized(); err != nil {
		return nil, err
	}

	queryID := fmt.Sprintf("query_%d", time.Now().UnixMilli())
	start := time.Now()

	d.collector.IncrementCounter(telemetry.MetricQueriesTotal, 1)
	d.recordQuery(statement)

	queryHash := d.queryCache.GenerateHash(statement)

	if entry, err := d.queryCache.Get(queryHash); err == nil && entry != nil {
		var cached db.QueryResult
		if err := json.Unmarshal([]byte(entry.Content), &cached); err == nil {
			d.collector.RecordTimer(telemetry.MetricQueryLatency, time.Since(start))
			slog.Info("Query served from cache", "query_id", queryID)
			return &QueryResponse{QueryID: queryID, Result: &cached, Cached: true}, nil
		}
		slog.Warn("Discarding undecodable cache entry", "query_id", queryID)
	}

	result, err := d.database.ExecuteQuery(statement)
	if err != nil {
		d.collector.IncrementCounter(telemetry.MetricQueriesFailed, 1)
		errortypes.LogError(nil, err)
		return nil, err
	}

	d.storeResult(queryHash, queryID, result)

	latency := time.Since(start)
	d.collector.RecordTimer(telemetry.MetricQueryLatency, latency)

	slog.Info("Query processed successfully",
		"query_id", queryID,
		"row_count", result.RowCount,
		"latency_ms", latency.Milliseconds())

	return &QueryResponse{QueryID: queryID, Result: result, Cached: false}, nil
}

// WarmCache executes each statement and caches its result so later calls
// hit the cache. Failures are logged and skipped.
func (d *Driver) WarmCache(statements []string) cache.WarmupResult {
	result := cache.WarmupResult{QueriesAttempted: len(statements)}

	if err := d.ensureInitialized(); err != nil {
		result.QueriesFailed = len(statements)
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	for _, statement := range statements {
		queryResult, err := d.database.ExecuteQuery(statement)
		if err != nil {
			result.QueriesFailed++
			result.Errors = append(result.Errors, err.Error())
			d.collector.IncrementCounter(telemetry.MetricWarmupFailed, 1)
			continue
		}

		payload, err := json.Marshal(queryResult)
		if err != nil {
			result.QueriesFailed++
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		entry, err := d.queryCache.Store(d.queryCache.GenerateHash(statement), string(payload))
		if err != nil {
			result.QueriesFailed++
			result.Errors = append(result.Errors, err.Error())
			d.collector.IncrementCounter(telemetry.MetricWarmupFailed, 1)
			continue
		}

		result.QueriesSuccessful++
		result.TokensCached += entry.TokenCount
		d.collector.IncrementCounter(telemetry.MetricWarmupStored, 1)
	}

	slog.Info("Cache warming completed",
		"successful", result.QueriesSuccessful,
		"failed", result.QueriesFailed)

	return result
}

// WarmFromLog analyzes the driver's query log and re-warms the statements
// behind frequent patterns. The raw statement seen most recently for each
// pattern is the one replayed.
func (d *Driver) WarmFromLog() cache.WarmupResult {
	d.mu.Lock()
	log := make([]string, len(d.queryLog))
	copy(log, d.queryLog)
	d.mu.Unlock()

	analyzer := cache.NewPatternAnalyzer()
	candidates := analyzer.AnalyzeQueryLog(log)

	// Map normalized patterns back to the raw statements that produced them.
	latestByPattern := make(map[string]string, len(log))
	for _, statement := range log {
		latestByPattern[cache.NormalizeQuery(statement)] = statement
	}

	var statements []string
	for _, candidate := range candidates {
		if raw, ok := latestByPattern[candidate.Query]; ok {
			statements = append(statements, raw)
		}
	}

	return d.WarmCache(statements)
}

// InvalidateOnSchemaChange drops every cache entry after a schema change.
func (d *Driver) InvalidateOnSchemaChange(reason string) int {
	if err := d.ensureInitialized(); err != nil {
		return 0
	}

	manager, ok := d.queryCache.Manager().(*cache.Manager)
	if !ok {
		return 0
	}
	return manager.InvalidateOnSchemaChange(reason)
}

// Database exposes the finance database manager.
func (d *Driver) Database() *db.Manager {
	return d.database
}

// Cache exposes the resilient query cache.
func (d *Driver) Cache() *cache.ResilientCache {
	return d.queryCache
}

// Metrics reports driver activity counters and cache efficiency.
func (d *Driver) Metrics() Metrics {
	d.mu.Lock()
	initialized := d.initialized
	d.mu.Unlock()

	m := Metrics{
		TotalQueries:   d.collector.GetCounter(telemetry.MetricQueriesTotal),
		FailedQueries:  d.collector.GetCounter(telemetry.MetricQueriesFailed),
		AvgQueryTimeMs: float64(d.collector.GetTimerAverage(telemetry.MetricQueryLatency).Microseconds()) / 1000,
		Initialized:    initialized,
	}

	if initialized {
		cacheMetrics := d.queryCache.GetMetrics()
		m.CacheHitRate = cacheMetrics.HitRate
		m.CacheEntries = cacheMetrics.TotalEntries
	}

	return m
}

// Shutdown closes the database connection.
func (d *Driver) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return nil
	}

	slog.Info("Shutting down query driver")

	var err error
	if d.database != nil {
		err = d.database.Close()
	}
	d.initialized = false

	slog.Info("Query driver shutdown complete")
	return err
}

func (d *Driver) ensureInitialized() error {
	d.mu.Lock()
	initialized := d.initialized
	d.mu.Unlock()

	if initialized {
		return nil
	}
	return d.Initialize()
}

// recordQuery appends a statement to the in-memory query log used by
// WarmFromLog. The log is capped to keep memory bounded.
func (d *Driver) recordQuery(statement string) {
	const maxLogSize = 1000

	d.mu.Lock()
	defer d.mu.Unlock()

	d.queryLog = append(d.queryLog, statement)
	if len(d.queryLog) > maxLogSize {
		d.queryLog = d.queryLog[len(d.queryLog)-maxLogSize:]
	}
}

// storeResult writes a query result back to the cache. Policy rejections
// are expected for small results and only logged at debug level.
func (d *Driver) storeResult(queryHash, queryID string, result *db.QueryResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		slog.Warn("Failed to encode result for caching", "query_id", queryID, "error", err)
		return
	}

	if _, err := d.queryCache.Store(queryHash, string(payload)); err != nil {
		if errors.Is(err, cache.ErrCircuitOpen) {
			slog.Warn("Cache unavailable, result not cached", "query_id", queryID)
			return
		}
		slog.Debug("Query result not cached", "query_id", queryID, "reason", err)
	}
}
