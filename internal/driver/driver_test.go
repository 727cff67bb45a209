package driver

import (
	"path/filepath"
	"testing"

	"github.com/facttools/factmemory/internal/config"
	"github.com/facttools/factmemory/internal/errortypes"
)

func newTestDriver(t *testing.T) *Driver {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "finance.db")
	// Low floor so small result sets still cache in tests.
	cfg.Cache.MinTokens = 1

	d := NewDriver(cfg)
	if err := d.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() {
		d.Shutdown()
	})
	return d
}

func TestProcessQuery(t *testing.T) {
	d := newTestDriver(t)

	resp, err := d.ProcessQuery("SELECT name FROM companies ORDER BY name")
	if err != nil {
		t.Fatalf("ProcessQuery failed: %v", err)
	}

	if resp.Cached {
		t.Error("First query should not be served from cache")
	}
	if resp.Result.RowCount == 0 {
		t.Error("Expected rows from seeded database")
	}
	if resp.QueryID == "" {
		t.Error("Expected non-empty query ID")
	}
}

func TestProcessQueryCacheRoundTrip(t *testing.T) {
	d := newTestDriver(t)

	statement := "SELECT name, symbol FROM companies ORDER BY symbol"

	first, err := d.ProcessQuery(statement)
	if err != nil {
		t.Fatalf("ProcessQuery failed: %v", err)
	}

	second, err := d.ProcessQuery(statement)
	if err != nil {
		t.Fatalf("ProcessQuery failed: %v", err)
	}

	if !second.Cached {
		t.Fatal("Expected repeated query to be served from cache")
	}
	if second.Result.RowCount != first.Result.RowCount {
		t.Errorf("Cached row count %d does not match original %d",
			second.Result.RowCount, first.Result.RowCount)
	}

	metrics := d.Metrics()
	if metrics.TotalQueries != 2 {
		t.Errorf("Expected 2 total queries, got %d", metrics.TotalQueries)
	}
	if metrics.CacheEntries != 1 {
		t.Errorf("Expected 1 cache entry, got %d", metrics.CacheEntries)
	}
}

func TestProcessQueryRejectsWrites(t *testing.T) {
	d := newTestDriver(t)

	_, err := d.ProcessQuery("DROP TABLE companies")
	if !errortypes.IsSecurityError(err) {
		t.Errorf("Expected security error, got %v", err)
	}

	metrics := d.Metrics()
	if metrics.FailedQueries != 1 {
		t.Errorf("Expected 1 failed query, got %d", metrics.FailedQueries)
	}
}

func TestWarmCache(t *testing.T) {
	d := newTestDriver(t)

	result := d.WarmCache([]string{
		"SELECT name FROM companies",
		"SELECT sector, COUNT(*) FROM companies GROUP BY sector",
	})

	if result.QueriesSuccessful != 2 || result.QueriesFailed != 0 {
		t.Fatalf("Expected 2 warmed queries, got %+v", result)
	}

	// Warmed queries should now hit the cache.
	resp, err := d.ProcessQuery("SELECT name FROM companies")
	if err != nil {
		t.Fatalf("ProcessQuery failed: %v", err)
	}
	if !resp.Cached {
		t.Error("Expected warmed query to be served from cache")
	}
}

func TestWarmCacheCountsFailures(t *testing.T) {
	d := newTestDriver(t)

	result := d.WarmCache([]string{
		"SELECT name FROM companies",
		"DELETE FROM companies",
	})

	if result.QueriesSuccessful != 1 || result.QueriesFailed != 1 {
		t.Fatalf("Expected one success and one failure, got %+v", result)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Expected one recorded error, got %d", len(result.Errors))
	}
}

func TestWarmFromLog(t *testing.T) {
	d := newTestDriver(t)

	// Run the same shaped query enough times to become a frequent pattern.
	for i := 0; i < 3; i++ {
		if _, err := d.ProcessQuery("SELECT name FROM companies WHERE founded_year < 2000"); err != nil {
			t.Fatalf("ProcessQuery failed: %v", err)
		}
	}

	result := d.WarmFromLog()
	if result.QueriesAttempted != 1 {
		t.Fatalf("Expected 1 warming candidate from log, got %d", result.QueriesAttempted)
	}
	if result.QueriesSuccessful != 1 {
		t.Errorf("Expected warming to succeed, got %+v", result)
	}
}

func TestInvalidateOnSchemaChange(t *testing.T) {
	d := newTestDriver(t)

	if _, err := d.ProcessQuery("SELECT name FROM companies"); err != nil {
		t.Fatalf("ProcessQuery failed: %v", err)
	}
	if d.Metrics().CacheEntries != 1 {
		t.Fatal("Expected one cache entry before invalidation")
	}

	removed := d.InvalidateOnSchemaChange("test migration")
	if removed != 1 {
		t.Errorf("Expected 1 invalidated entry, got %d", removed)
	}
	if d.Metrics().CacheEntries != 0 {
		t.Error("Expected empty cache after invalidation")
	}
}

func TestShutdownAndLazyReinitialize(t *testing.T) {
	d := newTestDriver(t)

	if err := d.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if d.Metrics().Initialized {
		t.Error("Expected driver to report uninitialized after shutdown")
	}

	// ProcessQuery re-initializes on demand.
	resp, err := d.ProcessQuery("SELECT name FROM companies")
	if err != nil {
		t.Fatalf("ProcessQuery after shutdown failed: %v", err)
	}
	if resp.Result.RowCount == 0 {
		t.Error("Expected rows after lazy re-initialization")
	}
}
