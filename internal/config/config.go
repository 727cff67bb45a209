package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/localrivet/configurator"
	"github.com/localrivet/gomcp/logx"
)

// Global configuration instance
var (
	// Global is the global configuration instance
	Global *Config
	// initOnce ensures initialization happens only once
	initOnce sync.Once
)

// InitGlobal initializes the global configuration
func InitGlobal(configPath string) (*Config, error) {
	var err error
	initOnce.Do(func() {
		Global, err = LoadConfigWithPath(configPath)
	})
	return Global, err
}

// Config represents the FACT memory service configuration
type Config struct {
	// Store contains fact storage configuration.
	Store struct {
		// SQLitePath is the path to the fact store SQLite database file.
		SQLitePath string `json:"sqlite_path" env:"SQLITE_PATH" validate:"required"`
	} `json:"store"`

	// Summarizer contains summarization-related configuration.
	Summarizer struct {
		// Provider is the name of the summarization provider to use.
		Provider string `json:"provider" env:"SUMMARIZER_PROVIDER"`
	} `json:"summarizer"`

	// Embedder contains embedding-related configuration.
	Embedder struct {
		// Provider is the name of the embedding provider to use.
		Provider string `json:"provider" env:"EMBEDDER_PROVIDER"`

		// Dimensions is the number of dimensions for the embeddings.
		Dimensions int `json:"dimensions" env:"EMBEDDER_DIMENSIONS" validate:"min:1"`
	} `json:"embedder"`

	// Database contains finance database configuration.
	Database struct {
		// Path is the path to the read-only finance SQLite database file.
		Path string `json:"path" env:"DATABASE_PATH" validate:"required"`
	} `json:"database"`

	// Cache contains query cache configuration.
	Cache struct {
		// Prefix namespaces cache entries; changing it abandons old entries.
		Prefix string `json:"prefix" env:"CACHE_PREFIX"`

		// MinTokens is the minimum token count for a cacheable response.
		MinTokens int `json:"min_tokens" env:"CACHE_MIN_TOKENS" validate:"min:1"`

		// MaxSize is the cache size limit, e.g. "10MB".
		MaxSize string `json:"max_size" env:"CACHE_MAX_SIZE"`

		// TTLSeconds is how long an entry stays valid. Zero means no expiry.
		TTLSeconds int `json:"ttl_seconds" env:"CACHE_TTL_SECONDS"`

		// Breaker contains circuit breaker tuning.
		Breaker struct {
			// FailureThreshold is how many consecutive failures open the breaker.
			FailureThreshold int `json:"failure_threshold" env:"BREAKER_FAILURE_THRESHOLD"`

			// TimeoutSeconds is how long the breaker stays open before trials.
			TimeoutSeconds int `json:"timeout_seconds" env:"BREAKER_TIMEOUT_SECONDS"`

			// SuccessThreshold is how many trial successes close the breaker.
			SuccessThreshold int `json:"success_threshold" env:"BREAKER_SUCCESS_THRESHOLD"`
		} `json:"breaker"`
	} `json:"cache"`

	// Logging contains logging-related configuration.
	Logging struct {
		// Level is the minimum log level to display ("debug", "info", "warn", "error").
		Level string `json:"level" env:"LOG_LEVEL" validate:"required"`

		// Format is the log format to use ("text", "json").
		Format string `json:"format" env:"LOG_FORMAT"`
	} `json:"logging"`

	// Internal state (not saved to config file)
	configPath     string       `json:"-"`
	mutex          sync.RWMutex `json:"-"`
	lastModifiedAt time.Time    `json:"-"`
}

// Default configuration values
const (
	DefaultConfigFilename = ".factmemoryconfig"
	DefaultSQLitePath     = ".factmemory.db"
	DefaultDatabasePath   = ".factmemory-finance.db"
	DefaultCachePrefix    = "fact_v1"
	DefaultCacheMinTokens = 500
	DefaultCacheMaxSize   = "10MB"
	DefaultCacheTTL       = 3600
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// NewConfig creates a new Config instance with default values
func NewConfig() *Config {
	config := &Config{}
	config.Store.SQLitePath = DefaultSQLitePath
	config.Summarizer.Provider = "basic"
	config.Embedder.Provider = "mock"
	config.Embedder.Dimensions = 768
	config.Database.Path = DefaultDatabasePath
	config.Cache.Prefix = DefaultCachePrefix
	config.Cache.MinTokens = DefaultCacheMinTokens
	config.Cache.MaxSize = DefaultCacheMaxSize
	config.Cache.TTLSeconds = DefaultCacheTTL
	config.Cache.Breaker.FailureThreshold = 5
	config.Cache.Breaker.TimeoutSeconds = 30
	config.Cache.Breaker.SuccessThreshold = 3
	config.Logging.Level = DefaultLogLevel
	config.Logging.Format = DefaultLogFormat
	return config
}

// LoadConfig loads the configuration from the default path
func LoadConfig() (*Config, error) {
	return LoadConfigWithPath(DefaultConfigFilename)
}

// LoadConfigWithPath loads the configuration from a specific path
func LoadConfigWithPath(configPath string) (*Config, error) {
	// Create a default logger for configuration loading
	stdLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Create default configuration
	cfg := NewConfig()

	// Try to find config file if path is default
	if configPath == DefaultConfigFilename {
		foundPath, err := configurator.FindConfigFile(configPath)
		if err == nil {
			configPath = foundPath
			stdLogger.Debug("Found config file at " + foundPath)
		}
	}

	// Check if the file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// File doesn't exist, return default config
		stdLogger.Info("Config file not found, using default configuration", "path", configPath)
		cfg.configPath = configPath
		cfg.lastModifiedAt = time.Now()
		return cfg, nil
	}

	stdLogger.Info("Loading configuration", "path", configPath)

	// Create configurator instance
	config := configurator.New(stdLogger).
		WithProvider(configurator.NewDefaultProvider()).
		WithProvider(configurator.NewFileProvider(configPath)).
		WithProvider(configurator.NewEnvProvider("FACTMEMORY")).
		WithValidator(configurator.NewDefaultValidator())

	// Load configuration
	ctx := context.Background()
	if err := config.Load(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Store the config path for future operations
	cfg.configPath = configPath
	cfg.lastModifiedAt = time.Now()

	return cfg, nil
}

// SaveToFile saves the configuration to the specified file
func (c *Config) SaveToFile(path string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	// Create directory if needed
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Save using configurator's SaveToFile function
	if err := configurator.SaveToFile(c, path, configurator.FormatJSON); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	// Update internal state
	c.configPath = path
	c.lastModifiedAt = time.Now()

	return nil
}

// Save saves the configuration to the last used file path
func (c *Config) Save() error {
	if c.configPath == "" {
		c.configPath = DefaultConfigFilename
	}
	return c.SaveToFile(c.configPath)
}

// GetConfigPath returns the path of the currently loaded configuration file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// CacheTTL returns the cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// BreakerTimeout returns the circuit breaker timeout as a duration.
func (c *Config) BreakerTimeout() time.Duration {
	return time.Duration(c.Cache.Breaker.TimeoutSeconds) * time.Second
}

// GetLoggerFromConfig creates a gomcp logx.Logger based on the configuration
func GetLoggerFromConfig(cfg *Config) logx.Logger {
	return logx.NewLogger(cfg.Logging.Level)
}
