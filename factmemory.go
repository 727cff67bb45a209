// Package factmemory provides an embeddable FACT memory service: a fact
// store with semantic retrieval, a cached read-only finance database, and
// an MCP tool server exposing both.
package factmemory

import (
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/facttools/factmemory/internal/cache"
	"github.com/facttools/factmemory/internal/config"
	"github.com/facttools/factmemory/internal/db"
	"github.com/facttools/factmemory/internal/errortypes"
	"github.com/facttools/factmemory/internal/factstore"
	"github.com/facttools/factmemory/internal/server"
	"github.com/facttools/factmemory/internal/summarizer"
	"github.com/facttools/factmemory/internal/telemetry"
	"github.com/facttools/factmemory/internal/util"
	"github.com/facttools/factmemory/internal/vector"
)

// Config represents the configuration for the FACT memory service.
type Config = config.Config

// Components bundles the service's core dependencies.
type Components struct {
	Store      factstore.Store
	Summarizer summarizer.Summarizer
	Embedder   vector.Embedder
	Database   *db.Manager
	QueryCache *cache.ResilientCache
}

// Server represents the FACT memory service.
type Server struct {
	config     *config.Config
	components Components
	toolServer server.FactToolServer
	logger     *slog.Logger
}

// ServerOptions defines the options for creating a new Server.
type ServerOptions struct {
	Config     *Config      // Pre-filled config. If nil, ConfigPath is used.
	ConfigPath string       // Path to config file. Used if Config is nil. If both are empty, DefaultConfig() is used.
	Logger     *slog.Logger // External logger. If nil, slog.Default() is used.
}

// NewServer creates a new FACT memory Server with the given options.
// If opts.Config is provided, it is used directly. Otherwise, if
// opts.ConfigPath is provided, configuration is loaded from that path.
// If neither is provided, DefaultConfig() is used.
func NewServer(opts ServerOptions) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var cfg *Config
	var err error

	if opts.Config != nil {
		cfg = opts.Config
		logger.Info("Using provided Config object for server initialization")
	} else if opts.ConfigPath != "" {
		logger.Info("Loading configuration for server initialization", "path", opts.ConfigPath)
		cfg, err = config.LoadConfigWithPath(opts.ConfigPath)
		if err != nil {
			logger.Error("Failed to load configuration from path", "path", opts.ConfigPath, "error", err)
			return nil, errortypes.ConfigError(err, "Failed to load configuration from path: "+opts.ConfigPath)
		}
	} else {
		logger.Warn("No Config object or ConfigPath provided, using default configuration for server initialization")
		cfg = DefaultConfig()
	}

	components, err := CreateComponents(cfg, logger)
	if err != nil {
		logger.Error("Failed to create components during server initialization", "error", err)
		return nil, err
	}

	logger.Info("Initializing fact tool server component")
	mcpServer := server.NewFactToolServer(components.Store, components.Summarizer,
		components.Embedder, components.Database, components.QueryCache)
	if err := mcpServer.Initialize(); err != nil {
		logger.Error("Failed to initialize MCP fact tool server component", "error", err)
		return nil, errortypes.ConfigError(err, "Failed to initialize MCP fact tool server component")
	}

	logger.Info("FACT memory server successfully initialized")
	return &Server{
		config:     cfg,
		components: components,
		toolServer: mcpServer,
		logger:     logger,
	}, nil
}

// DefaultConfig returns the default configuration for the FACT memory service.
func DefaultConfig() *Config {
	return config.NewConfig()
}

// SaveConfig serializes the configuration as indented JSON.
func SaveConfig(cfg *Config, path string) ([]byte, error) {
	content, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, errortypes.ConfigError(err, "failed to marshal configuration")
	}

	return content, nil
}

// loadConfig loads the configuration from the given path.
func loadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errortypes.ConfigError(err, "failed to read config file")
	}

	cfg := &Config{}
	err = json.Unmarshal(data, cfg)
	if err != nil {
		return nil, errortypes.ConfigError(err, "failed to parse config file")
	}

	return cfg, nil
}

// Start starts the FACT memory service.
func (s *Server) Start() error {
	s.logger.Info("Starting FACT memory service")
	return s.toolServer.Start()
}

// Stop stops the FACT memory service.
func (s *Server) Stop() error {
	s.logger.Info("Stopping FACT memory service")
	if err := s.toolServer.Stop(); err != nil {
		s.logger.Error("Error stopping tool server", "error", err)
		return err
	}

	s.logger.Info("Closing fact store")
	if err := s.components.Store.Close(); err != nil {
		s.logger.Error("Failed to close fact store", "error", err)
		return err
	}

	s.logger.Info("Closing finance database")
	if err := s.components.Database.Close(); err != nil {
		s.logger.Error("Failed to close finance database", "error", err)
		return err
	}

	s.logger.Info("FACT memory service stopped")
	return nil
}

// SaveFact saves the given text to the fact store and returns its ID.
func (s *Server) SaveFact(text string) (string, error) {
	s.logger.Debug("Generating summary of text", "length", len(text))
	summary, err := s.components.Summarizer.Summarize(text)
	if err != nil {
		s.logger.Error("Failed to summarize text", "error", err)
		return "", err
	}

	s.logger.Debug("Creating embedding for summary")
	embedding, err := s.components.Embedder.CreateEmbedding(summary)
	if err != nil {
		s.logger.Error("Failed to create embedding", "error", err)
		return "", err
	}

	embeddingBytes, err := vector.Float32SliceToBytes(embedding)
	if err != nil {
		s.logger.Error("Failed to convert embedding to bytes", "error", err)
		return "", err
	}

	timestamp := time.Now()
	id := GenerateHash(summary, timestamp.UnixNano())

	s.logger.Debug("Storing fact", "id", id)
	err = s.components.Store.Store(id, summary, embeddingBytes, timestamp)
	if err != nil {
		s.logger.Error("Failed to store fact", "id", id, "error", err)
		return "", err
	}

	s.logger.Info("Successfully saved fact", "id", id)
	return id, nil
}

// RetrieveFacts retrieves fact summaries similar to the given query.
func (s *Server) RetrieveFacts(query string, limit int) ([]string, error) {
	s.logger.Debug("Creating embedding for query", "query", query)
	queryEmbedding, err := s.components.Embedder.CreateEmbedding(query)
	if err != nil {
		s.logger.Error("Failed to create embedding for query", "query", query, "error", err)
		return nil, err
	}

	s.logger.Debug("Searching for similar facts", "limit", limit)
	results, err := s.components.Store.Search(queryEmbedding, limit)
	if err != nil {
		s.logger.Error("Failed to search fact store", "limit", limit, "error", err)
		return nil, err
	}

	s.logger.Info("Retrieved facts", "count", len(results))
	return results, nil
}

// GetStore returns the fact store instance used by the server.
func (s *Server) GetStore() factstore.Store {
	return s.components.Store
}

// GetSummarizer returns the summarizer instance used by the server.
func (s *Server) GetSummarizer() summarizer.Summarizer {
	return s.components.Summarizer
}

// GetEmbedder returns the embedder instance used by the server.
func (s *Server) GetEmbedder() vector.Embedder {
	return s.components.Embedder
}

// GetDatabase returns the finance database manager used by the server.
func (s *Server) GetDatabase() *db.Manager {
	return s.components.Database
}

// GetQueryCache returns the resilient query cache used by the server.
func (s *Server) GetQueryCache() *cache.ResilientCache {
	return s.components.QueryCache
}

// CreateComponents creates and initializes the components of the FACT
// memory service without creating a server instance. This is useful for
// callers that need direct access to the store, database, or cache.
func CreateComponents(cfg *Config, logger *slog.Logger) (Components, error) {
	if logger == nil {
		logger = slog.Default()
		logger.Debug("CreateComponents called with nil logger, defaulting to slog.Default()")
	}

	var components Components

	// Initialize SQLite fact store
	logger.Info("Initializing SQLite fact store", "path", cfg.Store.SQLitePath)
	store := factstore.NewSQLiteStore()
	if err := store.Initialize(cfg.Store.SQLitePath); err != nil {
		logger.Error("Failed to initialize SQLite fact store", "path", cfg.Store.SQLitePath, "error", err)
		return components, errortypes.DatabaseError(err, "Failed to initialize SQLite fact store")
	}

	// Initialize summarizer
	logger.Info("Initializing summarizer", "provider", cfg.Summarizer.Provider)
	var sum summarizer.Summarizer
	switch cfg.Summarizer.Provider {
	case "basic", "":
		sum = summarizer.NewBasicSummarizer(summarizer.DefaultMaxSummaryLength)
	default:
		logger.Warn("Unknown summarizer provider, using basic summarizer", "provider", cfg.Summarizer.Provider)
		sum = summarizer.NewBasicSummarizer(summarizer.DefaultMaxSummaryLength)
	}

	if err := sum.Initialize(); err != nil {
		logger.Error("Failed to initialize summarizer", "error", err)
		return components, errortypes.ConfigError(err, "Failed to initialize summarizer")
	}

	// Initialize embedder
	logger.Info("Initializing embedder", "provider", cfg.Embedder.Provider, "dimensions", cfg.Embedder.Dimensions)
	dimensions := cfg.Embedder.Dimensions
	if dimensions <= 0 {
		dimensions = vector.DefaultEmbeddingDimensions
	}

	var emb vector.Embedder
	switch cfg.Embedder.Provider {
	case "mock", "":
		emb = vector.NewMockEmbedder(dimensions)
	default:
		logger.Warn("Unknown embedder provider, using mock embedder", "provider", cfg.Embedder.Provider)
		emb = vector.NewMockEmbedder(dimensions)
	}

	if err := emb.Initialize(); err != nil {
		logger.Error("Failed to initialize embedder", "error", err)
		return components, errortypes.ConfigError(err, "Failed to initialize embedder")
	}

	// Initialize finance database
	logger.Info("Initializing finance database", "path", cfg.Database.Path)
	database := db.NewManager(cfg.Database.Path)
	if err := database.Initialize(); err != nil {
		logger.Error("Failed to initialize finance database", "path", cfg.Database.Path, "error", err)
		return components, errortypes.DatabaseError(err, "Failed to initialize finance database")
	}

	// Initialize query cache with circuit breaker
	logger.Info("Initializing query cache",
		"prefix", cfg.Cache.Prefix,
		"min_tokens", cfg.Cache.MinTokens,
		"max_size", cfg.Cache.MaxSize)
	collector := telemetry.NewMetricsCollector()
	manager, err := cache.NewManager(cache.Config{
		Prefix:    cfg.Cache.Prefix,
		MinTokens: cfg.Cache.MinTokens,
		MaxSize:   cfg.Cache.MaxSize,
		TTL:       cfg.CacheTTL(),
	}, collector)
	if err != nil {
		logger.Error("Failed to initialize query cache", "error", err)
		return components, errortypes.ConfigError(err, "Failed to initialize query cache")
	}
	breaker := cache.NewCircuitBreaker(cache.BreakerConfig{
		FailureThreshold: cfg.Cache.Breaker.FailureThreshold,
		Timeout:          cfg.BreakerTimeout(),
		SuccessThreshold: cfg.Cache.Breaker.SuccessThreshold,
	}, collector)

	components = Components{
		Store:      store,
		Summarizer: sum,
		Embedder:   emb,
		Database:   database,
		QueryCache: cache.NewResilientCache(manager, breaker),
	}

	logger.Info("Components successfully initialized")
	return components, nil
}

// GenerateHash creates a hash from the summary and a timestamp.
// This is a convenience wrapper around the internal util.GenerateHash function.
func GenerateHash(summary string, timestamp int64) string {
	return util.GenerateHash(summary, timestamp)
}
