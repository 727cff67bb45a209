package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/facttools/factmemory/internal/config"
	"github.com/facttools/factmemory/internal/db"
	"github.com/facttools/factmemory/internal/errortypes"
	"github.com/facttools/factmemory/internal/factstore"
	"github.com/facttools/factmemory/internal/logger"
	"github.com/facttools/factmemory/internal/server"

	"github.com/facttools/factmemory"
)

func main() {
	// Initialize logging first thing
	appLogger := setupLogging()

	appLogger.Info("FACT Memory MCP Server - Starting...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		errortypes.LogError(nil, err)
		appLogger.Fatal("Failed to load configuration")
	}

	// Configure logging based on config
	if cfg.Logging.Level != "" {
		appLogger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
		appLogger.Info("Log level set to %s", cfg.Logging.Level)
	}

	if cfg.Logging.Format == "json" {
		appLogger.SetFormat(logger.JSON)
		appLogger.Info("Log format set to JSON")
	}

	// Initialize all service components: fact store, summarizer, embedder,
	// finance database, and query cache.
	components, err := factmemory.CreateComponents(cfg, nil)
	if err != nil {
		errortypes.LogError(nil, err)
		appLogger.Fatal("Failed to initialize service components")
	}
	defer components.Store.Close()
	defer components.Database.Close()
	appLogger.WithContext("components").Info("Service components initialized")

	// Initialize the MCP server
	srv := server.NewFactToolServer(components.Store, components.Summarizer,
		components.Embedder, components.Database, components.QueryCache)
	srvLogger := appLogger.WithContext("server")

	err = srv.Initialize()
	if err != nil {
		err = errortypes.ConfigError(err, "Failed to initialize MCP server")
		errortypes.LogError(nil, err)
		appLogger.Fatal("Failed to initialize MCP server")
	}
	srvLogger.Info("MCP server initialized")

	// Handle graceful shutdown
	setupSignalHandler(components.Store, components.Database, appLogger)

	// Start the MCP server (this will block until server is terminated)
	srvLogger.Info("Starting MCP server...")
	if err := srv.Start(); err != nil {
		err = errortypes.APIError(err, "MCP server failed")
		errortypes.LogError(nil, err)
		appLogger.Fatal("Failed to start MCP server")
	}
}

// setupLogging configures and returns the application logger
func setupLogging() *logger.Logger {
	// Create default configuration
	cfg := logger.DefaultConfig()

	// Try to get log level from environment variable
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		cfg.Level = logger.ParseLevel(levelStr)
	}

	// Create and return logger
	appLogger := logger.New(cfg)
	logger.SetDefaultLogger(appLogger)

	return appLogger
}

// setupSignalHandler sets up a signal handler for graceful shutdown.
func setupSignalHandler(store factstore.Store, database *db.Manager, log *logger.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Received shutdown signal, terminating gracefully...")

		// Close the stores to ensure all data is saved
		if err := store.Close(); err != nil {
			errortypes.LogError(nil, errortypes.DatabaseError(err, "Error closing fact store during shutdown"))
		} else {
			log.Info("Fact store closed successfully")
		}

		if err := database.Close(); err != nil {
			errortypes.LogError(nil, errortypes.DatabaseError(err, "Error closing finance database during shutdown"))
		} else {
			log.Info("Finance database closed successfully")
		}

		log.Info("Shutdown complete")
		os.Exit(0)
	}()
}
