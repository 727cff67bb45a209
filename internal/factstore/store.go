// Package factstore provides storage interfaces and implementations for
// the persistent fact memory used by the FACT memory service.
package factstore

import (
	"time"
)

// Store defines the interface for storing and retrieving facts.
type Store interface {
	// Initialize initializes the store with configuration options.
	Initialize(dbPath string) error

	// Close closes the store and releases any resources.
	Close() error

	// Store stores a summarized fact and its embedding.
	Store(id string, summaryText string, embedding []byte, timestamp time.Time) error

	// Search searches for facts similar to the given embedding.
	Search(queryEmbedding []float32, limit int) ([]string, error)

	// Delete removes a fact by ID.
	Delete(id string) error

	// Replace overwrites an existing fact. It fails if the ID is unknown.
	Replace(id string, summaryText string, embedding []byte, timestamp time.Time) error

	// Clear removes every fact and reports how many were deleted.
	Clear() (int, error)
}
