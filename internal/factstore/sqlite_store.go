package factstore

import (
	"fmt"
	"sort"
	"time"

	"crawshaw.io/sqlite"
	"github.com/facttools/factmemory/internal/vector"
)

// SQLiteStore is an implementation of Store that uses SQLite.
type SQLiteStore struct {
	conn   *sqlite.Conn
	dbPath string
}

// NewSQLiteStore creates a new SQLiteStore instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Initialize initializes the store with the given database path.
func (s *SQLiteStore) Initialize(dbPath string) error {
	s.dbPath = dbPath

	conn, err := sqlite.OpenConn(dbPath, sqlite.SQLITE_OPEN_CREATE|sqlite.SQLITE_OPEN_READWRITE)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	s.conn = conn

	err = s.createTable()
	if err != nil {
		s.conn.Close()
		return fmt.Errorf("failed to create table: %w", err)
	}

	return nil
}

// createTable creates the fact_memory table if it doesn't exist.
func (s *SQLiteStore) createTable() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS fact_memory (
		id TEXT PRIMARY KEY,
		summary_text TEXT NOT NULL,
		embedding BLOB NOT NULL,
		timestamp INTEGER NOT NULL
	);`

	stmt, err := s.conn.Prepare(createTableSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare create table statement: %w", err)
	}
	defer stmt.Reset()

	_, err = stmt.Step()
	if err != nil {
		return fmt.Errorf("failed to execute create table statement: %w", err)
	}

	return nil
}

// Close closes the store and releases any resources.
func (s *SQLiteStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Store stores a summarized fact in the database.
func (s *SQLiteStore) Store(id string, summaryText string, embedding []byte, timestamp time.Time) error {
	insertSQL := `
	INSERT OR REPLACE INTO fact_memory (id, summary_text, embedding, timestamp)
	VALUES (?, ?, ?, ?);`

	stmt, err := s.conn.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Reset()

	// Bind parameters - indices in sqlite are 1-based
	stmt.BindText(1, id)
	stmt.BindText(2, summaryText)
	stmt.BindBytes(3, embedding)
	stmt.BindInt64(4, timestamp.Unix())

	_, err = stmt.Step()
	if err != nil {
		return fmt.Errorf("failed to insert fact: %w", err)
	}

	return nil
}

// Search searches for facts similar to the given embedding. Similarity is
// computed in Go over all stored embeddings; the table is expected to stay
// small enough for a full scan.
func (s *SQLiteStore) Search(queryEmbedding []float32, limit int) ([]string, error) {
	selectSQL := `
	SELECT id, summary_text, embedding FROM fact_memory
	ORDER BY timestamp DESC;`

	stmt, err := s.conn.Prepare(selectSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Reset()

	type scored struct {
		summaryText string
		similarity  float64
	}
	var results []scored

	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, fmt.Errorf("failed to execute select statement: %w", err)
		}
		if !hasRow {
			break
		}

		// Column indices are 0-based
		id := stmt.ColumnText(0)
		summaryText := stmt.ColumnText(1)

		embeddingLen := stmt.ColumnLen(2)
		embeddingBytes := make([]byte, embeddingLen)
		stmt.ColumnBytes(2, embeddingBytes)

		storedEmbedding, err := vector.BytesToFloat32Slice(embeddingBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to decode embedding for fact %s: %w", id, err)
		}

		similarity, err := vector.CosineSimilarity(queryEmbedding, storedEmbedding)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate similarity for fact %s: %w", id, err)
		}

		results = append(results, scored{
			summaryText: summaryText,
			similarity:  similarity,
		})
	}

	// Sort results by similarity (highest first)
	sort.Slice(results, func(i, j int) bool {
		return results[i].similarity > results[j].similarity
	})

	if limit > len(results) {
		limit = len(results)
	}

	topSummaries := make([]string, limit)
	for i := 0; i < limit; i++ {
		topSummaries[i] = results[i].summaryText
	}

	return topSummaries, nil
}

// Delete removes a fact by ID. Deleting an unknown ID is not an error.
func (s *SQLiteStore) Delete(id string) error {
	stmt, err := s.conn.Prepare(`DELETE FROM fact_memory WHERE id = ?;`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}
	defer stmt.Reset()

	stmt.BindText(1, id)

	_, err = stmt.Step()
	if err != nil {
		return fmt.Errorf("failed to delete fact %s: %w", id, err)
	}

	return nil
}

// Replace overwrites an existing fact. It fails if the ID is unknown so
// that callers cannot silently create facts through the replace path.
func (s *SQLiteStore) Replace(id string, summaryText string, embedding []byte, timestamp time.Time) error {
	updateSQL := `
	UPDATE fact_memory SET summary_text = ?, embedding = ?, timestamp = ?
	WHERE id = ?;`

	stmt, err := s.conn.Prepare(updateSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare update statement: %w", err)
	}
	defer stmt.Reset()

	stmt.BindText(1, summaryText)
	stmt.BindBytes(2, embedding)
	stmt.BindInt64(3, timestamp.Unix())
	stmt.BindText(4, id)

	_, err = stmt.Step()
	if err != nil {
		return fmt.Errorf("failed to replace fact %s: %w", id, err)
	}

	if s.conn.Changes() == 0 {
		return fmt.Errorf("no fact with id %s", id)
	}

	return nil
}

// Clear removes every fact and reports how many were deleted.
func (s *SQLiteStore) Clear() (int, error) {
	countStmt, err := s.conn.Prepare(`SELECT COUNT(*) FROM fact_memory;`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare count statement: %w", err)
	}

	hasRow, err := countStmt.Step()
	if err != nil {
		countStmt.Reset()
		return 0, fmt.Errorf("failed to count facts: %w", err)
	}
	count := 0
	if hasRow {
		count = int(countStmt.ColumnInt64(0))
	}
	countStmt.Reset()

	stmt, err := s.conn.Prepare(`DELETE FROM fact_memory;`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare clear statement: %w", err)
	}
	defer stmt.Reset()

	_, err = stmt.Step()
	if err != nil {
		return 0, fmt.Errorf("failed to clear facts: %w", err)
	}

	return count, nil
}
