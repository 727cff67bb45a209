package db

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"crawshaw.io/sqlite"

	"github.com/facttools/factmemory/internal/errortypes"
)

// dangerousKeywords are SQL keywords that must never appear in a
// read-only statement.
var dangerousKeywords = []string{
	"drop", "delete", "update", "insert", "alter", "create",
	"truncate", "replace", "merge", "exec", "execute",
}

var (
	dangerousKeywordRe = regexp.MustCompile(`\b(` + strings.Join(dangerousKeywords, "|") + `)\b`)
	validTableNameRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// DatabaseInfo describes the database file and its tables.
type DatabaseInfo struct {
	DatabasePath  string         `json:"database_path"`
	FileSizeBytes int64          `json:"file_size_bytes"`
	Tables        map[string]int `json:"tables"`
	TotalTables   int            `json:"total_tables"`
}

// Manager provides read-only access to the finance database. All writes
// happen during Initialize; afterwards only validated SELECT statements
// are executed.
type Manager struct {
	dbPath string

	mu   sync.Mutex
	conn *sqlite.Conn
}

// NewManager creates a manager for the database at dbPath.
func NewManager(dbPath string) *Manager {
	return &Manager{dbPath: dbPath}
}

// Initialize opens the database, creates the schema, and seeds sample data
// when the database is empty.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dir := filepath.Dir(m.dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errortypes.DatabaseError(err, "failed to create database directory").
				WithField("path", dir)
		}
	}

	conn, err := sqlite.OpenConn(m.dbPath, sqlite.SQLITE_OPEN_CREATE|sqlite.SQLITE_OPEN_READWRITE)
	if err != nil {
		return errortypes.DatabaseError(err, "failed to open database").
			WithField("path", m.dbPath)
	}
	m.conn = conn

	for _, statement := range schemaStatements {
		if err := m.execLocked(statement); err != nil {
			conn.Close()
			m.conn = nil
			return errortypes.DatabaseError(err, "failed to create schema")
		}
	}

	count, err := m.countLocked("companies")
	if err != nil {
		conn.Close()
		m.conn = nil
		return errortypes.DatabaseError(err, "failed to check existing data")
	}

	if count == 0 {
		if err := m.seedLocked(); err != nil {
			conn.Close()
			m.conn = nil
			return errortypes.DatabaseError(err, "failed to seed sample data")
		}
		slog.Info("Database initialized with sample data", "path", m.dbPath)
	} else {
		slog.Info("Database already contains data, skipping sample data insertion",
			"path", m.dbPath, "companies", count)
	}

	tables, err := m.tableNamesLocked()
	if err != nil {
		conn.Close()
		m.conn = nil
		return errortypes.DatabaseError(err, "failed to list tables")
	}
	if !ValidateSchemaIntegrity(tables) {
		conn.Close()
		m.conn = nil
		return errortypes.DatabaseError(errors.New("required tables missing"),
			"database schema validation failed")
	}

	return nil
}

// Close releases the database connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	return err
}

// ValidateSQLQuery rejects anything other than a plain SELECT statement.
func (m *Manager) ValidateSQLQuery(statement string) error {
	normalized := strings.ToLower(strings.TrimSpace(statement))

	if !strings.HasPrefix(normalized, "select") && !strings.HasPrefix(normalized, "pragma table_info") {
		return errortypes.SecurityError(errors.New("statement is not a SELECT"),
			"only SELECT statements are allowed")
	}

	if match := dangerousKeywordRe.FindString(normalized); match != "" {
		return errortypes.SecurityError(fmt.Errorf("dangerous SQL keyword detected: %s", match),
			"statement contains a write operation").WithField("keyword", match)
	}

	return nil
}

// ExecuteQuery validates and runs a read-only statement, returning rows as
// column-name keyed maps.
func (m *Manager) ExecuteQuery(statement string) (*QueryResult, error) {
	if err := m.ValidateSQLQuery(statement); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return nil, errortypes.DatabaseError(errors.New("database not initialized"),
			"query executed before Initialize")
	}

	start := time.Now()

	stmt, err := m.conn.Prepare(statement)
	if err != nil {
		return nil, errortypes.ValidationError(err, "SQL syntax error").
			WithField("statement", truncateStatement(statement))
	}
	defer stmt.Reset()

	var columns []string
	var rows []map[string]interface{}

	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, errortypes.DatabaseError(err, "query execution failed").
				WithField("statement", truncateStatement(statement))
		}
		if !hasRow {
			break
		}

		if columns == nil {
			columns = make([]string, stmt.ColumnCount())
			for i := range columns {
				columns[i] = stmt.ColumnName(i)
			}
		}

		row := make(map[string]interface{}, len(columns))
		for i, name := range columns {
			row[name] = columnValue(stmt, i)
		}
		rows = append(rows, row)
	}

	if columns == nil {
		columns = []string{}
	}
	if rows == nil {
		rows = []map[string]interface{}{}
	}

	result := &QueryResult{
		Rows:            rows,
		RowCount:        len(rows),
		Columns:         columns,
		ExecutionTimeMs: float64(time.Since(start).Microseconds()) / 1000,
	}

	slog.Debug("Query executed",
		"statement", truncateStatement(statement),
		"row_count", result.RowCount,
		"execution_time_ms", result.ExecutionTimeMs)

	return result, nil
}

// GetDatabaseInfo reports file size and per-table row counts.
func (m *Manager) GetDatabaseInfo() (*DatabaseInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return nil, errortypes.DatabaseError(errors.New("database not initialized"),
			"info requested before Initialize")
	}

	tables, err := m.tableNamesLocked()
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to list tables")
	}

	info := &DatabaseInfo{
		DatabasePath: m.dbPath,
		Tables:       make(map[string]int, len(tables)),
		TotalTables:  len(tables),
	}

	for _, table := range tables {
		count, err := m.countLocked(table)
		if err != nil {
			return nil, errortypes.DatabaseError(err, "failed to count rows").
				WithField("table", table)
		}
		info.Tables[table] = count
	}

	if fi, err := os.Stat(m.dbPath); err == nil {
		info.FileSizeBytes = fi.Size()
	}

	return info, nil
}

// TableNames returns the user tables in the database.
func (m *Manager) TableNames() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return nil, errortypes.DatabaseError(errors.New("database not initialized"),
			"tables requested before Initialize")
	}
	return m.tableNamesLocked()
}

// IsValidTableName reports whether a name is safe to interpolate into a
// PRAGMA statement.
func IsValidTableName(name string) bool {
	return validTableNameRe.MatchString(name)
}

func (m *Manager) execLocked(statement string) error {
	stmt, err := m.conn.Prepare(statement)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Reset()

	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

func (m *Manager) countLocked(table string) (int, error) {
	if !IsValidTableName(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}

	stmt, err := m.conn.Prepare(`SELECT COUNT(*) FROM ` + table + `;`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare count statement: %w", err)
	}
	defer stmt.Reset()

	hasRow, err := stmt.Step()
	if err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	if !hasRow {
		return 0, nil
	}
	return int(stmt.ColumnInt64(0)), nil
}

func (m *Manager) tableNamesLocked() ([]string, error) {
	stmt, err := m.conn.Prepare(`
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name;`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare table listing: %w", err)
	}
	defer stmt.Reset()

	var tables []string
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, fmt.Errorf("failed to list tables: %w", err)
		}
		if !hasRow {
			break
		}
		tables = append(tables, stmt.ColumnText(0))
	}
	return tables, nil
}

func (m *Manager) seedLocked() error {
	insertCompany := `
	INSERT INTO companies (name, symbol, sector, founded_year, employees, market_cap)
	VALUES (?, ?, ?, ?, ?, ?);`

	for _, company := range SampleCompanies {
		stmt, err := m.conn.Prepare(insertCompany)
		if err != nil {
			return fmt.Errorf("failed to prepare company insert: %w", err)
		}

		stmt.BindText(1, company.Name)
		stmt.BindText(2, company.Symbol)
		stmt.BindText(3, company.Sector)
		stmt.BindInt64(4, int64(company.FoundedYear))
		stmt.BindInt64(5, int64(company.Employees))
		stmt.BindFloat(6, company.MarketCap)

		if _, err := stmt.Step(); err != nil {
			stmt.Reset()
			return fmt.Errorf("failed to insert company %s: %w", company.Symbol, err)
		}
		stmt.Reset()
	}

	insertRecord := `
	INSERT INTO financial_records (company_id, quarter, year, revenue, profit, expenses)
	VALUES (?, ?, ?, ?, ?, ?);`

	for _, record := range SampleFinancialRecords() {
		stmt, err := m.conn.Prepare(insertRecord)
		if err != nil {
			return fmt.Errorf("failed to prepare record insert: %w", err)
		}

		stmt.BindInt64(1, int64(record.CompanyID))
		stmt.BindText(2, record.Quarter)
		stmt.BindInt64(3, int64(record.Year))
		stmt.BindFloat(4, record.Revenue)
		stmt.BindFloat(5, record.Profit)
		stmt.BindFloat(6, record.Expenses)

		if _, err := stmt.Step(); err != nil {
			stmt.Reset()
			return fmt.Errorf("failed to insert financial record: %w", err)
		}
		stmt.Reset()
	}

	return nil
}

// columnValue converts a result column to a Go value by declared type.
func columnValue(stmt *sqlite.Stmt, col int) interface{} {
	switch stmt.ColumnType(col) {
	case sqlite.SQLITE_INTEGER:
		return stmt.ColumnInt64(col)
	case sqlite.SQLITE_FLOAT:
		return stmt.ColumnFloat(col)
	case sqlite.SQLITE_BLOB:
		buf := make([]byte, stmt.ColumnLen(col))
		stmt.ColumnBytes(col, buf)
		return buf
	case sqlite.SQLITE_NULL:
		return nil
	default:
		return stmt.ColumnText(col)
	}
}

// truncateStatement shortens a statement for log and error output.
func truncateStatement(statement string) string {
	if len(statement) > 100 {
		return statement[:100] + "..."
	}
	return statement
}
