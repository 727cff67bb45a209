// Package tools defines the interfaces and data structures
// for the FACT memory service.
package tools

const (
	// ToolSaveFact is the name of the save_fact MCP tool
	ToolSaveFact = "save_fact"

	// ToolRetrieveFacts is the name of the retrieve_facts MCP tool
	ToolRetrieveFacts = "retrieve_facts"

	// ToolDeleteFact is the name of the delete_fact MCP tool
	ToolDeleteFact = "delete_fact"

	// ToolClearFacts is the name of the clear_facts MCP tool
	ToolClearFacts = "clear_facts"

	// ToolReplaceFact is the name of the replace_fact MCP tool
	ToolReplaceFact = "replace_fact"

	// ToolSQLQueryReadonly is the name of the sql_query_readonly MCP tool
	ToolSQLQueryReadonly = "sql_query_readonly"

	// ToolSQLGetSchema is the name of the sql_get_schema MCP tool
	ToolSQLGetSchema = "sql_get_schema"

	// ToolSQLGetSampleQueries is the name of the sql_get_sample_queries MCP tool
	ToolSQLGetSampleQueries = "sql_get_sample_queries"

	// ToolCacheStats is the name of the cache_stats MCP tool
	ToolCacheStats = "cache_stats"

	// DefaultRetrieveLimit is the default number of results to return
	// when no limit is specified in a retrieve_facts request
	DefaultRetrieveLimit = 5
)

// SaveFactRequest defines the input schema for save_fact tool
type SaveFactRequest struct {
	// FactText is the text to save in the fact store
	FactText string `json:"fact_text"`
}

// SaveFactResponse defines the output schema for save_fact tool
type SaveFactResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// ID is the unique identifier assigned to the saved fact
	ID string `json:"id"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// RetrieveFactsRequest defines the input schema for retrieve_facts tool
type RetrieveFactsRequest struct {
	// Query is the text to search for in the fact store
	Query string `json:"query"`

	// Limit is the maximum number of results to return
	// If not specified, DefaultRetrieveLimit will be used
	Limit int `json:"limit,omitempty"`
}

// RetrieveFactsResponse defines the output schema for retrieve_facts tool
type RetrieveFactsResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// Results contains the matching fact summaries
	Results []string `json:"results"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// DeleteFactRequest defines the input schema for delete_fact tool
type DeleteFactRequest struct {
	// ID is the unique identifier of the fact to delete
	ID string `json:"id"`
}

// DeleteFactResponse defines the output schema for delete_fact tool
type DeleteFactResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// ClearFactsRequest defines the input schema for clear_facts tool
type ClearFactsRequest struct {
	// Confirmation is a required field to confirm the operation
	// Must be set to "confirm" to prevent accidental clearing
	Confirmation string `json:"confirmation"`
}

// ClearFactsResponse defines the output schema for clear_facts tool
type ClearFactsResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// DeletedCount is the number of facts that were removed
	DeletedCount int `json:"deleted_count"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// ReplaceFactRequest defines the input schema for replace_fact tool
type ReplaceFactRequest struct {
	// ID is the unique identifier of the fact to replace
	ID string `json:"id"`

	// FactText is the new text to replace the existing fact
	FactText string `json:"fact_text"`
}

// ReplaceFactResponse defines the output schema for replace_fact tool
type ReplaceFactResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// SQLQueryRequest defines the input schema for sql_query_readonly tool
type SQLQueryRequest struct {
	// Statement is the SQL SELECT statement to execute. It must start with
	// SELECT and cannot contain data modification operations. Use table
	// names 'companies' and 'financial_records'.
	Statement string `json:"statement"`
}

// SQLQueryResponse defines the output schema for sql_query_readonly tool
type SQLQueryResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// QueryID uniquely identifies this execution for log correlation
	QueryID string `json:"query_id"`

	// Rows contains the result rows keyed by column name
	Rows []map[string]interface{} `json:"rows"`

	// RowCount is the number of rows returned
	RowCount int `json:"row_count"`

	// Columns lists the result column names in order
	Columns []string `json:"columns"`

	// ExecutionTimeMs is how long the query took to run
	ExecutionTimeMs float64 `json:"execution_time_ms"`

	// Statement echoes the executed statement, truncated for readability
	Statement string `json:"statement"`

	// Cached reports whether the response was served from the query cache
	Cached bool `json:"cached"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// SQLSchemaRequest defines the input schema for sql_get_schema tool
type SQLSchemaRequest struct{}

// ColumnInfo describes a single column in a table.
type ColumnInfo struct {
	// Name is the column name
	Name string `json:"name"`

	// Type is the declared SQLite type
	Type string `json:"type"`

	// Nullable reports whether the column accepts NULL
	Nullable bool `json:"nullable"`

	// PrimaryKey reports whether the column is part of the primary key
	PrimaryKey bool `json:"primary_key"`
}

// TableInfo describes a table and its columns.
type TableInfo struct {
	// Name is the table name
	Name string `json:"name"`

	// Columns lists the table's columns
	Columns []ColumnInfo `json:"columns"`
}

// SQLSchemaResponse defines the output schema for sql_get_schema tool
type SQLSchemaResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// Tables describes every user table in the database
	Tables []TableInfo `json:"tables"`

	// TotalTables is the number of user tables
	TotalTables int `json:"total_tables"`

	// DatabaseType names the underlying engine
	DatabaseType string `json:"database_type"`

	// Notes holds usage guidance for query construction
	Notes []string `json:"notes,omitempty"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// SQLSampleQueriesRequest defines the input schema for sql_get_sample_queries tool
type SQLSampleQueriesRequest struct{}

// SampleQuery pairs a ready-to-run query with a description.
type SampleQuery struct {
	// Description explains what the query returns
	Description string `json:"description"`

	// Query is the SQL statement
	Query string `json:"query"`
}

// SQLSampleQueriesResponse defines the output schema for sql_get_sample_queries tool
type SQLSampleQueriesResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// SampleQueries lists example queries for exploring the database
	SampleQueries []SampleQuery `json:"sample_queries"`

	// TotalQueries is the number of sample queries
	TotalQueries int `json:"total_queries"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// CacheStatsRequest defines the input schema for cache_stats tool
type CacheStatsRequest struct{}

// CacheStatsResponse defines the output schema for cache_stats tool
type CacheStatsResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// TotalEntries is the number of live cache entries
	TotalEntries int `json:"total_entries"`

	// TotalSizeBytes is the byte size of all cached content
	TotalSizeBytes int `json:"total_size_bytes"`

	// HitRate is the cache hit percentage across all lookups
	HitRate float64 `json:"hit_rate"`

	// CacheHits is the number of cache hits
	CacheHits int `json:"cache_hits"`

	// CacheMisses is the number of cache misses
	CacheMisses int `json:"cache_misses"`

	// TokenEfficiency is cached tokens per kilobyte of storage
	TokenEfficiency float64 `json:"token_efficiency"`

	// BreakerState is the circuit breaker state protecting the cache
	BreakerState string `json:"breaker_state"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// SampleQueries are ready-made queries for exploring the finance database.
var SampleQueries = []SampleQuery{
	{
		Description: "Get all companies in the Technology sector",
		Query:       "SELECT * FROM companies WHERE sector = 'Technology'",
	},
	{
		Description: "Get total revenue by company for 2024",
		Query:       "SELECT c.name, SUM(f.revenue) as total_revenue FROM companies c JOIN financial_records f ON c.id = f.company_id WHERE f.year = 2024 GROUP BY c.id, c.name ORDER BY total_revenue DESC",
	},
	{
		Description: "Get Q1 2025 financial results",
		Query:       "SELECT c.name, f.revenue, f.profit, f.expenses FROM companies c JOIN financial_records f ON c.id = f.company_id WHERE f.quarter = 'Q1' AND f.year = 2025 ORDER BY f.revenue DESC",
	},
	{
		Description: "Get company count by sector",
		Query:       "SELECT sector, COUNT(*) as company_count FROM companies GROUP BY sector ORDER BY company_count DESC",
	},
	{
		Description: "Get TechCorp's quarterly performance over time",
		Query:       "SELECT c.name, f.quarter, f.year, f.revenue, f.profit FROM companies c JOIN financial_records f ON c.id = f.company_id WHERE c.symbol = 'TECH' ORDER BY f.year DESC, f.quarter DESC",
	},
	{
		Description: "Get average metrics for 2024",
		Query:       "SELECT AVG(revenue) as avg_revenue, AVG(profit) as avg_profit, AVG(expenses) as avg_expenses FROM financial_records WHERE year = 2024",
	},
	{
		Description: "Get top companies by market cap with latest revenue",
		Query:       "SELECT c.name, c.market_cap, f.revenue as q1_2025_revenue FROM companies c JOIN financial_records f ON c.id = f.company_id WHERE f.year = 2025 AND f.quarter = 'Q1' ORDER BY c.market_cap DESC",
	},
}
