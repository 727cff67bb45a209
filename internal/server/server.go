package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/localrivet/gomcp/server"

	"github.com/facttools/factmemory/internal/cache"
	"github.com/facttools/factmemory/internal/db"
	"github.com/facttools/factmemory/internal/errortypes"
	"github.com/facttools/factmemory/internal/factstore"
	"github.com/facttools/factmemory/internal/summarizer"
	"github.com/facttools/factmemory/internal/tools"
	"github.com/facttools/factmemory/internal/util"
	"github.com/facttools/factmemory/internal/vector"
)

// Common server error types
var (
	ErrServerNotInitialized = errors.New("server not initialized")
	ErrMissingDependencies  = errors.New("one or more required dependencies are nil")
)

// schemaNotes is guidance returned with sql_get_schema so clients build
// queries against the right tables.
var schemaNotes = []string{
	"The financial data table is named 'financial_records' (NOT 'financials')",
	"Always use 'companies' and 'financial_records' as table names",
	"JOIN syntax: companies.id = financial_records.company_id",
}

// MCPFactToolServer implements the FactToolServer interface for handling
// MCP tool calls for fact storage, retrieval, and read-only SQL access.
type MCPFactToolServer struct {
	store      factstore.Store
	summarizer summarizer.Summarizer
	embedder   vector.Embedder
	database   *db.Manager
	queryCache *cache.ResilientCache
	mcpServer  *server.Server
}

// NewFactToolServer creates a new MCPFactToolServer instance.
func NewFactToolServer(store factstore.Store, summarizer summarizer.Summarizer, embedder vector.Embedder, database *db.Manager, queryCache *cache.ResilientCache) *MCPFactToolServer {
	return &MCPFactToolServer{
		store:      store,
		summarizer: summarizer,
		embedder:   embedder,
		database:   database,
		queryCache: queryCache,
	}
}

// Initialize initializes the server with dependencies and configurations.
func (s *MCPFactToolServer) Initialize() error {
	slog.Info("Initializing MCP Fact Tool Server")

	if s.store == nil || s.summarizer == nil || s.embedder == nil || s.database == nil || s.queryCache == nil {
		return errortypes.ConfigError(ErrMissingDependencies, "server initialization failed")
	}

	// Create the MCP server
	srv := server.NewServer("factmemory")

	// Register fact tools
	srv = srv.Tool(tools.ToolSaveFact, "Save a fact to the persistent memory store",
		s.handleSaveFact)
	srv = srv.Tool(tools.ToolRetrieveFacts, "Retrieve relevant facts based on a query",
		s.handleRetrieveFacts)
	srv = srv.Tool(tools.ToolDeleteFact, "Delete a specific fact by ID",
		s.handleDeleteFact)
	srv = srv.Tool(tools.ToolClearFacts, "Clear all facts from the store",
		s.handleClearFacts)
	srv = srv.Tool(tools.ToolReplaceFact, "Replace an existing fact with new content",
		s.handleReplaceFact)

	// Register SQL tools
	srv = srv.Tool(tools.ToolSQLQueryReadonly, "Execute SELECT queries on the finance database. Only read-only SELECT statements are allowed. Use table names 'companies' and 'financial_records'.",
		s.handleSQLQueryReadonly)
	srv = srv.Tool(tools.ToolSQLGetSchema, "Get database schema information including table structures and column details",
		s.handleSQLGetSchema)
	srv = srv.Tool(tools.ToolSQLGetSampleQueries, "Get sample SQL queries for exploring the finance database",
		s.handleSQLGetSampleQueries)

	// Register cache tools
	srv = srv.Tool(tools.ToolCacheStats, "Get query cache statistics and circuit breaker state",
		s.handleCacheStats)

	s.mcpServer = srv
	slog.Info("MCP Fact Tool Server initialized successfully", "tool_count", 9)
	return nil
}

// Start starts the MCP server on the specified transport.
func (s *MCPFactToolServer) Start() error {
	if s.mcpServer == nil {
		return errortypes.ConfigError(ErrServerNotInitialized, "cannot start server")
	}

	slog.Info("Starting MCP Fact Tool Server")

	// Start the server using stdio transport
	stdioServer := s.mcpServer.AsStdio()
	return stdioServer.Run()
}

// Stop gracefully shuts down the MCP server.
func (s *MCPFactToolServer) Stop() error {
	slog.Info("Stopping MCP Fact Tool Server")
	// The server will exit when stdin is closed
	return nil
}

// handleSaveFact handles the save_fact MCP tool call.
func (s *MCPFactToolServer) handleSaveFact(ctx *server.Context, req tools.SaveFactRequest) (tools.SaveFactResponse, error) {
	slog.Info("Processing save_fact request", "text_length", len(req.FactText))

	response := tools.SaveFactResponse{
		Status: "success",
	}

	summary, embeddingBytes, err := s.prepareFact(req.FactText)
	if err != nil {
		errortypes.LogError(nil, err)
		response.Status = "error"
		response.Error = err.Error()
		return response, nil
	}

	// Generate ID (hash of summary + timestamp)
	timestamp := time.Now()
	id := util.GenerateHash(summary, timestamp.UnixNano())

	slog.Debug("Storing fact for save_fact", "id", id)
	err = s.store.Store(id, summary, embeddingBytes, timestamp)
	if err != nil {
		err = errortypes.DatabaseError(err, "failed to store fact").
			WithField("fact_id", id)
		errortypes.LogError(nil, err)

		response.Status = "error"
		response.Error = err.Error()
		return response, nil
	}

	response.ID = id
	slog.Info("Successfully saved fact", "id", id)

	return response, nil
}

// handleRetrieveFacts handles the retrieve_facts MCP tool call.
func (s *MCPFactToolServer) handleRetrieveFacts(ctx *server.Context, req tools.RetrieveFactsRequest) (tools.RetrieveFactsResponse, error) {
	slog.Info("Processing retrieve_facts request", "query", req.Query, "limit", req.Limit)

	response := tools.RetrieveFactsResponse{
		Status: "success",
	}

	limit := req.Limit
	if limit <= 0 {
		limit = tools.DefaultRetrieveLimit
		slog.Debug("Using default limit for retrieve_facts", "limit", limit)
	}

	queryEmbedding, err := s.embedder.CreateEmbedding(req.Query)
	if err != nil {
		err = errortypes.APIError(err, "failed to create embedding for query").
			WithField("query", req.Query)
		errortypes.LogError(nil, err)

		response.Status = "error"
		response.Error = err.Error()
		return response, nil
	}

	results, err := s.store.Search(queryEmbedding, limit)
	if err != nil {
		err = errortypes.DatabaseError(err, "failed to search fact store").
			WithField("limit", limit)
		errortypes.LogError(nil, err)

		response.Status = "error"
		response.Error = err.Error()
		return response, nil
	}

	response.Results = results
	slog.Info("Successfully retrieved facts", "count", len(results))

	return response, nil
}

// handleDeleteFact handles the delete_fact MCP tool call.
func (s *MCPFactToolServer) handleDeleteFact(ctx *server.Context, req tools.DeleteFactRequest) (tools.DeleteFactResponse, error) {
	slog.Info("Processing delete_fact request", "id", req.ID)

	response := tools.DeleteFactResponse{
		Status: "success",
	}

	err := s.store.Delete(req.ID)
	if err != nil {
		err = errortypes.DatabaseError(err, "failed to delete fact").
			WithField("fact_id", req.ID)
		errortypes.LogError(nil, err)

		response.Status = "error"
		response.Error = err.Error()
		return response, nil
	}

	slog.Info("Successfully deleted fact", "id", req.ID)

	return response, nil
}

// handleClearFacts handles the clear_facts MCP tool call.
func (s *MCPFactToolServer) handleClearFacts(ctx *server.Context, req tools.ClearFactsRequest) (tools.ClearFactsResponse, error) {
	slog.Info("Processing clear_facts request")

	response := tools.ClearFactsResponse{
		Status: "success",
	}

	if req.Confirmation != "confirm" {
		response.Status = "error"
		response.Error = "Confirmation required. Set confirmation to 'confirm' to proceed with clearing all facts"
		slog.Warn("Clear facts operation rejected: missing confirmation")
		return response, nil
	}

	count, err := s.store.Clear()
	if err != nil {
		err = errortypes.DatabaseError(err, "failed to clear fact store")
		errortypes.LogError(nil, err)

		response.Status = "error"
		response.Error = err.Error()
		return response, nil
	}

	slog.Info("Successfully cleared facts", "count", count)
	response.DeletedCount = count

	return response, nil
}

// handleReplaceFact handles the replace_fact MCP tool call.
func (s *MCPFactToolServer) handleReplaceFact(ctx *server.Context, req tools.ReplaceFactRequest) (tools.ReplaceFactResponse, error) {
	slog.Info("Processing replace_fact request", "id", req.ID, "new_text_length", len(req.FactText))

	response := tools.ReplaceFactResponse{
		Status: "success",
	}

	if req.ID == "" {
		err := errortypes.ValidationError(errors.New("id cannot be empty for replace_fact"), "invalid replace_fact request")
		errortypes.LogError(nil, err)
		response.Status = "error"
		response.Error = err.Error()
		return response, nil
	}

	summary, embeddingBytes, err := s.prepareFact(req.FactText)
	if err != nil {
		errortypes.LogError(nil, err)
		response.Status = "error"
		response.Error = err.Error()
		return response, nil
	}

	slog.Debug("Replacing fact", "id", req.ID)
	timestamp := time.Now()
	err = s.store.Replace(req.ID, summary, embeddingBytes, timestamp)
	if err != nil {
		err = errortypes.DatabaseError(err, "failed to replace fact").
			WithField("fact_id", req.ID)
		errortypes.LogError(nil, err)

		response.Status = "error"
		response.Error = err.Error()
		return response, nil
	}

	slog.Info("Successfully replaced fact", "id", req.ID)

	return response, nil
}

// handleSQLQueryReadonly handles the sql_query_readonly MCP tool call. A
// cached response is served when available; otherwise the statement runs
// against the database and the result is cached when it is large enough.
func (s *MCPFactToolServer) handleSQLQueryReadonly(ctx *server.Context, req tools.SQLQueryRequest) (tools.SQLQueryResponse, error) {
	queryID := fmt.Sprintf("query_%d", time.Now().UnixMilli())
	slog.Info("Processing sql_query_readonly request", "query_id", queryID)

	response := tools.SQLQueryResponse{
		Status:    "success",
		QueryID:   queryID,
		Statement: truncateStatement(req.Statement),
	}

	queryHash := s.queryCache.GenerateHash(req.Statement)

	if entry, err := s.queryCache.Get(queryHash); err == nil && entry != nil {
		var cached db.QueryResult
		if err := json.Unmarshal([]byte(entry.Content), &cached); err == nil {
			response.Rows = cached.Rows
			response.RowCount = cached.RowCount
			response.Columns = cached.Columns
			response.ExecutionTimeMs = cached.ExecutionTimeMs
			response.Cached = true
			slog.Info("Served query from cache", "query_id", queryID)
			return response, nil
		}
		slog.Warn("Discarding undecodable cache entry", "query_id", queryID)
	}

	result, err := s.database.ExecuteQuery(req.Statement)
	if err != nil {
		slog.Error("SQL query failed",
			"query_id", queryID,
			"code", ErrorCode(err),
			"error", err)

		response.Status = "error"
		response.Error = err.Error()
		return response, nil
	}

	response.Rows = result.Rows
	response.RowCount = result.RowCount
	response.Columns = result.Columns
	response.ExecutionTimeMs = result.ExecutionTimeMs

	s.cacheQueryResult(queryHash, queryID, result)

	slog.Info("SQL query executed successfully",
		"query_id", queryID,
		"row_count", result.RowCount,
		"execution_time_ms", result.ExecutionTimeMs)

	return response, nil
}

// cacheQueryResult stores a query result in the cache. Policy rejections
// (result too small, cache full) and open-breaker errors are expected and
// only logged at debug level.
func (s *MCPFactToolServer) cacheQueryResult(queryHash, queryID string, result *db.QueryResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		slog.Warn("Failed to encode query result for caching", "query_id", queryID, "error", err)
		return
	}

	if _, err := s.queryCache.Store(queryHash, string(payload)); err != nil {
		slog.Debug("Query result not cached", "query_id", queryID, "reason", err)
	}
}

// handleSQLGetSchema handles the sql_get_schema MCP tool call.
func (s *MCPFactToolServer) handleSQLGetSchema(ctx *server.Context, req tools.SQLSchemaRequest) (tools.SQLSchemaResponse, error) {
	slog.Info("Processing sql_get_schema request")

	response := tools.SQLSchemaResponse{
		Status:       "success",
		DatabaseType: "SQLite",
		Notes:        schemaNotes,
	}

	tableNames, err := s.database.TableNames()
	if err != nil {
		errortypes.LogError(nil, err)
		response.Status = "error"
		response.Error = err.Error()
		return response, nil
	}

	for _, tableName := range tableNames {
		if !db.IsValidTableName(tableName) {
			slog.Warn("Skipping invalid table name in schema listing", "table", tableName)
			continue
		}

		// Table name is validated above; PRAGMA cannot be parameterized.
		columnsResult, err := s.database.ExecuteQuery(fmt.Sprintf(`PRAGMA table_info(%q)`, tableName))
		if err != nil {
			slog.Error("Failed to get column info for table", "table", tableName, "error", err)
			continue
		}

		tableInfo := tools.TableInfo{Name: tableName}
		for _, row := range columnsResult.Rows {
			tableInfo.Columns = append(tableInfo.Columns, tools.ColumnInfo{
				Name:       asString(row["name"]),
				Type:       asString(row["type"]),
				Nullable:   asInt64(row["notnull"]) == 0,
				PrimaryKey: asInt64(row["pk"]) != 0,
			})
		}
		response.Tables = append(response.Tables, tableInfo)
	}

	response.TotalTables = len(response.Tables)
	slog.Info("Successfully returned schema", "table_count", response.TotalTables)

	return response, nil
}

// handleSQLGetSampleQueries handles the sql_get_sample_queries MCP tool call.
func (s *MCPFactToolServer) handleSQLGetSampleQueries(ctx *server.Context, req tools.SQLSampleQueriesRequest) (tools.SQLSampleQueriesResponse, error) {
	slog.Info("Processing sql_get_sample_queries request")

	return tools.SQLSampleQueriesResponse{
		Status:        "success",
		SampleQueries: tools.SampleQueries,
		TotalQueries:  len(tools.SampleQueries),
	}, nil
}

// handleCacheStats handles the cache_stats MCP tool call.
func (s *MCPFactToolServer) handleCacheStats(ctx *server.Context, req tools.CacheStatsRequest) (tools.CacheStatsResponse, error) {
	slog.Info("Processing cache_stats request")

	metrics := s.queryCache.GetMetrics()

	return tools.CacheStatsResponse{
		Status:          "success",
		TotalEntries:    metrics.TotalEntries,
		TotalSizeBytes:  metrics.TotalSize,
		HitRate:         metrics.HitRate,
		CacheHits:       int(metrics.CacheHits),
		CacheMisses:     int(metrics.CacheMisses),
		TokenEfficiency: metrics.TokenEfficiency,
		BreakerState:    string(s.queryCache.Breaker().State()),
	}, nil
}

// prepareFact summarizes fact text and encodes its embedding. It is shared
// by the save and replace paths.
func (s *MCPFactToolServer) prepareFact(factText string) (summary string, embeddingBytes []byte, err error) {
	slog.Debug("Generating summary")
	summary, err = s.summarizer.Summarize(factText)
	if err != nil {
		return "", nil, errortypes.APIError(err, "failed to summarize text").
			WithField("text_length", len(factText))
	}

	slog.Debug("Creating embedding")
	embedding, err := s.embedder.CreateEmbedding(summary)
	if err != nil {
		return "", nil, errortypes.APIError(err, "failed to create embedding").
			WithField("summary_length", len(summary))
	}

	embeddingBytes, err = vector.Float32SliceToBytes(embedding)
	if err != nil {
		return "", nil, errortypes.APIError(err, "failed to convert embedding to bytes").
			WithField("embedding_size", len(embedding))
	}

	return summary, embeddingBytes, nil
}

// truncateStatement shortens a statement for response echo and log output.
func truncateStatement(statement string) string {
	if len(statement) > 100 {
		return statement[:100] + "..."
	}
	return statement
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}
