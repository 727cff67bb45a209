// Package server provides the MCP server implementation for the FACT memory service.
package server

// FactToolServer defines the interface for the MCP server that handles
// fact and SQL tool calls from MCP clients.
type FactToolServer interface {
	// Initialize initializes the server with dependencies and configurations.
	Initialize() error

	// Start starts the MCP server on the specified transport.
	Start() error

	// Stop gracefully shuts down the MCP server.
	Stop() error
}
