package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all Sentinel tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("sentinel", "1.0.0")
	client := NewSentinelClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolAnalyzeTransaction, h.HandleAnalyzeTransaction)
	s.AddTool(ToolRecordOutcome, h.HandleRecordOutcome)
	s.AddTool(ToolGetEngineMetrics, h.HandleGetEngineMetrics)
	s.AddTool(ToolListRecentDecisions, h.HandleListRecentDecisions)

	return s
}
