package mcpserve

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/karimsalem/askbridge/internal/orchestrator"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the query orchestrator as
// tools, so editor agents can ask questions over stdio.
type Server struct {
	orch *orchestrator.Orchestrator
	mcp  *server.MCPServer
}

// NewServer creates a new MCP server backed by the given orchestrator.
func NewServer(orch *orchestrator.Orchestrator) *Server {
	s := &Server{orch: orch}

	s.mcp = server.NewMCPServer(
		"askbridge",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers.
func (s *Server) registerTools() {
	s.mcp.AddTool(askTool, s.handleAsk)
	s.mcp.AddTool(listSystemsTool, s.handleListSystems)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
