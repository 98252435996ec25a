package mcpserve

import "github.com/mark3labs/mcp-go/mcp"

// askTool defines the ask MCP tool: one orchestrated query across the
// configured systems.
var askTool = mcp.NewTool("ask",
	mcp.WithDescription("Ask a question across JIRA, Confluence and Bitbucket. Routes the question to the relevant systems and returns a synthesized answer with provenance."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language question"),
	),
	mcp.WithString("session_id",
		mcp.Description("Session identifier for conversation continuity"),
	),
	mcp.WithString("systems",
		mcp.Description("Comma-separated system IDs to force instead of automatic routing (e.g. \"jira,confluence\")"),
	),
)

// listSystemsTool defines the list_systems MCP tool.
var listSystemsTool = mcp.NewTool("list_systems",
	mcp.WithDescription("List the systems this assistant can query, with a short description of each."),
)
