package mcpserve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/karimsalem/askbridge/internal/orchestrator"
)

// handleAsk runs one orchestration cycle and formats the answer with
// its provenance.
func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	req := orchestrator.Request{
		Query:     query,
		SessionID: request.GetString("session_id", ""),
	}
	if systems := request.GetString("systems", ""); systems != "" {
		for _, raw := range strings.Split(systems, ",") {
			if trimmed := strings.TrimSpace(raw); trimmed != "" {
				req.SelectedMCPs = append(req.SelectedMCPs, trimmed)
			}
		}
	}

	resp, err := s.orch.Execute(ctx, req)
	if err != nil {
		if errors.Is(err, orchestrator.ErrUnknownSystem) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	return mcp.NewToolResultText(formatAnswer(resp)), nil
}

// handleListSystems returns the system catalog.
func (s *Server) handleListSystems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	b.WriteString("Available systems:\n\n")
	for _, d := range s.orch.Registry().List() {
		fmt.Fprintf(&b, "- %s (%s): %s\n", d.Name, d.ID, d.Description)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func formatAnswer(resp *orchestrator.Response) string {
	var b strings.Builder
	b.WriteString(resp.Synthesis)

	if len(resp.MCPsUsed) > 0 {
		ids := make([]string, len(resp.MCPsUsed))
		for i, id := range resp.MCPsUsed {
			ids[i] = string(id)
		}
		fmt.Fprintf(&b, "\n\nSources: %s", strings.Join(ids, ", "))
	}
	if len(resp.SuggestedMCPs) > 0 {
		ids := make([]string, len(resp.SuggestedMCPs))
		for i, id := range resp.SuggestedMCPs {
			ids[i] = string(id)
		}
		fmt.Fprintf(&b, "\nWorth checking next: %s", strings.Join(ids, ", "))
	}
	if resp.Degraded {
		b.WriteString("\nNote: some systems could not be reached; the answer may be incomplete.")
	}
	return b.String()
}
