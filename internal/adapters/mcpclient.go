package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/karimsalem/askbridge/internal/registry"
)

// MCPConfig describes an external MCP tool server to use as a backend
// system: the stdio command to launch and the tool to call per query.
type MCPConfig struct {
	SystemID registry.SystemID
	Command  string
	Args     []string
	Env      []string
	Tool     string // tool name to invoke; default "search"
}

// MCPAdapter runs queries against an external MCP server over stdio. A
// fresh subprocess is launched per invocation and torn down when the call
// finishes or its context is cancelled, so concurrent invocations never
// share state.
type MCPAdapter struct {
	cfg MCPConfig
}

// NewMCPAdapter creates an adapter for an external MCP tool server.
func NewMCPAdapter(cfg MCPConfig) (*MCPAdapter, error) {
	if cfg.SystemID == "" {
		return nil, fmt.Errorf("mcp adapter: system id is required")
	}
	if cfg.Command == "" {
		return nil, fmt.Errorf("mcp adapter: command is required")
	}
	if cfg.Tool == "" {
		cfg.Tool = "search"
	}
	return &MCPAdapter{cfg: cfg}, nil
}

func (a *MCPAdapter) ID() registry.SystemID { return a.cfg.SystemID }

// Query launches the MCP server, calls the configured tool with the query
// and normalizes the response.
func (a *MCPAdapter) Query(ctx context.Context, query string) ([]ResultItem, error) {
	c, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	callReq := mcp.CallToolRequest{}
	callReq.Params.Name = a.cfg.Tool
	callReq.Params.Arguments = map[string]interface{}{"query": query}

	res, err := c.CallTool(ctx, callReq)
	if err != nil {
		return nil, ClassifyErr(err)
	}
	if res.IsError {
		return nil, NewFailure(FailureUnknown, "mcp tool %s reported an error: %s", a.cfg.Tool, contentText(res.Content))
	}

	return a.normalize(contentText(res.Content)), nil
}

// Ping launches the server and verifies it initializes and lists tools.
func (a *MCPAdapter) Ping(ctx context.Context) error {
	c, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if _, err := c.ListTools(ctx, mcp.ListToolsRequest{}); err != nil {
		return ClassifyErr(err)
	}
	return nil
}

func (a *MCPAdapter) connect(ctx context.Context) (*client.Client, error) {
	env := append(os.Environ(), a.cfg.Env...)
	c, err := client.NewStdioMCPClient(a.cfg.Command, env, a.cfg.Args...)
	if err != nil {
		return nil, NewFailure(FailureTransient, "starting mcp server %s: %v", a.cfg.Command, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "askbridge", Version: "1.0"}

	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, ClassifyErr(err)
	}
	return c, nil
}

// normalize converts tool output into ResultItems. Servers that return a
// JSON array of items keep their structure; free text becomes one item.
func (a *MCPAdapter) normalize(text string) []ResultItem {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var items []ResultItem
	if err := json.Unmarshal([]byte(text), &items); err == nil && len(items) > 0 {
		for i := range items {
			items[i].SystemID = a.cfg.SystemID
			if items[i].Score == 0 {
				items[i].Score = rankScore(i, len(items))
			}
			items[i].Snippet = truncate(items[i].Snippet)
		}
		return items
	}

	return []ResultItem{{
		SystemID: a.cfg.SystemID,
		Title:    fmt.Sprintf("%s result", a.cfg.SystemID),
		Snippet:  truncate(text),
		Score:    1,
	}}
}

func contentText(contents []mcp.Content) string {
	var sb strings.Builder
	for _, c := range contents {
		if tc, ok := mcp.AsTextContent(c); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}
