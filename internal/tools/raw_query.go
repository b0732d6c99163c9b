package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/devrelay/relay/internal/gateway"
	"github.com/mark3labs/mcp-go/mcp"
)

// RawQueryTool is a passthrough to a single backend: it invokes an
// arbitrary operation by name with raw JSON arguments. One instance is
// registered per backend (query_tracker, query_codehost).
type RawQueryTool struct {
	name    string
	backend gateway.Backend
	gw      gateway.Invoker
}

// NewQueryTrackerTool creates the passthrough tool for the issue tracker.
func NewQueryTrackerTool(gw gateway.Invoker) *RawQueryTool {
	return &RawQueryTool{name: "query_tracker", backend: gateway.Issues, gw: gw}
}

// NewQueryCodeHostTool creates the passthrough tool for the code host.
func NewQueryCodeHostTool(gw gateway.Invoker) *RawQueryTool {
	return &RawQueryTool{name: "query_codehost", backend: gateway.CodeHost, gw: gw}
}

// Definition returns the MCP tool definition for registration.
func (t *RawQueryTool) Definition() mcp.Tool {
	return mcp.NewTool(t.name,
		mcp.WithDescription(
			fmt.Sprintf("Invoke an arbitrary %s operation directly. Use the matching "+
				"list tool to discover operation names.", t.backend),
		),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("Backend operation name to invoke."),
		),
		mcp.WithString("arguments",
			mcp.Description("JSON object of operation arguments. Defaults to empty."),
		),
	)
}

// Handle processes a raw passthrough call.
func (t *RawQueryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	operation := req.GetString("operation", "")
	if operation == "" {
		return mcp.NewToolResultError("operation is required"), nil
	}

	args := map[string]any{}
	if raw := req.GetString("arguments", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("arguments is not a JSON object: %v", err)), nil
		}
	}

	res, err := t.gw.Invoke(ctx, t.backend, operation, args)
	if err != nil {
		return nil, fmt.Errorf("invoke %s.%s: %w", t.backend, operation, err)
	}
	if res.IsError {
		return mcp.NewToolResultError(res.Text), nil
	}
	return mcp.NewToolResultText(res.Text), nil
}
