package tools

import (
	"context"
	"fmt"

	"github.com/devrelay/relay/internal/workflow"
	"github.com/mark3labs/mcp-go/mcp"
)

// ContextResurrectionTool handles the context_resurrection MCP tool.
type ContextResurrectionTool struct {
	wm *workflow.Manager
}

// NewContextResurrectionTool creates a ContextResurrectionTool with the given manager.
func NewContextResurrectionTool(wm *workflow.Manager) *ContextResurrectionTool {
	return &ContextResurrectionTool{wm: wm}
}

// Definition returns the MCP tool definition for registration.
func (t *ContextResurrectionTool) Definition() mcp.Tool {
	return mcp.NewTool("context_resurrection",
		mcp.WithDescription(
			"Rebuild working context after time away: last ended session, what "+
				"changed in the tracker and repository since, and the next micro-task "+
				"to resume with.",
		),
		mcp.WithString("developer_id",
			mcp.Description("Developer to restore context for. Defaults to the configured developer."),
		),
	)
}

// Handle processes the context_resurrection tool call.
func (t *ContextResurrectionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.wm.ContextResurrection(ctx, req.GetString("developer_id", ""))
	if err != nil {
		return nil, fmt.Errorf("context resurrection: %w", err)
	}
	return jsonResult(res)
}
