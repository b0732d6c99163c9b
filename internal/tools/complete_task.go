package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/devrelay/relay/internal/workflow"
	"github.com/mark3labs/mcp-go/mcp"
)

// CompleteTaskTool handles the complete_task MCP tool.
type CompleteTaskTool struct {
	wm *workflow.Manager
}

// NewCompleteTaskTool creates a CompleteTaskTool with the given manager.
func NewCompleteTaskTool(wm *workflow.Manager) *CompleteTaskTool {
	return &CompleteTaskTool{wm: wm}
}

// Definition returns the MCP tool definition for registration.
func (t *CompleteTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("complete_task",
		mcp.WithDescription(
			"Finish the current work session: marks it completed locally and "+
				"moves the linked issue to Done (best effort).",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Work session id returned by start_task"),
		),
		mcp.WithString("merge_request_url",
			mcp.Description("Merge request that delivered the work"),
		),
		mcp.WithNumber("total_minutes",
			mcp.Description("Total minutes spent on the task"),
		),
	)
}

// Handle processes the complete_task tool call.
func (t *CompleteTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := strings.TrimSpace(req.GetString("session_id", ""))
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required — start_task returns it"), nil
	}

	err := t.wm.CompleteTask(ctx,
		sessionID,
		req.GetString("merge_request_url", ""),
		int(req.GetFloat("total_minutes", 0)),
	)
	if err != nil {
		return nil, fmt.Errorf("completing task: %w", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session `%s` completed. The linked issue was moved to Done if the tracker allowed it.", sessionID)), nil
}
