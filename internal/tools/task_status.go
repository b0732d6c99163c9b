package tools

import (
	"context"
	"fmt"

	"github.com/devrelay/relay/internal/workflow"
	"github.com/mark3labs/mcp-go/mcp"
)

// TaskStatusTool handles the task_status MCP tool.
type TaskStatusTool struct {
	wm *workflow.Manager
}

// NewTaskStatusTool creates a TaskStatusTool with the given manager.
func NewTaskStatusTool(wm *workflow.Manager) *TaskStatusTool {
	return &TaskStatusTool{wm: wm}
}

// Definition returns the MCP tool definition for registration.
func (t *TaskStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("task_status",
		mcp.WithDescription(
			"Current work session with its micro-tasks and progress log. Returns an "+
				"empty status when no session is active.",
		),
		mcp.WithString("developer_id",
			mcp.Description("Developer to report on. Defaults to the configured developer."),
		),
	)
}

// Handle processes the task_status tool call.
func (t *TaskStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.wm.TaskStatus(ctx, req.GetString("developer_id", ""))
	if err != nil {
		return nil, fmt.Errorf("task status: %w", err)
	}
	return jsonResult(res)
}
