package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/devrelay/relay/internal/workflow"
	"github.com/mark3labs/mcp-go/mcp"
)

// UpdateProgressTool handles the update_progress MCP tool.
type UpdateProgressTool struct {
	wm *workflow.Manager
}

// NewUpdateProgressTool creates an UpdateProgressTool with the given manager.
func NewUpdateProgressTool(wm *workflow.Manager) *UpdateProgressTool {
	return &UpdateProgressTool{wm: wm}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateProgressTool) Definition() mcp.Tool {
	return mcp.NewTool("update_progress",
		mcp.WithDescription(
			"Log progress against the current work session: a note, minutes spent, "+
				"an optional commit, and optionally mark a micro-task done.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Work session id returned by start_task"),
		),
		mcp.WithString("note",
			mcp.Description("What you just did"),
		),
		mcp.WithNumber("minutes_logged",
			mcp.Description("Minutes spent since the last update"),
		),
		mcp.WithString("commit_sha",
			mcp.Description("Commit this progress relates to"),
		),
		mcp.WithString("micro_task_id",
			mcp.Description("Micro-task to mark done"),
		),
	)
}

// Handle processes the update_progress tool call.
func (t *UpdateProgressTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := strings.TrimSpace(req.GetString("session_id", ""))
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required — start_task returns it"), nil
	}

	err := t.wm.UpdateProgress(ctx,
		sessionID,
		req.GetString("note", ""),
		int(req.GetFloat("minutes_logged", 0)),
		req.GetString("commit_sha", ""),
		req.GetString("micro_task_id", ""),
	)
	if err != nil {
		return nil, fmt.Errorf("updating progress: %w", err)
	}
	return mcp.NewToolResultText("Progress recorded."), nil
}
