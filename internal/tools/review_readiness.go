package tools

import (
	"context"
	"fmt"

	"github.com/devrelay/relay/internal/workflow"
	"github.com/mark3labs/mcp-go/mcp"
)

// ReviewReadinessTool handles the review_readiness_check MCP tool.
type ReviewReadinessTool struct {
	wm *workflow.Manager
}

// NewReviewReadinessTool creates a ReviewReadinessTool with the given manager.
func NewReviewReadinessTool(wm *workflow.Manager) *ReviewReadinessTool {
	return &ReviewReadinessTool{wm: wm}
}

// Definition returns the MCP tool definition for registration.
func (t *ReviewReadinessTool) Definition() mcp.Tool {
	return mcp.NewTool("review_readiness_check",
		mcp.WithDescription(
			"Check whether a task is ready for code review: sub-task completion, "+
				"open local session, merge conflicts, and pipeline status. Checks that "+
				"cannot run are reported as unknown, not as blockers.",
		),
		mcp.WithString("task_id",
			mcp.Description("Tracker issue key. Defaults to your active session's issue."),
		),
		mcp.WithString("developer_id",
			mcp.Description("Developer to check for. Defaults to the configured developer."),
		),
	)
}

// Handle processes the review_readiness_check tool call.
func (t *ReviewReadinessTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.wm.ReviewReadinessCheck(ctx,
		req.GetString("task_id", ""),
		req.GetString("developer_id", ""),
	)
	if err != nil {
		return nil, fmt.Errorf("review readiness check: %w", err)
	}
	return jsonResult(res)
}
