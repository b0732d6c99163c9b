package tools

import (
	"context"
	"fmt"

	"github.com/devrelay/relay/internal/workflow"
	"github.com/mark3labs/mcp-go/mcp"
)

// CreateSubtaskFromMRReviewTool handles the create_subtask_from_mr_review
// MCP tool.
type CreateSubtaskFromMRReviewTool struct {
	wm *workflow.Manager
}

// NewCreateSubtaskFromMRReviewTool creates the tool with the given manager.
func NewCreateSubtaskFromMRReviewTool(wm *workflow.Manager) *CreateSubtaskFromMRReviewTool {
	return &CreateSubtaskFromMRReviewTool{wm: wm}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateSubtaskFromMRReviewTool) Definition() mcp.Tool {
	return mcp.NewTool("create_subtask_from_mr_review",
		mcp.WithDescription(
			"Analyze the review discussion of a specific merge request and create "+
				"tracker sub-tasks for every actionable comment.",
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Parent tracker issue key, e.g. PROJ-123."),
		),
		mcp.WithNumber("mr_iid",
			mcp.Required(),
			mcp.Description("Merge request IID whose review comments to analyze."),
		),
	)
}

// Handle processes the create_subtask_from_mr_review tool call.
func (t *CreateSubtaskFromMRReviewTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := req.GetString("task_id", "")
	if taskID == "" {
		return mcp.NewToolResultError("task_id is required"), nil
	}
	mrIID := int(req.GetFloat("mr_iid", 0))
	if mrIID <= 0 {
		return mcp.NewToolResultError("mr_iid must be a positive merge request IID"), nil
	}

	res, err := t.wm.CreateSubtasksFromReview(ctx, taskID, mrIID)
	if err != nil {
		return nil, fmt.Errorf("create subtasks from review: %w", err)
	}
	return jsonResult(res)
}
