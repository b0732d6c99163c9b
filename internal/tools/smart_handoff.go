package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/devrelay/relay/internal/workflow"
	"github.com/mark3labs/mcp-go/mcp"
)

// SmartHandoffTool handles the smart_handoff MCP tool.
// It runs the full handoff saga: issue check, merge-request discovery,
// review-comment analysis with sub-task creation, tracker comment,
// handoff record, session end.
type SmartHandoffTool struct {
	wm *workflow.Manager
}

// NewSmartHandoffTool creates a SmartHandoffTool with the given manager.
func NewSmartHandoffTool(wm *workflow.Manager) *SmartHandoffTool {
	return &SmartHandoffTool{wm: wm}
}

// Definition returns the MCP tool definition for registration.
func (t *SmartHandoffTool) Definition() mcp.Tool {
	return mcp.NewTool("smart_handoff",
		mcp.WithDescription(
			"Hand a task over with automatic context gathering: finds the open merge "+
				"request, turns unresolved review comments into sub-tasks, comments on the "+
				"issue, records the handoff, and ends your session. Steps that fail are "+
				"reported as warnings, not errors.",
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Tracker issue key being handed over, e.g. PROJ-42"),
		),
		mcp.WithString("to_developer",
			mcp.Required(),
			mcp.Description("Developer receiving the work"),
		),
		mcp.WithString("from_developer",
			mcp.Description("Sender. Defaults to the configured developer."),
		),
		mcp.WithString("context_summary",
			mcp.Description("One-paragraph summary of where things stand"),
		),
		mcp.WithString("merge_request_url",
			mcp.Description("Fallback merge request link when discovery finds nothing"),
		),
		mcp.WithBoolean("skip_analysis",
			mcp.Description("Skip review-comment analysis and sub-task creation"),
		),
	)
}

// Handle processes the smart_handoff tool call.
func (t *SmartHandoffTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := strings.TrimSpace(req.GetString("task_id", ""))
	toDev := strings.TrimSpace(req.GetString("to_developer", ""))
	if taskID == "" {
		return mcp.NewToolResultError("'task_id' is required — which issue is being handed over?"), nil
	}
	if toDev == "" {
		return mcp.NewToolResultError("'to_developer' is required — who receives the work?"), nil
	}

	res, err := t.wm.SmartHandoff(ctx, workflow.SmartHandoffInput{
		TaskID:          taskID,
		FromDeveloper:   req.GetString("from_developer", ""),
		ToDeveloper:     toDev,
		ContextSummary:  req.GetString("context_summary", ""),
		MergeRequestURL: req.GetString("merge_request_url", ""),
		SkipAnalysis:    req.GetBool("skip_analysis", false),
	})
	if err != nil {
		return nil, fmt.Errorf("smart handoff: %w", err)
	}
	return jsonResult(res)
}
