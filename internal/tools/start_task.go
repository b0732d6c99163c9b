package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/devrelay/relay/internal/workflow"
	"github.com/mark3labs/mcp-go/mcp"
)

// StartTaskTool handles the start_task MCP tool.
// It opens a work session on an issue, best-effort moves the issue to
// In Progress, and seeds the session's micro-tasks.
type StartTaskTool struct {
	wm *workflow.Manager
}

// NewStartTaskTool creates a StartTaskTool with the given manager.
func NewStartTaskTool(wm *workflow.Manager) *StartTaskTool {
	return &StartTaskTool{wm: wm}
}

// Definition returns the MCP tool definition for registration.
func (t *StartTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("start_task",
		mcp.WithDescription(
			"Start working on a tracker issue: creates a local work session, "+
				"moves the issue to In Progress (best effort), suggests a branch name, "+
				"and records micro-tasks to work through.",
		),
		mcp.WithString("issue_key",
			mcp.Required(),
			mcp.Description("Tracker issue key, e.g. PROJ-42"),
		),
		mcp.WithArray("micro_tasks",
			mcp.Description("Optional list of micro-task titles. Defaults to a single 'Implement and test' task."),
			mcp.WithStringItems(),
		),
		mcp.WithString("developer_id",
			mcp.Description("Developer starting the task. Defaults to the configured developer."),
		),
	)
}

// Handle processes the start_task tool call.
func (t *StartTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueKey := strings.TrimSpace(req.GetString("issue_key", ""))
	if issueKey == "" {
		return mcp.NewToolResultError("'issue_key' is required — which issue are you starting?"), nil
	}
	titles := req.GetStringSlice("micro_tasks", nil)

	res, err := t.wm.StartTask(ctx, issueKey, titles, req.GetString("developer_id", ""))
	if err != nil {
		return nil, fmt.Errorf("starting task: %w", err)
	}

	var taskList strings.Builder
	for _, mt := range res.MicroTasks {
		fmt.Fprintf(&taskList, "- [ ] %s (`%s`)\n", mt.Title, mt.ID)
	}

	response := fmt.Sprintf(
		"# Task Started\n\n"+
			"**Issue:** %s — %s\n"+
			"**Session:** `%s`\n"+
			"**Suggested branch:** `%s`\n\n"+
			"## Micro-tasks\n\n%s\n"+
			"Use `update_progress` as you work, and `complete_task` or `smart_handoff` when done.",
		res.IssueKey, res.Summary, res.SessionID, res.SuggestedBranch, taskList.String(),
	)
	return mcp.NewToolResultText(response), nil
}
