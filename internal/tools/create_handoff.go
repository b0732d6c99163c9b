package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/devrelay/relay/internal/workflow"
	"github.com/mark3labs/mcp-go/mcp"
)

// CreateHandoffTool handles the create_handoff MCP tool.
type CreateHandoffTool struct {
	wm *workflow.Manager
}

// NewCreateHandoffTool creates a CreateHandoffTool with the given manager.
func NewCreateHandoffTool(wm *workflow.Manager) *CreateHandoffTool {
	return &CreateHandoffTool{wm: wm}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateHandoffTool) Definition() mcp.Tool {
	return mcp.NewTool("create_handoff",
		mcp.WithDescription(
			"Hand work over to another developer with full context: what is done, "+
				"what is next, branch and files. Ends your session if one is given. "+
				"For automatic context gathering use smart_handoff instead.",
		),
		mcp.WithString("to_developer",
			mcp.Required(),
			mcp.Description("Developer receiving the work"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Short handoff title, e.g. 'Handoff: PROJ-42 auth refactor'"),
		),
		mcp.WithString("from_developer",
			mcp.Description("Sender. Defaults to the configured developer."),
		),
		mcp.WithString("issue_key",
			mcp.Description("Tracker issue this work belongs to"),
		),
		mcp.WithString("context_summary",
			mcp.Description("One-paragraph summary of where things stand"),
		),
		mcp.WithString("what_done", mcp.Description("What has been finished")),
		mcp.WithString("what_next", mcp.Description("What remains to be done")),
		mcp.WithString("branch_name", mcp.Description("Branch carrying the work")),
		mcp.WithString("file_list", mcp.Description("Files worth looking at first")),
		mcp.WithString("blockers_notes", mcp.Description("Known blockers or gotchas")),
		mcp.WithString("work_session_id",
			mcp.Description("Session to end as handed off"),
		),
		mcp.WithString("merge_request_url",
			mcp.Description("Merge request link; posted to the issue when issue_key is also set"),
		),
	)
}

// Handle processes the create_handoff tool call.
func (t *CreateHandoffTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	toDev := strings.TrimSpace(req.GetString("to_developer", ""))
	title := strings.TrimSpace(req.GetString("title", ""))
	if toDev == "" {
		return mcp.NewToolResultError("'to_developer' is required — who receives the work?"), nil
	}
	if title == "" {
		return mcp.NewToolResultError("'title' is required — give the handoff a short title"), nil
	}

	id, err := t.wm.CreateHandoff(ctx, workflow.HandoffInput{
		FromDeveloper:   req.GetString("from_developer", ""),
		ToDeveloper:     toDev,
		Title:           title,
		IssueKey:        req.GetString("issue_key", ""),
		ContextSummary:  req.GetString("context_summary", ""),
		WhatDone:        req.GetString("what_done", ""),
		WhatNext:        req.GetString("what_next", ""),
		BranchName:      req.GetString("branch_name", ""),
		FileList:        req.GetString("file_list", ""),
		BlockersNotes:   req.GetString("blockers_notes", ""),
		WorkSessionID:   req.GetString("work_session_id", ""),
		MergeRequestURL: req.GetString("merge_request_url", ""),
	})
	if err != nil {
		return nil, fmt.Errorf("creating handoff: %w", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Handoff `%s` recorded for %s. They will see it on their next check-in.", id, toDev)), nil
}
