package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// HandoffPrompt handles the relay-handoff MCP prompt.
// It walks the AI through handing the current task to a teammate.
type HandoffPrompt struct{}

// NewHandoffPrompt creates a HandoffPrompt.
func NewHandoffPrompt() *HandoffPrompt {
	return &HandoffPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *HandoffPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("relay-handoff",
		mcp.WithPromptDescription(
			"Hand your current task to a teammate: gathers context, runs the "+
				"smart handoff, and reviews any warnings it raises.",
		),
		mcp.WithArgument("to_developer",
			mcp.ArgumentDescription("Teammate receiving the work"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("task_id",
			mcp.ArgumentDescription("Issue key to hand off. Defaults to the active session's issue."),
		),
	)
}

// Handle processes the relay-handoff prompt request.
func (p *HandoffPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	toDeveloper := ""
	taskClause := "for my active session's issue"
	if args := req.Params.Arguments; args != nil {
		toDeveloper = args["to_developer"]
		if task, ok := args["task_id"]; ok && task != "" {
			taskClause = fmt.Sprintf("for %s", task)
		}
	}
	if toDeveloper == "" {
		return nil, fmt.Errorf("prompts: to_developer is required")
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Hand off to %s", toDeveloper),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I need to hand my current work to %s %s. Please:\n"+
						"1. Run `task_status` and draft a context summary from the session's "+
						"progress log — what's done, what's left, any gotchas\n"+
						"2. Show me the summary and let me adjust it\n"+
						"3. Run `smart_handoff` with to_developer='%s' and that summary\n"+
						"4. Walk me through any warnings in the result — they name the steps "+
						"that were skipped and may need manual follow-up",
					toDeveloper, taskClause, toDeveloper,
				)),
			},
		},
	}, nil
}
