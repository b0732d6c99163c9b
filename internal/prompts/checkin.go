// Package prompts implements MCP prompt handlers for the relay workflows.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// CheckinPrompt handles the relay-checkin MCP prompt.
// It guides the AI through the morning check-in routine.
type CheckinPrompt struct{}

// NewCheckinPrompt creates a CheckinPrompt.
func NewCheckinPrompt() *CheckinPrompt {
	return &CheckinPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *CheckinPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("relay-checkin",
		mcp.WithPromptDescription(
			"Morning check-in: review pending handoffs, assigned issues, "+
				"repository state, and decide what to work on first.",
		),
		mcp.WithArgument("developer_id",
			mcp.ArgumentDescription("Developer checking in. Defaults to the configured developer."),
		),
	)
}

// Handle processes the relay-checkin prompt request.
func (p *CheckinPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	devArg := ""
	if args := req.Params.Arguments; args != nil {
		if dev, ok := args["developer_id"]; ok && dev != "" {
			devArg = fmt.Sprintf(" with developer_id='%s'", dev)
		}
	}

	return &mcp.GetPromptResult{
		Description: "Morning check-in",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I'm starting my day. Please:\n"+
						"1. Run `whats_up`%s\n"+
						"2. Summarize pending handoffs first — someone is waiting on those\n"+
						"3. If a work session was left open, ask me whether to resume it, "+
						"complete it, or hand it off\n"+
						"4. Suggest what to pick up next, and offer to run `start_task` on it",
					devArg,
				)),
			},
		},
	}, nil
}
