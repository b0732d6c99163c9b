package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/devrelay/relay/internal/workflow"
	"github.com/mark3labs/mcp-go/mcp"
)

// WhatsUpTool handles the whats_up MCP tool (morning check-in).
type WhatsUpTool struct {
	wm *workflow.Manager
}

// NewWhatsUpTool creates a WhatsUpTool with the given manager.
func NewWhatsUpTool(wm *workflow.Manager) *WhatsUpTool {
	return &WhatsUpTool{wm: wm}
}

// Definition returns the MCP tool definition for registration.
func (t *WhatsUpTool) Definition() mcp.Tool {
	return mcp.NewTool("whats_up",
		mcp.WithDescription(
			"Morning check-in: pending handoffs, your open tracker issues, current "+
				"branch and recent commits, and any active work session. Backend outages "+
				"are reported inline instead of failing the check-in.",
		),
		mcp.WithString("developer_id",
			mcp.Description("Developer checking in. Defaults to the configured developer."),
		),
	)
}

// Handle processes the whats_up tool call.
func (t *WhatsUpTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.wm.MorningCheckin(ctx, req.GetString("developer_id", ""))
	if err != nil {
		return nil, fmt.Errorf("morning check-in: %w", err)
	}
	return mcp.NewToolResultText(formatCheckin(res)), nil
}

// formatCheckin renders a check-in snapshot as markdown. Shared with
// end_of_day.
func formatCheckin(res *workflow.CheckinResult) string {
	var b strings.Builder
	b.WriteString("# Check-in\n\n")

	if res.ActiveSession != nil {
		fmt.Fprintf(&b, "**Active session:** `%s`", res.ActiveSession.ID)
		if res.ActiveSession.IssueKey != "" {
			fmt.Fprintf(&b, " on %s", res.ActiveSession.IssueKey)
		}
		b.WriteString("\n\n")
	}

	if len(res.PendingHandoffs) > 0 {
		b.WriteString("## Pending handoffs\n\n")
		for _, h := range res.PendingHandoffs {
			fmt.Fprintf(&b, "- **%s** from %s", h.Title, h.FromDeveloper)
			if h.ContextSummary != "" {
				fmt.Fprintf(&b, " — %s", h.ContextSummary)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## Your open issues\n\n")
	if res.TrackerError != "" {
		fmt.Fprintf(&b, "_Tracker unavailable: %s_\n\n", res.TrackerError)
	} else if len(res.AssignedIssues) == 0 {
		b.WriteString("Nothing assigned.\n\n")
	} else {
		for _, i := range res.AssignedIssues {
			fmt.Fprintf(&b, "- %s %s\n", i.Key, i.Summary)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Repository\n\n")
	if res.CodeHostError != "" && res.CurrentBranch == "" && len(res.RecentCommits) == 0 {
		fmt.Fprintf(&b, "_Code host unavailable: %s_\n", res.CodeHostError)
	} else {
		if res.CurrentBranch != "" {
			fmt.Fprintf(&b, "On branch `%s`\n", res.CurrentBranch)
		}
		for _, c := range res.RecentCommits {
			sha := c.SHA
			if len(sha) > 8 {
				sha = sha[:8]
			}
			fmt.Fprintf(&b, "- `%s` %s\n", sha, c.Message)
		}
	}

	if res.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", res.Message)
	}
	return b.String()
}
