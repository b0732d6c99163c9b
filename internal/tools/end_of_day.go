package tools

import (
	"context"
	"fmt"

	"github.com/devrelay/relay/internal/workflow"
	"github.com/mark3labs/mcp-go/mcp"
)

// EndOfDayTool handles the end_of_day MCP tool.
type EndOfDayTool struct {
	wm *workflow.Manager
}

// NewEndOfDayTool creates an EndOfDayTool with the given manager.
func NewEndOfDayTool(wm *workflow.Manager) *EndOfDayTool {
	return &EndOfDayTool{wm: wm}
}

// Definition returns the MCP tool definition for registration.
func (t *EndOfDayTool) Definition() mcp.Tool {
	return mcp.NewTool("end_of_day",
		mcp.WithDescription(
			"End-of-day review: the same snapshot as whats_up, plus a reminder if a "+
				"work session is still open. Advisory only; nothing is closed on your behalf.",
		),
		mcp.WithString("developer_id",
			mcp.Description("Developer wrapping up. Defaults to the configured developer."),
		),
	)
}

// Handle processes the end_of_day tool call.
func (t *EndOfDayTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.wm.EndOfDay(ctx, req.GetString("developer_id", ""))
	if err != nil {
		return nil, fmt.Errorf("end of day: %w", err)
	}
	return mcp.NewToolResultText(formatCheckin(res)), nil
}
