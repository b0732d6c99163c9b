package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/devrelay/relay/internal/gateway"
	"github.com/mark3labs/mcp-go/mcp"
)

// ListBackendTool lists the operation catalog of one backend. One
// instance is registered per backend (list_tracker_tools,
// list_codehost_tools).
type ListBackendTool struct {
	name    string
	backend gateway.Backend
	gw      gateway.Invoker
}

// NewListTrackerToolsTool creates the catalog tool for the issue tracker.
func NewListTrackerToolsTool(gw gateway.Invoker) *ListBackendTool {
	return &ListBackendTool{name: "list_tracker_tools", backend: gateway.Issues, gw: gw}
}

// NewListCodeHostToolsTool creates the catalog tool for the code host.
func NewListCodeHostToolsTool(gw gateway.Invoker) *ListBackendTool {
	return &ListBackendTool{name: "list_codehost_tools", backend: gateway.CodeHost, gw: gw}
}

// Definition returns the MCP tool definition for registration.
func (t *ListBackendTool) Definition() mcp.Tool {
	return mcp.NewTool(t.name,
		mcp.WithDescription(
			fmt.Sprintf("List the operations the %s backend advertises, with descriptions.", t.backend),
		),
	)
}

// Handle processes the catalog listing call.
func (t *ListBackendTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	infos, err := t.gw.ListTools(ctx, t.backend)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("backend %s unavailable: %v", t.backend, err)), nil
	}
	if len(infos) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("Backend %s advertises no operations.", t.backend)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s operations\n\n", t.backend)
	for _, info := range infos {
		fmt.Fprintf(&b, "- **%s**", info.Name)
		if info.Description != "" {
			fmt.Fprintf(&b, ": %s", firstLine(info.Description))
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
