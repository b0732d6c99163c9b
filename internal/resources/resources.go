// Package resources implements MCP resource handlers for the relay server.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (relay://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/devrelay/relay/internal/workflow"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handler manages relay resource endpoints.
type Handler struct {
	wm *workflow.Manager
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(wm *workflow.Manager) *Handler {
	return &Handler{wm: wm}
}

// StatusResource returns the MCP resource definition for session status.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		"relay://session/status",
		"Current Work Session",
		mcp.WithResourceDescription("Active work session with micro-tasks and recent progress"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStatus returns the configured developer's session status as JSON.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	status, err := h.wm.TaskStatus(ctx, "")
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("resources: marshaling status: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource carrying an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
