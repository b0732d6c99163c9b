// Package tools implements the MCP tool handlers exposed by the relay
// server.
//
// Each tool receives its dependencies via its struct and delegates all
// business logic to the workflow manager; handlers only parse arguments
// and format results.
//
// Design principles:
// - SRP: each file = one tool
// - DIP: tools depend on the manager and gateway, not on backend details
// - OCP: new tools are added without modifying existing ones
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// jsonResult renders a structured result as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("tools: encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
