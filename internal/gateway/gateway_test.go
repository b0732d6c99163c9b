package gateway

import (
	"context"
	"strings"
	"testing"

	"github.com/devrelay/relay/internal/config"
	"github.com/mark3labs/mcp-go/mcp"
)

func disabledGateway() *Gateway {
	return New(config.Config{
		Issues:   config.BackendConfig{Disabled: true},
		CodeHost: config.BackendConfig{Disabled: true},
		Store:    config.BackendConfig{Disabled: true},
	})
}

func TestInvoke_DisabledBackendReturnsSyntheticError(t *testing.T) {
	g := disabledGateway()
	res, err := g.Invoke(context.Background(), Issues, "get_issue", map[string]any{"key": "PROJ-1"})
	if err != nil {
		t.Fatalf("Invoke returned error for disabled backend: %v", err)
	}
	if !res.IsError {
		t.Error("Invoke on disabled backend: IsError = false, want true")
	}
	if !strings.Contains(res.Text, "disabled") {
		t.Errorf("Invoke diagnostic = %q, want mention of disabled", res.Text)
	}
}

func TestInvoke_DisabledBackendIsSticky(t *testing.T) {
	g := disabledGateway()
	first, _ := g.Invoke(context.Background(), CodeHost, "git_status", nil)
	second, _ := g.Invoke(context.Background(), CodeHost, "git_status", nil)
	if first.Text != second.Text || !second.IsError {
		t.Errorf("second invoke = %+v, want same sticky failure as first %+v", second, first)
	}
}

func TestInvoke_UnknownBackend(t *testing.T) {
	g := disabledGateway()
	if _, err := g.Invoke(context.Background(), Backend("bogus"), "x", nil); err == nil {
		t.Error("Invoke with unknown backend: err = nil, want error")
	}
}

func TestInvoke_UnavailableStoreRaises(t *testing.T) {
	g := disabledGateway()
	if _, err := g.Invoke(context.Background(), Store, "query", nil); err == nil {
		t.Error("Invoke on disabled store backend: err = nil, want error")
	}
}

func TestListTools_DisabledBackendListsEmpty(t *testing.T) {
	g := disabledGateway()
	tools, err := g.ListTools(context.Background(), Issues)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 0 {
		t.Errorf("ListTools on disabled backend = %d entries, want 0", len(tools))
	}
}

func TestExtractText_JoinsTextContentOnly(t *testing.T) {
	res := &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: "line one"},
			mcp.ImageContent{Type: "image"},
			mcp.TextContent{Type: "text", Text: "line two"},
		},
	}
	got := extractText(res)
	if got != "line one\nline two" {
		t.Errorf("extractText = %q", got)
	}
}

func TestReset_AllowsReconnectAttempt(t *testing.T) {
	g := disabledGateway()
	// Trip the memoized failure, then reset and confirm the conn was replaced.
	_, _ = g.Invoke(context.Background(), Issues, "get_issue", nil)
	before, _ := g.conn(Issues)
	g.Reset(Issues)
	after, _ := g.conn(Issues)
	if before == after {
		t.Error("Reset did not replace the backend connection")
	}
}
