package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devrelay/relay/internal/capability"
	"github.com/devrelay/relay/internal/config"
	"github.com/devrelay/relay/internal/gateway"
	"github.com/devrelay/relay/internal/issuestate"
	"github.com/devrelay/relay/internal/store"
	"github.com/devrelay/relay/internal/workflow"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Test helpers ---

// fakeGateway answers each (backend, operation) pair with a canned result.
// Unscripted calls return an error result, the same way a disabled backend
// presents itself.
type fakeGateway struct {
	responses map[string]gateway.Result
	tools     map[gateway.Backend][]gateway.ToolInfo
	calls     []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		responses: make(map[string]gateway.Result),
		tools:     make(map[gateway.Backend][]gateway.ToolInfo),
	}
}

func (g *fakeGateway) on(backend gateway.Backend, operation, text string) {
	g.responses[string(backend)+"/"+operation] = gateway.Result{Text: text}
}

func (g *fakeGateway) Invoke(ctx context.Context, backend gateway.Backend, operation string, args map[string]any) (gateway.Result, error) {
	key := string(backend) + "/" + operation
	g.calls = append(g.calls, key)
	if res, ok := g.responses[key]; ok {
		return res, nil
	}
	return gateway.Result{Text: fmt.Sprintf("backend %s unavailable", backend), IsError: true}, nil
}

func (g *fakeGateway) ListTools(ctx context.Context, backend gateway.Backend) ([]gateway.ToolInfo, error) {
	if infos, ok := g.tools[backend]; ok {
		return infos, nil
	}
	return nil, fmt.Errorf("backend %s unavailable", backend)
}

// newTestManager wires a manager against a temp SQLite store and the fake
// gateway, the same composition the server performs.
func newTestManager(t *testing.T, gw *fakeGateway) *workflow.Manager {
	t.Helper()
	db, err := store.OpenLocal(filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("OpenLocal: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{
		DeveloperID:   "alice",
		WorkspacePath: t.TempDir(),
	}
	resolver := capability.NewResolver(gw)
	tracker := issuestate.NewTracker(resolver, db)
	return workflow.NewManager(db, resolver, tracker, cfg, nil)
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

const issueInProgress = `{"key":"PROJ-1","fields":{"summary":"Fix login flow","status":{"name":"In Progress","statusCategory":{"key":"indeterminate"}}}}`

// --- StartTaskTool ---

func TestStartTaskTool_Handle_Success(t *testing.T) {
	gw := newFakeGateway()
	gw.on(gateway.Issues, "get_issue", issueInProgress)
	gw.on(gateway.Issues, "transition_issue", `{"ok":true}`)
	tool := NewStartTaskTool(newTestManager(t, gw))

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"issue_key": "PROJ-1",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	text := getResultText(result)
	if !strings.Contains(text, "Task Started") {
		t.Error("result should contain 'Task Started'")
	}
	if !strings.Contains(text, "PROJ-1") {
		t.Error("result should name the issue")
	}
	if !strings.Contains(text, "feature/proj-1") {
		t.Error("result should suggest a feature branch")
	}
	if !strings.Contains(text, "Implement and test") {
		t.Error("result should list the default micro-task")
	}
}

func TestStartTaskTool_Handle_MissingIssueKey(t *testing.T) {
	tool := NewStartTaskTool(newTestManager(t, newFakeGateway()))

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("expected an error result when issue_key is missing")
	}
	if !strings.Contains(getResultText(result), "issue_key") {
		t.Error("error should name the missing argument")
	}
}

// --- UpdateProgressTool / CompleteTaskTool ---

func TestUpdateProgressTool_Handle_RoundTrip(t *testing.T) {
	gw := newFakeGateway()
	gw.on(gateway.Issues, "get_issue", issueInProgress)
	wm := newTestManager(t, gw)

	started, err := wm.StartTask(context.Background(), "PROJ-1", []string{"Design", "Build"}, "")
	if err != nil {
		t.Fatalf("StartTask: %v", err)
	}

	tool := NewUpdateProgressTool(wm)
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"session_id":     started.SessionID,
		"note":           "Implemented the parser",
		"minutes_logged": float64(25),
		"micro_task_id":  started.MicroTasks[0].ID,
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	status, err := wm.TaskStatus(context.Background(), "")
	if err != nil {
		t.Fatalf("TaskStatus: %v", err)
	}
	if len(status.ProgressLogs) != 1 {
		t.Fatalf("progress logs = %d, want 1", len(status.ProgressLogs))
	}
	done := 0
	for _, mt := range status.MicroTasks {
		if mt.Status == store.TaskDone {
			done++
		}
	}
	if done != 1 {
		t.Errorf("done micro-tasks = %d, want 1", done)
	}
}

func TestCompleteTaskTool_Handle_MissingSessionID(t *testing.T) {
	tool := NewCompleteTaskTool(newTestManager(t, newFakeGateway()))

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("expected an error result when session_id is missing")
	}
}

// --- WhatsUpTool / EndOfDayTool ---

func TestWhatsUpTool_Handle_ReportsOutagesInline(t *testing.T) {
	// Nothing scripted: every backend is down. The check-in still succeeds.
	tool := NewWhatsUpTool(newTestManager(t, newFakeGateway()))

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	text := getResultText(result)
	if !strings.Contains(text, "Tracker unavailable") {
		t.Error("result should report the tracker outage inline")
	}
	if !strings.Contains(text, "Code host unavailable") {
		t.Error("result should report the code host outage inline")
	}
}

func TestEndOfDayTool_Handle_RemindsAboutActiveSession(t *testing.T) {
	gw := newFakeGateway()
	gw.on(gateway.Issues, "get_issue", issueInProgress)
	wm := newTestManager(t, gw)

	if _, err := wm.StartTask(context.Background(), "PROJ-1", nil, ""); err != nil {
		t.Fatalf("StartTask: %v", err)
	}

	tool := NewEndOfDayTool(wm)
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	text := getResultText(result)
	if !strings.Contains(text, "active work session") {
		t.Errorf("result should remind about the open session, got:\n%s", text)
	}
}

// --- CreateSubtaskFromMRReviewTool ---

func TestCreateSubtaskFromMRReviewTool_Handle_ValidatesArguments(t *testing.T) {
	tool := NewCreateSubtaskFromMRReviewTool(newTestManager(t, newFakeGateway()))

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"task_id": "PROJ-1",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("expected an error result when mr_iid is missing")
	}
	if !strings.Contains(getResultText(result), "mr_iid") {
		t.Error("error should name the missing argument")
	}
}

// --- RawQueryTool ---

func TestRawQueryTool_Handle_Passthrough(t *testing.T) {
	gw := newFakeGateway()
	gw.on(gateway.Issues, "search_issues", `{"issues":[]}`)
	tool := NewQueryTrackerTool(gw)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"operation": "search_issues",
		"arguments": `{"jql":"project = PROJ"}`,
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	if got := getResultText(result); got != `{"issues":[]}` {
		t.Errorf("result = %q, want raw backend text", got)
	}
	if len(gw.calls) != 1 || gw.calls[0] != "issues/search_issues" {
		t.Errorf("calls = %v, want exactly one issues/search_issues", gw.calls)
	}
}

func TestRawQueryTool_Handle_BadArgumentsJSON(t *testing.T) {
	tool := NewQueryCodeHostTool(newFakeGateway())

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"operation": "git_status",
		"arguments": "not json",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("expected an error result for malformed arguments")
	}
}

func TestRawQueryTool_Handle_BackendError(t *testing.T) {
	tool := NewQueryCodeHostTool(newFakeGateway())

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"operation": "git_status",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("backend error results should surface as tool error results")
	}
}

// --- ListBackendTool ---

func TestListBackendTool_Handle_FormatsCatalog(t *testing.T) {
	gw := newFakeGateway()
	gw.tools[gateway.Issues] = []gateway.ToolInfo{
		{Name: "search_issues", Description: "Search issues with JQL.\nSupports pagination."},
		{Name: "get_issue"},
	}
	tool := NewListTrackerToolsTool(gw)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	text := getResultText(result)
	if !strings.Contains(text, "search_issues") || !strings.Contains(text, "get_issue") {
		t.Errorf("catalog should list both operations, got:\n%s", text)
	}
	if strings.Contains(text, "pagination") {
		t.Error("descriptions should be trimmed to their first line")
	}
}

func TestListBackendTool_Handle_BackendDown(t *testing.T) {
	tool := NewListCodeHostToolsTool(newFakeGateway())

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("expected an error result when the backend is unreachable")
	}
}
