package issuestate

import (
	"context"
	"strings"
	"testing"

	"github.com/devrelay/relay/internal/capability"
	"github.com/devrelay/relay/internal/gateway"
	"github.com/devrelay/relay/internal/store"
)

// issueGateway serves canned issue JSON keyed by issue key and records
// nothing else. All non-issue calls fail.
type issueGateway struct {
	issues map[string]string
}

func (g *issueGateway) Invoke(ctx context.Context, backend gateway.Backend, operation string, args map[string]any) (gateway.Result, error) {
	key, _ := args["issue_key"].(string)
	if body, ok := g.issues[key]; ok {
		return gateway.Result{Text: body}, nil
	}
	return gateway.Result{Text: "issue not found", IsError: true}, nil
}

func (g *issueGateway) ListTools(ctx context.Context, backend gateway.Backend) ([]gateway.ToolInfo, error) {
	return nil, nil
}

// stubDB implements store.DB with a single configurable active session.
type stubDB struct {
	store.DB
	active *store.ActiveSession
}

func (s *stubDB) GetActiveSession(ctx context.Context, developerID string) (*store.ActiveSession, error) {
	return s.active, nil
}

func newTestTracker(issues map[string]string, active *store.ActiveSession) *Tracker {
	gw := &issueGateway{issues: issues}
	return NewTracker(capability.NewResolver(gw), &stubDB{active: active})
}

const inProgressIssue = `{"key":"PROJ-1","fields":{"summary":"Fix login","status":{"name":"In Progress","statusCategory":{"key":"indeterminate"}}}}`

func TestResolveContextExplicitTask(t *testing.T) {
	tr := newTestTracker(map[string]string{"PROJ-1": inProgressIssue},
		&store.ActiveSession{ID: "ws-9", IssueKey: "PROJ-9"})

	rc, err := tr.ResolveContext(context.Background(), "alice", "PROJ-1")
	if err != nil {
		t.Fatalf("ResolveContext: %v", err)
	}
	if rc == nil {
		t.Fatal("expected context, got nil")
	}
	if rc.IssueKey != "PROJ-1" {
		t.Errorf("IssueKey = %q", rc.IssueKey)
	}
	if rc.FromSession || rc.SessionID != "" {
		t.Errorf("explicit task must not bind the session: %+v", rc)
	}
}

func TestResolveContextFromActiveSession(t *testing.T) {
	tr := newTestTracker(map[string]string{"PROJ-1": inProgressIssue},
		&store.ActiveSession{ID: "ws-1", IssueKey: "PROJ-1"})

	rc, err := tr.ResolveContext(context.Background(), "alice", "")
	if err != nil {
		t.Fatalf("ResolveContext: %v", err)
	}
	if rc == nil {
		t.Fatal("expected context, got nil")
	}
	if !rc.FromSession || rc.SessionID != "ws-1" {
		t.Errorf("session-derived context = %+v, want FromSession/ws-1", rc)
	}
	if rc.State == nil || rc.State.StatusName != "In Progress" {
		t.Errorf("state = %+v", rc.State)
	}
}

func TestResolveContextNoIssue(t *testing.T) {
	tr := newTestTracker(nil, nil)

	rc, err := tr.ResolveContext(context.Background(), "alice", "")
	if err != nil {
		t.Fatalf("ResolveContext: %v", err)
	}
	if rc != nil {
		t.Errorf("expected nil context, got %+v", rc)
	}
}

func TestResolveContextTrackerUnavailable(t *testing.T) {
	tr := newTestTracker(nil, &store.ActiveSession{ID: "ws-1", IssueKey: "PROJ-1"})

	rc, err := tr.ResolveContext(context.Background(), "alice", "")
	if err != nil {
		t.Fatalf("ResolveContext: %v", err)
	}
	if rc != nil {
		t.Errorf("unknown issue should yield nil context, got %+v", rc)
	}
}

func TestSyncLocalStateAdvisoryOnly(t *testing.T) {
	tr := newTestTracker(nil, &store.ActiveSession{ID: "ws-1", IssueKey: "PROJ-1"})
	doneState := &State{Key: "PROJ-1", StatusName: "Done", StatusCategory: "done"}

	res, err := tr.SyncLocalState(context.Background(), "PROJ-1", doneState, "alice")
	if err != nil {
		t.Fatalf("SyncLocalState: %v", err)
	}
	if res.Synced {
		t.Error("done issue with active session should report out of sync")
	}
	if !strings.Contains(res.Message, "PROJ-1") || !strings.Contains(res.Message, "complete_task") {
		t.Errorf("advisory message = %q", res.Message)
	}
}

func TestSyncLocalStateNoSessionMatch(t *testing.T) {
	doneState := &State{Key: "PROJ-1", StatusName: "Done", StatusCategory: "done"}

	for _, active := range []*store.ActiveSession{nil, {ID: "ws-2", IssueKey: "PROJ-2"}} {
		tr := newTestTracker(nil, active)
		res, err := tr.SyncLocalState(context.Background(), "PROJ-1", doneState, "alice")
		if err != nil {
			t.Fatalf("SyncLocalState: %v", err)
		}
		if !res.Synced || res.Message != "" {
			t.Errorf("unrelated session should be synced, got %+v", res)
		}
	}
}

func TestSyncLocalStateActiveNotDone(t *testing.T) {
	tr := newTestTracker(nil, &store.ActiveSession{ID: "ws-1", IssueKey: "PROJ-1"})
	st := &State{Key: "PROJ-1", StatusName: "In Progress", StatusCategory: "indeterminate"}

	res, err := tr.SyncLocalState(context.Background(), "PROJ-1", st, "alice")
	if err != nil {
		t.Fatalf("SyncLocalState: %v", err)
	}
	if !res.Synced {
		t.Errorf("in-progress issue should be synced, got %+v", res)
	}
}
