package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *Local {
	t.Helper()
	db, err := OpenLocal(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("OpenLocal: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLocalSessionLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.EnsureDeveloper(ctx, "alice", "Alice"); err != nil {
		t.Fatalf("EnsureDeveloper: %v", err)
	}

	active, err := db.GetActiveSession(ctx, "alice")
	if err != nil {
		t.Fatalf("GetActiveSession: %v", err)
	}
	if active != nil {
		t.Fatalf("expected no active session, got %+v", active)
	}

	err = db.CreateWorkSession(ctx, "ws-1", "alice", SessionOptions{
		IssueKey:     "PROJ-1",
		IssueSummary: "Fix login flow",
		BranchName:   "feature/proj-1-fix-login-flow",
	})
	if err != nil {
		t.Fatalf("CreateWorkSession: %v", err)
	}

	active, err = db.GetActiveSession(ctx, "alice")
	if err != nil {
		t.Fatalf("GetActiveSession: %v", err)
	}
	if active == nil || active.ID != "ws-1" || active.IssueKey != "PROJ-1" {
		t.Fatalf("active session = %+v, want ws-1/PROJ-1", active)
	}

	err = db.EndWorkSession(ctx, "ws-1", StatusCompleted, EndOptions{TotalMinutes: 90})
	if err != nil {
		t.Fatalf("EndWorkSession: %v", err)
	}

	active, err = db.GetActiveSession(ctx, "alice")
	if err != nil {
		t.Fatalf("GetActiveSession: %v", err)
	}
	if active != nil {
		t.Errorf("session still active after end: %+v", active)
	}

	ended, err := db.GetLastEndedSessions(ctx, "alice", 5)
	if err != nil {
		t.Fatalf("GetLastEndedSessions: %v", err)
	}
	if len(ended) != 1 {
		t.Fatalf("got %d ended sessions, want 1", len(ended))
	}
	s := ended[0]
	if s.Status != StatusCompleted || s.TotalMinutes != 90 || s.EndedAt == "" {
		t.Errorf("ended session = %+v", s)
	}
}

func TestLocalMicroTasks(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.EnsureDeveloper(ctx, "alice", "Alice"); err != nil {
		t.Fatalf("EnsureDeveloper: %v", err)
	}
	if err := db.CreateWorkSession(ctx, "ws-1", "alice", SessionOptions{IssueKey: "PROJ-2"}); err != nil {
		t.Fatalf("CreateWorkSession: %v", err)
	}
	tasks := []MicroTaskInput{
		{ID: "mt-1", Title: "Write failing test", SortOrder: 0},
		{ID: "mt-2", Title: "Make it pass", SortOrder: 1},
	}
	if err := db.AddMicroTasks(ctx, "ws-1", tasks); err != nil {
		t.Fatalf("AddMicroTasks: %v", err)
	}
	if err := db.CompleteMicroTask(ctx, "mt-1"); err != nil {
		t.Fatalf("CompleteMicroTask: %v", err)
	}

	got, err := db.GetMicroTasks(ctx, "ws-1")
	if err != nil {
		t.Fatalf("GetMicroTasks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d tasks, want 2", len(got))
	}
	if got[0].ID != "mt-1" || got[0].Status != TaskDone {
		t.Errorf("first task = %+v, want mt-1 done", got[0])
	}
	if got[1].ID != "mt-2" || got[1].Status != TaskPending {
		t.Errorf("second task = %+v, want mt-2 pending", got[1])
	}
}

func TestLocalHandoffs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, dev := range []string{"alice", "bob"} {
		if err := db.EnsureDeveloper(ctx, dev, dev); err != nil {
			t.Fatalf("EnsureDeveloper(%s): %v", dev, err)
		}
	}
	err := db.CreateHandoff(ctx, Handoff{
		ID:             "ho-1",
		FromDeveloper:  "alice",
		ToDeveloper:    "bob",
		Title:          "Handoff: PROJ-3",
		ContextSummary: "Auth refactor half done",
		WhatDone:       "Extracted token validation",
		WhatNext:       "Wire refresh endpoint",
		BranchName:     "feature/proj-3-auth-refactor",
	})
	if err != nil {
		t.Fatalf("CreateHandoff: %v", err)
	}

	pending, err := db.GetPendingHandoffs(ctx, "bob")
	if err != nil {
		t.Fatalf("GetPendingHandoffs: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending handoffs, want 1", len(pending))
	}
	h := pending[0]
	if h.ID != "ho-1" || h.FromDeveloper != "alice" || h.ContextSummary != "Auth refactor half done" {
		t.Errorf("handoff = %+v", h)
	}

	none, err := db.GetPendingHandoffs(ctx, "alice")
	if err != nil {
		t.Fatalf("GetPendingHandoffs: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("alice should have no pending handoffs, got %d", len(none))
	}
}

func TestLocalProgressLogs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.EnsureDeveloper(ctx, "alice", "Alice"); err != nil {
		t.Fatalf("EnsureDeveloper: %v", err)
	}
	if err := db.CreateWorkSession(ctx, "ws-1", "alice", SessionOptions{}); err != nil {
		t.Fatalf("CreateWorkSession: %v", err)
	}
	if err := db.AddProgressLog(ctx, "pl-1", "ws-1", "parsed config", 25, "abc123"); err != nil {
		t.Fatalf("AddProgressLog: %v", err)
	}
	if err := db.AddProgressLog(ctx, "pl-2", "ws-1", "wired handler", 15, ""); err != nil {
		t.Fatalf("AddProgressLog: %v", err)
	}

	logs, err := db.GetProgressLogs(ctx, "ws-1", 10)
	if err != nil {
		t.Fatalf("GetProgressLogs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("got %d logs, want 2", len(logs))
	}
	var total int
	for _, l := range logs {
		total += l.MinutesLogged
	}
	if total != 40 {
		t.Errorf("total minutes = %d, want 40", total)
	}
}
