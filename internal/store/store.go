// Package store persists Relay's work-tracker state: developers, work
// sessions, micro-tasks, progress logs, and handoffs.
//
// The DB interface has two implementations. MCPAdapter issues generic
// query(sql, values) invocations through the tool gateway, so the store can
// live behind any sqlite-speaking MCP backend. Local opens the database
// file directly with the embedded SQLite driver for single-machine setups.
// Both apply the same idempotent schema on first use.
package store

import "context"

// Session statuses. A session is created active and ends exactly once;
// it is never deleted.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusHandedOff = "handed_off"
	StatusPaused    = "paused"
)

// Micro-task statuses.
const (
	TaskPending = "pending"
	TaskDone    = "done"
)

// Session is one developer's continuous engagement with one issue.
type Session struct {
	ID              string `json:"id"`
	DeveloperID     string `json:"developer_id"`
	IssueKey        string `json:"issue_key,omitempty"`
	IssueSummary    string `json:"issue_summary,omitempty"`
	BranchName      string `json:"branch_name,omitempty"`
	Status          string `json:"status"`
	StartedAt       string `json:"started_at"`
	EndedAt         string `json:"ended_at,omitempty"`
	MergeRequestURL string `json:"merge_request_url,omitempty"`
	TotalMinutes    int    `json:"total_minutes,omitempty"`
}

// ActiveSession is the compact active-session row used for context lookups.
type ActiveSession struct {
	ID       string `json:"id"`
	IssueKey string `json:"issue_key,omitempty"`
}

// MicroTask is an ordered sub-item of a session.
type MicroTask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	SortOrder int    `json:"sort_order"`
}

// MicroTaskInput is the caller-supplied shape for bulk micro-task creation.
type MicroTaskInput struct {
	ID        string
	Title     string
	SortOrder int
}

// ProgressLog is one append-only progress entry.
type ProgressLog struct {
	ID            string `json:"id"`
	Note          string `json:"note,omitempty"`
	MinutesLogged int    `json:"minutes_logged"`
	CommitSHA     string `json:"commit_sha,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// PendingHandoff is a handoff awaiting acceptance by its recipient.
type PendingHandoff struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	FromDeveloper  string `json:"from_developer_id"`
	ContextSummary string `json:"context_summary,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// Handoff is the full record of a context transfer between developers.
type Handoff struct {
	ID             string
	FromDeveloper  string
	ToDeveloper    string
	WorkSessionID  string
	Title          string
	ContextSummary string
	WhatDone       string
	WhatNext       string
	BranchName     string
	FileList       string
	BlockersNotes  string
}

// SessionOptions carries the nullable columns of a new work session.
type SessionOptions struct {
	IssueKey     string
	IssueSummary string
	BranchName   string
}

// EndOptions carries the nullable columns set when a session ends.
type EndOptions struct {
	MergeRequestURL string
	TotalMinutes    int
}

// DB is the persistence surface the workflow layer depends on.
//
// Store writes are data-integrity operations: implementations return errors
// and callers must propagate them, unlike best-effort upstream side effects.
// Lookups return nil (or an empty slice), not an error, when nothing matches.
type DB interface {
	EnsureDeveloper(ctx context.Context, id, displayName string) error
	GetActiveSession(ctx context.Context, developerID string) (*ActiveSession, error)
	GetPendingHandoffs(ctx context.Context, developerID string) ([]PendingHandoff, error)
	CreateWorkSession(ctx context.Context, id, developerID string, opts SessionOptions) error
	AddMicroTasks(ctx context.Context, sessionID string, tasks []MicroTaskInput) error
	CompleteMicroTask(ctx context.Context, taskID string) error
	EndWorkSession(ctx context.Context, sessionID, status string, opts EndOptions) error
	CreateHandoff(ctx context.Context, h Handoff) error
	AddProgressLog(ctx context.Context, id, sessionID, note string, minutesLogged int, commitSHA string) error
	GetProgressLogs(ctx context.Context, sessionID string, limit int) ([]ProgressLog, error)
	GetMicroTasks(ctx context.Context, sessionID string) ([]MicroTask, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	GetLastEndedSessions(ctx context.Context, developerID string, limit int) ([]Session, error)
	GetWorkSessionsForDeveloper(ctx context.Context, developerID string, limit int) ([]Session, error)
}
