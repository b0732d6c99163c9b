package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/devrelay/relay/internal/gateway"
)

// queryOperation is the generic query tool exposed by sqlite MCP servers.
const queryOperation = "query"

// MCPAdapter implements DB over the store backend's generic query tool.
// Every method becomes one or more invoke(store, "query", {sql, values})
// calls through the gateway.
type MCPAdapter struct {
	gw gateway.Invoker

	mu         sync.Mutex
	schemaDone bool
}

// NewMCPAdapter creates an adapter over the given gateway.
func NewMCPAdapter(gw gateway.Invoker) *MCPAdapter {
	return &MCPAdapter{gw: gw}
}

// ensureSchema applies the work-tracker schema once per process, before
// the first real query. The DDL is idempotent so a crash between
// statements is repaired on the next start.
func (a *MCPAdapter) ensureSchema(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.schemaDone {
		return nil
	}
	for _, stmt := range SplitStatements(schema) {
		res, err := a.gw.Invoke(ctx, gateway.Store, queryOperation, map[string]any{"sql": stmt})
		if err != nil {
			return err
		}
		if res.IsError {
			return fmt.Errorf("store: schema statement failed: %s", res.Text)
		}
	}
	a.schemaDone = true
	return nil
}

// parseRows extracts a row list from a query response. Backends answer in
// one of three shapes: a bare JSON array, an object with a "rows" field,
// or an object with a "results" field. Anything else yields no rows.
func parseRows(content string) []map[string]any {
	trimmed := []byte(content)

	var direct []map[string]any
	if err := json.Unmarshal(trimmed, &direct); err == nil {
		return direct
	}

	var wrapped struct {
		Rows    []map[string]any `json:"rows"`
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err == nil {
		if wrapped.Rows != nil {
			return wrapped.Rows
		}
		if wrapped.Results != nil {
			return wrapped.Results
		}
	}
	return nil
}

// runQuery executes sql and returns parsed rows. Store failures propagate
// as errors: persistence is not best-effort.
func (a *MCPAdapter) runQuery(ctx context.Context, sql string, values []any) ([]map[string]any, error) {
	if err := a.ensureSchema(ctx); err != nil {
		return nil, err
	}
	args := map[string]any{"sql": sql}
	if values != nil {
		args["values"] = values
	}
	res, err := a.gw.Invoke(ctx, gateway.Store, queryOperation, args)
	if err != nil {
		return nil, err
	}
	if res.IsError {
		return nil, fmt.Errorf("store: query failed: %s", res.Text)
	}
	return parseRows(res.Text), nil
}

// runWrite executes sql and discards any result rows.
func (a *MCPAdapter) runWrite(ctx context.Context, sql string, values []any) error {
	_, err := a.runQuery(ctx, sql, values)
	return err
}

func (a *MCPAdapter) EnsureDeveloper(ctx context.Context, id, displayName string) error {
	return a.runWrite(ctx,
		`INSERT INTO developers (id, display_name)
		 VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name,
		   updated_at = datetime('now')`,
		[]any{id, displayName})
}

func (a *MCPAdapter) GetActiveSession(ctx context.Context, developerID string) (*ActiveSession, error) {
	rows, err := a.runQuery(ctx,
		`SELECT id, issue_key FROM work_sessions
		 WHERE developer_id = ? AND status = 'active'
		 ORDER BY started_at DESC LIMIT 1`,
		[]any{developerID})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &ActiveSession{
		ID:       rowString(rows[0], "id"),
		IssueKey: rowString(rows[0], "issue_key"),
	}, nil
}

func (a *MCPAdapter) GetPendingHandoffs(ctx context.Context, developerID string) ([]PendingHandoff, error) {
	rows, err := a.runQuery(ctx,
		`SELECT id, title, from_developer_id, context_summary, created_at
		 FROM handoffs WHERE to_developer_id = ? AND status = 'pending'
		 ORDER BY created_at DESC`,
		[]any{developerID})
	if err != nil {
		return nil, err
	}
	out := make([]PendingHandoff, 0, len(rows))
	for _, r := range rows {
		out = append(out, PendingHandoff{
			ID:             rowString(r, "id"),
			Title:          rowString(r, "title"),
			FromDeveloper:  rowString(r, "from_developer_id"),
			ContextSummary: rowString(r, "context_summary"),
			CreatedAt:      rowString(r, "created_at"),
		})
	}
	return out, nil
}

func (a *MCPAdapter) CreateWorkSession(ctx context.Context, id, developerID string, opts SessionOptions) error {
	return a.runWrite(ctx,
		`INSERT INTO work_sessions (id, developer_id, issue_key, issue_summary, branch_name, status)
		 VALUES (?, ?, ?, ?, ?, 'active')`,
		[]any{id, developerID, nullable(opts.IssueKey), nullable(opts.IssueSummary), nullable(opts.BranchName)})
}

func (a *MCPAdapter) AddMicroTasks(ctx context.Context, sessionID string, tasks []MicroTaskInput) error {
	for _, t := range tasks {
		err := a.runWrite(ctx,
			`INSERT INTO micro_tasks (id, work_session_id, title, sort_order) VALUES (?, ?, ?, ?)`,
			[]any{t.ID, sessionID, t.Title, t.SortOrder})
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *MCPAdapter) CompleteMicroTask(ctx context.Context, taskID string) error {
	return a.runWrite(ctx,
		`UPDATE micro_tasks SET status = 'done', completed_at = datetime('now') WHERE id = ?`,
		[]any{taskID})
}

func (a *MCPAdapter) EndWorkSession(ctx context.Context, sessionID, status string, opts EndOptions) error {
	return a.runWrite(ctx,
		`UPDATE work_sessions SET status = ?, ended_at = datetime('now'),
		 merge_request_url = ?, total_minutes = ? WHERE id = ?`,
		[]any{status, nullable(opts.MergeRequestURL), nullableInt(opts.TotalMinutes), sessionID})
}

func (a *MCPAdapter) CreateHandoff(ctx context.Context, h Handoff) error {
	return a.runWrite(ctx,
		`INSERT INTO handoffs (id, from_developer_id, to_developer_id, work_session_id, title,
		 context_summary, what_done, what_next, branch_name, file_list, blockers_notes, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending')`,
		[]any{
			h.ID, h.FromDeveloper, h.ToDeveloper, nullable(h.WorkSessionID), h.Title,
			nullable(h.ContextSummary), nullable(h.WhatDone), nullable(h.WhatNext),
			nullable(h.BranchName), nullable(h.FileList), nullable(h.BlockersNotes),
		})
}

func (a *MCPAdapter) AddProgressLog(ctx context.Context, id, sessionID, note string, minutesLogged int, commitSHA string) error {
	return a.runWrite(ctx,
		`INSERT INTO progress_logs (id, work_session_id, note, minutes_logged, commit_sha)
		 VALUES (?, ?, ?, ?, ?)`,
		[]any{id, sessionID, nullable(note), minutesLogged, nullable(commitSHA)})
}

func (a *MCPAdapter) GetProgressLogs(ctx context.Context, sessionID string, limit int) ([]ProgressLog, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := a.runQuery(ctx,
		`SELECT id, note, minutes_logged, commit_sha, created_at FROM progress_logs
		 WHERE work_session_id = ? ORDER BY created_at DESC LIMIT ?`,
		[]any{sessionID, limit})
	if err != nil {
		return nil, err
	}
	out := make([]ProgressLog, 0, len(rows))
	for _, r := range rows {
		out = append(out, ProgressLog{
			ID:            rowString(r, "id"),
			Note:          rowString(r, "note"),
			MinutesLogged: rowInt(r, "minutes_logged"),
			CommitSHA:     rowString(r, "commit_sha"),
			CreatedAt:     rowString(r, "created_at"),
		})
	}
	return out, nil
}

func (a *MCPAdapter) GetMicroTasks(ctx context.Context, sessionID string) ([]MicroTask, error) {
	rows, err := a.runQuery(ctx,
		`SELECT id, title, status, sort_order FROM micro_tasks
		 WHERE work_session_id = ? ORDER BY sort_order`,
		[]any{sessionID})
	if err != nil {
		return nil, err
	}
	out := make([]MicroTask, 0, len(rows))
	for _, r := range rows {
		out = append(out, MicroTask{
			ID:        rowString(r, "id"),
			Title:     rowString(r, "title"),
			Status:    rowString(r, "status"),
			SortOrder: rowInt(r, "sort_order"),
		})
	}
	return out, nil
}

func (a *MCPAdapter) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	rows, err := a.runQuery(ctx, sessionSelect+` WHERE id = ?`, []any{sessionID})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	s := sessionFromRow(rows[0])
	return &s, nil
}

func (a *MCPAdapter) GetLastEndedSessions(ctx context.Context, developerID string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := a.runQuery(ctx,
		sessionSelect+` WHERE developer_id = ? AND status != 'active' AND ended_at IS NOT NULL
		 ORDER BY ended_at DESC LIMIT ?`,
		[]any{developerID, limit})
	if err != nil {
		return nil, err
	}
	return sessionsFromRows(rows), nil
}

func (a *MCPAdapter) GetWorkSessionsForDeveloper(ctx context.Context, developerID string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.runQuery(ctx,
		sessionSelect+` WHERE developer_id = ? ORDER BY started_at DESC LIMIT ?`,
		[]any{developerID, limit})
	if err != nil {
		return nil, err
	}
	return sessionsFromRows(rows), nil
}

const sessionSelect = `SELECT id, developer_id, issue_key, issue_summary, branch_name,
 status, started_at, ended_at, merge_request_url, total_minutes FROM work_sessions`

func sessionFromRow(r map[string]any) Session {
	return Session{
		ID:              rowString(r, "id"),
		DeveloperID:     rowString(r, "developer_id"),
		IssueKey:        rowString(r, "issue_key"),
		IssueSummary:    rowString(r, "issue_summary"),
		BranchName:      rowString(r, "branch_name"),
		Status:          rowString(r, "status"),
		StartedAt:       rowString(r, "started_at"),
		EndedAt:         rowString(r, "ended_at"),
		MergeRequestURL: rowString(r, "merge_request_url"),
		TotalMinutes:    rowInt(r, "total_minutes"),
	}
}

func sessionsFromRows(rows []map[string]any) []Session {
	out := make([]Session, 0, len(rows))
	for _, r := range rows {
		out = append(out, sessionFromRow(r))
	}
	return out
}

// rowString reads a column as a string, tolerating null and numeric values.
func rowString(r map[string]any, key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%v", v)
	default:
		return ""
	}
}

// rowInt reads a column as an int, tolerating null and string values.
func rowInt(r map[string]any, key string) int {
	switch v := r[key].(type) {
	case float64:
		return int(v)
	case string:
		var n int
		_, _ = fmt.Sscanf(v, "%d", &n)
		return n
	default:
		return 0
	}
}

// nullable maps the empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullableInt maps zero to SQL NULL, matching the schema's nullable
// integer columns.
func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
