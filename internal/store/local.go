package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Local is a DB implementation that opens the work-tracker database
// directly, without going through a store backend. It is used when no
// persistence backend is configured, or explicitly via config.
type Local struct {
	db *sql.DB
}

// OpenLocal opens (creating if needed) the database at path, applies
// SQLite pragmas, and runs the schema.
func OpenLocal(path string) (*Local, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	for _, stmt := range SplitStatements(schema) {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: schema: %w", err)
		}
	}

	return &Local{db: db}, nil
}

// Close closes the underlying database connection.
func (l *Local) Close() error {
	return l.db.Close()
}

func (l *Local) EnsureDeveloper(ctx context.Context, id, displayName string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO developers (id, display_name)
		 VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name,
		   updated_at = datetime('now')`,
		id, displayName)
	return err
}

func (l *Local) GetActiveSession(ctx context.Context, developerID string) (*ActiveSession, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, COALESCE(issue_key, '') FROM work_sessions
		 WHERE developer_id = ? AND status = 'active'
		 ORDER BY started_at DESC LIMIT 1`,
		developerID)
	var s ActiveSession
	switch err := row.Scan(&s.ID, &s.IssueKey); err {
	case nil:
		return &s, nil
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, err
	}
}

func (l *Local) GetPendingHandoffs(ctx context.Context, developerID string) ([]PendingHandoff, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, title, from_developer_id, COALESCE(context_summary, ''), created_at
		 FROM handoffs WHERE to_developer_id = ? AND status = 'pending'
		 ORDER BY created_at DESC`,
		developerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingHandoff
	for rows.Next() {
		var h PendingHandoff
		if err := rows.Scan(&h.ID, &h.Title, &h.FromDeveloper, &h.ContextSummary, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (l *Local) CreateWorkSession(ctx context.Context, id, developerID string, opts SessionOptions) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO work_sessions (id, developer_id, issue_key, issue_summary, branch_name, status)
		 VALUES (?, ?, ?, ?, ?, 'active')`,
		id, developerID, nullable(opts.IssueKey), nullable(opts.IssueSummary), nullable(opts.BranchName))
	return err
}

func (l *Local) AddMicroTasks(ctx context.Context, sessionID string, tasks []MicroTaskInput) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO micro_tasks (id, work_session_id, title, sort_order) VALUES (?, ?, ?, ?)`,
			t.ID, sessionID, t.Title, t.SortOrder)
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (l *Local) CompleteMicroTask(ctx context.Context, taskID string) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE micro_tasks SET status = 'done', completed_at = datetime('now') WHERE id = ?`,
		taskID)
	return err
}

func (l *Local) EndWorkSession(ctx context.Context, sessionID, status string, opts EndOptions) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE work_sessions SET status = ?, ended_at = datetime('now'),
		 merge_request_url = ?, total_minutes = ? WHERE id = ?`,
		status, nullable(opts.MergeRequestURL), nullableInt(opts.TotalMinutes), sessionID)
	return err
}

func (l *Local) CreateHandoff(ctx context.Context, h Handoff) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO handoffs (id, from_developer_id, to_developer_id, work_session_id, title,
		 context_summary, what_done, what_next, branch_name, file_list, blockers_notes, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending')`,
		h.ID, h.FromDeveloper, h.ToDeveloper, nullable(h.WorkSessionID), h.Title,
		nullable(h.ContextSummary), nullable(h.WhatDone), nullable(h.WhatNext),
		nullable(h.BranchName), nullable(h.FileList), nullable(h.BlockersNotes))
	return err
}

func (l *Local) AddProgressLog(ctx context.Context, id, sessionID, note string, minutesLogged int, commitSHA string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO progress_logs (id, work_session_id, note, minutes_logged, commit_sha)
		 VALUES (?, ?, ?, ?, ?)`,
		id, sessionID, nullable(note), minutesLogged, nullable(commitSHA))
	return err
}

func (l *Local) GetProgressLogs(ctx context.Context, sessionID string, limit int) ([]ProgressLog, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, COALESCE(note, ''), COALESCE(minutes_logged, 0), COALESCE(commit_sha, ''), created_at
		 FROM progress_logs WHERE work_session_id = ? ORDER BY created_at DESC LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProgressLog
	for rows.Next() {
		var p ProgressLog
		if err := rows.Scan(&p.ID, &p.Note, &p.MinutesLogged, &p.CommitSHA, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (l *Local) GetMicroTasks(ctx context.Context, sessionID string) ([]MicroTask, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, title, status, sort_order FROM micro_tasks
		 WHERE work_session_id = ? ORDER BY sort_order`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MicroTask
	for rows.Next() {
		var t MicroTask
		if err := rows.Scan(&t.ID, &t.Title, &t.Status, &t.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const localSessionSelect = `SELECT id, developer_id, COALESCE(issue_key, ''),
 COALESCE(issue_summary, ''), COALESCE(branch_name, ''), status, started_at,
 COALESCE(ended_at, ''), COALESCE(merge_request_url, ''), COALESCE(total_minutes, 0)
 FROM work_sessions`

func scanSession(row interface{ Scan(...any) error }) (Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.DeveloperID, &s.IssueKey, &s.IssueSummary, &s.BranchName,
		&s.Status, &s.StartedAt, &s.EndedAt, &s.MergeRequestURL, &s.TotalMinutes)
	return s, err
}

func (l *Local) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	row := l.db.QueryRowContext(ctx, localSessionSelect+` WHERE id = ?`, sessionID)
	s, err := scanSession(row)
	switch err {
	case nil:
		return &s, nil
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, err
	}
}

func (l *Local) querySessions(ctx context.Context, query string, args ...any) ([]Session, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (l *Local) GetLastEndedSessions(ctx context.Context, developerID string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 5
	}
	return l.querySessions(ctx,
		localSessionSelect+` WHERE developer_id = ? AND status != 'active' AND ended_at IS NOT NULL
		 ORDER BY ended_at DESC LIMIT ?`,
		developerID, limit)
}

func (l *Local) GetWorkSessionsForDeveloper(ctx context.Context, developerID string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	return l.querySessions(ctx,
		localSessionSelect+` WHERE developer_id = ? ORDER BY started_at DESC LIMIT ?`,
		developerID, limit)
}
