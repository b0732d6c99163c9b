package store

import "strings"

// schema is the work-tracker DDL. Every statement is idempotent
// (IF NOT EXISTS) so it can run on every process start.
const schema = `
-- Relay work-tracker schema.

CREATE TABLE IF NOT EXISTS developers (
    id           TEXT PRIMARY KEY,
    display_name TEXT NOT NULL,
    email        TEXT,
    tracker_user_id TEXT,
    created_at   TEXT DEFAULT (datetime('now')),
    updated_at   TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS work_sessions (
    id                TEXT PRIMARY KEY,
    developer_id      TEXT NOT NULL,
    issue_key         TEXT,
    issue_summary     TEXT,
    branch_name       TEXT,
    status            TEXT NOT NULL DEFAULT 'active',
    started_at        TEXT NOT NULL DEFAULT (datetime('now')),
    ended_at          TEXT,
    merge_request_url TEXT,
    total_minutes     INTEGER,
    created_at        TEXT DEFAULT (datetime('now')),
    updated_at        TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_work_sessions_developer
    ON work_sessions (developer_id, status);

CREATE TABLE IF NOT EXISTS micro_tasks (
    id              TEXT PRIMARY KEY,
    work_session_id TEXT NOT NULL,
    title           TEXT NOT NULL,
    sort_order      INTEGER DEFAULT 0,
    status          TEXT NOT NULL DEFAULT 'pending',
    completed_at    TEXT,
    created_at      TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_micro_tasks_session
    ON micro_tasks (work_session_id, sort_order);

CREATE TABLE IF NOT EXISTS handoffs (
    id                TEXT PRIMARY KEY,
    from_developer_id TEXT NOT NULL,
    to_developer_id   TEXT NOT NULL,
    work_session_id   TEXT,
    title             TEXT NOT NULL,
    context_summary   TEXT,
    what_done         TEXT,
    what_next         TEXT,
    branch_name       TEXT,
    file_list         TEXT,
    blockers_notes    TEXT,
    status            TEXT NOT NULL DEFAULT 'pending',
    created_at        TEXT DEFAULT (datetime('now')),
    accepted_at       TEXT
);

CREATE INDEX IF NOT EXISTS idx_handoffs_recipient
    ON handoffs (to_developer_id, status);

CREATE TABLE IF NOT EXISTS progress_logs (
    id              TEXT PRIMARY KEY,
    work_session_id TEXT NOT NULL,
    note            TEXT,
    minutes_logged  INTEGER DEFAULT 0,
    commit_sha      TEXT,
    created_at      TEXT DEFAULT (datetime('now'))
);

CREATE TRIGGER IF NOT EXISTS work_sessions_touch_updated
AFTER UPDATE ON work_sessions
FOR EACH ROW
BEGIN
    UPDATE work_sessions SET updated_at = datetime('now') WHERE id = NEW.id;
END;
`

// SplitStatements splits a multi-statement SQL script on statement
// boundaries while keeping BEGIN…END bodies (triggers) whole. A naive
// split on semicolons would cut a trigger definition mid-body and corrupt
// it. Line comments are stripped first.
func SplitStatements(script string) []string {
	var sb strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if i := strings.Index(line, "--"); i >= 0 {
			line = line[:i]
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	stripped := sb.String()

	var (
		statements []string
		current    strings.Builder
		depth      int
	)
	flush := func() {
		stmt := strings.TrimSpace(current.String())
		current.Reset()
		if stmt != "" {
			statements = append(statements, stmt+";")
		}
	}

	for _, chunk := range strings.Split(stripped, ";") {
		upper := strings.ToUpper(chunk)
		depth += countWord(upper, "BEGIN")
		depth -= countWord(upper, "END")
		current.WriteString(chunk)
		if depth > 0 {
			// Inside a trigger body; the semicolon belongs to the statement.
			current.WriteString(";")
			continue
		}
		flush()
	}
	flush()
	return statements
}

// countWord counts whole-word occurrences of w in s.
func countWord(s, w string) int {
	count := 0
	for i := 0; ; {
		j := strings.Index(s[i:], w)
		if j < 0 {
			return count
		}
		j += i
		before := j == 0 || !isWordByte(s[j-1])
		afterIdx := j + len(w)
		after := afterIdx >= len(s) || !isWordByte(s[afterIdx])
		if before && after {
			count++
		}
		i = afterIdx
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
