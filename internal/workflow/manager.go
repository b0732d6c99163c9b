// Package workflow orchestrates developer workflow across the issue
// tracker, the code host, and the local work-tracker store. Operations
// talk to backends through the capability resolver only; upstream side
// effects are best-effort while local store writes are authoritative.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/devrelay/relay/internal/capability"
	"github.com/devrelay/relay/internal/config"
	"github.com/devrelay/relay/internal/issuestate"
	"github.com/devrelay/relay/internal/store"
)

// Manager wires the store, the backends, and the tracker state module
// into the orchestration operations.
type Manager struct {
	db       store.DB
	resolver *capability.Resolver
	tracker  *issuestate.Tracker
	git      *GitClient
	cfg      config.Config
	log      *slog.Logger

	// injectable for tests
	newID   func() string
	timeNow func() time.Time
}

// NewManager creates a Manager from its collaborators.
func NewManager(db store.DB, resolver *capability.Resolver, tracker *issuestate.Tracker, cfg config.Config, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		db:       db,
		resolver: resolver,
		tracker:  tracker,
		git:      NewGitClient(cfg.WorkspacePath),
		cfg:      cfg,
		log:      log,
		newID:    uuid.NewString,
		timeNow:  time.Now,
	}
}

func (m *Manager) developer(developerID string) string {
	if developerID != "" {
		return developerID
	}
	return m.cfg.DeveloperID
}

// ActiveSessionRef is the compact view of a developer's open session.
type ActiveSessionRef struct {
	ID       string `json:"id"`
	IssueKey string `json:"issueKey,omitempty"`
}

// CheckinResult is the morning-checkin / end-of-day snapshot.
type CheckinResult struct {
	PendingHandoffs []store.PendingHandoff `json:"pendingHandoffs"`
	AssignedIssues  []IssueRef             `json:"assignedIssues"`
	CurrentBranch   string                 `json:"currentBranch"`
	RecentCommits   []Commit               `json:"recentCommits"`
	ActiveSession   *ActiveSessionRef      `json:"activeSession"`
	TrackerError    string                 `json:"trackerError,omitempty"`
	CodeHostError   string                 `json:"codeHostError,omitempty"`
	Message         string                 `json:"message,omitempty"`
}

func truncateError(text string) string {
	if text == "" {
		text = "Unknown error"
	}
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

// MorningCheckin assembles the start-of-day picture: pending handoffs,
// assigned open issues, repository state, and any active session.
// Backend failures degrade to error strings in the result.
func (m *Manager) MorningCheckin(ctx context.Context, developerID string) (*CheckinResult, error) {
	devID := m.developer(developerID)
	if err := m.db.EnsureDeveloper(ctx, devID, devID); err != nil {
		return nil, fmt.Errorf("workflow: ensure developer: %w", err)
	}

	out := &CheckinResult{}

	handoffs, err := m.db.GetPendingHandoffs(ctx, devID)
	if err != nil {
		return nil, fmt.Errorf("workflow: pending handoffs: %w", err)
	}
	out.PendingHandoffs = handoffs

	jql := "assignee = currentUser() AND status != Done ORDER BY updated DESC"
	searchRes, err := m.resolver.Invoke(ctx, capability.SearchIssues, capability.SearchArgs(jql, 20))
	switch {
	case err != nil:
		out.TrackerError = truncateError(err.Error())
	case searchRes.IsError:
		out.TrackerError = truncateError(searchRes.Text)
	default:
		out.AssignedIssues = parseIssues(searchRes.Text)
	}

	m.repoSnapshot(ctx, out)

	active, err := m.db.GetActiveSession(ctx, devID)
	if err != nil {
		return nil, fmt.Errorf("workflow: active session: %w", err)
	}
	if active != nil {
		out.ActiveSession = &ActiveSessionRef{ID: active.ID, IssueKey: active.IssueKey}
	}
	return out, nil
}

// repoSnapshot fills branch and commit info, preferring the code host
// backend and falling back to the local git client.
func (m *Manager) repoSnapshot(ctx context.Context, out *CheckinResult) {
	repoArgs := capability.RepoArgs(m.cfg.WorkspacePath)

	statusRes, err := m.resolver.Invoke(ctx, capability.RepoStatus, repoArgs)
	if err == nil && !statusRes.IsError {
		out.CurrentBranch = parseBranch(statusRes.Text)
	}
	logRes, logErr := m.resolver.Invoke(ctx, capability.CommitLog, capability.LogArgs(m.cfg.WorkspacePath, 5))
	if logErr == nil && !logRes.IsError {
		out.RecentCommits = parseCommitLog(logRes.Text)
	}

	if err != nil || statusRes.IsError || logErr != nil || logRes.IsError {
		failed := statusRes.Text
		if err != nil {
			failed = err.Error()
		} else if !statusRes.IsError {
			failed = logRes.Text
		}
		out.CodeHostError = truncateError(failed)
		if m.git.IsRepository() {
			if out.CurrentBranch == "" {
				out.CurrentBranch = m.git.CurrentBranch(ctx)
			}
			if len(out.RecentCommits) == 0 {
				out.RecentCommits = m.git.RecentCommits(ctx, 5)
			}
		}
	}
}

// MicroTaskRef identifies one created micro-task.
type MicroTaskRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// StartTaskResult is what StartTask hands back to the caller.
type StartTaskResult struct {
	SessionID       string         `json:"sessionId"`
	IssueKey        string         `json:"issueKey"`
	Summary         string         `json:"summary"`
	SuggestedBranch string         `json:"suggestedBranch"`
	MicroTasks      []MicroTaskRef `json:"microTasks"`
}

// StartTask opens a work session on an issue: fetches its summary,
// best-effort moves it to In Progress, suggests a branch name, and
// records the session with its micro-tasks. Tracker failures never block
// the local session; a failed fetch falls back to the key as summary.
func (m *Manager) StartTask(ctx context.Context, issueKey string, microTaskTitles []string, developerID string) (*StartTaskResult, error) {
	devID := m.developer(developerID)
	if err := m.db.EnsureDeveloper(ctx, devID, devID); err != nil {
		return nil, fmt.Errorf("workflow: ensure developer: %w", err)
	}

	summary := issueKey
	getRes, err := m.resolver.Invoke(ctx, capability.GetIssue, capability.IssueArgs(issueKey))
	if err == nil && !getRes.IsError && getRes.Text != "" {
		if s := parseIssueSummary(getRes.Text); s != "" {
			summary = s
		}
		if _, err := m.resolver.Invoke(ctx, capability.TransitionIssue,
			capability.TransitionArgs(issueKey, "In Progress")); err != nil {
			m.log.Debug("transition to In Progress failed", "issue", issueKey, "error", err)
		}
	}

	sessionID := m.newID()
	suggestedBranch := SuggestBranchName(issueKey, summary)

	err = m.db.CreateWorkSession(ctx, sessionID, devID, store.SessionOptions{
		IssueKey:     issueKey,
		IssueSummary: summary,
		BranchName:   suggestedBranch,
	})
	if err != nil {
		return nil, fmt.Errorf("workflow: create session: %w", err)
	}

	titles := microTaskTitles
	if len(titles) == 0 {
		titles = []string{"Implement and test"}
	}
	var (
		inputs []store.MicroTaskInput
		refs   []MicroTaskRef
	)
	for i, title := range titles {
		id := m.newID()
		inputs = append(inputs, store.MicroTaskInput{ID: id, Title: title, SortOrder: i})
		refs = append(refs, MicroTaskRef{ID: id, Title: title})
	}
	if err := m.db.AddMicroTasks(ctx, sessionID, inputs); err != nil {
		return nil, fmt.Errorf("workflow: add micro-tasks: %w", err)
	}

	return &StartTaskResult{
		SessionID:       sessionID,
		IssueKey:        issueKey,
		Summary:         summary,
		SuggestedBranch: suggestedBranch,
		MicroTasks:      refs,
	}, nil
}

// UpdateProgress logs progress against a session and optionally completes
// a micro-task.
func (m *Manager) UpdateProgress(ctx context.Context, sessionID, note string, minutesLogged int, commitSHA, microTaskID string) error {
	if microTaskID != "" {
		if err := m.db.CompleteMicroTask(ctx, microTaskID); err != nil {
			return fmt.Errorf("workflow: complete micro-task: %w", err)
		}
	}
	if err := m.db.AddProgressLog(ctx, m.newID(), sessionID, note, minutesLogged, commitSHA); err != nil {
		return fmt.Errorf("workflow: add progress log: %w", err)
	}
	return nil
}

// CompleteTask closes a session as completed, then best-effort moves the
// linked issue to Done. The local completion stands even when the
// tracker transition fails.
func (m *Manager) CompleteTask(ctx context.Context, sessionID, mergeRequestURL string, totalMinutes int) error {
	err := m.db.EndWorkSession(ctx, sessionID, store.StatusCompleted, store.EndOptions{
		MergeRequestURL: mergeRequestURL,
		TotalMinutes:    totalMinutes,
	})
	if err != nil {
		return fmt.Errorf("workflow: end session: %w", err)
	}

	session, err := m.db.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("workflow: load session: %w", err)
	}
	if session != nil && session.IssueKey != "" {
		if _, err := m.resolver.Invoke(ctx, capability.TransitionIssue,
			capability.TransitionArgs(session.IssueKey, "Done")); err != nil {
			m.log.Debug("transition to Done failed", "issue", session.IssueKey, "error", err)
		}
	}
	return nil
}

// HandoffInput collects everything CreateHandoff needs.
type HandoffInput struct {
	FromDeveloper   string `json:"fromDeveloperId"`
	ToDeveloper     string `json:"toDeveloperId"`
	Title           string `json:"title"`
	IssueKey        string `json:"issueKey,omitempty"`
	ContextSummary  string `json:"contextSummary,omitempty"`
	WhatDone        string `json:"whatDone,omitempty"`
	WhatNext        string `json:"whatNext,omitempty"`
	BranchName      string `json:"branchName,omitempty"`
	FileList        string `json:"fileList,omitempty"`
	BlockersNotes   string `json:"blockersNotes,omitempty"`
	WorkSessionID   string `json:"workSessionId,omitempty"`
	MergeRequestURL string `json:"mergeRequestUrl,omitempty"`
}

// CreateHandoff records a handoff to another developer. When both an
// issue key and a merge-request URL are known, a comment carrying the
// link is posted to the issue first; the comment is advisory and its
// failure never blocks the durable handoff write. A supplied session is
// ended as handed off.
func (m *Manager) CreateHandoff(ctx context.Context, input HandoffInput) (string, error) {
	input.FromDeveloper = m.developer(input.FromDeveloper)
	for _, dev := range []string{input.FromDeveloper, input.ToDeveloper} {
		if err := m.db.EnsureDeveloper(ctx, dev, dev); err != nil {
			return "", fmt.Errorf("workflow: ensure developer: %w", err)
		}
	}

	if input.IssueKey != "" && input.MergeRequestURL != "" {
		body := fmt.Sprintf("Handoff from %s to %s. Merge request: %s",
			input.FromDeveloper, input.ToDeveloper, input.MergeRequestURL)
		if _, err := m.resolver.Invoke(ctx, capability.AddComment,
			capability.CommentArgs(input.IssueKey, body)); err != nil {
			m.log.Debug("handoff comment failed", "issue", input.IssueKey, "error", err)
		}
	}

	id := m.newID()
	err := m.db.CreateHandoff(ctx, store.Handoff{
		ID:             id,
		FromDeveloper:  input.FromDeveloper,
		ToDeveloper:    input.ToDeveloper,
		WorkSessionID:  input.WorkSessionID,
		Title:          input.Title,
		ContextSummary: input.ContextSummary,
		WhatDone:       input.WhatDone,
		WhatNext:       input.WhatNext,
		BranchName:     input.BranchName,
		FileList:       input.FileList,
		BlockersNotes:  input.BlockersNotes,
	})
	if err != nil {
		return "", fmt.Errorf("workflow: create handoff: %w", err)
	}

	if input.WorkSessionID != "" {
		if err := m.db.EndWorkSession(ctx, input.WorkSessionID, store.StatusHandedOff, store.EndOptions{}); err != nil {
			return "", fmt.Errorf("workflow: end session: %w", err)
		}
	}
	return id, nil
}

// EndOfDay is MorningCheckin plus an advisory about any open session.
func (m *Manager) EndOfDay(ctx context.Context, developerID string) (*CheckinResult, error) {
	out, err := m.MorningCheckin(ctx, developerID)
	if err != nil {
		return nil, err
	}
	if out.ActiveSession != nil {
		out.Message = "You have an active work session. Consider creating a handoff or completing the task before EOD."
	} else {
		out.Message = "No active session. You're all set for EOD."
	}
	return out, nil
}

// TaskStatusResult mirrors the developer's current session in full,
// plus a short tail of previous sessions for orientation.
type TaskStatusResult struct {
	ActiveSession  *ActiveSessionRef   `json:"activeSession"`
	SessionDetails *store.Session      `json:"sessionDetails"`
	MicroTasks     []store.MicroTask   `json:"microTasks"`
	ProgressLogs   []store.ProgressLog `json:"progressLogs"`
	RecentSessions []store.Session     `json:"recentSessions"`
}

// TaskStatus reports the active session with its micro-tasks and recent
// progress logs. Session fields are empty when no session is open;
// RecentSessions is filled either way.
func (m *Manager) TaskStatus(ctx context.Context, developerID string) (*TaskStatusResult, error) {
	devID := m.developer(developerID)
	active, err := m.db.GetActiveSession(ctx, devID)
	if err != nil {
		return nil, fmt.Errorf("workflow: active session: %w", err)
	}
	out := &TaskStatusResult{MicroTasks: []store.MicroTask{}, ProgressLogs: []store.ProgressLog{}}
	if out.RecentSessions, err = m.db.GetWorkSessionsForDeveloper(ctx, devID, 5); err != nil {
		return nil, fmt.Errorf("workflow: recent sessions: %w", err)
	}
	if active == nil {
		return out, nil
	}
	out.ActiveSession = &ActiveSessionRef{ID: active.ID, IssueKey: active.IssueKey}

	if out.SessionDetails, err = m.db.GetSession(ctx, active.ID); err != nil {
		return nil, fmt.Errorf("workflow: load session: %w", err)
	}
	if out.MicroTasks, err = m.db.GetMicroTasks(ctx, active.ID); err != nil {
		return nil, fmt.Errorf("workflow: micro-tasks: %w", err)
	}
	if out.ProgressLogs, err = m.db.GetProgressLogs(ctx, active.ID, 10); err != nil {
		return nil, fmt.Errorf("workflow: progress logs: %w", err)
	}
	return out, nil
}

// SuggestBranchName builds a branch suggestion from an issue key and a
// slug source, e.g. feature/proj-42-fix-login-flow.
func SuggestBranchName(issueKey, slugSource string) string {
	if slugSource == "" || slugSource == issueKey {
		return strings.ToLower("feature/" + issueKey)
	}
	return strings.ToLower("feature/" + issueKey + "-" + branchSlug(slugSource))
}

// branchSlug compacts text for use in a branch name: spaces to hyphens,
// everything outside [A-Za-z0-9-_] dropped, at most 30 characters.
func branchSlug(text string) string {
	var b strings.Builder
	prevHyphen := false
	for _, r := range strings.TrimSpace(text) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_':
			b.WriteRune(r)
			prevHyphen = false
		case r == ' ' || r == '-':
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > 30 {
		slug = slug[:30]
	}
	return strings.Trim(slug, "-")
}
