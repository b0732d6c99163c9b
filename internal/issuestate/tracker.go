package issuestate

import (
	"context"
	"fmt"
	"strings"

	"github.com/devrelay/relay/internal/capability"
	"github.com/devrelay/relay/internal/store"
)

// Tracker combines the tracker backend with the local store to answer
// "what issue am I on, and what does the tracker think about it".
type Tracker struct {
	resolver *capability.Resolver
	db       store.DB
}

// NewTracker creates a Tracker over the given resolver and store.
func NewTracker(resolver *capability.Resolver, db store.DB) *Tracker {
	return &Tracker{resolver: resolver, db: db}
}

// Get queries the tracker for an issue's current state. Returns nil when
// the issue does not exist or the tracker backend is unavailable.
func (t *Tracker) Get(ctx context.Context, issueKey string) *State {
	res, err := t.resolver.Invoke(ctx, capability.GetIssue, capability.IssueArgs(issueKey))
	if err != nil || res.IsError || res.Text == "" {
		return nil
	}
	return Parse(res.Text)
}

// ResolvedContext pairs an issue key with its tracker state and, when the
// key came from the developer's active session, that session's id.
type ResolvedContext struct {
	IssueKey    string
	State       *State
	FromSession bool
	SessionID   string
}

// ResolveContext determines which issue an operation targets: the explicit
// taskID when given, otherwise the developer's active session's issue.
// Returns nil when no issue can be determined or the tracker does not know
// it.
func (t *Tracker) ResolveContext(ctx context.Context, developerID, taskID string) (*ResolvedContext, error) {
	active, err := t.db.GetActiveSession(ctx, developerID)
	if err != nil {
		return nil, fmt.Errorf("issuestate: look up active session: %w", err)
	}

	issueKey := strings.TrimSpace(taskID)
	if issueKey == "" && active != nil {
		issueKey = strings.TrimSpace(active.IssueKey)
	}
	if issueKey == "" {
		return nil, nil
	}

	state := t.Get(ctx, issueKey)
	if state == nil {
		return nil, nil
	}

	rc := &ResolvedContext{IssueKey: issueKey, State: state}
	if taskID == "" && active != nil && active.IssueKey == issueKey {
		rc.FromSession = true
		rc.SessionID = active.ID
	}
	return rc, nil
}

// SyncResult reports whether local state agrees with the tracker.
type SyncResult struct {
	Synced  bool
	Message string
}

// SyncLocalState compares the tracker's view of an issue against the
// developer's active session. It never mutates local state; a mismatch
// only produces an advisory message.
func (t *Tracker) SyncLocalState(ctx context.Context, issueKey string, state *State, developerID string) (SyncResult, error) {
	active, err := t.db.GetActiveSession(ctx, developerID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("issuestate: look up active session: %w", err)
	}
	if active == nil || active.IssueKey != issueKey {
		return SyncResult{Synced: true}, nil
	}
	if state.Done() {
		return SyncResult{
			Synced: false,
			Message: fmt.Sprintf(
				"%s is Done in the tracker but you have an active session for it. Consider complete_task or end_session to sync.",
				issueKey),
		}, nil
	}
	return SyncResult{Synced: true}, nil
}
