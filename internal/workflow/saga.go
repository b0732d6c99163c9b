package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/devrelay/relay/internal/capability"
	"github.com/devrelay/relay/internal/issuestate"
	"github.com/devrelay/relay/internal/store"
)

// ResultBase carries the fields every orchestration result shares.
type ResultBase struct {
	Summary      string   `json:"summary"`
	ActionsTaken []string `json:"actions_taken"`
	NextSteps    []string `json:"next_steps"`
	Warnings     []string `json:"warnings,omitempty"`
}

// MergeRequestInfo is the merge-request slice of a handoff result.
type MergeRequestInfo struct {
	IID          int    `json:"iid,omitempty"`
	URL          string `json:"url"`
	State        string `json:"state,omitempty"`
	HasConflicts bool   `json:"has_conflicts,omitempty"`
	SourceBranch string `json:"source_branch,omitempty"`
	TargetBranch string `json:"target_branch,omitempty"`
}

// ReviewStatus summarizes outstanding review feedback.
type ReviewStatus struct {
	ChangesRequested  bool `json:"changes_requested"`
	UnresolvedThreads int  `json:"unresolved_threads"`
	TotalComments     int  `json:"total_comments"`
}

// CreatedSubtask identifies a sub-issue created from a review comment.
type CreatedSubtask struct {
	Key      string `json:"key"`
	Summary  string `json:"summary"`
	Priority string `json:"priority,omitempty"`
}

// SmartHandoffData is the structured payload of a smart handoff.
type SmartHandoffData struct {
	HandoffID       string            `json:"handoff_id"`
	TaskID          string            `json:"task_id"`
	MergeRequest    *MergeRequestInfo `json:"merge_request,omitempty"`
	ReviewStatus    *ReviewStatus     `json:"review_status,omitempty"`
	SubTasksCreated []CreatedSubtask  `json:"sub_tasks_created"`
}

// SmartHandoffResult is the full smart-handoff outcome.
type SmartHandoffResult struct {
	ResultBase
	Data                   SmartHandoffData `json:"data"`
	EstimatedEffortMinutes int              `json:"estimated_effort_minutes,omitempty"`
}

// SmartHandoffInput parameterizes the handoff saga.
type SmartHandoffInput struct {
	TaskID          string
	FromDeveloper   string
	ToDeveloper     string
	ContextSummary  string
	MergeRequestURL string // explicit fallback when discovery finds nothing
	SkipAnalysis    bool
}

// defaultEffortMinutes is the flat estimate when no review analysis ran.
const defaultEffortMinutes = 30

// SmartHandoff transfers a task to another developer in one operation:
// it checks the issue, finds the open merge request, turns unresolved
// review comments into sub-issues, comments on the issue, records the
// handoff, and ends the sender's session. Only a missing issue or a
// failed store write aborts; every upstream step degrades to a warning.
func (m *Manager) SmartHandoff(ctx context.Context, input SmartHandoffInput) (*SmartHandoffResult, error) {
	fromDev := m.developer(input.FromDeveloper)
	if input.ToDeveloper == "" {
		return nil, fmt.Errorf("workflow: smart handoff requires a recipient")
	}

	state := m.tracker.Get(ctx, input.TaskID)
	if state == nil {
		return nil, fmt.Errorf("workflow: issue %s not found", input.TaskID)
	}

	out := &SmartHandoffResult{
		Data: SmartHandoffData{TaskID: input.TaskID, SubTasksCreated: []CreatedSubtask{}},
	}
	warn := func(format string, args ...any) {
		out.Warnings = append(out.Warnings, fmt.Sprintf(format, args...))
	}
	did := func(format string, args ...any) {
		out.ActionsTaken = append(out.ActionsTaken, fmt.Sprintf(format, args...))
	}

	if v := issuestate.ValidateTransition(state, issuestate.IntentComplete); !v.Valid {
		// A closed issue still benefits from the context transfer.
		warn("%s %s", v.Error, v.Suggestion)
	}

	mr := m.findMergeRequest(ctx, input.TaskID, input.MergeRequestURL, warn)
	if mr != nil {
		out.Data.MergeRequest = mr
		did("Located merge request %s", mr.URL)
	}

	var analysis *ReviewAnalysis
	if mr != nil && mr.IID > 0 && !input.SkipAnalysis {
		analysis = m.analyzeMergeRequest(ctx, mr.IID, warn)
	}
	if analysis != nil {
		out.Data.ReviewStatus = &ReviewStatus{
			ChangesRequested:  analysis.ChangesRequested,
			UnresolvedThreads: analysis.UnresolvedThreads,
			TotalComments:     analysis.TotalComments,
		}
		for _, change := range analysis.RequiredChanges {
			key := m.createSubtask(ctx, input.TaskID, change, warn)
			if key == "" {
				continue
			}
			out.Data.SubTasksCreated = append(out.Data.SubTasksCreated, CreatedSubtask{
				Key:      key,
				Summary:  change.Summary,
				Priority: change.Priority,
			})
			out.EstimatedEffortMinutes += change.EstimatedMinutes
		}
		if n := len(out.Data.SubTasksCreated); n > 0 {
			did("Created %d sub-task(s) from review comments", n)
		}
	}
	if analysis == nil {
		out.EstimatedEffortMinutes = defaultEffortMinutes
	}

	m.postHandoffComment(ctx, input, out, warn, did)

	for _, dev := range []string{fromDev, input.ToDeveloper} {
		if err := m.db.EnsureDeveloper(ctx, dev, dev); err != nil {
			return nil, fmt.Errorf("workflow: ensure developer: %w", err)
		}
	}

	sessionID := ""
	active, err := m.db.GetActiveSession(ctx, fromDev)
	if err != nil {
		return nil, fmt.Errorf("workflow: active session: %w", err)
	}
	if active != nil && active.IssueKey == input.TaskID {
		sessionID = active.ID
	}

	handoff := store.Handoff{
		ID:             m.newID(),
		FromDeveloper:  fromDev,
		ToDeveloper:    input.ToDeveloper,
		WorkSessionID:  sessionID,
		Title:          fmt.Sprintf("Handoff: %s", input.TaskID),
		ContextSummary: input.ContextSummary,
	}
	if mr != nil {
		handoff.BlockersNotes = fmt.Sprintf("Merge request: %s", mr.URL)
		handoff.BranchName = mr.SourceBranch
	}
	if err := m.db.CreateHandoff(ctx, handoff); err != nil {
		return nil, fmt.Errorf("workflow: create handoff: %w", err)
	}
	out.Data.HandoffID = handoff.ID
	did("Recorded handoff %s to %s", handoff.ID, input.ToDeveloper)

	if sessionID != "" {
		if err := m.db.EndWorkSession(ctx, sessionID, store.StatusHandedOff, store.EndOptions{}); err != nil {
			return nil, fmt.Errorf("workflow: end session: %w", err)
		}
		did("Ended work session %s as handed off", sessionID)
	}

	sync, err := m.tracker.SyncLocalState(ctx, input.TaskID, state, fromDev)
	if err == nil && !sync.Synced {
		warn("%s", sync.Message)
	}

	out.Summary = fmt.Sprintf("Handed off %s from %s to %s", input.TaskID, fromDev, input.ToDeveloper)
	out.NextSteps = []string{
		fmt.Sprintf("%s: review the handoff context and accept it", input.ToDeveloper),
	}
	if len(out.Data.SubTasksCreated) > 0 {
		out.NextSteps = append(out.NextSteps,
			fmt.Sprintf("%s: work through the %d review sub-task(s)", input.ToDeveloper, len(out.Data.SubTasksCreated)))
	}
	return out, nil
}

// findMergeRequest locates the merge request for an issue: first an open
// MR whose title or source branch mentions the key, then the first open
// MR, then an explicitly supplied URL. Failure leaves nil and a warning.
func (m *Manager) findMergeRequest(ctx context.Context, issueKey, explicitURL string, warn func(string, ...any)) *MergeRequestInfo {
	var mrs []MergeRequest
	if m.cfg.Project != "" {
		res, err := m.resolver.Invoke(ctx, capability.ListMergeRequests,
			capability.MergeRequestArgs(m.cfg.Project, "opened", 20))
		if err == nil && !res.IsError {
			mrs = parseMergeRequests(res.Text)
		}
	}

	keyLower := strings.ToLower(issueKey)
	var pick *MergeRequest
	for i := range mrs {
		mr := &mrs[i]
		if strings.Contains(strings.ToLower(mr.Title), keyLower) ||
			strings.Contains(strings.ToLower(mr.SourceBranch), keyLower) {
			pick = mr
			break
		}
	}
	if pick == nil && len(mrs) > 0 {
		pick = &mrs[0]
	}
	if pick != nil {
		return &MergeRequestInfo{
			IID:          pick.IID,
			URL:          pick.URL,
			State:        pick.State,
			HasConflicts: pick.HasConflicts,
			SourceBranch: pick.SourceBranch,
			TargetBranch: pick.TargetBranch,
		}
	}
	if explicitURL != "" {
		return &MergeRequestInfo{URL: explicitURL}
	}
	warn("no merge request found for %s", issueKey)
	return nil
}

// analyzeMergeRequest fetches one MR's notes and runs the review
// heuristics. Unavailable notes degrade to nil and a warning.
func (m *Manager) analyzeMergeRequest(ctx context.Context, mrIID int, warn func(string, ...any)) *ReviewAnalysis {
	res, err := m.resolver.Invoke(ctx, capability.ListMRNotes,
		capability.MRNotesArgs(m.cfg.Project, mrIID))
	if err != nil || res.IsError {
		warn("could not fetch review notes for merge request %d", mrIID)
		return nil
	}
	analysis := AnalyzeReviewComments(parseReviewInput(res.Text))
	return &analysis
}

// createSubtask turns a required change into a sub-issue under parent.
// Returns the new issue key, or empty with a warning.
func (m *Manager) createSubtask(ctx context.Context, parentKey string, change RequiredChange, warn func(string, ...any)) string {
	res, err := m.resolver.Invoke(ctx, capability.CreateIssue,
		capability.CreateIssueArgs(projectOf(parentKey), change.Summary, change.Description, parentKey))
	if err != nil || res.IsError {
		warn("could not create sub-task for %q", change.Summary)
		return ""
	}
	key := parseCreatedIssueKey(res.Text)
	if key == "" {
		warn("sub-task created for %q but its key could not be determined", change.Summary)
	}
	return key
}

// postHandoffComment posts the single aggregated handoff comment.
func (m *Manager) postHandoffComment(ctx context.Context, input SmartHandoffInput, out *SmartHandoffResult, warn, did func(string, ...any)) {
	var b strings.Builder
	fmt.Fprintf(&b, "Handoff from %s to %s.", m.developer(input.FromDeveloper), input.ToDeveloper)
	if input.ContextSummary != "" {
		fmt.Fprintf(&b, " Context: %s.", input.ContextSummary)
	}
	if rs := out.Data.ReviewStatus; rs != nil {
		fmt.Fprintf(&b, " Unresolved review items: %d.", rs.UnresolvedThreads)
	}
	if len(out.Data.SubTasksCreated) > 0 {
		keys := make([]string, 0, len(out.Data.SubTasksCreated))
		for _, st := range out.Data.SubTasksCreated {
			keys = append(keys, st.Key)
		}
		fmt.Fprintf(&b, " Created sub-tasks: %s.", strings.Join(keys, ", "))
	}

	res, err := m.resolver.Invoke(ctx, capability.AddComment,
		capability.CommentArgs(input.TaskID, b.String()))
	if err != nil || res.IsError {
		warn("could not comment on %s", input.TaskID)
		return
	}
	did("Commented on %s", input.TaskID)
}

// projectOf extracts the project prefix from an issue key ("PROJ-7" ->
// "PROJ").
func projectOf(issueKey string) string {
	if i := strings.Index(issueKey, "-"); i > 0 {
		return issueKey[:i]
	}
	return issueKey
}
