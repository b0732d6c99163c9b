package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/devrelay/relay/internal/capability"
	"github.com/devrelay/relay/internal/store"
)

// ReadinessData holds tri-state readiness flags. A nil pointer means the
// check could not be performed; callers must not read "unknown" as
// either blocked or ready.
type ReadinessData struct {
	AllSubtasksComplete *bool `json:"all_subtasks_complete,omitempty"`
	TestsPassing        *bool `json:"tests_passing,omitempty"`
	NoConflicts         *bool `json:"no_conflicts,omitempty"`
	SessionComplete     *bool `json:"session_complete,omitempty"`
}

// Blocker is one reason a task is not ready for review.
type Blocker struct {
	Type    string `json:"type"`
	Task    string `json:"task,omitempty"`
	File    string `json:"file,omitempty"`
	Message string `json:"message,omitempty"`
}

// ReviewReadinessData is the structured payload of a readiness check.
type ReviewReadinessData struct {
	Readiness ReadinessData `json:"readiness"`
	Blockers  []Blocker     `json:"blockers,omitempty"`
	MRURL     string        `json:"mr_url,omitempty"`
}

// ReviewReadinessResult is the full readiness-check outcome.
type ReviewReadinessResult struct {
	ResultBase
	Data ReviewReadinessData `json:"data"`
}

func boolPtr(v bool) *bool { return &v }

// ReviewReadinessCheck aggregates the signals that gate a review request:
// sub-issue completion, the local session, merge-conflict markers in the
// repository status, and the merge request's pipeline. Checks that cannot
// run stay unknown rather than failing the task.
func (m *Manager) ReviewReadinessCheck(ctx context.Context, taskID, developerID string) (*ReviewReadinessResult, error) {
	devID := m.developer(developerID)
	rc, err := m.tracker.ResolveContext(ctx, devID, taskID)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, fmt.Errorf("workflow: no task context for readiness check (no task id and no active session)")
	}

	out := &ReviewReadinessResult{}
	if rc.State.Done() {
		out.Summary = fmt.Sprintf("%s is already done, no review needed", rc.IssueKey)
		return out, nil
	}

	// Sub-issue completion.
	incomplete := 0
	for _, st := range rc.State.Subtasks {
		if strings.ToLower(st.StatusCategory) == "done" {
			continue
		}
		incomplete++
		out.Data.Blockers = append(out.Data.Blockers, Blocker{
			Type:    "subtask_incomplete",
			Task:    st.Key,
			Message: fmt.Sprintf("Sub-task %s is %s", st.Key, st.StatusName),
		})
	}
	out.Data.Readiness.AllSubtasksComplete = boolPtr(incomplete == 0)

	// Local session still open on this issue.
	active, err := m.db.GetActiveSession(ctx, devID)
	if err != nil {
		return nil, fmt.Errorf("workflow: active session: %w", err)
	}
	open := active != nil && active.IssueKey == rc.IssueKey
	out.Data.Readiness.SessionComplete = boolPtr(!open)
	if open {
		out.Data.Blockers = append(out.Data.Blockers, Blocker{
			Type:    "active_session",
			Task:    rc.IssueKey,
			Message: fmt.Sprintf("Work session %s is still active for %s", active.ID, rc.IssueKey),
		})
	}

	// Conflict markers in the repository status; unknown when the code
	// host cannot answer.
	statusRes, err := m.resolver.Invoke(ctx, capability.RepoStatus, capability.RepoArgs(m.cfg.WorkspacePath))
	if err == nil && !statusRes.IsError {
		conflicts := hasConflictMarkers(statusRes.Text)
		out.Data.Readiness.NoConflicts = boolPtr(!conflicts)
		if conflicts {
			out.Data.Blockers = append(out.Data.Blockers, Blocker{
				Type:    "merge_conflict",
				Message: "Repository status reports merge conflicts",
			})
		}
	}

	// Pipeline status on the matched merge request, when a project is
	// configured.
	if m.cfg.Project != "" {
		if mr := m.findMergeRequest(ctx, rc.IssueKey, "", func(string, ...any) {}); mr != nil {
			out.Data.MRURL = mr.URL
			if status := m.pipelineStatus(ctx, rc.IssueKey); status != "" {
				passing := status == "success"
				out.Data.Readiness.TestsPassing = boolPtr(passing)
				if !passing {
					out.Data.Blockers = append(out.Data.Blockers, Blocker{
						Type:    "pipeline_failed",
						Message: fmt.Sprintf("Pipeline status is %q", status),
					})
				}
			}
		}
	}

	if len(out.Data.Blockers) == 0 {
		out.Summary = fmt.Sprintf("%s looks ready for review", rc.IssueKey)
		out.NextSteps = []string{"Request review on the merge request"}
	} else {
		out.Summary = fmt.Sprintf("%s is not ready for review: %d blocker(s)", rc.IssueKey, len(out.Data.Blockers))
		for _, b := range out.Data.Blockers {
			out.NextSteps = append(out.NextSteps, b.Message)
		}
	}
	return out, nil
}

// pipelineStatus returns the matched merge request's pipeline status,
// empty when undeterminable.
func (m *Manager) pipelineStatus(ctx context.Context, issueKey string) string {
	res, err := m.resolver.Invoke(ctx, capability.ListMergeRequests,
		capability.MergeRequestArgs(m.cfg.Project, "opened", 20))
	if err != nil || res.IsError {
		return ""
	}
	keyLower := strings.ToLower(issueKey)
	for _, mr := range parseMergeRequests(res.Text) {
		if strings.Contains(strings.ToLower(mr.Title), keyLower) ||
			strings.Contains(strings.ToLower(mr.SourceBranch), keyLower) {
			return mr.PipelineStatus
		}
	}
	return ""
}

func hasConflictMarkers(statusText string) bool {
	return strings.Contains(statusText, "<<<<<<<") ||
		strings.Contains(strings.ToLower(statusText), "conflict")
}

// LastSessionInfo describes the session being resumed.
type LastSessionInfo struct {
	Task       string `json:"task,omitempty"`
	EndedAt    string `json:"ended_at"`
	Progress   string `json:"progress"`
	BranchName string `json:"branch_name,omitempty"`
}

// ChangesWhileAway lists what moved since the session ended.
type ChangesWhileAway struct {
	TrackerUpdates []string `json:"tracker_updates"`
	Conflicts      []string `json:"conflicts"`
}

// ResumeContext tells the developer where to pick up.
type ResumeContext struct {
	WhereYouLeftOff string `json:"where_you_left_off"`
	NextMicroTask   string `json:"next_micro_task,omitempty"`
}

// ContextResurrectionData is the structured payload of a resurrection.
type ContextResurrectionData struct {
	LastSession      *LastSessionInfo  `json:"last_session,omitempty"`
	ChangesWhileAway *ChangesWhileAway `json:"changes_while_away,omitempty"`
	ResumeContext    *ResumeContext    `json:"resume_context,omitempty"`
}

// ContextResurrectionResult is the full resurrection outcome.
type ContextResurrectionResult struct {
	ResultBase
	Data                   ContextResurrectionData `json:"data"`
	EstimatedEffortMinutes int                     `json:"estimated_effort_minutes,omitempty"`
}

// ContextResurrection rebuilds working context from the developer's most
// recently ended session: current issue state, divergence since the
// session ended, and the next incomplete micro-task as the resume point.
func (m *Manager) ContextResurrection(ctx context.Context, developerID string) (*ContextResurrectionResult, error) {
	devID := m.developer(developerID)
	ended, err := m.db.GetLastEndedSessions(ctx, devID, 1)
	if err != nil {
		return nil, fmt.Errorf("workflow: last sessions: %w", err)
	}
	if len(ended) == 0 {
		return nil, fmt.Errorf("workflow: no previous session for %s", devID)
	}
	last := ended[0]

	out := &ContextResurrectionResult{}
	out.Data.LastSession = &LastSessionInfo{
		Task:       last.IssueKey,
		EndedAt:    last.EndedAt,
		Progress:   last.Status,
		BranchName: last.BranchName,
	}

	changes := &ChangesWhileAway{TrackerUpdates: []string{}, Conflicts: []string{}}
	if last.IssueKey != "" {
		if state := m.tracker.Get(ctx, last.IssueKey); state != nil {
			changes.TrackerUpdates = append(changes.TrackerUpdates,
				fmt.Sprintf("%s is now %s", last.IssueKey, state.StatusName))
			if state.Done() && last.Status != store.StatusCompleted {
				changes.TrackerUpdates = append(changes.TrackerUpdates,
					fmt.Sprintf("%s was closed after your session ended", last.IssueKey))
			}
		} else {
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("could not fetch current state for %s", last.IssueKey))
		}
	}
	statusRes, err := m.resolver.Invoke(ctx, capability.RepoStatus, capability.RepoArgs(m.cfg.WorkspacePath))
	if err == nil && !statusRes.IsError && hasConflictMarkers(statusRes.Text) {
		changes.Conflicts = append(changes.Conflicts, "repository status reports merge conflicts")
	}
	out.Data.ChangesWhileAway = changes

	resume := &ResumeContext{}
	logs, err := m.db.GetProgressLogs(ctx, last.ID, 1)
	if err != nil {
		return nil, fmt.Errorf("workflow: progress logs: %w", err)
	}
	if len(logs) > 0 && logs[0].Note != "" {
		resume.WhereYouLeftOff = logs[0].Note
	} else if last.IssueSummary != "" {
		resume.WhereYouLeftOff = last.IssueSummary
	} else {
		resume.WhereYouLeftOff = "No progress notes were recorded"
	}

	tasks, err := m.db.GetMicroTasks(ctx, last.ID)
	if err != nil {
		return nil, fmt.Errorf("workflow: micro-tasks: %w", err)
	}
	pending := 0
	for _, t := range tasks {
		if t.Status == store.TaskDone {
			continue
		}
		if resume.NextMicroTask == "" {
			resume.NextMicroTask = t.Title
		}
		pending++
	}
	out.Data.ResumeContext = resume
	out.EstimatedEffortMinutes = pending * 20

	out.Summary = fmt.Sprintf("Restored context from session %s", last.ID)
	if last.IssueKey != "" {
		out.Summary = fmt.Sprintf("Restored context for %s from session %s", last.IssueKey, last.ID)
	}
	out.ActionsTaken = []string{"Loaded last ended session", "Checked tracker and repository state"}
	if resume.NextMicroTask != "" {
		out.NextSteps = append(out.NextSteps, fmt.Sprintf("Resume with: %s", resume.NextMicroTask))
	}
	if last.BranchName != "" {
		out.NextSteps = append(out.NextSteps, fmt.Sprintf("Check out branch %s", last.BranchName))
	}
	return out, nil
}

// SubtasksFromReviewResult reports sub-issues created from one merge
// request's review comments.
type SubtasksFromReviewResult struct {
	ResultBase
	Data struct {
		TaskID          string           `json:"task_id"`
		MergeRequestIID int              `json:"merge_request_iid"`
		ReviewStatus    *ReviewStatus    `json:"review_status,omitempty"`
		SubTasksCreated []CreatedSubtask `json:"sub_tasks_created"`
	} `json:"data"`
	EstimatedEffortMinutes int `json:"estimated_effort_minutes,omitempty"`
}

// CreateSubtasksFromReview analyzes one merge request's notes and creates
// a sub-issue under taskID for each unresolved actionable comment.
func (m *Manager) CreateSubtasksFromReview(ctx context.Context, taskID string, mrIID int) (*SubtasksFromReviewResult, error) {
	state := m.tracker.Get(ctx, taskID)
	if state == nil {
		return nil, fmt.Errorf("workflow: issue %s not found", taskID)
	}

	out := &SubtasksFromReviewResult{}
	out.Data.TaskID = taskID
	out.Data.MergeRequestIID = mrIID
	out.Data.SubTasksCreated = []CreatedSubtask{}
	warn := func(format string, args ...any) {
		out.Warnings = append(out.Warnings, fmt.Sprintf(format, args...))
	}

	analysis := m.analyzeMergeRequest(ctx, mrIID, warn)
	if analysis == nil {
		out.Summary = fmt.Sprintf("Could not analyze merge request %d", mrIID)
		return out, nil
	}
	out.Data.ReviewStatus = &ReviewStatus{
		ChangesRequested:  analysis.ChangesRequested,
		UnresolvedThreads: analysis.UnresolvedThreads,
		TotalComments:     analysis.TotalComments,
	}
	for _, change := range analysis.RequiredChanges {
		key := m.createSubtask(ctx, taskID, change, warn)
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

	n := len(out.Data.SubTasksCreated)
	out.Summary = fmt.Sprintf("Created %d sub-task(s) under %s from merge request %d", n, taskID, mrIID)
	if n > 0 {
		out.ActionsTaken = append(out.ActionsTaken, fmt.Sprintf("Created %d sub-task(s)", n))
		out.NextSteps = append(out.NextSteps, "Work through the review sub-tasks before re-requesting review")
	}
	return out, nil
}
