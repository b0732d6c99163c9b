// Package issuestate queries and validates tracker issue state. Every
// orchestration operation consults it before acting so decisions follow
// the tracker, not stale local data.
package issuestate

import (
	"encoding/json"
	"strings"
)

// Subtask is a child issue in compact form.
type Subtask struct {
	Key            string `json:"key"`
	StatusName     string `json:"statusName"`
	StatusCategory string `json:"statusCategory"`
}

// State is the tracker's current view of an issue.
type State struct {
	Key            string    `json:"key"`
	Summary        string    `json:"summary,omitempty"`
	StatusName     string    `json:"statusName"`
	StatusCategory string    `json:"statusCategory"`
	AssigneeID     string    `json:"assigneeId,omitempty"`
	AssigneeName   string    `json:"assigneeName,omitempty"`
	Subtasks       []Subtask `json:"subtasks"`
	Updated        string    `json:"updated,omitempty"`
}

// Done reports whether the issue sits in a terminal status.
func (s *State) Done() bool {
	cat := strings.ToLower(s.StatusCategory)
	name := strings.ToLower(s.StatusName)
	return cat == "done" || name == "done"
}

// Intent names the workflow transition a caller wants to perform.
type Intent string

const (
	IntentStart      Intent = "start"
	IntentComplete   Intent = "complete"
	IntentBlock      Intent = "block"
	IntentUnblock    Intent = "unblock"
	IntentCodeReview Intent = "code_review"
)

// ValidationResult is the outcome of checking a transition intent.
type ValidationResult struct {
	Valid      bool   `json:"valid"`
	Error      string `json:"error,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// ValidateTransition checks whether an intent is legal given the issue's
// current status. Rules follow common workflow conventions; individual
// tracker projects may still reject a transition the rules allow.
func ValidateTransition(current *State, intent Intent) ValidationResult {
	switch intent {
	case IntentStart:
		if current.Done() {
			return ValidationResult{
				Error:      "Issue is already Done.",
				Suggestion: "Reopen or create a new task.",
			}
		}
		return ValidationResult{Valid: true}

	case IntentComplete:
		if current.Done() {
			return ValidationResult{
				Error:      "Issue is already Done.",
				Suggestion: "No transition needed.",
			}
		}
		return ValidationResult{Valid: true}

	case IntentCodeReview:
		if strings.ToLower(current.StatusCategory) == "done" {
			return ValidationResult{Error: "Issue is Done; cannot move to Code Review."}
		}
		return ValidationResult{Valid: true}

	case IntentBlock, IntentUnblock:
		return ValidationResult{Valid: true}

	default:
		// Unknown intents pass through; the tracker has the final word.
		return ValidationResult{Valid: true}
	}
}

// rawIssue mirrors the loose shape tracker backends return. Fields may
// live at the top level or under "fields" depending on the server.
type rawIssue struct {
	Key      string          `json:"key"`
	ID       string          `json:"id"`
	Summary  string          `json:"summary"`
	Status   *rawStatus      `json:"status"`
	Assignee *rawAssignee    `json:"assignee"`
	Subtasks []rawSubtask    `json:"subtasks"`
	Updated  string          `json:"updated"`
	Fields   json.RawMessage `json:"fields"`
}

type rawStatus struct {
	Name           string `json:"name"`
	ID             string `json:"id"`
	StatusCategory *struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"statusCategory"`
}

type rawAssignee struct {
	AccountID   string `json:"accountId"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type rawSubtask struct {
	Key    string     `json:"key"`
	ID     string     `json:"id"`
	Status *rawStatus `json:"status"`
	Fields *struct {
		Status *rawStatus `json:"status"`
	} `json:"fields"`
}

// Parse extracts a State from a tracker get-issue response. Servers differ
// in whether issue data is nested under "fields"; both layouts are
// accepted, with nested fields taking precedence. Returns nil for empty or
// non-JSON content.
func Parse(content string) *State {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	var raw rawIssue
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil
	}

	merged := raw
	if len(raw.Fields) > 0 {
		var fields rawIssue
		if err := json.Unmarshal(raw.Fields, &fields); err == nil {
			if fields.Summary != "" {
				merged.Summary = fields.Summary
			}
			if fields.Status != nil {
				merged.Status = fields.Status
			}
			if fields.Assignee != nil {
				merged.Assignee = fields.Assignee
			}
			if fields.Subtasks != nil {
				merged.Subtasks = fields.Subtasks
			}
			if fields.Updated != "" {
				merged.Updated = fields.Updated
			}
		}
	}

	key := merged.Key
	if key == "" {
		key = merged.ID
	}

	st := &State{
		Key:            key,
		Summary:        merged.Summary,
		StatusName:     statusName(merged.Status),
		StatusCategory: statusCategory(merged.Status),
		Subtasks:       []Subtask{},
		Updated:        merged.Updated,
	}
	if a := merged.Assignee; a != nil {
		st.AssigneeID = firstNonEmpty(a.AccountID, a.Key, a.Name)
		st.AssigneeName = firstNonEmpty(a.DisplayName, a.Name)
	}
	for _, s := range merged.Subtasks {
		status := s.Status
		if s.Fields != nil && s.Fields.Status != nil {
			status = s.Fields.Status
		}
		st.Subtasks = append(st.Subtasks, Subtask{
			Key:            firstNonEmpty(s.Key, s.ID),
			StatusName:     statusName(status),
			StatusCategory: statusCategory(status),
		})
	}
	return st
}

func statusName(s *rawStatus) string {
	if s == nil {
		return "Unknown"
	}
	if name := firstNonEmpty(s.Name, s.ID); name != "" {
		return name
	}
	return "Unknown"
}

// statusCategory falls back to the status name when the backend omits
// category information, so Done detection still works.
func statusCategory(s *rawStatus) string {
	if s == nil {
		return "Unknown"
	}
	if s.StatusCategory != nil {
		if c := firstNonEmpty(s.StatusCategory.Key, s.StatusCategory.Name); c != "" {
			return c
		}
	}
	return statusName(s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
