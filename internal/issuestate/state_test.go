package issuestate

import "testing"

func TestValidateTransition(t *testing.T) {
	done := &State{Key: "PROJ-1", StatusName: "Done", StatusCategory: "done"}
	inProgress := &State{Key: "PROJ-1", StatusName: "In Progress", StatusCategory: "indeterminate"}
	todo := &State{Key: "PROJ-1", StatusName: "To Do", StatusCategory: "new"}

	tests := []struct {
		name    string
		state   *State
		intent  Intent
		valid   bool
		suggest string
	}{
		{"start on done", done, IntentStart, false, "Reopen or create a new task."},
		{"start on todo", todo, IntentStart, true, ""},
		{"start on in progress", inProgress, IntentStart, true, ""},
		{"complete on done", done, IntentComplete, false, "No transition needed."},
		{"complete on in progress", inProgress, IntentComplete, true, ""},
		{"code review on done", done, IntentCodeReview, false, ""},
		{"code review on in progress", inProgress, IntentCodeReview, true, ""},
		{"block on done", done, IntentBlock, true, ""},
		{"unblock on done", done, IntentUnblock, true, ""},
		{"unknown intent", done, Intent("escalate"), true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateTransition(tt.state, tt.intent)
			if got.Valid != tt.valid {
				t.Errorf("Valid = %v, want %v", got.Valid, tt.valid)
			}
			if !got.Valid && got.Error == "" {
				t.Error("invalid result must carry an error message")
			}
			if tt.suggest != "" && got.Suggestion != tt.suggest {
				t.Errorf("Suggestion = %q, want %q", got.Suggestion, tt.suggest)
			}
		})
	}
}

func TestValidateTransitionDoneByNameOnly(t *testing.T) {
	// Some servers omit the status category; the status name alone must
	// flag the issue as terminal.
	st := &State{Key: "PROJ-2", StatusName: "Done", StatusCategory: "Done"}
	if got := ValidateTransition(st, IntentStart); got.Valid {
		t.Error("start on Done-by-name should be rejected")
	}
}

func TestParseNestedFields(t *testing.T) {
	content := `{
		"key": "PROJ-7",
		"fields": {
			"summary": "Fix login flow",
			"status": {"name": "In Progress", "statusCategory": {"key": "indeterminate"}},
			"assignee": {"accountId": "abc-123", "displayName": "Alice"},
			"subtasks": [
				{"key": "PROJ-8", "fields": {"status": {"name": "Done", "statusCategory": {"key": "done"}}}},
				{"key": "PROJ-9", "fields": {"status": {"name": "To Do", "statusCategory": {"key": "new"}}}}
			],
			"updated": "2026-08-30T10:00:00Z"
		}
	}`
	st := Parse(content)
	if st == nil {
		t.Fatal("Parse returned nil")
	}
	if st.Key != "PROJ-7" || st.Summary != "Fix login flow" {
		t.Errorf("key/summary = %q/%q", st.Key, st.Summary)
	}
	if st.StatusName != "In Progress" || st.StatusCategory != "indeterminate" {
		t.Errorf("status = %q/%q", st.StatusName, st.StatusCategory)
	}
	if st.AssigneeID != "abc-123" || st.AssigneeName != "Alice" {
		t.Errorf("assignee = %q/%q", st.AssigneeID, st.AssigneeName)
	}
	if len(st.Subtasks) != 2 {
		t.Fatalf("got %d subtasks, want 2", len(st.Subtasks))
	}
	if st.Subtasks[0].Key != "PROJ-8" || st.Subtasks[0].StatusCategory != "done" {
		t.Errorf("subtask[0] = %+v", st.Subtasks[0])
	}
	if st.Subtasks[1].StatusCategory != "new" {
		t.Errorf("subtask[1] = %+v", st.Subtasks[1])
	}
}

func TestParseFlatShape(t *testing.T) {
	content := `{
		"id": "PROJ-3",
		"summary": "Flat server shape",
		"status": {"name": "Done"}
	}`
	st := Parse(content)
	if st == nil {
		t.Fatal("Parse returned nil")
	}
	if st.Key != "PROJ-3" {
		t.Errorf("Key = %q, want id fallback", st.Key)
	}
	// No category on the wire: the name stands in for it.
	if st.StatusCategory != "Done" {
		t.Errorf("StatusCategory = %q, want name fallback", st.StatusCategory)
	}
	if !st.Done() {
		t.Error("flat Done issue should report Done()")
	}
}

func TestParseMissingStatus(t *testing.T) {
	st := Parse(`{"key": "PROJ-4"}`)
	if st == nil {
		t.Fatal("Parse returned nil")
	}
	if st.StatusName != "Unknown" || st.StatusCategory != "Unknown" {
		t.Errorf("status = %q/%q, want Unknown", st.StatusName, st.StatusCategory)
	}
	if st.Done() {
		t.Error("unknown status must not read as Done")
	}
}

func TestParseGarbage(t *testing.T) {
	for _, content := range []string{"", "   ", "not json", "<html>oops</html>"} {
		if st := Parse(content); st != nil {
			t.Errorf("Parse(%q) = %+v, want nil", content, st)
		}
	}
}
