package workflow

import "testing"

func TestParseIssuesShapes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		first   string
	}{
		{"bare array", `[{"key":"A-1","summary":"one"},{"key":"A-2","summary":"two"}]`, 2, "A-1"},
		{"issues wrapper", `{"issues":[{"key":"B-1","fields":{"summary":"x"}}]}`, 1, "B-1"},
		{"results wrapper", `{"results":[{"key":"C-1"}]}`, 1, "C-1"},
		{"single issue", `{"key":"D-1","fields":{"summary":"solo"}}`, 1, "D-1"},
		{"markdown fallback", "Your issues:\n- DDISMDPS-2305 do the thing\n- DDISMDPS-2305 again\n- OTHER-9", 2, "DDISMDPS-2305"},
		{"empty", "", 0, ""},
		{"no keys in text", "nothing to see here", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseIssues(tt.content)
			if len(got) != tt.want {
				t.Fatalf("got %d refs (%+v), want %d", len(got), got, tt.want)
			}
			if tt.want > 0 && got[0].Key != tt.first {
				t.Errorf("first key = %q, want %q", got[0].Key, tt.first)
			}
		})
	}
}

func TestParseIssueSummary(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{`{"key":"A-1","fields":{"summary":"nested"}}`, "nested"},
		{`{"key":"A-1","summary":"flat"}`, "flat"},
		{`{"key":"A-1"}`, "A-1"},
		{`not json`, ""},
	}
	for _, tt := range tests {
		if got := parseIssueSummary(tt.content); got != tt.want {
			t.Errorf("parseIssueSummary(%q) = %q, want %q", tt.content, got, tt.want)
		}
	}
}

func TestParseCommitLog(t *testing.T) {
	out := parseCommitLog("abc123 Fix the bug\ndef456 Add tests\n\nnosha\n")
	if len(out) != 3 {
		t.Fatalf("got %d commits: %+v", len(out), out)
	}
	if out[0].SHA != "abc123" || out[0].Message != "Fix the bug" {
		t.Errorf("first commit = %+v", out[0])
	}
	if out[2].SHA != "nosha" || out[2].Message != "" {
		t.Errorf("bare line = %+v", out[2])
	}
}

func TestParseCommitLogCapsAtTen(t *testing.T) {
	var content string
	for i := 0; i < 15; i++ {
		content += "sha message\n"
	}
	if got := len(parseCommitLog(content)); got != 10 {
		t.Errorf("got %d commits, want 10", got)
	}
}

func TestParseBranch(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{"On branch feature/proj-1\nnothing to commit", "feature/proj-1"},
		{"* main\n  develop", "main"},
		{"main", "main"},
		{"Git MCP disabled by config", ""},
		{"fatal: Not a git repository", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := parseBranch(tt.content); got != tt.want {
			t.Errorf("parseBranch(%q) = %q, want %q", tt.content, got, tt.want)
		}
	}
}

func TestParseMergeRequests(t *testing.T) {
	got := parseMergeRequests(openMRList)
	if len(got) != 2 {
		t.Fatalf("got %d MRs: %+v", len(got), got)
	}
	if got[0].IID != 7 || got[0].URL != "https://git.example/mr/7" || got[0].SourceBranch != "feature/proj-1-fix-login-flow" {
		t.Errorf("first MR = %+v", got[0])
	}

	wrapped := parseMergeRequests(`{"merge_requests":[{"id":3,"title":"t","url":"u","pipeline":{"status":"failed"}}]}`)
	if len(wrapped) != 1 {
		t.Fatalf("wrapped = %+v", wrapped)
	}
	if wrapped[0].IID != 3 || wrapped[0].URL != "u" || wrapped[0].PipelineStatus != "failed" {
		t.Errorf("wrapped MR = %+v", wrapped[0])
	}

	if got := parseMergeRequests("plain text"); got != nil {
		t.Errorf("non-JSON should yield nil, got %+v", got)
	}
}

func TestParseCreatedIssueKey(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{`{"key":"PROJ-55"}`, "PROJ-55"},
		{`{"id":"10001"}`, "10001"},
		{"Created issue PROJ-56 successfully", "PROJ-56"},
		{"done", ""},
	}
	for _, tt := range tests {
		if got := parseCreatedIssueKey(tt.content); got != tt.want {
			t.Errorf("parseCreatedIssueKey(%q) = %q, want %q", tt.content, got, tt.want)
		}
	}
}
