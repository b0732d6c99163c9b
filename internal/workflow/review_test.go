package workflow

import (
	"strings"
	"testing"
)

func TestInferPriority(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"You must fix this before merging", "high"},
		{"This is a critical path", "high"},
		{"blocker: the build fails", "high"},
		{"A test is required here", "high"},
		{"We need to handle nil", "high"},
		{"You should extract this helper", "medium"},
		{"Please rename the variable", "medium"},
		{"I recommend a map here", "medium"},
		{"This reads better as a switch", "medium"},
		{"Consider caching the result", "low"},
		{"nice work", "low"},
		{"Mustafa reviewed this", "low"}, // word boundary, not substring
	}
	for _, tt := range tests {
		if got := inferPriority(tt.body); got != tt.want {
			t.Errorf("inferPriority(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestEstimateMinutes(t *testing.T) {
	tests := []struct {
		priority string
		length   int
		want     int
	}{
		{"high", 0, 20},
		{"medium", 0, 15},
		{"low", 0, 10},
		{"low", 100, 12},
		{"high", 10000, 50}, // length bonus caps at 30
	}
	for _, tt := range tests {
		if got := estimateMinutes(tt.priority, tt.length); got != tt.want {
			t.Errorf("estimateMinutes(%q, %d) = %d, want %d", tt.priority, tt.length, got, tt.want)
		}
	}
}

func TestSummarizeComment(t *testing.T) {
	if got := summarizeComment("## Must fix\nlong explanation", 80); got != "Must fix" {
		t.Errorf("heading strip: %q", got)
	}
	long := strings.Repeat("x", 100)
	got := summarizeComment(long, 80)
	if len(got) != 80 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncation: %q (len %d)", got, len(got))
	}
}

func TestAnalyzeReviewComments(t *testing.T) {
	input := ReviewInput{
		Notes: []ReviewNote{
			{Body: "You must handle the error"},
			{Body: "changed the description", System: true},
			{Body: "   "},
			{Body: "old thread", Resolved: true},
		},
		Discussions: []ReviewDiscussion{
			{Notes: []ReviewNote{{Body: "Please add a test"}}},
		},
	}
	got := AnalyzeReviewComments(input)

	// System and blank notes dropped; resolved counts but is not actionable.
	if got.TotalComments != 3 {
		t.Errorf("TotalComments = %d, want 3", got.TotalComments)
	}
	if got.UnresolvedThreads != 2 {
		t.Errorf("UnresolvedThreads = %d, want 2", got.UnresolvedThreads)
	}
	if !got.ChangesRequested {
		t.Error("ChangesRequested should be true")
	}
	if len(got.RequiredChanges) != 2 {
		t.Fatalf("RequiredChanges = %+v", got.RequiredChanges)
	}
	if got.RequiredChanges[0].Priority != "high" || got.RequiredChanges[1].Priority != "medium" {
		t.Errorf("priorities = %q/%q", got.RequiredChanges[0].Priority, got.RequiredChanges[1].Priority)
	}
}

func TestAnalyzeReviewCommentsEmpty(t *testing.T) {
	got := AnalyzeReviewComments(ReviewInput{})
	if got.ChangesRequested || got.TotalComments != 0 || len(got.RequiredChanges) != 0 {
		t.Errorf("empty input analysis = %+v", got)
	}
}

func TestAnalyzeTruncatesDescription(t *testing.T) {
	body := strings.Repeat("a", 600)
	got := AnalyzeReviewComments(ReviewInput{Notes: []ReviewNote{{Body: body}}})
	if len(got.RequiredChanges) != 1 {
		t.Fatal("expected one change")
	}
	if len(got.RequiredChanges[0].Description) != 500 {
		t.Errorf("description length = %d, want 500", len(got.RequiredChanges[0].Description))
	}
}
