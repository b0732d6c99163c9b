package workflow

import (
	"regexp"
	"strings"
)

// ReviewNote is one comment on a merge request.
type ReviewNote struct {
	Body     string `json:"body"`
	System   bool   `json:"system"`
	Resolved bool   `json:"resolved"`
	Author   struct {
		Username string `json:"username"`
	} `json:"author"`
}

// ReviewDiscussion groups notes into a thread.
type ReviewDiscussion struct {
	Notes []ReviewNote `json:"notes"`
}

// ReviewInput is the raw material for review analysis.
type ReviewInput struct {
	Notes       []ReviewNote       `json:"notes"`
	Discussions []ReviewDiscussion `json:"discussions"`
}

// RequiredChange is one actionable item extracted from review comments.
type RequiredChange struct {
	Summary          string `json:"summary"`
	Description      string `json:"description"`
	Priority         string `json:"priority"`
	EstimatedMinutes int    `json:"estimatedMinutes"`
	ReviewerUsername string `json:"reviewerUsername,omitempty"`
}

// ReviewAnalysis summarizes what a merge request's reviewers still want.
type ReviewAnalysis struct {
	ChangesRequested  bool             `json:"changesRequested"`
	RequiredChanges   []RequiredChange `json:"requiredChanges"`
	UnresolvedThreads int              `json:"unresolvedThreads"`
	TotalComments     int              `json:"totalComments"`
}

var (
	highPriorityPattern   = regexp.MustCompile(`\b(must|critical|blocker|required|need to)\b`)
	mediumPriorityPattern = regexp.MustCompile(`\b(should|please|recommend|better)\b`)
	headingPrefixPattern  = regexp.MustCompile(`^#+\s*`)
)

// AnalyzeReviewComments extracts required changes from merge-request
// notes and discussions. System-generated notes are dropped, resolved
// notes count toward the total but produce no changes, and priority is
// inferred from the reviewer's wording.
func AnalyzeReviewComments(input ReviewInput) ReviewAnalysis {
	var notes []ReviewNote
	for _, n := range input.Notes {
		if n.System || strings.TrimSpace(n.Body) == "" {
			continue
		}
		notes = append(notes, n)
	}
	for _, d := range input.Discussions {
		for _, n := range d.Notes {
			if strings.TrimSpace(n.Body) == "" {
				continue
			}
			notes = append(notes, n)
		}
	}

	analysis := ReviewAnalysis{
		RequiredChanges: []RequiredChange{},
		TotalComments:   len(notes),
	}
	for _, n := range notes {
		if n.Resolved {
			continue
		}
		analysis.UnresolvedThreads++
		priority := inferPriority(n.Body)
		body := n.Body
		if len(body) > 500 {
			body = body[:500]
		}
		analysis.RequiredChanges = append(analysis.RequiredChanges, RequiredChange{
			Summary:          summarizeComment(n.Body, 80),
			Description:      body,
			Priority:         priority,
			EstimatedMinutes: estimateMinutes(priority, len(n.Body)),
			ReviewerUsername: n.Author.Username,
		})
	}
	analysis.ChangesRequested = analysis.UnresolvedThreads > 0
	return analysis
}

func inferPriority(text string) string {
	t := strings.ToLower(text)
	if highPriorityPattern.MatchString(t) {
		return "high"
	}
	if mediumPriorityPattern.MatchString(t) {
		return "medium"
	}
	return "low"
}

// summarizeComment keeps the first line, stripped of markdown headings,
// truncated with an ellipsis.
func summarizeComment(body string, maxLen int) string {
	firstLine := strings.TrimSpace(strings.SplitN(body, "\n", 2)[0])
	cleaned := strings.TrimSpace(headingPrefixPattern.ReplaceAllString(firstLine, ""))
	if len(cleaned) <= maxLen {
		return cleaned
	}
	return cleaned[:maxLen-3] + "..."
}

// estimateMinutes assigns a base effort by priority plus a length bonus
// capped at 30 minutes.
func estimateMinutes(priority string, bodyLength int) int {
	base := 10
	switch priority {
	case "high":
		base = 20
	case "medium":
		base = 15
	}
	extra := bodyLength / 50
	if extra > 30 {
		extra = 30
	}
	return base + extra
}
