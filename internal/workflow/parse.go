package workflow

import (
	"encoding/json"
	"regexp"
	"strings"
)

// IssueRef is a compact issue reference from a tracker search.
type IssueRef struct {
	Key     string `json:"key"`
	Summary string `json:"summary"`
}

// Commit is one entry from a commit log.
type Commit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
}

// MergeRequest is the code host's view of an open change.
type MergeRequest struct {
	IID            int    `json:"iid"`
	Title          string `json:"title"`
	URL            string `json:"url"`
	State          string `json:"state"`
	SourceBranch   string `json:"source_branch"`
	TargetBranch   string `json:"target_branch"`
	HasConflicts   bool   `json:"has_conflicts"`
	PipelineStatus string `json:"pipeline_status,omitempty"`
}

var issueKeyPattern = regexp.MustCompile(`\b[A-Z][A-Z0-9]+-\d+\b`)

type rawIssueRef struct {
	Key     string `json:"key"`
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Fields  *struct {
		Summary string `json:"summary"`
	} `json:"fields"`
}

func (r rawIssueRef) toRef() IssueRef {
	key := r.Key
	if key == "" {
		key = r.ID
	}
	summary := r.Summary
	if r.Fields != nil && r.Fields.Summary != "" {
		summary = r.Fields.Summary
	}
	return IssueRef{Key: key, Summary: summary}
}

// parseIssues extracts issue references from a tracker search response.
// Accepts a bare array, an object with an "issues" or "results" field, or
// a single issue object. Non-JSON responses (some servers answer in
// markdown) degrade to scanning for issue-key patterns.
func parseIssues(content string) []IssueRef {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	var list []rawIssueRef
	if err := json.Unmarshal([]byte(content), &list); err == nil {
		return refsFromRaw(list)
	}

	var wrapped struct {
		Issues  []rawIssueRef `json:"issues"`
		Results []rawIssueRef `json:"results"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err == nil {
		if wrapped.Issues != nil {
			return refsFromRaw(wrapped.Issues)
		}
		if wrapped.Results != nil {
			return refsFromRaw(wrapped.Results)
		}
		var single rawIssueRef
		if err := json.Unmarshal([]byte(content), &single); err == nil && single.Key != "" {
			return []IssueRef{single.toRef()}
		}
		return nil
	}

	// Plain text fallback: pull out anything that looks like an issue key.
	seen := make(map[string]bool)
	var out []IssueRef
	for _, key := range issueKeyPattern.FindAllString(content, -1) {
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, IssueRef{Key: key})
	}
	return out
}

func refsFromRaw(raws []rawIssueRef) []IssueRef {
	out := make([]IssueRef, 0, len(raws))
	for _, r := range raws {
		out = append(out, r.toRef())
	}
	return out
}

// parseIssueSummary pulls a human-readable summary out of a get-issue
// response, preferring the nested fields form. Empty when unparseable.
func parseIssueSummary(content string) string {
	var raw rawIssueRef
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return ""
	}
	if raw.Fields != nil && raw.Fields.Summary != "" {
		return raw.Fields.Summary
	}
	if raw.Summary != "" {
		return raw.Summary
	}
	return raw.Key
}

// parseCommitLog reads "sha message" lines, at most ten.
func parseCommitLog(content string) []Commit {
	var out []Commit
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(out) == 10 {
			break
		}
		sha, message := line, ""
		if i := strings.Index(line, " "); i > 0 {
			sha, message = line[:i], strings.TrimSpace(line[i+1:])
		}
		out = append(out, Commit{SHA: sha, Message: message})
	}
	return out
}

var (
	onBranchPattern  = regexp.MustCompile(`(?i)On branch (\S+)`)
	bareLinePattern  = regexp.MustCompile(`^\*?\s*(\S+)`)
	noBranchPatterns = regexp.MustCompile(`(?i)disabled|not a git repo`)
)

// parseBranch extracts the current branch name from a repository-status
// response. Both porcelain ("On branch main") and bare ("* main") forms
// are accepted.
func parseBranch(content string) string {
	if content == "" || noBranchPatterns.MatchString(content) {
		return ""
	}
	if m := onBranchPattern.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	if m := bareLinePattern.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return ""
}

type rawMergeRequest struct {
	IID          int    `json:"iid"`
	ID           int    `json:"id"`
	Title        string `json:"title"`
	WebURL       string `json:"web_url"`
	URL          string `json:"url"`
	State        string `json:"state"`
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
	HasConflicts bool   `json:"has_conflicts"`
	Pipeline     *struct {
		Status string `json:"status"`
	} `json:"pipeline"`
	HeadPipeline *struct {
		Status string `json:"status"`
	} `json:"head_pipeline"`
}

func (r rawMergeRequest) toMR() MergeRequest {
	iid := r.IID
	if iid == 0 {
		iid = r.ID
	}
	url := r.WebURL
	if url == "" {
		url = r.URL
	}
	mr := MergeRequest{
		IID:          iid,
		Title:        r.Title,
		URL:          url,
		State:        r.State,
		SourceBranch: r.SourceBranch,
		TargetBranch: r.TargetBranch,
		HasConflicts: r.HasConflicts,
	}
	if r.Pipeline != nil {
		mr.PipelineStatus = r.Pipeline.Status
	} else if r.HeadPipeline != nil {
		mr.PipelineStatus = r.HeadPipeline.Status
	}
	return mr
}

// parseMergeRequests extracts merge requests from a list response,
// accepting a bare array or an object wrapping one.
func parseMergeRequests(content string) []MergeRequest {
	var list []rawMergeRequest
	if err := json.Unmarshal([]byte(content), &list); err == nil {
		out := make([]MergeRequest, 0, len(list))
		for _, r := range list {
			out = append(out, r.toMR())
		}
		return out
	}

	var wrapped struct {
		MergeRequests []rawMergeRequest `json:"merge_requests"`
		Results       []rawMergeRequest `json:"results"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err == nil {
		raws := wrapped.MergeRequests
		if raws == nil {
			raws = wrapped.Results
		}
		out := make([]MergeRequest, 0, len(raws))
		for _, r := range raws {
			out = append(out, r.toMR())
		}
		return out
	}
	return nil
}

// parseReviewInput extracts notes and discussions from a merge-request
// notes response. A bare array is treated as a flat note list.
func parseReviewInput(content string) ReviewInput {
	var notes []ReviewNote
	if err := json.Unmarshal([]byte(content), &notes); err == nil {
		return ReviewInput{Notes: notes}
	}

	var wrapped ReviewInput
	if err := json.Unmarshal([]byte(content), &wrapped); err == nil {
		return wrapped
	}
	return ReviewInput{}
}

// parseCreatedIssueKey pulls the new issue's key out of a create-issue
// response, falling back to the first key-shaped token in plain text.
func parseCreatedIssueKey(content string) string {
	var raw rawIssueRef
	if err := json.Unmarshal([]byte(content), &raw); err == nil {
		if raw.Key != "" {
			return raw.Key
		}
		if raw.ID != "" {
			return raw.ID
		}
	}
	return issueKeyPattern.FindString(content)
}
