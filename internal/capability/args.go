package capability

// Argument builders for each capability. Backend implementations do not
// agree on argument key names, so the same logical value is sent under
// every plausible alias. Unknown keys are ignored by well-behaved MCP
// servers, so over-sending is harmless. Keeping the alias lists here — one
// builder per capability — is the single place they are maintained.

// IssueArgs builds arguments for get-issue and similar single-issue calls.
func IssueArgs(issueKey string) map[string]any {
	return map[string]any{
		"issue_key": issueKey,
		"issueKey":  issueKey,
		"key":       issueKey,
	}
}

// SearchArgs builds arguments for a JQL issue search.
func SearchArgs(jql string, limit int) map[string]any {
	return map[string]any{
		"jql":         jql,
		"query":       jql,
		"max_results": limit,
		"maxResults":  limit,
		"limit":       limit,
	}
}

// TransitionArgs builds arguments for transitioning an issue to a named state.
func TransitionArgs(issueKey, transitionName string) map[string]any {
	args := IssueArgs(issueKey)
	args["transition_name"] = transitionName
	args["transitionName"] = transitionName
	return args
}

// CommentArgs builds arguments for adding a comment to an issue.
func CommentArgs(issueKey, body string) map[string]any {
	args := IssueArgs(issueKey)
	args["body"] = body
	args["comment"] = body
	return args
}

// CreateIssueArgs builds arguments for creating an issue, optionally as a
// sub-task under a parent.
func CreateIssueArgs(projectKey, summary, description, parentKey string) map[string]any {
	args := map[string]any{
		"project":     projectKey,
		"project_key": projectKey,
		"summary":     summary,
		"title":       summary,
		"description": description,
		"issuetype":   "Sub-task",
		"issueType":   "Sub-task",
		"type":        "Sub-task",
	}
	if parentKey != "" {
		args["parent"] = parentKey
		args["parent_key"] = parentKey
		args["parentKey"] = parentKey
	}
	return args
}

// RepoArgs builds arguments for repository-level code-host calls.
func RepoArgs(repoPath string) map[string]any {
	return map[string]any{
		"repo_path": repoPath,
		"path":      repoPath,
		"cwd":       repoPath,
	}
}

// LogArgs builds arguments for a commit-log call.
func LogArgs(repoPath string, count int) map[string]any {
	args := RepoArgs(repoPath)
	args["max_count"] = count
	args["limit"] = count
	return args
}

// MergeRequestArgs builds arguments for listing merge requests.
func MergeRequestArgs(project, state string, limit int) map[string]any {
	return map[string]any{
		"project_id": project,
		"projectId":  project,
		"project":    project,
		"state":      state,
		"per_page":   limit,
		"limit":      limit,
	}
}

// MRNotesArgs builds arguments for listing one merge request's notes.
func MRNotesArgs(project string, mrIID int) map[string]any {
	return map[string]any{
		"project_id":        project,
		"projectId":         project,
		"project":           project,
		"mr_iid":            mrIID,
		"merge_request_iid": mrIID,
		"iid":               mrIID,
	}
}
