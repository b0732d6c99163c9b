// Package capability maps the logical operations Relay needs onto the
// operation names a backend actually advertises.
//
// Backends are discovered, not hard-coded: each advertises a tool catalog
// of (name, description) pairs, and the resolver scores catalog entries
// against per-capability matcher patterns. When discovery yields nothing —
// the backend is unreachable, or simply doesn't implement listing — the
// conventional default name is used, so backends with the obvious names
// keep working. Resolution is a best-effort hint: callers must still handle
// an error result from the subsequent invocation.
package capability

import (
	"regexp"

	"github.com/devrelay/relay/internal/gateway"
)

// Capability is one logical backend operation the orchestrator consumes.
type Capability string

const (
	SearchIssues      Capability = "search-issues"
	GetIssue          Capability = "get-issue"
	TransitionIssue   Capability = "transition-issue"
	AddComment        Capability = "add-comment"
	CreateIssue       Capability = "create-issue"
	RepoStatus        Capability = "repo-status"
	CommitLog         Capability = "commit-log"
	ListMergeRequests Capability = "list-merge-requests"
	ListMRNotes       Capability = "list-mr-notes"
)

// matcher is one scoring predicate over a catalog entry. A nil pattern
// never matches.
type matcher struct {
	name *regexp.Regexp
	desc *regexp.Regexp
}

func (m matcher) matches(t gateway.ToolInfo) bool {
	if m.name != nil && m.name.MatchString(t.Name) {
		return true
	}
	if m.desc != nil && t.Description != "" && m.desc.MatchString(t.Description) {
		return true
	}
	return false
}

// spec holds the prioritized matchers and the conventional fallback name
// for one capability. Matchers are tried in order; the first catalog entry
// matched by the highest-priority matcher wins.
type spec struct {
	backend  gateway.Backend
	matchers []matcher
	fallback string
}

var specs = map[Capability]spec{
	SearchIssues: {
		backend: gateway.Issues,
		matchers: []matcher{{
			name: regexp.MustCompile(`(?i)search|jql|issues?|assignee`),
			desc: regexp.MustCompile(`(?i)search|jql|query.*issue`),
		}},
		fallback: "search_issues",
	},
	GetIssue: {
		backend: gateway.Issues,
		matchers: []matcher{{
			name: regexp.MustCompile(`(?i)^get_?(issue|jira)`),
			desc: regexp.MustCompile(`(?i)get.*issue|fetch.*issue`),
		}},
		fallback: "get_issue",
	},
	TransitionIssue: {
		backend: gateway.Issues,
		matchers: []matcher{{
			name: regexp.MustCompile(`(?i)transition|move|status`),
			desc: regexp.MustCompile(`(?i)transition|change.*status`),
		}},
		fallback: "transition_issue",
	},
	AddComment: {
		backend: gateway.Issues,
		matchers: []matcher{{
			name: regexp.MustCompile(`(?i)comment|add_comment|create_comment`),
			desc: regexp.MustCompile(`(?i)comment.*issue|add.*comment`),
		}},
		fallback: "add_comment",
	},
	CreateIssue: {
		backend: gateway.Issues,
		// Prefer a dedicated sub-task tool over generic issue creation.
		matchers: []matcher{
			{
				name: regexp.MustCompile(`(?i)subtask|sub_task|create_subtask`),
				desc: regexp.MustCompile(`(?i)subtask|sub-task`),
			},
			{
				name: regexp.MustCompile(`(?i)create_issue|createIssue`),
				desc: regexp.MustCompile(`(?i)create.*issue`),
			},
		},
		fallback: "create_issue",
	},
	RepoStatus: {
		backend: gateway.CodeHost,
		matchers: []matcher{{
			name: regexp.MustCompile(`(?i)status|branch|state`),
			desc: regexp.MustCompile(`(?i)status|branch|working.*tree`),
		}},
		fallback: "git_status",
	},
	CommitLog: {
		backend: gateway.CodeHost,
		matchers: []matcher{{
			name: regexp.MustCompile(`(?i)log|commit|history`),
			desc: regexp.MustCompile(`(?i)log|commit|history|recent`),
		}},
		fallback: "git_log",
	},
	ListMergeRequests: {
		backend: gateway.CodeHost,
		matchers: []matcher{{
			name: regexp.MustCompile(`(?i)merge_request|merge request|list_mr|list_merge`),
			desc: regexp.MustCompile(`(?i)merge request|\bMR\b`),
		}},
		fallback: "list_merge_requests",
	},
	ListMRNotes: {
		backend: gateway.CodeHost,
		matchers: []matcher{{
			name: regexp.MustCompile(`(?i)note|comment|discussion|review`),
			desc: regexp.MustCompile(`(?i)note|comment|discussion|review.*MR`),
		}},
		fallback: "list_merge_request_notes",
	},
}

// Backend returns the backend a capability belongs to.
func (c Capability) Backend() gateway.Backend {
	return specs[c].backend
}

// DefaultName returns the conventional operation name used when discovery
// finds no match.
func (c Capability) DefaultName() string {
	return specs[c].fallback
}

// match scans the catalog with the capability's prioritized matchers.
func (c Capability) match(catalog []gateway.ToolInfo) (string, bool) {
	s, ok := specs[c]
	if !ok {
		return "", false
	}
	for _, m := range s.matchers {
		for _, t := range catalog {
			if m.matches(t) {
				return t.Name, true
			}
		}
	}
	return "", false
}
