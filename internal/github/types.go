package github

import "time"

// Issue is the fetched shape of a GitHub issue.
type Issue struct {
	ID        string // GraphQL node ID, stable across renumbering
	Number    int
	Title     string
	Body      string
	State     string // "open" or "closed"
	UpdatedAt time.Time
}

// PullRequest is the fetched shape of a GitHub pull request, including
// the ordered list of changed file paths used for content hashing.
type PullRequest struct {
	ID        string
	Number    int
	Title     string
	Body      string
	State     string // "open" or "closed"
	Merged    bool
	Files     []string
	UpdatedAt time.Time
}

// Open reports whether the issue is still open.
func (i Issue) Open() bool {
	return i.State == "open"
}

// Open reports whether the pull request is still open. A merged pull
// request is never open regardless of the reported state.
func (p PullRequest) Open() bool {
	return p.State == "open" && !p.Merged
}
