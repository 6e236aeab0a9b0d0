package query

import "strings"

const (
	TypeGetIssue          = "issuesync.query.issue.get"
	TypeGetProject        = "issuesync.query.project.get"
	TypeListProjectIssues = "issuesync.query.project.issues.list"
)

type GetIssueMessage struct {
	Key string
}

func (GetIssueMessage) Type() string { return TypeGetIssue }

func (m GetIssueMessage) Validate() error {
	if strings.TrimSpace(m.Key) == "" {
		return queryValidationError("key", "issue key is required")
	}
	return nil
}

// GetProjectMessage looks a project up by its remote numeric id.
type GetProjectMessage struct {
	ExternalID string
}

func (GetProjectMessage) Type() string { return TypeGetProject }

func (m GetProjectMessage) Validate() error {
	if strings.TrimSpace(m.ExternalID) == "" {
		return queryValidationError("external_id", "project external id is required")
	}
	return nil
}

type ListProjectIssuesMessage struct {
	ProjectID string
	Limit     int
	Offset    int
}

func (ListProjectIssuesMessage) Type() string { return TypeListProjectIssues }

func (m ListProjectIssuesMessage) Validate() error {
	if strings.TrimSpace(m.ProjectID) == "" {
		return queryValidationError("project_id", "project id is required")
	}
	if m.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	if m.Offset < 0 {
		return queryValidationError("offset", "offset must be >= 0")
	}
	return nil
}
