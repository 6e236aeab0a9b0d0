package httpapi

import (
	"time"

	"github.com/goliatone/go-issuesync/core"
)

type errorView struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type issueView struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Summary     string    `json:"summary"`
	Description *string   `json:"description"`
	Status      string    `json:"status"`
	IssueType   string    `json:"issue_type"`
	ProjectID   *string   `json:"project_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newIssueView(issue core.Issue) issueView {
	return issueView{
		ID:          issue.ID,
		Key:         issue.Key,
		Summary:     issue.Summary,
		Description: issue.Description,
		Status:      issue.Status,
		IssueType:   issue.IssueType,
		ProjectID:   issue.ProjectID,
		CreatedAt:   issue.CreatedAt,
		UpdatedAt:   issue.UpdatedAt,
	}
}

type projectView struct {
	ID          string    `json:"id"`
	ExternalID  string    `json:"external_id"`
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newProjectView(project core.Project) projectView {
	return projectView{
		ID:          project.ID,
		ExternalID:  project.ExternalID,
		Key:         project.Key,
		Name:        project.Name,
		Description: project.Description,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
}

type issuePageView struct {
	Items  []issueView `json:"items"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

func newIssuePageView(page core.IssuePage) issuePageView {
	items := make([]issueView, 0, len(page.Items))
	for _, issue := range page.Items {
		items = append(items, newIssueView(issue))
	}
	return issuePageView{Items: items, Total: page.Total, Limit: page.Limit, Offset: page.Offset}
}
