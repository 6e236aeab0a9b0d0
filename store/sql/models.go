package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-issuesync/core"
	"github.com/uptrace/bun"
)

type projectRecord struct {
	bun.BaseModel `bun:"table:issuesync_projects,alias:ip"`

	ID          string    `bun:"id,pk"`
	ExternalID  string    `bun:"external_id,notnull"`
	Key         string    `bun:"project_key,notnull"`
	Name        string    `bun:"name,notnull"`
	Description *string   `bun:"description"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type issueRecord struct {
	bun.BaseModel `bun:"table:issuesync_issues,alias:ii"`

	ID          string    `bun:"id,pk"`
	Key         string    `bun:"issue_key,notnull"`
	Summary     string    `bun:"summary,notnull"`
	Description *string   `bun:"description"`
	Status      string    `bun:"status,notnull"`
	IssueType   string    `bun:"issue_type,notnull"`
	ProjectID   *string   `bun:"project_id"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newProjectRecord(project core.Project, now time.Time) *projectRecord {
	record := &projectRecord{
		ID:          strings.TrimSpace(project.ID),
		ExternalID:  strings.TrimSpace(project.ExternalID),
		Key:         strings.TrimSpace(project.Key),
		Name:        project.Name,
		Description: core.CloneString(project.Description),
		CreatedAt:   project.CreatedAt.UTC(),
		UpdatedAt:   now,
	}
	if project.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	return record
}

func (r *projectRecord) toDomain() core.Project {
	if r == nil {
		return core.Project{}
	}
	return core.Project{
		ID:          r.ID,
		ExternalID:  r.ExternalID,
		Key:         r.Key,
		Name:        r.Name,
		Description: core.CloneString(r.Description),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func newIssueRecord(issue core.Issue, now time.Time) *issueRecord {
	record := &issueRecord{
		ID:          strings.TrimSpace(issue.ID),
		Key:         strings.TrimSpace(issue.Key),
		Summary:     issue.Summary,
		Description: core.CloneString(issue.Description),
		Status:      issue.Status,
		IssueType:   issue.IssueType,
		ProjectID:   core.CloneString(issue.ProjectID),
		CreatedAt:   issue.CreatedAt.UTC(),
		UpdatedAt:   now,
	}
	if issue.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	return record
}

func (r *issueRecord) toDomain() core.Issue {
	if r == nil {
		return core.Issue{}
	}
	return core.Issue{
		ID:          r.ID,
		Key:         r.Key,
		Summary:     r.Summary,
		Description: core.CloneString(r.Description),
		Status:      r.Status,
		IssueType:   r.IssueType,
		ProjectID:   core.CloneString(r.ProjectID),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}
