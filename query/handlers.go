package query

import (
	"context"
	"strings"

	"github.com/goliatone/go-issuesync/core"
)

type IssueReader interface {
	FindByKey(ctx context.Context, key string) (core.Issue, bool, error)
}

type ProjectReader interface {
	FindByKey(ctx context.Context, externalID string) (core.Project, bool, error)
}

type ProjectIssueLister interface {
	ListByProject(ctx context.Context, projectID string, limit int, offset int) ([]core.Issue, int, error)
}

type GetIssueQuery struct {
	reader IssueReader
}

func NewGetIssueQuery(reader IssueReader) *GetIssueQuery {
	return &GetIssueQuery{reader: reader}
}

func (q *GetIssueQuery) Query(ctx context.Context, msg GetIssueMessage) (core.Issue, error) {
	if q == nil || q.reader == nil {
		return core.Issue{}, queryDependencyError("query: issue reader is required")
	}
	key := strings.TrimSpace(msg.Key)
	issue, found, err := q.reader.FindByKey(ctx, key)
	if err != nil {
		return core.Issue{}, err
	}
	if !found {
		return core.Issue{}, core.NotFoundError(core.EntityIssue, key)
	}
	return issue, nil
}

type GetProjectQuery struct {
	reader ProjectReader
}

func NewGetProjectQuery(reader ProjectReader) *GetProjectQuery {
	return &GetProjectQuery{reader: reader}
}

func (q *GetProjectQuery) Query(ctx context.Context, msg GetProjectMessage) (core.Project, error) {
	if q == nil || q.reader == nil {
		return core.Project{}, queryDependencyError("query: project reader is required")
	}
	externalID := strings.TrimSpace(msg.ExternalID)
	project, found, err := q.reader.FindByKey(ctx, externalID)
	if err != nil {
		return core.Project{}, err
	}
	if !found {
		return core.Project{}, core.NotFoundError(core.EntityProject, externalID)
	}
	return project, nil
}

type ListProjectIssuesQuery struct {
	lister ProjectIssueLister
}

func NewListProjectIssuesQuery(lister ProjectIssueLister) *ListProjectIssuesQuery {
	return &ListProjectIssuesQuery{lister: lister}
}

func (q *ListProjectIssuesQuery) Query(ctx context.Context, msg ListProjectIssuesMessage) (core.IssuePage, error) {
	if q == nil || q.lister == nil {
		return core.IssuePage{}, queryDependencyError("query: issue lister is required")
	}
	limit := msg.Limit
	if limit == 0 {
		limit = 50
	}
	items, total, err := q.lister.ListByProject(ctx, strings.TrimSpace(msg.ProjectID), limit, msg.Offset)
	if err != nil {
		return core.IssuePage{}, err
	}
	return core.IssuePage{Items: items, Total: total, Limit: limit, Offset: msg.Offset}, nil
}
