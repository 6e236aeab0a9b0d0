package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-issuesync/core"
)

var (
	_ gocmd.Querier[GetIssueMessage, core.Issue]              = (*GetIssueQuery)(nil)
	_ gocmd.Querier[GetProjectMessage, core.Project]          = (*GetProjectQuery)(nil)
	_ gocmd.Querier[ListProjectIssuesMessage, core.IssuePage] = (*ListProjectIssuesQuery)(nil)
	_ IssueReader                                             = (core.IssueStore)(nil)
	_ ProjectReader                                           = (core.ProjectStore)(nil)
)
