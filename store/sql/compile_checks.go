package sqlstore

import "github.com/goliatone/go-issuesync/core"

var (
	_ core.IssueStore      = (*IssueStore)(nil)
	_ core.ProjectStore    = (*ProjectStore)(nil)
	_ core.ProjectStore    = (*CachedProjectStore)(nil)
	_ core.ProjectResolver = (*ProjectStore)(nil)
	_ core.ProjectResolver = (*CachedProjectStore)(nil)
)
