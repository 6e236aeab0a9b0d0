package jira

import (
	"github.com/goliatone/go-issuesync/core"
	"github.com/goliatone/go-issuesync/webhooks"
)

var (
	_ webhooks.Processor   = (*Processor)(nil)
	_ webhooks.Checker     = (*Processor)(nil)
	_ core.ProjectResolver = storeResolver{}
)
