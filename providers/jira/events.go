package jira

import "github.com/goliatone/go-issuesync/core"

const (
	WebhookType = "jira"

	// DiscriminatorField names the payload attribute carrying the event name.
	DiscriminatorField = "webhookEvent"

	EventIssueCreated   = "jira:issue_created"
	EventIssueUpdated   = "jira:issue_updated"
	EventIssueDeleted   = "jira:issue_deleted"
	EventProjectCreated = "project_created"
	EventProjectUpdated = "project_updated"
	EventProjectDeleted = "project_deleted"
)

type eventRoute struct {
	entity core.EntityKind
	change core.ChangeKind
}

var eventRoutes = map[string]eventRoute{
	EventIssueCreated:   {entity: core.EntityIssue, change: core.ChangeCreated},
	EventIssueUpdated:   {entity: core.EntityIssue, change: core.ChangeUpdated},
	EventIssueDeleted:   {entity: core.EntityIssue, change: core.ChangeDeleted},
	EventProjectCreated: {entity: core.EntityProject, change: core.ChangeCreated},
	EventProjectUpdated: {entity: core.EntityProject, change: core.ChangeUpdated},
	EventProjectDeleted: {entity: core.EntityProject, change: core.ChangeDeleted},
}

// SupportedEvents lists the event names that mutate the store.
func SupportedEvents() []string {
	return []string{
		EventIssueCreated,
		EventIssueUpdated,
		EventIssueDeleted,
		EventProjectCreated,
		EventProjectUpdated,
		EventProjectDeleted,
	}
}
