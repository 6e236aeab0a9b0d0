// Package jira reconciles Jira issue and project webhooks into the local
// issue and project stores.
//
// Issue events carry the "jira:" namespace (jira:issue_created) while project
// events do not (project_created). Both spellings are matched exactly.
package jira
