// Package issuesync wires the issue tracker webhook pipeline: a webhook type
// registry with the Jira processor, record stores, change observers and the
// command, query and HTTP surfaces on top of them.
package issuesync

import "github.com/goliatone/go-issuesync/core"

type Config = core.Config

type WebhookRequest = core.WebhookRequest

type WriteOptions = core.WriteOptions

type ChangeEvent = core.ChangeEvent

type ChangeObserver = core.ChangeObserver

type ChangeObserverFunc = core.ChangeObserverFunc

func DefaultConfig() Config {
	return core.DefaultConfig()
}
