package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-issuesync/webhooks"
)

var (
	_ gocmd.Commander[ProcessWebhookMessage] = (*ProcessWebhookCommand)(nil)
	_ WebhookDispatcher                      = (*webhooks.Dispatcher)(nil)
)
