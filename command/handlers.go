package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-issuesync/core"
	"github.com/goliatone/go-issuesync/webhooks"
)

type WebhookDispatcher interface {
	ResolveType(req core.WebhookRequest) string
	Dispatch(ctx context.Context, webhookType string, req core.WebhookRequest) error
}

type ProcessWebhookCommand struct {
	dispatcher WebhookDispatcher
}

func NewProcessWebhookCommand(dispatcher WebhookDispatcher) *ProcessWebhookCommand {
	return &ProcessWebhookCommand{dispatcher: dispatcher}
}

// Execute dispatches the delivery and stores the rendered webhooks.Response
// in the context result collector. The dispatch error is returned as is.
func (c *ProcessWebhookCommand) Execute(ctx context.Context, msg ProcessWebhookMessage) error {
	if c == nil || c.dispatcher == nil {
		return commandDependencyError("command: webhook dispatcher is required")
	}
	err := c.dispatcher.Dispatch(ctx, c.dispatcher.ResolveType(msg.Request), msg.Request)
	if err != nil {
		storeResult(ctx, webhooks.ErrorResponse(err))
		return err
	}
	storeResult(ctx, webhooks.SuccessResponse())
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
