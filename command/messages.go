package command

import (
	"strings"

	"github.com/goliatone/go-issuesync/core"
)

const TypeProcessWebhook = "issuesync.command.webhook.process"

// ProcessWebhookMessage carries one inbound delivery. Request.Type wins over
// the type encoded in Request.Path.
type ProcessWebhookMessage struct {
	Request core.WebhookRequest
}

func (ProcessWebhookMessage) Type() string { return TypeProcessWebhook }

func (m ProcessWebhookMessage) Validate() error {
	if strings.TrimSpace(m.Request.Type) == "" && strings.TrimSpace(m.Request.Path) == "" {
		return commandValidationError("type", "webhook type or request path is required")
	}
	return nil
}
