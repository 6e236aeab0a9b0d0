// Package gocommand registers the issuesync command and query handlers on a
// go-command registry and offers typed helpers for dispatching them.
package gocommand

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	issuecommand "github.com/goliatone/go-issuesync/command"
	"github.com/goliatone/go-issuesync/core"
	issuequery "github.com/goliatone/go-issuesync/query"
	"github.com/goliatone/go-issuesync/webhooks"
)

var errRegistryMissing = fmt.Errorf("gocommand: registry is not configured")

// ValidateMessageContract requires a non empty Type() and runs Validate()
// when the message has one.
func ValidateMessageContract(msg any) error {
	typed, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: %T does not implement Type() string", msg)
	}
	if strings.TrimSpace(typed.Type()) == "" {
		return fmt.Errorf("gocommand: %T has an empty message type", msg)
	}
	return command.ValidateMessage(msg)
}

// RegistryAdapter tracks which message types were registered so a second
// handler for the same type fails before reaching go-command.
type RegistryAdapter struct {
	registry *command.Registry

	mu    sync.Mutex
	types map[string]struct{}
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry, types: map[string]struct{}{}}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) configured() bool {
	return a != nil && a.registry != nil
}

func (a *RegistryAdapter) register(messageType string, handler any) error {
	if !a.configured() {
		return errRegistryMissing
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.types == nil {
		a.types = map[string]struct{}{}
	}
	if _, exists := a.types[messageType]; exists {
		return core.ConflictError(
			fmt.Sprintf("gocommand: handler for %q already registered", messageType),
			map[string]any{"message_type": messageType},
		)
	}
	if err := a.registry.RegisterCommand(handler); err != nil {
		return err
	}
	a.types[messageType] = struct{}{}
	return nil
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if !a.configured() {
		return errRegistryMissing
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	return a.configured() && a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if !a.configured() {
		return errRegistryMissing
	}
	return a.registry.Initialize()
}

// ProcessWebhook dispatches req as a ProcessWebhookMessage and returns the
// envelope stored by the handler. Without a stored envelope one is rendered
// from the dispatch error.
func ProcessWebhook(ctx context.Context, req core.WebhookRequest) (webhooks.Response, error) {
	collector := command.NewResult[webhooks.Response]()
	err := commanddispatcher.Dispatch(
		command.ContextWithResult(ctx, collector),
		issuecommand.ProcessWebhookMessage{Request: req},
	)
	if resp, ok := collector.Load(); ok {
		return resp, err
	}
	if err != nil {
		return webhooks.ErrorResponse(err), err
	}
	return webhooks.SuccessResponse(), nil
}

func GetIssue(ctx context.Context, key string) (core.Issue, error) {
	return commanddispatcher.Query[issuequery.GetIssueMessage, core.Issue](ctx, issuequery.GetIssueMessage{Key: key})
}

func GetProject(ctx context.Context, externalID string) (core.Project, error) {
	return commanddispatcher.Query[issuequery.GetProjectMessage, core.Project](
		ctx,
		issuequery.GetProjectMessage{ExternalID: externalID},
	)
}

func ListProjectIssues(ctx context.Context, projectID string, limit int, offset int) (core.IssuePage, error) {
	return commanddispatcher.Query[issuequery.ListProjectIssuesMessage, core.IssuePage](
		ctx,
		issuequery.ListProjectIssuesMessage{ProjectID: projectID, Limit: limit, Offset: offset},
	)
}
