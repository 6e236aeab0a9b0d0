package gocommand

import (
	"fmt"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	issuecommand "github.com/goliatone/go-issuesync/command"
	"github.com/goliatone/go-issuesync/core"
	issuequery "github.com/goliatone/go-issuesync/query"
)

// Pipeline groups the webhook command and the read queries. Nil entries are
// skipped.
type Pipeline struct {
	ProcessWebhook    *issuecommand.ProcessWebhookCommand
	GetIssue          *issuequery.GetIssueQuery
	GetProject        *issuequery.GetProjectQuery
	ListProjectIssues *issuequery.ListProjectIssuesQuery
}

type Subscriptions []commanddispatcher.Subscription

func (s Subscriptions) Unsubscribe() {
	for _, subscription := range s {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
}

// RegisterPipeline registers and subscribes every configured handler. On
// failure the subscriptions made so far are released.
func RegisterPipeline(adapter *RegistryAdapter, pipeline Pipeline, runnerOpts ...runner.Option) (Subscriptions, error) {
	if !adapter.configured() {
		return nil, errRegistryMissing
	}
	var subs Subscriptions
	add := func(sub commanddispatcher.Subscription, err error) error {
		if err != nil {
			subs.Unsubscribe()
			return err
		}
		subs = append(subs, sub)
		return nil
	}
	if pipeline.ProcessWebhook != nil {
		if err := add(RegisterCommand[issuecommand.ProcessWebhookMessage](adapter, pipeline.ProcessWebhook, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if pipeline.GetIssue != nil {
		if err := add(RegisterQuery[issuequery.GetIssueMessage, core.Issue](adapter, pipeline.GetIssue, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if pipeline.GetProject != nil {
		if err := add(RegisterQuery[issuequery.GetProjectMessage, core.Project](adapter, pipeline.GetProject, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if pipeline.ListProjectIssues != nil {
		if err := add(RegisterQuery[issuequery.ListProjectIssuesMessage, core.IssuePage](adapter, pipeline.ListProjectIssues, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	return subs, nil
}

// RegisterCommand subscribes cmd on the global dispatcher and records it in
// the registry. The subscription is dropped when registration fails.
func RegisterCommand[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.register(messageTypeOf[T](), cmd); err != nil {
		subscription.Unsubscribe()
		return nil, err
	}
	return subscription, nil
}

func RegisterQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	subscription := commanddispatcher.SubscribeQuery(qry, runnerOpts...)
	if err := adapter.register(messageTypeOf[T](), qry); err != nil {
		subscription.Unsubscribe()
		return nil, err
	}
	return subscription, nil
}

func messageTypeOf[T any]() string {
	var zero T
	if msg, ok := any(zero).(command.Message); ok {
		return msg.Type()
	}
	return fmt.Sprintf("%T", zero)
}
