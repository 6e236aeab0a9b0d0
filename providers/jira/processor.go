package jira

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-issuesync/core"
	"github.com/goliatone/go-issuesync/reconcile"
	glog "github.com/goliatone/go-logger/glog"
)

type Config struct {
	Issues   core.IssueStore
	Projects core.ProjectStore
	// Resolver links issues to local projects. Defaults to a lookup against
	// Projects.
	Resolver core.ProjectResolver
	Locker   *reconcile.KeyedLocker
	Logger   core.Logger
	Metrics  core.MetricsRecorder
}

type eventHandler func(ctx context.Context, env envelope, opts core.WriteOptions) (reconcile.Outcome, string, error)

type Processor struct {
	issues   *reconcile.Reconciler[issueDocument, core.Issue]
	projects *reconcile.Reconciler[projectDocument, core.Project]
	handlers map[string]eventHandler
	observer core.Observer
}

func NewProcessor(cfg Config) (*Processor, error) {
	if cfg.Issues == nil {
		return nil, fmt.Errorf("providers/jira: issue store is required")
	}
	if cfg.Projects == nil {
		return nil, fmt.Errorf("providers/jira: project store is required")
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = storeResolver{projects: cfg.Projects}
	}
	locker := cfg.Locker
	if locker == nil {
		locker = reconcile.NewKeyedLocker()
	}
	_, logger := glog.Resolve("issuesync.jira", nil, cfg.Logger)
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}

	m := mapper{resolver: resolver}
	issues, err := reconcile.New(reconcile.Kind[issueDocument, core.Issue]{
		Entity: core.EntityIssue,
		Key:    issueKey,
		Create: m.newIssue,
		Merge:  m.mergeIssue,
	}, core.RecordStore[core.Issue](cfg.Issues), reconcile.WithLocker(locker))
	if err != nil {
		return nil, err
	}
	projects, err := reconcile.New(reconcile.Kind[projectDocument, core.Project]{
		Entity: core.EntityProject,
		Key:    projectExternalID,
		Create: m.newProject,
		Merge:  m.mergeProject,
	}, core.RecordStore[core.Project](cfg.Projects), reconcile.WithLocker(locker))
	if err != nil {
		return nil, err
	}

	p := &Processor{
		issues:   issues,
		projects: projects,
		observer: core.NewObserver(logger, metrics),
	}
	p.handlers = make(map[string]eventHandler, len(eventRoutes))
	for event, route := range eventRoutes {
		switch route.entity {
		case core.EntityIssue:
			p.handlers[event] = bind(issues, route.change, issueFromEnvelope)
		case core.EntityProject:
			p.handlers[event] = bind(projects, route.change, projectFromEnvelope)
		}
	}
	return p, nil
}

func (p *Processor) Type() string {
	return WebhookType
}

// Validate reports whether the body parses and names an event. It never
// mutates state.
func (p *Processor) Validate(ctx context.Context, req core.WebhookRequest) bool {
	return p.Check(ctx, req) == nil
}

// Check is Validate with the reason for rejection.
func (p *Processor) Check(_ context.Context, req core.WebhookRequest) error {
	env, err := decodeEnvelope(req.Body)
	if err != nil {
		return core.MalformedPayloadError(err)
	}
	if env.WebhookEvent == "" {
		return core.MissingDiscriminatorError(DiscriminatorField)
	}
	return nil
}

// Process decodes the body once and applies the named event. Events outside
// the supported set succeed without touching the store.
func (p *Processor) Process(ctx context.Context, req core.WebhookRequest) error {
	startedAt := time.Now().UTC()
	env, err := decodeEnvelope(req.Body)
	if err != nil {
		err = core.MalformedPayloadError(err)
		p.observer.ObserveOperation(ctx, startedAt, "jira_event", err, map[string]any{
			"webhook_type": WebhookType,
		})
		return err
	}

	event := string(env.WebhookEvent)
	handler, ok := p.handlers[event]
	if !ok {
		p.observer.LogDebug(ctx, "ignoring unhandled jira webhook event", map[string]any{
			"webhook_type": WebhookType,
			"event":        event,
		})
		p.observer.RecordCounter(ctx, "jira_event.ignored", 1, map[string]string{"event": event})
		return nil
	}

	route := eventRoutes[event]
	outcome, key, err := handler(ctx, env, core.WebhookWriteOptions(WebhookType))
	p.observer.ObserveOperation(ctx, startedAt, "jira_event", err, map[string]any{
		"webhook_type": WebhookType,
		"event":        event,
		"entity":       string(route.entity),
		"key":          key,
		"outcome":      string(outcome),
	})
	return err
}

// bind adapts a reconciler to the event handler signature for one change kind.
func bind[P any, T any](
	r *reconcile.Reconciler[P, T],
	change core.ChangeKind,
	extract func(env envelope) (P, error),
) eventHandler {
	return func(ctx context.Context, env envelope, opts core.WriteOptions) (reconcile.Outcome, string, error) {
		payload, err := extract(env)
		if err != nil {
			return "", "", err
		}
		var result reconcile.Result[T]
		switch change {
		case core.ChangeCreated:
			result, err = r.Create(ctx, payload, opts)
		case core.ChangeUpdated:
			result, err = r.Update(ctx, payload, opts)
		case core.ChangeDeleted:
			result, err = r.Delete(ctx, payload, opts)
		default:
			err = core.InternalError(fmt.Sprintf("providers/jira: unknown change kind %q", change))
		}
		return result.Outcome, result.Key, err
	}
}

func issueFromEnvelope(env envelope) (issueDocument, error) {
	doc, found, err := decodeDocument[issueDocument](env.Issue, core.EntityIssue, "issue")
	if err != nil {
		return issueDocument{}, err
	}
	if !found {
		return issueDocument{}, core.MappingError(core.EntityIssue, "issue is required")
	}
	return doc, nil
}

func projectFromEnvelope(env envelope) (projectDocument, error) {
	doc, found, err := decodeDocument[projectDocument](env.Project, core.EntityProject, "project")
	if err != nil {
		return projectDocument{}, err
	}
	if !found {
		return projectDocument{}, core.MappingError(core.EntityProject, "project is required")
	}
	return doc, nil
}

type storeResolver struct {
	projects core.ProjectStore
}

func (r storeResolver) ResolveProjectID(ctx context.Context, externalID string) (string, bool, error) {
	project, found, err := r.projects.FindByKey(ctx, externalID)
	if err != nil || !found {
		return "", false, err
	}
	return project.ID, true, nil
}
