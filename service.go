package issuesync

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goliatone/go-issuesync/command"
	"github.com/goliatone/go-issuesync/core"
	"github.com/goliatone/go-issuesync/httpapi"
	"github.com/goliatone/go-issuesync/providers/jira"
	"github.com/goliatone/go-issuesync/query"
	"github.com/goliatone/go-issuesync/reconcile"
	"github.com/goliatone/go-issuesync/store/memory"
	sqlstore "github.com/goliatone/go-issuesync/store/sql"
	"github.com/goliatone/go-issuesync/webhooks"
	glog "github.com/goliatone/go-logger/glog"
)

type Option func(*serviceBuilder)

type serviceBuilder struct {
	logger          core.Logger
	loggerProvider  core.LoggerProvider
	metricsRecorder core.MetricsRecorder
	configProvider  core.ConfigProvider
	optionsResolver core.OptionsResolver
	notifier        *core.ChangeNotifier
	observers       []core.ChangeObserver
	factory         *sqlstore.RepositoryFactory
	issues          core.IssueStore
	projects        core.ProjectStore
	resolver        core.ProjectResolver
	processors      []webhooks.Processor
}

func WithLogger(logger core.Logger) Option {
	return func(b *serviceBuilder) { b.logger = logger }
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(b *serviceBuilder) { b.loggerProvider = provider }
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(b *serviceBuilder) { b.metricsRecorder = recorder }
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(b *serviceBuilder) { b.configProvider = provider }
}

func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(b *serviceBuilder) { b.optionsResolver = resolver }
}

// WithChangeNotifier shares a notifier with stores built outside the service,
// such as a sqlstore factory.
func WithChangeNotifier(notifier *core.ChangeNotifier) Option {
	return func(b *serviceBuilder) { b.notifier = notifier }
}

func WithChangeObserver(observer core.ChangeObserver) Option {
	return func(b *serviceBuilder) {
		if observer != nil {
			b.observers = append(b.observers, observer)
		}
	}
}

// WithRepositoryFactory backs the service with SQL stores. It takes precedence
// over WithStores.
func WithRepositoryFactory(factory *sqlstore.RepositoryFactory) Option {
	return func(b *serviceBuilder) { b.factory = factory }
}

func WithStores(issues core.IssueStore, projects core.ProjectStore) Option {
	return func(b *serviceBuilder) {
		b.issues = issues
		b.projects = projects
	}
}

func WithProjectResolver(resolver core.ProjectResolver) Option {
	return func(b *serviceBuilder) { b.resolver = resolver }
}

// WithProcessor registers an additional webhook processor next to Jira.
func WithProcessor(processor webhooks.Processor) Option {
	return func(b *serviceBuilder) {
		if processor != nil {
			b.processors = append(b.processors, processor)
		}
	}
}

type Commands struct {
	ProcessWebhook *command.ProcessWebhookCommand
}

type Queries struct {
	GetIssue          *query.GetIssueQuery
	GetProject        *query.GetProjectQuery
	ListProjectIssues *query.ListProjectIssuesQuery
}

type Service struct {
	config     Config
	logger     core.Logger
	notifier   *core.ChangeNotifier
	issues     core.IssueStore
	projects   core.ProjectStore
	lister     query.ProjectIssueLister
	registry   *webhooks.Registry
	dispatcher *webhooks.Dispatcher
	commands   Commands
	queries    Queries
}

// NewService resolves cfg as the runtime layer over the configured provider
// and builds the webhook pipeline. Without stores it runs on the memory store.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := serviceBuilder{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("issuesync", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("issuesync"); named != nil {
			logger = glog.Ensure(named)
		}
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = core.NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = core.NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = core.GoOptionsResolver{}
	}
	resolved, err := core.ResolveConfig(context.Background(), builder.configProvider, builder.optionsResolver, cfg)
	if err != nil {
		return nil, fmt.Errorf("issuesync: resolve config: %w", err)
	}

	if builder.notifier == nil {
		builder.notifier = core.NewChangeNotifier()
	}
	if !builder.notifier.HasLogger() {
		builder.notifier.SetLogger(logger)
	}
	for _, observer := range builder.observers {
		builder.notifier.Register(observer)
	}

	svc := &Service{config: resolved, logger: logger, notifier: builder.notifier}
	if err := svc.initStores(&builder); err != nil {
		return nil, err
	}

	processor, err := jira.NewProcessor(jira.Config{
		Issues:   svc.issues,
		Projects: svc.projects,
		Resolver: builder.resolver,
		Locker:   reconcile.NewKeyedLocker(),
		Logger:   logger,
		Metrics:  builder.metricsRecorder,
	})
	if err != nil {
		return nil, err
	}
	svc.registry = webhooks.NewRegistry()
	for _, candidate := range append([]webhooks.Processor{processor}, builder.processors...) {
		if err := svc.registry.Register(candidate); err != nil {
			return nil, err
		}
	}
	svc.dispatcher = webhooks.NewDispatcher(svc.registry,
		webhooks.WithValidateBeforeProcess(resolved.Webhook.ValidateBeforeProcess),
		webhooks.WithPathMarker(resolved.Webhook.PathMarker),
		webhooks.WithLogger(logger),
		webhooks.WithMetricsRecorder(builder.metricsRecorder),
	)

	svc.commands = Commands{
		ProcessWebhook: command.NewProcessWebhookCommand(svc.dispatcher),
	}
	svc.queries = Queries{
		GetIssue:   query.NewGetIssueQuery(svc.issues),
		GetProject: query.NewGetProjectQuery(svc.projects),
	}
	if svc.lister != nil {
		svc.queries.ListProjectIssues = query.NewListProjectIssuesQuery(svc.lister)
	}

	logger.Info("issuesync service ready",
		"service", resolved.ServiceName,
		"webhook_types", svc.registry.Types(),
		"validate_before_process", resolved.Webhook.ValidateBeforeProcess,
	)
	return svc, nil
}

func (s *Service) initStores(builder *serviceBuilder) error {
	switch {
	case builder.factory != nil:
		s.issues = builder.factory.IssueStore()
		s.projects = builder.factory.ProjectStore()
		if builder.resolver == nil {
			builder.resolver = builder.factory.ProjectResolver()
		}
	case builder.issues != nil || builder.projects != nil:
		if builder.issues == nil || builder.projects == nil {
			return fmt.Errorf("issuesync: issue and project stores must be provided together")
		}
		s.issues = builder.issues
		s.projects = builder.projects
	default:
		store := memory.New(s.notifier)
		s.issues = store.Issues()
		s.projects = store.Projects()
	}
	if lister, ok := s.issues.(query.ProjectIssueLister); ok {
		s.lister = lister
	}
	return nil
}

func (s *Service) Config() Config {
	return s.config
}

func (s *Service) Registry() *webhooks.Registry {
	return s.registry
}

func (s *Service) Dispatcher() *webhooks.Dispatcher {
	return s.dispatcher
}

func (s *Service) Notifier() *core.ChangeNotifier {
	return s.notifier
}

func (s *Service) IssueStore() core.IssueStore {
	return s.issues
}

func (s *Service) ProjectStore() core.ProjectStore {
	return s.projects
}

func (s *Service) Commands() Commands {
	if s == nil {
		return Commands{}
	}
	return s.commands
}

func (s *Service) Queries() Queries {
	if s == nil {
		return Queries{}
	}
	return s.queries
}

// HandleWebhook derives the webhook type from req.Path and renders the outcome.
func (s *Service) HandleWebhook(ctx context.Context, req WebhookRequest) webhooks.Response {
	return s.dispatcher.HandlePath(ctx, req)
}

// HTTPHandler returns the chi router serving webhooks and the read routes.
func (s *Service) HTTPHandler() (http.Handler, error) {
	cfg := httpapi.Config{
		Webhooks: s.dispatcher,
		Issues:   s.issues,
		Projects: s.projects,
		Logger:   s.logger,
	}
	if s.lister != nil {
		cfg.ProjectIssues = s.lister
	}
	return httpapi.NewRouter(cfg)
}
