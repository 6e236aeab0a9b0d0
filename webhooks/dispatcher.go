package webhooks

import (
	"context"
	"time"

	"github.com/goliatone/go-issuesync/core"
	glog "github.com/goliatone/go-logger/glog"
)

// Checker is implemented by processors that can explain a failed Validate.
type Checker interface {
	Check(ctx context.Context, req core.WebhookRequest) error
}

type DispatcherOption func(*Dispatcher)

// WithValidateBeforeProcess rejects deliveries whose processor reports them
// invalid before Process runs.
func WithValidateBeforeProcess(enabled bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.validateBeforeProcess = enabled
	}
}

func WithPathMarker(marker string) DispatcherOption {
	return func(d *Dispatcher) {
		if marker != "" {
			d.pathMarker = marker
		}
	}
}

func WithLogger(logger core.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.observer.Logger = logger
		}
	}
}

func WithMetricsRecorder(metrics core.MetricsRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		if metrics != nil {
			d.observer.Metrics = metrics
		}
	}
}

type Dispatcher struct {
	registry              *Registry
	validateBeforeProcess bool
	pathMarker            string
	observer              core.Observer
}

func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	if registry == nil {
		registry = NewRegistry()
	}
	_, logger := glog.Resolve("issuesync.webhooks", nil, nil)
	d := &Dispatcher{
		registry:   registry,
		pathMarker: core.DefaultWebhookPathMarker,
		observer:   core.NewObserver(logger, core.NopMetricsRecorder{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs the processor registered for webhookType. Unknown and empty
// types fail with an unsupported webhook type error.
func (d *Dispatcher) Dispatch(ctx context.Context, webhookType string, req core.WebhookRequest) error {
	startedAt := time.Now().UTC()
	webhookType = NormalizeType(webhookType)
	err := d.dispatch(ctx, webhookType, req)
	d.observer.ObserveOperation(ctx, startedAt, "webhook_dispatch", err, map[string]any{
		"webhook_type": webhookType,
		"path":         req.Path,
	})
	return err
}

func (d *Dispatcher) dispatch(ctx context.Context, webhookType string, req core.WebhookRequest) error {
	processor, ok := d.registry.Get(webhookType)
	if !ok {
		return core.UnsupportedWebhookTypeError(webhookType)
	}
	req.Type = webhookType
	if d.validateBeforeProcess {
		if err := validate(ctx, processor, req); err != nil {
			return err
		}
	}
	return processor.Process(ctx, req)
}

// Handle dispatches and renders the outcome as a Response.
func (d *Dispatcher) Handle(ctx context.Context, webhookType string, req core.WebhookRequest) Response {
	if err := d.Dispatch(ctx, webhookType, req); err != nil {
		return ErrorResponse(err)
	}
	return SuccessResponse()
}

// ResolveType returns the normalized req.Type, falling back to the type named
// by req.Path.
func (d *Dispatcher) ResolveType(req core.WebhookRequest) string {
	if webhookType := NormalizeType(req.Type); webhookType != "" {
		return webhookType
	}
	return TypeFromPathWithMarker(req.Path, d.pathMarker)
}

// HandlePath derives the webhook type from req.Path using the configured
// marker and handles the delivery.
func (d *Dispatcher) HandlePath(ctx context.Context, req core.WebhookRequest) Response {
	return d.Handle(ctx, TypeFromPathWithMarker(req.Path, d.pathMarker), req)
}

func validate(ctx context.Context, processor Processor, req core.WebhookRequest) error {
	if checker, ok := processor.(Checker); ok {
		return checker.Check(ctx, req)
	}
	if !processor.Validate(ctx, req) {
		return core.MissingDiscriminatorError("")
	}
	return nil
}
