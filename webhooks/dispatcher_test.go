package webhooks

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/goliatone/go-issuesync/core"
)

type stubProcessor struct {
	webhookType string
	valid       bool
	err         error

	mu        sync.Mutex
	processed []core.WebhookRequest
	validated int
}

func (p *stubProcessor) Type() string { return p.webhookType }

func (p *stubProcessor) Validate(context.Context, core.WebhookRequest) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.validated++
	return p.valid
}

func (p *stubProcessor) Process(_ context.Context, req core.WebhookRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed = append(p.processed, req)
	return p.err
}

func (p *stubProcessor) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.processed)
}

type capturedCounter struct {
	name string
	tags map[string]string
}

type captureMetricsRecorder struct {
	mu       sync.Mutex
	counters []capturedCounter
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, _ int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, tags: tags})
}

func (m *captureMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func newTestDispatcher(t *testing.T, processor Processor, opts ...DispatcherOption) *Dispatcher {
	t.Helper()
	registry := NewRegistry()
	if err := registry.Register(processor); err != nil {
		t.Fatalf("register: %v", err)
	}
	return NewDispatcher(registry, opts...)
}

func TestDispatch_UnknownOrEmptyTypeIsUnsupported(t *testing.T) {
	processor := &stubProcessor{webhookType: "jira"}
	dispatcher := newTestDispatcher(t, processor)

	for _, webhookType := range []string{"", "github", TypeFromPath("/hooks/jira")} {
		err := dispatcher.Dispatch(context.Background(), webhookType, core.WebhookRequest{Body: []byte(`{}`)})
		if !core.IsErrorKind(err, core.ErrorUnsupportedWebhookType) {
			t.Fatalf("expected unsupported type for %q, got %v", webhookType, err)
		}
	}
	if processor.calls() != 0 {
		t.Fatalf("expected processor untouched, got %d calls", processor.calls())
	}
}

func TestDispatch_RunsProcessorWithoutValidateByDefault(t *testing.T) {
	processor := &stubProcessor{webhookType: "jira", valid: false}
	dispatcher := newTestDispatcher(t, processor)

	if err := dispatcher.Dispatch(context.Background(), "JIRA", core.WebhookRequest{Body: []byte(`{}`)}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if processor.calls() != 1 {
		t.Fatalf("expected one process call, got %d", processor.calls())
	}
	if processor.validated != 0 {
		t.Fatalf("expected validate not consulted, got %d", processor.validated)
	}
	if processor.processed[0].Type != "jira" {
		t.Fatalf("expected normalized type on request, got %q", processor.processed[0].Type)
	}
}

func TestDispatch_ValidateGatingRejectsBeforeProcess(t *testing.T) {
	processor := &stubProcessor{webhookType: "jira", valid: false}
	dispatcher := newTestDispatcher(t, processor, WithValidateBeforeProcess(true))

	err := dispatcher.Dispatch(context.Background(), "jira", core.WebhookRequest{Body: []byte(`{}`)})
	if !core.IsErrorKind(err, core.ErrorMissingDiscriminator) {
		t.Fatalf("expected missing discriminator, got %v", err)
	}
	if processor.calls() != 0 {
		t.Fatalf("expected process skipped")
	}

	processor.valid = true
	if err := dispatcher.Dispatch(context.Background(), "jira", core.WebhookRequest{}); err != nil {
		t.Fatalf("dispatch valid: %v", err)
	}
	if processor.calls() != 1 {
		t.Fatalf("expected process after passing validation")
	}
}

func TestDispatch_PropagatesProcessorError(t *testing.T) {
	cause := core.StorePersistenceError(errors.New("db down"), "insert", core.EntityIssue, "A-1")
	metrics := &captureMetricsRecorder{}
	dispatcher := newTestDispatcher(t, &stubProcessor{webhookType: "jira", err: cause}, WithMetricsRecorder(metrics))

	err := dispatcher.Dispatch(context.Background(), "jira", core.WebhookRequest{})
	if !errors.Is(err, cause) {
		t.Fatalf("expected processor error unchanged, got %v", err)
	}
	found := false
	for _, counter := range metrics.counters {
		if counter.name == "issuesync.webhook_dispatch.total" && counter.tags["status"] == "failure" && counter.tags["webhook_type"] == "jira" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected failure counter, got %#v", metrics.counters)
	}
}

func TestHandle_RendersEnvelope(t *testing.T) {
	processor := &stubProcessor{webhookType: "jira"}
	dispatcher := newTestDispatcher(t, processor)

	ok := dispatcher.Handle(context.Background(), "jira", core.WebhookRequest{})
	if ok != SuccessResponse() || ok.Message != "Webhook processed successfully" {
		t.Fatalf("unexpected success response %#v", ok)
	}

	failed := dispatcher.Handle(context.Background(), "gitlab", core.WebhookRequest{})
	if failed.Status != StatusError || failed.Message == "" {
		t.Fatalf("unexpected error response %#v", failed)
	}
	if failed.OK() {
		t.Fatalf("error response must not report ok")
	}
}

func TestHandlePath_UsesMarker(t *testing.T) {
	processor := &stubProcessor{webhookType: "jira"}
	dispatcher := newTestDispatcher(t, processor, WithPathMarker("/hooks/"))

	if resp := dispatcher.HandlePath(context.Background(), core.WebhookRequest{Path: "/api/hooks/Jira/v2"}); !resp.OK() {
		t.Fatalf("expected success, got %#v", resp)
	}
	if resp := dispatcher.HandlePath(context.Background(), core.WebhookRequest{Path: "/webhook/jira"}); resp.OK() {
		t.Fatalf("expected unsupported type with custom marker")
	}
	if processor.calls() != 1 {
		t.Fatalf("expected one process call, got %d", processor.calls())
	}
}

func TestResolveType_PrefersRequestType(t *testing.T) {
	dispatcher := NewDispatcher(nil)
	if got := dispatcher.ResolveType(core.WebhookRequest{Type: " JIRA ", Path: "/webhook/github"}); got != "jira" {
		t.Fatalf("expected request type, got %q", got)
	}
	if got := dispatcher.ResolveType(core.WebhookRequest{Path: "/webhook/GitHub/x"}); got != "github" {
		t.Fatalf("expected path type, got %q", got)
	}
	if got := dispatcher.ResolveType(core.WebhookRequest{Path: "/other"}); got != "" {
		t.Fatalf("expected empty type, got %q", got)
	}
}

func TestRegistry_RejectsDuplicatesAndEmptyTypes(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&stubProcessor{webhookType: "jira"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	err := registry.Register(&stubProcessor{webhookType: " JIRA "})
	if !core.IsErrorKind(err, core.ErrorConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := registry.Register(&stubProcessor{webhookType: " "}); err == nil {
		t.Fatalf("expected empty type rejection")
	}
	if err := registry.Register(nil); err == nil {
		t.Fatalf("expected nil processor rejection")
	}
	if got := registry.Types(); len(got) != 1 || got[0] != "jira" {
		t.Fatalf("unexpected types %#v", got)
	}
}
