package webhooks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-issuesync/core"
)

// Processor handles every delivery of one webhook type.
type Processor interface {
	Type() string
	// Validate is an advisory pre-flight check with no side effects.
	Validate(ctx context.Context, req core.WebhookRequest) bool
	Process(ctx context.Context, req core.WebhookRequest) error
}

type Registry struct {
	mu         sync.RWMutex
	processors map[string]Processor
}

func NewRegistry() *Registry {
	return &Registry{processors: map[string]Processor{}}
}

func (r *Registry) Register(processor Processor) error {
	if r == nil {
		return core.InternalError("webhooks: registry is nil")
	}
	if processor == nil {
		return core.BadInputError("webhooks: processor is nil")
	}
	webhookType := NormalizeType(processor.Type())
	if webhookType == "" {
		return core.BadInputError("webhooks: processor type is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.processors == nil {
		r.processors = map[string]Processor{}
	}
	if _, exists := r.processors[webhookType]; exists {
		return core.ConflictError(
			fmt.Sprintf("webhooks: processor already registered for type %q", webhookType),
			map[string]any{"webhook_type": webhookType},
		)
	}
	r.processors[webhookType] = processor
	return nil
}

func (r *Registry) Get(webhookType string) (Processor, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	processor, ok := r.processors[NormalizeType(webhookType)]
	return processor, ok
}

// Types returns the registered types in sorted order.
func (r *Registry) Types() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.processors))
	for webhookType := range r.processors {
		out = append(out, webhookType)
	}
	sort.Strings(out)
	return out
}

func NormalizeType(webhookType string) string {
	return strings.ToLower(strings.TrimSpace(webhookType))
}
