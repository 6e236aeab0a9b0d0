package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ChangeNotifier fans record changes out to registered observers. Stores call
// Notify after a successful write.
type ChangeNotifier struct {
	mu        sync.RWMutex
	observers []ChangeObserver
	logger    Logger
	now       func() time.Time
}

func NewChangeNotifier(observers ...ChangeObserver) *ChangeNotifier {
	n := &ChangeNotifier{observers: make([]ChangeObserver, 0, len(observers))}
	for _, observer := range observers {
		n.Register(observer)
	}
	return n
}

func (n *ChangeNotifier) Register(observer ChangeObserver) {
	if n == nil || observer == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observers = append(n.observers, observer)
}

// SetLogger sets the logger Publish reports observer failures to.
func (n *ChangeNotifier) SetLogger(logger Logger) {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logger = logger
}

// HasLogger reports whether SetLogger was given a logger.
func (n *ChangeNotifier) HasLogger() bool {
	if n == nil {
		return false
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.logger != nil
}

// Publish is Notify for stores: the write already happened, so observer
// failures are logged at warn level instead of returned.
func (n *ChangeNotifier) Publish(ctx context.Context, event ChangeEvent, opts WriteOptions) {
	err := n.Notify(ctx, event, opts)
	if err == nil {
		return
	}
	n.mu.RLock()
	logger := n.logger
	n.mu.RUnlock()
	NewObserver(logger, nil).LogWarn(ctx, "change observer failed", map[string]any{
		"entity": string(event.Entity),
		"change": string(event.Change),
		"key":    event.Key,
		"error":  err.Error(),
	})
}

// Notify runs every observer unless opts suppress downstream automation.
// Observer failures are joined and returned; they never undo the write.
func (n *ChangeNotifier) Notify(ctx context.Context, event ChangeEvent, opts WriteOptions) error {
	if n == nil || opts.SuppressDownstreamAutomation {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = n.clock()
	}
	if strings.TrimSpace(event.Source) == "" {
		event.Source = strings.TrimSpace(opts.Source)
	}
	var notifyErr error
	for _, observer := range n.snapshot() {
		if err := observer.OnChange(ctx, event); err != nil {
			notifyErr = errors.Join(notifyErr, fmt.Errorf("change observer %q failed: %w", observerName(observer), err))
		}
	}
	return notifyErr
}

func (n *ChangeNotifier) Len() int {
	if n == nil {
		return 0
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.observers)
}

func (n *ChangeNotifier) snapshot() []ChangeObserver {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]ChangeObserver, len(n.observers))
	copy(out, n.observers)
	return out
}

func (n *ChangeNotifier) clock() time.Time {
	if n.now != nil {
		return n.now().UTC()
	}
	return time.Now().UTC()
}

func observerName(observer ChangeObserver) string {
	name := strings.TrimSpace(observer.Name())
	if name == "" {
		return "unnamed"
	}
	return name
}
