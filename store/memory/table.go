package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-issuesync/core"
	"github.com/google/uuid"
)

type accessor[T any] struct {
	entity   core.EntityKind
	key      func(T) string
	id       func(T) string
	setID    func(*T, string)
	// stamp sets timestamps; previous is nil for a fresh record.
	stamp    func(record *T, previous *T, now time.Time)
	clone    func(T) T
	clearRef func(*T, string) bool
}

type table[T any] struct {
	mu       sync.RWMutex
	acc      accessor[T]
	byID     map[string]T
	idByKey  map[string]string
	notifier *core.ChangeNotifier
	now      func() time.Time
	writes   int
}

func newTable[T any](acc accessor[T], notifier *core.ChangeNotifier) *table[T] {
	return &table[T]{
		acc:      acc,
		byID:     map[string]T{},
		idByKey:  map[string]string{},
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (t *table[T]) get(_ context.Context, id string) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	record, ok := t.byID[strings.TrimSpace(id)]
	if !ok {
		var zero T
		return zero, core.NotFoundError(t.acc.entity, id)
	}
	return t.acc.clone(record), nil
}

func (t *table[T]) findByKey(_ context.Context, key string) (T, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var zero T
	id, ok := t.idByKey[strings.TrimSpace(key)]
	if !ok {
		return zero, false, nil
	}
	return t.acc.clone(t.byID[id]), true, nil
}

func (t *table[T]) insert(ctx context.Context, record T, opts core.WriteOptions) (T, error) {
	var zero T
	key := strings.TrimSpace(t.acc.key(record))
	if key == "" {
		return zero, fmt.Errorf("store/memory: %s key is required", t.acc.entity)
	}

	t.mu.Lock()
	if _, exists := t.idByKey[key]; exists {
		t.mu.Unlock()
		return zero, fmt.Errorf("store/memory: unique constraint failed: %s key %q", t.acc.entity, key)
	}
	stored := t.acc.clone(record)
	if strings.TrimSpace(t.acc.id(stored)) == "" {
		t.acc.setID(&stored, uuid.NewString())
	}
	if _, exists := t.byID[t.acc.id(stored)]; exists {
		t.mu.Unlock()
		return zero, fmt.Errorf("store/memory: unique constraint failed: %s id %q", t.acc.entity, t.acc.id(stored))
	}
	t.acc.stamp(&stored, nil, t.now())
	t.byID[t.acc.id(stored)] = stored
	t.idByKey[key] = t.acc.id(stored)
	t.writes++
	t.mu.Unlock()

	t.notify(ctx, core.ChangeCreated, stored, opts)
	return t.acc.clone(stored), nil
}

func (t *table[T]) upsert(ctx context.Context, record T, opts core.WriteOptions) (T, error) {
	var zero T
	key := strings.TrimSpace(t.acc.key(record))
	if key == "" {
		return zero, fmt.Errorf("store/memory: %s key is required", t.acc.entity)
	}

	t.mu.Lock()
	stored := t.acc.clone(record)
	change := core.ChangeCreated
	if id, exists := t.idByKey[key]; exists {
		change = core.ChangeUpdated
		previous := t.byID[id]
		t.acc.setID(&stored, id)
		t.acc.stamp(&stored, &previous, t.now())
	} else {
		if strings.TrimSpace(t.acc.id(stored)) == "" {
			t.acc.setID(&stored, uuid.NewString())
		}
		t.acc.stamp(&stored, nil, t.now())
	}
	t.byID[t.acc.id(stored)] = stored
	t.idByKey[key] = t.acc.id(stored)
	t.writes++
	t.mu.Unlock()

	t.notify(ctx, change, stored, opts)
	return t.acc.clone(stored), nil
}

func (t *table[T]) delete(ctx context.Context, record T, opts core.WriteOptions) error {
	id := strings.TrimSpace(t.acc.id(record))
	t.mu.Lock()
	stored, ok := t.byID[id]
	if !ok {
		t.mu.Unlock()
		return nil
	}
	delete(t.byID, id)
	delete(t.idByKey, strings.TrimSpace(t.acc.key(stored)))
	t.writes++
	t.mu.Unlock()

	t.notify(ctx, core.ChangeDeleted, stored, opts)
	return nil
}

// clearReferences runs clearRef over every record, counting no writes.
func (t *table[T]) clearReferences(ref string) {
	if t.acc.clearRef == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, record := range t.byID {
		if t.acc.clearRef(&record, ref) {
			t.byID[id] = record
		}
	}
}

func (t *table[T]) list() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]string, 0, len(t.idByKey))
	for key := range t.idByKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]T, 0, len(keys))
	for _, key := range keys {
		out = append(out, t.acc.clone(t.byID[t.idByKey[key]]))
	}
	return out
}

func (t *table[T]) writeCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.writes
}

func (t *table[T]) notify(ctx context.Context, change core.ChangeKind, record T, opts core.WriteOptions) {
	if t.notifier == nil {
		return
	}
	t.notifier.Publish(ctx, core.ChangeEvent{
		Entity:   t.acc.entity,
		Change:   change,
		RecordID: t.acc.id(record),
		Key:      t.acc.key(record),
	}, opts)
}
