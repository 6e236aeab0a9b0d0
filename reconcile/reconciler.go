package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-issuesync/core"
)

type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeDeleted Outcome = "deleted"
	OutcomeNoop    Outcome = "noop"
)

// Kind describes how payloads of type P become records of type T.
type Kind[P any, T any] struct {
	Entity core.EntityKind
	// Key extracts the reconciliation key from the payload.
	Key func(payload P) (string, error)
	// Create builds a brand new record from the payload.
	Create func(ctx context.Context, payload P) (T, error)
	// Merge overwrites only the attributes present in the payload.
	Merge func(ctx context.Context, existing T, payload P) (T, error)
}

func (k Kind[P, T]) validate() error {
	if strings.TrimSpace(string(k.Entity)) == "" {
		return fmt.Errorf("reconcile: entity kind is required")
	}
	if k.Key == nil || k.Create == nil || k.Merge == nil {
		return fmt.Errorf("reconcile: %s kind requires key, create and merge funcs", k.Entity)
	}
	return nil
}

type Result[T any] struct {
	Outcome Outcome
	Key     string
	Record  T
}

type Option func(*options)

type options struct {
	locker *KeyedLocker
}

// WithLocker shares a locker across reconcilers. Keys are namespaced by
// entity kind.
func WithLocker(locker *KeyedLocker) Option {
	return func(o *options) {
		if locker != nil {
			o.locker = locker
		}
	}
}

type Reconciler[P any, T any] struct {
	kind   Kind[P, T]
	store  core.RecordStore[T]
	locker *KeyedLocker
}

func New[P any, T any](kind Kind[P, T], store core.RecordStore[T], opts ...Option) (*Reconciler[P, T], error) {
	if err := kind.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("reconcile: %s store is required", kind.Entity)
	}
	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.locker == nil {
		cfg.locker = NewKeyedLocker()
	}
	return &Reconciler[P, T]{kind: kind, store: store, locker: cfg.locker}, nil
}

func (r *Reconciler[P, T]) Entity() core.EntityKind {
	return r.kind.Entity
}

// Create maps the payload and inserts it. An existing record for the key is
// reported by the store as a persistence failure.
func (r *Reconciler[P, T]) Create(ctx context.Context, payload P, opts core.WriteOptions) (Result[T], error) {
	key, err := r.kind.Key(payload)
	if err != nil {
		return Result[T]{}, err
	}
	unlock := r.lock(key)
	defer unlock()

	record, err := r.kind.Create(ctx, payload)
	if err != nil {
		return Result[T]{Key: key}, err
	}
	stored, err := r.store.Insert(ctx, record, opts)
	if err != nil {
		return Result[T]{Key: key}, core.StorePersistenceError(err, "insert", r.kind.Entity, key)
	}
	return Result[T]{Outcome: OutcomeCreated, Key: key, Record: stored}, nil
}

// Update merges the payload into the stored record, or creates it when the
// key is unseen, and persists with an upsert on the key.
func (r *Reconciler[P, T]) Update(ctx context.Context, payload P, opts core.WriteOptions) (Result[T], error) {
	key, err := r.kind.Key(payload)
	if err != nil {
		return Result[T]{}, err
	}
	unlock := r.lock(key)
	defer unlock()

	existing, found, err := r.store.FindByKey(ctx, key)
	if err != nil {
		return Result[T]{Key: key}, core.StorePersistenceError(err, "lookup", r.kind.Entity, key)
	}

	var record T
	outcome := OutcomeUpdated
	if found {
		record, err = r.kind.Merge(ctx, existing, payload)
	} else {
		outcome = OutcomeCreated
		record, err = r.kind.Create(ctx, payload)
	}
	if err != nil {
		return Result[T]{Key: key}, err
	}

	stored, err := r.store.Upsert(ctx, record, opts)
	if err != nil {
		return Result[T]{Key: key}, core.StorePersistenceError(err, "upsert", r.kind.Entity, key)
	}
	return Result[T]{Outcome: outcome, Key: key, Record: stored}, nil
}

// Delete removes the record for the key. An absent record is a no-op.
func (r *Reconciler[P, T]) Delete(ctx context.Context, payload P, opts core.WriteOptions) (Result[T], error) {
	key, err := r.kind.Key(payload)
	if err != nil {
		return Result[T]{}, err
	}
	unlock := r.lock(key)
	defer unlock()

	existing, found, err := r.store.FindByKey(ctx, key)
	if err != nil {
		return Result[T]{Key: key}, core.StorePersistenceError(err, "lookup", r.kind.Entity, key)
	}
	if !found {
		return Result[T]{Outcome: OutcomeNoop, Key: key}, nil
	}
	if err := r.store.Delete(ctx, existing, opts); err != nil {
		return Result[T]{Key: key}, core.StorePersistenceError(err, "delete", r.kind.Entity, key)
	}
	return Result[T]{Outcome: OutcomeDeleted, Key: key, Record: existing}, nil
}

func (r *Reconciler[P, T]) lock(key string) func() {
	return r.locker.Lock(string(r.kind.Entity) + ":" + key)
}
