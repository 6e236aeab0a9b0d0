package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// WebhookRequest is the raw inbound delivery handed over by the transport
// layer. Type is the already normalized webhook type token.
type WebhookRequest struct {
	Type       string
	Path       string
	Headers    map[string]string
	Body       []byte
	ReceivedAt time.Time
}

// RecordStore is the reconciliation capability the core needs from a store.
// FindByKey resolves the external reconciliation key and reports whether a
// record exists. Upsert inserts or updates in a single operation keyed on the
// reconciliation key.
type RecordStore[T any] interface {
	FindByKey(ctx context.Context, key string) (T, bool, error)
	Insert(ctx context.Context, record T, opts WriteOptions) (T, error)
	Upsert(ctx context.Context, record T, opts WriteOptions) (T, error)
	Delete(ctx context.Context, record T, opts WriteOptions) error
}

// IssueStore reconciles issues by Issue.Key.
type IssueStore interface {
	RecordStore[Issue]
	Get(ctx context.Context, id string) (Issue, error)
}

// ProjectStore reconciles projects by Project.ExternalID.
type ProjectStore interface {
	RecordStore[Project]
	Get(ctx context.Context, id string) (Project, error)
}

// ProjectResolver maps a remote project identifier to the local project id.
type ProjectResolver interface {
	ResolveProjectID(ctx context.Context, externalID string) (string, bool, error)
}
