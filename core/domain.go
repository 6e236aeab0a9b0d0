package core

import (
	"context"
	"strings"
	"time"
)

type EntityKind string

const (
	EntityIssue   EntityKind = "issue"
	EntityProject EntityKind = "project"
)

type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// Issue is the local record for a remote issue. Key is the reconciliation key
// and never changes once assigned.
type Issue struct {
	ID          string
	Key         string
	Summary     string
	Description *string
	Status      string
	IssueType   string
	ProjectID   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Project is the local record for a remote project. ExternalID is the
// reconciliation key; Key is the short project code.
type Project struct {
	ID          string
	ExternalID  string
	Key         string
	Name        string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WriteOptions travels with every store write. Stores skip change observers
// when SuppressDownstreamAutomation is set.
type WriteOptions struct {
	SuppressDownstreamAutomation bool
	Source                       string
}

// WebhookWriteOptions returns the options used for writes driven by an
// inbound webhook from source.
func WebhookWriteOptions(source string) WriteOptions {
	return WriteOptions{
		SuppressDownstreamAutomation: true,
		Source:                       strings.TrimSpace(source),
	}
}

type ChangeEvent struct {
	Entity     EntityKind
	Change     ChangeKind
	RecordID   string
	Key        string
	Source     string
	OccurredAt time.Time
}

type ChangeObserver interface {
	Name() string
	OnChange(ctx context.Context, event ChangeEvent) error
}

type ChangeObserverFunc func(ctx context.Context, event ChangeEvent) error

func (f ChangeObserverFunc) Name() string { return "func" }

func (f ChangeObserverFunc) OnChange(ctx context.Context, event ChangeEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

func CloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func StringPtr(value string) *string {
	return &value
}

// IssuePage is one page of issues plus the unpaged total.
type IssuePage struct {
	Items  []Issue
	Total  int
	Limit  int
	Offset int
}
