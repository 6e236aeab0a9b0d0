package core

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestChangeNotifier_SkipsWhenSuppressed(t *testing.T) {
	calls := 0
	notifier := NewChangeNotifier(ChangeObserverFunc(func(context.Context, ChangeEvent) error {
		calls++
		return nil
	}))

	err := notifier.Notify(context.Background(), ChangeEvent{Entity: EntityIssue, Change: ChangeCreated}, WebhookWriteOptions("jira"))
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected suppressed write to skip observers, got %d calls", calls)
	}
}

func TestChangeNotifier_RunsObserversAndJoinsErrors(t *testing.T) {
	var seen []ChangeEvent
	notifier := NewChangeNotifier(
		ChangeObserverFunc(func(_ context.Context, event ChangeEvent) error {
			seen = append(seen, event)
			return errors.New("first")
		}),
		ChangeObserverFunc(func(_ context.Context, event ChangeEvent) error {
			seen = append(seen, event)
			return nil
		}),
	)

	err := notifier.Notify(context.Background(), ChangeEvent{
		Entity: EntityProject,
		Change: ChangeUpdated,
		Key:    "10000",
	}, WriteOptions{Source: "admin"})
	if err == nil || !strings.Contains(err.Error(), "first") {
		t.Fatalf("expected joined observer error, got %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected both observers to run, got %d", len(seen))
	}
	if seen[0].Source != "admin" {
		t.Fatalf("expected source from write options, got %q", seen[0].Source)
	}
	if seen[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be stamped")
	}
}

func TestChangeNotifier_NilIsSafe(t *testing.T) {
	var notifier *ChangeNotifier
	if err := notifier.Notify(context.Background(), ChangeEvent{}, WriteOptions{}); err != nil {
		t.Fatalf("nil notifier should be a no-op: %v", err)
	}
	if notifier.Len() != 0 {
		t.Fatalf("nil notifier has no observers")
	}
}

func TestChangeNotifier_PublishLogsObserverFailures(t *testing.T) {
	logger := newCaptureLogger()
	notifier := NewChangeNotifier(ChangeObserverFunc(func(context.Context, ChangeEvent) error {
		return errors.New("audit sink down")
	}))
	notifier.SetLogger(logger)

	notifier.Publish(context.Background(), ChangeEvent{Entity: EntityIssue, Change: ChangeCreated, Key: "ENG-1"}, WriteOptions{})

	records := logger.snapshot()
	if len(records) != 1 || records[0].level != "warn" || records[0].msg != "change observer failed" {
		t.Fatalf("expected one warn record, got %#v", records)
	}
	if records[0].fields["key"] != "ENG-1" || !strings.Contains(records[0].fields["error"].(string), "audit sink down") {
		t.Fatalf("unexpected fields %#v", records[0].fields)
	}

	notifier.Publish(context.Background(), ChangeEvent{Entity: EntityIssue, Key: "ENG-2"}, WriteOptions{SuppressDownstreamAutomation: true})
	if len(logger.snapshot()) != 1 {
		t.Fatalf("expected suppressed publish to stay silent")
	}
}
