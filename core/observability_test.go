package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestObserverObserveOperation_Success(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	observer := NewObserver(logger, metrics)

	observer.ObserveOperation(context.Background(), time.Now().UTC(), "webhook dispatch", nil, map[string]any{
		"webhook_type": "jira",
	})

	if !hasCounter(metrics.counters, "issuesync.webhook_dispatch.total", "success") {
		t.Fatalf("expected success counter, got %#v", metrics.counters)
	}
	if !hasHistogram(metrics.histograms, "issuesync.webhook_dispatch.duration_ms", "success") {
		t.Fatalf("expected duration histogram, got %#v", metrics.histograms)
	}
	if metrics.counters[0].tags["webhook_type"] != "jira" {
		t.Fatalf("expected webhook_type tag, got %#v", metrics.counters[0].tags)
	}
	records := logger.snapshot()
	if len(records) != 1 || records[0].level != "info" || records[0].msg != "webhook_dispatch succeeded" {
		t.Fatalf("unexpected log records %#v", records)
	}
}

func TestObserverObserveOperation_FailureCarriesErrorKind(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	observer := NewObserver(logger, metrics)

	observer.ObserveOperation(
		context.Background(),
		time.Now().UTC().Add(-5*time.Millisecond),
		"webhook_dispatch",
		UnsupportedWebhookTypeError("github"),
		nil,
	)

	if !hasCounter(metrics.counters, "issuesync.webhook_dispatch.total", "failure") {
		t.Fatalf("expected failure counter")
	}
	if metrics.counters[0].tags["error_kind"] != ErrorUnsupportedWebhookType {
		t.Fatalf("expected error_kind tag, got %#v", metrics.counters[0].tags)
	}
	records := logger.snapshot()
	if len(records) != 1 || records[0].level != "error" {
		t.Fatalf("expected one error log, got %#v", records)
	}
	if records[0].fields["error_kind"] != ErrorUnsupportedWebhookType {
		t.Fatalf("expected error_kind field, got %#v", records[0].fields)
	}
}

func TestObserverZeroValueIsSafe(t *testing.T) {
	var observer Observer
	observer.ObserveOperation(context.Background(), time.Now(), "noop", errors.New("boom"), nil)
	observer.LogWarn(context.Background(), "ignored", nil)
}
