package core

import (
	"context"
	"testing"
)

func TestMemoryMetricsRecorder_AggregatesBySeries(t *testing.T) {
	recorder := NewMemoryMetricsRecorder()
	ctx := context.Background()
	success := map[string]string{"status": "success", "webhook_type": "jira"}

	recorder.IncCounter(ctx, "issuesync.webhook_dispatch.total", 1, success)
	recorder.IncCounter(ctx, "issuesync.webhook_dispatch.total", 1, map[string]string{"webhook_type": "jira", "status": "success"})
	recorder.IncCounter(ctx, "issuesync.webhook_dispatch.total", 1, map[string]string{"status": "failure"})
	recorder.ObserveHistogram(ctx, "issuesync.webhook_dispatch.duration_ms", 4, success)
	recorder.ObserveHistogram(ctx, "issuesync.webhook_dispatch.duration_ms", 6, success)

	if got := recorder.Counter("issuesync.webhook_dispatch.total", success); got != 2 {
		t.Fatalf("expected 2 successes, got %d", got)
	}
	if got := recorder.Counter("issuesync.webhook_dispatch.total", map[string]string{"status": "failure"}); got != 1 {
		t.Fatalf("expected 1 failure, got %d", got)
	}
	totals := recorder.Histogram("issuesync.webhook_dispatch.duration_ms", success)
	if totals.Count != 2 || totals.Sum != 10 {
		t.Fatalf("unexpected histogram totals %#v", totals)
	}
	counters := recorder.Counters()
	if counters["issuesync.webhook_dispatch.total{status=success,webhook_type=jira}"] != 2 {
		t.Fatalf("unexpected series keys %#v", counters)
	}
}

func TestObserverFeedsMemoryMetricsRecorder(t *testing.T) {
	recorder := NewMemoryMetricsRecorder()
	observer := NewObserver(nil, recorder)
	observer.RecordCounter(context.Background(), "issue.upsert", 3, nil)
	if got := recorder.Counter("issuesync.issue.upsert", nil); got != 3 {
		t.Fatalf("expected prefixed counter, got %d", got)
	}
}
