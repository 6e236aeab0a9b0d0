package core

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

// MemoryMetricsRecorder keeps running totals in process, keyed by metric name
// plus its sorted tag set. Histograms keep count and sum only.
type MemoryMetricsRecorder struct {
	mu         sync.Mutex
	counters   map[string]int64
	histograms map[string]HistogramTotals
}

type HistogramTotals struct {
	Count int64
	Sum   float64
}

func NewMemoryMetricsRecorder() *MemoryMetricsRecorder {
	return &MemoryMetricsRecorder{
		counters:   map[string]int64{},
		histograms: map[string]HistogramTotals{},
	}
}

func (m *MemoryMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[seriesKey(name, tags)] += value
}

func (m *MemoryMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := seriesKey(name, tags)
	totals := m.histograms[key]
	totals.Count++
	totals.Sum += value
	m.histograms[key] = totals
}

// Counter returns the total for name with exactly tags.
func (m *MemoryMetricsRecorder) Counter(name string, tags map[string]string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[seriesKey(name, tags)]
}

func (m *MemoryMetricsRecorder) Histogram(name string, tags map[string]string) HistogramTotals {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.histograms[seriesKey(name, tags)]
}

// Counters copies every counter series. Keys look like
// name{tag=value,tag=value}.
func (m *MemoryMetricsRecorder) Counters() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.counters))
	for key, value := range m.counters {
		out[key] = value
	}
	return out
}

func seriesKey(name string, tags map[string]string) string {
	name = strings.TrimSpace(name)
	if len(tags) == 0 {
		return name
	}
	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(tags[key])
	}
	b.WriteByte('}')
	return b.String()
}

func cloneTags(tags map[string]string) map[string]string {
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}

var (
	_ MetricsRecorder = NopMetricsRecorder{}
	_ MetricsRecorder = (*MemoryMetricsRecorder)(nil)
)
