package stats

import (
	"context"
	"sync"
	"time"

	"github.com/codahale/hdrhistogram"
	"github.com/opentracing/opentracing-go"
)

// histogram bounds: 1 microsecond floor, 10 second ceiling, 3 significant
// digits. Device allocator operations range from sub-microsecond scans to
// multi-second driver calls under memory pressure.
const (
	histoMin        = 1
	histoMax        = 10 * int64(time.Second/time.Microsecond)
	histoSigFigures = 3
)

// Timer is the named-span timer: every named operation
// (alloc, free, scan, reclaim, compact, driver_alloc, driver_free) gets its
// own latency histogram, and each timed call is wrapped in an opentracing
// span so the same data is visible to a tracer if one is configured.
type Timer struct {
	mu    sync.Mutex
	histo map[string]*hdrhistogram.Histogram
}

// NewTimer creates an empty Timer; histograms are created lazily per name.
func NewTimer() *Timer {
	return &Timer{histo: make(map[string]*hdrhistogram.Histogram)}
}

// Time runs fn, recording its wall-clock duration under name and wrapping
// the call in an opentracing span named "devicepool.<name>".
func (t *Timer) Time(ctx context.Context, name string, fn func(ctx context.Context)) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "devicepool."+name)
	defer span.Finish()

	start := time.Now()
	fn(ctx)
	t.record(name, time.Since(start))
}

func (t *Timer) record(name string, d time.Duration) {
	us := d.Microseconds()
	if us < histoMin {
		us = histoMin
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.histo[name]
	if !ok {
		h = hdrhistogram.New(histoMin, histoMax, histoSigFigures)
		t.histo[name] = h
	}
	_ = h.RecordValue(us)
}

// Quantiles returns the p50/p90/p99 latency in microseconds for the named
// operation, or zero values if nothing was ever recorded under that name.
func (t *Timer) Quantiles(name string) (p50, p90, p99 int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.histo[name]
	if !ok {
		return 0, 0, 0
	}
	return h.ValueAtQuantile(50), h.ValueAtQuantile(90), h.ValueAtQuantile(99)
}

// Names returns the set of operation names with recorded samples, sorted
// is not guaranteed; callers that need stable output should sort it.
func (t *Timer) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.histo))
	for name := range t.histo {
		names = append(names, name)
	}
	return names
}
