// Package mocktracer provides an in-memory tracing.Tracer implementation
// for tests and examples, mirroring the teacher's own ddtrace/mocktracer
// package — a whole package dedicated to exactly this purpose in the
// teacher repo, rather than ad hoc fakes scattered across test files.
package mocktracer

import (
	"sync"

	"github.com/google/uuid"

	"github.com/inferredspans/inferredspans/tracing"
)

// SpanContext is the mocktracer's tracing.SpanContext implementation:
// random 64-bit ids derived from a uuid, so distinct spans never collide
// within a test run without the package needing its own id generator.
type SpanContext struct {
	traceID uint64
	spanID  uint64
}

// NewSpanContext returns a fresh SpanContext with random trace/span ids.
func NewSpanContext() SpanContext {
	return SpanContext{traceID: randID(), spanID: randID()}
}

// TraceContext builds a SpanContext sharing traceID but with a fresh span
// id, as a convenience for tests constructing a family of related
// explicit spans.
func TraceContext(traceID uint64) SpanContext {
	return SpanContext{traceID: traceID, spanID: randID()}
}

func randID() uint64 {
	u := uuid.New()
	var v uint64
	for _, b := range u[:8] {
		v = v<<8 | uint64(b)
	}
	if v == 0 {
		v = 1
	}
	return v
}

// TraceID implements tracing.SpanContext.
func (c SpanContext) TraceID() uint64 { return c.traceID }

// SpanID implements tracing.SpanContext.
func (c SpanContext) SpanID() uint64 { return c.spanID }

// Span records one StartSpan/End call plus any links added to it.
type Span struct {
	Name     string
	Parent   tracing.SpanContext
	Start    int64
	End      int64
	Finished bool
	Attrs    map[string]any
	Links    []Link
	SpanCtx  SpanContext
}

// Link is one AddLink call recorded against a Span.
type Link struct {
	Target tracing.SpanContext
	Attrs  map[string]any
}

// Context implements tracing.SpanHandle.
func (s *Span) Context() tracing.SpanContext { return s.SpanCtx }

// Tracer is an in-memory tracing.Tracer. Safe for concurrent use, though
// the engine itself drives it from a single goroutine (spec §5).
type Tracer struct {
	mu    sync.Mutex
	spans []*Span
}

// New returns an empty Tracer.
func New() *Tracer {
	return &Tracer{}
}

// StartSpan implements tracing.Tracer.
func (t *Tracer) StartSpan(name string, parent tracing.SpanContext, startNanos int64, attrs map[string]any) tracing.SpanHandle {
	ctx := NewSpanContext()
	if parent != nil {
		ctx.traceID = parent.TraceID()
	}
	s := &Span{
		Name:    name,
		Parent:  parent,
		Start:   startNanos,
		Attrs:   attrs,
		SpanCtx: ctx,
	}
	t.mu.Lock()
	t.spans = append(t.spans, s)
	t.mu.Unlock()
	return s
}

// AddLink implements tracing.Tracer.
func (t *Tracer) AddLink(span tracing.SpanHandle, target tracing.SpanContext, attrs map[string]any) {
	s := span.(*Span)
	t.mu.Lock()
	defer t.mu.Unlock()
	s.Links = append(s.Links, Link{Target: target, Attrs: attrs})
}

// End implements tracing.Tracer.
func (t *Tracer) End(span tracing.SpanHandle, endNanos int64) {
	s := span.(*Span)
	t.mu.Lock()
	defer t.mu.Unlock()
	s.End = endNanos
	s.Finished = true
}

// Spans returns every span started on this Tracer, in start order.
func (t *Tracer) Spans() []*Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Span, len(t.spans))
	copy(out, t.spans)
	return out
}

// Reset clears every recorded span.
func (t *Tracer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = nil
}
