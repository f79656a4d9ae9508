// Package tracing defines the external collaborator ports the
// inferredspans engine requires (spec §6): a Clock, a Tracer capable of
// starting/ending spans and adding is_child links, and the span/trace
// identity types those spans carry. The engine never constructs a
// concrete SpanContext itself for explicit spans — those arrive from the
// activation event source (see package activation) already carrying one.
package tracing

// Clock is the wall-clock source port. now() is expressed in nanoseconds,
// matching every timestamp elsewhere in this module.
type Clock interface {
	// Now returns the current time in nanoseconds.
	Now() int64
}

// SpanContext identifies a span for propagation and linking purposes.
type SpanContext interface {
	TraceID() uint64
	SpanID() uint64
}

// SpanHandle is a started, not-yet-finished span as returned by a Tracer.
type SpanHandle interface {
	// Context returns the SpanContext identifying this span.
	Context() SpanContext
}

// Tracer is the downstream span emitter port. The engine calls StartSpan
// for every surviving CallTree node once its duration is known, AddLink to
// record is_child cross-branch relationships, and End to close the span
// once start/end nanos are both known.
type Tracer interface {
	// StartSpan starts a new span named name, as a child of parent (which
	// may be nil for a root span), beginning at startNanos. attrs carries
	// span-level attributes known at start time (e.g. the "stack_trace"
	// attribute for frames collapsed by the min-duration filter); it may
	// be nil.
	StartSpan(name string, parent SpanContext, startNanos int64, attrs map[string]any) SpanHandle

	// AddLink attaches a link from span to target, carrying attrs (at
	// minimum "is_child": true for the relationships this engine emits).
	AddLink(span SpanHandle, target SpanContext, attrs map[string]any)

	// End closes span at endNanos.
	End(span SpanHandle, endNanos int64)
}
