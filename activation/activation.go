// Package activation defines the activation event stream the calltree
// engine reconciles against sampled stack traces (spec §3 "Activation
// event", §4.4, §9 "coroutine-like activation streams").
package activation

import (
	"sort"
	"sync"

	"github.com/inferredspans/inferredspans/tracing"
)

// Kind discriminates an activation event.
type Kind int

const (
	// Activate marks a span becoming the current span on a thread.
	Activate Kind = iota
	// Deactivate marks a span ceasing to be current.
	Deactivate
)

// Event is a single activation/deactivation, carrying enough identity for
// the engine to push/pop an active-span stack and attribute pending child
// ids (spec §3).
type Event struct {
	Kind      Kind
	Context   tracing.SpanContext
	Timestamp int64 // nanoseconds
}

// Source is the drain-window abstraction named in spec §5/§6: the engine
// pulls events in timestamp order via DrainUpTo, never by subscribing to a
// push stream.
type Source interface {
	// DrainUpTo returns every buffered event with Timestamp <= t,
	// removing them from the source, sorted ascending by Timestamp
	// (ties broken by arrival order).
	DrainUpTo(t int64) []Event
}

// Buffer is a reference Source: a mutex-guarded queue fed by many producer
// goroutines (one per sampled thread) and drained by the single profiler
// worker goroutine. Spec §9 calls for an eventual lock-free
// single-consumer queue in production; this reference implementation
// satisfies the same port with the plainer primitive so the reconciliation
// logic can be tested deterministically (see SPEC_FULL §4.7).
type Buffer struct {
	mu      sync.Mutex
	pending []Event
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Push enqueues an event. Safe to call concurrently from multiple
// producer goroutines.
func (b *Buffer) Push(e Event) {
	b.mu.Lock()
	b.pending = append(b.pending, e)
	b.mu.Unlock()
}

// DrainUpTo implements Source.
func (b *Buffer) DrainUpTo(t int64) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	var ready, rest []Event
	for _, e := range b.pending {
		if e.Timestamp <= t {
			ready = append(ready, e)
		} else {
			rest = append(rest, e)
		}
	}
	b.pending = rest

	sort.SliceStable(ready, func(i, j int) bool {
		return ready[i].Timestamp < ready[j].Timestamp
	})
	return ready
}

// Len reports how many events are currently buffered, undrained.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
