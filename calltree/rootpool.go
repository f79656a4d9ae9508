package calltree

import (
	"github.com/inferredspans/inferredspans/nodepool"
	"github.com/inferredspans/inferredspans/tracing"
)

// RootPool recycles Root objects themselves, alongside the child-node
// NodePool each Root borrows from — spec §2 describes the NodePool as
// "a bounded, recyclable pool of tree nodes and root objects". A profiler
// typically opens and seals many short-lived Roots (one per sampled
// transaction) over a session's lifetime; RootPool lets it do so in
// bounded memory rather than allocating a fresh Root per transaction.
type RootPool struct {
	roots *nodepool.Pool[Root]
	nodes *nodepool.Pool[node]
}

// NewRootPool returns a RootPool backed by its own child-node NodePool of
// the given capacity, recycling up to rootCapacity Root objects.
func NewRootPool(rootCapacity, nodeCapacity int) *RootPool {
	nodes := NewNodePool(nodeCapacity)
	roots := nodepool.New(rootCapacity,
		func() *Root { return &Root{nodes: nodes} },
		func(r *Root) { r.resetForReuse() },
	)
	return &RootPool{roots: roots, nodes: nodes}
}

// Acquire returns a fresh or recycled Root tied to parentContext.
func (p *RootPool) Acquire(parentContext tracing.SpanContext, opts ...StartOption) *Root {
	r := p.roots.Acquire()
	r.parentContext = parentContext
	r.cfg = newConfig(opts...)
	return r
}

// Release spanifies nothing itself — callers must have already called
// Spanify (or decided to discard the tree unspanified) — it returns every
// node the Root owns to the shared child-node pool, then returns the Root
// itself to the free list.
func (p *RootPool) Release(r *Root) {
	r.release()
	p.roots.Release(r)
}

// resetForReuse clears every Root-owned field except the shared nodes
// pool reference, which outlives any single Root (spec §3 "the NodePool
// itself has process-wide lifetime").
func (r *Root) resetForReuse() {
	r.node.reset()
	r.parentContext = nil
	r.activeStack = r.activeStack[:0]
	r.sampleCursor = 0
	r.ended = false
	r.spanified = false
	r.droppedSamples.Store(0)
	r.unmatchedDeactivations.Store(0)
	r.rootAttachedChildIDs.Store(0)
}
