// Package calltree implements the call-tree aggregation and
// activation-reconciliation engine described in spec §2-§5: merging a
// stream of stack samples into a prefix tree, interleaving a stream of
// span activation/deactivation events into the same timeline, resolving
// activation skew, and spanifying the sealed tree (package calltree also
// hosts Spanify — see spanify.go).
package calltree

import (
	"sync/atomic"

	"github.com/inferredspans/inferredspans/activation"
	"github.com/inferredspans/inferredspans/frame"
	"github.com/inferredspans/inferredspans/internal/log"
	"github.com/inferredspans/inferredspans/internal/xsync"
	"github.com/inferredspans/inferredspans/nodepool"
	"github.com/inferredspans/inferredspans/tracing"
)

// NewNodePool returns a pool of recyclable child nodes, sized to capacity,
// ready to be shared across every Root in a profiling session (spec §4.1).
func NewNodePool(capacity int) *nodepool.Pool[node] {
	return nodepool.New(capacity,
		func() *node { return &node{} },
		func(n *node) { n.reset() },
	)
}

// activeSpan is one entry on the Root's active-span stack: the explicit
// span's context, the time it was activated, and the node it was
// attributed to at that moment (spec §4.4).
type activeSpan struct {
	ctx            tracing.SpanContext
	activationTime int64
	owner          *node

	// promoted is set by promoteStaleChildIDs once this activation's
	// child id has already been relocated to its common ancestor; skew
	// resolution at deactivate/End must leave it alone from then on.
	promoted bool
}

// Stats reports counts of recoverable anomalies (spec §7), so a caller can
// export them as metrics without the engine itself depending on a metrics
// library.
type Stats struct {
	DroppedSamples         uint32
	UnmatchedDeactivations uint32

	// RootAttachedChildIDs counts child ids that, at Spanify time, were
	// still parked directly on the transaction root rather than under any
	// inferred method span (spec §9, "activation strictly before any
	// sample"). Each one is a span the engine could not attribute to an
	// inferred parent; its explicit parent remains whatever it already was
	// outside this engine.
	RootAttachedChildIDs uint32
}

// Root is a CallTree node with no frame (spec §3 "Root"), plus the
// activation reconciliation state and the NodePool child nodes are
// acquired from. Root is not safe for concurrent use: per spec §5 it is
// driven serially by a single profiler worker goroutine.
type Root struct {
	node

	// guard is a no-op outside debug builds (-tags inferredspans_debug);
	// see internal/xsync.
	guard xsync.Guard

	parentContext tracing.SpanContext
	nodes         *nodepool.Pool[node]
	cfg           Config

	activeStack  []activeSpan
	sampleCursor int64
	ended        bool
	spanified    bool

	droppedSamples         atomic.Uint32
	unmatchedDeactivations atomic.Uint32
	rootAttachedChildIDs   atomic.Uint32
}

// NewRoot constructs a Root tied to parentContext (the enclosing
// instrumented trace this profiling window belongs to), borrowing child
// nodes from nodes as it grows.
func NewRoot(parentContext tracing.SpanContext, nodes *nodepool.Pool[node], opts ...StartOption) *Root {
	r := &Root{
		parentContext: parentContext,
		nodes:         nodes,
		cfg:           newConfig(opts...),
	}
	return r
}

// AddStackTrace inserts one sample (spec §4.3 addStackTrace). frames run
// bottom-of-stack first. Anomalies (out-of-order samples, samples after
// End) are dropped and counted per spec §7, never returned as an error —
// see Stats.
func (r *Root) AddStackTrace(frames []frame.Frame, t int64) {
	defer r.guard.Enter()()
	if r.ended {
		r.droppedSamples.Add(1)
		log.Debug("calltree: dropping sample at %d: tree already ended", t)
		return
	}
	if t < r.sampleCursor {
		r.droppedSamples.Add(1)
		log.Debug("calltree: dropping out-of-order sample at %d (cursor at %d)", t, r.sampleCursor)
		return
	}
	r.sampleCursor = t
	if r.node.count == 0 {
		r.node.start = t
	}
	r.node.lastSeen = t
	r.node.count++

	cursor := &r.node
	for _, f := range frames {
		if tail := cursor.lastChild(); tail != nil && !tail.ended && tail.frame.Equal(f) {
			cursor = tail
			cursor.count++
			cursor.lastSeen = t
			continue
		}

		// Divergence (spec §4.3 step 2c): a new child path means the
		// prior path, if still open, cannot receive further samples.
		for _, c := range cursor.children {
			r.promoteStaleChildIDs(c, cursor)
			c.ended = true
		}

		child := r.nodes.Acquire()
		child.frame = f
		child.count = 1
		child.start = t
		child.lastSeen = t
		child.parent = cursor
		child.depth = cursor.depth + 1

		if idx := findPromotedRef(cursor, t); idx >= 0 {
			ref := cursor.childIDs[idx]
			cursor.childIDs = append(cursor.childIDs[:idx], cursor.childIDs[idx+1:]...)
			child.promotedParent = ref.ctx
			child.hasPromoted = true
		}

		cursor.children = append(cursor.children, child)
		cursor = child
	}

	// A sample shallower than the path it last reached implicitly closes
	// whatever was still open beneath it: the frames deeper than this
	// sample's leaf did not appear, so their call has returned.
	for _, c := range cursor.children {
		r.promoteStaleChildIDs(c, cursor)
		c.ended = true
	}
}

// promoteStaleChildIDs implements spec §4.4 case 3
// (activation-after-method-ends), detected at the moment closing becomes
// ended: any pending child id attributed to closing whose activation time
// is strictly after closing's last sample could not have been a child of
// closing after all, since closing had already stopped being sampled.
// Such ids move up to commonAncestor, flagged promoted, so the next
// diverging sample there adopts the activation as its real parent (see
// findPromotedRef) instead of receiving an is_child link from it.
func (r *Root) promoteStaleChildIDs(closing, commonAncestor *node) {
	if closing.ended {
		return
	}
	kept := closing.childIDs[:0]
	for _, ref := range closing.childIDs {
		if !ref.promoted && ref.activationTime > closing.lastSeen {
			ref.promoted = true
			commonAncestor.childIDs = append(commonAncestor.childIDs, ref)
			for i := range r.activeStack {
				if sameSpan(r.activeStack[i].ctx, ref.ctx) {
					r.activeStack[i].owner = commonAncestor
					r.activeStack[i].promoted = true
				}
			}
			continue
		}
		kept = append(kept, ref)
	}
	closing.childIDs = kept
}

// findPromotedRef returns the index of the first promoted child id on n
// whose activation time precedes or matches t (spec §4.4 case 3,
// activation-after-method-ends: the pending activation becomes the real
// parent of the next node sampled after it began).
func findPromotedRef(n *node, t int64) int {
	for i, ref := range n.childIDs {
		if ref.promoted && ref.activationTime <= t {
			return i
		}
	}
	return -1
}

// ProcessActivationEventsUpTo drains src up to timestamp t and applies
// every event in order, before a sample at t is inserted (spec §5's
// ordering guarantee, made explicit as a named Root method). eof marks the
// final drain of a session, for callers that want to distinguish it; the
// engine itself treats it identically to any other drain.
func (r *Root) ProcessActivationEventsUpTo(t int64, eof bool, src activation.Source) {
	defer r.guard.Enter()()
	_ = eof
	for _, e := range src.DrainUpTo(t) {
		switch e.Kind {
		case activation.Activate:
			r.activate(e.Context, e.Timestamp)
		case activation.Deactivate:
			r.deactivate(e.Context, e.Timestamp)
		}
	}
}

// deepestOpenNode returns the leaf of the last non-ended path (spec
// §4.4), or the Root sentinel itself if the tree is empty or every path
// has ended.
func (r *Root) deepestOpenNode() *node {
	cur := &r.node
	for {
		tail := cur.lastChild()
		if tail == nil || tail.ended {
			return cur
		}
		cur = tail
	}
}

// activate attributes ctx to the currently-deepest open node (spec §4.4).
// Whether that attribution later turns out to be case 3
// (activation-after-method-ends) is decided when the owner actually stops
// being sampled — see promoteStaleChildIDs — not here: at this moment the
// owner may simply not have been resampled recently yet, which is the
// ordinary case, not method-ended.
func (r *Root) activate(ctx tracing.SpanContext, t int64) {
	owner := r.deepestOpenNode()
	owner.childIDs = append(owner.childIDs, childRef{ctx: ctx, activationTime: t})
	r.activeStack = append(r.activeStack, activeSpan{ctx: ctx, activationTime: t, owner: owner})
}

func (r *Root) deactivate(ctx tracing.SpanContext, t int64) {
	idx := -1
	for i := len(r.activeStack) - 1; i >= 0; i-- {
		if sameSpan(r.activeStack[i].ctx, ctx) {
			idx = i
			break
		}
	}
	if idx < 0 {
		// UnmatchedDeactivation (spec §7): ignore.
		r.unmatchedDeactivations.Add(1)
		log.Debug("calltree: unmatched deactivation for span %d", ctx.SpanID())
		return
	}
	as := r.activeStack[idx]
	r.activeStack = append(r.activeStack[:idx], r.activeStack[idx+1:]...)
	r.resolveSkewOnDeactivate(as, t)
}

func sameSpan(a, b tracing.SpanContext) bool {
	return a.SpanID() == b.SpanID() && a.TraceID() == b.TraceID()
}

// resolveSkewOnDeactivate applies spec §4.4 cases 1 and 2. Case 3 is
// resolved in AddStackTrace via promoteStaleChildIDs/findPromotedRef, as
// soon as the owner node actually stops being sampled; as.promoted marks
// that this activation already went through that path, so there is
// nothing left to reconcile here.
func (r *Root) resolveSkewOnDeactivate(as activeSpan, t int64) {
	if as.promoted {
		return
	}
	owner := as.owner

	// Case 2: deactivation-after-end — the method must have extended
	// past the deactivation.
	if owner != &r.node && owner.ended && t > owner.lastSeen {
		owner.lastSeen = t
	}

	// Case 1: deactivation-before-end — a deeper node, sampled starting
	// at or before the activation and still covering it, should own this
	// child id instead.
	if candidate := findContainingDescendant(owner, as.activationTime, t); candidate != owner {
		candidate.stealChildIDsFrom(owner, as.activationTime, as.activationTime)
	}
}

// findContainingDescendant walks from owner down through children whose
// observed interval [start, lastSeen] contains [since, until], stopping at
// the deepest such descendant (spec §4.4 "the nearest candidate whose
// activation falls within its observed lifetime").
func findContainingDescendant(owner *node, since, until int64) *node {
	cur := owner
	for {
		var next *node
		for _, c := range cur.children {
			if c.start <= since && c.lastSeen >= until {
				next = c
				break
			}
		}
		if next == nil {
			return cur
		}
		cur = next
	}
}

// End seals the tree (spec §5): no further samples are accepted, every
// still-active span is treated as deactivated at t, every node is marked
// ended, and the tree becomes ready for Spanify. Idempotent.
func (r *Root) End(t int64) {
	defer r.guard.Enter()()
	if r.ended {
		return
	}
	for len(r.activeStack) > 0 {
		n := len(r.activeStack) - 1
		as := r.activeStack[n]
		r.activeStack = r.activeStack[:n]
		r.resolveSkewOnDeactivate(as, t)
	}
	markEnded(&r.node)
	r.ended = true
}

func markEnded(n *node) {
	n.ended = true
	for _, c := range n.children {
		markEnded(c)
	}
}

// Stats reports the current anomaly counters.
func (r *Root) Stats() Stats {
	return Stats{
		DroppedSamples:         r.droppedSamples.Load(),
		UnmatchedDeactivations: r.unmatchedDeactivations.Load(),
		RootAttachedChildIDs:   r.rootAttachedChildIDs.Load(),
	}
}

// release returns every node owned by r to its NodePool. Call once the
// tree has been fully spanified and is no longer needed; r itself should
// then be discarded (or returned to a RootPool — see rootpool.go).
func (r *Root) release() {
	releaseChildren(&r.node, r.nodes)
	r.node.reset()
}

func releaseChildren(n *node, pool *nodepool.Pool[node]) {
	for _, c := range n.children {
		releaseChildren(c, pool)
		pool.Release(c)
	}
	n.children = n.children[:0]
}
