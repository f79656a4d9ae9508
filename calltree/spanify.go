package calltree

import (
	"github.com/inferredspans/inferredspans/calltree/internal/errs"
	"github.com/inferredspans/inferredspans/frame"
	"github.com/inferredspans/inferredspans/internal/log"
	"github.com/inferredspans/inferredspans/tracing"
)

// Spanify walks the sealed tree in pre-order and emits one inferred span
// per surviving node to tr (spec §4.5). It returns
// errs.ErrSpanifyOnUnendedTree if called before End. Calling it more than
// once on the same Root is a no-op after the first successful call.
func (r *Root) Spanify(tr tracing.Tracer, opts ...SpanifyOption) error {
	defer r.guard.Enter()()
	if !r.ended {
		return errs.ErrSpanifyOnUnendedTree
	}
	if r.spanified {
		return nil
	}
	cfg := newSpanifyConfig(r.cfg.MinDuration, opts...)

	// Re-apply activation-skew resolution now that the tree has stopped
	// growing (spec §4.4: "applied at deactivation and again at
	// spanify") — samples may have kept arriving under a node between
	// its deactivation-time check and End.
	r.resolveSkewAllPending(&r.node)

	for _, c := range r.node.children {
		spanifyWalk(c, tr, &cfg, &r.node, r.parentContext, nil)
	}
	r.reportRootAttachedChildIDs()
	r.spanified = true
	return nil
}

// reportRootAttachedChildIDs handles whatever child ids are still sitting
// on the Root sentinel once every real node has been spanified: an
// activation whose activate and deactivate both landed before the tree had
// any sample never had a candidate inferred parent, so resolveSkewAllPending
// leaves its child id on &r.node (spec §9, "activation strictly before any
// sample"). There is no span to emit for the Root sentinel itself and no
// SpanHandle for r.parentContext (it was never opened through this tr), so
// tr.AddLink has nothing to attach to; the explicit span's parent stays
// whatever it already was outside this engine. Each occurrence is counted
// and logged instead, so the known misclassification is observable rather
// than silently dropped.
func (r *Root) reportRootAttachedChildIDs() {
	for _, ref := range r.node.childIDs {
		r.rootAttachedChildIDs.Add(1)
		log.Debug("calltree: span %d activated before any sample arrived; attached to transaction root, not an inferred span", ref.ctx.SpanID())
	}
}

// resolveSkewAllPending re-runs the case-1 (deactivation-before-end)
// search for every still-pending, non-promoted child id in the tree,
// since a deeper containing descendant may have appeared after the
// original deactivation-time check.
func (r *Root) resolveSkewAllPending(n *node) {
	kept := n.childIDs[:0]
	for _, ref := range n.childIDs {
		if ref.promoted {
			kept = append(kept, ref)
			continue
		}
		if candidate := findContainingDescendant(n, ref.activationTime, n.lastSeen); candidate != n {
			candidate.childIDs = append(candidate.childIDs, ref)
			continue
		}
		kept = append(kept, ref)
	}
	n.childIDs = kept
	for _, c := range n.children {
		r.resolveSkewAllPending(c)
	}
}

// spanifyWalk emits n's span (or drops it, absorbing it into
// survivingParent per the min-duration filter) and recurses into n's
// children. survivingParent/survivingCtx identify the nearest surviving
// ancestor and the SpanContext already emitted for it (at the top,
// survivingParent is the Root sentinel itself and survivingCtx is the
// Root's own external parentContext). carriedPillars
// accumulates the frames of nodes dropped along the current path, to be
// attached to the next surviving descendant (spec §4.5, scenario 3).
func spanifyWalk(n *node, tr tracing.Tracer, cfg *spanifyConfig, survivingParent *node, survivingCtx tracing.SpanContext, carriedPillars []frame.Frame) {
	duration := n.lastSeen - n.start
	if duration < cfg.minDurationNanos {
		dropNode(n, survivingParent, tr, cfg, survivingCtx, carriedPillars)
		return
	}

	name := cfg.nameFunc(n.frame)
	parentCtx := survivingCtx
	if n.hasPromoted {
		parentCtx = n.promotedParent
	}
	if cfg.parentOverride != nil {
		parentCtx = cfg.parentOverride(n.frame, n.depth, parentCtx)
	}

	var attrs map[string]any
	if len(carriedPillars) > 0 {
		names := make([]string, len(carriedPillars))
		for i, f := range carriedPillars {
			names[i] = f.String()
		}
		attrs = map[string]any{"stack_trace": names}
	}

	handle := tr.StartSpan(name, parentCtx, n.start, attrs)
	ctx := handle.Context()

	for _, c := range n.children {
		spanifyWalk(c, tr, cfg, n, ctx, nil)
	}

	for _, ref := range n.childIDs {
		tr.AddLink(handle, ref.ctx, map[string]any{"is_child": true})
	}
	tr.End(handle, n.lastSeen)
}

// dropNode implements the min-duration drop path: n's pending child ids
// move up to survivingParent, and its frame joins the carried-pillars
// list for whichever descendant survives next. Pillars accumulate
// deepest-dropped-first: carriedPillars holds the frames of n's dropped
// ancestors, and n is deeper than all of them, so its frame is prepended
// — the surviving descendant's immediate caller reads first.
func dropNode(n *node, survivingParent *node, tr tracing.Tracer, cfg *spanifyConfig, survivingCtx tracing.SpanContext, carriedPillars []frame.Frame) {
	if survivingParent != nil {
		for n.hasChildIDs() {
			n.giveLastChildIDTo(survivingParent)
		}
	}
	next := append([]frame.Frame{n.frame}, carriedPillars...)
	for _, c := range n.children {
		spanifyWalk(c, tr, cfg, survivingParent, survivingCtx, next)
	}
}
