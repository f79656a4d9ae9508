package calltree

import "github.com/inferredspans/inferredspans/tracing"

// ChildIDView is a read-only snapshot of one pending child id, exposed for
// cross-package inspection (calltree/snapshot, debugging tools) without
// granting write access to the live engine state.
type ChildIDView struct {
	TraceID        uint64
	SpanID         uint64
	ActivationTime int64
}

// NodeView is a read-only snapshot of one CallTree node and everything
// beneath it (spec §3 "CallTree node"). Root.View builds one from the live
// tree; calltree/snapshot reconstructs an equivalent one from a decoded
// wire payload, so both paths hand a caller the same shape to inspect.
type NodeView struct {
	ClassName  string
	MethodName string
	Count      int64
	Start      int64
	LastSeen   int64
	Depth      int
	Ended      bool

	HasPromotedParent bool
	PromotedParent    ChildIDView

	ChildIDs []ChildIDView
	Children []NodeView
}

// View builds a read-only snapshot of r's current tree. Safe to call
// before or after End: a view of a growing tree is simply a view of its
// current state.
func (r *Root) View() NodeView {
	return buildView(&r.node)
}

func buildView(n *node) NodeView {
	v := NodeView{
		ClassName:  n.frame.ClassName,
		MethodName: n.frame.MethodName,
		Count:      n.count,
		Start:      n.start,
		LastSeen:   n.lastSeen,
		Depth:      n.depth,
		Ended:      n.ended,
	}
	if n.hasPromoted {
		v.HasPromotedParent = true
		v.PromotedParent = childIDViewOf(n.promotedParent, 0)
	}
	for _, ref := range n.childIDs {
		v.ChildIDs = append(v.ChildIDs, childIDViewOf(ref.ctx, ref.activationTime))
	}
	for _, c := range n.children {
		v.Children = append(v.Children, buildView(c))
	}
	return v
}

func childIDViewOf(ctx tracing.SpanContext, activationTime int64) ChildIDView {
	return ChildIDView{TraceID: ctx.TraceID(), SpanID: ctx.SpanID(), ActivationTime: activationTime}
}
