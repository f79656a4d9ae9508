package calltree

import (
	"github.com/inferredspans/inferredspans/frame"
	"github.com/inferredspans/inferredspans/tracing"
)

// childRef is a pending reference to an explicit span whose parent in the
// emitted tree will be determined later (spec's "child id": a (span_id,
// activation_timestamp) pair). promoted marks a ref created by the
// activation-after-method-ends resolution (§4.4 case 3): such a ref, once
// consumed by the next diverging sample, becomes the *native* parent of
// the new node rather than the target of an is_child link.
type childRef struct {
	ctx            tracing.SpanContext
	activationTime int64
	promoted       bool
}

// node is one prefix-tree vertex (spec §3 "CallTree node"). The zero value
// is the reset state a nodepool.Pool hands back on Release.
type node struct {
	frame    frame.Frame
	parent   *node
	children []*node

	count    int64
	start    int64
	lastSeen int64
	depth    int

	childIDs []childRef
	ended    bool

	// promotedParent is set when this node's real tree parent, for
	// emission purposes, is an explicit span rather than an inferred
	// ancestor (§4.4 case 3). nil otherwise.
	promotedParent tracing.SpanContext
	hasPromoted    bool
}

// reset clears every field to its zero value, for nodepool.Pool.Release.
func (n *node) reset() {
	n.frame = frame.Frame{}
	n.parent = nil
	n.children = n.children[:0]
	n.count = 0
	n.start = 0
	n.lastSeen = 0
	n.depth = 0
	n.childIDs = n.childIDs[:0]
	n.ended = false
	n.promotedParent = nil
	n.hasPromoted = false
}

// isSuccessor reports whether walking parent chains from n reaches
// ancestor (spec §3 invariant).
func (n *node) isSuccessor(ancestor *node) bool {
	for cur := n.parent; cur != nil; cur = cur.parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// lastChild returns n's most recently appended child, or nil.
func (n *node) lastChild() *node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[len(n.children)-1]
}

// hasChildIDs reports whether n currently has any pending child ids.
func (n *node) hasChildIDs() bool {
	return len(n.childIDs) > 0
}

// giveLastChildIDTo moves the newest pending child id from n to other,
// preserving its activation time. A no-op (not an error) when n has no
// pending ids — spec §4.4, §7 EmptyChildIdTransfer.
func (n *node) giveLastChildIDTo(other *node) {
	if len(n.childIDs) == 0 {
		return
	}
	last := n.childIDs[len(n.childIDs)-1]
	n.childIDs = n.childIDs[:len(n.childIDs)-1]
	other.childIDs = append(other.childIDs, last)
}

// stealChildIDsFrom moves every pending child id of other whose
// activation time lies in [since, until] from other to n. Ids outside
// that window are left untouched on other (spec §4.4: "do not steal ids
// of activations that are not temporally contained").
func (n *node) stealChildIDsFrom(other *node, since, until int64) {
	if len(other.childIDs) == 0 {
		return
	}
	kept := other.childIDs[:0]
	for _, ref := range other.childIDs {
		if ref.activationTime >= since && ref.activationTime <= until {
			n.childIDs = append(n.childIDs, ref)
		} else {
			kept = append(kept, ref)
		}
	}
	other.childIDs = kept
}
