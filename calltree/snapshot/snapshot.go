// Package snapshot serializes a calltree.NodeView to a compact msgpack
// form and back (SPEC_FULL §9, "Supplemented feature: snapshot/replay"),
// so a stuck or surprising tree can be dumped and inspected offline
// without attaching a debugger. It mirrors the teacher's own
// ddtrace/tracer/span_msgp.go wire format, hand-maintained here since this
// module has no go:generate codegen step.
package snapshot

import (
	"io"

	"github.com/tinylib/msgp/msgp"

	"github.com/inferredspans/inferredspans/calltree"
)

// ChildID is the wire form of a calltree.ChildIDView.
type ChildID struct {
	TraceID        uint64
	SpanID         uint64
	ActivationTime int64
}

// Node is the wire form of one calltree.NodeView, flattened: Children is
// replaced by ParentIndex, an index into the enclosing Tree.Nodes naming
// this node's parent (-1 for the synthetic root).
type Node struct {
	ParentIndex int
	ClassName   string
	MethodName  string
	Count       int64
	Start       int64
	LastSeen    int64
	Depth       int
	Ended       bool

	HasPromotedParent bool
	PromotedParent    ChildID

	ChildIDs []ChildID
}

// Tree is a flattened, pre-order snapshot of a calltree.NodeView, ready to
// round-trip through msgpack.
type Tree struct {
	Nodes []Node
}

var (
	_ msgp.Encodable = (*Tree)(nil)
	_ msgp.Decodable = (*Tree)(nil)
)

// Encode flattens v (typically obtained from (*calltree.Root).View) into a
// Tree and writes its msgpack encoding to w.
func Encode(w io.Writer, v calltree.NodeView) error {
	t := Flatten(v)
	return msgp.Encode(w, &t)
}

// Decode reads a msgpack-encoded Tree from r.
func Decode(r io.Reader) (Tree, error) {
	var t Tree
	err := msgp.Decode(r, &t)
	return t, err
}

// Flatten walks v in pre-order, recording each node's parent by index so
// the tree shape survives the round trip without needing recursive
// pointers on the wire.
func Flatten(v calltree.NodeView) Tree {
	var t Tree
	flattenInto(&t, v, -1)
	return t
}

func flattenInto(t *Tree, v calltree.NodeView, parentIdx int) {
	n := Node{
		ParentIndex: parentIdx,
		ClassName:   v.ClassName,
		MethodName:  v.MethodName,
		Count:       v.Count,
		Start:       v.Start,
		LastSeen:    v.LastSeen,
		Depth:       v.Depth,
		Ended:       v.Ended,

		HasPromotedParent: v.HasPromotedParent,
	}
	if v.HasPromotedParent {
		n.PromotedParent = childIDOf(v.PromotedParent)
	}
	for _, c := range v.ChildIDs {
		n.ChildIDs = append(n.ChildIDs, childIDOf(c))
	}
	t.Nodes = append(t.Nodes, n)
	idx := len(t.Nodes) - 1
	for _, c := range v.Children {
		flattenInto(t, c, idx)
	}
}

func childIDOf(c calltree.ChildIDView) ChildID {
	return ChildID{TraceID: c.TraceID, SpanID: c.SpanID, ActivationTime: c.ActivationTime}
}

// View reconstructs the nested calltree.NodeView tree t was flattened
// from, for inspection. t must have come from Flatten (node 0 is the
// root, every other node's ParentIndex refers to an earlier index).
func (t Tree) View() calltree.NodeView {
	if len(t.Nodes) == 0 {
		return calltree.NodeView{}
	}
	views := make([]calltree.NodeView, len(t.Nodes))
	for i, n := range t.Nodes {
		views[i] = viewOf(n)
	}
	for i := len(t.Nodes) - 1; i > 0; i-- {
		p := t.Nodes[i].ParentIndex
		views[p].Children = append([]calltree.NodeView{views[i]}, views[p].Children...)
	}
	return views[0]
}

func viewOf(n Node) calltree.NodeView {
	v := calltree.NodeView{
		ClassName:         n.ClassName,
		MethodName:        n.MethodName,
		Count:             n.Count,
		Start:             n.Start,
		LastSeen:          n.LastSeen,
		Depth:             n.Depth,
		Ended:             n.Ended,
		HasPromotedParent: n.HasPromotedParent,
	}
	if n.HasPromotedParent {
		v.PromotedParent = calltree.ChildIDView{
			TraceID: n.PromotedParent.TraceID, SpanID: n.PromotedParent.SpanID,
			ActivationTime: n.PromotedParent.ActivationTime,
		}
	}
	for _, c := range n.ChildIDs {
		v.ChildIDs = append(v.ChildIDs, calltree.ChildIDView{
			TraceID: c.TraceID, SpanID: c.SpanID, ActivationTime: c.ActivationTime,
		})
	}
	return v
}
