package snapshot

import "github.com/tinylib/msgp/msgp"

// Hand-written msgp.Encodable/Decodable implementations for Tree, mirroring
// the shape go:generate github.com/tinylib/msgp would produce for the same
// struct (map-keyed fields, one EncodeMsg/DecodeMsg pair per type), see
// the teacher's ddtrace/tracer/span_msgp.go for the generated equivalent.
// This module has no codegen step, so these are maintained by hand.

// EncodeMsg implements msgp.Encodable.
func (t *Tree) EncodeMsg(en *msgp.Writer) error {
	if err := en.WriteArrayHeader(uint32(len(t.Nodes))); err != nil {
		return err
	}
	for i := range t.Nodes {
		if err := t.Nodes[i].EncodeMsg(en); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsg implements msgp.Decodable.
func (t *Tree) DecodeMsg(dc *msgp.Reader) error {
	sz, err := dc.ReadArrayHeader()
	if err != nil {
		return err
	}
	t.Nodes = make([]Node, sz)
	for i := range t.Nodes {
		if err := t.Nodes[i].DecodeMsg(dc); err != nil {
			return err
		}
	}
	return nil
}

const nodeFieldCount = 10

// EncodeMsg implements msgp.Encodable.
func (n *Node) EncodeMsg(en *msgp.Writer) error {
	if err := en.WriteMapHeader(nodeFieldCount); err != nil {
		return err
	}
	fields := []struct {
		key   string
		write func() error
	}{
		{"parent", func() error { return en.WriteInt(n.ParentIndex) }},
		{"class", func() error { return en.WriteString(n.ClassName) }},
		{"method", func() error { return en.WriteString(n.MethodName) }},
		{"count", func() error { return en.WriteInt64(n.Count) }},
		{"start", func() error { return en.WriteInt64(n.Start) }},
		{"last_seen", func() error { return en.WriteInt64(n.LastSeen) }},
		{"depth", func() error { return en.WriteInt(n.Depth) }},
		{"ended", func() error { return en.WriteBool(n.Ended) }},
		{"child_ids", func() error { return encodeChildIDs(en, n.ChildIDs) }},
		{"promoted_parent", func() error { return encodeOptionalPromotedParent(en, n.HasPromotedParent, n.PromotedParent) }},
	}
	for _, f := range fields {
		if err := en.WriteString(f.key); err != nil {
			return err
		}
		if err := f.write(); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsg implements msgp.Decodable.
func (n *Node) DecodeMsg(dc *msgp.Reader) error {
	sz, err := dc.ReadMapHeader()
	if err != nil {
		return err
	}
	for i := uint32(0); i < sz; i++ {
		key, err := dc.ReadString()
		if err != nil {
			return err
		}
		switch key {
		case "parent":
			if n.ParentIndex, err = dc.ReadInt(); err != nil {
				return err
			}
		case "class":
			if n.ClassName, err = dc.ReadString(); err != nil {
				return err
			}
		case "method":
			if n.MethodName, err = dc.ReadString(); err != nil {
				return err
			}
		case "count":
			if n.Count, err = dc.ReadInt64(); err != nil {
				return err
			}
		case "start":
			if n.Start, err = dc.ReadInt64(); err != nil {
				return err
			}
		case "last_seen":
			if n.LastSeen, err = dc.ReadInt64(); err != nil {
				return err
			}
		case "depth":
			if n.Depth, err = dc.ReadInt(); err != nil {
				return err
			}
		case "ended":
			if n.Ended, err = dc.ReadBool(); err != nil {
				return err
			}
		case "child_ids":
			if n.ChildIDs, err = decodeChildIDs(dc); err != nil {
				return err
			}
		case "promoted_parent":
			if dc.IsNil() {
				if err := dc.ReadNil(); err != nil {
					return err
				}
				n.HasPromotedParent = false
				continue
			}
			n.HasPromotedParent = true
			if n.PromotedParent, err = decodeChildID(dc); err != nil {
				return err
			}
		default:
			if err := dc.Skip(); err != nil {
				return err
			}
		}
	}
	return nil
}

// encodeOptionalPromotedParent writes either msgpack nil or c, so the
// "promoted_parent" field's presence in the map never varies, only its
// value does, keeping Node's encoded field count fixed.
func encodeOptionalPromotedParent(en *msgp.Writer, has bool, c ChildID) error {
	if !has {
		return en.WriteNil()
	}
	return c.EncodeMsg(en)
}

func encodeChildIDs(en *msgp.Writer, ids []ChildID) error {
	if err := en.WriteArrayHeader(uint32(len(ids))); err != nil {
		return err
	}
	for i := range ids {
		if err := ids[i].EncodeMsg(en); err != nil {
			return err
		}
	}
	return nil
}

func decodeChildIDs(dc *msgp.Reader) ([]ChildID, error) {
	sz, err := dc.ReadArrayHeader()
	if err != nil {
		return nil, err
	}
	if sz == 0 {
		return nil, nil
	}
	out := make([]ChildID, sz)
	for i := range out {
		if out[i], err = decodeChildID(dc); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeChildID(dc *msgp.Reader) (ChildID, error) {
	var c ChildID
	err := c.DecodeMsg(dc)
	return c, err
}

// EncodeMsg implements msgp.Encodable.
func (c *ChildID) EncodeMsg(en *msgp.Writer) error {
	if err := en.WriteMapHeader(3); err != nil {
		return err
	}
	if err := en.WriteString("trace_id"); err != nil {
		return err
	}
	if err := en.WriteUint64(c.TraceID); err != nil {
		return err
	}
	if err := en.WriteString("span_id"); err != nil {
		return err
	}
	if err := en.WriteUint64(c.SpanID); err != nil {
		return err
	}
	if err := en.WriteString("activation_time"); err != nil {
		return err
	}
	return en.WriteInt64(c.ActivationTime)
}

// DecodeMsg implements msgp.Decodable.
func (c *ChildID) DecodeMsg(dc *msgp.Reader) error {
	sz, err := dc.ReadMapHeader()
	if err != nil {
		return err
	}
	for i := uint32(0); i < sz; i++ {
		key, err := dc.ReadString()
		if err != nil {
			return err
		}
		switch key {
		case "trace_id":
			if c.TraceID, err = dc.ReadUint64(); err != nil {
				return err
			}
		case "span_id":
			if c.SpanID, err = dc.ReadUint64(); err != nil {
				return err
			}
		case "activation_time":
			if c.ActivationTime, err = dc.ReadInt64(); err != nil {
				return err
			}
		default:
			if err := dc.Skip(); err != nil {
				return err
			}
		}
	}
	return nil
}
