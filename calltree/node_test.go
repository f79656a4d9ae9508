package calltree

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inferredspans/inferredspans/frame"
	"github.com/inferredspans/inferredspans/mocktracer"
)

func TestIsSuccessorWalksParentChainAndTracksDepth(t *testing.T) {
	root := &node{}
	a := &node{parent: root, depth: 1}
	b := &node{parent: a, depth: 2}
	c := &node{parent: b, depth: 3}

	assert.True(t, c.isSuccessor(root))
	assert.True(t, c.isSuccessor(a))
	assert.True(t, c.isSuccessor(b))
	assert.False(t, c.isSuccessor(c))
	assert.False(t, root.isSuccessor(c))
	assert.Equal(t, 3, c.depth)
}

func TestLastChildReturnsMostRecentlyAppended(t *testing.T) {
	n := &node{}
	assert.Nil(t, n.lastChild())

	a := &node{frame: frame.New("A", "m")}
	b := &node{frame: frame.New("B", "m")}
	n.children = append(n.children, a, b)
	assert.Same(t, b, n.lastChild())
}

func TestGiveLastChildIDToMovesNewestRef(t *testing.T) {
	a := &node{}
	b := &node{}
	ctx1 := mocktracer.NewSpanContext()
	ctx2 := mocktracer.NewSpanContext()
	a.childIDs = []childRef{
		{ctx: ctx1, activationTime: 1},
		{ctx: ctx2, activationTime: 2},
	}

	a.giveLastChildIDTo(b)

	if assert.Len(t, b.childIDs, 1) {
		assert.Equal(t, ctx2, b.childIDs[0].ctx)
	}
	if assert.Len(t, a.childIDs, 1) {
		assert.Equal(t, ctx1, a.childIDs[0].ctx)
	}
}

func TestGiveLastChildIDToEmptyDonorIsNoop(t *testing.T) {
	a := &node{}
	b := &node{}
	a.giveLastChildIDTo(b)
	assert.Empty(t, a.childIDs)
	assert.Empty(t, b.childIDs)
}

// TestChildIDTransferIsAGroupAction exercises invariant 5 from the spec's
// testable-properties section: giving back and forth returns to the
// original state, and donating from an empty node is a no-op.
func TestChildIDTransferIsAGroupAction(t *testing.T) {
	a := &node{}
	b := &node{}
	ctx := mocktracer.NewSpanContext()
	a.childIDs = []childRef{{ctx: ctx, activationTime: 5}}

	a.giveLastChildIDTo(b)
	b.giveLastChildIDTo(a)

	if assert.Len(t, a.childIDs, 1) {
		assert.Equal(t, ctx, a.childIDs[0].ctx)
		assert.Equal(t, int64(5), a.childIDs[0].activationTime)
	}
	assert.Empty(t, b.childIDs)
}

func TestStealChildIDsFromOnlyMovesWindowedRefs(t *testing.T) {
	owner := &node{}
	candidate := &node{}
	inWindow := mocktracer.NewSpanContext()
	outOfWindow := mocktracer.NewSpanContext()
	owner.childIDs = []childRef{
		{ctx: inWindow, activationTime: 10},
		{ctx: outOfWindow, activationTime: 99},
	}

	candidate.stealChildIDsFrom(owner, 5, 15)

	if assert.Len(t, candidate.childIDs, 1) {
		assert.Equal(t, inWindow, candidate.childIDs[0].ctx)
	}
	if assert.Len(t, owner.childIDs, 1) {
		assert.Equal(t, outOfWindow, owner.childIDs[0].ctx)
	}
}

func TestStealChildIDsFromEmptyDonorIsNoop(t *testing.T) {
	owner := &node{}
	candidate := &node{}
	candidate.stealChildIDsFrom(owner, 0, 100)
	assert.Empty(t, candidate.childIDs)
	assert.Empty(t, owner.childIDs)
}

func TestResetClearsEveryField(t *testing.T) {
	n := &node{
		frame:          frame.New("A", "m"),
		parent:         &node{},
		children:       []*node{{}},
		count:          3,
		start:          1,
		lastSeen:       2,
		depth:          4,
		childIDs:       []childRef{{}},
		ended:          true,
		promotedParent: mocktracer.NewSpanContext(),
		hasPromoted:    true,
	}

	n.reset()

	assert.True(t, n.frame.IsZero())
	assert.Nil(t, n.parent)
	assert.Empty(t, n.children)
	assert.Zero(t, n.count)
	assert.Zero(t, n.start)
	assert.Zero(t, n.lastSeen)
	assert.Zero(t, n.depth)
	assert.Empty(t, n.childIDs)
	assert.False(t, n.ended)
	assert.Nil(t, n.promotedParent)
	assert.False(t, n.hasPromoted)
}
