package calltree

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferredspans/inferredspans/activation"
	"github.com/inferredspans/inferredspans/frame"
	"github.com/inferredspans/inferredspans/mocktracer"
)

const unit = int64(10 * time.Millisecond)

var (
	fA = frame.New("A", "a")
	fB = frame.New("B", "b")
	fC = frame.New("C", "c")
	fD = frame.New("D", "d")
)

func newTestRoot(opts ...StartOption) *Root {
	pool := NewNodePool(64)
	return NewRoot(mocktracer.NewSpanContext(), pool, opts...)
}

// TestTwoDistinctInvocationsOfBAreNotMerged covers scenario 1: samples
// " bb bb" over "aaaaaa" must produce two sibling b nodes, not one node
// whose path the stack briefly vacated and re-entered.
func TestTwoDistinctInvocationsOfBAreNotMerged(t *testing.T) {
	r := newTestRoot()

	r.AddStackTrace([]frame.Frame{fA}, 0*unit)
	r.AddStackTrace([]frame.Frame{fA, fB}, 1*unit)
	r.AddStackTrace([]frame.Frame{fA, fB}, 2*unit)
	r.AddStackTrace([]frame.Frame{fA}, 3*unit)
	r.AddStackTrace([]frame.Frame{fA, fB}, 4*unit)
	r.AddStackTrace([]frame.Frame{fA, fB}, 5*unit)
	r.End(6 * unit)

	require.Len(t, r.node.children, 1)
	a := r.node.children[0]
	assert.Equal(t, int64(6), a.count)

	require.Len(t, a.children, 2)
	first, second := a.children[0], a.children[1]
	assert.Equal(t, int64(2), first.count)
	assert.Equal(t, int64(2), second.count)
	assert.True(t, first.ended)
	assert.NotSame(t, first, second)
}

// TestThreeLevelTreeWithMinDurationFilter covers scenario 2.
func TestThreeLevelTreeWithMinDurationFilter(t *testing.T) {
	r := newTestRoot(WithMinDuration(time.Duration(unit)))

	r.AddStackTrace([]frame.Frame{fA}, 0*unit)
	r.AddStackTrace([]frame.Frame{fA, fB, fC}, 1*unit)
	r.AddStackTrace([]frame.Frame{fA, fB, fC}, 2*unit)
	r.AddStackTrace([]frame.Frame{fA, fB}, 3*unit)
	r.End(4 * unit)

	a := r.node.children[0]
	assert.Equal(t, int64(4), a.count)
	assert.Equal(t, 3*unit, a.lastSeen-a.start)

	b := a.children[0]
	assert.Equal(t, int64(3), b.count)
	assert.Equal(t, 2*unit, b.lastSeen-b.start)

	c := b.children[0]
	assert.Equal(t, int64(2), c.count)
	assert.Equal(t, 1*unit, c.lastSeen-c.start)

	tr := mocktracer.New()
	require.NoError(t, r.Spanify(tr))

	spans := tr.Spans()
	require.Len(t, spans, 3)
	byName := map[string]*mocktracer.Span{}
	for _, s := range spans {
		byName[s.Name] = s
	}
	assert.Equal(t, 3*unit, byName["A#a"].End-byName["A#a"].Start)
	assert.Equal(t, 2*unit, byName["B#b"].End-byName["B#b"].Start)
	assert.Equal(t, 1*unit, byName["C#c"].End-byName["C#c"].Start)
}

// TestDeactivationBeforeEndReparents covers scenario 4: a span deactivated
// before the method it's nested under has finished must be stolen by the
// deepest descendant whose observed lifetime actually contains it.
func TestDeactivationBeforeEndReparents(t *testing.T) {
	r := newTestRoot()
	span2 := mocktracer.NewSpanContext()

	// b has not been sampled yet when the activation is processed, so it
	// is first attributed to a — the then-deepest open node.
	r.AddStackTrace([]frame.Frame{fA}, 0*unit)
	r.ProcessActivationEventsUpTo(3*unit, false, singleEventSource(activation.Event{
		Kind: activation.Activate, Context: span2, Timestamp: 3 * unit,
	}))
	// b's first sample arrives after the activation but its observed
	// lifetime (starting now) still contains the activation instant.
	r.AddStackTrace([]frame.Frame{fA, fB}, 3*unit)
	r.AddStackTrace([]frame.Frame{fA, fB}, 7*unit)
	r.ProcessActivationEventsUpTo(7*unit, false, singleEventSource(activation.Event{
		Kind: activation.Deactivate, Context: span2, Timestamp: 7 * unit,
	}))
	r.End(7 * unit)

	a := r.node.children[0]
	b := a.children[0]

	assert.Empty(t, a.childIDs)
	require.Len(t, b.childIDs, 1)
	assert.Equal(t, span2, b.childIDs[0].ctx)
}

// TestActivationAfterMethodEndsPromotesAncestor covers scenario 5: an
// activation arriving after the method it would have nested under has
// stopped being sampled becomes the real parent of whatever is sampled
// next, instead of a child of the departed method.
func TestActivationAfterMethodEndsPromotesAncestor(t *testing.T) {
	r := newTestRoot()
	span2 := mocktracer.NewSpanContext()

	r.AddStackTrace([]frame.Frame{fA}, 1*unit)
	r.AddStackTrace([]frame.Frame{fA}, 3*unit)
	r.ProcessActivationEventsUpTo(4*unit, false, singleEventSource(activation.Event{
		Kind: activation.Activate, Context: span2, Timestamp: 4 * unit,
	}))
	r.AddStackTrace([]frame.Frame{fB}, 5*unit)
	r.AddStackTrace([]frame.Frame{fB}, 7*unit)
	r.End(7 * unit)

	require.Len(t, r.node.children, 2)
	a, b := r.node.children[0], r.node.children[1]
	assert.Equal(t, fA, a.frame)
	assert.Equal(t, fB, b.frame)
	assert.False(t, a.isSuccessor(b))
	assert.False(t, b.isSuccessor(a))
	assert.True(t, b.hasPromoted)
	assert.Equal(t, span2, b.promotedParent)
}

// TestDontStealUnrelatedActivations covers scenario 6: an activation whose
// entire lifetime precedes b's first sample stays attributed where it was
// first placed and is never stolen by an unrelated, later descendant.
func TestDontStealUnrelatedActivations(t *testing.T) {
	r := newTestRoot()
	span1 := mocktracer.NewSpanContext()
	span2 := mocktracer.NewSpanContext()

	r.AddStackTrace([]frame.Frame{fA}, 0*unit)
	r.ProcessActivationEventsUpTo(1*unit, false, multiEventSource(
		activation.Event{Kind: activation.Activate, Context: span1, Timestamp: 1 * unit},
		activation.Event{Kind: activation.Deactivate, Context: span1, Timestamp: 1 * unit},
	))
	r.AddStackTrace([]frame.Frame{fA, fB}, 2*unit)
	r.ProcessActivationEventsUpTo(3*unit, false, singleEventSource(activation.Event{
		Kind: activation.Activate, Context: span2, Timestamp: 3 * unit,
	}))
	r.AddStackTrace([]frame.Frame{fA, fB}, 4*unit)
	r.ProcessActivationEventsUpTo(4*unit, false, singleEventSource(activation.Event{
		Kind: activation.Deactivate, Context: span2, Timestamp: 4 * unit,
	}))
	r.End(4 * unit)

	a := r.node.children[0]
	b := a.children[0]

	require.Len(t, a.childIDs, 1)
	assert.Equal(t, span1, a.childIDs[0].ctx)
	require.Len(t, b.childIDs, 1)
	assert.Equal(t, span2, b.childIDs[0].ctx)
}

func TestDroppedSamplesCountedOnOutOfOrderAndPostEnd(t *testing.T) {
	r := newTestRoot()
	r.AddStackTrace([]frame.Frame{fA}, 5*unit)
	r.AddStackTrace([]frame.Frame{fA}, 2*unit) // out of order
	r.End(5 * unit)
	r.AddStackTrace([]frame.Frame{fA}, 6*unit) // after End

	stats := r.Stats()
	assert.Equal(t, uint32(2), stats.DroppedSamples)
}

func TestUnmatchedDeactivationIsCounted(t *testing.T) {
	r := newTestRoot()
	r.AddStackTrace([]frame.Frame{fA}, 0)
	r.ProcessActivationEventsUpTo(1, false, singleEventSource(activation.Event{
		Kind: activation.Deactivate, Context: mocktracer.NewSpanContext(), Timestamp: 1,
	}))
	r.End(1)

	assert.Equal(t, uint32(1), r.Stats().UnmatchedDeactivations)
}

func TestEndIsIdempotent(t *testing.T) {
	r := newTestRoot()
	r.AddStackTrace([]frame.Frame{fA}, 0)
	r.End(1)
	firstLastSeen := r.node.children[0].lastSeen
	r.End(100)
	assert.Equal(t, firstLastSeen, r.node.children[0].lastSeen)
}

// TestRootCountEqualsSampleCount covers invariant 1.
func TestRootCountEqualsSampleCount(t *testing.T) {
	r := newTestRoot()
	for i := int64(0); i < 5; i++ {
		r.AddStackTrace([]frame.Frame{fA, fB}, i*unit)
	}
	r.End(5 * unit)

	assert.Equal(t, int64(5), r.node.count)
	a := r.node.children[0]
	assert.Equal(t, int64(5), a.count)
	assert.GreaterOrEqual(t, a.count, sumChildCounts(a))
}

func sumChildCounts(n *node) int64 {
	var sum int64
	for _, c := range n.children {
		sum += c.count
	}
	return sum
}

// TestEveryNodeIsSuccessorOfRoot covers invariant 2.
func TestEveryNodeIsSuccessorOfRoot(t *testing.T) {
	r := newTestRoot()
	r.AddStackTrace([]frame.Frame{fA, fB, fC}, 0)
	r.End(1)

	a := r.node.children[0]
	b := a.children[0]
	c := b.children[0]

	assert.True(t, a.isSuccessor(&r.node))
	assert.True(t, b.isSuccessor(&r.node))
	assert.True(t, c.isSuccessor(&r.node))
	assert.Equal(t, 1, a.depth)
	assert.Equal(t, 2, b.depth)
	assert.Equal(t, 3, c.depth)
}

// TestSealedTreeTimestampsAreContained covers invariant 4.
func TestSealedTreeTimestampsAreContained(t *testing.T) {
	r := newTestRoot()
	r.AddStackTrace([]frame.Frame{fA}, 0*unit)
	r.AddStackTrace([]frame.Frame{fA, fB}, 1*unit)
	r.AddStackTrace([]frame.Frame{fA, fB}, 2*unit)
	r.End(2 * unit)

	a := r.node.children[0]
	b := a.children[0]

	assert.LessOrEqual(t, a.start, b.start)
	assert.GreaterOrEqual(t, a.lastSeen, b.lastSeen)
	assert.LessOrEqual(t, a.start, a.lastSeen)
	assert.LessOrEqual(t, b.start, b.lastSeen)
}

func singleEventSource(e activation.Event) activation.Source {
	return multiEventSource(e)
}

type fixedSource struct {
	events []activation.Event
}

func (s *fixedSource) DrainUpTo(t int64) []activation.Event {
	var ready []activation.Event
	var rest []activation.Event
	for _, e := range s.events {
		if e.Timestamp <= t {
			ready = append(ready, e)
		} else {
			rest = append(rest, e)
		}
	}
	s.events = rest
	return ready
}

func multiEventSource(events ...activation.Event) activation.Source {
	return &fixedSource{events: events}
}
