// Command inferredspans-demo wires the engine together end to end: it
// feeds a synthetic pprof-shaped profile and a raw goroutine dump through
// the two supported ingestion paths, drives an activation timeline
// through scenario 5 of spec §8 (activation after the method ends), and
// prints the spans a real Tracer would have received. It mirrors the teacher's own
// profiler/example_test.go style of runnable, self-contained examples.
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/pprof/profile"
	"github.com/google/uuid"

	"github.com/inferredspans/inferredspans/activation"
	"github.com/inferredspans/inferredspans/calltree"
	"github.com/inferredspans/inferredspans/frame"
	"github.com/inferredspans/inferredspans/mocktracer"
	"github.com/inferredspans/inferredspans/stackconv"
)

func main() {
	fmt.Println("== pprof-shaped profile ingestion ==")
	runProfileIngestionDemo()

	fmt.Println()
	fmt.Println("== raw goroutine-dump ingestion (stackconv) ==")
	runStackconvDemo()

	fmt.Println()
	fmt.Println("== activation reconciliation (spec scenario 5) ==")
	runActivationDemo()
}

// runProfileIngestionDemo builds a tiny in-memory *profile.Profile (the
// shape a real profiler would produce), reads each sample's locations
// into calltree frames, and prints the resulting tree's inferred spans.
func runProfileIngestionDemo() {
	const unit = int64(10 * time.Millisecond)
	prof, samples := syntheticProfile()

	pool := calltree.NewNodePool(64)
	root := calltree.NewRoot(mocktracer.NewSpanContext(), pool, calltree.WithMinDuration(0))

	for i, s := range samples {
		root.AddStackTrace(framesFromSample(prof, s), int64(i)*unit)
	}
	root.End(int64(len(samples)) * unit)

	tr := mocktracer.New()
	if err := root.Spanify(tr); err != nil {
		fmt.Println("spanify error:", err)
		return
	}
	for _, s := range tr.Spans() {
		fmt.Printf("  span %-16s [%d, %d]\n", s.Name, s.Start, s.End)
	}
}

// syntheticProfile stands in for a real CPU profile: two samples sharing
// an "A" frame at the root, one of them descending into "B".
func syntheticProfile() (*profile.Profile, []*profile.Sample) {
	fnA := &profile.Function{ID: 1, Name: "main.A"}
	fnB := &profile.Function{ID: 2, Name: "main.B"}
	locA := &profile.Location{ID: 1, Line: []profile.Line{{Function: fnA}}}
	locB := &profile.Location{ID: 2, Line: []profile.Line{{Function: fnB}}}

	prof := &profile.Profile{
		Function: []*profile.Function{fnA, fnB},
		Location: []*profile.Location{locA, locB},
	}

	// pprof samples list locations leaf-first (innermost call first).
	samples := []*profile.Sample{
		{Location: []*profile.Location{locA}, Value: []int64{1}},
		{Location: []*profile.Location{locB, locA}, Value: []int64{1}},
	}
	prof.Sample = samples
	return prof, samples
}

// framesFromSample converts one pprof sample's leaf-first locations into
// the bottom-of-stack-first []frame.Frame order calltree expects.
func framesFromSample(_ *profile.Profile, s *profile.Sample) []frame.Frame {
	frames := make([]frame.Frame, len(s.Location))
	for i, loc := range s.Location {
		name := "unknown"
		if len(loc.Line) > 0 && loc.Line[0].Function != nil {
			name = loc.Line[0].Function.Name
		}
		class, method := splitQualifiedName(name)
		frames[len(frames)-1-i] = frame.New(class, method)
	}
	return frames
}

func splitQualifiedName(name string) (class, method string) {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+1:]
}

const goroutineDump = `goroutine 7 [running]:
main.(*Worker).process(0xc0000a4000)
	/app/worker.go:21 +0x10
main.main()
	/app/main.go:9 +0x20
`

func runStackconvDemo() {
	goroutines, err := stackconv.Parse(strings.NewReader(goroutineDump))
	if err != nil {
		fmt.Println("parse error:", err)
		return
	}
	for _, g := range goroutines {
		fmt.Printf("  goroutine %d:\n", g.ID)
		for _, f := range g.Frames {
			fmt.Printf("    %s\n", f)
		}
	}
}

// runActivationDemo drives spec scenario 5 (activation-after-method-ends):
// an explicit span activates after the method it would nest under has
// already stopped being sampled, so it becomes the real parent of
// whatever is sampled next instead of an is_child link hanging off the
// departed method.
func runActivationDemo() {
	const unit = int64(10 * time.Millisecond)
	pool := calltree.NewNodePool(64)
	root := calltree.NewRoot(mocktracer.NewSpanContext(), pool, calltree.WithMinDuration(0))
	span := mocktracer.TraceContext(uuidDerivedTraceID())

	root.AddStackTrace([]frame.Frame{frame.New("A", "a")}, 1*unit)
	root.AddStackTrace([]frame.Frame{frame.New("A", "a")}, 3*unit)
	root.ProcessActivationEventsUpTo(4*unit, false, singleEvent(activation.Event{
		Kind: activation.Activate, Context: span, Timestamp: 4 * unit,
	}))
	root.AddStackTrace([]frame.Frame{frame.New("B", "b")}, 5*unit)
	root.End(5 * unit)

	tr := mocktracer.New()
	if err := root.Spanify(tr); err != nil {
		fmt.Println("spanify error:", err)
		return
	}
	for _, s := range tr.Spans() {
		parent := "<none>"
		if s.Parent != nil {
			parent = fmt.Sprintf("trace=%d span=%d", s.Parent.TraceID(), s.Parent.SpanID())
		}
		fmt.Printf("  span %-16s parent=%s\n", s.Name, parent)
	}
}

func uuidDerivedTraceID() uint64 {
	id := uuid.New()
	var v uint64
	for _, b := range id[:8] {
		v = v<<8 | uint64(b)
	}
	if v == 0 {
		return 1
	}
	return v
}

type singleEventSource activation.Event

func singleEvent(e activation.Event) activation.Source { return singleEventSource(e) }

func (s singleEventSource) DrainUpTo(t int64) []activation.Event {
	if activation.Event(s).Timestamp <= t {
		return []activation.Event{activation.Event(s)}
	}
	return nil
}
