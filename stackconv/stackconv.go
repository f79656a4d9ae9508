// Package stackconv adapts raw goroutine-dump text (the kind
// runtime.Stack/pprof produce) into the []frame.Frame slices
// calltree.Root.AddStackTrace expects (SPEC_FULL §9, "Supplemented
// feature: raw stack-trace ingestion adapter"). It is not on the
// calltree critical path: a sampler that already emits structured
// frames has no reason to go through here.
package stackconv

import (
	"fmt"
	"io"

	"github.com/DataDog/gostackparse"

	"github.com/inferredspans/inferredspans/frame"
)

// Goroutine is one parsed goroutine's frames, bottom-of-stack first (the
// order calltree.Root.AddStackTrace requires), plus the id gostackparse
// assigned it, for callers juggling multiple goroutines per dump.
type Goroutine struct {
	ID     int
	Frames []frame.Frame
}

// Parse reads a goroutine-dump text blob (as produced by runtime.Stack(buf,
// true) or a pprof "goroutine" debug=2 profile) and returns one Goroutine
// per stack found, each already reversed into calltree's expected
// bottom-first order. Malformed goroutines are skipped and their parse
// errors joined into the returned error; a dump containing only malformed
// goroutines yields a nil slice and a non-nil error.
func Parse(r io.Reader) ([]Goroutine, error) {
	parsed, errs := gostackparse.Parse(r)

	var out []Goroutine
	for _, g := range parsed {
		frames := make([]frame.Frame, len(g.Stack))
		for i, f := range g.Stack {
			// gostackparse reports innermost-frame-first (matching the
			// dump's top-to-bottom order); calltree wants bottom-of-stack
			// first, so the slice is built in reverse.
			frames[len(frames)-1-i] = frame.New(funcPackage(f.Func), funcMethod(f.Func))
		}
		out = append(out, Goroutine{ID: g.ID, Frames: frames})
	}

	if len(errs) == 0 {
		return out, nil
	}
	return out, joinErrors(errs)
}

// funcPackage and funcMethod split a Go-style fully-qualified function name
// ("pkg/path.(*Type).Method") into the (class, method) pair frame.Frame
// expects, reusing the full package path plus receiver type as the class.
func funcPackage(fn string) string {
	class, _ := splitFunc(fn)
	return class
}

func funcMethod(fn string) string {
	_, method := splitFunc(fn)
	return method
}

// splitFunc finds the final '.' that separates a function's method name
// from its package/receiver qualifier, scanning from the right so that
// dots inside the package path (and inside a "(*Type)" receiver) are not
// mistaken for the separator.
func splitFunc(fn string) (class, method string) {
	for i := len(fn) - 1; i >= 0; i-- {
		if fn[i] == '.' {
			return fn[:i], fn[i+1:]
		}
	}
	return "", fn
}

func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("stackconv: %d goroutines failed to parse: %v", len(errs), msgs)
}
