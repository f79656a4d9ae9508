// Package frame defines the immutable (class, method) identity used as the
// discriminator throughout the call-tree aggregation engine (spec §3/§4.2).
package frame

import "fmt"

// Frame is the value-typed identity of a single stack entry: a class and a
// method name. Two Frames are equal when both fields are equal by content
// (spec §4.2) — there is deliberately no pointer identity or numeric id
// folded in here, since frames arrive from instrumentation of arbitrary
// classes/methods in the host runtime and must compare correctly across
// independent samples.
type Frame struct {
	ClassName  string
	MethodName string
}

// New constructs a Frame. It exists mainly for readability at call sites
// that build frame slices by hand (tests, the stackconv adapter).
func New(className, methodName string) Frame {
	return Frame{ClassName: className, MethodName: methodName}
}

// Equal reports whether f and other identify the same (class, method)
// pair.
func (f Frame) Equal(other Frame) bool {
	return f.ClassName == other.ClassName && f.MethodName == other.MethodName
}

// String renders the default span-naming convention (spec §4.5):
// "ClassName#method". Callers that need a different convention (e.g. a
// spanifier NameFunc override) should not rely on this format.
func (f Frame) String() string {
	return fmt.Sprintf("%s#%s", f.ClassName, f.MethodName)
}

// IsZero reports whether f is the zero Frame, used to distinguish a real
// frame from the Root's sentinel marker.
func (f Frame) IsZero() bool {
	return f.ClassName == "" && f.MethodName == ""
}
