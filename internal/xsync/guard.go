//go:build !inferredspans_debug

// Package xsync provides a build-tag-gated assertion that a Root is never
// entered by more than one goroutine at a time (spec §5: "the aggregation
// engine itself is single-threaded; callers serialize access"). The
// default build (this file) is a zero-cost no-op; build with
// -tags inferredspans_debug to enable the runtime check in guard_debug.go,
// the same opt-in-cost pattern the teacher uses for its own debug-only
// build-tagged helpers (civisibility's platform-gated files).
package xsync

// Guard is embedded by a Root to detect concurrent misuse. The zero value
// is ready to use.
type Guard struct{}

// Enter returns a func to call when the caller is done; in the default
// build it does nothing.
func (g *Guard) Enter() func() {
	return noop
}

func noop() {}
