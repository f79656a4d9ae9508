// Package clock provides the default implementation of the tracing.Clock
// port (see spec §6: "Clock port: now() plus test-overridable set()").
package clock

import (
	"sync/atomic"
	"time"
)

// Monotonic is a wall clock backed by time.Now, overridable for
// deterministic tests via Set.
type Monotonic struct {
	override atomic.Int64 // nanoseconds; 0 means "use time.Now"
}

// New returns a Monotonic clock that reads the real wall clock until Set is
// called.
func New() *Monotonic {
	return &Monotonic{}
}

// Now returns the current time in nanoseconds since the Unix epoch, or the
// overridden value set via Set.
func (c *Monotonic) Now() int64 {
	if v := c.override.Load(); v != 0 {
		return v
	}
	return time.Now().UnixNano()
}

// Set pins the clock to a fixed nanosecond timestamp, for deterministic
// tests. Passing 0 resumes reading the real wall clock.
func (c *Monotonic) Set(nanos int64) {
	c.override.Store(nanos)
}
