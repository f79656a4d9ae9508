//go:build inferredspans_debug

package xsync

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
)

// Guard is embedded by a Root to detect concurrent misuse. The zero value
// is ready to use.
type Guard struct {
	owner atomic.Int64
}

// Enter panics if another goroutine is already between its own
// Enter/leave pair, and otherwise returns a func that releases the guard.
// Re-entrance from the same goroutine (a mutating method calling another)
// is allowed.
func (g *Guard) Enter() func() {
	id := goroutineID()
	if prev := g.owner.Swap(id); prev != 0 && prev != id {
		panic(fmt.Sprintf("xsync: concurrent access detected: owned by goroutine %d, entered from %d", prev, id))
	}
	return func() { g.owner.Store(0) }
}

// goroutineID parses the current goroutine's id out of its own stack
// trace header ("goroutine 123 [running]:"). This is the same
// best-effort, debug-only technique used by runtime.Stack-based race
// detectors; it is deliberately not relied on for anything but a panic
// message and an equality check.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	line := buf[:n]
	const prefix = "goroutine "
	if !bytes.HasPrefix(line, []byte(prefix)) {
		return 0
	}
	line = line[len(prefix):]
	end := bytes.IndexByte(line, ' ')
	if end < 0 {
		return 0
	}
	id, err := strconv.ParseInt(string(line[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
