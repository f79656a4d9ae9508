// Package log provides the logging port used throughout the inferredspans
// engine. It mirrors the teacher's own minimal logging package rather than
// reaching for a third-party logging framework: the core aggregation engine
// runs on a hot path (one call per stack sample) and the teacher's own core
// tracer avoids pulling in a structured-logging dependency for exactly that
// reason, preferring a tiny Logger port plus a package-level rate limiter
// for noisy conditions.
package log

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Level controls which messages reach the configured Logger.
type Level int32

const (
	// LevelWarn only logs warnings and errors. This is the default level.
	LevelWarn Level = iota
	// LevelDebug logs everything.
	LevelDebug
)

const prefixMsg = "Datadog Tracer-compatible inferredspans"

// Logger implementations are able to log given a message.
type Logger interface {
	// Log prints the given message.
	Log(msg string)
}

var (
	mu             sync.RWMutex
	logger         Logger = &defaultLogger{l: log.New(os.Stderr, "", log.LstdFlags)}
	levelThreshold        = LevelWarn

	errmu   sync.Mutex
	erragg  map[string]*errCount
	errrate = time.Minute
)

type errCount struct {
	count   int
	example string
}

func init() {
	erragg = make(map[string]*errCount)
	setLoggingRate(os.Getenv("INFERREDSPANS_LOG_ERROR_RATE"))
}

func setLoggingRate(v string) {
	if v == "" {
		errrate = time.Minute
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		errrate = time.Minute
		return
	}
	errrate = time.Duration(n) * time.Second
}

// UseLogger sets l as the active logger and returns a function to restore
// the previous one.
func UseLogger(l Logger) func() {
	mu.Lock()
	old := logger
	logger = l
	mu.Unlock()
	return func() {
		mu.Lock()
		logger = old
		mu.Unlock()
	}
}

// SetLevel sets the active log level.
func SetLevel(lvl Level) {
	mu.Lock()
	levelThreshold = lvl
	mu.Unlock()
}

// DebugEnabled reports whether debug-level logging is active.
func DebugEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return levelThreshold == LevelDebug
}

func printMsg(lvl, format string, a ...any) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Log(fmt.Sprintf("%s %s: %s", prefixMsg, lvl, fmt.Sprintf(format, a...)))
}

// Debug prints a debug-level message, a no-op unless DebugEnabled.
func Debug(format string, a ...any) {
	if !DebugEnabled() {
		return
	}
	printMsg("DEBUG", format, a...)
}

// Warn prints a warning-level message.
func Warn(format string, a ...any) {
	printMsg("WARN", format, a...)
}

// Error aggregates error-level messages sharing the same format string and
// flushes them at most once per errrate, to keep a noisy recoverable
// condition from flooding the log. Call Flush to force immediate emission
// (used in tests and at session end).
func Error(format string, a ...any) {
	errmu.Lock()
	defer errmu.Unlock()
	if c, ok := erragg[format]; ok {
		c.count++
	} else {
		erragg[format] = &errCount{count: 1, example: fmt.Sprintf(format, a...)}
		if errrate > 0 {
			time.AfterFunc(errrate, Flush)
		}
	}
	if errrate == 0 {
		flushLocked()
	}
}

// Flush emits any aggregated error messages immediately.
func Flush() {
	errmu.Lock()
	defer errmu.Unlock()
	flushLocked()
}

func flushLocked() {
	for format, c := range erragg {
		msg := c.example
		if c.count > 1 {
			msg = fmt.Sprintf("%s, %d additional messages skipped", c.example, c.count-1)
		}
		printMsg("ERROR", "%s", msg)
		delete(erragg, format)
	}
}

// defaultLogger wraps the standard library logger.
type defaultLogger struct{ l *log.Logger }

func (d *defaultLogger) Log(msg string) { d.l.Print(msg) }

// DiscardLogger discards every message. Useful in benchmarks and in
// contexts (e.g. unit tests of unrelated packages) where log output would
// only be noise.
type DiscardLogger struct{}

// Log implements Logger.
func (DiscardLogger) Log(string) {}

// RecordLogger is a Logger that stores every message for later assertions.
// It is the logger teacher-style test suites install via UseLogger.
type RecordLogger struct {
	mu      sync.Mutex
	lines   []string
	ignores []string
}

// Log implements Logger.
func (r *RecordLogger) Log(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ig := range r.ignores {
		if strings.Contains(msg, ig) {
			return
		}
	}
	r.lines = append(r.lines, msg)
}

// Ignore causes any future message containing one of the given substrings
// to be dropped rather than recorded.
func (r *RecordLogger) Ignore(substrings ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ignores = append(r.ignores, substrings...)
}

// Logs returns every recorded message, in order.
func (r *RecordLogger) Logs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Reset clears recorded messages but keeps configured ignores.
func (r *RecordLogger) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = r.lines[:0]
}
