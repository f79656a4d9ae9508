package calltree

import (
	"time"

	"github.com/inferredspans/inferredspans/frame"
	"github.com/inferredspans/inferredspans/internal/clock"
	"github.com/inferredspans/inferredspans/tracing"
)

// Config holds the recognized options from spec §6, set via StartOption
// functions at Root construction, matching the teacher's pervasive
// functional-options convention (tracer.StartOption, profiler.Option).
type Config struct {
	// MinDuration is inferredSpansMinDuration (spec §6): nodes with a
	// shorter observed lifetime are dropped during Spanify.
	MinDuration time.Duration

	// ScheduledProfiling mirrors startScheduledProfiling (spec §6) — not
	// consumed by the engine itself, carried only so callers sharing this
	// Config with the external scheduler have one place to read it.
	ScheduledProfiling bool

	// Clock is the wall-clock source; defaults to a monotonic wall clock.
	Clock tracing.Clock
}

// StartOption configures a Root at construction.
type StartOption func(*Config)

// WithMinDuration sets inferredSpansMinDuration.
func WithMinDuration(d time.Duration) StartOption {
	return func(c *Config) { c.MinDuration = d }
}

// WithScheduledProfiling records whether the external scheduler is active.
func WithScheduledProfiling(enabled bool) StartOption {
	return func(c *Config) { c.ScheduledProfiling = enabled }
}

// WithClock overrides the default monotonic wall clock, primarily for
// deterministic tests.
func WithClock(c tracing.Clock) StartOption {
	return func(cfg *Config) { cfg.Clock = c }
}

func defaultConfig() Config {
	return Config{Clock: clock.New()}
}

func newConfig(opts ...StartOption) Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NameFunc derives a span name from a Frame. The default matches spec
// §4.5's "ClassName#method" convention (frame.Frame.String).
type NameFunc func(frame.Frame) string

func defaultNameFunc(f frame.Frame) string { return f.String() }

// ParentOverrideFunc lets external policy redirect a node's emitted parent
// without mutating the engine (spec §9 "parent-override strategy"). It
// receives the node's frame, its depth, and the parent the default
// ancestor-chain logic would otherwise use, and returns the parent
// context to actually use.
type ParentOverrideFunc func(f frame.Frame, depth int, defaultParent tracing.SpanContext) tracing.SpanContext

// SpanifyOption configures a single Spanify call.
type SpanifyOption func(*spanifyConfig)

type spanifyConfig struct {
	minDurationNanos int64
	nameFunc         NameFunc
	parentOverride   ParentOverrideFunc
}

// WithNameFunc overrides the default "ClassName#method" span naming.
func WithNameFunc(f NameFunc) SpanifyOption {
	return func(c *spanifyConfig) { c.nameFunc = f }
}

// WithParentOverride installs a parent-override strategy (spec §9).
func WithParentOverride(f ParentOverrideFunc) SpanifyOption {
	return func(c *spanifyConfig) { c.parentOverride = f }
}

func newSpanifyConfig(minDuration time.Duration, opts ...SpanifyOption) spanifyConfig {
	cfg := spanifyConfig{
		minDurationNanos: minDuration.Nanoseconds(),
		nameFunc:         defaultNameFunc,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
