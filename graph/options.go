package graph

import (
	"fmt"
	"time"

	"github.com/flowmesh/flowgraph-go/graph/component"
	"github.com/flowmesh/flowgraph-go/graph/emit"
	"github.com/flowmesh/flowgraph-go/graph/store"
)

// engineConfig holds the engine's resolved configuration.
type engineConfig struct {
	emitter          emit.Emitter
	metrics          Metrics
	store            store.Store
	observers        []Observer
	capabilities     component.CapabilityProvider
	usage            *UsageTracker
	maxConcurrent    int
	iterationCeiling int
	defaultTimeout   time.Duration
}

// Option configures an Engine at construction time.
type Option func(*engineConfig) error

// defaultConfig returns the baseline configuration: serial execution, a
// 10000-build iteration ceiling, no timeout, events discarded.
func defaultConfig() engineConfig {
	return engineConfig{
		emitter:          emit.NewNullEmitter(),
		metrics:          nopMetrics{},
		maxConcurrent:    1,
		iterationCeiling: 10000,
	}
}

// WithEmitter routes execution events to the given emitter.
func WithEmitter(e emit.Emitter) Option {
	return func(c *engineConfig) error {
		if e == nil {
			return fmt.Errorf("emitter cannot be nil")
		}
		c.emitter = e
		return nil
	}
}

// WithMetrics routes scheduler measurements to the given backend.
func WithMetrics(m Metrics) Option {
	return func(c *engineConfig) error {
		if m == nil {
			return fmt.Errorf("metrics cannot be nil")
		}
		c.metrics = m
		return nil
	}
}

// WithStore enables session persistence: batch runs with a session id load
// their context-store snapshot before executing and save it after.
func WithStore(s store.Store) Option {
	return func(c *engineConfig) error {
		if s == nil {
			return fmt.Errorf("store cannot be nil")
		}
		c.store = s
		return nil
	}
}

// WithObserver registers a per-build observer. May be given several times.
func WithObserver(o Observer) Option {
	return func(c *engineConfig) error {
		if o == nil {
			return fmt.Errorf("observer cannot be nil")
		}
		c.observers = append(c.observers, o)
		return nil
	}
}

// WithCapabilities exposes optional capabilities to components through
// their build requests.
func WithCapabilities(p component.CapabilityProvider) Option {
	return func(c *engineConfig) error {
		c.capabilities = p
		return nil
	}
}

// WithUsageTracker accumulates model token usage reported by components.
func WithUsageTracker(t *UsageTracker) Option {
	return func(c *engineConfig) error {
		if t == nil {
			return fmt.Errorf("usage tracker cannot be nil")
		}
		c.usage = t
		return nil
	}
}

// WithMaxConcurrent bounds how many vertices of one ready layer the batch
// entry point builds in parallel. 1 (the default) means fully serial
// execution. The streaming entry point is always serial.
func WithMaxConcurrent(n int) Option {
	return func(c *engineConfig) error {
		if n < 1 {
			return fmt.Errorf("max concurrent must be >= 1, got %d", n)
		}
		c.maxConcurrent = n
		return nil
	}
}

// WithIterationCeiling caps the total number of scheduling steps per run,
// bounding runaway loop constructs. Exceeding the ceiling fails the run
// with an ExecutionError.
func WithIterationCeiling(n int) Option {
	return func(c *engineConfig) error {
		if n < 1 {
			return fmt.Errorf("iteration ceiling must be >= 1, got %d", n)
		}
		c.iterationCeiling = n
		return nil
	}
}

// WithDefaultBuildTimeout bounds every vertex build that does not declare
// its own timeout. Zero disables the default limit.
func WithDefaultBuildTimeout(d time.Duration) Option {
	return func(c *engineConfig) error {
		if d < 0 {
			return fmt.Errorf("default build timeout cannot be negative")
		}
		c.defaultTimeout = d
		return nil
	}
}

// runConfig holds per-run settings resolved at Prepare.
type runConfig struct {
	runID     string
	sessionID string
	inputs    []InputValue
	snapshot  *Snapshot
}

// RunOption configures one prepared run.
type RunOption func(*runConfig)

// WithRunID overrides the generated run id.
func WithRunID(id string) RunOption {
	return func(c *runConfig) { c.runID = id }
}

// WithSessionID binds the run to a persisted session: the context store is
// seeded from the session's snapshot when a store is configured.
func WithSessionID(id string) RunOption {
	return func(c *runConfig) { c.sessionID = id }
}

// WithInput supplies a run input value. May be given several times.
func WithInput(iv InputValue) RunOption {
	return func(c *runConfig) { c.inputs = append(c.inputs, iv) }
}

// WithSnapshot seeds the run's context store from a caller-supplied
// snapshot, typically taken from a finished run via Run.Snapshot. It takes
// precedence over store-loaded session state, so callers can carry state
// across runs without configuring a store.
func WithSnapshot(snap Snapshot) RunOption {
	return func(c *runConfig) { c.snapshot = &snap }
}
