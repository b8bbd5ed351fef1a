// Package component defines the build operations that graph vertices execute.
//
// The engine treats components as opaque: it resolves a component per vertex
// from a Catalog, hands it resolved input values, and inspects only the
// success/failure outcome plus, for loop-aware components, the continue/stop
// signal. Everything a component actually does (model calls, tool wrappers,
// text processing) is a concern of this package and its subpackages, never
// of the scheduler.
package component

import "context"

// Component is the opaque build operation attached to one vertex.
//
// Implementations receive resolved upstream values and vertex parameters and
// return named output values. They should:
//   - Respect context cancellation and deadlines (builds may be I/O bound)
//   - Return an error rather than panic on bad input
//   - Avoid retaining the Request after Build returns
type Component interface {
	// Build executes the operation once. The returned Output maps declared
	// output slot names to values; slots absent from the map are treated as
	// not produced and keep downstream vertices bound to them dormant.
	Build(ctx context.Context, req Request) (Output, error)
}

// Request carries everything a component may consult during one build.
type Request struct {
	// VertexID identifies the vertex being built.
	VertexID string

	// Params holds the vertex's parameter bindings from the graph
	// definition, with any run-input overrides already applied.
	Params map[string]any

	// Inputs maps input slot names to the successful upstream values bound
	// to that slot. A slot bound to several upstream outputs collects all
	// successful values in edge order.
	Inputs map[string][]any

	// Loop is non-nil only for loop-aware components. It carries the
	// current iteration frame managed by the engine's context store.
	Loop *LoopFrame

	// Capabilities exposes optional engine capabilities (validators,
	// schema reflection, and the like) resolved once at engine
	// construction. Nil when the engine was built without capabilities.
	Capabilities CapabilityProvider

	// ReportUsage, when non-nil, lets model-backed components report token
	// consumption back to the engine's usage tracker.
	ReportUsage func(model string, tokensIn, tokensOut int)
}

// Input returns the first successful value bound to the named slot, or nil
// when the slot received nothing. Convenience for single-binding slots.
func (r Request) Input(slot string) any {
	vals := r.Inputs[slot]
	if len(vals) == 0 {
		return nil
	}
	return vals[0]
}

// Param returns the named parameter or def when absent.
func (r Request) Param(key string, def any) any {
	if v, ok := r.Params[key]; ok {
		return v
	}
	return def
}

// StringParam returns the named parameter as a string, or def when absent or
// not a string.
func (r Request) StringParam(key, def string) string {
	if v, ok := r.Params[key].(string); ok {
		return v
	}
	return def
}

// Output is the result of one build.
type Output struct {
	// Values maps output slot names to produced values.
	Values map[string]any

	// LoopContinue signals that a loop-aware component has more work and
	// its downstream span should be reopened for another iteration.
	// Ignored for non-loop components.
	LoopContinue bool
}

// Func adapts a plain function to the Component interface, mirroring
// http.HandlerFunc. Useful for tests and small inline components.
type Func func(ctx context.Context, req Request) (Output, error)

// Build implements Component.
func (f Func) Build(ctx context.Context, req Request) (Output, error) {
	return f(ctx, req)
}

// CapabilityProvider resolves optional capabilities by name.
//
// Capabilities replace ad hoc global registries of optional add-ons: the
// engine resolves one provider at construction time and threads it through
// every build request. Components that need a capability look it up and
// degrade gracefully when it is absent.
type CapabilityProvider interface {
	// Capability returns the named capability and whether it exists.
	Capability(name string) (any, bool)
}

// CapabilityMap is a CapabilityProvider backed by a plain map.
type CapabilityMap map[string]any

// Capability implements CapabilityProvider.
func (m CapabilityMap) Capability(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// RunInput marks components that accept a top-level run input value. The
// engine applies caller-supplied inputs to vertices whose component
// implements this interface (or to explicitly targeted vertices).
type RunInput interface {
	Component

	// RunInputParam names the parameter key the run input is written to.
	RunInputParam() string
}

// LoopAware marks components that drive a loop construct. The engine owns
// the loop's context-store entry (index, remaining items, accumulation) and
// presents the current frame via Request.Loop; the component decides what to
// emit per iteration and at aggregation.
type LoopAware interface {
	Component

	// CollectionSlot names the input slot carrying the collection to
	// iterate over. Captured once on first visit.
	CollectionSlot() string

	// FeedbackSlot names the input slot fed by the loop-back edge: the
	// prior iteration's downstream result, appended to the accumulation.
	FeedbackSlot() string

	// ItemOutput names the output slot produced on each iteration.
	ItemOutput() string

	// DoneOutput names the output slot produced once, at aggregation.
	DoneOutput() string
}

// LoopPhase distinguishes the two build phases a loop-aware component sees.
type LoopPhase int

const (
	// LoopIterating means the frame carries the next single item.
	LoopIterating LoopPhase = iota

	// LoopAggregating means the collection is exhausted and the frame
	// carries the full accumulation.
	LoopAggregating
)

// String returns a readable phase name.
func (p LoopPhase) String() string {
	switch p {
	case LoopIterating:
		return "iterating"
	case LoopAggregating:
		return "aggregating"
	default:
		return "unknown"
	}
}

// LoopFrame is the engine-managed view of one loop visit.
type LoopFrame struct {
	// Phase selects between per-item and aggregate builds.
	Phase LoopPhase

	// Index is the zero-based position of Item within the captured
	// collection. Meaningful only while iterating.
	Index int

	// Item is the current element. Nil while aggregating.
	Item any

	// Aggregated holds the accumulated per-iteration feedback values.
	// Complete only while aggregating.
	Aggregated []any
}
