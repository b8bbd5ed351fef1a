package graph

import (
	"time"

	"github.com/flowmesh/flowgraph-go/graph/component"
)

// BuildState tracks where a vertex is in its run lifecycle.
type BuildState int

const (
	// StatePending means the vertex has unsatisfied predecessors.
	StatePending BuildState = iota

	// StateReady means all predecessors are satisfied and the vertex is
	// queued (or about to be queued) for building.
	StateReady

	// StateRunning means the vertex's build operation is executing.
	StateRunning

	// StateDone means the vertex built successfully. Loop constructs move
	// Done vertices back to Pending when reopening the downstream span.
	StateDone

	// StateErrored means the build operation failed.
	StateErrored

	// StateSkipped means the vertex was never built because a required
	// input slot had no successful upstream value.
	StateSkipped
)

// String returns a readable state name.
func (s BuildState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateErrored:
		return "errored"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// binding names one upstream value feeding an input slot.
type binding struct {
	source   string
	output   string
	loopBack bool
}

// Vertex wraps one graph node for the duration of a run: identity, declared
// inputs (derived from incoming edges), the component that builds it, and
// per-run build state. Vertices are created at Prepare and destroyed with
// the run; only the scheduler mutates them.
type Vertex struct {
	// ID is the vertex's stable identifier within the run.
	ID string

	// Type is the component type name from the definition.
	Type string

	// IsOutput flags the vertex as a requested graph output.
	IsOutput bool

	// Outputs lists the declared output slot names.
	Outputs []string

	params map[string]any
	comp   component.Component
	policy *VertexPolicy

	// inputs maps input slot names to their upstream bindings, in edge
	// order. Slots with at least one regular binding are required.
	inputs map[string][]binding

	state  BuildState
	result *BuildResult

	// loop is non-nil for vertices whose component is loop-aware.
	loop component.LoopAware
}

// State returns the vertex's current build state.
func (v *Vertex) State() BuildState { return v.state }

// Result returns the vertex's most recent build result, or nil if it has
// not built yet.
func (v *Vertex) Result() *BuildResult { return v.result }

// IsLoop reports whether the vertex drives a loop construct.
func (v *Vertex) IsLoop() bool { return v.loop != nil }

// requiredSlots returns the input slots that must carry at least one
// successful upstream value before the vertex may build. Loop feedback
// slots are exempt: they are empty by design on the first iteration.
func (v *Vertex) requiredSlots() []string {
	var slots []string
	for slot, bindings := range v.inputs {
		if v.loop != nil && slot == v.loop.FeedbackSlot() {
			continue
		}
		for _, b := range bindings {
			if !b.loopBack {
				slots = append(slots, slot)
				break
			}
		}
	}
	return slots
}

// BuildResult is the immutable outcome of building one vertex once.
type BuildResult struct {
	// VertexID names the vertex that produced this result.
	VertexID string

	// Seq is the result's position in the run's emission order, starting
	// at 1. Loop constructs emit several results for the same vertex,
	// each with its own sequence number.
	Seq int

	// Outputs maps produced output slot names to values. Nil when the
	// build failed or was skipped.
	Outputs map[string]any

	// Err records the build failure, if any.
	Err error

	// Skipped reports that the vertex was never built because of an
	// upstream failure.
	Skipped bool

	// Duration is the wall-clock time the build took. Zero for skips.
	Duration time.Duration
}

// Value returns the named output value, or nil when absent.
func (r BuildResult) Value(slot string) any {
	if r.Outputs == nil {
		return nil
	}
	return r.Outputs[slot]
}

// OK reports whether the build succeeded.
func (r BuildResult) OK() bool {
	return r.Err == nil && !r.Skipped
}
