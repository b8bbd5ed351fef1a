package emit

// Event is one observability record emitted during graph execution.
//
// The engine emits events for run lifecycle (run_start, run_complete,
// run_error), vertex builds (vertex_start, vertex_end, vertex_error,
// vertex_skipped), and loop transitions (loop_iterate, loop_aggregate).
// Emitters route them to logs, traces, or in-memory buffers.
type Event struct {
	// RunID identifies the run that emitted this event.
	RunID string

	// Seq is the build sequence number within the run (1-indexed). Zero
	// for run-level events.
	Seq int

	// VertexID identifies the vertex the event concerns. Empty for
	// run-level events.
	VertexID string

	// Msg is a short machine-friendly event name.
	Msg string

	// Meta carries additional structured data. Common keys:
	//   - "duration_ms": build duration in milliseconds
	//   - "error": error details
	//   - "attempt": retry attempt number
	//   - "loop_index": loop iteration index
	Meta map[string]interface{}
}

// Standard event names emitted by the engine.
const (
	RunStart      = "run_start"
	RunComplete   = "run_complete"
	RunError      = "run_error"
	VertexStart   = "vertex_start"
	VertexEnd     = "vertex_end"
	VertexError   = "vertex_error"
	VertexSkipped = "vertex_skipped"
	LoopIterate   = "loop_iterate"
	LoopAggregate = "loop_aggregate"
)
