package emit

// Emitter receives and processes observability events from graph execution.
//
// Emitters enable pluggable observability backends: logging, distributed
// tracing, in-memory capture for tests. Implementations should be:
//   - Non-blocking: avoid slowing down the scheduler
//   - Thread-safe: builds may emit concurrently
//   - Resilient: never panic; log failures internally
type Emitter interface {
	// Emit sends one event to the configured backend. Implementations
	// must not block execution; buffer, drop, or send asynchronously when
	// the backend is slow.
	Emit(event Event)
}
