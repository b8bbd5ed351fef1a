package graph

import "sync"

// loopPhase tracks a loop construct's position in its lifecycle inside the
// context store. It is distinct from the component-facing LoopPhase: the
// store also needs to know about the uninitialized and finished states.
type loopPhase int

const (
	loopUninitialized loopPhase = iota
	loopIterating
	loopAggregating
	loopDone
)

// LoopState is the engine-owned iteration state for one loop vertex within
// one run: the collection captured on first visit, the cursor into it, and
// the values accumulated from the loop-back edge.
type LoopState struct {
	phase       loopPhase
	items       []any
	index       int
	accumulated []any
}

// Index returns the zero-based position of the next item to emit.
func (s *LoopState) Index() int { return s.index }

// Accumulated returns the feedback values gathered so far.
func (s *LoopState) Accumulated() []any { return s.accumulated }

// ContextStore holds run-scoped state keyed by vertex id: loop iteration
// state today, with room for arbitrary per-run values. It is created at
// Prepare, optionally seeded from a persisted session snapshot, and released
// when the run reaches a terminal state.
type ContextStore struct {
	mu     sync.Mutex
	loops  map[string]*LoopState
	values map[string]any
}

func newContextStore() *ContextStore {
	return &ContextStore{
		loops:  make(map[string]*LoopState),
		values: make(map[string]any),
	}
}

// loop returns the state for the given loop vertex, creating it on first
// access.
func (c *ContextStore) loop(id string) *LoopState {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.loops[id]
	if !ok {
		s = &LoopState{}
		c.loops[id] = s
	}
	return s
}

// Set stores an arbitrary run-scoped value under the given key.
func (c *ContextStore) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Get returns the value stored under key and whether it exists.
func (c *ContextStore) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

// release drops all run-scoped state. Called exactly once when the run
// terminates (completion, failure, or abandonment).
func (c *ContextStore) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loops = make(map[string]*LoopState)
	c.values = make(map[string]any)
}
