package graph

// runQueue is the FIFO of vertex ids ready to build. The scheduler pops one
// id per step and pushes newly runnable dependents after each completion, so
// the queue's order is the run's execution order.
//
// runQueue is not safe for concurrent use; the scheduler serializes all
// access through its bookkeeping path.
type runQueue struct {
	items []string

	// queued guards against double-enqueueing a vertex that becomes
	// runnable through two completing predecessors.
	queued map[string]bool
}

func newRunQueue() *runQueue {
	return &runQueue{queued: make(map[string]bool)}
}

// push appends the id unless it is already queued.
func (q *runQueue) push(id string) {
	if q.queued[id] {
		return
	}
	q.queued[id] = true
	q.items = append(q.items, id)
}

// pop removes and returns the oldest id. ok is false when the queue is
// empty, which the scheduler interprets as run completion.
func (q *runQueue) pop() (id string, ok bool) {
	if len(q.items) == 0 {
		return "", false
	}
	id = q.items[0]
	q.items = q.items[1:]
	delete(q.queued, id)
	return id, true
}

// popAll drains the queue, returning every queued id in order. Used by the
// batch entry point to dispatch a whole ready layer concurrently.
func (q *runQueue) popAll() []string {
	ids := q.items
	q.items = nil
	q.queued = make(map[string]bool)
	return ids
}

// len returns the number of queued ids.
func (q *runQueue) len() int { return len(q.items) }
