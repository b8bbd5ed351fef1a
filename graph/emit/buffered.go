package emit

import "sync"

// BufferedEmitter implements Emitter by storing events in memory, organized
// by runID.
//
// Intended for development, tests, and post-run analysis. All events are
// retained until cleared; long-running deployments should prefer a
// streaming backend.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event
}

// HistoryFilter selects events from a run's history. All set fields must
// match (AND logic); zero-valued fields are ignored.
type HistoryFilter struct {
	// VertexID filters by vertex.
	VertexID string

	// Msg filters by event name (e.g. VertexError).
	Msg string

	// MinSeq and MaxSeq bound the sequence range. Nil means unbounded.
	MinSeq *int
	MaxSeq *int
}

// NewBufferedEmitter creates an empty BufferedEmitter. Safe for concurrent
// use.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit stores the event under its runID.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.RunID] = append(b.events[event.RunID], event)
}

// History returns all events for the run in emission order. Returns an
// empty slice for unknown runs.
func (b *BufferedEmitter) History(runID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[runID]
	result := make([]Event, len(events))
	copy(result, events)
	return result
}

// HistoryWithFilter returns the run's events matching the filter, in
// emission order.
func (b *BufferedEmitter) HistoryWithFilter(runID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := []Event{}
	for _, event := range b.events[runID] {
		if matchesFilter(event, filter) {
			result = append(result, event)
		}
	}
	return result
}

func matchesFilter(event Event, filter HistoryFilter) bool {
	if filter.VertexID != "" && event.VertexID != filter.VertexID {
		return false
	}
	if filter.Msg != "" && event.Msg != filter.Msg {
		return false
	}
	if filter.MinSeq != nil && event.Seq < *filter.MinSeq {
		return false
	}
	if filter.MaxSeq != nil && event.Seq > *filter.MaxSeq {
		return false
	}
	return true
}

// Clear removes stored events for the given run, or all events when runID
// is empty.
func (b *BufferedEmitter) Clear(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if runID == "" {
		b.events = make(map[string][]Event)
	} else {
		delete(b.events, runID)
	}
}
