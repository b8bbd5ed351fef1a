package graph

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the serializable form of a run's context store. Batch runs
// bound to a session save a snapshot after completing and seed the next
// run's context store from it, so loop accumulations and arbitrary
// run-scoped values survive across runs and process restarts.
//
// All snapshot values must be JSON-serializable.
type Snapshot struct {
	// Loops holds the loop construct states keyed by loop vertex id.
	Loops map[string]LoopSnapshot `json:"loops,omitempty"`

	// Values holds arbitrary run-scoped values.
	Values map[string]any `json:"values,omitempty"`
}

// LoopSnapshot is the serializable form of one loop's state.
type LoopSnapshot struct {
	Phase       int   `json:"phase"`
	Index       int   `json:"index"`
	Items       []any `json:"items,omitempty"`
	Accumulated []any `json:"accumulated,omitempty"`
}

// snapshot exports the store's current contents.
func (c *ContextStore) snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Loops:  make(map[string]LoopSnapshot, len(c.loops)),
		Values: make(map[string]any, len(c.values)),
	}
	for id, s := range c.loops {
		snap.Loops[id] = LoopSnapshot{
			Phase:       int(s.phase),
			Index:       s.index,
			Items:       append([]any{}, s.items...),
			Accumulated: append([]any{}, s.accumulated...),
		}
	}
	for k, v := range c.values {
		snap.Values[k] = v
	}
	return snap
}

// restore seeds the store from a snapshot, replacing current contents.
func (c *ContextStore) restore(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loops = make(map[string]*LoopState, len(snap.Loops))
	for id, s := range snap.Loops {
		c.loops[id] = &LoopState{
			phase:       loopPhase(s.Phase),
			index:       s.Index,
			items:       append([]any{}, s.Items...),
			accumulated: append([]any{}, s.Accumulated...),
		}
	}
	c.values = make(map[string]any, len(snap.Values))
	for k, v := range snap.Values {
		c.values[k] = v
	}
}

// encodeSnapshot serializes a snapshot for the store.
func encodeSnapshot(snap Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session snapshot: %w", err)
	}
	return data, nil
}

// decodeSnapshot deserializes a stored snapshot.
func decodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode session snapshot: %w", err)
	}
	return snap, nil
}
