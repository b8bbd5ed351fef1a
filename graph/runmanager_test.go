package graph

import (
	"testing"
	"time"

	"github.com/flowmesh/flowgraph-go/graph/component"
)

func testGraph(t *testing.T, def Definition) *Graph {
	t.Helper()
	g, err := buildGraph(def, component.Builtin(), 0)
	if err != nil {
		t.Fatalf("buildGraph failed: %v", err)
	}
	return g
}

func TestRootsAreSorted(t *testing.T) {
	g := testGraph(t, Definition{
		Nodes: []NodeData{
			{ID: "z", Type: "text_input"},
			{ID: "a", Type: "text_input"},
			{ID: "m", Type: "text_output"},
		},
		Edges: []EdgeData{
			{Source: "z", Target: "m"},
			{Source: "a", Target: "m"},
		},
	})
	m := newRunManager(g)

	roots := m.roots()
	if len(roots) != 2 || roots[0] != "a" || roots[1] != "z" {
		t.Errorf("roots = %v, want [a z]", roots)
	}
	if m.pendingCount("m") != 2 {
		t.Errorf("m pending = %d, want 2", m.pendingCount("m"))
	}
}

func TestMarkDoneIsOutputSlotAware(t *testing.T) {
	g := testGraph(t, Definition{
		Nodes: []NodeData{
			{ID: "src", Type: "text_input", Outputs: []string{"left", "right"}},
			{ID: "l", Type: "text_output"},
			{ID: "r", Type: "text_output"},
		},
		Edges: []EdgeData{
			{Source: "src", Target: "l", SourceOutput: "left"},
			{Source: "src", Target: "r", SourceOutput: "right"},
		},
	})
	m := newRunManager(g)

	runnable := m.markDone("src", map[string]bool{"left": true}, false)
	if len(runnable) != 1 || runnable[0] != "l" {
		t.Errorf("runnable = %v, want [l]", runnable)
	}
	if m.pendingCount("r") != 1 {
		t.Error("r should stay pending when its bound output was not produced")
	}
}

func TestMarkDoneAllProducedReleasesEveryDependent(t *testing.T) {
	g := testGraph(t, Definition{
		Nodes: []NodeData{
			{ID: "src", Type: "text_input", Outputs: []string{"left", "right"}},
			{ID: "l", Type: "text_output"},
			{ID: "r", Type: "text_output"},
		},
		Edges: []EdgeData{
			{Source: "src", Target: "l", SourceOutput: "left"},
			{Source: "src", Target: "r", SourceOutput: "right"},
		},
	})
	m := newRunManager(g)

	// Errored and skipped vertices release all dependents so the skip
	// cascade can propagate.
	runnable := m.markDone("src", nil, true)
	if len(runnable) != 2 || runnable[0] != "l" || runnable[1] != "r" {
		t.Errorf("runnable = %v, want [l r]", runnable)
	}
}

func loopManagerGraph(t *testing.T) *Graph {
	return testGraph(t, Definition{
		Nodes: []NodeData{
			{ID: "src", Type: "text_input"},
			{ID: "loop", Type: "loop"},
			{ID: "work", Type: "text_output"},
			{ID: "sink", Type: "text_output"},
		},
		Edges: []EdgeData{
			{Source: "src", Target: "loop", TargetInput: "data"},
			{Source: "loop", Target: "work", SourceOutput: "item"},
			{Source: "work", Target: "loop", TargetInput: "feedback", LoopBack: true},
			{Source: "loop", Target: "sink", SourceOutput: "done"},
		},
	})
}

func TestLoopBackEdgesDoNotBlockInitialReadiness(t *testing.T) {
	m := newRunManager(loopManagerGraph(t))

	roots := m.roots()
	if len(roots) != 1 || roots[0] != "src" {
		t.Errorf("roots = %v, want [src]", roots)
	}
	// The loop waits only on its collection input; the loop-back edge adds
	// no initial predecessor.
	if m.pendingCount("loop") != 1 {
		t.Errorf("loop pending = %d, want 1", m.pendingCount("loop"))
	}
}

func TestReopenForLoopRearmsSpanAndFeedback(t *testing.T) {
	m := newRunManager(loopManagerGraph(t))

	m.markDone("src", map[string]bool{"text": true}, false)
	m.markDone("loop", map[string]bool{"item": true}, false)
	m.markDone("work", map[string]bool{"text": true}, false)

	span := m.reopenForLoop("loop", "done")
	if len(span) != 1 || span[0] != "work" {
		t.Fatalf("span = %v, want [work]", span)
	}

	// work waits on the loop's next item; the loop waits on work's feedback.
	if m.pendingCount("work") != 1 {
		t.Errorf("work pending = %d, want 1", m.pendingCount("work"))
	}
	if m.pendingCount("loop") != 1 {
		t.Errorf("loop pending = %d, want 1", m.pendingCount("loop"))
	}
	// sink is gated on the done output, which only the aggregation build
	// produces, so it stays pending through every iteration.
	if m.pendingCount("sink") != 1 {
		t.Errorf("sink pending = %d, want 1", m.pendingCount("sink"))
	}
}

func TestFeedbackProducerReleasesLoop(t *testing.T) {
	m := newRunManager(loopManagerGraph(t))

	m.markDone("src", map[string]bool{"text": true}, false)
	m.markDone("loop", map[string]bool{"item": true}, false)
	m.markDone("work", map[string]bool{"text": true}, false)
	m.reopenForLoop("loop", "done")

	runnable := m.markDone("loop", map[string]bool{"item": true}, false)
	if len(runnable) != 1 || runnable[0] != "work" {
		t.Fatalf("runnable after reopened loop build = %v, want [work]", runnable)
	}

	runnable = m.markDone("work", map[string]bool{"text": true}, false)
	if len(runnable) != 1 || runnable[0] != "loop" {
		t.Fatalf("runnable after feedback = %v, want [loop]", runnable)
	}
}

func TestRunQueueDeduplicates(t *testing.T) {
	q := newRunQueue()
	q.push("a")
	q.push("b")
	q.push("a")

	if q.len() != 2 {
		t.Fatalf("len = %d, want 2", q.len())
	}
	if id, ok := q.pop(); !ok || id != "a" {
		t.Errorf("pop = %s, want a", id)
	}

	// Popped ids may be enqueued again.
	q.push("a")
	ids := q.popAll()
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "a" {
		t.Errorf("popAll = %v, want [b a]", ids)
	}
	if _, ok := q.pop(); ok {
		t.Error("queue should be empty after popAll")
	}
}

func TestRetryPolicyBackoff(t *testing.T) {
	var nilPolicy *RetryPolicy
	if nilPolicy.attempts() != 1 {
		t.Errorf("nil policy attempts = %d, want 1", nilPolicy.attempts())
	}

	p := &RetryPolicy{MaxAttempts: 5, BaseDelay: 10 * time.Millisecond, MaxDelay: 40 * time.Millisecond}
	if p.attempts() != 5 {
		t.Errorf("attempts = %d, want 5", p.attempts())
	}
	for attempt := 1; attempt <= 6; attempt++ {
		d := p.computeBackoff(attempt)
		if d < 0 || d > p.MaxDelay {
			t.Errorf("backoff(%d) = %v, outside [0, %v]", attempt, d, p.MaxDelay)
		}
	}
}

func TestContextStoreSnapshotRoundtrip(t *testing.T) {
	cs := newContextStore()
	st := cs.loop("l1")
	st.phase = loopIterating
	st.items = []any{"a", "b"}
	st.index = 1
	st.accumulated = []any{"A"}
	cs.Set("k", "v")

	data, err := encodeSnapshot(cs.snapshot())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	restored := newContextStore()
	restored.restore(snap)

	got := restored.loop("l1")
	if got.phase != loopIterating || got.Index() != 1 {
		t.Errorf("restored loop = phase %v index %d", got.phase, got.Index())
	}
	if len(got.items) != 2 || got.items[0] != "a" {
		t.Errorf("restored items = %v", got.items)
	}
	if acc := got.Accumulated(); len(acc) != 1 || acc[0] != "A" {
		t.Errorf("restored accumulated = %v", acc)
	}
	if v, ok := restored.Get("k"); !ok || v != "v" {
		t.Errorf("restored value = %v, %v", v, ok)
	}
}
