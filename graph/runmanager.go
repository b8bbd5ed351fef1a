package graph

import "sort"

// runManager tracks which predecessors each vertex is still waiting on and
// computes the newly runnable set after every completion. Regular edges
// drive readiness; loop-back edges only come into play when a loop construct
// reopens its downstream span.
//
// runManager is not safe for concurrent use; the scheduler serializes all
// bookkeeping.
type runManager struct {
	// preds is the mutable pending-predecessor set per vertex. A vertex is
	// runnable when its set is empty.
	preds map[string]map[string]bool

	// basePreds is the immutable regular-edge predecessor set per vertex,
	// used to restore intra-span predecessors when a loop reopens.
	basePreds map[string]map[string]bool

	// deps lists each vertex's regular-edge dependents.
	deps map[string][]string

	// edgesOut groups regular edges by source vertex.
	edgesOut map[string][]Edge

	// loopSources maps a loop vertex id to the source ids of its incoming
	// loop-back edges.
	loopSources map[string][]string

	// loopOut groups loop-back edges by source vertex, so a completing
	// feedback producer can release the loop vertex it feeds.
	loopOut map[string][]Edge
}

func newRunManager(g *Graph) *runManager {
	m := &runManager{
		preds:       make(map[string]map[string]bool, len(g.vertices)),
		basePreds:   make(map[string]map[string]bool, len(g.vertices)),
		deps:        make(map[string][]string, len(g.vertices)),
		edgesOut:    make(map[string][]Edge),
		loopSources: make(map[string][]string),
		loopOut:     make(map[string][]Edge),
	}

	for id := range g.vertices {
		m.preds[id] = make(map[string]bool)
		m.basePreds[id] = make(map[string]bool)
	}

	for _, e := range g.edges {
		if e.IsLoopBack() {
			m.loopSources[e.Target] = append(m.loopSources[e.Target], e.Source)
			m.loopOut[e.Source] = append(m.loopOut[e.Source], e)
			continue
		}
		if !m.basePreds[e.Target][e.Source] {
			m.basePreds[e.Target][e.Source] = true
			m.preds[e.Target][e.Source] = true
			m.deps[e.Source] = append(m.deps[e.Source], e.Target)
		}
		m.edgesOut[e.Source] = append(m.edgesOut[e.Source], e)
	}

	return m
}

// roots returns the vertices with no pending predecessors, sorted by id for
// deterministic seeding of the run queue.
func (m *runManager) roots() []string {
	var ids []string
	for id, p := range m.preds {
		if len(p) == 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// markDone records that the vertex finished and returns the dependents that
// became runnable, sorted by id.
//
// produced names the output slots the build actually emitted; a dependent's
// pending predecessor is only cleared when at least one connecting edge
// carries a produced slot. allProduced short-circuits that check, used for
// failed and skipped vertices so the skip cascade can propagate downstream.
func (m *runManager) markDone(id string, produced map[string]bool, allProduced bool) []string {
	var runnable []string
	for _, d := range m.deps[id] {
		if !m.preds[d][id] {
			continue
		}

		satisfied := allProduced
		if !satisfied {
			for _, e := range m.edgesOut[id] {
				if e.Target == d && produced[e.SourceOutput] {
					satisfied = true
					break
				}
			}
		}
		if !satisfied {
			continue
		}

		delete(m.preds[d], id)
		if len(m.preds[d]) == 0 {
			runnable = append(runnable, d)
		}
	}

	// A completing feedback producer releases the loop vertex waiting on
	// its loop-back edge.
	for _, e := range m.loopOut[id] {
		if !m.preds[e.Target][id] {
			continue
		}
		if !allProduced && !produced[e.SourceOutput] {
			continue
		}
		delete(m.preds[e.Target], id)
		if len(m.preds[e.Target]) == 0 {
			runnable = append(runnable, e.Target)
		}
	}

	sort.Strings(runnable)
	return runnable
}

// span returns the vertices downstream of the loop vertex through its
// per-iteration output: everything regular-reachable from loopID excluding
// paths that start at the loop's done output.
func (m *runManager) span(loopID, doneOutput string) map[string]bool {
	visited := make(map[string]bool)
	var stack []string

	for _, e := range m.edgesOut[loopID] {
		if e.SourceOutput == doneOutput {
			continue
		}
		if !visited[e.Target] {
			visited[e.Target] = true
			stack = append(stack, e.Target)
		}
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range m.edgesOut[id] {
			if !visited[e.Target] && e.Target != loopID {
				visited[e.Target] = true
				stack = append(stack, e.Target)
			}
		}
	}
	return visited
}

// reopenForLoop rearms the loop's downstream span for another iteration and
// returns the span's vertex ids.
//
// Each span vertex gets back the pending predecessors that live inside the
// span (or are the loop vertex itself); predecessors outside the span stay
// satisfied from their earlier build. The loop vertex itself becomes pending
// on its loop-back sources, so it only re-runs once the feedback arrives.
func (m *runManager) reopenForLoop(loopID, doneOutput string) []string {
	span := m.span(loopID, doneOutput)

	for id := range span {
		for p := range m.basePreds[id] {
			if span[p] || p == loopID {
				m.preds[id][p] = true
			}
		}
	}

	for _, src := range m.loopSources[loopID] {
		if span[src] {
			m.preds[loopID][src] = true
		}
	}

	ids := make([]string, 0, len(span))
	for id := range span {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// pendingCount returns how many predecessors the vertex still waits on.
func (m *runManager) pendingCount(id string) int {
	return len(m.preds[id])
}
