package graph

import (
	"sort"
	"sync"
)

// Recorder is an Observer that captures the executed vertex sequence of a
// run. Useful for auditing runs and for asserting that two entry points
// executed the same work.
type Recorder struct {
	mu      sync.Mutex
	results []BuildResult
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// BeforeBuild implements Observer.
func (r *Recorder) BeforeBuild(runID, vertexID string) {}

// AfterBuild implements Observer.
func (r *Recorder) AfterBuild(runID string, result BuildResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

// Results returns a copy of the recorded build results in emission order.
func (r *Recorder) Results() []BuildResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]BuildResult, len(r.results))
	copy(out, r.results)
	return out
}

// VertexCounts returns how many times each vertex built (skips included).
func (r *Recorder) VertexCounts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int)
	for _, res := range r.results {
		counts[res.VertexID]++
	}
	return counts
}

// Vertices returns the distinct executed vertex ids in sorted order.
func (r *Recorder) Vertices() []string {
	counts := r.VertexCounts()
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reset clears the recorded history.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = nil
}
