package graph

// Observer receives scheduling callbacks around every vertex build. Hooks
// run synchronously on the scheduler's bookkeeping path, so implementations
// must be fast and must not call back into the run.
//
// Use observers for cross-cutting concerns that need per-build visibility
// without touching component code: recording, tracing adapters, progress
// reporting.
type Observer interface {
	// BeforeBuild fires after a vertex is popped from the ready queue,
	// immediately before its component builds.
	BeforeBuild(runID, vertexID string)

	// AfterBuild fires once the vertex's result is recorded, including
	// skips and failures.
	AfterBuild(runID string, result BuildResult)
}

// ObserverFuncs adapts plain functions to the Observer interface. Nil
// fields are no-ops.
type ObserverFuncs struct {
	OnBeforeBuild func(runID, vertexID string)
	OnAfterBuild  func(runID string, result BuildResult)
}

// BeforeBuild implements Observer.
func (o ObserverFuncs) BeforeBuild(runID, vertexID string) {
	if o.OnBeforeBuild != nil {
		o.OnBeforeBuild(runID, vertexID)
	}
}

// AfterBuild implements Observer.
func (o ObserverFuncs) AfterBuild(runID string, result BuildResult) {
	if o.OnAfterBuild != nil {
		o.OnAfterBuild(runID, result)
	}
}
