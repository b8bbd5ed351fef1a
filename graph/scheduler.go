package graph

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/flowmesh/flowgraph-go/graph/component"
	"github.com/flowmesh/flowgraph-go/graph/emit"
)

// RunStatus is a run's lifecycle state.
type RunStatus int

const (
	// RunPending means the run is prepared but no step has executed.
	RunPending RunStatus = iota

	// RunRunning means at least one step executed and more work remains.
	RunRunning

	// RunSucceeded means the run drained its queue. Individual vertices
	// may still have errored or been skipped; their results record that.
	RunSucceeded

	// RunFailed means a run-level failure stopped the run (iteration
	// ceiling exceeded).
	RunFailed

	// RunCancelled means the caller cancelled the run before completion.
	RunCancelled
)

// String returns a readable status name.
func (s RunStatus) String() string {
	switch s {
	case RunPending:
		return "pending"
	case RunRunning:
		return "running"
	case RunSucceeded:
		return "succeeded"
	case RunFailed:
		return "failed"
	case RunCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Run is one prepared execution of a graph: the resolved vertices, the
// predecessor bookkeeping, the ready queue, and the run-scoped context
// store. Runs are single-use; prepare a new one per execution.
//
// A Run is driven either step-by-step (Step, Stream) or to completion by
// the engine's batch entry point. Both paths execute the same vertices the
// same number of times for a given definition and inputs.
//
// Run is not safe for concurrent use.
type Run struct {
	id        string
	sessionID string
	engine    *Engine
	graph     *Graph
	mgr       *runManager
	queue     *runQueue
	ctxStore  *ContextStore

	seq     int
	steps   int
	status  RunStatus
	err     error
	results []BuildResult

	// finalSnapshot is captured just before the context store is
	// released, for session persistence.
	finalSnapshot Snapshot
}

func newRun(e *Engine, g *Graph, runID, sessionID string) *Run {
	r := &Run{
		id:        runID,
		sessionID: sessionID,
		engine:    e,
		graph:     g,
		mgr:       newRunManager(g),
		queue:     newRunQueue(),
		ctxStore:  newContextStore(),
	}
	for _, id := range r.mgr.roots() {
		g.vertices[id].state = StateReady
		r.queue.push(id)
	}
	return r
}

// ID returns the run's identifier.
func (r *Run) ID() string { return r.id }

// Status returns the run's lifecycle state.
func (r *Run) Status() RunStatus { return r.status }

// Err returns the run-level error, if any. Per-vertex build failures are
// recorded on their results, not here.
func (r *Run) Err() error { return r.err }

// Results returns the build results recorded so far, in emission order.
func (r *Run) Results() []BuildResult {
	out := make([]BuildResult, len(r.results))
	copy(out, r.results)
	return out
}

// Snapshot returns the context-store snapshot captured when the run reached
// a terminal state. Pass it to WithSnapshot to seed a later run without
// going through a store. Zero until the run terminates.
func (r *Run) Snapshot() Snapshot { return r.finalSnapshot }

// Outputs collects the final results of the graph's output vertices, or of
// every vertex that built when none is flagged as an output. Non-output
// results land in Intermediates.
func (r *Run) Outputs() RunOutputs {
	return r.outputsFor(nil)
}

// outputsFor partitions the run's final results into requested outputs and
// intermediates. An empty requested list falls back to the definition's
// IsOutput flags; when none is flagged either, every built vertex counts as
// an output.
func (r *Run) outputsFor(requested []string) RunOutputs {
	out := RunOutputs{
		RunID:         r.id,
		SessionID:     r.sessionID,
		Status:        r.status,
		Outputs:       make(map[string]BuildResult),
		Intermediates: make(map[string]BuildResult),
	}

	want := make(map[string]bool, len(requested))
	for _, id := range requested {
		want[id] = true
	}
	if len(want) == 0 {
		for id, v := range r.graph.vertices {
			if v.IsOutput {
				want[id] = true
			}
		}
	}
	all := len(want) == 0

	for id, v := range r.graph.vertices {
		res := v.Result()
		if res == nil {
			continue
		}
		if all || want[id] {
			out.Outputs[id] = *res
		} else {
			out.Intermediates[id] = *res
		}
	}
	return out
}

// Step executes one scheduling step: pop the next ready vertex, build it,
// record the result, and enqueue newly runnable dependents.
//
// Returns ok=false when the queue is empty and the run is complete. A
// non-nil error means a run-level failure (cancellation, iteration
// ceiling); the run is terminal afterwards.
func (r *Run) Step(ctx context.Context) (BuildResult, bool, error) {
	if r.status == RunSucceeded {
		return BuildResult{}, false, nil
	}
	if r.status == RunFailed || r.status == RunCancelled {
		return BuildResult{}, false, r.err
	}

	if err := ctx.Err(); err != nil {
		return BuildResult{}, false, r.cancel(err)
	}

	id, ok := r.queue.pop()
	if !ok {
		r.finish()
		return BuildResult{}, false, nil
	}
	r.status = RunRunning

	if err := r.countStep(); err != nil {
		return BuildResult{}, false, err
	}

	w := r.prepStep(id)
	out, duration, buildErr := r.buildOne(ctx, w)
	if ctx.Err() != nil && r.status != RunCancelled {
		return BuildResult{}, false, r.cancel(ctx.Err())
	}

	result := r.complete(w, out, buildErr, duration)
	return result, true, nil
}

// execute drives the run to completion for the batch entry point. With
// maxConcurrent above 1, each ready layer's builds run in parallel while
// gathering and completion stay serial, preserving the same vertex multiset
// as stepwise execution.
func (r *Run) execute(ctx context.Context) error {
	if r.engine.cfg.maxConcurrent <= 1 {
		for {
			_, ok, err := r.Step(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
	}
	return r.executeLayered(ctx)
}

func (r *Run) executeLayered(ctx context.Context) error {
	sem := make(chan struct{}, r.engine.cfg.maxConcurrent)

	for {
		if err := ctx.Err(); err != nil {
			return r.cancel(err)
		}

		ids := r.queue.popAll()
		if len(ids) == 0 {
			r.finish()
			return nil
		}
		r.status = RunRunning

		// Gather serially: every predecessor of this layer completed in
		// an earlier layer, and loop state mutation must stay ordered.
		works := make([]*stepWork, len(ids))
		for i, id := range ids {
			if err := r.countStep(); err != nil {
				return err
			}
			works[i] = r.prepStep(id)
		}

		outs := make([]component.Output, len(works))
		errs := make([]error, len(works))
		durations := make([]time.Duration, len(works))

		var wg sync.WaitGroup
		for i, w := range works {
			if w.skip {
				continue
			}
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, w *stepWork) {
				defer wg.Done()
				defer func() { <-sem }()
				outs[i], durations[i], errs[i] = r.buildOne(ctx, w)
			}(i, w)
		}
		wg.Wait()

		if err := ctx.Err(); err != nil {
			return r.cancel(err)
		}

		// Complete serially in pop order so sequence numbers and queue
		// evolution match stepwise execution.
		for i, w := range works {
			r.complete(w, outs[i], errs[i], durations[i])
		}
	}
}

// countStep enforces the iteration ceiling.
func (r *Run) countStep() error {
	r.steps++
	if r.steps <= r.engine.cfg.iterationCeiling {
		return nil
	}

	err := &ExecutionError{
		Message: "iteration ceiling exceeded: graph did not converge",
	}
	return r.fail(err)
}

// stepWork is one popped vertex prepared for building.
type stepWork struct {
	v         *Vertex
	req       component.Request
	skip      bool
	loopState *LoopState

	// collectionChanged flags a loop whose input collection changed size
	// mid-iteration; the build fails instead of executing.
	collectionChanged bool
}

// prepStep gathers the vertex's inputs, resolves loop state, and decides
// whether the vertex builds or is skipped.
func (r *Run) prepStep(id string) *stepWork {
	v := r.graph.vertices[id]
	v.state = StateRunning

	for _, obs := range r.engine.cfg.observers {
		obs.BeforeBuild(r.id, id)
	}

	inputs := r.gather(v)
	w := &stepWork{v: v}

	for _, slot := range v.requiredSlots() {
		if len(inputs[slot]) == 0 {
			w.skip = true
			return w
		}
	}

	var frame *component.LoopFrame
	if v.IsLoop() {
		st := r.ctxStore.loop(v.ID)
		w.loopState = st

		// A loop that finished in a previous session run starts over.
		if st.phase == loopDone {
			*st = LoopState{}
		}

		firstVisit := st.phase == loopUninitialized
		if firstVisit {
			st.items = toList(firstValue(inputs[v.loop.CollectionSlot()]))
			if len(st.items) == 0 {
				st.phase = loopAggregating
			} else {
				st.phase = loopIterating
			}
		} else {
			current := toList(firstValue(inputs[v.loop.CollectionSlot()]))
			if len(current) != len(st.items) {
				w.collectionChanged = true
				w.req = component.Request{VertexID: v.ID, Params: v.params, Inputs: inputs}
				return w
			}
			if vals := inputs[v.loop.FeedbackSlot()]; len(vals) > 0 {
				st.accumulated = append(st.accumulated, vals[0])
			}
		}

		switch st.phase {
		case loopIterating:
			frame = &component.LoopFrame{
				Phase: component.LoopIterating,
				Index: st.index,
				Item:  st.items[st.index],
			}
		case loopAggregating:
			frame = &component.LoopFrame{
				Phase:      component.LoopAggregating,
				Aggregated: append([]any{}, st.accumulated...),
			}
		}
	}

	var report func(model string, tokensIn, tokensOut int)
	if r.engine.cfg.usage != nil {
		report = r.engine.cfg.usage.Record
	}

	w.req = component.Request{
		VertexID:     v.ID,
		Params:       v.params,
		Inputs:       inputs,
		Loop:         frame,
		Capabilities: r.engine.cfg.capabilities,
		ReportUsage:  report,
	}
	return w
}

// gather resolves the vertex's input slots from its predecessors' recorded
// results. Only successful results contribute; a binding whose source
// errored, was skipped, or did not produce the bound output adds nothing.
func (r *Run) gather(v *Vertex) map[string][]any {
	inputs := make(map[string][]any, len(v.inputs))
	for slot, bindings := range v.inputs {
		for _, b := range bindings {
			src := r.graph.vertices[b.source]
			res := src.Result()
			if res == nil || !res.OK() {
				continue
			}
			if val, ok := res.Outputs[b.output]; ok {
				inputs[slot] = append(inputs[slot], val)
			}
		}
	}
	return inputs
}

// buildOne executes the component with the vertex's timeout and retry
// policy. Skipped work returns immediately.
func (r *Run) buildOne(ctx context.Context, w *stepWork) (component.Output, time.Duration, error) {
	if w.skip {
		return component.Output{}, 0, nil
	}

	r.engine.cfg.metrics.BuildStarted(w.v.Type)
	r.engine.cfg.emitter.Emit(emit.Event{
		RunID:    r.id,
		VertexID: w.v.ID,
		Msg:      emit.VertexStart,
	})

	if w.collectionChanged {
		return component.Output{}, 0, &ExecutionError{
			VertexID: w.v.ID,
			Message:  "loop collection size changed during iteration",
		}
	}

	start := time.Now()
	attempts := w.v.policy.Retry.attempts()

	var out component.Output
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err = buildWithTimeout(ctx, w.v, w.req)
		if err == nil || !retryable(err) {
			break
		}
		if attempt == attempts {
			break
		}
		if !sleepContext(ctx, w.v.policy.Retry.computeBackoff(attempt)) {
			break
		}
	}
	return out, time.Since(start), err
}

// retryable reports whether a build error is worth re-attempting. Timeouts
// and cancellations are not.
func retryable(err error) bool {
	switch err.(type) {
	case *TimeoutError, *CancellationError:
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// sleepContext waits for d or until the context is done. Returns false when
// interrupted.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// complete records the build outcome, updates the predecessor bookkeeping,
// and enqueues newly runnable vertices.
func (r *Run) complete(w *stepWork, out component.Output, buildErr error, duration time.Duration) BuildResult {
	v := w.v
	r.seq++

	result := BuildResult{
		VertexID: v.ID,
		Seq:      r.seq,
		Duration: duration,
	}

	var runnable []string
	switch {
	case w.skip:
		result.Skipped = true
		v.state = StateSkipped
		runnable = r.mgr.markDone(v.ID, nil, true)
		r.engine.cfg.metrics.BuildCompleted(v.Type, "skipped", 0)
		r.engine.cfg.emitter.Emit(emit.Event{
			RunID: r.id, Seq: r.seq, VertexID: v.ID, Msg: emit.VertexSkipped,
		})

	case buildErr != nil:
		result.Err = wrapBuildError(v.ID, buildErr)
		v.state = StateErrored
		runnable = r.mgr.markDone(v.ID, nil, true)
		r.engine.cfg.metrics.BuildCompleted(v.Type, "error", duration)
		r.engine.cfg.emitter.Emit(emit.Event{
			RunID: r.id, Seq: r.seq, VertexID: v.ID, Msg: emit.VertexError,
			Meta: map[string]interface{}{
				"error":       buildErr.Error(),
				"duration_ms": duration.Milliseconds(),
			},
		})

	default:
		result.Outputs = out.Values
		v.state = StateDone

		produced := make(map[string]bool, len(out.Values))
		for slot := range out.Values {
			produced[slot] = true
		}

		if v.IsLoop() && out.LoopContinue {
			st := w.loopState
			st.index++
			if st.index >= len(st.items) {
				st.phase = loopAggregating
			}

			for _, sid := range r.mgr.reopenForLoop(v.ID, v.loop.DoneOutput()) {
				r.graph.vertices[sid].state = StatePending
			}
			v.state = StatePending

			r.engine.cfg.metrics.LoopIteration(v.Type)
			r.engine.cfg.emitter.Emit(emit.Event{
				RunID: r.id, Seq: r.seq, VertexID: v.ID, Msg: emit.LoopIterate,
				Meta: map[string]interface{}{"loop_index": st.index - 1},
			})
		} else if v.IsLoop() {
			w.loopState.phase = loopDone
			r.engine.cfg.emitter.Emit(emit.Event{
				RunID: r.id, Seq: r.seq, VertexID: v.ID, Msg: emit.LoopAggregate,
				Meta: map[string]interface{}{"items": len(w.loopState.accumulated)},
			})
		}

		runnable = r.mgr.markDone(v.ID, produced, false)
		r.engine.cfg.metrics.BuildCompleted(v.Type, "success", duration)
		r.engine.cfg.emitter.Emit(emit.Event{
			RunID: r.id, Seq: r.seq, VertexID: v.ID, Msg: emit.VertexEnd,
			Meta: map[string]interface{}{"duration_ms": duration.Milliseconds()},
		})
	}

	v.result = &result
	r.results = append(r.results, result)

	for _, id := range runnable {
		r.graph.vertices[id].state = StateReady
		r.queue.push(id)
	}
	r.engine.cfg.metrics.QueueDepth(r.queue.len())

	for _, obs := range r.engine.cfg.observers {
		obs.AfterBuild(r.id, result)
	}
	return result
}

// wrapBuildError normalizes a component failure into the engine's error
// taxonomy, preserving already-typed errors.
func wrapBuildError(vertexID string, err error) error {
	switch err.(type) {
	case *TimeoutError, *CancellationError, *ExecutionError:
		return err
	}
	return &ExecutionError{VertexID: vertexID, Message: "build failed", Cause: err}
}

// finish marks the run complete, snapshots the context store for session
// persistence, and releases it.
func (r *Run) finish() {
	if r.status == RunSucceeded {
		return
	}
	r.status = RunSucceeded
	r.finalSnapshot = r.ctxStore.snapshot()
	r.ctxStore.release()
	r.engine.cfg.emitter.Emit(emit.Event{
		RunID: r.id, Msg: emit.RunComplete,
		Meta: map[string]interface{}{"builds": len(r.results)},
	})
}

// cancel terminates the run on caller cancellation.
func (r *Run) cancel(cause error) error {
	if r.status == RunCancelled {
		return r.err
	}
	r.status = RunCancelled
	r.err = &CancellationError{Cause: cause}
	r.finalSnapshot = r.ctxStore.snapshot()
	r.ctxStore.release()
	r.engine.cfg.emitter.Emit(emit.Event{
		RunID: r.id, Msg: emit.RunError,
		Meta: map[string]interface{}{"error": r.err.Error()},
	})
	return r.err
}

// fail terminates the run on a run-level failure.
func (r *Run) fail(cause error) error {
	r.status = RunFailed
	r.err = cause
	r.finalSnapshot = r.ctxStore.snapshot()
	r.ctxStore.release()
	r.engine.cfg.emitter.Emit(emit.Event{
		RunID: r.id, Msg: emit.RunError,
		Meta: map[string]interface{}{"error": cause.Error()},
	})
	return r.err
}

// firstValue returns the first of vals, or nil.
func firstValue(vals []any) any {
	if len(vals) == 0 {
		return nil
	}
	return vals[0]
}

// toList normalizes a collection input: slices pass through, nil is empty,
// anything else iterates as a single item.
func toList(v any) []any {
	switch items := v.(type) {
	case nil:
		return nil
	case []any:
		return items
	case []string:
		out := make([]any, len(items))
		for i, s := range items {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}
