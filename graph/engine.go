package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/flowmesh/flowgraph-go/graph/component"
	"github.com/flowmesh/flowgraph-go/graph/emit"
	"github.com/flowmesh/flowgraph-go/graph/store"
)

// Engine executes component graphs.
//
// An Engine is cheap, immutable after construction, and safe for concurrent
// use; all mutable execution state lives in the Run values it prepares. The
// same definition can be prepared any number of times, each preparation
// yielding an independent run.
//
// Example:
//
//	catalog := component.Builtin()
//	engine, err := graph.New(catalog,
//	    graph.WithEmitter(emit.NewLogEmitter(os.Stdout, false)),
//	    graph.WithMaxConcurrent(4),
//	)
type Engine struct {
	catalog *component.Catalog
	cfg     engineConfig
}

// New creates an Engine over the given component catalog.
func New(catalog *component.Catalog, opts ...Option) (*Engine, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("invalid engine option: %w", err)
		}
	}

	return &Engine{catalog: catalog, cfg: cfg}, nil
}

// InputValue is one caller-supplied run input.
type InputValue struct {
	// Input is the value delivered to input vertices, typically the user's
	// message text.
	Input string

	// Components optionally targets specific vertex ids. When empty, the
	// input goes to every vertex whose component accepts run input.
	Components []string
}

// RunRequest drives the batch entry point: one full run per input value,
// all bound to the same session.
type RunRequest struct {
	// Inputs lists the input values to run. An empty list still executes
	// one run with no inputs.
	Inputs []InputValue

	// Outputs names the vertex ids whose results the caller wants. When
	// empty, vertices flagged IsOutput in the definition are used; when
	// none is flagged either, every built vertex counts as an output.
	Outputs []string

	// SessionID optionally binds the runs to a persisted session.
	SessionID string
}

// RunOutputs collects the results of one run, partitioned into the outputs
// the caller requested and everything else that built.
type RunOutputs struct {
	// RunID identifies the run.
	RunID string

	// SessionID is the session the run was bound to, if any.
	SessionID string

	// Status is the run's terminal status. Partial outputs are still
	// reported when the run failed or was cancelled.
	Status RunStatus

	// Outputs maps requested vertex ids to their final build results.
	Outputs map[string]BuildResult

	// Intermediates holds the final results of every other vertex that
	// built.
	Intermediates map[string]BuildResult
}

// Prepare resolves and validates the definition and returns a fresh Run
// seeded with the graph's root vertices. Preparation is idempotent:
// preparing the same definition again yields an independent run with
// identical initial state.
//
// The context is used for loading the session snapshot when the run is
// bound to a session and the engine has a store. A snapshot supplied via
// WithSnapshot seeds the context store directly instead.
func (e *Engine) Prepare(ctx context.Context, def Definition, opts ...RunOption) (*Run, error) {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.runID == "" {
		cfg.runID = uuid.NewString()
	}

	g, err := buildGraph(def, e.catalog, e.cfg.defaultTimeout)
	if err != nil {
		return nil, err
	}

	for _, iv := range cfg.inputs {
		applyInput(g, iv)
	}

	run := newRun(e, g, cfg.runID, cfg.sessionID)

	if cfg.snapshot != nil {
		run.ctxStore.restore(*cfg.snapshot)
	} else if cfg.sessionID != "" && e.cfg.store != nil {
		data, err := e.cfg.store.LoadSession(ctx, cfg.sessionID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// Fresh session.
		case err != nil:
			return nil, fmt.Errorf("failed to load session %s: %w", cfg.sessionID, err)
		default:
			snap, err := decodeSnapshot(data)
			if err != nil {
				return nil, err
			}
			run.ctxStore.restore(snap)
		}
	}

	e.cfg.emitter.Emit(emit.Event{
		RunID: run.id,
		Msg:   emit.RunStart,
		Meta:  map[string]interface{}{"vertices": g.Size()},
	})

	return run, nil
}

// Run is the batch entry point: it executes one full run per input value
// and returns their outputs in input order.
//
// Batch runs execute the same vertex multiset as the streaming entry point
// would for the same definition and inputs; with WithMaxConcurrent above 1,
// independent vertices of one ready layer build in parallel without
// changing which vertices build or how often.
//
// When the engine has a store and the request names a session, each run
// loads the session snapshot before executing and saves the updated
// snapshot plus the run's build history after.
func (e *Engine) Run(ctx context.Context, def Definition, req RunRequest) ([]RunOutputs, error) {
	batches := req.Inputs
	if len(batches) == 0 {
		batches = []InputValue{{}}
	}

	outputs := make([]RunOutputs, 0, len(batches))
	for _, iv := range batches {
		run, err := e.Prepare(ctx, def,
			WithSessionID(req.SessionID),
			WithInput(iv),
		)
		if err != nil {
			return outputs, err
		}

		execErr := run.execute(ctx)
		out := run.outputsFor(req.Outputs)
		if execErr != nil {
			// Surface the partial outputs alongside the failure.
			outputs = append(outputs, out)
			return outputs, execErr
		}
		if err := e.persistRun(ctx, run); err != nil {
			return outputs, err
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// persistRun writes the run's build history and session snapshot to the
// configured store.
func (e *Engine) persistRun(ctx context.Context, run *Run) error {
	if e.cfg.store == nil {
		return nil
	}

	for _, result := range run.results {
		data, err := encodeResult(result)
		if err != nil {
			return err
		}
		if err := e.cfg.store.SaveBuild(ctx, run.id, result.Seq, result.VertexID, data); err != nil {
			return err
		}
	}

	if run.sessionID != "" {
		data, err := encodeSnapshot(run.finalSnapshot)
		if err != nil {
			return err
		}
		if err := e.cfg.store.SaveSession(ctx, run.sessionID, data); err != nil {
			return fmt.Errorf("failed to save session %s: %w", run.sessionID, err)
		}
	}
	return nil
}

// applyInput writes the input value into the targeted vertices' params.
func applyInput(g *Graph, iv InputValue) {
	if iv.Input == "" && len(iv.Components) == 0 {
		return
	}

	targeted := make(map[string]bool, len(iv.Components))
	for _, id := range iv.Components {
		targeted[id] = true
	}

	for id, v := range g.vertices {
		ri, isInput := v.comp.(component.RunInput)
		if len(targeted) > 0 {
			if !targeted[id] {
				continue
			}
		} else if !isInput {
			continue
		}

		key := "input_value"
		if isInput {
			key = ri.RunInputParam()
		}
		v.params[key] = iv.Input
	}
}

// encodeResult serializes a build result for the store. Errors are recorded
// as strings.
func encodeResult(r BuildResult) ([]byte, error) {
	rec := struct {
		VertexID   string         `json:"vertex_id"`
		Seq        int            `json:"seq"`
		Outputs    map[string]any `json:"outputs,omitempty"`
		Error      string         `json:"error,omitempty"`
		Skipped    bool           `json:"skipped,omitempty"`
		DurationMS int64          `json:"duration_ms"`
	}{
		VertexID:   r.VertexID,
		Seq:        r.Seq,
		Outputs:    r.Outputs,
		Skipped:    r.Skipped,
		DurationMS: r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode build result for %s: %w", r.VertexID, err)
	}
	return data, nil
}
