package graph_test

import (
	"context"
	"testing"

	"github.com/flowmesh/flowgraph-go/graph"
	"github.com/flowmesh/flowgraph-go/graph/component"
	"github.com/flowmesh/flowgraph-go/graph/emit"
)

func TestUsageTrackerAccumulatesModelTokens(t *testing.T) {
	catalog := component.Builtin()
	err := catalog.RegisterModel("mock_model", &component.MockChatModel{
		Responses: []component.ChatOut{{Text: "hi there", TokensIn: 10, TokensOut: 4}},
	})
	if err != nil {
		t.Fatalf("register model failed: %v", err)
	}

	usage := graph.NewUsageTracker()
	engine, err := graph.New(catalog, graph.WithUsageTracker(usage))
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	def := graph.Definition{
		Nodes: []graph.NodeData{
			{ID: "in", Type: "text_input"},
			{ID: "llm", Type: "mock_model", Params: map[string]any{"model_name": "mock-1"}},
			{ID: "out", Type: "text_output", IsOutput: true},
		},
		Edges: []graph.EdgeData{
			{Source: "in", Target: "llm", TargetInput: "prompt"},
			{Source: "llm", Target: "out"},
		},
	}

	outs, err := engine.Run(context.Background(), def, graph.RunRequest{
		Inputs: []graph.InputValue{{Input: "hello"}},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got := outs[0].Outputs["out"].Value("text"); got != "hi there" {
		t.Errorf("output = %v, want hi there", got)
	}

	u := usage.Usage()["mock-1"]
	if u.Calls != 1 || u.TokensIn != 10 || u.TokensOut != 4 {
		t.Errorf("usage = %+v, want 1 call, 10 in, 4 out", u)
	}
	if usage.TotalTokens() != 14 {
		t.Errorf("total tokens = %d, want 14", usage.TotalTokens())
	}
}

func TestEmittedEventLifecycle(t *testing.T) {
	buf := emit.NewBufferedEmitter()
	catalog := funcCatalog(t, map[string]component.Func{
		"a": appendText("a"),
		"b": appendText("b"),
	})
	engine, err := graph.New(catalog, graph.WithEmitter(buf))
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	def := graph.Definition{
		Nodes: []graph.NodeData{
			{ID: "a", Type: "a"},
			{ID: "b", Type: "b"},
		},
		Edges: []graph.EdgeData{{Source: "a", Target: "b"}},
	}

	ctx := context.Background()
	run, err := engine.Prepare(ctx, def)
	if err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	drain(t, ctx, run)

	events := buf.History(run.ID())
	if len(events) == 0 {
		t.Fatal("no events emitted")
	}
	if events[0].Msg != emit.RunStart {
		t.Errorf("first event = %s, want run_start", events[0].Msg)
	}
	if events[len(events)-1].Msg != emit.RunComplete {
		t.Errorf("last event = %s, want run_complete", events[len(events)-1].Msg)
	}

	starts := buf.HistoryWithFilter(run.ID(), emit.HistoryFilter{Msg: emit.VertexStart})
	ends := buf.HistoryWithFilter(run.ID(), emit.HistoryFilter{Msg: emit.VertexEnd})
	if len(starts) != 2 || len(ends) != 2 {
		t.Errorf("vertex events = %d starts, %d ends, want 2/2", len(starts), len(ends))
	}
}

func TestLoopEventsEmitted(t *testing.T) {
	buf := emit.NewBufferedEmitter()
	def, comps := loopDefinition()
	engine, err := graph.New(loopCatalog(t, comps), graph.WithEmitter(buf))
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	ctx := context.Background()
	run, err := engine.Prepare(ctx, def)
	if err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	drain(t, ctx, run)

	iterations := buf.HistoryWithFilter(run.ID(), emit.HistoryFilter{Msg: emit.LoopIterate})
	if len(iterations) != 3 {
		t.Errorf("loop_iterate events = %d, want 3", len(iterations))
	}
	aggregates := buf.HistoryWithFilter(run.ID(), emit.HistoryFilter{Msg: emit.LoopAggregate})
	if len(aggregates) != 1 {
		t.Errorf("loop_aggregate events = %d, want 1", len(aggregates))
	}
	if iterations[0].Meta["loop_index"] != 0 {
		t.Errorf("first loop_index = %v, want 0", iterations[0].Meta["loop_index"])
	}
}

func TestRecorder(t *testing.T) {
	rec := graph.NewRecorder()
	rec.AfterBuild("r", graph.BuildResult{VertexID: "b", Seq: 1})
	rec.AfterBuild("r", graph.BuildResult{VertexID: "a", Seq: 2})
	rec.AfterBuild("r", graph.BuildResult{VertexID: "b", Seq: 3})

	counts := rec.VertexCounts()
	if counts["b"] != 2 || counts["a"] != 1 {
		t.Errorf("counts = %v", counts)
	}
	ids := rec.Vertices()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("vertices = %v, want [a b]", ids)
	}

	rec.Reset()
	if len(rec.Results()) != 0 {
		t.Error("reset did not clear results")
	}
}
