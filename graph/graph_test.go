package graph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/flowmesh/flowgraph-go/graph"
	"github.com/flowmesh/flowgraph-go/graph/component"
)

func TestDefinitionValidation(t *testing.T) {
	catalog := component.Builtin()
	engine, err := graph.New(catalog)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	cases := []struct {
		name string
		def  graph.Definition
	}{
		{
			name: "no nodes",
			def:  graph.Definition{},
		},
		{
			name: "empty node id",
			def: graph.Definition{
				Nodes: []graph.NodeData{{ID: "", Type: "text_input"}},
			},
		},
		{
			name: "duplicate node id",
			def: graph.Definition{
				Nodes: []graph.NodeData{
					{ID: "a", Type: "text_input"},
					{ID: "a", Type: "text_output"},
				},
			},
		},
		{
			name: "unknown component type",
			def: graph.Definition{
				Nodes: []graph.NodeData{{ID: "a", Type: "does_not_exist"}},
			},
		},
		{
			name: "edge with unknown source",
			def: graph.Definition{
				Nodes: []graph.NodeData{{ID: "a", Type: "text_input"}},
				Edges: []graph.EdgeData{{Source: "ghost", Target: "a"}},
			},
		},
		{
			name: "edge with unknown target",
			def: graph.Definition{
				Nodes: []graph.NodeData{{ID: "a", Type: "text_input"}},
				Edges: []graph.EdgeData{{Source: "a", Target: "ghost"}},
			},
		},
		{
			name: "loop-back edge to non-loop vertex",
			def: graph.Definition{
				Nodes: []graph.NodeData{
					{ID: "a", Type: "text_input"},
					{ID: "b", Type: "text_output"},
				},
				Edges: []graph.EdgeData{
					{Source: "a", Target: "b"},
					{Source: "b", Target: "a", LoopBack: true},
				},
			},
		},
		{
			name: "loop-back source not downstream of loop",
			def: graph.Definition{
				Nodes: []graph.NodeData{
					{ID: "src", Type: "text_input"},
					{ID: "loop", Type: "loop"},
					{ID: "stray", Type: "text_input"},
				},
				Edges: []graph.EdgeData{
					{Source: "src", Target: "loop", TargetInput: "data"},
					{Source: "stray", Target: "loop", TargetInput: "feedback", LoopBack: true},
				},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Prepare(context.Background(), tc.def)
			var vErr *graph.ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("error = %v, want *ValidationError", err)
			}
		})
	}
}

func TestUnmarkedCycleIsRejected(t *testing.T) {
	catalog := component.Builtin()
	engine, err := graph.New(catalog)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	def := graph.Definition{
		Nodes: []graph.NodeData{
			{ID: "a", Type: "text_input"},
			{ID: "b", Type: "text_output"},
			{ID: "c", Type: "text_output"},
		},
		Edges: []graph.EdgeData{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "c"},
			{Source: "c", Target: "b"},
		},
	}

	_, err = engine.Prepare(context.Background(), def)
	var depErr *graph.DependencyError
	if !errors.As(err, &depErr) {
		t.Fatalf("error = %v, want *DependencyError", err)
	}
	if len(depErr.Cycle) < 3 {
		t.Errorf("cycle = %v, want at least the b->c->b walk", depErr.Cycle)
	}
}

func TestLoopBackEdgeIsExemptFromCycleCheck(t *testing.T) {
	def, comps := loopDefinition()
	engine, err := graph.New(loopCatalog(t, comps))
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	if _, err := engine.Prepare(context.Background(), def); err != nil {
		t.Fatalf("prepare rejected a sanctioned loop: %v", err)
	}
}

func TestDefinitionFromJSON(t *testing.T) {
	raw := `{
		"nodes": [
			{"id": "in", "type": "text_input"},
			{"id": "out", "type": "text_output", "is_output": true, "timeout_ms": 500}
		],
		"edges": [
			{"source": "in", "target": "out"}
		]
	}`

	def, err := graph.DefinitionFromJSON([]byte(raw))
	if err != nil {
		t.Fatalf("failed to parse definition: %v", err)
	}
	if len(def.Nodes) != 2 || len(def.Edges) != 1 {
		t.Fatalf("parsed %d nodes, %d edges", len(def.Nodes), len(def.Edges))
	}
	if def.Nodes[1].TimeoutMS != 500 {
		t.Errorf("timeout_ms = %d, want 500", def.Nodes[1].TimeoutMS)
	}

	engine, err := graph.New(component.Builtin())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	if _, err := engine.Prepare(context.Background(), def); err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
}

func TestDefinitionFromYAML(t *testing.T) {
	raw := `
nodes:
  - id: in
    type: text_input
  - id: loop
    type: loop
  - id: out
    type: text_output
    is_output: true
edges:
  - source: in
    target: loop
    target_input: data
  - source: loop
    source_output: item
    target: out
  - source: out
    target: loop
    target_input: feedback
    loop_back: true
`
	def, err := graph.DefinitionFromYAML([]byte(raw))
	if err != nil {
		t.Fatalf("failed to parse definition: %v", err)
	}
	if len(def.Edges) != 3 || !def.Edges[2].LoopBack {
		t.Fatalf("loop_back flag not parsed: %+v", def.Edges)
	}

	engine, err := graph.New(component.Builtin())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	if _, err := engine.Prepare(context.Background(), def); err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
}
