package graph

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Definition is the declarative graph payload consumed by the engine: a
// node list and an edge list, typically produced by an external
// graph-authoring layer.
//
// Definitions can be constructed directly in Go, or decoded from JSON or
// YAML via DefinitionFromJSON / DefinitionFromYAML. Validation happens at
// Prepare, which fails fast with ValidationError on dangling references or
// malformed loop markers.
type Definition struct {
	// Nodes lists the graph's vertices.
	Nodes []NodeData `json:"nodes" yaml:"nodes"`

	// Edges lists the directed dependencies between vertices.
	Edges []EdgeData `json:"edges" yaml:"edges"`
}

// NodeData declares one vertex.
type NodeData struct {
	// ID uniquely identifies the vertex within the graph.
	ID string `json:"id" yaml:"id"`

	// Type names the component in the engine's catalog that builds this
	// vertex.
	Type string `json:"type" yaml:"type"`

	// Params holds the vertex's parameter bindings, passed to the
	// component factory and to every build.
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`

	// Outputs names the vertex's output slots. Defaults to the single
	// slot "text" when empty.
	Outputs []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`

	// IsOutput flags the vertex as a graph output: its final result is
	// always included in batch output collections.
	IsOutput bool `json:"is_output,omitempty" yaml:"is_output,omitempty"`

	// TimeoutMS optionally bounds a single build of this vertex, in
	// milliseconds, overriding the engine default.
	TimeoutMS int `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`

	// Retry optionally enables retries of failed builds of this vertex.
	Retry *RetryData `json:"retry,omitempty" yaml:"retry,omitempty"`
}

// RetryData declares a vertex retry policy in the definition payload.
type RetryData struct {
	// MaxAttempts is the total number of build attempts (>= 1).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// BaseDelayMS is the base backoff delay in milliseconds.
	BaseDelayMS int `json:"base_delay_ms,omitempty" yaml:"base_delay_ms,omitempty"`

	// MaxDelayMS caps the backoff delay, in milliseconds.
	MaxDelayMS int `json:"max_delay_ms,omitempty" yaml:"max_delay_ms,omitempty"`
}

// EdgeData declares one directed edge.
type EdgeData struct {
	// Source and Target reference node ids.
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`

	// SourceOutput names the output slot on the source vertex. Defaults
	// to "text".
	SourceOutput string `json:"source_output,omitempty" yaml:"source_output,omitempty"`

	// TargetInput names the input slot on the target vertex. Defaults to
	// "text".
	TargetInput string `json:"target_input,omitempty" yaml:"target_input,omitempty"`

	// LoopBack marks the edge as an intentional cycle: it reintroduces a
	// previously-built ancestor vertex into the ready set when a loop
	// construct signals that more work remains.
	LoopBack bool `json:"loop_back,omitempty" yaml:"loop_back,omitempty"`
}

// DefaultSlot is the slot name assumed when an edge omits its source output
// or target input.
const DefaultSlot = "text"

// DefinitionFromJSON decodes a Definition from JSON bytes.
func DefinitionFromJSON(data []byte) (Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("failed to decode graph definition JSON: %w", err)
	}
	return def, nil
}

// DefinitionFromYAML decodes a Definition from YAML bytes.
func DefinitionFromYAML(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("failed to decode graph definition YAML: %w", err)
	}
	return def, nil
}

// normalized returns a copy of the edge with default slot names applied.
func (e EdgeData) normalized() EdgeData {
	if e.SourceOutput == "" {
		e.SourceOutput = DefaultSlot
	}
	if e.TargetInput == "" {
		e.TargetInput = DefaultSlot
	}
	return e
}
