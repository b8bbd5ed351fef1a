package component

import (
	"context"
	"fmt"

	"github.com/flowmesh/flowgraph-go/graph/tool"
)

// ToolRunner wraps a Tool as a component so graphs can invoke tools as
// regular vertices.
//
// The tool's input map is assembled from the vertex's parameters under the
// "args" key (a map) merged with the first value of every input slot, slot
// name as key. The tool's output map becomes the vertex's output values.
type ToolRunner struct {
	tool tool.Tool
}

// NewToolRunner creates a ToolRunner for the given tool.
func NewToolRunner(t tool.Tool) *ToolRunner {
	return &ToolRunner{tool: t}
}

// Build implements Component.
func (tr *ToolRunner) Build(ctx context.Context, req Request) (Output, error) {
	input := make(map[string]interface{})
	if args, ok := req.Params["args"].(map[string]any); ok {
		for k, v := range args {
			input[k] = v
		}
	}
	for slot := range req.Inputs {
		if v := req.Input(slot); v != nil {
			input[slot] = v
		}
	}

	result, err := tr.tool.Call(ctx, input)
	if err != nil {
		return Output{}, fmt.Errorf("tool %s: %w", tr.tool.Name(), err)
	}
	return Output{Values: result}, nil
}
