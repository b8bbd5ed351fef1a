// Package tool defines executable tools that components and models can
// invoke.
package tool

import "context"

// Tool is an executable capability: an HTTP call, a database query, a
// calculation. Tools are wrapped into graph vertices by the tool_runner
// component and offered to models as ToolSpecs.
//
// Implementations should:
//   - Validate input parameters and return clear errors
//   - Respect context cancellation and timeouts
//   - Return structured output as a map
type Tool interface {
	// Name returns the tool's unique identifier, lowercase with
	// underscores (e.g. "http_request", "search_web").
	Name() string

	// Call executes the tool. input carries the parameters (may be nil
	// for parameterless tools); the returned map is the structured
	// result.
	Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)
}
