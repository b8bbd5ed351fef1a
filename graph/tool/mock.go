package tool

import (
	"context"
	"sync"
)

// Mock is a test implementation of Tool with canned output, error
// injection, and call history. Safe for concurrent use.
type Mock struct {
	// ToolName is returned by Name. Defaults to "mock" when empty.
	ToolName string

	// Output is returned by every Call.
	Output map[string]interface{}

	// Err, if set, is returned instead of Output.
	Err error

	// CallFunc, if set, overrides the canned behavior. The call is still
	// recorded.
	CallFunc func(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)

	mu    sync.Mutex
	calls []map[string]interface{}
}

// Name implements Tool.
func (m *Mock) Name() string {
	if m.ToolName == "" {
		return "mock"
	}
	return m.ToolName
}

// Call implements Tool. Every invocation is recorded.
func (m *Mock) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.Lock()
	m.calls = append(m.calls, input)
	m.mu.Unlock()

	if m.CallFunc != nil {
		return m.CallFunc(ctx, input)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Output, nil
}

// Calls returns a copy of the recorded inputs.
func (m *Mock) Calls() []map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]map[string]interface{}, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times Call was invoked.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
