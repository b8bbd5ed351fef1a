package component

import (
	"context"
	"sync"
)

// Mock is a test implementation of Component.
//
// Use Mock in tests to drive the engine without real build operations. It
// provides configurable outputs, error injection, and call history, and is
// safe for concurrent use.
//
// Example:
//
//	mock := &component.Mock{
//	    Outputs: map[string]any{"text": "built"},
//	}
//	out, err := mock.Build(ctx, req)
//	// out.Values["text"] == "built", mock.CallCount() == 1
type Mock struct {
	// Outputs is the value map returned by every Build call.
	Outputs map[string]any

	// Err, if set, is returned by Build instead of Outputs.
	Err error

	// BuildFunc, if set, overrides the canned Outputs/Err behavior
	// entirely. The call is still recorded.
	BuildFunc func(ctx context.Context, req Request) (Output, error)

	mu    sync.Mutex
	calls []Request
}

// Build implements Component. Every invocation is recorded regardless of
// outcome.
func (m *Mock) Build(ctx context.Context, req Request) (Output, error) {
	if ctx.Err() != nil {
		return Output{}, ctx.Err()
	}

	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.BuildFunc != nil {
		return m.BuildFunc(ctx, req)
	}
	if m.Err != nil {
		return Output{}, m.Err
	}

	vals := make(map[string]any, len(m.Outputs))
	for k, v := range m.Outputs {
		vals[k] = v
	}
	return Output{Values: vals}, nil
}

// CallCount returns how many times Build was invoked.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded build requests.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// MockChatModel is a test implementation of ChatModel.
//
// Each Chat call returns the next response in Responses; once exhausted the
// last response repeats. Set Err to inject a provider failure. Calls records
// every invocation for assertions.
type MockChatModel struct {
	// Responses is the sequence of replies to return in order.
	Responses []ChatOut

	// Err, if set, is returned instead of a response.
	Err error

	mu        sync.Mutex
	calls     []MockChatCall
	callIndex int
}

// MockChatCall records a single Chat invocation.
type MockChatCall struct {
	Messages []Message
	Tools    []ToolSpec
}

// Chat implements ChatModel.
func (m *MockChatModel) Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error) {
	if ctx.Err() != nil {
		return ChatOut{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockChatCall{Messages: messages, Tools: tools})

	if m.Err != nil {
		return ChatOut{}, m.Err
	}
	if len(m.Responses) == 0 {
		return ChatOut{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.callIndex++
	return m.Responses[idx], nil
}

// Calls returns a copy of the recorded invocations.
func (m *MockChatModel) Calls() []MockChatCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockChatCall, len(m.calls))
	copy(out, m.calls)
	return out
}
