package component

import "context"

// ChatModel abstracts the LLM chat providers that back model components.
//
// Implementations live in the provider subpackages (anthropic, openai,
// google) and:
//   - Handle provider-specific authentication
//   - Convert the common Message format to the provider's wire format
//   - Translate provider responses and errors back to the common shape
//   - Respect context cancellation and timeouts
type ChatModel interface {
	// Chat sends the conversation to the provider and returns the reply.
	//
	// messages carries the conversation history (system, user, assistant);
	// tools, when non-nil, lists tool specifications the model may call.
	// The reply may contain text, tool calls, or both.
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)
}

// Message is one turn in an LLM conversation, in the common chat format
// shared by the major providers.
type Message struct {
	// Role identifies the sender: one of the Role* constants.
	Role string

	// Content is the message text. May be empty for tool-call-only turns.
	Content string
}

// Standard conversation roles.
const (
	// RoleSystem sets context or instructions, conventionally first.
	RoleSystem = "system"

	// RoleUser carries human input.
	RoleUser = "user"

	// RoleAssistant carries model output.
	RoleAssistant = "assistant"
)

// ToolSpec describes a tool a model may call. Schema follows JSON Schema
// and describes the expected input parameters; nil for parameterless tools.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]any
}

// ChatOut is a provider reply: generated text, requested tool calls, or
// both, plus token accounting when the provider reports it.
type ChatOut struct {
	// Text is the generated response. Empty for tool-call-only replies.
	Text string

	// ToolCalls lists tools the model wants invoked.
	ToolCalls []ToolCall

	// TokensIn and TokensOut report prompt and completion token usage.
	// Zero when the provider does not report usage.
	TokensIn  int
	TokensOut int
}

// ToolCall is a model's request to invoke one tool. Input matches the
// corresponding ToolSpec.Schema and may be nil.
type ToolCall struct {
	Name  string
	Input map[string]any
}

// Model is the chat-model component: it renders its "prompt" input slot
// into a user message, prepends the configured system prompt, calls the
// bound ChatModel, and emits the reply text on its "text" output.
//
// Token usage is reported through Request.ReportUsage when the engine has a
// usage tracker configured.
type Model struct {
	model  ChatModel
	system string
	name   string
}

// NewModel creates a Model component bound to the given provider client.
// systemPrompt may be empty.
func NewModel(m ChatModel, systemPrompt string) *Model {
	return &Model{model: m, system: systemPrompt}
}

// Build implements Component.
func (m *Model) Build(ctx context.Context, req Request) (Output, error) {
	prompt, _ := req.Input("prompt").(string)
	if prompt == "" {
		prompt = req.StringParam("input_value", "")
	}

	system := m.system
	if system == "" {
		system = req.StringParam("system_prompt", "")
	}

	var messages []Message
	if system != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: system})
	}
	messages = append(messages, Message{Role: RoleUser, Content: prompt})

	out, err := m.model.Chat(ctx, messages, nil)
	if err != nil {
		return Output{}, err
	}

	if req.ReportUsage != nil && (out.TokensIn > 0 || out.TokensOut > 0) {
		req.ReportUsage(req.StringParam("model_name", "unknown"), out.TokensIn, out.TokensOut)
	}

	return Output{Values: map[string]any{"text": out.Text}}, nil
}
