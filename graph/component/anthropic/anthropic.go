// Package anthropic provides a ChatModel backed by the Anthropic Messages
// API.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/flowmesh/flowgraph-go/graph/component"
)

// DefaultModel is used when no model name is given.
const DefaultModel = "claude-sonnet-4-5"

// ChatModel implements component.ChatModel for Anthropic's Claude models.
//
// Example:
//
//	m := anthropic.NewChatModel(os.Getenv("ANTHROPIC_API_KEY"), "")
//	catalog.RegisterModel("claude", m)
type ChatModel struct {
	client    anthropic.Client
	modelName string
	maxTokens int64
}

// NewChatModel creates a ChatModel for the given API key and model name.
// An empty model name selects DefaultModel.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &ChatModel{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		modelName: modelName,
		maxTokens: 4096,
	}
}

// Chat implements component.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []component.Message, tools []component.ToolSpec) (component.ChatOut, error) {
	if ctx.Err() != nil {
		return component.ChatOut{}, ctx.Err()
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.modelName),
		MaxTokens: m.maxTokens,
	}

	for _, msg := range messages {
		switch msg.Role {
		case component.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Content})
		case component.RoleAssistant:
			params.Messages = append(params.Messages,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			params.Messages = append(params.Messages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	if len(params.Messages) == 0 {
		return component.ChatOut{}, errors.New("anthropic: no user or assistant messages")
	}

	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	message, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return component.ChatOut{}, fmt.Errorf("anthropic API error: %w", err)
	}

	out := component.ChatOut{
		TokensIn:  int(message.Usage.InputTokens),
		TokensOut: int(message.Usage.OutputTokens),
	}
	for _, block := range message.Content {
		switch block.Type {
		case "text":
			out.Text += block.Text
		case "tool_use":
			var input map[string]any
			if err := json.Unmarshal(block.Input, &input); err != nil {
				return component.ChatOut{}, fmt.Errorf("anthropic: malformed tool input: %w", err)
			}
			out.ToolCalls = append(out.ToolCalls, component.ToolCall{
				Name:  block.Name,
				Input: input,
			})
		}
	}
	return out, nil
}

func convertTools(tools []component.ToolSpec) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		tool := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
		}
		if t.Schema != nil {
			tool.InputSchema = anthropic.ToolInputSchemaParam{
				Properties: t.Schema["properties"],
			}
		}
		out[i] = anthropic.ToolUnionParam{OfTool: &tool}
	}
	return out
}
