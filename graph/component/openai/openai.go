// Package openai provides a ChatModel backed by the OpenAI Chat Completions
// API.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/flowmesh/flowgraph-go/graph/component"
)

// DefaultModel is used when no model name is given.
const DefaultModel = "gpt-4o"

// ChatModel implements component.ChatModel for OpenAI's GPT models.
//
// The underlying client is safe for concurrent use. Tool calls are not
// supported by this provider; pass tool specifications to a provider that
// supports them.
//
// Example:
//
//	m := openai.NewChatModel(os.Getenv("OPENAI_API_KEY"), "gpt-4o")
//	catalog.RegisterModel("gpt", m)
type ChatModel struct {
	client    *openai.Client
	modelName string
}

// NewChatModel creates a ChatModel for the given API key and model name.
// An empty model name selects DefaultModel.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = DefaultModel
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &ChatModel{client: &client, modelName: modelName}
}

// Chat implements component.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []component.Message, tools []component.ToolSpec) (component.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return component.ChatOut{}, err
	}
	if len(tools) > 0 {
		return component.ChatOut{}, errors.New("openai provider does not support tool calls")
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(m.modelName),
	}
	for _, msg := range messages {
		switch msg.Role {
		case component.RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case component.RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}
	if len(params.Messages) == 0 {
		return component.ChatOut{}, errors.New("openai: no messages to send")
	}

	completion, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return component.ChatOut{}, fmt.Errorf("openai API error: %w", err)
	}
	if len(completion.Choices) == 0 {
		return component.ChatOut{}, errors.New("openai: empty response")
	}

	return component.ChatOut{
		Text:      completion.Choices[0].Message.Content,
		TokensIn:  int(completion.Usage.PromptTokens),
		TokensOut: int(completion.Usage.CompletionTokens),
	}, nil
}
