// Package google provides a ChatModel backed by the Google Gemini API.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/flowmesh/flowgraph-go/graph/component"
)

// DefaultModel is used when no model name is given.
const DefaultModel = "gemini-2.5-flash"

// ChatModel implements component.ChatModel for Google's Gemini models.
//
// Supports tool/function calling and surfaces safety filter blocks as
// SafetyFilterError values.
//
// Example:
//
//	m := google.NewChatModel(os.Getenv("GOOGLE_API_KEY"), "")
//	catalog.RegisterModel("gemini", m)
type ChatModel struct {
	modelName string
	client    geminiClient
}

// geminiClient is the seam between the adapter and the SDK, for test
// stubbing.
type geminiClient interface {
	generateContent(ctx context.Context, messages []component.Message, tools []component.ToolSpec) (component.ChatOut, error)
}

// NewChatModel creates a ChatModel for the given API key and model name.
// An empty model name selects DefaultModel.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &ChatModel{
		modelName: modelName,
		client:    &sdkClient{apiKey: apiKey, modelName: modelName},
	}
}

// Chat implements component.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []component.Message, tools []component.ToolSpec) (component.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return component.ChatOut{}, err
	}
	return m.client.generateContent(ctx, messages, tools)
}

// sdkClient wraps the official Gemini SDK.
type sdkClient struct {
	apiKey    string
	modelName string
}

func (c *sdkClient) generateContent(ctx context.Context, messages []component.Message, tools []component.ToolSpec) (component.ChatOut, error) {
	if c.apiKey == "" {
		return component.ChatOut{}, errors.New("google API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return component.ChatOut{}, fmt.Errorf("failed to create Google client: %w", err)
	}
	defer func() { _ = client.Close() }()

	genModel := client.GenerativeModel(c.modelName)
	if len(tools) > 0 {
		genModel.Tools = convertTools(tools)
	}

	var parts []genai.Part
	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		if msg.Role == component.RoleSystem {
			genModel.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(msg.Content)},
			}
			continue
		}
		parts = append(parts, genai.Text(msg.Content))
	}
	if len(parts) == 0 {
		return component.ChatOut{}, errors.New("google: no messages to send")
	}

	resp, err := genModel.GenerateContent(ctx, parts...)
	if err != nil {
		return component.ChatOut{}, fmt.Errorf("google API error: %w", err)
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return component.ChatOut{}, &SafetyFilterError{reason: "SAFETY"}
	}
	return convertResponse(resp), nil
}

// convertTools converts tool specs to Gemini function declarations.
func convertTools(tools []component.ToolSpec) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, len(tools))
	for i, tool := range tools {
		declarations[i] = &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  convertSchema(tool.Schema),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// convertSchema converts a JSON Schema map to genai.Schema. Only the
// top-level object shape is converted; nested objects pass as strings.
func convertSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	result := &genai.Schema{Type: genai.TypeObject}

	if props, ok := schema["properties"].(map[string]any); ok {
		properties := make(map[string]*genai.Schema, len(props))
		for key, val := range props {
			propMap, ok := val.(map[string]any)
			if !ok {
				continue
			}
			propSchema := &genai.Schema{}
			if typeStr, ok := propMap["type"].(string); ok {
				propSchema.Type = convertType(typeStr)
			}
			if desc, ok := propMap["description"].(string); ok {
				propSchema.Description = desc
			}
			properties[key] = propSchema
		}
		result.Properties = properties
	}

	switch required := schema["required"].(type) {
	case []string:
		result.Required = required
	case []any:
		for _, v := range required {
			if s, ok := v.(string); ok {
				result.Required = append(result.Required, s)
			}
		}
	}
	return result
}

// convertResponse flattens a Gemini response into ChatOut.
func convertResponse(resp *genai.GenerateContentResponse) component.ChatOut {
	out := component.ChatOut{}
	if resp.UsageMetadata != nil {
		out.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		out.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += string(p)
		case genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, component.ToolCall{
				Name:  p.Name,
				Input: p.Args,
			})
		}
	}
	return out
}

// convertType maps a JSON Schema type string to a genai.Type.
func convertType(typeStr string) genai.Type {
	switch typeStr {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

// SafetyFilterError reports that Gemini blocked the content.
//
// Check with errors.As:
//
//	var safetyErr *google.SafetyFilterError
//	if errors.As(err, &safetyErr) {
//	    log.Printf("blocked: %s", safetyErr.Reason())
//	}
type SafetyFilterError struct {
	reason string
}

// Error implements the error interface.
func (e *SafetyFilterError) Error() string {
	return "content blocked by safety filter: " + e.reason
}

// Reason returns why the content was blocked.
func (e *SafetyFilterError) Reason() string {
	return e.reason
}
