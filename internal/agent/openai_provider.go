// SPDX-License-Identifier: AGPL-3.0-only
package agent

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"

	"github.com/renzz/mcp-chat/internal/model"
)

// OpenAIProvider implements StreamProvider using the OpenAI SDK.
// It supports any OpenAI-compatible endpoint (OpenAI, Ollama, vLLM,
// Groq, etc.) via a configurable base URL.
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI-backed StreamProvider.
// If baseURL is non-empty it overrides the default API endpoint, which
// allows pointing at any OpenAI-compatible server.
func NewOpenAIProvider(apiKey string, baseURL string) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client}
}

func (p *OpenAIProvider) Stream(ctx context.Context, modelName string, systemMsg string, messages []model.Message, tools []model.ToolSchema) (DeltaStream, error) {
	oaiMsgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if systemMsg != "" {
		oaiMsgs = append(oaiMsgs, openai.SystemMessage(systemMsg))
	}
	for _, m := range messages {
		oaiMsgs = append(oaiMsgs, toOpenAIMessage(m))
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(modelName),
		Messages: oaiMsgs,
	}
	if len(tools) > 0 {
		params.Tools = toOpenAITools(tools)
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	return &openaiStream{stream: stream}, nil
}

// openaiStream adapts the SDK chunk stream to the DeltaStream contract.
type openaiStream struct {
	stream  *ssestream.Stream[openai.ChatCompletionChunk]
	current Delta
}

func (s *openaiStream) Next() bool {
	for s.stream.Next() {
		chunk := s.stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		d := chunk.Choices[0].Delta
		delta := Delta{Content: d.Content}
		for _, tc := range d.ToolCalls {
			delta.ToolCalls = append(delta.ToolCalls, ToolCallFragment{
				Index:             int(tc.Index),
				ID:                tc.ID,
				Name:              tc.Function.Name,
				ArgumentsFragment: tc.Function.Arguments,
			})
		}
		if delta.Content == "" && len(delta.ToolCalls) == 0 {
			continue
		}
		s.current = delta
		return true
	}
	return false
}

func (s *openaiStream) Current() Delta {
	return s.current
}

func (s *openaiStream) Err() error {
	return s.stream.Err()
}

func (s *openaiStream) Close() error {
	return s.stream.Close()
}

// toOpenAITools converts catalog tool schemas to the OpenAI SDK
// representation.
func toOpenAITools(tools []model.ToolSchema) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		out[i] = openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  shared.FunctionParameters(t.Parameters),
			},
		}
	}
	return out
}

// toOpenAIMessage converts a conversation message to an OpenAI SDK
// message union.
func toOpenAIMessage(m model.Message) openai.ChatCompletionMessageParamUnion {
	switch m.Role {
	case model.RoleTool:
		content := m.Content
		if m.Error != "" {
			content = "ERROR: " + m.Error
		}
		return openai.ToolMessage(content, m.ToolCallID)
	case model.RoleUser:
		return openai.UserMessage(m.Content)
	default: // assistant
		asst := openai.ChatCompletionAssistantMessageParam{}
		if m.Content != "" {
			asst.Content.OfString = openai.String(m.Content)
		}
		if len(m.ToolCalls) > 0 {
			asst.ToolCalls = make([]openai.ChatCompletionMessageToolCallParam, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				asst.ToolCalls[i] = openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				}
			}
		}
		return openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}
	}
}
