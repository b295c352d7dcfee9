// SPDX-License-Identifier: AGPL-3.0-only
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/renzz/mcp-chat/internal/config"
	"github.com/renzz/mcp-chat/internal/model"
)

// ToolCallFragment is one partial piece of a tool call inside a
// streamed delta. Index is stable for the call within one streaming
// response; ID and Name may arrive on any fragment and are overwritten
// when present, while ArgumentsFragment is always appended.
type ToolCallFragment struct {
	Index             int
	ID                string
	Name              string
	ArgumentsFragment string
}

// Delta is one incremental chunk of a streamed model response: a
// content fragment, partial tool-call data, or both.
type Delta struct {
	Content   string
	ToolCalls []ToolCallFragment
}

// DeltaStream is an incremental pull over a streamed completion. The
// consumer must call Close when done; Close must also be safe to call
// mid-stream to cancel the underlying transport.
type DeltaStream interface {
	// Next advances to the next delta, returning false at end of stream
	// or on error.
	Next() bool
	// Current returns the delta produced by the last successful Next.
	Current() Delta
	// Err returns the transport error that ended the stream, if any.
	Err() error
	// Close releases the underlying transport.
	Close() error
}

// StreamProvider abstracts a streaming chat-completion backend so the
// orchestrator can work with any LLM provider.
type StreamProvider interface {
	// Stream starts a streaming completion over the given transcript
	// and tool set. systemMsg is an optional system-level instruction
	// (empty string to omit).
	Stream(ctx context.Context, modelName string, systemMsg string, messages []model.Message, tools []model.ToolSchema) (DeltaStream, error)
}

// NewProvider builds the appropriate StreamProvider based on cfg.AI.Provider.
func NewProvider(cfg *config.Config) (StreamProvider, error) {
	provider := strings.ToLower(cfg.AI.Provider)
	switch provider {
	case "anthropic":
		apiKey := cfg.AI.AnthropicAPIKey
		if apiKey == "" {
			apiKey = cfg.AI.APIKey
		}
		if apiKey == "" {
			return nil, fmt.Errorf("Anthropic API key is not set in configuration")
		}
		return NewAnthropicProvider(apiKey), nil
	default: // "openai" or empty
		apiKey := cfg.AI.OpenAIAPIKey
		if apiKey == "" {
			apiKey = cfg.AI.APIKey
		}
		if apiKey == "" {
			return nil, fmt.Errorf("OpenAI API key is not set in configuration")
		}
		return NewOpenAIProvider(apiKey, cfg.AI.BaseURL), nil
	}
}
