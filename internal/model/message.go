// SPDX-License-Identifier: AGPL-3.0-only
package model

import (
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleSystem    = "system"
)

// ToolCall represents a single tool invocation requested by the model.
// Arguments is the raw JSON string accumulated from the stream; it is
// append-only until the stream ends.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one entry in a conversation transcript. Messages are
// ordered and immutable once appended; the only in-place update is the
// incremental content merge into the currently streaming assistant
// message.
type Message struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Role           string          `json:"role"`
	Content        string          `json:"content"`
	ToolCalls      []ToolCall      `json:"tool_calls,omitempty"`
	ToolCallID     string          `json:"tool_call_id,omitempty"`
	ToolName       string          `json:"tool_name,omitempty"`
	ServerID       string          `json:"server_id,omitempty"`
	Error          string          `json:"error,omitempty"`
	ExecutionMs    int64           `json:"execution_ms,omitempty"`
	Synthetic      bool            `json:"synthetic,omitempty"`
	Metrics        *FilterMetrics  `json:"metrics,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewUserMessage creates a user message for the given conversation.
func NewUserMessage(conversationID, content string) *Message {
	return &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           RoleUser,
		Content:        content,
		CreatedAt:      time.Now(),
	}
}

// NewAssistantMessage creates an assistant message with optional tool calls.
func NewAssistantMessage(conversationID, content string, calls []ToolCall) *Message {
	return &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           RoleAssistant,
		Content:        content,
		ToolCalls:      calls,
		CreatedAt:      time.Now(),
	}
}

// NewToolMessage creates a tool message carrying the result of one tool call.
func NewToolMessage(conversationID string, res *ToolResult) *Message {
	return &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           RoleTool,
		Content:        res.Content,
		ToolCallID:     res.ToolCallID,
		ToolName:       res.ToolName,
		ServerID:       res.ServerID,
		Error:          res.Error,
		ExecutionMs:    res.ExecutionMs,
		CreatedAt:      time.Now(),
	}
}

// NewSyntheticMessage creates a system message that is shown in the
// UI-facing history but never sent to the provider.
func NewSyntheticMessage(conversationID, content string) *Message {
	return &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           RoleSystem,
		Content:        content,
		Synthetic:      true,
		CreatedAt:      time.Now(),
	}
}

// ToolResult is the outcome of dispatching one tool call. Exactly one
// of Content or Error is meaningful.
type ToolResult struct {
	ToolCallID  string `json:"tool_call_id"`
	ToolName    string `json:"tool_name"`
	ServerID    string `json:"server_id,omitempty"`
	Content     string `json:"content,omitempty"`
	Error       string `json:"error,omitempty"`
	ExecutionMs int64  `json:"execution_ms,omitempty"`
}

// Failed reports whether the tool call produced an error instead of a payload.
func (r *ToolResult) Failed() bool {
	return r.Error != ""
}
