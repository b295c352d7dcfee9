// SPDX-License-Identifier: AGPL-3.0-only

// Package builtin exposes a process-local pseudo-server so the model
// can consult the conversation's own persisted history alongside remote
// MCP tools.
package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/renzz/mcp-chat/internal/catalog"
	"github.com/renzz/mcp-chat/internal/model"
)

// ServerID is the catalog identifier of the builtin pseudo-server.
const ServerID = "builtin"

// HistorySearchParams are the arguments of the history_search tool.
type HistorySearchParams struct {
	Query string `json:"query" jsonschema:"description=Text to search for in earlier messages of this conversation"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum number of matching messages to return (default 5)"`
}

// HistoryRecentParams are the arguments of the history_recent tool.
type HistoryRecentParams struct {
	Limit int `json:"limit,omitempty" jsonschema:"description=Number of most recent messages to return (default 10)"`
}

// historyEntry is the wire shape of one returned message.
type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Register adds the builtin history tools for one conversation to the
// catalog manager. It is a no-op when the store is nil.
func Register(manager *catalog.Manager, store model.MessageStore, conversationID string) {
	if store == nil {
		return
	}

	tools := []model.ToolSchema{
		{
			Name:        "history_search",
			Description: "Searches earlier messages of this conversation for a text fragment and returns the matches.",
			Parameters:  schemaFor(&HistorySearchParams{}),
		},
		{
			Name:        "history_recent",
			Description: "Returns the most recent messages of this conversation.",
			Parameters:  schemaFor(&HistoryRecentParams{}),
		},
	}

	manager.RegisterLocal(ServerID, tools, func(ctx context.Context, toolName, argsJSON string) (string, error) {
		switch toolName {
		case "history_search":
			var params HistorySearchParams
			if err := unmarshalArgs(argsJSON, &params); err != nil {
				return "", err
			}
			if params.Limit <= 0 {
				params.Limit = 5
			}
			msgs, err := store.SearchMessages(conversationID, params.Query, params.Limit)
			if err != nil {
				return "", fmt.Errorf("search history: %w", err)
			}
			return marshalEntries(msgs)
		case "history_recent":
			var params HistoryRecentParams
			if err := unmarshalArgs(argsJSON, &params); err != nil {
				return "", err
			}
			if params.Limit <= 0 {
				params.Limit = 10
			}
			msgs, err := store.LoadMessages(conversationID)
			if err != nil {
				return "", fmt.Errorf("load history: %w", err)
			}
			if len(msgs) > params.Limit {
				msgs = msgs[len(msgs)-params.Limit:]
			}
			return marshalEntries(msgs)
		default:
			return "", fmt.Errorf("unknown builtin tool: %s", toolName)
		}
	})
}

func unmarshalArgs(argsJSON string, v interface{}) error {
	if argsJSON == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(argsJSON), v); err != nil {
		return fmt.Errorf("failed to unmarshal arguments: %w", err)
	}
	return nil
}

func marshalEntries(msgs []*model.Message) (string, error) {
	entries := make([]historyEntry, 0, len(msgs))
	for _, m := range msgs {
		if m.Synthetic {
			continue
		}
		entries = append(entries, historyEntry{Role: m.Role, Content: m.Content})
	}
	out, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshal history entries: %w", err)
	}
	return string(out), nil
}

// schemaFor reflects a parameter struct into the JSON-schema map shape
// the providers consume.
func schemaFor(params interface{}) map[string]interface{} {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	schema := r.Reflect(params)
	raw, err := json.Marshal(schema)
	if err != nil {
		return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
	}
	delete(out, "$schema")
	return out
}
