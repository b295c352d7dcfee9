// SPDX-License-Identifier: AGPL-3.0-only
package model

import (
	"encoding/json"

	"github.com/renzz/mcp-chat/internal/logging"
)

// MessageStore is an append-only sink for conversation messages.
type MessageStore interface {
	SaveMessage(msg *Message) error
	LoadMessages(conversationID string) ([]*Message, error)
	SearchMessages(conversationID, query string, limit int) ([]*Message, error)
	Close() error
}

// MentionStore persists the user's pin set across sessions.
type MentionStore interface {
	SaveMention(m Mention) error
	DeleteMention(m Mention) error
	LoadMentions() ([]Mention, error)
}

// PersistAndLogMessage saves a message to the store (best-effort) and
// debug-logs it. Persistence failures must never block a run.
func PersistAndLogMessage(store MessageStore, msg *Message, logger *logging.Logger) {
	if store != nil {
		if err := store.SaveMessage(msg); err != nil {
			logger.Warnf("Failed to persist %s message %s: %v", msg.Role, msg.ID, err)
		}
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		logger.Warnf("Failed to marshal message %s: %v", msg.ID, err)
	} else {
		logger.Debugf("Appended message: %s", string(jsonData))
	}
}
