// SPDX-License-Identifier: AGPL-3.0-only
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/renzz/mcp-chat/internal/model"

	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

// SQLiteStore implements model.MessageStore and model.MentionStore
// backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure the parent directory exists.
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveMessage appends one conversation message.
func (s *SQLiteStore) SaveMessage(msg *model.Message) error {
	toolCalls := ""
	if len(msg.ToolCalls) > 0 {
		raw, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return fmt.Errorf("marshal tool calls: %w", err)
		}
		toolCalls = string(raw)
	}
	metrics := ""
	if msg.Metrics != nil {
		raw, err := json.Marshal(msg.Metrics)
		if err != nil {
			return fmt.Errorf("marshal metrics: %w", err)
		}
		metrics = string(raw)
	}

	_, err := s.db.Exec(`
		INSERT INTO messages (id, conversation_id, role, content, tool_calls, tool_call_id, tool_name, server_id, error, execution_ms, synthetic, created_at, metrics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID,
		msg.ConversationID,
		msg.Role,
		msg.Content,
		toolCalls,
		msg.ToolCallID,
		msg.ToolName,
		msg.ServerID,
		msg.Error,
		msg.ExecutionMs,
		boolToInt(msg.Synthetic),
		msg.CreatedAt.Format(timeFormat),
		metrics,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// LoadMessages returns the full transcript of a conversation in append
// order.
func (s *SQLiteStore) LoadMessages(conversationID string) ([]*model.Message, error) {
	rows, err := s.db.Query(`
		SELECT id, conversation_id, role, content, tool_calls, tool_call_id, tool_name, server_id, error, execution_ms, synthetic, created_at, metrics
		FROM messages
		WHERE conversation_id = ?
		ORDER BY rowid`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// SearchMessages returns up to limit non-synthetic messages of a
// conversation whose content contains query, most recent first.
func (s *SQLiteStore) SearchMessages(conversationID, query string, limit int) ([]*model.Message, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	rows, err := s.db.Query(`
		SELECT id, conversation_id, role, content, tool_calls, tool_call_id, tool_name, server_id, error, execution_ms, synthetic, created_at, metrics
		FROM messages
		WHERE conversation_id = ? AND synthetic = 0 AND content LIKE ?
		ORDER BY rowid DESC
		LIMIT ?`, conversationID, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]*model.Message, error) {
	var msgs []*model.Message
	for rows.Next() {
		var m model.Message
		var toolCalls, metrics, createdStr string
		var synthetic int
		if err := rows.Scan(
			&m.ID, &m.ConversationID, &m.Role, &m.Content,
			&toolCalls, &m.ToolCallID, &m.ToolName, &m.ServerID,
			&m.Error, &m.ExecutionMs, &synthetic, &createdStr, &metrics,
		); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		m.Synthetic = synthetic != 0
		m.CreatedAt, _ = time.Parse(timeFormat, createdStr)
		if toolCalls != "" {
			if err := json.Unmarshal([]byte(toolCalls), &m.ToolCalls); err != nil {
				return nil, fmt.Errorf("unmarshal tool calls for message %s: %w", m.ID, err)
			}
		}
		if metrics != "" {
			if err := json.Unmarshal([]byte(metrics), &m.Metrics); err != nil {
				return nil, fmt.Errorf("unmarshal metrics for message %s: %w", m.ID, err)
			}
		}
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}
	return msgs, nil
}

// SaveMention persists one pin. Duplicate tuples are ignored, keeping
// the no-duplicates invariant.
func (s *SQLiteStore) SaveMention(m model.Mention) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO mentions (kind, server_id, tool_name)
		VALUES (?, ?, ?)`,
		m.Kind, m.ServerID, m.ToolName,
	)
	if err != nil {
		return fmt.Errorf("insert mention: %w", err)
	}
	return nil
}

// DeleteMention removes one pin.
func (s *SQLiteStore) DeleteMention(m model.Mention) error {
	_, err := s.db.Exec(`
		DELETE FROM mentions WHERE kind = ? AND server_id = ? AND tool_name = ?`,
		m.Kind, m.ServerID, m.ToolName,
	)
	if err != nil {
		return fmt.Errorf("delete mention: %w", err)
	}
	return nil
}

// LoadMentions returns the persisted pin set.
func (s *SQLiteStore) LoadMentions() ([]model.Mention, error) {
	rows, err := s.db.Query("SELECT kind, server_id, tool_name FROM mentions ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("query mentions: %w", err)
	}
	defer rows.Close()

	var mentions []model.Mention
	for rows.Next() {
		var m model.Mention
		if err := rows.Scan(&m.Kind, &m.ServerID, &m.ToolName); err != nil {
			return nil, fmt.Errorf("scan mention row: %w", err)
		}
		mentions = append(mentions, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mention rows: %w", err)
	}
	return mentions, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
