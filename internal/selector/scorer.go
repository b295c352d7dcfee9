// SPDX-License-Identifier: AGPL-3.0-only
package selector

import (
	"context"
	"time"

	"github.com/renzz/mcp-chat/internal/model"
)

// ScoreConfig bounds one scoring call.
type ScoreConfig struct {
	// TopK is the maximum number of tools to return.
	TopK int
	// MinScore drops tools scored below this relevance threshold.
	MinScore float64
}

// ScoredTool is one entry of a scorer's ranked output.
type ScoredTool struct {
	ToolName string
	Score    float64
}

// Scorer ranks catalog tools by relevance to the running conversation.
// Implementations are treated as fallible and possibly slow: a scoring
// failure degrades selection to the unfiltered fallback, never aborts
// the turn.
type Scorer interface {
	// Ready reports whether the scorer can serve requests (e.g. its
	// embedding index has been built).
	Ready() bool
	// Score ranks tools against the given conversation turns, returning
	// entries above cfg.MinScore truncated to cfg.TopK, plus the time
	// spent scoring.
	Score(ctx context.Context, turns []model.Message, cfg ScoreConfig) ([]ScoredTool, time.Duration, error)
}
