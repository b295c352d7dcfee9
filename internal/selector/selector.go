// SPDX-License-Identifier: AGPL-3.0-only
package selector

import (
	"context"
	"time"

	"github.com/renzz/mcp-chat/internal/catalog"
	"github.com/renzz/mcp-chat/internal/config"
	"github.com/renzz/mcp-chat/internal/logging"
	"github.com/renzz/mcp-chat/internal/model"
)

// Selected pairs a tool schema with the server that owns it.
type Selected struct {
	Ref    model.ToolRef
	Schema model.ToolSchema
}

// Selector decides which subset of the catalog to expose to the model
// for one completion call. Selection never hard-fails a conversation
// turn: every degraded path falls through to the unfiltered cap.
type Selector struct {
	scorer Scorer
	logger *logging.Logger
}

// New creates a Selector. scorer may be nil, which disables semantic
// filtering regardless of configuration.
func New(scorer Scorer, logger *logging.Logger) *Selector {
	return &Selector{scorer: scorer, logger: logger}
}

// Select produces the bounded tool list for one model call, in priority
// order: explicit pins, semantic filtering, then the unfiltered
// fallback. Metrics are nil in fallback mode, where no filtering
// happened.
func (s *Selector) Select(ctx context.Context, conversation []model.Message, snap *catalog.Snapshot, pins []model.Mention, cfg config.SelectorConfig) ([]Selected, *model.FilterMetrics) {
	total := snap.TotalTools()

	if len(pins) > 0 {
		selected := s.resolvePins(snap, pins)
		return selected, metricsFor(selected, total, 0)
	}

	if cfg.Enabled && s.scorer != nil && s.scorer.Ready() && total > 0 {
		selected, elapsed, err := s.selectSemantic(ctx, conversation, snap, cfg)
		if err != nil {
			s.logger.Warnf("Semantic tool filtering failed, falling back to unfiltered selection: %v", err)
		} else {
			return selected, metricsFor(selected, total, elapsed.Milliseconds())
		}
	}

	return s.selectFallback(snap, cfg.MaxFallbackTools), nil
}

// resolvePins maps the pin set to concrete schemas: a server pin takes
// every tool of that server, a tool pin takes the exact name (scoped to
// the pinned server when set, first server otherwise). Duplicate
// (server, tool) pairs collapse.
func (s *Selector) resolvePins(snap *catalog.Snapshot, pins []model.Mention) []Selected {
	var out []Selected
	seen := map[model.ToolRef]bool{}
	add := func(ref model.ToolRef, schema model.ToolSchema) {
		if seen[ref] {
			return
		}
		seen[ref] = true
		out = append(out, Selected{Ref: ref, Schema: schema})
	}

	for _, pin := range model.DedupMentions(pins) {
		switch pin.Kind {
		case model.MentionServer:
			for _, schema := range snap.ListTools(pin.ServerID) {
				add(model.ToolRef{ServerID: pin.ServerID, ToolName: schema.Name}, schema)
			}
		case model.MentionTool:
			if pin.ServerID != "" {
				for _, schema := range snap.ListTools(pin.ServerID) {
					if schema.Name == pin.ToolName {
						add(model.ToolRef{ServerID: pin.ServerID, ToolName: schema.Name}, schema)
						break
					}
				}
				continue
			}
			if ref, schema, ok := snap.FindTool(pin.ToolName); ok {
				add(ref, schema)
			} else {
				s.logger.Warnf("Pinned tool %s not found in catalog", pin.ToolName)
			}
		}
	}
	return out
}

// selectSemantic asks the scorer for the most relevant tools and maps
// the ranked names back to schemas via first-server lookup.
func (s *Selector) selectSemantic(ctx context.Context, conversation []model.Message, snap *catalog.Snapshot, cfg config.SelectorConfig) ([]Selected, time.Duration, error) {
	turns := make([]model.Message, 0, len(conversation))
	for _, m := range conversation {
		if m.Role == model.RoleSystem {
			continue
		}
		turns = append(turns, m)
	}

	scored, elapsed, err := s.scorer.Score(ctx, turns, ScoreConfig{
		TopK:     cfg.TopK,
		MinScore: cfg.MinScore,
	})
	if err != nil {
		return nil, 0, err
	}

	var out []Selected
	seen := map[model.ToolRef]bool{}
	for _, st := range scored {
		ref, schema, ok := snap.FindTool(st.ToolName)
		if !ok {
			s.logger.Debugf("Scorer returned unknown tool %s, skipping", st.ToolName)
			continue
		}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, Selected{Ref: ref, Schema: schema})
	}
	return out, elapsed, nil
}

// selectFallback takes all tools in catalog order up to the hard cap.
func (s *Selector) selectFallback(snap *catalog.Snapshot, cap int) []Selected {
	var out []Selected
	for _, serverID := range snap.AllServers() {
		for _, schema := range snap.ListTools(serverID) {
			if len(out) >= cap {
				s.logger.Warnf("Tool catalog exceeds fallback cap, truncating to %d of %d tools", cap, snap.TotalTools())
				return out
			}
			out = append(out, Selected{
				Ref:    model.ToolRef{ServerID: serverID, ToolName: schema.Name},
				Schema: schema,
			})
		}
	}
	return out
}

// Schemas extracts the provider-facing schemas from a selection.
func Schemas(selected []Selected) []model.ToolSchema {
	out := make([]model.ToolSchema, len(selected))
	for i, s := range selected {
		out[i] = s.Schema
	}
	return out
}

func metricsFor(selected []Selected, total int, filterMs int64) *model.FilterMetrics {
	servers := make(map[string]int)
	for _, s := range selected {
		servers[s.Ref.ServerID]++
	}
	return &model.FilterMetrics{
		ToolsUsed:    len(selected),
		ToolsTotal:   total,
		FilterTimeMs: filterMs,
		Servers:      servers,
	}
}
