// SPDX-License-Identifier: AGPL-3.0-only
package model

// ToolSchema describes one remotely invocable tool as advertised by a
// server. Instances are immutable snapshots owned by the catalog.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// ToolRef identifies a tool on a specific server. Tool names are only
// unique within a server, so lookups are always server-scoped.
type ToolRef struct {
	ServerID string
	ToolName string
}

// FilterMetrics describes a single tool-selection pass. It is attached
// to a synthetic system message for observability and never influences
// control flow.
type FilterMetrics struct {
	ToolsUsed    int            `json:"tools_used"`
	ToolsTotal   int            `json:"tools_total"`
	FilterTimeMs int64          `json:"filter_time_ms"`
	Servers      map[string]int `json:"servers,omitempty"`
}
