// SPDX-License-Identifier: AGPL-3.0-only
package catalog

import (
	"github.com/renzz/mcp-chat/internal/model"
)

// Snapshot is a read-only view of the tool catalog at one point in
// time: server identifier to the list of tool schemas known for it.
// Server order is stable across reads of the same snapshot.
type Snapshot struct {
	order []string
	tools map[string][]model.ToolSchema
}

func emptySnapshot() *Snapshot {
	return &Snapshot{tools: map[string][]model.ToolSchema{}}
}

// NewSnapshot builds a snapshot with the given server order. Intended
// for tests and local composition; the Manager builds production
// snapshots.
func NewSnapshot(order []string, tools map[string][]model.ToolSchema) *Snapshot {
	return &Snapshot{order: order, tools: tools}
}

// AllServers returns the server identifiers in catalog order.
func (s *Snapshot) AllServers() []string {
	return s.order
}

// ListTools returns the tool schemas for one server.
func (s *Snapshot) ListTools(serverID string) []model.ToolSchema {
	return s.tools[serverID]
}

// TotalTools returns the number of tools across all servers.
func (s *Snapshot) TotalTools() int {
	n := 0
	for _, list := range s.tools {
		n += len(list)
	}
	return n
}

// FindTool scans the catalog in server order for a tool with the given
// name. First match wins; when multiple servers expose identically
// named tools the earlier server shadows the later ones.
func (s *Snapshot) FindTool(name string) (model.ToolRef, model.ToolSchema, bool) {
	for _, serverID := range s.order {
		for _, schema := range s.tools[serverID] {
			if schema.Name == name {
				return model.ToolRef{ServerID: serverID, ToolName: name}, schema, true
			}
		}
	}
	return model.ToolRef{}, model.ToolSchema{}, false
}
