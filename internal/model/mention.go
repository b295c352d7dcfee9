// SPDX-License-Identifier: AGPL-3.0-only
package model

// Mention kinds.
const (
	MentionServer = "server"
	MentionTool   = "tool"
)

// Mention is an explicit user pin that forces tools into scope,
// bypassing relevance filtering. A server mention pins every tool of
// that server; a tool mention pins one tool on one server.
type Mention struct {
	Kind     string `json:"kind"`
	ServerID string `json:"server_id"`
	ToolName string `json:"tool_name,omitempty"`
}

// Equal reports whether two mentions refer to the same pin tuple.
func (m Mention) Equal(o Mention) bool {
	return m.Kind == o.Kind && m.ServerID == o.ServerID && m.ToolName == o.ToolName
}

// DedupMentions removes duplicate (kind, server, tool) tuples,
// preserving first-seen order.
func DedupMentions(mentions []Mention) []Mention {
	out := make([]Mention, 0, len(mentions))
	for _, m := range mentions {
		dup := false
		for _, seen := range out {
			if seen.Equal(m) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, m)
		}
	}
	return out
}
