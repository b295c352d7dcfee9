// SPDX-License-Identifier: AGPL-3.0-only
package model

import "testing"

func TestMentionEqual(t *testing.T) {
	a := Mention{Kind: MentionTool, ServerID: "github", ToolName: "create_issue"}
	b := Mention{Kind: MentionTool, ServerID: "github", ToolName: "create_issue"}
	c := Mention{Kind: MentionTool, ServerID: "gitlab", ToolName: "create_issue"}

	if !a.Equal(b) {
		t.Error("Expected identical mentions to be equal")
	}
	if a.Equal(c) {
		t.Error("Expected mentions on different servers to differ")
	}
	if a.Equal(Mention{Kind: MentionServer, ServerID: "github"}) {
		t.Error("Expected tool and server mentions to differ")
	}
}

func TestDedupMentions(t *testing.T) {
	server := Mention{Kind: MentionServer, ServerID: "github"}
	tool := Mention{Kind: MentionTool, ServerID: "github", ToolName: "create_issue"}

	out := DedupMentions([]Mention{server, tool, server, tool, server})
	if len(out) != 2 {
		t.Fatalf("Expected 2 unique mentions, got %d", len(out))
	}
	// First-seen order is preserved.
	if out[0].Kind != MentionServer {
		t.Errorf("Expected server mention first, got %+v", out[0])
	}
	if out[1].ToolName != "create_issue" {
		t.Errorf("Expected tool mention second, got %+v", out[1])
	}
}

func TestDedupMentionsEmpty(t *testing.T) {
	if out := DedupMentions(nil); len(out) != 0 {
		t.Errorf("Expected empty result, got %v", out)
	}
}
