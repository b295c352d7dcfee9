// SPDX-License-Identifier: AGPL-3.0-only
package agent

import (
	"testing"
)

func TestAccumulator_ContentConcatenation(t *testing.T) {
	acc := NewAccumulator()
	acc.Feed(Delta{Content: "Hello"})
	acc.Feed(Delta{Content: ", "})
	acc.Feed(Delta{Content: "world"})

	if acc.Content() != "Hello, world" {
		t.Errorf("Expected content 'Hello, world', got '%s'", acc.Content())
	}
	if len(acc.ToolCalls()) != 0 {
		t.Errorf("Expected 0 tool calls, got %d", len(acc.ToolCalls()))
	}
}

func TestAccumulator_SingleToolCallSplitAcrossDeltas(t *testing.T) {
	// Index 0 split across 3 deltas: name, then two argument fragments.
	acc := NewAccumulator()
	acc.Feed(Delta{ToolCalls: []ToolCallFragment{{Index: 0, ID: "call_1", Name: "foo"}}})
	acc.Feed(Delta{ToolCalls: []ToolCallFragment{{Index: 0, ArgumentsFragment: `{"a":1`}}})
	acc.Feed(Delta{ToolCalls: []ToolCallFragment{{Index: 0, ArgumentsFragment: `}`}}})

	calls := acc.ToolCalls()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 tool call, got %d", len(calls))
	}
	if calls[0].Name != "foo" {
		t.Errorf("Expected name 'foo', got '%s'", calls[0].Name)
	}
	if calls[0].Arguments != `{"a":1}` {
		t.Errorf("Expected arguments '{\"a\":1}', got '%s'", calls[0].Arguments)
	}
}

func TestAccumulator_InterleavedIndices(t *testing.T) {
	// Fragments for two calls interleaved; each call's arguments must
	// equal the arrival-order concatenation of its own fragments.
	acc := NewAccumulator()
	acc.Feed(Delta{ToolCalls: []ToolCallFragment{{Index: 1, ID: "call_b", Name: "bar"}}})
	acc.Feed(Delta{ToolCalls: []ToolCallFragment{{Index: 0, ID: "call_a", Name: "foo"}}})
	acc.Feed(Delta{ToolCalls: []ToolCallFragment{
		{Index: 0, ArgumentsFragment: `{"x":`},
		{Index: 1, ArgumentsFragment: `{"y":`},
	}})
	acc.Feed(Delta{ToolCalls: []ToolCallFragment{{Index: 1, ArgumentsFragment: `2}`}}})
	acc.Feed(Delta{ToolCalls: []ToolCallFragment{{Index: 0, ArgumentsFragment: `1}`}}})

	calls := acc.ToolCalls()
	if len(calls) != 2 {
		t.Fatalf("Expected 2 tool calls, got %d", len(calls))
	}
	// Ordered by index, not arrival.
	if calls[0].ID != "call_a" || calls[0].Arguments != `{"x":1}` {
		t.Errorf("Expected call_a with '{\"x\":1}', got %s with '%s'", calls[0].ID, calls[0].Arguments)
	}
	if calls[1].ID != "call_b" || calls[1].Arguments != `{"y":2}` {
		t.Errorf("Expected call_b with '{\"y\":2}', got %s with '%s'", calls[1].ID, calls[1].Arguments)
	}
}

func TestAccumulator_IDAndNameOverwrite(t *testing.T) {
	acc := NewAccumulator()
	acc.Feed(Delta{ToolCalls: []ToolCallFragment{{Index: 3, ID: "partial"}}})
	acc.Feed(Delta{ToolCalls: []ToolCallFragment{{Index: 3, ID: "call_full", Name: "tool_x"}}})
	acc.Feed(Delta{ToolCalls: []ToolCallFragment{{Index: 3, ArgumentsFragment: `{}`}}})

	calls := acc.ToolCalls()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 tool call, got %d", len(calls))
	}
	if calls[0].ID != "call_full" {
		t.Errorf("Expected ID 'call_full', got '%s'", calls[0].ID)
	}
	if calls[0].Name != "tool_x" {
		t.Errorf("Expected name 'tool_x', got '%s'", calls[0].Name)
	}
}

func TestAccumulator_NonContiguousIndices(t *testing.T) {
	// Indices need not be contiguous, only unique within the response.
	acc := NewAccumulator()
	acc.Feed(Delta{ToolCalls: []ToolCallFragment{{Index: 5, ID: "call_5", Name: "late"}}})
	acc.Feed(Delta{ToolCalls: []ToolCallFragment{{Index: 2, ID: "call_2", Name: "early"}}})

	calls := acc.ToolCalls()
	if len(calls) != 2 {
		t.Fatalf("Expected 2 tool calls, got %d", len(calls))
	}
	if calls[0].ID != "call_2" || calls[1].ID != "call_5" {
		t.Errorf("Expected index order call_2, call_5; got %s, %s", calls[0].ID, calls[1].ID)
	}
}

func TestAccumulator_MixedContentAndToolCalls(t *testing.T) {
	acc := NewAccumulator()
	acc.Feed(Delta{Content: "Let me check. ", ToolCalls: []ToolCallFragment{{Index: 0, ID: "call_1", Name: "lookup"}}})
	acc.Feed(Delta{ToolCalls: []ToolCallFragment{{Index: 0, ArgumentsFragment: `{"q":"x"}`}}})

	if acc.Content() != "Let me check. " {
		t.Errorf("Expected content 'Let me check. ', got '%s'", acc.Content())
	}
	if len(acc.ToolCalls()) != 1 {
		t.Errorf("Expected 1 tool call, got %d", len(acc.ToolCalls()))
	}
	if acc.Empty() {
		t.Error("Expected accumulator to be non-empty")
	}
}

func TestAccumulator_Empty(t *testing.T) {
	acc := NewAccumulator()
	if !acc.Empty() {
		t.Error("Expected fresh accumulator to be empty")
	}
	acc.Feed(Delta{})
	if !acc.Empty() {
		t.Error("Expected accumulator to stay empty after a blank delta")
	}
}
