// SPDX-License-Identifier: AGPL-3.0-only
package agent

import (
	"sort"
	"strings"

	"github.com/renzz/mcp-chat/internal/model"
)

// Accumulator reassembles a streamed completion from delta fragments
// into a complete assistant message. Content fragments concatenate in
// arrival order; tool-call fragments are keyed by index, with ID and
// name overwritten when present and argument fragments appended.
type Accumulator struct {
	content strings.Builder
	calls   map[int]*pendingCall
}

type pendingCall struct {
	id   string
	name string
	args strings.Builder
}

// NewAccumulator creates an empty accumulator for one streaming
// response.
func NewAccumulator() *Accumulator {
	return &Accumulator{calls: make(map[int]*pendingCall)}
}

// Feed consumes one delta.
func (a *Accumulator) Feed(d Delta) {
	if d.Content != "" {
		a.content.WriteString(d.Content)
	}
	for _, f := range d.ToolCalls {
		call, ok := a.calls[f.Index]
		if !ok {
			call = &pendingCall{}
			a.calls[f.Index] = call
		}
		if f.ID != "" {
			call.id = f.ID
		}
		if f.Name != "" {
			call.name = f.Name
		}
		if f.ArgumentsFragment != "" {
			call.args.WriteString(f.ArgumentsFragment)
		}
	}
}

// Content returns the text accumulated so far.
func (a *Accumulator) Content() string {
	return a.content.String()
}

// Empty reports whether the stream produced neither content nor tool
// calls.
func (a *Accumulator) Empty() bool {
	return a.content.Len() == 0 && len(a.calls) == 0
}

// ToolCalls returns the reconstructed tool calls ordered by fragment
// index.
func (a *Accumulator) ToolCalls() []model.ToolCall {
	if len(a.calls) == 0 {
		return nil
	}
	indices := make([]int, 0, len(a.calls))
	for i := range a.calls {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	out := make([]model.ToolCall, 0, len(indices))
	for _, i := range indices {
		call := a.calls[i]
		out = append(out, model.ToolCall{
			ID:        call.id,
			Name:      call.name,
			Arguments: call.args.String(),
		})
	}
	return out
}
