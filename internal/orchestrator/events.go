// SPDX-License-Identifier: AGPL-3.0-only
package orchestrator

import (
	"github.com/renzz/mcp-chat/internal/model"
)

// EventType identifies one kind of orchestrator event.
type EventType string

// Orchestrator event types, in rough emission order within a run.
const (
	EventRunStarted       EventType = "run_started"
	EventFilterMetrics    EventType = "filter_metrics"
	EventContentDelta     EventType = "content_delta"
	EventToolCallStarted  EventType = "tool_call_started"
	EventToolCallFinished EventType = "tool_call_finished"
	EventRunError         EventType = "run_error"
	EventRunFinished      EventType = "run_finished"
)

// Event is one entry of the typed stream consumed by presentation.
// Only the fields relevant to the event type are populated.
type Event struct {
	Type      EventType
	Iteration int
	Content   string
	Metrics   *model.FilterMetrics
	ToolCall  *model.ToolCall
	Result    *model.ToolResult
	Message   *model.Message
	Err       string
}

// EventSink receives orchestrator events. Sinks must not block; a slow
// sink stalls the streaming loop.
type EventSink func(Event)
