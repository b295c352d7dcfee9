// SPDX-License-Identifier: AGPL-3.0-only
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/renzz/mcp-chat/internal/agent"
	"github.com/renzz/mcp-chat/internal/catalog"
	"github.com/renzz/mcp-chat/internal/config"
	"github.com/renzz/mcp-chat/internal/dispatch"
	"github.com/renzz/mcp-chat/internal/errors"
	"github.com/renzz/mcp-chat/internal/logging"
	"github.com/renzz/mcp-chat/internal/model"
	"github.com/renzz/mcp-chat/internal/selector"
)

// State is the orchestrator's position in the run state machine.
type State int

// Run states.
const (
	StateIdle State = iota
	StateSelecting
	StateStreaming
	StateDispatching
	StateFinalizing
)

// User-visible notices appended by the orchestrator.
const (
	emptyCompletionNotice = "I could not generate a response. Please try again."
	truncationNotice      = "I stopped after reaching the tool-use iteration limit. The results so far are above; ask me to continue if you need more."
)

// CatalogSource supplies immutable catalog snapshots, one per selection
// phase.
type CatalogSource interface {
	Snapshot() *catalog.Snapshot
}

// Orchestrator runs the filter→stream→accumulate→dispatch loop for one
// conversation. A single run is in flight at a time; new submissions
// while processing are rejected at the boundary.
type Orchestrator struct {
	cfg        *config.Config
	provider   agent.StreamProvider
	selector   *selector.Selector
	dispatcher *dispatch.Dispatcher
	catalog    CatalogSource
	store      model.MessageStore
	mentions   model.MentionStore
	logger     *logging.Logger
	sink       EventSink

	conversationID string

	mu      sync.Mutex
	running bool
	state   State
	history []*model.Message
}

// New creates an orchestrator for one conversation. store and mentions
// may be nil (no persistence, no pins); sink may be nil (no events).
func New(
	cfg *config.Config,
	provider agent.StreamProvider,
	sel *selector.Selector,
	dispatcher *dispatch.Dispatcher,
	cat CatalogSource,
	store model.MessageStore,
	mentions model.MentionStore,
	logger *logging.Logger,
	sink EventSink,
	conversationID string,
) *Orchestrator {
	return &Orchestrator{
		cfg:            cfg,
		provider:       provider,
		selector:       sel,
		dispatcher:     dispatcher,
		catalog:        cat,
		store:          store,
		mentions:       mentions,
		logger:         logger,
		sink:           sink,
		conversationID: conversationID,
	}
}

// LoadHistory restores the conversation transcript from the store.
func (o *Orchestrator) LoadHistory() error {
	if o.store == nil {
		return nil
	}
	msgs, err := o.store.LoadMessages(o.conversationID)
	if err != nil {
		return fmt.Errorf("load conversation %s: %w", o.conversationID, err)
	}
	o.mu.Lock()
	o.history = msgs
	o.mu.Unlock()
	return nil
}

// History returns a copy of the UI-facing transcript, synthetic
// messages included.
func (o *Orchestrator) History() []*model.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*model.Message, len(o.history))
	copy(out, o.history)
	return out
}

// IsProcessing reports whether a run is in flight.
func (o *Orchestrator) IsProcessing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// State returns the current run state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) emit(e Event) {
	if o.sink != nil {
		o.sink(e)
	}
}

// append adds a message to the transcript and persists it best-effort.
func (o *Orchestrator) append(msg *model.Message) {
	o.mu.Lock()
	o.history = append(o.history, msg)
	o.mu.Unlock()
	model.PersistAndLogMessage(o.store, msg, o.logger)
}

// providerTranscript converts the UI-facing history into the
// provider-format transcript: system and synthetic messages (metrics,
// error notices) are excluded, the system prompt travels separately.
func (o *Orchestrator) providerTranscript() []model.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]model.Message, 0, len(o.history))
	for _, m := range o.history {
		if m.Role == model.RoleSystem || m.Synthetic {
			continue
		}
		out = append(out, *m)
	}
	return out
}

// loadPins reads the persisted mention set. Failures degrade to an
// empty pin set; pins never block a run.
func (o *Orchestrator) loadPins() []model.Mention {
	if o.mentions == nil {
		return nil
	}
	pins, err := o.mentions.LoadMentions()
	if err != nil {
		o.logger.Warnf("Failed to load pinned tools, proceeding without pins: %v", err)
		return nil
	}
	return pins
}

// Run executes one user turn: it appends the user message, then loops
// {select → stream → accumulate → dispatch} until the model produces an
// answer without tool calls or the iteration bound is hit. The returned
// message is the terminal assistant message.
//
// Tool-level failures are folded into the transcript as error results
// the model can react to. A stream-transport failure aborts the whole
// run: partial content is kept, one synthetic error message is
// appended, and the error is returned.
func (o *Orchestrator) Run(ctx context.Context, userText string) (*model.Message, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, errors.Busy("conversation")
	}
	o.running = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.running = false
		o.state = StateIdle
		o.mu.Unlock()
	}()

	logger := o.logger.WithField("conversation_id", o.conversationID)
	o.emit(Event{Type: EventRunStarted})

	userMsg := model.NewUserMessage(o.conversationID, userText)
	o.append(userMsg)

	maxIterations := o.cfg.AI.MaxToolIterations
	for i := 0; i < maxIterations; i++ {
		logger.Debugf("Run iteration %d", i+1)

		// Selecting
		o.setState(StateSelecting)
		snap := o.catalog.Snapshot()
		selected, metrics := o.selector.Select(ctx, o.providerTranscript(), snap, o.loadPins(), o.cfg.Selector)
		if metrics != nil {
			metricsMsg := model.NewSyntheticMessage(o.conversationID, fmt.Sprintf(
				"Tool filter: exposing %d of %d tools (%dms)",
				metrics.ToolsUsed, metrics.ToolsTotal, metrics.FilterTimeMs,
			))
			metricsMsg.Metrics = metrics
			o.append(metricsMsg)
			o.emit(Event{Type: EventFilterMetrics, Iteration: i + 1, Metrics: metrics})
		}

		// Streaming is the run's only suspension point.
		o.setState(StateStreaming)
		stream, err := o.provider.Stream(ctx, o.cfg.AI.Model, o.cfg.AI.SystemPrompt, o.providerTranscript(), selector.Schemas(selected))
		if err != nil {
			return nil, o.abortRun(logger, "", err)
		}

		acc := agent.NewAccumulator()
		for stream.Next() {
			delta := stream.Current()
			acc.Feed(delta)
			if delta.Content != "" {
				o.emit(Event{Type: EventContentDelta, Iteration: i + 1, Content: delta.Content})
			}
		}
		streamErr := stream.Err()
		_ = stream.Close()
		if streamErr != nil {
			return nil, o.abortRun(logger, acc.Content(), streamErr)
		}

		if acc.Empty() {
			logger.Warnf("Provider returned an empty completion, substituting fallback notice")
			notice := model.NewAssistantMessage(o.conversationID, emptyCompletionNotice, nil)
			o.append(notice)
			o.finishRun(notice)
			return notice, nil
		}

		assistantMsg := model.NewAssistantMessage(o.conversationID, acc.Content(), acc.ToolCalls())
		o.append(assistantMsg)

		// No tool calls: the accumulated message is the answer.
		if len(assistantMsg.ToolCalls) == 0 {
			logger.Infof("Run completed in %d iteration(s)", i+1)
			o.finishRun(assistantMsg)
			return assistantMsg, nil
		}

		// Dispatching runs sequentially in transcript order.
		o.setState(StateDispatching)
		logger.Debugf("Dispatching %d tool call(s) in iteration %d", len(assistantMsg.ToolCalls), i+1)
		for _, call := range assistantMsg.ToolCalls {
			call := call
			o.emit(Event{Type: EventToolCallStarted, Iteration: i + 1, ToolCall: &call})

			result := o.dispatcher.Execute(ctx, call, snap)
			o.append(model.NewToolMessage(o.conversationID, result))
			o.emit(Event{Type: EventToolCallFinished, Iteration: i + 1, ToolCall: &call, Result: result})
		}
	}

	// Iteration bound hit: deliberate truncation, not an error.
	logger.Warnf("Run reached the maximum of %d tool iterations, truncating", maxIterations)
	notice := model.NewAssistantMessage(o.conversationID, truncationNotice, nil)
	o.append(notice)
	o.finishRun(notice)
	return notice, nil
}

// finishRun transitions through Finalizing and emits the terminal event.
func (o *Orchestrator) finishRun(msg *model.Message) {
	o.setState(StateFinalizing)
	o.emit(Event{Type: EventRunFinished, Message: msg})
}

// abortRun handles a stream-transport failure: partial streamed content
// is preserved in the transcript, one synthetic error message is
// appended, and control returns to Idle.
func (o *Orchestrator) abortRun(logger *logging.Logger, partialContent string, cause error) error {
	logger.Errorf("Streaming failed, aborting run: %v", cause)
	if partialContent != "" {
		o.append(model.NewAssistantMessage(o.conversationID, partialContent, nil))
	}
	errMsg := model.NewSyntheticMessage(o.conversationID, fmt.Sprintf("The model request failed: %v", cause))
	o.append(errMsg)
	o.emit(Event{Type: EventRunError, Err: cause.Error()})
	return fmt.Errorf("stream completion: %w", cause)
}
