// SPDX-License-Identifier: AGPL-3.0-only
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/renzz/mcp-chat/internal/catalog"
	"github.com/renzz/mcp-chat/internal/logging"
	"github.com/renzz/mcp-chat/internal/model"
)

// ErrToolNotFound is the error payload reported back into the model's
// context when no server owns the requested tool name.
const ErrToolNotFound = "tool not found"

// Dispatcher resolves which server owns a requested tool and invokes
// it. Every failure mode is captured in the returned ToolResult; no
// error escapes this boundary, so one bad call never aborts a run.
type Dispatcher struct {
	invoker catalog.Invoker
	logger  *logging.Logger
	timeout time.Duration
	strict  bool
}

// New creates a Dispatcher. timeout bounds each remote invocation;
// strict enables JSON-schema validation of arguments before dispatch.
func New(invoker catalog.Invoker, logger *logging.Logger, timeout time.Duration, strict bool) *Dispatcher {
	return &Dispatcher{
		invoker: invoker,
		logger:  logger,
		timeout: timeout,
		strict:  strict,
	}
}

// Execute runs one tool call against the catalog snapshot and returns
// its result. Resolution is first-match in server order.
func (d *Dispatcher) Execute(ctx context.Context, call model.ToolCall, snap *catalog.Snapshot) *model.ToolResult {
	result := &model.ToolResult{
		ToolCallID: call.ID,
		ToolName:   call.Name,
	}

	ref, schema, ok := snap.FindTool(call.Name)
	if !ok {
		d.logger.Warnf("Tool call %s requested unknown tool %s", call.ID, call.Name)
		result.Error = ErrToolNotFound
		return result
	}
	result.ServerID = ref.ServerID

	// Malformed arguments are rejected locally, before any network call.
	var args interface{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			result.Error = fmt.Sprintf("invalid tool arguments: %v", err)
			return result
		}
	}

	if d.strict {
		if err := validateArgs(schema, args); err != nil {
			result.Error = fmt.Sprintf("tool arguments failed schema validation: %v", err)
			return result
		}
	}

	invokeCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		invokeCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := d.invoker.Invoke(invokeCtx, ref.ServerID, call.Name, call.Arguments)
	result.ExecutionMs = time.Since(start).Milliseconds()

	if err != nil {
		d.logger.Warnf("Tool %s on server %s failed after %dms: %v", call.Name, ref.ServerID, result.ExecutionMs, err)
		result.Error = err.Error()
		return result
	}

	d.logger.Debugf("Tool %s on server %s completed in %dms", call.Name, ref.ServerID, result.ExecutionMs)
	result.Content = out
	return result
}

// validateArgs checks parsed arguments against the tool's input schema.
func validateArgs(schema model.ToolSchema, args interface{}) error {
	if len(schema.Parameters) == 0 {
		return nil
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("tool.json", toJSONValue(schema.Parameters)); err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	compiled, err := compiler.Compile("tool.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	return compiled.Validate(toJSONValue(args))
}

// toJSONValue round-trips a value through JSON so the validator sees
// canonical JSON types regardless of how the schema map was built.
func toJSONValue(v interface{}) interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}
