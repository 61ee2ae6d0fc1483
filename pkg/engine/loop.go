package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prajeetragavr/mcpagent/pkg/api"
	"github.com/prajeetragavr/mcpagent/pkg/observability"
	"github.com/prajeetragavr/mcpagent/pkg/provider"
	"github.com/prajeetragavr/mcpagent/pkg/registry"
)

// RunTurn executes one turn on a thread: history plus input goes to the
// backend, tool-call rounds run until the backend produces a final
// answer or the cycle budget runs out, and exactly [input, final] is
// appended to the store in one batch.
//
// A backend failure or a malformed tool call surfaces as
// *api.ReasoningEngineError and leaves the stored history untouched.
// Tool-level failures never abort the turn; they return to the backend
// as observations.
func (e *Engine) RunTurn(ctx context.Context, threadID string, input api.Message) (api.Message, error) {
	lock := e.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	observability.ActiveTurns.Inc()
	defer observability.ActiveTurns.Dec()

	history, err := e.store.Load(ctx, threadID)
	if err != nil {
		observability.TurnsTotal.WithLabelValues("store_error").Inc()
		return api.Message{}, fmt.Errorf("loading thread %s: %w", threadID, err)
	}

	tools := e.toolDefs()

	transcript := make([]api.Message, 0, len(e.system)+len(history)+1)
	transcript = append(transcript, e.system...)
	transcript = append(transcript, history...)
	transcript = append(transcript, input)

	for cycle := 0; cycle < e.cfg.MaxCycles; cycle++ {
		resp, err := e.prov.Complete(ctx, &provider.Request{
			Model:    e.cfg.Model,
			Messages: transcript,
			Tools:    tools,
		})
		if err != nil {
			observability.TurnsTotal.WithLabelValues("engine_error").Inc()
			return api.Message{}, &api.ReasoningEngineError{Err: err}
		}

		msg := resp.Message
		if len(msg.ToolCalls) == 0 {
			if err := e.store.Append(ctx, threadID, input, msg); err != nil {
				observability.TurnsTotal.WithLabelValues("store_error").Inc()
				return api.Message{}, fmt.Errorf("persisting turn on %s: %w", threadID, err)
			}
			observability.TurnsTotal.WithLabelValues("ok").Inc()
			return msg, nil
		}

		observations, err := e.runToolCalls(ctx, msg.ToolCalls)
		if err != nil {
			observability.TurnsTotal.WithLabelValues("engine_error").Inc()
			return api.Message{}, &api.ReasoningEngineError{Err: err}
		}

		transcript = append(transcript, msg)
		transcript = append(transcript, observations...)
	}

	// Budget exhausted: ask for an answer with the tools withheld so
	// the backend cannot keep requesting calls.
	slog.Warn("turn exceeded cycle budget", "thread", threadID, "max_cycles", e.cfg.MaxCycles)
	transcript = append(transcript, api.SystemMessage(
		"The tool budget for this turn is exhausted. Answer the user now with the information gathered so far."))

	resp, err := e.prov.Complete(ctx, &provider.Request{
		Model:    e.cfg.Model,
		Messages: transcript,
	})
	if err != nil {
		observability.TurnsTotal.WithLabelValues("engine_error").Inc()
		return api.Message{}, &api.ReasoningEngineError{Err: err}
	}

	final := resp.Message
	final.ToolCalls = nil
	if err := e.store.Append(ctx, threadID, input, final); err != nil {
		observability.TurnsTotal.WithLabelValues("store_error").Inc()
		return api.Message{}, fmt.Errorf("persisting turn on %s: %w", threadID, err)
	}
	observability.TurnsTotal.WithLabelValues("max_cycles").Inc()
	return final, nil
}

// runToolCalls dispatches one cycle's calls with bounded concurrency and
// returns the observations in issue order, regardless of completion
// order. A call whose arguments are not a JSON object is a reasoning
// fault and fails the whole cycle.
func (e *Engine) runToolCalls(ctx context.Context, calls []api.ToolCall) ([]api.Message, error) {
	argSets := make([]map[string]any, len(calls))
	for i, call := range calls {
		args := map[string]any{}
		if call.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
				return nil, fmt.Errorf("tool call %q carries malformed arguments: %w", call.Name, err)
			}
		}
		argSets[i] = args
	}

	results := make([]registry.Result, len(calls))
	sem := make(chan struct{}, e.cfg.ParallelTools)
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(i int, call api.ToolCall) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = e.caps.Invoke(ctx, call.Name, argSets[i])
		}(i, call)
	}
	wg.Wait()

	observations := make([]api.Message, len(calls))
	for i, call := range calls {
		content := results[i].Content
		if results[i].IsError {
			content = "Error: " + content
		}
		observations[i] = api.ToolMessage(call.ID, content)
	}
	return observations, nil
}

// toolDefs converts the capability catalog into the backend's tool
// declaration format.
func (e *Engine) toolDefs() []provider.ToolDef {
	catalog := e.caps.ListTools()
	defs := make([]provider.ToolDef, 0, len(catalog))
	for _, desc := range catalog {
		defs = append(defs, provider.ToolDef{
			Name:        desc.Name,
			Description: desc.Description,
			Parameters:  desc.InputSchema,
		})
	}
	return defs
}
