// SPDX-License-Identifier: Apache-2.0

// Package executor drives validated plans against the tracker. A StepExecutor
// handles one step at a time and feeds the context store; a Runner owns the
// whole lifecycle from safety gate to terminal state.
package executor

import (
	"context"
	"log/slog"

	"github.com/kusari-oss/stitch/internal/core/logging"
	"github.com/kusari-oss/stitch/internal/core/memory"
	"github.com/kusari-oss/stitch/internal/core/plan"
	"github.com/kusari-oss/stitch/internal/core/subst"
	"github.com/kusari-oss/stitch/internal/stitch/tracker"
)

// StepExecutor executes single steps and accumulates their outputs. Each run
// gets its own StepExecutor so context from one run never leaks into another.
type StepExecutor struct {
	caller tracker.Caller
	store  *memory.Store
	logger *slog.Logger
}

// NewStepExecutor creates a step executor with an empty context store
func NewStepExecutor(caller tracker.Caller, logger *slog.Logger) *StepExecutor {
	if logger == nil {
		logger = slog.Default()
	}

	return &StepExecutor{
		caller: caller,
		store:  memory.NewStore(),
		logger: logger,
	}
}

// Store exposes the context accumulated by completed steps
func (e *StepExecutor) Store() memory.Reader {
	return e.store
}

// ExecuteStep resolves the step's placeholders against accumulated context,
// performs the call, and records the outputs of a successful response. A
// transport failure produces a StepResult with no status code.
func (e *StepExecutor) ExecuteStep(ctx context.Context, step plan.Step) plan.StepResult {
	result := plan.StepResult{
		Index:       step.Index,
		Description: step.Description,
	}

	resolved := subst.ResolveCall(step.Call, e.store)

	e.logger.Info("executing step",
		logging.Step(step.Index),
		logging.Method(resolved.Method),
		logging.Endpoint(resolved.Endpoint))

	outcome, err := e.caller.Call(ctx, tracker.Request{
		Method:   resolved.Method,
		Endpoint: resolved.Endpoint,
		Payload:  resolved.Payload,
		Query:    resolved.Query,
	})
	if err != nil {
		result.Response = plan.StepResponse{Error: err.Error()}
		e.logger.Error("step request failed", logging.Step(step.Index), logging.Error(err))
		return result
	}

	result.Success = outcome.Success
	result.Response = plan.StepResponse{
		StatusCode: outcome.StatusCode,
		Body:       outcome.Body,
		Error:      outcome.Error,
	}

	if outcome.Success {
		e.record(step.Index, outcome)
		e.logger.Info("step completed",
			logging.Step(step.Index),
			slog.Int("status_code", outcome.StatusCode))
	} else {
		e.logger.Warn("step failed",
			logging.Step(step.Index),
			slog.Int("status_code", outcome.StatusCode),
			logging.ErrorString(outcome.Error))
	}

	return result
}

// record stores the step's outputs for later placeholders. The id and key
// fields are only captured from object bodies; the full body is always kept.
func (e *StepExecutor) record(index int, outcome *tracker.Outcome) {
	rec := memory.StepRecord{Result: outcome.Body}

	if body, ok := outcome.Body.(map[string]interface{}); ok {
		if id, exists := body["id"]; exists {
			rec.ID = id
			rec.HasID = true
		}
		if key, exists := body["key"]; exists {
			rec.Key = key
			rec.HasKey = true
		}
	}

	if err := e.store.Record(index, rec); err != nil {
		// Validated plans have unique indexes, so this only fires on a
		// store that was reused across runs
		e.logger.Warn("step output not recorded", logging.Step(index), logging.Error(err))
	}
}
