// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/kusari-oss/stitch/internal/core/gate"
	"github.com/kusari-oss/stitch/internal/core/logging"
	"github.com/kusari-oss/stitch/internal/core/plan"
	"github.com/kusari-oss/stitch/internal/stitch/tracker"
)

// Runner drives whole plans. It holds no per-run state, so a single Runner
// can serve concurrent runs.
type Runner struct {
	caller tracker.Caller
	gate   *gate.Gate
	logger *slog.Logger
}

// NewRunner creates a runner. A nil gate gets the built-in safety checks
// with no custom rules; a nil logger falls back to the default.
func NewRunner(caller tracker.Caller, g *gate.Gate, logger *slog.Logger) *Runner {
	if g == nil {
		g, _ = gate.New(gate.Config{})
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		caller: caller,
		gate:   g,
		logger: logger,
	}
}

// Run executes the plan sequentially, stopping at the first failed step. The
// returned error covers pre-run problems only (invalid plans, broken safety
// rules); once the gate has been consulted, every outcome is reported
// through the RunResult.
func (r *Runner) Run(ctx context.Context, p *plan.Plan) (*plan.RunResult, error) {
	if issues := plan.Validate(p); len(issues) > 0 {
		return nil, fmt.Errorf("invalid plan: %s", strings.Join(issues, "; "))
	}

	result := &plan.RunResult{
		RunID:        uuid.New().String(),
		State:        plan.StatePending,
		SafetyChecks: p.SafetyChecks,
		TotalCount:   len(p.Steps),
	}

	logger := r.logger.With(logging.RunID(result.RunID))

	decision, err := r.gate.Inspect(p)
	if err != nil {
		return nil, fmt.Errorf("error inspecting plan: %w", err)
	}
	if decision.Blocked {
		result.State = plan.StateBlocked
		result.Blocked = true
		result.BlockReason = decision.Reason
		result.SafetyChecks = decision.Checks
		logger.Warn("run blocked",
			logging.State(result.State),
			slog.String("reason", decision.Reason))
		return result, nil
	}

	result.State = plan.StateRunning
	logger.Info("run started", slog.Int("total_steps", result.TotalCount))

	steps := NewStepExecutor(r.caller, logger)
	for _, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			result.Steps = append(result.Steps, plan.StepResult{
				Index:       step.Index,
				Description: step.Description,
				Response:    plan.StepResponse{Error: err.Error()},
			})
			result.State = plan.StateAborted
			logger.Warn("run cancelled", logging.Step(step.Index), logging.State(result.State))
			return result, nil
		}

		stepResult := steps.ExecuteStep(ctx, step)
		result.Steps = append(result.Steps, stepResult)

		if !stepResult.Success {
			result.State = plan.StateAborted
			logger.Warn("run aborted",
				logging.Step(step.Index),
				logging.State(result.State),
				slog.Int("completed", result.CompletedCount))
			return result, nil
		}

		result.CompletedCount++
	}

	result.State = plan.StateCompleted
	logger.Info("run completed",
		logging.State(result.State),
		slog.Int("completed", result.CompletedCount))
	return result, nil
}
