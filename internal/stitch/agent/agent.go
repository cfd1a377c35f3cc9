// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kusari-oss/stitch/internal/core/logging"
	"github.com/kusari-oss/stitch/internal/core/plan"
	"github.com/kusari-oss/stitch/internal/stitch/executor"
	"github.com/kusari-oss/stitch/internal/stitch/planner"
	"github.com/kusari-oss/stitch/internal/stitch/report"
)

// Agent turns one request into a finished run: plan it, gate it, execute it,
// and hand the summary to the sink.
type Agent struct {
	profile Profile
	planner planner.Generator
	runner  *executor.Runner
	sink    report.Sink
	logger  *slog.Logger
}

// Request is one unit of intake work
type Request struct {
	// Target names the record the request came from; sinks use it to
	// deliver the summary. Empty for ad hoc runs.
	Target      string
	Summary     string
	Description string
}

// Outcome is what Process hands back to its caller. Delivery through the
// sink has already been attempted by then.
type Outcome struct {
	Result  *plan.RunResult
	Summary string
}

var ErrEmptyRequest = errors.New("request has no text to plan from")

// FullText composes the planner input the way tracker records read: summary
// line, blank line, body.
func (r Request) FullText() string {
	return strings.TrimSpace(r.Summary + "\n\n" + r.Description)
}

// New creates an agent from its collaborators. A nil sink skips delivery.
func New(profile Profile, gen planner.Generator, runner *executor.Runner, sink report.Sink, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}

	return &Agent{
		profile: profile,
		planner: gen,
		runner:  runner,
		sink:    sink,
		logger:  logger.With(logging.Agent(profile.Name)),
	}
}

// Profile returns the profile this agent was built from
func (a *Agent) Profile() Profile {
	return a.profile
}

// Process drives a request end to end. Errors cover the stages before
// execution starts; once the runner takes over, outcomes land in the
// RunResult. A failed summary delivery is logged but does not fail the
// run that already happened.
func (a *Agent) Process(ctx context.Context, req Request) (*Outcome, error) {
	text := req.FullText()
	if text == "" {
		return nil, ErrEmptyRequest
	}

	a.logger.Info("processing request",
		slog.String("target", req.Target),
		slog.Int("request_chars", len(text)))

	p, err := a.planner.GeneratePlan(ctx, text)
	if err != nil {
		a.logger.Error("plan generation failed", logging.Error(err))
		return nil, err
	}

	a.logger.Info("plan generated",
		slog.String("understanding", p.Understanding),
		slog.Int("steps", len(p.Steps)))

	result, err := a.runner.Run(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("error running plan: %w", err)
	}

	summary := report.RenderSummary(p, result)

	if a.sink != nil && req.Target != "" {
		delivery := report.Delivery{
			Target:  req.Target,
			Plan:    p,
			Result:  result,
			Summary: summary,
		}
		if err := a.sink.Deliver(ctx, delivery); err != nil {
			a.logger.Error("summary delivery failed",
				logging.RunID(result.RunID),
				logging.Error(err))
		}
	}

	return &Outcome{Result: result, Summary: summary}, nil
}
