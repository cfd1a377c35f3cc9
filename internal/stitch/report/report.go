// SPDX-License-Identifier: Apache-2.0

// Package report renders run summaries and delivers them back to where the
// request came from. Rendering is pure; delivery lives behind the Sink
// interface.
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/kusari-oss/stitch/internal/core/plan"
)

// Delivery bundles everything a sink needs to hand a finished run back to
// its origin.
type Delivery struct {
	// Target names the originating record for sinks that attach the
	// summary to it. May be empty for ad hoc runs.
	Target  string
	Plan    *plan.Plan
	Result  *plan.RunResult
	Summary string
}

// Sink delivers a finished run's summary somewhere useful
type Sink interface {
	Deliver(ctx context.Context, d Delivery) error
}

// RenderSummary builds the human-readable account of a run: the plan's
// understanding up front, one status line per attempted step, and the
// expected outcome at the end. Blocked runs render the reason and the
// outstanding safety checks instead of step lines.
func RenderSummary(p *plan.Plan, result *plan.RunResult) string {
	var b strings.Builder

	understanding := p.Understanding
	if understanding == "" {
		understanding = "N/A"
	}

	if result.Blocked {
		fmt.Fprintf(&b, "Request blocked: %s\n\n", result.BlockReason)
		fmt.Fprintf(&b, "**Understanding:** %s\n\n", understanding)

		if len(result.SafetyChecks) > 0 {
			b.WriteString("Safety checks to confirm:\n")
			for _, check := range result.SafetyChecks {
				fmt.Fprintf(&b, "- %s\n", check)
			}
		}

		return b.String()
	}

	successful := 0
	for _, step := range result.Steps {
		if step.Success {
			successful++
		}
	}

	// The denominator counts attempted steps, not planned ones; steps the
	// run never reached do not show up as failures
	fmt.Fprintf(&b, "Request completed: %d/%d steps successful\n\n", successful, len(result.Steps))
	fmt.Fprintf(&b, "**Understanding:** %s\n\n", understanding)

	for _, step := range result.Steps {
		status := "✅"
		if !step.Success {
			status = "❌"
		}
		fmt.Fprintf(&b, "%s Step %d: %s\n", status, step.Index, step.Description)

		if !step.Success {
			errText := step.Response.Error
			if errText == "" {
				errText = "Unknown error"
			}
			fmt.Fprintf(&b, "   Error: %s\n", errText)
		}
	}

	if p.ExpectedOutcome != "" {
		fmt.Fprintf(&b, "\n**Expected Result:** %s", p.ExpectedOutcome)
	}

	return b.String()
}
