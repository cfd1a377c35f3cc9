// SPDX-License-Identifier: Apache-2.0

package report_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kusari-oss/stitch/internal/core/plan"
	"github.com/kusari-oss/stitch/internal/stitch/report"
)

func TestRenderSummary(t *testing.T) {
	t.Run("CompletedRun", func(t *testing.T) {
		p := &plan.Plan{
			Understanding:   "Create a task and comment on it",
			ExpectedOutcome: "The task exists and carries one comment",
		}
		result := &plan.RunResult{
			State: plan.StateCompleted,
			Steps: []plan.StepResult{
				{Index: 1, Description: "Create the task", Success: true},
				{Index: 2, Description: "Comment on the task", Success: true},
			},
			CompletedCount: 2,
			TotalCount:     2,
		}

		expected := "Request completed: 2/2 steps successful\n\n" +
			"**Understanding:** Create a task and comment on it\n\n" +
			"✅ Step 1: Create the task\n" +
			"✅ Step 2: Comment on the task\n" +
			"\n**Expected Result:** The task exists and carries one comment"

		assert.Equal(t, expected, report.RenderSummary(p, result))
	})

	t.Run("AbortedRunCountsAttemptedSteps", func(t *testing.T) {
		p := &plan.Plan{Understanding: "Three things"}
		result := &plan.RunResult{
			State: plan.StateAborted,
			Steps: []plan.StepResult{
				{Index: 1, Description: "First", Success: true},
				{
					Index:       2,
					Description: "Second",
					Response:    plan.StepResponse{StatusCode: 404, Error: "HTTP 404 Not Found"},
				},
			},
			CompletedCount: 1,
			TotalCount:     3,
		}

		summary := report.RenderSummary(p, result)

		assert.Contains(t, summary, "Request completed: 1/2 steps successful",
			"the step the run never reached should not count")
		assert.Contains(t, summary, "❌ Step 2: Second\n   Error: HTTP 404 Not Found\n")
		assert.NotContains(t, summary, "Step 3")
	})

	t.Run("FailureWithoutErrorText", func(t *testing.T) {
		result := &plan.RunResult{
			Steps: []plan.StepResult{{Index: 1, Description: "Only step"}},
		}

		summary := report.RenderSummary(&plan.Plan{}, result)

		assert.Contains(t, summary, "   Error: Unknown error\n")
	})

	t.Run("MissingUnderstandingRendersNA", func(t *testing.T) {
		summary := report.RenderSummary(&plan.Plan{}, &plan.RunResult{})

		assert.Contains(t, summary, "**Understanding:** N/A")
	})

	t.Run("NoExpectedOutcomeOmitsFooter", func(t *testing.T) {
		result := &plan.RunResult{
			Steps: []plan.StepResult{{Index: 1, Description: "Step", Success: true}},
		}

		summary := report.RenderSummary(&plan.Plan{Understanding: "x"}, result)

		assert.False(t, strings.Contains(summary, "**Expected Result:**"))
	})

	t.Run("BlockedRunRendersChecks", func(t *testing.T) {
		p := &plan.Plan{Understanding: "Remove the stale task"}
		result := &plan.RunResult{
			State:        plan.StateBlocked,
			Blocked:      true,
			BlockReason:  "DELETE operation requires explicit confirmation",
			SafetyChecks: []string{"Verify the task is no longer referenced", "Back up first"},
		}

		summary := report.RenderSummary(p, result)

		assert.Contains(t, summary, "Request blocked: DELETE operation requires explicit confirmation")
		assert.Contains(t, summary, "- Verify the task is no longer referenced\n")
		assert.Contains(t, summary, "- Back up first\n")
		assert.NotContains(t, summary, "Step 1")
	})
}
