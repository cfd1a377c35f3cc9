// SPDX-License-Identifier: Apache-2.0

package plan

// RunState tracks a run through its lifecycle. Blocked and the two outcome
// states are terminal.
type RunState string

const (
	StatePending   RunState = "pending"
	StateBlocked   RunState = "blocked"
	StateRunning   RunState = "running"
	StateAborted   RunState = "aborted"
	StateCompleted RunState = "completed"
)

// StepResponse carries the normalized outcome of one external call
type StepResponse struct {
	StatusCode int         `json:"status_code,omitempty"`
	Body       interface{} `json:"body,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// StepResult records one attempted step. Steps that were never attempted
// because the run aborted or was blocked produce no StepResult at all.
type StepResult struct {
	Index       int          `json:"step"`
	Description string       `json:"description"`
	Success     bool         `json:"success"`
	Response    StepResponse `json:"response"`
}

// RunResult is the complete audit record of one run
type RunResult struct {
	RunID          string       `json:"run_id,omitempty"`
	State          RunState     `json:"state"`
	Steps          []StepResult `json:"steps"`
	Blocked        bool         `json:"blocked,omitempty"`
	BlockReason    string       `json:"block_reason,omitempty"`
	SafetyChecks   []string     `json:"safety_checks,omitempty"`
	CompletedCount int          `json:"completed_count"`
	TotalCount     int          `json:"total_count"`
}
