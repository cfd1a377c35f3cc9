// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"fmt"
	"strings"
)

// Validate checks the structural invariants of a plan and returns a list of
// issues. An empty list means the plan is executable.
func Validate(p *Plan) []string {
	var issues []string

	if p == nil {
		return []string{"plan is nil"}
	}

	if len(p.Steps) == 0 {
		issues = append(issues, "plan has no steps")
		return issues
	}

	lastIndex := 0
	for i, step := range p.Steps {
		if step.Index < 1 {
			issues = append(issues, fmt.Sprintf("step at position %d has non-positive index %d", i, step.Index))
		}

		// Indexes must be strictly ascending, which also rules out duplicates
		if step.Index <= lastIndex {
			issues = append(issues, fmt.Sprintf("step index %d is not ascending (previous was %d)", step.Index, lastIndex))
		}
		lastIndex = step.Index

		method := strings.ToUpper(step.Call.Method)
		if !ValidMethods[method] {
			issues = append(issues, fmt.Sprintf("step %d has unsupported method %q", step.Index, step.Call.Method))
		}

		if strings.TrimSpace(step.Call.Endpoint) == "" {
			issues = append(issues, fmt.Sprintf("step %d has an empty endpoint", step.Index))
		}
	}

	return issues
}
