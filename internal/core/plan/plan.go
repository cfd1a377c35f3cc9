// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"fmt"
	"strings"

	"github.com/kusari-oss/stitch/internal/core/format"
)

// Supported HTTP methods for plan steps
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodPatch  = "PATCH"
	MethodDelete = "DELETE"
)

// ValidMethods is the set of methods a step call may use
var ValidMethods = map[string]bool{
	MethodGet:    true,
	MethodPost:   true,
	MethodPut:    true,
	MethodPatch:  true,
	MethodDelete: true,
}

// Plan represents a machine-produced execution plan. The steps array is keyed
// "plan" on the wire to match the planner output contract.
type Plan struct {
	Understanding   string   `json:"understanding,omitempty" yaml:"understanding,omitempty"`
	Steps           []Step   `json:"plan" yaml:"plan"`
	SafetyChecks    []string `json:"safety_checks,omitempty" yaml:"safety_checks,omitempty"`
	ExpectedOutcome string   `json:"expected_outcome,omitempty" yaml:"expected_outcome,omitempty"`
}

// Step represents a single unit of work in a plan
type Step struct {
	Index       int    `json:"step" yaml:"step"`
	Description string `json:"description" yaml:"description"`
	Call        Call   `json:"api_call" yaml:"api_call"`
}

// Call describes one REST call. Payload may be arbitrarily nested and may
// contain {{name}} placeholders anywhere, including inside query values.
type Call struct {
	Method   string                 `json:"method" yaml:"method"`
	Endpoint string                 `json:"endpoint" yaml:"endpoint"`
	Payload  interface{}            `json:"payload,omitempty" yaml:"payload,omitempty"`
	Query    map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
}

// LoadFile reads a plan document from a YAML or JSON file and validates it
func LoadFile(path string) (*Plan, error) {
	var p Plan
	if err := format.ParseFile(path, &p); err != nil {
		return nil, fmt.Errorf("error parsing plan file: %w", err)
	}

	canonicalize(&p)
	if issues := Validate(&p); len(issues) > 0 {
		return nil, fmt.Errorf("invalid plan: %s", strings.Join(issues, "; "))
	}

	return &p, nil
}

// canonicalize upper-cases step methods so later comparisons are exact
func canonicalize(p *Plan) {
	for i := range p.Steps {
		p.Steps[i].Call.Method = strings.ToUpper(strings.TrimSpace(p.Steps[i].Call.Method))
	}
}
