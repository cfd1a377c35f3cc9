// SPDX-License-Identifier: Apache-2.0

// Package gate inspects a whole plan before execution and can veto the run.
package gate

import (
	"fmt"
	"strings"

	"github.com/kusari-oss/stitch/internal/core/plan"
)

// DefaultDestructive lists the methods treated as irreversible when no
// override is configured.
var DefaultDestructive = []string{plan.MethodDelete}

// Decision is the gate's verdict on a plan. The zero value means proceed.
type Decision struct {
	Blocked bool     `json:"blocked"`
	Reason  string   `json:"reason,omitempty"`
	Checks  []string `json:"safety_checks,omitempty"`
}

// Config controls which methods count as destructive and which additional
// veto rules apply.
type Config struct {
	// DestructiveMethods overrides DefaultDestructive when non-empty.
	DestructiveMethods []string

	// Rules are additional CEL veto rules evaluated after the built-in
	// check. Rules can only block, never unblock.
	Rules []Rule
}

// Gate evaluates plans against the built-in destructive-method check and any
// configured veto rules.
type Gate struct {
	destructive map[string]bool
	rules       *ruleSet
}

// New creates a gate, compiling any configured rules.
func New(cfg Config) (*Gate, error) {
	methods := cfg.DestructiveMethods
	if len(methods) == 0 {
		methods = DefaultDestructive
	}

	destructive := make(map[string]bool, len(methods))
	for _, m := range methods {
		destructive[strings.ToUpper(strings.TrimSpace(m))] = true
	}

	rules, err := newRuleSet(cfg.Rules)
	if err != nil {
		return nil, err
	}

	return &Gate{destructive: destructive, rules: rules}, nil
}

// Inspect scans every step of the plan before anything executes. The
// built-in check fires only when a destructive method is present and the
// plan carries safety checks; a destructive step with no safety checks
// proceeds. Configured rules run afterwards and can add further vetoes.
func (g *Gate) Inspect(p *plan.Plan) (Decision, error) {
	if len(p.SafetyChecks) > 0 {
		for _, s := range p.Steps {
			if g.destructive[s.Call.Method] {
				return Decision{
					Blocked: true,
					Reason:  fmt.Sprintf("%s operation requires explicit confirmation", s.Call.Method),
					Checks:  p.SafetyChecks,
				}, nil
			}
		}
	}

	rule, err := g.rules.evaluate(ruleVars(p))
	if err != nil {
		return Decision{}, err
	}
	if rule != nil {
		reason := rule.Reason
		if reason == "" {
			reason = fmt.Sprintf("plan vetoed by rule %q", rule.Name)
		}
		return Decision{Blocked: true, Reason: reason, Checks: p.SafetyChecks}, nil
	}

	return Decision{}, nil
}

// ruleVars exposes the plan to rule expressions.
func ruleVars(p *plan.Plan) map[string]interface{} {
	methods := make([]string, len(p.Steps))
	endpoints := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		methods[i] = s.Call.Method
		endpoints[i] = s.Call.Endpoint
	}

	checks := p.SafetyChecks
	if checks == nil {
		checks = []string{}
	}

	return map[string]interface{}{
		"methods":       methods,
		"endpoints":     endpoints,
		"safety_checks": checks,
		"step_count":    len(p.Steps),
		"understanding": p.Understanding,
	}
}
