// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// Rule is a CEL expression that vetoes a plan when it evaluates to true.
type Rule struct {
	Name       string `json:"name" yaml:"name"`
	Expression string `json:"expression" yaml:"expression"`
	Reason     string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

type compiledRule struct {
	rule    Rule
	program cel.Program
}

type ruleSet struct {
	compiled []compiledRule
}

// newRuleSet compiles the rules against an environment that exposes the
// plan's methods, endpoints, safety checks, step count, and understanding.
func newRuleSet(rules []Rule) (*ruleSet, error) {
	if len(rules) == 0 {
		return &ruleSet{}, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("methods", cel.ListType(cel.StringType)),
		cel.Variable("endpoints", cel.ListType(cel.StringType)),
		cel.Variable("safety_checks", cel.ListType(cel.StringType)),
		cel.Variable("step_count", cel.IntType),
		cel.Variable("understanding", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating rule environment: %w", err)
	}

	set := &ruleSet{compiled: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		ast, issues := env.Parse(r.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("error parsing rule %q: %w", r.Name, issues.Err())
		}

		checked, issues := env.Check(ast)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("error type-checking rule %q: %w", r.Name, issues.Err())
		}

		if !checked.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("rule %q must evaluate to a boolean, got %s", r.Name, checked.OutputType())
		}

		program, err := env.Program(checked)
		if err != nil {
			return nil, fmt.Errorf("error compiling rule %q: %w", r.Name, err)
		}

		set.compiled = append(set.compiled, compiledRule{rule: r, program: program})
	}

	return set, nil
}

// evaluate returns the first rule that fires, or nil when none do.
func (s *ruleSet) evaluate(vars map[string]interface{}) (*Rule, error) {
	for i := range s.compiled {
		c := &s.compiled[i]

		result, _, err := c.program.Eval(vars)
		if err != nil {
			return nil, fmt.Errorf("error evaluating rule %q: %w", c.rule.Name, err)
		}

		if result.Type() != types.BoolType {
			return nil, fmt.Errorf("rule %q did not evaluate to a boolean", c.rule.Name)
		}

		if result.Value().(bool) {
			return &c.rule, nil
		}
	}

	return nil, nil
}
