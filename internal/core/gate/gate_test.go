// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kusari-oss/stitch/internal/core/plan"
)

func planWith(checks []string, methods ...string) *plan.Plan {
	p := &plan.Plan{
		Understanding: "test plan",
		SafetyChecks:  checks,
	}
	for i, m := range methods {
		p.Steps = append(p.Steps, plan.Step{
			Index:       i + 1,
			Description: "step",
			Call:        plan.Call{Method: m, Endpoint: "items/1"},
		})
	}
	return p
}

func TestInspectBuiltIn(t *testing.T) {
	tests := []struct {
		name        string
		plan        *plan.Plan
		wantBlocked bool
		wantReason  string
	}{
		{
			name:        "DeleteWithChecksBlocks",
			plan:        planWith([]string{"confirm with owner"}, plan.MethodGet, plan.MethodDelete),
			wantBlocked: true,
			wantReason:  "DELETE operation requires explicit confirmation",
		},
		{
			name:        "DeleteWithoutChecksProceeds",
			plan:        planWith(nil, plan.MethodDelete),
			wantBlocked: false,
		},
		{
			name:        "ChecksWithoutDestructiveProceeds",
			plan:        planWith([]string{"confirm with owner"}, plan.MethodGet, plan.MethodPost),
			wantBlocked: false,
		},
		{
			name:        "ReadOnlyPlanProceeds",
			plan:        planWith(nil, plan.MethodGet, plan.MethodGet),
			wantBlocked: false,
		},
	}

	g, err := New(Config{})
	require.NoError(t, err)

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			decision, err := g.Inspect(tc.plan)
			require.NoError(t, err)

			assert.Equal(t, tc.wantBlocked, decision.Blocked)
			if tc.wantBlocked {
				assert.Equal(t, tc.wantReason, decision.Reason)
				assert.Equal(t, tc.plan.SafetyChecks, decision.Checks)
			}
		})
	}
}

func TestInspectCustomDestructiveMethods(t *testing.T) {
	g, err := New(Config{DestructiveMethods: []string{"DELETE", "patch"}})
	require.NoError(t, err)

	decision, err := g.Inspect(planWith([]string{"check first"}, plan.MethodPatch))
	require.NoError(t, err)

	assert.True(t, decision.Blocked)
	assert.Equal(t, "PATCH operation requires explicit confirmation", decision.Reason)
}

func TestInspectRules(t *testing.T) {
	t.Run("RuleBlocksWithReason", func(t *testing.T) {
		g, err := New(Config{Rules: []Rule{{
			Name:       "max-steps",
			Expression: "step_count > 3",
			Reason:     "plans longer than 3 steps need review",
		}}})
		require.NoError(t, err)

		decision, err := g.Inspect(planWith(nil, plan.MethodGet, plan.MethodGet, plan.MethodGet, plan.MethodGet))
		require.NoError(t, err)

		assert.True(t, decision.Blocked)
		assert.Equal(t, "plans longer than 3 steps need review", decision.Reason)
	})

	t.Run("RuleWithoutReasonGetsDefault", func(t *testing.T) {
		g, err := New(Config{Rules: []Rule{{
			Name:       "no-admin",
			Expression: `endpoints.exists(e, e.contains("admin"))`,
		}}})
		require.NoError(t, err)

		p := planWith(nil, plan.MethodGet)
		p.Steps[0].Call.Endpoint = "admin/users"

		decision, err := g.Inspect(p)
		require.NoError(t, err)

		assert.True(t, decision.Blocked)
		assert.Contains(t, decision.Reason, "no-admin")
	})

	t.Run("RuleNotFiringProceeds", func(t *testing.T) {
		g, err := New(Config{Rules: []Rule{{
			Name:       "max-steps",
			Expression: "step_count > 3",
		}}})
		require.NoError(t, err)

		decision, err := g.Inspect(planWith(nil, plan.MethodGet))
		require.NoError(t, err)

		assert.False(t, decision.Blocked)
	})

	t.Run("RulesCannotUnblockBuiltIn", func(t *testing.T) {
		g, err := New(Config{Rules: []Rule{{
			Name:       "never",
			Expression: "false",
		}}})
		require.NoError(t, err)

		decision, err := g.Inspect(planWith([]string{"confirm"}, plan.MethodDelete))
		require.NoError(t, err)

		assert.True(t, decision.Blocked)
		assert.Equal(t, "DELETE operation requires explicit confirmation", decision.Reason)
	})

	t.Run("InvalidExpressionFailsConstruction", func(t *testing.T) {
		_, err := New(Config{Rules: []Rule{{
			Name:       "broken",
			Expression: "step_count >",
		}}})
		assert.Error(t, err)
	})

	t.Run("NonBooleanExpressionFailsConstruction", func(t *testing.T) {
		_, err := New(Config{Rules: []Rule{{
			Name:       "not-bool",
			Expression: "step_count",
		}}})
		assert.Error(t, err)
	})
}

func TestLoadRulesDir(t *testing.T) {
	t.Run("LoadsYAMLRules", func(t *testing.T) {
		dir := t.TempDir()
		content := `rules:
  - name: max-steps
    expression: step_count > 10
    reason: plans longer than 10 steps need manual review
`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "default.yaml"), []byte(content), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0644))

		rules, err := LoadRulesDir(dir)
		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, "max-steps", rules[0].Name)

		// Loaded rules compile
		_, err = New(Config{Rules: rules})
		assert.NoError(t, err)
	})

	t.Run("MissingDirIsEmpty", func(t *testing.T) {
		rules, err := LoadRulesDir(filepath.Join(t.TempDir(), "nope"))
		require.NoError(t, err)
		assert.Empty(t, rules)
	})

	t.Run("MalformedFileFails", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("rules: {not-a-list"), 0644))

		_, err := LoadRulesDir(dir)
		assert.Error(t, err)
	})
}
