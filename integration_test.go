//go:build integration
// +build integration

// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kusari-oss/stitch/internal/core/config"
	"github.com/kusari-oss/stitch/internal/core/format"
	"github.com/kusari-oss/stitch/internal/core/gate"
	"github.com/kusari-oss/stitch/internal/core/plan"
	"github.com/kusari-oss/stitch/internal/stitch/executor"
	"github.com/kusari-oss/stitch/internal/stitch/report"
	"github.com/kusari-oss/stitch/internal/stitch/tracker"
)

// fakeTracker stands in for the tracker API and records every call it sees
type fakeTracker struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeTracker) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
}

func (f *fakeTracker) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

func (f *fakeTracker) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == "POST" && r.URL.Path == "/fields":
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id": "10001", "name": "Priority Level"}`)
		case r.Method == "GET" && r.URL.Path == "/fields/10001/contexts":
			fmt.Fprint(w, `{"values": [{"id": "900"}]}`)
		case r.Method == "POST" && r.URL.Path == "/rest/api/3/issue/TEST-1/comment":
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id": "5000"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error": "no such route"}`)
		}
	})
}

// TestBasicWorkflow tests the stitch workflow end-to-end
func TestBasicWorkflow(t *testing.T) {
	tempDir := t.TempDir()

	// 1. Test configuration loading
	t.Run("ConfigurationLoad", func(t *testing.T) {
		cfg, err := config.LoadConfig("", "")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify default configuration
		assert.Equal(t, "agents", cfg.AgentsDir)
		assert.Equal(t, "rules", cfg.RulesDir)
		assert.True(t, cfg.UseGlobal)
		assert.False(t, cfg.UseLocal)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "ollama", cfg.Planner.Provider)

		fmt.Printf("✓ Configuration loaded successfully\n")
		fmt.Printf("  Library Path: %s\n", cfg.LibraryPath)
		fmt.Printf("  Agents Dir: %s\n", cfg.AgentsDir)
	})

	// 2. Test plan file operations
	t.Run("PlanFileOperations", func(t *testing.T) {
		p := &plan.Plan{
			Understanding: "Create a field and inspect it",
			Steps: []plan.Step{
				{
					Index:       1,
					Description: "Create the custom field",
					Call: plan.Call{
						Method:   "POST",
						Endpoint: "/fields",
						Payload:  map[string]interface{}{"name": "Priority Level", "type": "select"},
					},
				},
				{
					Index:       2,
					Description: "Look up its contexts",
					Call: plan.Call{
						Method:   "GET",
						Endpoint: "/fields/{{step_1_id}}/contexts",
					},
				},
			},
			ExpectedOutcome: "The field exists with a context",
		}

		// Save plan to file
		planFile := filepath.Join(tempDir, "test-plan.yaml")
		err := format.WriteFile(planFile, p)
		require.NoError(t, err)

		// Load plan from file
		loadedPlan, err := plan.LoadFile(planFile)
		require.NoError(t, err)
		require.NotNil(t, loadedPlan)

		// Verify loaded plan
		assert.Equal(t, p.Understanding, loadedPlan.Understanding)
		assert.Len(t, loadedPlan.Steps, 2)
		assert.Equal(t, "POST", loadedPlan.Steps[0].Call.Method)
		assert.Equal(t, "/fields/{{step_1_id}}/contexts", loadedPlan.Steps[1].Call.Endpoint)
		assert.Empty(t, plan.Validate(loadedPlan))

		fmt.Printf("✓ Plan file operations successful\n")
		fmt.Printf("  Plan saved to: %s\n", planFile)
		fmt.Printf("  Plan loaded with %d steps\n", len(loadedPlan.Steps))
	})

	// 3. Run a plan against a fake tracker, placeholders included
	t.Run("EndToEndRun", func(t *testing.T) {
		fake := &fakeTracker{}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()

		caller, err := tracker.NewHTTPCaller(tracker.Config{BaseURL: srv.URL})
		require.NoError(t, err)

		g, err := gate.New(gate.Config{})
		require.NoError(t, err)

		p := &plan.Plan{
			Understanding: "Create a field and inspect it",
			Steps: []plan.Step{
				{Index: 1, Description: "Create the custom field", Call: plan.Call{
					Method:   "POST",
					Endpoint: "/fields",
					Payload:  map[string]interface{}{"name": "Priority Level", "type": "select"},
				}},
				{Index: 2, Description: "Look up its contexts", Call: plan.Call{
					Method:   "GET",
					Endpoint: "/fields/{{step_1_id}}/contexts",
				}},
			},
		}

		runner := executor.NewRunner(caller, g, nil)
		result, err := runner.Run(context.Background(), p)
		require.NoError(t, err)

		assert.Equal(t, plan.StateCompleted, result.State)
		assert.Equal(t, 2, result.CompletedCount)
		assert.Equal(t, []string{
			"POST /fields",
			"GET /fields/10001/contexts",
		}, fake.seen(), "the step 2 placeholder should resolve to the id step 1 returned")

		summary := report.RenderSummary(p, result)
		assert.Contains(t, summary, "2/2 steps successful")

		fmt.Printf("✓ End-to-end run completed\n")
		fmt.Printf("  Run ID: %s\n", result.RunID)
		fmt.Printf("  Steps: %d/%d\n", result.CompletedCount, result.TotalCount)
	})

	// 4. A destructive plan with open safety checks never reaches the tracker
	t.Run("BlockedRun", func(t *testing.T) {
		fake := &fakeTracker{}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()

		caller, err := tracker.NewHTTPCaller(tracker.Config{BaseURL: srv.URL})
		require.NoError(t, err)

		g, err := gate.New(gate.Config{})
		require.NoError(t, err)

		p := &plan.Plan{
			Understanding: "Remove the old field",
			Steps: []plan.Step{
				{Index: 1, Description: "Delete the field", Call: plan.Call{
					Method:   "DELETE",
					Endpoint: "/fields/10001",
				}},
			},
			SafetyChecks: []string{"Confirm the field is no longer referenced"},
		}

		runner := executor.NewRunner(caller, g, nil)
		result, err := runner.Run(context.Background(), p)
		require.NoError(t, err)

		assert.Equal(t, plan.StateBlocked, result.State)
		assert.True(t, result.Blocked)
		assert.Empty(t, fake.seen(), "a blocked run must not touch the tracker")

		fmt.Printf("✓ Blocked run correctly stopped before execution\n")
		fmt.Printf("  Reason: %s\n", result.BlockReason)
	})

	// 5. The summary comment lands on the originating record
	t.Run("CommentDelivery", func(t *testing.T) {
		fake := &fakeTracker{}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()

		caller, err := tracker.NewHTTPCaller(tracker.Config{BaseURL: srv.URL})
		require.NoError(t, err)

		result := &plan.RunResult{
			State:          plan.StateCompleted,
			CompletedCount: 1,
			TotalCount:     1,
			Steps: []plan.StepResult{
				{Index: 1, Description: "Create the custom field", Success: true},
			},
		}
		p := &plan.Plan{Understanding: "Create a field"}
		summary := report.RenderSummary(p, result)

		sink := report.NewCommentSink(caller, "", nil)
		err = sink.Deliver(context.Background(), report.Delivery{
			Target:  "TEST-1",
			Plan:    p,
			Result:  result,
			Summary: summary,
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"POST /rest/api/3/issue/TEST-1/comment"}, fake.seen())

		fmt.Printf("✓ Summary comment delivered\n")
	})

	// 6. Test path expansion
	t.Run("PathExpansion", func(t *testing.T) {
		homeDir, err := os.UserHomeDir()
		require.NoError(t, err)

		// Test tilde expansion
		expanded := config.ExpandPathWithTilde("~/test/path")
		expected := filepath.Join(homeDir, "test/path")
		assert.Equal(t, expected, expanded)

		// Test absolute path (should not change)
		absolutePath := "/absolute/path"
		expanded = config.ExpandPathWithTilde(absolutePath)
		assert.Equal(t, absolutePath, expanded)

		// Test relative path (should not change)
		relativePath := "relative/path"
		expanded = config.ExpandPathWithTilde(relativePath)
		assert.Equal(t, relativePath, expanded)

		fmt.Printf("✓ Path expansion working correctly\n")
	})

	fmt.Printf("\n✅ All integration tests passed successfully!\n")
}

// TestDefaultsAvailable tests that default resources are available
func TestDefaultsAvailable(t *testing.T) {
	t.Run("DefaultConfiguration", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		require.NotNil(t, cfg)

		// Check that default values are sensible
		assert.Equal(t, "agents", cfg.AgentsDir)
		assert.Equal(t, "rules", cfg.RulesDir)
		assert.True(t, cfg.UseGlobal)
		assert.False(t, cfg.UseLocal)
		assert.Equal(t, config.DefaultWebhookSecret, cfg.Server.WebhookSecret)

		fmt.Printf("✓ Default configuration is valid\n")
	})

	t.Run("StateManagement", func(t *testing.T) {
		tempDir := t.TempDir()

		// Create a new state
		state := config.NewState(tempDir, "test-version")
		require.NotNil(t, state)

		// Verify state fields
		assert.Equal(t, tempDir, state.ProjectDir)
		assert.Equal(t, "test-version", state.Version)
		assert.NotEmpty(t, state.InitializedAt)

		// Save and reload it
		require.NoError(t, config.SaveState(state, tempDir))
		loaded, err := config.LoadState(tempDir)
		require.NoError(t, err)
		assert.Equal(t, state.ProjectDir, loaded.ProjectDir)

		fmt.Printf("✓ State management working correctly\n")
	})
}
