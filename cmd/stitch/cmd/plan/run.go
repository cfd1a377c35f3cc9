// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kusari-oss/stitch/internal/core/config"
	"github.com/kusari-oss/stitch/internal/core/plan"
	"github.com/kusari-oss/stitch/internal/stitch/executor"
	"github.com/kusari-oss/stitch/internal/stitch/report"
	"github.com/kusari-oss/stitch/internal/stitch/tracker"
)

func getRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [plan-file]",
		Short: "Run an execution plan against the tracker",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			planFile := args[0]
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			target, _ := cmd.Flags().GetString("target")
			agentName, _ := cmd.Flags().GetString("agent")
			verbose, _ := cmd.Flags().GetBool("verbose")

			p, err := plan.LoadFile(planFile)
			if err != nil {
				fmt.Printf("Error loading plan: %v\n", err)
				os.Exit(1)
			}

			cfg, err := loadCommandConfig(cmd)
			if err != nil {
				fmt.Printf("Error loading configuration: %v\n", err)
				os.Exit(1)
			}

			g, err := buildGate(cfg, agentName)
			if err != nil {
				fmt.Printf("Error building safety gate: %v\n", err)
				os.Exit(1)
			}

			if dryRun {
				if issues := plan.Validate(p); len(issues) > 0 {
					fmt.Println("✗ Plan is invalid:")
					for _, issue := range issues {
						fmt.Printf("  - %s\n", issue)
					}
					os.Exit(1)
				}

				previewPlan(p)

				decision, err := g.Inspect(p)
				if err != nil {
					fmt.Printf("Error inspecting plan: %v\n", err)
					os.Exit(1)
				}
				if decision.Blocked {
					fmt.Printf("✗ Safety gate would block this plan: %s\n", decision.Reason)
				} else {
					fmt.Println("✓ Safety gate would allow this plan")
				}

				fmt.Println("\nDry run complete. No calls were made.")
				return
			}

			caller, err := tracker.NewHTTPCaller(trackerConfig(cfg))
			if err != nil {
				fmt.Printf("Error creating tracker client: %v\n", err)
				os.Exit(1)
			}

			logLevel := slog.LevelWarn
			if verbose {
				logLevel = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

			runner := executor.NewRunner(caller, g, logger)

			fmt.Printf("Running plan with %d steps\n\n", len(p.Steps))
			result, err := runner.Run(cmd.Context(), p)
			if err != nil {
				fmt.Printf("Error running plan: %v\n", err)
				os.Exit(1)
			}

			summary := report.RenderSummary(p, result)
			sink := report.NewWriterSink(os.Stdout)
			_ = sink.Deliver(cmd.Context(), report.Delivery{Result: result, Summary: summary})

			if target != "" {
				comments := report.NewCommentSink(caller, "", logger)
				delivery := report.Delivery{Target: target, Plan: p, Result: result, Summary: summary}
				if err := comments.Deliver(cmd.Context(), delivery); err != nil {
					fmt.Printf("Error posting summary comment: %v\n", err)
					os.Exit(1)
				}
				fmt.Printf("\nSummary posted to %s\n", target)
			}

			if result.State != plan.StateCompleted {
				os.Exit(1)
			}
		},
	}

	// Configure flags
	runCmd.Flags().BoolP("dry-run", "d", false, "Show what would be done without calling the tracker")
	runCmd.Flags().StringP("target", "t", "", "Record key to post the run summary to as a comment")
	runCmd.Flags().StringP("agent", "a", "", "Apply this agent profile's safety posture")
	runCmd.Flags().BoolP("verbose", "v", false, "Enable verbose output")

	return runCmd
}

// previewPlan prints the plan the way the executor would walk it
func previewPlan(p *plan.Plan) {
	if p.Understanding != "" {
		fmt.Printf("Understanding: %s\n", p.Understanding)
	}

	fmt.Println("Steps:")
	for _, step := range p.Steps {
		fmt.Printf("  %d. [%s] %s - %s\n", step.Index, step.Call.Method, step.Call.Endpoint, step.Description)
	}

	if len(p.SafetyChecks) > 0 {
		fmt.Println("Safety checks:")
		for _, check := range p.SafetyChecks {
			fmt.Printf("  - %s\n", check)
		}
	}

	if p.ExpectedOutcome != "" {
		fmt.Printf("Expected outcome: %s\n", p.ExpectedOutcome)
	}
}

// trackerConfig maps the file/env configuration onto the client's settings
func trackerConfig(cfg *config.Config) tracker.Config {
	return tracker.Config{
		BaseURL:     cfg.Tracker.BaseURL,
		Email:       cfg.Tracker.Email,
		APIToken:    cfg.Tracker.APIToken,
		BearerToken: cfg.Tracker.BearerToken,
		Timeout:     time.Duration(cfg.Tracker.TimeoutSeconds) * time.Second,
		RateLimit:   cfg.Tracker.RateLimit,
		RateBurst:   cfg.Tracker.RateBurst,
	}
}
