// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kusari-oss/stitch/internal/core/config"
	"github.com/kusari-oss/stitch/internal/core/gate"
	"github.com/kusari-oss/stitch/internal/core/plan"
	"github.com/kusari-oss/stitch/internal/stitch/agent"
)

func getValidateCmd() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate [plan-file]",
		Short: "Validate an execution plan file",
		Long: `Check a plan file against the plan schema and report whether the
safety gate would let it run.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			planFile := args[0]
			agentName, _ := cmd.Flags().GetString("agent")

			p, err := plan.LoadFile(planFile)
			if err != nil {
				fmt.Printf("Error loading plan: %v\n", err)
				os.Exit(1)
			}

			if issues := plan.Validate(p); len(issues) > 0 {
				fmt.Println("✗ Plan is invalid:")
				for _, issue := range issues {
					fmt.Printf("  - %s\n", issue)
				}
				os.Exit(1)
			}

			fmt.Printf("✓ Plan is valid (%d steps)\n", len(p.Steps))

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

			decision, err := g.Inspect(p)
			if err != nil {
				fmt.Printf("Error inspecting plan: %v\n", err)
				os.Exit(1)
			}

			if decision.Blocked {
				fmt.Printf("⚠ Safety gate would block this plan: %s\n", decision.Reason)
				for _, check := range decision.Checks {
					fmt.Printf("  - %s\n", check)
				}
			} else {
				fmt.Println("✓ Safety gate would allow this plan")
			}
		},
	}

	// Configure flags
	validateCmd.Flags().StringP("agent", "a", "", "Apply this agent profile's safety posture")

	return validateCmd
}

// buildGate assembles the safety gate from the config-level posture plus,
// optionally, one agent profile's overrides
func buildGate(cfg *config.Config, agentName string) (*gate.Gate, error) {
	workingDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("error getting working directory: %w", err)
	}

	rules, err := agent.LoadRules(cfg, workingDir)
	if err != nil {
		return nil, err
	}

	destructive := cfg.Safety.DestructiveMethods

	if agentName != "" {
		profiles, err := agent.LoadProfiles(cfg, workingDir)
		if err != nil {
			return nil, err
		}
		profile, ok := profiles[agentName]
		if !ok {
			return nil, fmt.Errorf("agent %q not found", agentName)
		}
		if len(profile.DestructiveMethods) > 0 {
			destructive = profile.DestructiveMethods
		}
		rules = append(rules, profile.Rules...)
	}

	return gate.New(gate.Config{
		DestructiveMethods: destructive,
		Rules:              rules,
	})
}
