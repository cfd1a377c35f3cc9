// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kusari-oss/stitch/internal/core/config"
	"github.com/kusari-oss/stitch/internal/core/format"
	"github.com/kusari-oss/stitch/internal/stitch/agent"
	"github.com/kusari-oss/stitch/internal/stitch/planner"
)

func getGenerateCmd() *cobra.Command {
	generateCmd := &cobra.Command{
		Use:   "generate [request]",
		Short: "Generate an execution plan from a plain-language request",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			request := args[0]
			agentName, _ := cmd.Flags().GetString("agent")
			outputFile, _ := cmd.Flags().GetString("output")
			verbose, _ := cmd.Flags().GetBool("verbose")

			cfg, err := loadCommandConfig(cmd)
			if err != nil {
				fmt.Printf("Error loading configuration: %v\n", err)
				os.Exit(1)
			}

			profile, err := selectProfile(cfg, agentName)
			if err != nil {
				fmt.Printf("Error selecting agent: %v\n", err)
				os.Exit(1)
			}

			model, err := planner.NewModel(cfg.Planner)
			if err != nil {
				fmt.Printf("Error creating planner model: %v\n", err)
				os.Exit(1)
			}

			if verbose {
				fmt.Printf("Requesting plan from %s (%s) as agent %q\n",
					cfg.Planner.Provider, cfg.Planner.Model, profile.Name)
			}

			gen := planner.NewLLMPlanner(model, profile.Prompt, nil)
			p, err := gen.GeneratePlan(cmd.Context(), request)
			if err != nil {
				fmt.Printf("Error generating plan: %v\n", err)
				os.Exit(1)
			}

			if verbose {
				fmt.Printf("Understanding: %s\n", p.Understanding)
				fmt.Printf("Steps: %d\n", len(p.Steps))
			}

			// Output the plan
			if outputFile == "" {
				// Print to stdout - default to YAML for better readability
				planOutput, err := format.Render(p, true)
				if err != nil {
					fmt.Printf("Error formatting plan: %v\n", err)
					os.Exit(1)
				}
				fmt.Print(planOutput)
			} else {
				err = format.WriteFile(outputFile, p)
				if err != nil {
					fmt.Printf("Error writing output file: %v\n", err)
					os.Exit(1)
				}
				fmt.Printf("Plan saved to %s\n", outputFile)
			}
		},
	}

	// Configure flags
	generateCmd.Flags().StringP("agent", "a", "", "Agent profile to plan as (defaults to the only profile when just one exists)")
	generateCmd.Flags().StringP("output", "o", "", "Output file for the generated plan")
	generateCmd.Flags().BoolP("verbose", "v", false, "Enable verbose output")

	return generateCmd
}

// loadCommandConfig loads configuration honoring the root command's
// persistent flags
func loadCommandConfig(cmd *cobra.Command) (*config.Config, error) {
	libraryPath, _ := cmd.Flags().GetString("library-path")
	configFile, _ := cmd.Flags().GetString("config")
	return config.LoadConfig(libraryPath, configFile)
}

// selectProfile picks the named profile, or the only one when no name is
// given
func selectProfile(cfg *config.Config, name string) (agent.Profile, error) {
	workingDir, err := os.Getwd()
	if err != nil {
		return agent.Profile{}, fmt.Errorf("error getting working directory: %w", err)
	}

	profiles, err := agent.LoadProfiles(cfg, workingDir)
	if err != nil {
		return agent.Profile{}, err
	}

	if name != "" {
		profile, ok := profiles[name]
		if !ok {
			return agent.Profile{}, fmt.Errorf("agent %q not found (available: %s)", name, profileNames(profiles))
		}
		return profile, nil
	}

	if len(profiles) == 1 {
		for _, profile := range profiles {
			return profile, nil
		}
	}

	return agent.Profile{}, fmt.Errorf("multiple agents available, pick one with --agent (available: %s)", profileNames(profiles))
}

func profileNames(profiles map[string]agent.Profile) string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
