// SPDX-License-Identifier: Apache-2.0

package agents

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kusari-oss/stitch/internal/core/config"
	"github.com/kusari-oss/stitch/internal/stitch/agent"
)

// NewAgentsCmd creates a new agents command
func NewAgentsCmd() *cobra.Command {
	agentsCmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage agent profiles",
		Long:  `List and inspect the agent profiles available to the planner.`,
	}

	// Add subcommands
	agentsCmd.AddCommand(newAgentsListCmd())
	agentsCmd.AddCommand(newAgentsInfoCmd())

	return agentsCmd
}

// loadProfiles loads every profile visible from the working directory
func loadProfiles(cmd *cobra.Command) (map[string]agent.Profile, error) {
	workingDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("error getting working directory: %w", err)
	}

	libraryPath, _ := cmd.Flags().GetString("library-path")
	configFile, _ := cmd.Flags().GetString("config")

	cfg, err := config.LoadConfig(libraryPath, configFile)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	return agent.LoadProfiles(cfg, workingDir)
}

// newAgentsListCmd creates a 'list' subcommand
func newAgentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available agent profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := loadProfiles(cmd)
			if err != nil {
				return fmt.Errorf("error listing agents: %w", err)
			}

			names := make([]string, 0, len(profiles))
			for name := range profiles {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Println("Available agents:")
			fmt.Println("-----------------")
			for _, name := range names {
				profile := profiles[name]
				fmt.Printf("- %s: %s\n", name, profile.Description)
				if len(profile.DestructiveMethods) > 0 {
					fmt.Printf("  Destructive methods: %s\n", strings.Join(profile.DestructiveMethods, ", "))
				}
				if len(profile.Rules) > 0 {
					fmt.Printf("  Safety rules: %d\n", len(profile.Rules))
				}
				fmt.Println()
			}

			return nil
		},
	}
}

// newAgentsInfoCmd creates an 'info' subcommand
func newAgentsInfoCmd() *cobra.Command {
	var showPrompt bool

	infoCmd := &cobra.Command{
		Use:   "info [agent-name]",
		Short: "Show information about an agent profile",
		Long:  `Display detailed information about a specific agent profile`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agentName := args[0]

			profiles, err := loadProfiles(cmd)
			if err != nil {
				return fmt.Errorf("error getting agent info: %w", err)
			}

			profile, ok := profiles[agentName]
			if !ok {
				return fmt.Errorf("agent %q not found", agentName)
			}

			// Display agent information
			fmt.Printf("Agent: %s\n", profile.Name)
			fmt.Printf("Description: %s\n", profile.Description)
			if len(profile.DestructiveMethods) > 0 {
				fmt.Printf("Destructive methods: %s\n", strings.Join(profile.DestructiveMethods, ", "))
			}

			if len(profile.Rules) > 0 {
				fmt.Println("\nSafety rules:")
				for _, rule := range profile.Rules {
					fmt.Printf("  - %s: %s\n", rule.Name, rule.Reason)
				}
			}

			if showPrompt {
				fmt.Println("\nPrompt:")
				fmt.Println(profile.Prompt)
			}

			return nil
		},
	}

	infoCmd.Flags().BoolVarP(&showPrompt, "prompt", "p", false, "Show the full planning prompt")

	return infoCmd
}
