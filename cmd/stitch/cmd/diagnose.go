// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kusari-oss/stitch/internal/core/config"
	"github.com/kusari-oss/stitch/internal/stitch/agent"
)

// newDiagnoseCommand creates the diagnose subcommand
func newDiagnoseCommand() *cobra.Command {
	var jsonOutput bool
	var verbose bool

	diagnoseCmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Diagnose configuration issues",
		Long: `Diagnose configuration and path resolution issues.

This command provides detailed information about:
- Library path resolution order and results
- Tracker and planner configuration
- Loadable agent profiles
- Common configuration problems

Use this command when agents are missing, the tracker rejects calls,
or environment-specific problems show up.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			libraryPath, _ := cmd.Flags().GetString("library-path")
			configFile, _ := cmd.Flags().GetString("config")

			cfg, err := config.LoadConfig(libraryPath, configFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			if verbose {
				cfg.SetVerboseLibraryLogging(true)
			}

			diagnostics := cfg.GetLibraryDiagnostics()

			// Try to resolve library path
			libraryInfo, libraryErr := cfg.GetLibraryInfo()
			if libraryInfo != nil {
				diagnostics["library_resolution"] = map[string]interface{}{
					"path":   libraryInfo.Path,
					"source": libraryInfo.Source,
					"valid":  libraryInfo.Valid,
					"exists": libraryInfo.Exists,
					"errors": libraryInfo.Errors,
					"subdirectories": map[string]string{
						"agents": libraryInfo.AgentsDir,
						"rules":  libraryInfo.RulesDir,
					},
				}
			}
			if libraryErr != nil {
				diagnostics["library_error"] = libraryErr.Error()
			}

			// Tracker and planner settings, with credentials reduced to presence
			diagnostics["tracker"] = map[string]interface{}{
				"base_url":         cfg.Tracker.BaseURL,
				"email":            cfg.Tracker.Email,
				"api_token_set":    cfg.Tracker.APIToken != "",
				"bearer_token_set": cfg.Tracker.BearerToken != "",
			}
			diagnostics["planner"] = map[string]interface{}{
				"provider":           cfg.Planner.Provider,
				"model":              cfg.Planner.Model,
				"ollama_url":         cfg.Planner.OllamaURL,
				"openai_api_key_set": cfg.Planner.OpenAIAPIKey != "",
			}

			// Try to load agent profiles
			workingDir, _ := os.Getwd()
			profiles, profilesErr := agent.LoadProfiles(cfg, workingDir)
			profileNames := make([]string, 0, len(profiles))
			for name := range profiles {
				profileNames = append(profileNames, name)
			}
			diagnostics["agent_profiles"] = profileNames
			if profilesErr != nil {
				diagnostics["agent_profiles_error"] = profilesErr.Error()
			}

			// Add current working directory
			diagnostics["current_directory"] = workingDir

			// Add environment variables
			diagnostics["environment"] = map[string]string{
				"HOME":        os.Getenv("HOME"),
				"STITCH_HOME": os.Getenv("STITCH_HOME"),
				"ENVIRONMENT": os.Getenv("ENVIRONMENT"),
			}

			// Output results
			if jsonOutput {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(diagnostics)
			}

			// Human-readable output
			fmt.Println("=== Stitch Diagnostics ===")
			fmt.Println()

			fmt.Println("Library Resolution:")
			if libraryInfo != nil {
				if libraryInfo.Valid {
					fmt.Printf("  ✓ Library found and valid: %s\n", libraryInfo.Path)
					fmt.Printf("    Source: %s\n", libraryInfo.Source)
				} else {
					fmt.Printf("  ✗ Library invalid: %s\n", libraryInfo.Path)
					fmt.Printf("    Source: %s\n", libraryInfo.Source)
					for _, err := range libraryInfo.Errors {
						fmt.Printf("    Error: %s\n", err)
					}
				}
			} else {
				fmt.Printf("  ✗ No library path resolved\n")
				if libraryErr != nil {
					fmt.Printf("    Error: %s\n", libraryErr.Error())
				}
			}
			fmt.Println()

			fmt.Println("Tracker:")
			if cfg.Tracker.BaseURL != "" {
				fmt.Printf("  ✓ Base URL: %s\n", cfg.Tracker.BaseURL)
			} else {
				fmt.Printf("  ✗ Base URL not set (TRACKER_BASE_URL)\n")
			}
			if cfg.Tracker.APIToken != "" || cfg.Tracker.BearerToken != "" {
				fmt.Printf("  ✓ Credentials present\n")
			} else {
				fmt.Printf("  ✗ No credentials (TRACKER_API_TOKEN or TRACKER_BEARER_TOKEN)\n")
			}
			fmt.Println()

			fmt.Println("Planner:")
			fmt.Printf("  Provider: %s\n", cfg.Planner.Provider)
			fmt.Printf("  Model: %s\n", cfg.Planner.Model)
			if cfg.Planner.Provider == "openai" && cfg.Planner.OpenAIAPIKey == "" {
				fmt.Printf("  ✗ OPENAI_API_KEY not set\n")
			}
			fmt.Println()

			fmt.Println("Agent Profiles:")
			if profilesErr != nil {
				fmt.Printf("  ✗ %s\n", profilesErr.Error())
			} else {
				for _, name := range profileNames {
					fmt.Printf("  ✓ %s\n", name)
				}
			}
			fmt.Println()

			fmt.Println("Recommendations:")
			if libraryInfo == nil || !libraryInfo.Valid {
				fmt.Println("  1. Initialize a project with: stitch init")
				fmt.Println("  2. Or point at a library with: stitch --library-path <path>")
			}
			if cfg.Tracker.BaseURL == "" {
				fmt.Println("  3. Set TRACKER_BASE_URL before running plans")
			}

			return nil
		},
	}

	diagnoseCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	diagnoseCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	return diagnoseCmd
}
