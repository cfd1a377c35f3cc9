// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kusari-oss/stitch/internal/core/config"
	"github.com/kusari-oss/stitch/internal/defaults"
	"github.com/kusari-oss/stitch/internal/version"
)

// newInitCommand creates the init subcommand
func newInitCommand() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a stitch project",
		Long:  `Initialize a project directory with default agent profiles and safety rules.`,
		Args:  cobra.MaximumNArgs(1),
		Run:   runInitCommand,
	}

	// Configure flags
	initCmd.Flags().StringP("agents-dir", "a", "agents", "Directory for agent profiles")
	initCmd.Flags().StringP("rules-dir", "r", "rules", "Directory for safety rule files")
	initCmd.Flags().BoolP("local-only", "l", false, "Use only embedded defaults, don't attempt to fetch latest from remote")
	initCmd.Flags().String("remote-url", "https://raw.githubusercontent.com/kusari-oss/stitch-defaults/main", "URL for remote defaults repository")
	initCmd.Flags().BoolP("verbose", "v", false, "Enable verbose output")

	return initCmd
}

// runInitCommand is the function executed for the init command
func runInitCommand(cmd *cobra.Command, args []string) {
	// Determine the directory to initialize
	projectDir := "."
	if len(args) > 0 {
		projectDir = args[0]
	}

	// Get flag values
	agentsDir, _ := cmd.Flags().GetString("agents-dir")
	rulesDir, _ := cmd.Flags().GetString("rules-dir")
	localOnly, _ := cmd.Flags().GetBool("local-only")
	remoteURL, _ := cmd.Flags().GetString("remote-url")
	_, _ = cmd.Flags().GetBool("verbose")

	// Create the project directory if it doesn't exist
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		fmt.Printf("Error creating project directory: %v\n", err)
		os.Exit(1)
	}

	// Create directory paths
	agentsDirPath := filepath.Join(projectDir, agentsDir)
	rulesDirPath := filepath.Join(projectDir, rulesDir)

	// Create configuration
	cfg := config.NewDefaultConfig()
	cfg.AgentsDir = agentsDir
	cfg.RulesDir = rulesDir
	cfg.UseLocal = true
	cfg.UseGlobal = !localOnly
	cfg.GlobalFirst = false

	// Save configuration
	if err := config.SaveConfig(cfg, projectDir); err != nil {
		fmt.Printf("Error saving configuration: %v\n", err)
		os.Exit(1)
	}

	// Create defaults manager
	defaultsConfig := defaults.DefaultsConfig{
		DefaultsURL: remoteURL,
		UseRemote:   !localOnly,
		Timeout:     10,
	}
	manager := defaults.NewManager(defaultsConfig)

	// Copy defaults
	usedRemote, err := manager.CopyDefaults(agentsDirPath, rulesDirPath, !localOnly)
	if err != nil {
		fmt.Printf("Error copying defaults: %v\n", err)
		os.Exit(1)
	}

	// Create and save state
	state := &config.State{
		ProjectDir:    projectDir,
		LibraryInUse:  cfg.LibraryPath,
		LastUpdated:   time.Now().Format(time.RFC3339),
		InitializedAt: time.Now().Format(time.RFC3339),
		Version:       version.Version,
	}

	if err := config.SaveState(state, projectDir); err != nil {
		fmt.Printf("Error saving state: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nInitialization complete!")
	fmt.Printf("Agent profiles directory: %s\n", agentsDirPath)
	fmt.Printf("Safety rules directory: %s\n", rulesDirPath)
	fmt.Printf("Used remote defaults: %v\n", usedRemote)
}
