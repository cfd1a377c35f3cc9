// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kusari-oss/stitch/internal/core/config"
	"github.com/kusari-oss/stitch/internal/core/library"
	"github.com/kusari-oss/stitch/internal/defaults"
	"github.com/spf13/cobra"
)

// newSyncCommand creates the sync command. Without --from it refreshes the
// library with the bundled agent and rule defaults; with --from it copies
// profiles and rules out of a source directory instead, which is how a team
// pushes a shared library checkout into each operator's global library.
func newSyncCommand() *cobra.Command {
	syncCmd := &cobra.Command{
		Use:     "sync",
		Aliases: []string{"refresh"},
		Short:   "Sync the agent library with the latest defaults",
		Long: `Sync the agent library with the latest agent profiles and safety rules.

By default this refreshes the global library (typically ~/.stitch/library)
with the defaults bundled in the stitch binary, fetching newer ones from the
defaults repository when reachable.

Examples:
  stitch sync                          # Refresh the configured global library
  stitch sync --library-path /custom   # Refresh a specific library
  stitch sync --from ./team-library    # Copy profiles/rules from a checkout
  stitch sync --dry-run --from ./lib   # Show what would change
  stitch sync --local-only             # Skip the remote fetch`,
		Run: runSyncCommand,
	}

	syncCmd.Flags().String("from", "", "Source directory to copy agents/ and rules/ from instead of the bundled defaults")
	syncCmd.Flags().BoolP("force", "f", false, "Overwrite existing files even if they look identical")
	syncCmd.Flags().BoolP("dry-run", "d", false, "Show what would be synced without making changes")
	syncCmd.Flags().BoolP("verbose", "v", false, "Enable verbose output")
	syncCmd.Flags().Bool("local-only", false, "Use only embedded defaults, don't attempt remote fetch")

	return syncCmd
}

func runSyncCommand(cmd *cobra.Command, args []string) {
	sourceDir, _ := cmd.Flags().GetString("from")
	force, _ := cmd.Flags().GetBool("force")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	verbose, _ := cmd.Flags().GetBool("verbose")
	localOnly, _ := cmd.Flags().GetBool("local-only")

	targetPath, err := resolveSyncTarget(cmd, verbose)
	if err != nil {
		fmt.Printf("Error resolving library path: %v\n", err)
		os.Exit(1)
	}

	if sourceDir != "" {
		updater := library.NewUpdater(targetPath, sourceDir, force, dryRun, verbose)
		if err := updater.UpdateLibrary(); err != nil {
			fmt.Printf("Error updating library: %v\n", err)
			os.Exit(1)
		}
		if dryRun {
			fmt.Println("\nDry run completed. No files were actually modified.")
		} else {
			fmt.Println("\nLibrary update complete!")
			fmt.Printf("Updated library: %s\n", targetPath)
		}
		return
	}

	agentsDir := filepath.Join(targetPath, "agents")
	rulesDir := filepath.Join(targetPath, "rules")

	if dryRun {
		fmt.Printf("DRY RUN: would sync library at %s\n", targetPath)
		for _, dir := range []string{agentsDir, rulesDir} {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				fmt.Printf("  Would create: %s\n", dir)
			} else {
				fmt.Printf("  Would update: %s\n", dir)
			}
		}
		fmt.Println("\nTo perform the actual sync, run without --dry-run")
		return
	}

	fmt.Printf("Syncing library at: %s\n", targetPath)

	manager := defaults.NewManager(defaults.NewDefaultsConfig())
	usedRemote, err := manager.CopyDefaults(agentsDir, rulesDir, !localOnly)
	if err != nil {
		fmt.Printf("Error syncing defaults: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✅ Library sync complete!")
	fmt.Printf("  Agents: %s\n", agentsDir)
	fmt.Printf("  Rules: %s\n", rulesDir)
	if usedRemote {
		fmt.Println("  Used remote defaults")
	} else {
		fmt.Println("  Used embedded defaults")
	}

	if agents, err := library.NewManager("", "", false).ListAvailableAgents(targetPath); err == nil && len(agents) > 0 {
		fmt.Println("\nAvailable agents:")
		for _, name := range agents {
			fmt.Printf("  - %s\n", name)
		}
	}
}

// resolveSyncTarget picks the library to sync: the --library-path persistent
// flag when given, otherwise the configured global library.
func resolveSyncTarget(cmd *cobra.Command, verbose bool) (string, error) {
	if flagPath, _ := cmd.Flags().GetString("library-path"); flagPath != "" {
		path := config.ExpandPathWithTilde(flagPath)
		if verbose {
			fmt.Printf("Using library path from --library-path flag: %s\n", path)
		}
		return filepath.Abs(path)
	}

	cfg, err := config.LoadConfig("", "")
	if err != nil {
		return "", fmt.Errorf("failed to load configuration: %w", err)
	}
	info, err := cfg.GetLibraryInfo()
	if err != nil {
		return "", fmt.Errorf("failed to resolve global library path: %w", err)
	}
	if verbose {
		fmt.Printf("Using global library path: %s (source: %s)\n", info.Path, info.Source)
	}
	return filepath.Abs(info.Path)
}
