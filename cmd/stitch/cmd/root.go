// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kusari-oss/stitch/cmd/stitch/cmd/agents"
	"github.com/kusari-oss/stitch/cmd/stitch/cmd/plan"
	"github.com/kusari-oss/stitch/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "stitch",
	Short: "Tracker Automation Tool",
	Long: `Stitch turns plain-language requests into validated multi-step plans
against a tracker's REST API, checks them against safety rules, and
executes them step by step.`,
	Version: fmt.Sprintf("%s (commit: %s)", version.Version, version.Commit),
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newSyncCommand())
	rootCmd.AddCommand(newDiagnoseCommand())
	rootCmd.AddCommand(agents.NewAgentsCmd())
	rootCmd.AddCommand(plan.GetPlanCmd())

	rootCmd.PersistentFlags().String("library-path", "", "library directory holding agent profiles and safety rules (default is ~/.stitch/library)")
	rootCmd.PersistentFlags().String("config", "", "config file (default is ~/.stitch/config.yaml)")
}
