// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kusari-oss/stitch/internal/core/config"
	"github.com/kusari-oss/stitch/internal/core/logging"
	"github.com/kusari-oss/stitch/internal/stitch/agent"
	"github.com/kusari-oss/stitch/internal/stitch/planner"
	"github.com/kusari-oss/stitch/internal/stitch/report"
	"github.com/kusari-oss/stitch/internal/stitch/tracker"
	"github.com/kusari-oss/stitch/internal/stitchd/server"
	"github.com/kusari-oss/stitch/internal/stitchd/worker"
	"github.com/kusari-oss/stitch/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "stitchd",
	Short: "Stitch webhook daemon",
	Long: `Stitchd listens for tracker webhooks, turns each request into a plan
through the configured agent, and executes it in the background. Results
are posted back to the originating record as a comment.`,
	Version:      fmt.Sprintf("%s (commit: %s)", version.Version, version.Commit),
	SilenceUsage: true,
	RunE:         runDaemon,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().String("library-path", "", "library directory holding agent profiles and safety rules (default is ~/.stitch/library)")
	rootCmd.Flags().String("config", "", "config file (default is ~/.stitch/config.yaml)")
	rootCmd.Flags().IntP("port", "p", 0, "listen port (overrides configuration)")
}

// unconfiguredCaller lets the daemon boot without tracker credentials. Every
// run fails until TRACKER_BASE_URL is set; the health endpoint reports the
// gap.
type unconfiguredCaller struct{}

func (unconfiguredCaller) Call(context.Context, tracker.Request) (*tracker.Outcome, error) {
	return nil, tracker.ErrNoBaseURL
}

func runDaemon(cmd *cobra.Command, args []string) error {
	libraryPath, _ := cmd.Flags().GetString("library-path")
	configFile, _ := cmd.Flags().GetString("config")

	cfg, err := config.LoadConfig(libraryPath, configFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	if cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetInt("port")
		cfg.Server.Port = port
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("refusing to start: %w", err)
	}

	logger := logging.NewWithLevel("stitchd", cfg.Server.Environment, version.Version,
		logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var caller tracker.Caller
	if cfg.Tracker.BaseURL != "" {
		caller, err = tracker.NewHTTPCaller(tracker.Config{
			BaseURL:     cfg.Tracker.BaseURL,
			Email:       cfg.Tracker.Email,
			APIToken:    cfg.Tracker.APIToken,
			BearerToken: cfg.Tracker.BearerToken,
			Timeout:     time.Duration(cfg.Tracker.TimeoutSeconds) * time.Second,
			RateLimit:   cfg.Tracker.RateLimit,
			RateBurst:   cfg.Tracker.RateBurst,
		})
		if err != nil {
			return fmt.Errorf("error creating tracker client: %w", err)
		}
	} else {
		logger.Warn("tracker is not configured; runs will fail until TRACKER_BASE_URL is set")
		caller = unconfiguredCaller{}
	}

	model, err := planner.NewModel(cfg.Planner)
	if err != nil {
		return fmt.Errorf("error creating planner model: %w", err)
	}

	workingDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("error getting working directory: %w", err)
	}

	profiles, err := agent.LoadProfiles(cfg, workingDir)
	if err != nil {
		return fmt.Errorf("error loading agent profiles (run 'stitch init' first): %w", err)
	}

	rules, err := agent.LoadRules(cfg, workingDir)
	if err != nil {
		return fmt.Errorf("error loading safety rules: %w", err)
	}

	registry := agent.NewRegistry(agent.Context{
		Caller:      caller,
		Model:       model,
		Sink:        report.NewCommentSink(caller, "", logger),
		GlobalRules: rules,
		Logger:      logger,
	})
	for _, profile := range profiles {
		registry.Register(profile)
	}

	logger.Info("agents registered", slog.Any("agents", registry.Names()))

	pool := worker.NewPool(registry, cfg.Server.Workers, cfg.Server.QueueSize, logger)
	pool.Start(ctx)

	return server.New(cfg, registry, pool, version.Version, logger).Run(ctx)
}
