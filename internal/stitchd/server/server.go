// SPDX-License-Identifier: Apache-2.0

// Package server implements the stitchd HTTP surface: per-agent webhook
// intake, health reporting, and a non-production test endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/kusari-oss/stitch/internal/core/config"
	"github.com/kusari-oss/stitch/internal/stitch/agent"
	"github.com/kusari-oss/stitch/internal/stitchd/worker"
)

const shutdownTimeout = 10 * time.Second

// Server wires the HTTP handlers to the agent registry and the worker pool
type Server struct {
	cfg      *config.Config
	registry *agent.Registry
	pool     *worker.Pool
	logger   *slog.Logger
	version  string
}

// New creates the stitchd server
func New(cfg *config.Config, registry *agent.Registry, pool *worker.Pool, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		cfg:      cfg,
		registry: registry,
		pool:     pool,
		logger:   logger,
		version:  version,
	}
}

// SetupRoutes configures and returns the HTTP router with all endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return s.logger
		}),
	))

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)

	router.POST("/agents/:agent", s.handleIntake)
	router.POST("/test/:agent", s.handleTest)

	return router
}

// Run serves until ctx is cancelled, then shuts the listener down and
// drains the worker pool.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler: s.SetupRoutes(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.logger.Info("stitchd listening",
		slog.Int("port", s.cfg.Server.Port),
		slog.String("environment", s.cfg.Server.Environment),
		slog.Int("agents", len(s.registry.Names())))

	select {
	case err := <-errCh:
		return fmt.Errorf("error serving HTTP: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down HTTP server: %w", err)
	}

	// Intake is closed; finish what was already queued
	s.pool.Stop()
	return nil
}
