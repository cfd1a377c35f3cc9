// SPDX-License-Identifier: Apache-2.0

// Package worker runs queued intake jobs in the background. The pool is the
// only place agent runs happen in the daemon; handlers just enqueue.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/kusari-oss/stitch/internal/core/logging"
	"github.com/kusari-oss/stitch/internal/stitch/agent"
)

// Job is one queued request bound to the agent that should handle it
type Job struct {
	ID      string
	Agent   string
	Request agent.Request
}

// Pool owns a bounded job queue and a fixed set of workers. A full queue is
// the backpressure signal; Submit never blocks.
type Pool struct {
	registry *agent.Registry
	jobs     chan Job
	workers  int
	logger   *slog.Logger
	wg       sync.WaitGroup
}

var ErrQueueFull = errors.New("job queue is full")

// NewPool creates a pool with the given worker count and queue capacity
func NewPool(registry *agent.Registry, workers, queueSize int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Pool{
		registry: registry,
		jobs:     make(chan Job, queueSize),
		workers:  workers,
		logger:   logger,
	}
}

// Start launches the workers. They keep pulling jobs until Stop closes the
// queue; ctx cancellation aborts whatever run is in flight.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.logger.Info("worker pool started",
		slog.Int("workers", p.workers),
		slog.Int("queue_capacity", cap(p.jobs)))
}

// Stop closes intake and waits until every queued job has been processed.
// Submit must not be called after Stop.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	p.logger.Info("worker pool drained")
}

// Submit queues a job without blocking
func (p *Pool) Submit(job Job) error {
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueDepth reports how many jobs are waiting
func (p *Pool) QueueDepth() int {
	return len(p.jobs)
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()

	logger := p.logger.With(slog.Int("worker", id))
	logger.Info("worker started")

	for job := range p.jobs {
		p.process(ctx, logger, job)
	}

	logger.Info("worker stopped")
}

func (p *Pool) process(ctx context.Context, logger *slog.Logger, job Job) {
	logger = logger.With(
		slog.String("job_id", job.ID),
		logging.Agent(job.Agent),
		slog.String("target", job.Request.Target))

	// One broken job must not take the worker down with it
	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker recovered from panic", slog.Any("panic", r))
		}
	}()

	a, err := p.registry.Create(job.Agent)
	if err != nil {
		logger.Error("job dropped", logging.Error(err))
		return
	}

	outcome, err := a.Process(ctx, job.Request)
	if err != nil {
		logger.Error("job failed", logging.Error(err))
		return
	}

	logger.Info("job completed",
		logging.RunID(outcome.Result.RunID),
		logging.State(outcome.Result.State),
		slog.Int("completed", outcome.Result.CompletedCount),
		slog.Int("total", outcome.Result.TotalCount))
}
