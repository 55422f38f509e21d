package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/glowdesk/pipeline/pkg/queue"
	"github.com/glowdesk/pipeline/pkg/scheduler"
)

// Pipeline wires the scheduler and the worker into one runnable unit.
type Pipeline struct {
	scheduler *scheduler.Scheduler
	worker    *queue.Worker
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Pipeline. The worker must already have its handlers
// registered; Run refuses to start an empty worker.
func New(s *scheduler.Scheduler, w *queue.Worker, opts ...Option) (*Pipeline, error) {
	if s == nil {
		return nil, ErrSchedulerNil
	}
	if w == nil {
		return nil, ErrWorkerNil
	}

	p := &Pipeline{scheduler: s, worker: w, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run registers the business triggers and runs the worker until ctx is
// cancelled. Trigger registration tolerates an unavailable broker; the
// worker keeps polling and picks up work once the broker recovers.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.scheduler.RegisterTriggers(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(p.worker.Run(ctx))

	p.logger.InfoContext(ctx, "pipeline started")
	err := g.Wait()
	p.logger.InfoContext(ctx, "pipeline stopped")
	return err
}
