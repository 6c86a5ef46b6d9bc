package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"social_fetcher/internal/domain"
)

// Runner defines the interface for a single ingestion pass.
type Runner interface {
	RunOnce(ctx context.Context) *domain.RunReport
}

type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger

	wg sync.WaitGroup
}

func NewScheduler(runner Runner, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:     runner,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

// Start fires a pass immediately and then on every tick until ctx is done.
// Each pass runs in its own goroutine, so a slow pass does not hold back the
// ticker; overlapping passes are dropped by the runner. Start returns after
// every in-flight pass has finished.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "run_timeout", s.runTimeout)

	s.launch(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping, waiting for in-flight run")
			s.wg.Wait()
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.launch(ctx)
		}
	}
}

// RunOnce runs a single pass synchronously.
func (s *Scheduler) RunOnce(ctx context.Context) *domain.RunReport {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	return s.runner.RunOnce(runCtx)
}

func (s *Scheduler) launch(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.RunOnce(ctx)
	}()
}
