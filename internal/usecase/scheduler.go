package usecase

import (
	"context"
	"log/slog"
	"time"

	"domainscan/internal/ports"
)

// Scheduler wires the cron-like driver with the batch runner.
type Scheduler struct {
	driver ports.Scheduler
	runner *Runner
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring invocations.
func NewScheduler(driver ports.Scheduler, runner *Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, runner: runner, logger: logger}
}

// Start registers the batch runner with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}

	job := func(trigger time.Time) {
		report, err := s.runner.Run(ctx)
		if err != nil {
			s.logger.Error("batch invocation failed", "trigger", trigger, "error", err)
			return
		}
		if report.Skipped != "" {
			s.logger.Info("batch invocation skipped", "reason", report.Skipped)
			return
		}
		s.logger.Info("batch invocation done",
			"processed", report.Processed, "failed", report.Failed, "total", report.Total)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
