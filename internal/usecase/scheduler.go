package usecase

import (
	"context"
	"log/slog"
	"time"

	"PortfolioMonitor/internal/ports"
)

// Scheduler wires the cron-like driver with the pipeline and alerting use cases.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	alerts   *AlertService
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring monitoring cycles.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, alerts *AlertService, log *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, alerts: alerts, logger: log}
}

// RunOnce runs the pipeline and dispatches whatever it stored, even after partial failures.
func (s *Scheduler) RunOnce(ctx context.Context) (RunReport, []ChannelResult, error) {
	report, err := s.pipeline.Run(ctx)
	var results []ChannelResult
	if s.alerts != nil {
		results = s.alerts.Dispatch(ctx, report.NewMentions)
	}
	return report, results, err
}

// Start registers the monitoring cycle with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		report, _, err := s.RunOnce(ctx)
		if s.logger == nil {
			return
		}
		if err != nil {
			s.logger.Error("scheduled run finished with errors", "trigger", trigger, "run_id", report.RunID, "error", err)
			return
		}
		s.logger.Info("scheduled run finished", "trigger", trigger, "run_id", report.RunID, "new_mentions", report.Stored())
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
