package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"BlogWatch/internal/ports"
)

// Scheduler registers the recurring pipeline and housekeeping jobs with the
// cron driver.
type Scheduler struct {
	driver       ports.Scheduler
	pipeline     *Pipeline
	store        ports.Store
	pipelineSpec string
	cleanupSpec  string
	logRetention time.Duration
	logger       *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, store ports.Store,
	pipelineSpec, cleanupSpec string, logRetention time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		driver:       driver,
		pipeline:     pipeline,
		store:        store,
		pipelineSpec: pipelineSpec,
		cleanupSpec:  cleanupSpec,
		logRetention: logRetention,
		logger:       log,
	}
}

// Start registers both jobs and begins the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	err := s.driver.Schedule(s.pipelineSpec, func() {
		if err := s.pipeline.Run(ctx); err != nil {
			s.warn("scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule pipeline: %w", err)
	}

	if s.cleanupSpec != "" && s.logRetention > 0 {
		err = s.driver.Schedule(s.cleanupSpec, func() {
			cutoff := time.Now().UTC().Add(-s.logRetention)
			removed, err := s.store.PruneRunLogs(ctx, cutoff)
			if err != nil {
				s.warn("run log cleanup failed", "error", err)
				return
			}
			s.info("run log cleanup done", "removed", removed)
		})
		if err != nil {
			return fmt.Errorf("schedule cleanup: %w", err)
		}
	}

	s.driver.Start()
	return nil
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}

func (s *Scheduler) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Scheduler) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
