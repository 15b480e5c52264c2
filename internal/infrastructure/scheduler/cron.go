package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"BlogWatch/internal/ports"
)

// CronScheduler drives recurring jobs via standard cron expressions.
type CronScheduler struct {
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// New builds a scheduler evaluating expressions in the given location.
func New(loc *time.Location) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &CronScheduler{cron: cron.New(cron.WithLocation(loc))}
}

// Schedule registers a job under a cron expression.
func (c *CronScheduler) Schedule(spec string, job func()) error {
	_, err := c.cron.AddFunc(spec, job)
	return err
}

// Start begins the cron loop in its own goroutine.
func (c *CronScheduler) Start() {
	c.cron.Start()
}

// Stop halts scheduling and waits for running jobs, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	done := c.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
