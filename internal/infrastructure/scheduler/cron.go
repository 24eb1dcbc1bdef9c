package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"domainscan/internal/ports"
)

// CronScheduler drives batch invocations from a cron expression, evaluated
// in the configured location so the working-day gate and the trigger agree
// on what "today" means.
type CronScheduler struct {
	spec     string
	location *time.Location
	cron     *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler from a standard 5-field cron spec.
func NewCronScheduler(spec string, location *time.Location) *CronScheduler {
	if location == nil {
		location = time.UTC
	}
	return &CronScheduler{spec: spec, location: location}
}

// Start registers the job and begins the cron loop. The job runs with the
// trigger time; overlap protection is the batch lease's concern, not the
// scheduler's.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if c.cron != nil {
		return nil
	}

	c.cron = cron.New(cron.WithLocation(c.location))
	_, err := c.cron.AddFunc(c.spec, func() {
		job(time.Now().In(c.location))
	})
	if err != nil {
		c.cron = nil
		return fmt.Errorf("invalid cron spec %q: %w", c.spec, err)
	}

	c.cron.Start()

	go func() {
		<-ctx.Done()
		c.cron.Stop()
	}()

	return nil
}

// Stop halts the cron loop and waits for a running job to return.
func (c *CronScheduler) Stop(ctx context.Context) error {
	if c.cron == nil {
		return nil
	}

	done := c.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	c.cron = nil
	return nil
}
