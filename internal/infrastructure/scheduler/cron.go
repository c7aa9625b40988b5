package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"PortfolioMonitor/internal/ports"
	"PortfolioMonitor/pkg/logger"
)

// CronScheduler runs a job on a cron spec ("*/30 * * * *" or "@every 30m").
type CronScheduler struct {
	spec       string
	loc        *time.Location
	runOnStart bool
	log        *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
	id   cron.EntryID
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// Option customizes CronScheduler.
type Option func(*CronScheduler)

// WithLocation evaluates the spec in loc instead of UTC.
func WithLocation(loc *time.Location) Option {
	return func(c *CronScheduler) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithRunOnStart fires the job immediately after Start, then on schedule.
func WithRunOnStart(v bool) Option {
	return func(c *CronScheduler) { c.runOnStart = v }
}

// WithLogger routes cron's own messages to log.
func WithLogger(log *slog.Logger) Option {
	return func(c *CronScheduler) { c.log = log }
}

// NewCronScheduler builds a scheduler configured via cron expression string.
func NewCronScheduler(spec string, opts ...Option) *CronScheduler {
	c := &CronScheduler{spec: spec, loc: time.UTC}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start registers job and begins the schedule. Overlapping triggers are skipped while a run is in progress.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	cl := logger.NewPrintf(c.log, "scheduler")
	cr := cron.New(
		cron.WithLocation(c.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	id, err := cr.AddFunc(c.spec, func() { job(time.Now().In(c.loc)) })
	if err != nil {
		return fmt.Errorf("schedule %q: %w", c.spec, err)
	}
	c.cron, c.id = cr, id
	cr.Start()

	if c.runOnStart {
		// goes through the chain so it cannot overlap with a scheduled trigger
		go cr.Entry(id).WrappedJob.Run()
	}

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()
	return nil
}

// Next reports the next scheduled trigger, zero when not started.
func (c *CronScheduler) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron == nil {
		return time.Time{}
	}
	return c.cron.Entry(c.id).Next
}

// Stop halts the schedule and waits for a running job to finish or ctx to end.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	cr := c.cron
	c.cron = nil
	c.mu.Unlock()
	if cr == nil {
		return nil
	}

	done := cr.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
