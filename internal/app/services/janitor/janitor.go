// Package janitor runs periodic housekeeping on a cron schedule.
package janitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dabbahouse/foodorder/internal/app/metrics"
	"github.com/dabbahouse/foodorder/pkg/logger"
)

// DefaultSchedule runs housekeeping every ten minutes.
const DefaultSchedule = "@every 10m"

// SessionPurger removes expired sessions.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// Cleaner is housekeeping that cannot fail, such as trimming in-memory tables.
type Cleaner interface {
	Cleanup()
}

// Janitor purges expired sessions and runs registered cleaners.
type Janitor struct {
	schedule string
	sessions SessionPurger
	cleaners []Cleaner
	timeout  time.Duration
	log      *logger.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// New constructs a janitor. An empty schedule uses DefaultSchedule.
func New(schedule string, sessions SessionPurger, log *logger.Logger, cleaners ...Cleaner) *Janitor {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if log == nil {
		log = logger.NewDefault("janitor")
	}
	return &Janitor{
		schedule: schedule,
		sessions: sessions,
		cleaners: cleaners,
		timeout:  30 * time.Second,
		log:      log,
	}
}

// Name implements system.Service.
func (j *Janitor) Name() string { return "janitor" }

// Start schedules the housekeeping job.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		return nil
	}

	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := c.AddFunc(j.schedule, func() { j.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", j.schedule, err)
	}
	c.Start()
	j.cron = c
	j.log.WithField("schedule", j.schedule).Info("janitor started")
	return nil
}

// Stop cancels the schedule and waits for a running job to finish.
func (j *Janitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a single housekeeping pass.
func (j *Janitor) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	if j.sessions != nil {
		n, err := j.sessions.PurgeExpired(ctx)
		if err != nil {
			j.log.WithError(err).Warn("purge expired sessions failed")
		} else {
			metrics.RecordSessionsPurged(n)
			if n > 0 {
				j.log.WithField("sessions", n).Info("purged expired sessions")
			}
		}
	}
	for _, c := range j.cleaners {
		c.Cleanup()
	}
}
