// Package sched runs the report job on a cron schedule.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is invoked at each scheduled fire time.
type JobFunc func(ctx context.Context)

// Scheduler fires a single job on a standard 5-field cron expression.
// Fires that arrive while a run is still in flight are skipped.
type Scheduler struct {
	expr     string
	schedule cron.Schedule
	job      JobFunc
	running  atomic.Bool
}

// New parses a cron expression (minute hour dom month dow) and returns
// a scheduler for the given job.
func New(expr string, job JobFunc) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	return &Scheduler{expr: expr, schedule: schedule, job: job}, nil
}

// Next returns the first fire time after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Running reports whether a job invocation is currently in flight.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Run blocks, firing the job at each scheduled time, until ctx is
// cancelled. The job runs synchronously; a fire that lands while the
// previous run is still going is skipped rather than queued.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next := s.schedule.Next(time.Now())
		slog.Info("next scheduled run", "schedule", s.expr, "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if !s.running.CompareAndSwap(false, true) {
			slog.Warn("previous run still in flight, skipping fire", "at", next.Format(time.RFC3339))
			continue
		}
		s.job(ctx)
		s.running.Store(false)
	}
}
