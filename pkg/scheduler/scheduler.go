// Package scheduler triggers a job once per calendar day at a target hour.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInterval is how often the scheduler compares the clock with the
// target hour.
const DefaultInterval = time.Hour

// ErrInvalidHour is returned for a target hour outside 0..23.
var ErrInvalidHour = errors.New("run hour must be between 0 and 23")

// Job is the work run on every trigger. A non-nil error stops the scheduler.
type Job func(ctx context.Context) error

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Scheduler runs Job immediately and then once per day, the first time a check
// falls in Hour on a date that has not run yet. Nothing is persisted across
// restarts.
type Scheduler struct {
	Hour     int
	Interval time.Duration
	Clock    Clock
	Job      Job
	Logger   *slog.Logger
}

// Run blocks until ctx is cancelled (returning nil) or the job fails.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("%w: %d", ErrInvalidHour, s.Hour)
	}

	clock := s.Clock
	if clock == nil {
		clock = SystemClock
	}

	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	log := s.Logger
	if log == nil {
		log = slog.Default()
	}

	lastDay, err := s.fire(ctx, clock)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			log.InfoContext(ctx, "scheduler stopped")

			return nil
		case <-clock.After(interval):
		}

		now := clock.Now()
		if now.Hour() != s.Hour || sameDay(now, lastDay) {
			log.DebugContext(ctx, "not time to sweep", "hour", now.Hour(), "target_hour", s.Hour)

			continue
		}

		lastDay, err = s.fire(ctx, clock)
		if err != nil {
			return err
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, clock Clock) (time.Time, error) {
	day := clock.Now()

	err := s.Job(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return day, nil
		}

		return day, fmt.Errorf("scheduled job: %w", err)
	}

	return day, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	return ay == by && am == bm && ad == bd
}
