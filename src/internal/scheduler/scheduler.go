// Package scheduler runs the daily recurring-document pass.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
)

const lockKey = "ledger-engine:recurring:process-due"

// Runner processes everything due as of now.
type Runner interface {
	ProcessDueRecurring(ctx context.Context) (domain.RecurringRunSummary, error)
}

// Locker guards a tick across instances. release is only set when ok.
type Locker interface {
	TryLock(ctx context.Context, key string) (release func(), ok bool, err error)
}

type Options struct {
	Hour     int
	Minute   int
	Location *time.Location
}

type Scheduler struct {
	runner  Runner
	locker  Locker
	opts    Options
	now     func() time.Time
	running sync.Mutex
}

// New returns a scheduler firing daily at opts.Hour:opts.Minute. A nil
// locker limits overlap protection to this process.
func New(runner Runner, locker Locker, opts Options) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Scheduler{runner: runner, locker: locker, opts: opts, now: time.Now}
}

// NextRun returns the first hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Run blocks until ctx is cancelled, ticking once a day.
func (s *Scheduler) Run(ctx context.Context) error {
	logger.Info("scheduler started", logger.Fields{
		"runAt":    time.Date(0, 1, 1, s.opts.Hour, s.opts.Minute, 0, 0, time.UTC).Format("15:04"),
		"location": s.opts.Location.String(),
	})

	for {
		now := s.now()
		next := NextRun(now, s.opts.Hour, s.opts.Minute, s.opts.Location)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("scheduler stopped", nil)
			return nil
		case <-timer.C:
			if _, _, err := s.Tick(ctx); err != nil {
				logger.Error("scheduler tick failed", err, logger.Fields{"scheduledFor": next.Format(time.RFC3339)})
			}
		}
	}
}

// Tick runs one pass unless another pass holds the lock, in this process or,
// with a locker, in any instance. ran is false when the pass was skipped.
func (s *Scheduler) Tick(ctx context.Context) (summary domain.RecurringRunSummary, ran bool, err error) {
	if !s.running.TryLock() {
		logger.Warn("scheduler tick skipped", logger.Fields{"reason": "previous tick still running"})
		return summary, false, nil
	}
	defer s.running.Unlock()

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, lockKey)
		if err != nil {
			return summary, false, err
		}
		if !ok {
			logger.Info("scheduler tick skipped", logger.Fields{"reason": "another instance holds the lock"})
			return summary, false, nil
		}
		defer release()
	}

	started := s.now()
	summary, err = s.runner.ProcessDueRecurring(ctx)
	if err != nil {
		return summary, true, err
	}

	logger.Info("scheduler tick completed", logger.Fields{
		"runDate":    summary.RunDate.Format(time.DateOnly),
		"generated":  summary.Generated,
		"replayed":   summary.Replayed,
		"failed":     summary.Failed,
		"durationMs": s.now().Sub(started).Milliseconds(),
	})
	return summary, true, nil
}
