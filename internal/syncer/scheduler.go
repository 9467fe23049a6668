package syncer

// scheduler.go runs syncs periodically in serve mode.
//
// The scheduler runs once immediately on start, then every interval, and
// stops when the context is cancelled. A tick that finds a run already in
// progress waits up to the limiter's maxWait for it, then is skipped rather
// than queued. Failed runs are logged and
// recorded in the history; they never stop the scheduler.

import (
	"context"
	"errors"
	"time"
)

// StartScheduler blocks running scheduled syncs until ctx is cancelled.
// A non-positive interval returns immediately.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	s.logger.Info("sync scheduler started", "interval", interval.String())

	// Run immediately on startup
	s.runScheduled(ctx)

	// Then run periodically
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sync scheduler stopped")
			return
		case <-ticker.C:
			s.runScheduled(ctx)
		}
	}
}

// runScheduled performs one scheduled run over every configured table.
func (s *Service) runScheduled(ctx context.Context) {
	if err := s.limiter.Acquire(ctx); err != nil {
		if errors.Is(err, ErrTooManyRuns) {
			s.logger.Info("scheduled sync skipped, run in progress")
		}
		return
	}
	defer s.limiter.Release()

	sheets := s.Sheets()
	run := s.execute(ctx, s.begin(TriggerSchedule, sheets), sheets)
	s.logger.Debug("scheduled sync completed", "run_id", run.ID, "status", string(run.Status))
}
