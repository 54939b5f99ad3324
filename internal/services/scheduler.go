package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SweepScheduler runs the job expiry sweep on a cron schedule.
type SweepScheduler struct {
	cron    *cron.Cron
	jobs    *JobService
	logger  *slog.Logger
	timeout time.Duration
}

func NewSweepScheduler(jobs *JobService, logger *slog.Logger, schedule string, timeout time.Duration) (*SweepScheduler, error) {
	s := &SweepScheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		jobs:    jobs,
		logger:  logger,
		timeout: timeout,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *SweepScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.jobs.RunScheduledSweep(ctx)
}

func (s *SweepScheduler) Start() {
	s.cron.Start()
	s.logger.Info("job sweep scheduler started")
}

// Stop waits for a running sweep to finish or ctx to end.
func (s *SweepScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("job sweep still running at shutdown")
	}
}
