// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper parses Staged imports that nobody triggered.
type Sweeper interface {
	SweepStaged(ctx context.Context, minAge time.Duration, limit, workers int) (int, error)
}

// SweepConfig configures the staged-import sweep job.
type SweepConfig struct {
	Schedule string
	MinAge   time.Duration
	Limit    int
	Workers  int
	Timeout  time.Duration
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	cfg     SweepConfig
	logger  *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(sweeper Sweeper, cfg SweepConfig, logger *slog.Logger) *Scheduler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	// Standard 5-field format, overlapping runs are skipped.
	c := cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	return &Scheduler{
		cron:    c,
		sweeper: sweeper,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start registers the sweep job and begins scheduling. It does nothing when
// no schedule is configured.
func (s *Scheduler) Start() error {
	if s.cfg.Schedule == "" {
		s.logger.Info("staged import sweeper disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.sweep); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("schedule", s.cfg.Schedule),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers a sweep.
func (s *Scheduler) RunNow() {
	go s.sweep()
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	started := time.Now()
	n, err := s.sweeper.SweepStaged(ctx, s.cfg.MinAge, s.cfg.Limit, s.cfg.Workers)
	if err != nil {
		s.logger.Error("staged import sweep failed", slog.Int("imports", n), slog.Any("error", err))
		return
	}
	if n == 0 {
		s.logger.Debug("no staged imports to sweep")
		return
	}
	s.logger.Info("staged import sweep completed",
		slog.Int("imports", n),
		slog.Duration("elapsed", time.Since(started)),
	)
}
