package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/joserubemneto/tqs-project-sub002/internal/clock"
	"github.com/joserubemneto/tqs-project-sub002/internal/domain"
)

type SweeperRepository interface {
	ListToStart(ctx context.Context, now time.Time) ([]string, error)
	ListToComplete(ctx context.Context, now time.Time) ([]string, error)
	// MarkInProgress and MarkCompleted repeat the selection predicate in
	// the UPDATE, returning false when another writer got there first.
	MarkInProgress(ctx context.Context, id string, now time.Time) (bool, error)
	MarkCompleted(ctx context.Context, id string, now time.Time) (bool, error)
}

const defaultSweepInterval = 60 * time.Second
const sweepTimeout = 30 * time.Second

// Sweeper drives the time-based opportunity transitions: open/full
// opportunities whose start has passed become in_progress, in_progress
// ones whose end has passed become completed. It needs no input besides
// the clock, and a pass is idempotent because each update re-checks the
// selection predicate.
type Sweeper struct {
	repo     SweeperRepository
	clock    clock.Clock
	logger   *zap.Logger
	interval time.Duration
}

func NewSweeper(repo SweeperRepository, clk clock.Clock, logger *zap.Logger, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		repo:     repo,
		clock:    clk,
		logger:   logger,
		interval: defaultSweepInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SweeperOption func(*Sweeper)

// WithSweepInterval overrides the default 60s period.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// Sweep runs one pass. Rows are written one at a time so a failure on
// one opportunity never blocks the rest; per-row failures are logged
// and the pass continues. Only a failure to list rows aborts the pass.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := s.clock.Now()

	toStart, err := s.repo.ListToStart(ctx, now)
	if err != nil {
		return err
	}
	for _, id := range toStart {
		moved, err := s.repo.MarkInProgress(ctx, id, now)
		if err != nil {
			s.logger.Error("sweep: mark in progress",
				zap.String("opportunity_id", id),
				zap.Error(err))
			continue
		}
		if moved {
			s.logger.Info("opportunity started",
				zap.String("opportunity_id", id),
				zap.String("status", string(domain.OpportunityStatusInProgress)))
		}
	}

	toComplete, err := s.repo.ListToComplete(ctx, now)
	if err != nil {
		return err
	}
	for _, id := range toComplete {
		moved, err := s.repo.MarkCompleted(ctx, id, now)
		if err != nil {
			s.logger.Error("sweep: mark completed",
				zap.String("opportunity_id", id),
				zap.Error(err))
			continue
		}
		if moved {
			s.logger.Info("opportunity completed",
				zap.String("opportunity_id", id),
				zap.String("status", string(domain.OpportunityStatusCompleted)))
		}
	}

	return nil
}

// Start schedules Sweep on a fixed period. SkipIfStillRunning makes the
// job single-flight: a pass that outlives the period suppresses the
// next tick instead of overlapping with itself. The returned stop
// function waits for a running pass to finish.
func (s *Sweeper) Start() (stop func()) {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(s.logger.Named("sweeper")))
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))

	c.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if err := s.Sweep(ctx); err != nil {
			s.logger.Error("sweep failed", zap.Error(err))
		}
	}))
	c.Start()

	return func() {
		<-c.Stop().Done()
	}
}
