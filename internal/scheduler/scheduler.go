package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Purger removes expired records and reports how many were deleted.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type Scheduler struct {
	sched  gocron.Scheduler
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(logger *slog.Logger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		sched:  sched,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// AddPurgeJob runs purger every interval, starting immediately. Runs never overlap.
func (s *Scheduler) AddPurgeJob(name string, interval time.Duration, purger Purger) error {
	if interval <= 0 {
		return fmt.Errorf("invalid purge interval %s", interval)
	}

	_, err := s.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			deleted, err := purger.PurgeExpired(s.ctx)
			if err != nil {
				s.logger.Error("purge job failed", "job", name, "error", err)
				return
			}
			if deleted > 0 {
				s.logger.Info("purge job completed", "job", name, "deleted", deleted)
			}
		}),
		gocron.WithName(name),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.sched.Shutdown()
}
