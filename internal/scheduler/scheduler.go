package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Sweeper is anything that can reclaim expired entries; the in-memory cache
// implements it. The Redis backend expires keys itself and needs no sweep.
type Sweeper interface {
	Sweep() int
}

// Scheduler periodically sweeps expired cache entries to bound memory use.
// The cache already treats expired entries as absent on read; the sweep only
// reclaims the space they hold.
type Scheduler struct {
	scheduler *gocron.Scheduler
	sweeper   Sweeper
	interval  time.Duration
	logger    *zap.Logger
}

// New creates a Scheduler sweeping at the given interval.
func New(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		sweeper:   sweeper,
		interval:  interval,
		logger:    logger.With(zap.String("component", "scheduler")),
	}
}

// Start schedules the periodic sweep. A non-positive interval disables it.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("cache sweep disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		removed := s.sweeper.Sweep()
		if removed > 0 {
			s.logger.Info("swept expired cache entries", zap.Int("removed", removed))
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop cancels any scheduled sweeps.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
