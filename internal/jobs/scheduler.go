package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/repos"
)

// Scheduler runs registered periodic jobs on their cron specs, wrapping each
// run in the definition's job lock so deploys with several worker processes
// still run every periodic job at most once per tick. A crashed holder heals
// via the lock TTL.
type Scheduler struct {
	log      *logger.Logger
	cron     *cron.Cron
	locks    repos.JobLockRepo
	registry *Registry

	ctx context.Context
}

func NewScheduler(baseLog *logger.Logger, locks repos.JobLockRepo, registry *Registry) *Scheduler {
	return &Scheduler{
		log:      baseLog.With("component", "Scheduler"),
		cron:     cron.New(cron.WithSeconds()),
		locks:    locks,
		registry: registry,
	}
}

// Add schedules a run function under a registered definition's cron spec.
func (s *Scheduler) Add(name string, fn func(ctx context.Context) error) error {
	def, ok := s.registry.Get(name)
	if !ok {
		return fmt.Errorf("no job definition registered for name=%s", name)
	}
	_, err := s.cron.AddFunc(def.CronSpec, func() {
		ctx := s.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		res := s.locks.Acquire(ctx, def.Name, def.LockTTL)
		if !res.Acquired {
			s.log.Debug("Periodic job skipped", "job_name", def.Name, "reason", res.Reason)
			return
		}
		defer s.locks.Release(ctx, def.Name)
		if err := fn(ctx); err != nil {
			s.log.Warn("Periodic job run failed", "job_name", def.Name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", def.Name, def.CronSpec, err)
	}
	return nil
}

func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	go func() {
		<-ctx.Done()
		s.cron.Stop()
	}()
}
