package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"restoran-api/internal/logger"

	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

// NewScheduler registers the reconciler on a standard five-field cron spec
// (descriptors such as "@hourly" or "@every 30m" are accepted too).
func NewScheduler(spec string, r *Reconciler) (*Scheduler, error) {
	log := logger.WithComponent("scheduler")
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(spec, func() { runWithRecovery(log, "reconcile_memberships", r) }); err != nil {
		return nil, fmt.Errorf("register reconcile job: %w", err)
	}
	return &Scheduler{cron: c, log: log}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func runWithRecovery(log *slog.Logger, name string, r *Reconciler) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("job panicked", "job", name, "panic", p)
		}
	}()

	log.Info("starting job", "job", name)
	rep, err := r.Run(context.Background())
	if err != nil {
		log.Error("job failed", "job", name, "error", err)
		return
	}
	log.Info("job completed", "job", name,
		"removed", rep.Removed, "added", rep.Added,
		"unaffiliated", rep.Unaffiliated, "skipped", rep.Skipped)
}
