// Package scheduler runs periodic database upkeep with gocron.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/sunnylabs/coachd/internal/profile"
)

const maintenanceTimeout = 5 * time.Minute

// Scheduler owns the gocron instance and its jobs.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// New builds the scheduler and registers the maintenance job. An empty
// cron expression disables the job but still returns a usable scheduler.
func New(log *slog.Logger, cronExpr string, store profile.Store) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	s := &Scheduler{
		scheduler: sched,
		logger:    log.With("component", "scheduler"),
	}

	if cronExpr == "" {
		s.logger.Info("Maintenance job disabled")
		return s, nil
	}

	_, err = sched.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
			defer cancel()

			s.logger.Info("Running database maintenance")
			start := time.Now()
			if err := store.RunMaintenance(ctx); err != nil {
				s.logger.Error("Database maintenance failed", "error", err)
				return
			}
			s.logger.Info("Database maintenance finished", "duration", time.Since(start))
		}),
		gocron.WithName("db_maintenance"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule maintenance job: %w", err)
	}
	s.logger.Info("Scheduled maintenance job", "cron", cronExpr)
	return s, nil
}

// Start begins the scheduler's ticking.
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Shutdown stops the scheduler and waits for running jobs.
func (s *Scheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}
