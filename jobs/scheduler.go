// Package jobs runs the background maintenance tasks of the ledger.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Sweeper is satisfied by *SettlementSweeper
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Scheduler runs the settlement sweep on a cron schedule
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	schedule string
}

// NewScheduler creates a UTC scheduler. A sweep that is still running when
// the next tick fires makes that tick a no-op.
func NewScheduler(sweeper Sweeper, schedule string) *Scheduler {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	return &Scheduler{
		cron:     c,
		sweeper:  sweeper,
		schedule: schedule,
	}
}

// Start registers the jobs and starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.runSweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	log.WithField("schedule", s.schedule).Info("Job scheduler started")
	return nil
}

func (s *Scheduler) runSweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	log.Debug("[CRON] Settlement sweep")
	swept, err := s.sweeper.Sweep(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Settlement sweep failed")
		return
	}
	if swept > 0 {
		log.WithField("matches", swept).Info("[CRON] Settlement sweep re-dispatched matches")
	}
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Job scheduler stopped")
}
