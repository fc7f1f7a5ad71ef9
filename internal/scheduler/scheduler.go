package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"nikosoko-backend/internal/jobs"
	"nikosoko-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner. It fails when a
// configured schedule does not parse.
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	// Expire passes whose visit date has passed
	if _, err := s.cron.AddFunc(cfg.ExpireInvitations, s.jobs.ExpireInvitations); err != nil {
		logger.Error("Failed to register ExpireInvitations job", "error", err)
		return fmt.Errorf("invalid expire_invitations schedule: %w", err)
	}

	// Remind leaders about pending join requests
	if _, err := s.cron.AddFunc(cfg.RemindPendingVotes, s.jobs.RemindPendingVotes); err != nil {
		logger.Error("Failed to register RemindPendingVotes job", "error", err)
		return fmt.Errorf("invalid remind_pending_votes schedule: %w", err)
	}

	logger.Info("All cron jobs registered successfully", "count", len(s.cron.Entries()))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler is running
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
