package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/internal/repositories"
	"github.com/anonto42/freelink/backend/pkg/lease"
)

// SweepReport counts the outcome of one sweep.
type SweepReport struct {
	Scanned int `json:"scanned"`
	Expired int `json:"expired"`
	Closed  int `json:"closed"`
}

// Sweeper closes jobs whose end date has passed. Any number of sweepers may
// run at once: each close re-checks the job inside its own transaction and
// only the winning transaction notifies.
type Sweeper struct {
	jobs      repositories.JobRepository
	lifecycle *JobService
	locker    lease.Locker
	log       *slog.Logger
	now       func() time.Time
}

// NewSweeper creates a Sweeper. locker may be nil.
func NewSweeper(jobs repositories.JobRepository, lifecycle *JobService, locker lease.Locker, log *slog.Logger) *Sweeper {
	return &Sweeper{jobs: jobs, lifecycle: lifecycle, locker: locker, log: loggerOr(log), now: time.Now}
}

// SweepOnce closes every open or accepted job with an end date before the
// day of now. A job ending today stays open until the day is over.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) (SweepReport, error) {
	var report SweepReport
	today := s.lifecycle.today(now)
	var errs []error

	for _, status := range []models.JobStatus{models.JobStatusOpen, models.JobStatusAccepted} {
		jobs, err := s.jobs.GetJobsByStatus(ctx, status)
		if err != nil {
			return report, err
		}
		for _, job := range jobs {
			report.Scanned++
			if job.EndDate >= today {
				continue
			}
			report.Expired++
			closed, err := s.lifecycle.closeExpired(ctx, job.ID, now)
			if err != nil {
				s.log.Error("failed to close expired job", "job_id", job.ID, "error", err)
				errs = append(errs, err)
				continue
			}
			if closed {
				report.Closed++
			}
		}
	}
	if report.Expired > 0 {
		s.log.Info("deadline sweep finished", "scanned", report.Scanned, "expired", report.Expired, "closed", report.Closed)
	}
	return report, errors.Join(errs...)
}

// Run sweeps immediately and then every interval until ctx ends.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	runEvery(ctx, s.log, "deadline-sweep", interval, s.locker, func(ctx context.Context) error {
		_, err := s.SweepOnce(ctx, s.now())
		return err
	})
}
