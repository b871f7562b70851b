package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/internal/repositories"
	"github.com/anonto42/freelink/backend/pkg/apperrors"
	"github.com/anonto42/freelink/backend/validators"
)

// RequestView is one entry of a job's requests map with its key.
type RequestView struct {
	FreelancerID string `json:"freelancerId"`
	models.JobRequest
}

// JobService is the job lifecycle state machine. Every transition runs as
// a compare-and-write on the job node and re-checks state there, so
// duplicate and concurrent calls cannot apply a transition twice.
type JobService struct {
	jobs       repositories.JobRepository
	users      repositories.UserRepository
	projection *ProjectionManager
	blocks     *BlockService
	notifier   *Notifier
	loc        *time.Location
	log        *slog.Logger
	now        func() time.Time
}

func NewJobService(jobs repositories.JobRepository, users repositories.UserRepository, projection *ProjectionManager, blocks *BlockService, notifier *Notifier, loc *time.Location, log *slog.Logger) *JobService {
	if loc == nil {
		loc = time.UTC
	}
	return &JobService{
		jobs:       jobs,
		users:      users,
		projection: projection,
		blocks:     blocks,
		notifier:   notifier,
		loc:        loc,
		log:        loggerOr(log),
		now:        time.Now,
	}
}

func checkDates(start, end string) error {
	s, err := time.Parse(models.DateLayout, start)
	if err != nil {
		return apperrors.Validation("startDate must be a date formatted as " + models.DateLayout)
	}
	e, err := time.Parse(models.DateLayout, end)
	if err != nil {
		return apperrors.Validation("endDate must be a date formatted as " + models.DateLayout)
	}
	if e.Before(s) {
		return apperrors.Validation("endDate must not be before startDate")
	}
	return nil
}

// PostJob creates an open job and announces it to freelancers.
func (s *JobService) PostJob(ctx context.Context, employerID string, req models.CreateJobRequest) (*models.Job, error) {
	if err := validators.Check(req); err != nil {
		return nil, err
	}
	if err := checkDates(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	employer, err := requireRole(ctx, s.users, employerID, models.RoleEmployer)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	job := &models.Job{
		ID:           newID(),
		EmployerID:   employerID,
		EmployerName: employer.Name,
		Title:        req.Title,
		Description:  req.Description,
		Payment:      req.Payment,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Status:       models.JobStatusOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	s.log.Info("job posted", "job_id", job.ID, "employer_id", employerID)

	tmpl := models.Notification{
		Type:        models.NotifJobPosted,
		Message:     fmt.Sprintf("New job posted: %s", job.Title),
		RedirectURL: "/jobs/" + job.ID,
	}
	hidden := func(u models.User) bool {
		return u.BlockedUsers[employerID].Blocked || employer.BlockedUsers[u.ID].Blocked
	}
	if _, err := s.notifier.BroadcastToFreelancers(ctx, tmpl, func(u models.User) bool { return !hidden(u) }); err != nil {
		s.log.Error("job broadcast failed", "job_id", job.ID, "error", err)
	}
	return job, nil
}

// RequestJob records the freelancer's request on an open job.
func (s *JobService) RequestJob(ctx context.Context, freelancerID, jobID string) (*models.Job, error) {
	freelancer, err := requireRole(ctx, s.users, freelancerID, models.RoleFreelancer)
	if err != nil {
		return nil, err
	}
	current, err := s.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := s.denyBlocked(ctx, current.EmployerID, freelancerID); err != nil {
		return nil, err
	}

	job, err := s.jobs.Mutate(ctx, jobID, func(job *models.Job) (bool, error) {
		if job.Status != models.JobStatusOpen {
			return false, apperrors.InvalidState("job is not open for requests")
		}
		if r, ok := job.Requests[freelancerID]; ok && r.Status != models.RequestStatusRejected {
			return false, apperrors.InvalidState("job already requested")
		}
		now := s.now().UTC()
		if job.Requests == nil {
			job.Requests = make(map[string]models.JobRequest)
		}
		job.Requests[freelancerID] = models.JobRequest{
			Status:         models.RequestStatusRequested,
			FreelancerName: freelancer.Name,
			RequestedAt:    now,
			UpdatedAt:      now,
		}
		job.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("job requested", "job_id", jobID, "freelancer_id", freelancerID)
	s.notify(ctx, job.EmployerID, models.Notification{
		Type:        models.NotifJobRequest,
		Message:     fmt.Sprintf("%s requested your job %s", freelancer.Name, job.Title),
		RedirectURL: "/jobs/" + jobID + "/requests",
	})
	return job, nil
}

// AcceptRequest assigns the job to freelancerID. Repeating an accept that
// already applied re-materializes the mirrors and does nothing else.
func (s *JobService) AcceptRequest(ctx context.Context, employerID, jobID, freelancerID string) (*models.Job, error) {
	current, err := s.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if current.EmployerID != employerID {
		return nil, apperrors.Unauthorized("only the job's employer can accept requests")
	}
	if current.FreelancerID != freelancerID || !current.HoldsAcceptance() {
		if err := s.denyBlocked(ctx, employerID, freelancerID); err != nil {
			return nil, err
		}
	}

	var applied bool
	job, err := s.jobs.Mutate(ctx, jobID, func(job *models.Job) (bool, error) {
		applied = false
		if job.EmployerID != employerID {
			return false, apperrors.Unauthorized("only the job's employer can accept requests")
		}
		if job.FreelancerID == freelancerID && job.HoldsAcceptance() {
			return false, nil
		}
		if job.Status != models.JobStatusOpen {
			return false, apperrors.InvalidState("job is not open")
		}
		r, ok := job.Requests[freelancerID]
		if !ok || r.Status != models.RequestStatusRequested {
			return false, apperrors.InvalidState("no pending request from this freelancer")
		}
		now := s.now().UTC()
		r.Status = models.RequestStatusAccepted
		r.UpdatedAt = now
		job.Requests[freelancerID] = r
		job.Status = models.JobStatusAccepted
		job.FreelancerID = freelancerID
		job.UpdatedAt = now
		applied = true
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if applied {
		s.log.Info("request accepted", "job_id", jobID, "freelancer_id", freelancerID)
		s.notify(ctx, freelancerID, models.Notification{
			Type:        models.NotifRequestAccepted,
			Message:     fmt.Sprintf("Your request for %s was accepted", job.Title),
			RedirectURL: "/jobs/" + jobID,
		})
	}

	// The job write above is the source of truth. A failed mirror write is
	// repaired by retrying this call or by the next reconcile.
	if err := s.projection.Materialize(ctx, job); err != nil {
		s.log.Error("relationship mirrors not written", "job_id", jobID, "error", err)
		return nil, apperrors.Infrastructure("job accepted but relationship mirrors were not written", err)
	}
	return job, nil
}

// DeclineRequest rejects a pending request. The freelancer may request again.
func (s *JobService) DeclineRequest(ctx context.Context, employerID, jobID, freelancerID string) (*models.Job, error) {
	var applied bool
	job, err := s.jobs.Mutate(ctx, jobID, func(job *models.Job) (bool, error) {
		applied = false
		if job.EmployerID != employerID {
			return false, apperrors.Unauthorized("only the job's employer can decline requests")
		}
		r, ok := job.Requests[freelancerID]
		if !ok {
			return false, apperrors.NotFound("request not found")
		}
		switch r.Status {
		case models.RequestStatusRejected:
			return false, nil
		case models.RequestStatusAccepted:
			return false, apperrors.InvalidState("request was already accepted")
		}
		now := s.now().UTC()
		r.Status = models.RequestStatusRejected
		r.UpdatedAt = now
		job.Requests[freelancerID] = r
		job.UpdatedAt = now
		applied = true
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return job, nil
	}

	s.log.Info("request declined", "job_id", jobID, "freelancer_id", freelancerID)
	s.notify(ctx, freelancerID, models.Notification{
		Type:        models.NotifRequestDeclined,
		Message:     fmt.Sprintf("Your request for %s was declined", job.Title),
		RedirectURL: "/jobs/" + jobID,
	})
	return job, nil
}

// EditJob merges the non-empty fields of patch into an open job.
func (s *JobService) EditJob(ctx context.Context, employerID, jobID string, patch models.UpdateJobRequest) (*models.Job, error) {
	if err := validators.Check(patch); err != nil {
		return nil, err
	}
	return s.jobs.Mutate(ctx, jobID, func(job *models.Job) (bool, error) {
		if job.EmployerID != employerID {
			return false, apperrors.Unauthorized("only the job's employer can edit it")
		}
		if job.Status != models.JobStatusOpen {
			return false, apperrors.InvalidState("only open jobs can be edited")
		}
		if patch.Title != "" {
			job.Title = patch.Title
		}
		if patch.Description != "" {
			job.Description = patch.Description
		}
		if patch.Payment > 0 {
			job.Payment = patch.Payment
		}
		if patch.StartDate != "" {
			job.StartDate = patch.StartDate
		}
		if patch.EndDate != "" {
			job.EndDate = patch.EndDate
		}
		if err := checkDates(job.StartDate, job.EndDate); err != nil {
			return false, err
		}
		job.UpdatedAt = s.now().UTC()
		return true, nil
	})
}

// today is the current date in the marketplace time zone.
func (s *JobService) today(now time.Time) string {
	return now.In(s.loc).Format(models.DateLayout)
}

// closeExpired closes jobID if it is still open or accepted and its end
// date is before the day of now. It reports whether this call closed it;
// only that caller notifies.
func (s *JobService) closeExpired(ctx context.Context, jobID string, now time.Time) (bool, error) {
	today := s.today(now)
	var applied bool
	job, err := s.jobs.Mutate(ctx, jobID, func(job *models.Job) (bool, error) {
		applied = false
		if job.Status == models.JobStatusClosed || job.EndDate >= today {
			return false, nil
		}
		at := now.UTC()
		job.Status = models.JobStatusClosed
		job.ClosedAt = &at
		job.UpdatedAt = at
		applied = true
		return true, nil
	})
	if err != nil || !applied {
		return false, err
	}

	s.log.Info("job closed by deadline", "job_id", jobID, "end_date", job.EndDate)
	tmpl := models.Notification{
		Type:        models.NotifJobClosed,
		Message:     fmt.Sprintf("%s has reached its end date and is now closed", job.Title),
		RedirectURL: "/jobs/" + jobID,
	}
	s.notify(ctx, job.EmployerID, tmpl)
	if job.FreelancerID != "" {
		s.notify(ctx, job.FreelancerID, tmpl)
	}
	return true, nil
}

// GetJob returns a job unless the caller and its employer are blocked. The
// assigned freelancer always sees the job.
func (s *JobService) GetJob(ctx context.Context, callerID, jobID string) (*models.Job, error) {
	job, err := s.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if callerID != job.EmployerID && callerID != job.FreelancerID {
		blocked, err := s.blocks.eitherBlocked(ctx, callerID, job.EmployerID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, apperrors.NotFound("job not found")
		}
	}
	return job, nil
}

// ListOpenJobs returns open jobs visible to the freelancer.
func (s *JobService) ListOpenJobs(ctx context.Context, freelancerID string) ([]models.Job, error) {
	freelancer, err := requireRole(ctx, s.users, freelancerID, models.RoleFreelancer)
	if err != nil {
		return nil, err
	}
	open, err := s.jobs.GetJobsByStatus(ctx, models.JobStatusOpen)
	if err != nil {
		return nil, err
	}

	blockedBy := make(map[string]bool)
	visible := make([]models.Job, 0, len(open))
	for _, job := range open {
		if freelancer.BlockedUsers[job.EmployerID].Blocked {
			continue
		}
		hidden, seen := blockedBy[job.EmployerID]
		if !seen {
			if hidden, err = s.users.IsBlocked(ctx, job.EmployerID, freelancerID); err != nil {
				return nil, err
			}
			blockedBy[job.EmployerID] = hidden
		}
		if !hidden {
			visible = append(visible, job)
		}
	}
	return visible, nil
}

// ListRequests returns a job's requests, oldest first, without freelancers
// blocked in either direction.
func (s *JobService) ListRequests(ctx context.Context, employerID, jobID string) ([]RequestView, error) {
	job, err := s.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.EmployerID != employerID {
		return nil, apperrors.Unauthorized("only the job's employer can list its requests")
	}

	views := make([]RequestView, 0, len(job.Requests))
	for fid, r := range job.Requests {
		blocked, err := s.blocks.eitherBlocked(ctx, employerID, fid)
		if err != nil {
			return nil, err
		}
		if !blocked {
			views = append(views, RequestView{FreelancerID: fid, JobRequest: r})
		}
	}
	sort.Slice(views, func(i, k int) bool {
		if !views[i].RequestedAt.Equal(views[k].RequestedAt) {
			return views[i].RequestedAt.Before(views[k].RequestedAt)
		}
		return views[i].FreelancerID < views[k].FreelancerID
	})
	return views, nil
}

func (s *JobService) ListEmployerJobs(ctx context.Context, employerID string) ([]models.Job, error) {
	return s.jobs.GetJobsByEmployer(ctx, employerID)
}

// ListFreelancerJobs returns the jobs assigned to the freelancer.
func (s *JobService) ListFreelancerJobs(ctx context.Context, freelancerID string) ([]models.Job, error) {
	return s.jobs.GetJobsByFreelancer(ctx, freelancerID)
}

func (s *JobService) denyBlocked(ctx context.Context, employerID, freelancerID string) error {
	blocked, err := s.blocks.eitherBlocked(ctx, employerID, freelancerID)
	if err != nil {
		return err
	}
	if blocked {
		return apperrors.Unauthorized("a block exists between these users")
	}
	return nil
}

// notify delivers a point notification. Failures are already logged and
// dead-lettered by the notifier and never undo the transition.
func (s *JobService) notify(ctx context.Context, recipientID string, tmpl models.Notification) {
	if err := s.notifier.Notify(ctx, recipientID, tmpl); err != nil {
		s.log.Warn("notification not delivered", "recipient_id", recipientID, "type", tmpl.Type, "error", err)
	}
}
