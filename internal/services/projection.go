package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/internal/repositories"
	"github.com/anonto42/freelink/backend/pkg/apperrors"
	"github.com/anonto42/freelink/backend/pkg/lease"
)

// MirrorWrite is one planned change to a relationship mirror.
type MirrorWrite struct {
	EmployerID   string
	FreelancerID string
	// OnEmployer selects users/{employer}/acceptedFreelancers/{freelancer};
	// otherwise users/{freelancer}/linkedEmployers/{employer}.
	OnEmployer bool
	// Entry is the value to write. Nil removes the mirror entry.
	Entry *models.RelationshipEntry
}

// RepairInput is everything the planner needs about one user.
type RepairInput struct {
	UserID   string
	UserName string
	Jobs     []models.Job
	// Names holds display names of counterparts, keyed by user id.
	Names map[string]string
	// Mirror is the user's own mirror map.
	Mirror map[string]models.RelationshipEntry
	// Peers holds, per counterpart, that counterpart's entry pointing back
	// at UserID. A nil value means the entry is absent.
	Peers map[string]*models.RelationshipEntry
}

// PlanEmployerRepair computes the writes that make both mirror sides of an
// employer agree with the employer's jobs. Applying the result and planning
// again yields no writes.
func PlanEmployerRepair(in RepairInput) []MirrorWrite {
	expected := make(map[string]models.RelationshipEntry)
	for i := range in.Jobs {
		job := &in.Jobs[i]
		if job.EmployerID != in.UserID || !job.HoldsAcceptance() {
			continue
		}
		expected[job.FreelancerID] = acceptedEntry(in.Names[job.FreelancerID], job.Requests[job.FreelancerID].FreelancerName)
	}
	return planMirrors(in, expected, true)
}

// PlanFreelancerRepair is PlanEmployerRepair seen from the freelancer side.
func PlanFreelancerRepair(in RepairInput) []MirrorWrite {
	expected := make(map[string]models.RelationshipEntry)
	for i := range in.Jobs {
		job := &in.Jobs[i]
		if job.FreelancerID != in.UserID || !job.HoldsAcceptance() {
			continue
		}
		expected[job.EmployerID] = acceptedEntry(in.Names[job.EmployerID], job.EmployerName)
	}
	return planMirrors(in, expected, false)
}

func acceptedEntry(name, fallback string) models.RelationshipEntry {
	if name == "" {
		name = fallback
	}
	return models.RelationshipEntry{Name: name, Status: models.RelationshipAccepted}
}

func planMirrors(in RepairInput, expected map[string]models.RelationshipEntry, userIsEmployer bool) []MirrorWrite {
	var writes []MirrorWrite
	pair := func(peer string, onUser bool, entry *models.RelationshipEntry) MirrorWrite {
		w := MirrorWrite{Entry: entry, OnEmployer: onUser == userIsEmployer}
		if userIsEmployer {
			w.EmployerID, w.FreelancerID = in.UserID, peer
		} else {
			w.EmployerID, w.FreelancerID = peer, in.UserID
		}
		return w
	}

	back := acceptedEntry(in.UserName, "")
	for peer, want := range expected {
		if got, ok := in.Mirror[peer]; !ok || got != want {
			entry := want
			writes = append(writes, pair(peer, true, &entry))
		}
		if got := in.Peers[peer]; got == nil || *got != back {
			entry := back
			writes = append(writes, pair(peer, false, &entry))
		}
	}
	for peer := range in.Mirror {
		if _, ok := expected[peer]; !ok {
			writes = append(writes, pair(peer, true, nil))
		}
	}
	for peer, got := range in.Peers {
		if _, ok := expected[peer]; !ok && got != nil {
			writes = append(writes, pair(peer, false, nil))
		}
	}

	sort.Slice(writes, func(i, k int) bool {
		a, b := writes[i], writes[k]
		if a.EmployerID != b.EmployerID {
			return a.EmployerID < b.EmployerID
		}
		if a.FreelancerID != b.FreelancerID {
			return a.FreelancerID < b.FreelancerID
		}
		return a.OnEmployer && !b.OnEmployer
	})
	return writes
}

// ProjectionManager keeps the acceptedFreelancers and linkedEmployers
// mirrors in line with the jobs they are derived from.
type ProjectionManager struct {
	jobs  repositories.JobRepository
	users repositories.UserRepository
	log   *slog.Logger
}

func NewProjectionManager(jobs repositories.JobRepository, users repositories.UserRepository, log *slog.Logger) *ProjectionManager {
	return &ProjectionManager{jobs: jobs, users: users, log: loggerOr(log)}
}

// Materialize writes both mirror entries for a job holding an acceptance.
func (p *ProjectionManager) Materialize(ctx context.Context, job *models.Job) error {
	if !job.HoldsAcceptance() {
		return apperrors.InvalidState("job has no accepted freelancer")
	}
	employerName, err := p.displayName(ctx, job.EmployerID, job.EmployerName)
	if err != nil {
		return err
	}
	freelancerName, err := p.displayName(ctx, job.FreelancerID, job.Requests[job.FreelancerID].FreelancerName)
	if err != nil {
		return err
	}

	if err := p.users.SetAcceptedFreelancer(ctx, job.EmployerID, job.FreelancerID,
		&models.RelationshipEntry{Name: freelancerName, Status: models.RelationshipAccepted}); err != nil {
		return err
	}
	return p.users.SetLinkedEmployer(ctx, job.FreelancerID, job.EmployerID,
		&models.RelationshipEntry{Name: employerName, Status: models.RelationshipAccepted})
}

func (p *ProjectionManager) displayName(ctx context.Context, userID, fallback string) (string, error) {
	user, err := p.users.GetUserByID(ctx, userID)
	if apperrors.Is(err, apperrors.CodeNotFound) {
		return fallback, nil
	}
	if err != nil {
		return "", err
	}
	return user.Name, nil
}

// Reconcile repairs both mirror sides for every relationship of employerID.
// It is idempotent and safe to run concurrently with itself.
func (p *ProjectionManager) Reconcile(ctx context.Context, employerID string) (*models.ReconcileReport, error) {
	return p.reconcile(ctx, employerID, true)
}

// ReconcileFreelancer is Reconcile driven from the freelancer side.
func (p *ProjectionManager) ReconcileFreelancer(ctx context.Context, freelancerID string) (*models.ReconcileReport, error) {
	return p.reconcile(ctx, freelancerID, false)
}

func (p *ProjectionManager) reconcile(ctx context.Context, userID string, isEmployer bool) (*models.ReconcileReport, error) {
	if userID == "" {
		return nil, apperrors.Validation("user id is required")
	}
	listJobs, getMirror, getPeerMirror, plan := p.jobs.GetJobsByFreelancer, p.users.GetLinkedEmployers, p.users.GetAcceptedFreelancers, PlanFreelancerRepair
	if isEmployer {
		listJobs, getMirror, getPeerMirror, plan = p.jobs.GetJobsByEmployer, p.users.GetAcceptedFreelancers, p.users.GetLinkedEmployers, PlanEmployerRepair
	}

	jobs, err := listJobs(ctx, userID)
	if err != nil {
		return nil, err
	}
	mirror, err := getMirror(ctx, userID)
	if err != nil {
		return nil, err
	}

	peers := make(map[string]*models.RelationshipEntry)
	names := make(map[string]string)
	for peer := range mirror {
		peers[peer] = nil
	}
	for i := range jobs {
		if jobs[i].HoldsAcceptance() {
			peers[counterpart(&jobs[i], isEmployer)] = nil
		}
	}
	for peer := range peers {
		peerMirror, err := getPeerMirror(ctx, peer)
		if err != nil {
			return nil, err
		}
		if entry, ok := peerMirror[userID]; ok {
			peers[peer] = &entry
		}
		if name, err := p.displayName(ctx, peer, ""); err != nil {
			return nil, err
		} else if name != "" {
			names[peer] = name
		}
	}
	userName, err := p.displayName(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	// Acceptance is never revoked, so jobs read after the mirrors cover every
	// acceptance whose mirror entries were observed above.
	fresh, err := listJobs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if userName == "" && isEmployer {
		for i := range fresh {
			if fresh[i].EmployerName != "" {
				userName = fresh[i].EmployerName
				break
			}
		}
	}
	if userName == "" && !isEmployer {
		for i := range fresh {
			if r, ok := fresh[i].Requests[userID]; ok && r.FreelancerName != "" {
				userName = r.FreelancerName
				break
			}
		}
	}

	writes := plan(RepairInput{
		UserID:   userID,
		UserName: userName,
		Jobs:     fresh,
		Names:    names,
		Mirror:   mirror,
		Peers:    peers,
	})

	report := &models.ReconcileReport{UserID: userID}
	for i := range fresh {
		if fresh[i].HoldsAcceptance() && counterpartOf(&fresh[i], userID, isEmployer) {
			report.Expected++
		}
	}
	for _, w := range writes {
		if err := p.apply(ctx, w); err != nil {
			return report, err
		}
		if w.Entry == nil {
			report.Removed++
		} else {
			report.Repaired++
		}
	}
	if len(writes) > 0 {
		p.log.Info("relationship mirrors repaired", "user_id", userID, "employer_side", isEmployer,
			"repaired", report.Repaired, "removed", report.Removed)
	}
	return report, nil
}

func counterpart(job *models.Job, isEmployer bool) string {
	if isEmployer {
		return job.FreelancerID
	}
	return job.EmployerID
}

func counterpartOf(job *models.Job, userID string, isEmployer bool) bool {
	if isEmployer {
		return job.EmployerID == userID
	}
	return job.FreelancerID == userID
}

func (p *ProjectionManager) apply(ctx context.Context, w MirrorWrite) error {
	if w.OnEmployer {
		return p.users.SetAcceptedFreelancer(ctx, w.EmployerID, w.FreelancerID, w.Entry)
	}
	return p.users.SetLinkedEmployer(ctx, w.FreelancerID, w.EmployerID, w.Entry)
}

// ReconcileAll reconciles every employer, then every freelancer, so entries
// whose counterpart no longer exists are removed too. It keeps going past
// per-user failures and returns them joined.
func (p *ProjectionManager) ReconcileAll(ctx context.Context) ([]models.ReconcileReport, error) {
	var reports []models.ReconcileReport
	var errs []error
	for _, side := range []struct {
		role       models.Role
		isEmployer bool
	}{{models.RoleEmployer, true}, {models.RoleFreelancer, false}} {
		users, err := p.users.GetUsersByRole(ctx, side.role)
		if err != nil {
			return reports, err
		}
		sort.Slice(users, func(i, k int) bool { return users[i].ID < users[k].ID })
		for _, u := range users {
			if err := ctx.Err(); err != nil {
				return reports, err
			}
			report, err := p.reconcile(ctx, u.ID, side.isEmployer)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			reports = append(reports, *report)
		}
	}
	return reports, errors.Join(errs...)
}

// RunReconcile runs ReconcileAll every interval until ctx ends.
func (p *ProjectionManager) RunReconcile(ctx context.Context, interval time.Duration, locker lease.Locker) {
	runEvery(ctx, p.log, "reconcile", interval, locker, func(ctx context.Context) error {
		_, err := p.ReconcileAll(ctx)
		return err
	})
}
