package repositories

import (
	"context"
	"errors"
	"sort"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/pkg/apperrors"
	"github.com/anonto42/freelink/backend/pkg/store"
)

// JobMutation edits a job in place inside a transaction on its node. It may
// run more than once. Returning write=false leaves the stored job untouched.
type JobMutation func(job *models.Job) (write bool, err error)

// JobRepository defines the interface for job operations
type JobRepository interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJobByID(ctx context.Context, id string) (*models.Job, error)
	// Mutate applies fn under a compare-and-write on jobs/{id} and returns
	// the job as fn last left it.
	Mutate(ctx context.Context, id string, fn JobMutation) (*models.Job, error)
	GetJobsByEmployer(ctx context.Context, employerID string) ([]models.Job, error)
	GetJobsByFreelancer(ctx context.Context, freelancerID string) ([]models.Job, error)
	GetJobsByStatus(ctx context.Context, status models.JobStatus) ([]models.Job, error)
}

type jobRepository struct {
	store store.Store
}

func NewJobRepository(s store.Store) JobRepository {
	return &jobRepository{store: s}
}

func (r *jobRepository) CreateJob(ctx context.Context, job *models.Job) error {
	return r.store.Set(ctx, jobPath(job.ID), job)
}

func (r *jobRepository) GetJobByID(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	found, err := r.store.Get(ctx, jobPath(id), &job)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NotFound("job not found")
	}
	job.ID = id
	return &job, nil
}

func (r *jobRepository) Mutate(ctx context.Context, id string, fn JobMutation) (*models.Job, error) {
	var result *models.Job
	err := r.store.Transact(ctx, jobPath(id), func(node store.TxNode) (any, error) {
		result = nil
		if !node.Exists() {
			return nil, apperrors.NotFound("job not found")
		}
		var job models.Job
		if err := node.Unmarshal(&job); err != nil {
			return nil, err
		}
		job.ID = id
		write, err := fn(&job)
		if err != nil {
			return nil, err
		}
		result = &job
		if !write {
			return nil, store.ErrAbort
		}
		return &job, nil
	})
	if err != nil && !errors.Is(err, store.ErrAbort) {
		return nil, err
	}
	return result, nil
}

func (r *jobRepository) GetJobsByEmployer(ctx context.Context, employerID string) ([]models.Job, error) {
	return r.query(ctx, "employerId", employerID)
}

func (r *jobRepository) GetJobsByFreelancer(ctx context.Context, freelancerID string) ([]models.Job, error) {
	return r.query(ctx, "freelancerId", freelancerID)
}

func (r *jobRepository) GetJobsByStatus(ctx context.Context, status models.JobStatus) ([]models.Job, error) {
	return r.query(ctx, "status", status)
}

// query returns matching jobs newest first.
func (r *jobRepository) query(ctx context.Context, child string, value any) ([]models.Job, error) {
	var byID map[string]models.Job
	if err := r.store.Query(ctx, jobsRoot, child, value, &byID); err != nil {
		return nil, err
	}
	jobs := make([]models.Job, 0, len(byID))
	for id, j := range byID {
		j.ID = id
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[k].CreatedAt) {
			return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
		}
		return jobs[i].ID < jobs[k].ID
	})
	return jobs, nil
}
