package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJob_Validation(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  models.CreateJobRequest
		want string
	}{
		{"missing title", models.CreateJobRequest{Description: "d", Payment: 1, StartDate: "2026-03-01", EndDate: "2026-03-02"}, "title is required"},
		{"zero payment", models.CreateJobRequest{Title: "t", Description: "d", StartDate: "2026-03-01", EndDate: "2026-03-02"}, "payment"},
		{"bad date", models.CreateJobRequest{Title: "t", Description: "d", Payment: 1, StartDate: "03/01/2026", EndDate: "2026-03-02"}, "startDate"},
		{"end before start", models.CreateJobRequest{Title: "t", Description: "d", Payment: 1, StartDate: "2026-03-05", EndDate: "2026-03-02"}, "endDate must not be before startDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.jobs.PostJob(ctx, "e1", tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPostJob_RequiresEmployer(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	_, err := h.jobs.PostJob(context.Background(), "f1", models.CreateJobRequest{
		Title: "t", Description: "d", Payment: 1, StartDate: "2026-03-01", EndDate: "2026-03-02",
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized))

	_, err = h.jobs.PostJob(context.Background(), "nobody", models.CreateJobRequest{
		Title: "t", Description: "d", Payment: 1, StartDate: "2026-03-01", EndDate: "2026-03-02",
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized))
}

func TestPostJob_BroadcastsToVisibleFreelancers(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	h.register(t, "f3", "Flo", models.RoleFreelancer)
	h.register(t, "f4", "Fox", models.RoleFreelancer)
	ctx := context.Background()
	require.NoError(t, h.blocks.Block(ctx, "f3", "e1"))
	require.NoError(t, h.blocks.Block(ctx, "e1", "f4"))

	job := h.postJob(t, "e1", "2026-04-30")
	assert.Equal(t, models.JobStatusOpen, job.Status)
	assert.Empty(t, job.Requests)
	assert.Equal(t, "Eve", job.EmployerName)

	for _, fid := range []string{"f1", "f2"} {
		notes := h.notificationsOf(t, fid, models.NotifJobPosted)
		require.Len(t, notes, 1, fid)
		assert.Equal(t, "/jobs/"+job.ID, notes[0].RedirectURL)
	}
	assert.Empty(t, h.notificationsOf(t, "f3", models.NotifJobPosted))
	assert.Empty(t, h.notificationsOf(t, "f4", models.NotifJobPosted))
	assert.Empty(t, h.notificationsOf(t, "e1", models.NotifJobPosted))
}

func TestRequestJob(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()
	job := h.postJob(t, "e1", "2026-04-30")

	got, err := h.jobs.RequestJob(ctx, "f1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRequested, got.Requests["f1"].Status)
	assert.Equal(t, "Fay", got.Requests["f1"].FreelancerName)
	assert.Len(t, h.notificationsOf(t, "e1", models.NotifJobRequest), 1)

	_, err = h.jobs.RequestJob(ctx, "f1", job.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState), "duplicate request")

	_, err = h.jobs.RequestJob(ctx, "e1", job.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized), "employers cannot request")

	_, err = h.jobs.RequestJob(ctx, "f2", "missing")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	require.NoError(t, h.blocks.Block(ctx, "e1", "f2"))
	_, err = h.jobs.RequestJob(ctx, "f2", job.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized), "blocked freelancer")
}

func TestScenario_AcceptFreezesJob(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	job := h.postJob(t, "e1", "2026-04-30")
	require.Equal(t, models.JobStatusOpen, job.Status)

	job, err := h.jobs.RequestJob(ctx, "f1", job.ID)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusRequested, job.Requests["f1"].Status)

	job, err = h.jobs.AcceptRequest(ctx, "e1", job.ID, "f1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusAccepted, job.Requests["f1"].Status)
	assert.Equal(t, models.JobStatusAccepted, job.Status)
	assert.Equal(t, "f1", job.FreelancerID)

	_, err = h.jobs.RequestJob(ctx, "f2", job.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))

	accepted, err := h.users.GetAcceptedFreelancers(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, map[string]models.RelationshipEntry{"f1": {Name: "Fay", Status: models.RelationshipAccepted}}, accepted)

	linked, err := h.users.GetLinkedEmployers(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, map[string]models.RelationshipEntry{"e1": {Name: "Eve", Status: models.RelationshipAccepted}}, linked)
}

func TestAcceptRequest_Idempotent(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()
	first := h.acceptedJob(t)
	h.advance(time.Hour)

	second, err := h.jobs.AcceptRequest(ctx, "e1", first.ID, "f1")
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.FreelancerID, second.FreelancerID)
	assert.True(t, first.UpdatedAt.Equal(second.UpdatedAt), "second call must not write")

	assert.Len(t, h.notificationsOf(t, "f1", models.NotifRequestAccepted), 1)
	accepted, err := h.users.GetAcceptedFreelancers(ctx, "e1")
	require.NoError(t, err)
	assert.Len(t, accepted, 1)
}

func TestAcceptRequest_Rejections(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	h.register(t, "e2", "Ed", models.RoleEmployer)
	ctx := context.Background()

	job := h.postJob(t, "e1", "2026-04-30")
	_, err := h.jobs.RequestJob(ctx, "f1", job.ID)
	require.NoError(t, err)
	_, err = h.jobs.RequestJob(ctx, "f2", job.ID)
	require.NoError(t, err)

	_, err = h.jobs.AcceptRequest(ctx, "e2", job.ID, "f1")
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized), "not the owner")

	_, err = h.jobs.AcceptRequest(ctx, "e1", job.ID, "nobody")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState), "no request")

	_, err = h.jobs.AcceptRequest(ctx, "e1", job.ID, "f1")
	require.NoError(t, err)

	_, err = h.jobs.AcceptRequest(ctx, "e1", job.ID, "f2")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState), "second accept must fail")

	stored, err := h.jobRepo.GetJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "f1", stored.FreelancerID)
	assert.Equal(t, models.RequestStatusRequested, stored.Requests["f2"].Status)
}

func TestAcceptRequest_ConcurrentAcceptsPickOne(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()
	job := h.postJob(t, "e1", "2026-04-30")
	for _, fid := range []string{"f1", "f2"} {
		_, err := h.jobs.RequestJob(ctx, fid, job.ID)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, fid := range []string{"f1", "f2"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.jobs.AcceptRequest(ctx, "e1", job.ID, fid)
		}()
	}
	wg.Wait()

	var ok, invalid int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperrors.Is(err, apperrors.CodeInvalidState):
			invalid++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, invalid)

	stored, err := h.jobRepo.GetJobByID(ctx, job.ID)
	require.NoError(t, err)
	var acceptedCount int
	for fid, r := range stored.Requests {
		if r.Status == models.RequestStatusAccepted {
			acceptedCount++
			assert.Equal(t, stored.FreelancerID, fid)
		}
	}
	assert.Equal(t, 1, acceptedCount)
}

func TestAcceptRequest_MirrorFailureIsRetryable(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()
	job := h.postJob(t, "e1", "2026-04-30")
	_, err := h.jobs.RequestJob(ctx, "f1", job.ID)
	require.NoError(t, err)

	h.faults.failWrites("users/f1/linkedEmployers", 1)
	_, err = h.jobs.AcceptRequest(ctx, "e1", job.ID, "f1")
	require.Error(t, err)
	assert.True(t, apperrors.Retryable(err))

	stored, err := h.jobRepo.GetJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusAccepted, stored.Status, "job write is kept")

	linked, err := h.users.GetLinkedEmployers(ctx, "f1")
	require.NoError(t, err)
	assert.Empty(t, linked)

	_, err = h.jobs.AcceptRequest(ctx, "e1", job.ID, "f1")
	require.NoError(t, err)
	linked, err = h.users.GetLinkedEmployers(ctx, "f1")
	require.NoError(t, err)
	assert.Contains(t, linked, "e1")
	assert.Len(t, h.notificationsOf(t, "f1", models.NotifRequestAccepted), 1)
}

func TestDeclineRequest(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()
	job := h.postJob(t, "e1", "2026-04-30")
	_, err := h.jobs.RequestJob(ctx, "f1", job.ID)
	require.NoError(t, err)

	_, err = h.jobs.DeclineRequest(ctx, "f2", job.ID, "f1")
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized))

	got, err := h.jobs.DeclineRequest(ctx, "e1", job.ID, "f1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, got.Requests["f1"].Status)

	_, err = h.jobs.DeclineRequest(ctx, "e1", job.ID, "f1")
	require.NoError(t, err)
	assert.Len(t, h.notificationsOf(t, "f1", models.NotifRequestDeclined), 1)

	got, err = h.jobs.RequestJob(ctx, "f1", job.ID)
	require.NoError(t, err, "a declined freelancer may request again")
	assert.Equal(t, models.RequestStatusRequested, got.Requests["f1"].Status)

	_, err = h.jobs.AcceptRequest(ctx, "e1", job.ID, "f1")
	require.NoError(t, err)
	_, err = h.jobs.DeclineRequest(ctx, "e1", job.ID, "f1")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))

	_, err = h.jobs.DeclineRequest(ctx, "e1", job.ID, "f2")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestEditJob(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()
	job := h.postJob(t, "e1", "2026-04-30")

	got, err := h.jobs.EditJob(ctx, "e1", job.ID, models.UpdateJobRequest{Title: "Brand kit", Payment: 400})
	require.NoError(t, err)
	assert.Equal(t, "Brand kit", got.Title)
	assert.Equal(t, 400.0, got.Payment)
	assert.Equal(t, job.Description, got.Description, "empty fields are left alone")

	_, err = h.jobs.EditJob(ctx, "e1", job.ID, models.UpdateJobRequest{EndDate: "2026-02-01"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, err = h.jobs.EditJob(ctx, "f1", job.ID, models.UpdateJobRequest{Title: "x"})
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized))

	accepted := h.acceptedJob(t)
	_, err = h.jobs.EditJob(ctx, "e1", accepted.ID, models.UpdateJobRequest{Title: "x"})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestListings_HideBlockedUsers(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	h.register(t, "e2", "Ed", models.RoleEmployer)
	ctx := context.Background()

	j1 := h.postJob(t, "e1", "2026-04-30")
	j2 := h.postJob(t, "e2", "2026-04-30")
	for _, fid := range []string{"f1", "f2"} {
		_, err := h.jobs.RequestJob(ctx, fid, j1.ID)
		require.NoError(t, err)
	}

	require.NoError(t, h.blocks.Block(ctx, "e2", "f1"))
	open, err := h.jobs.ListOpenJobs(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, j1.ID, open[0].ID)

	_, err = h.jobs.GetJob(ctx, "f1", j2.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	require.NoError(t, h.blocks.Block(ctx, "f2", "e1"))
	requests, err := h.jobs.ListRequests(ctx, "e1", j1.ID)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "f1", requests[0].FreelancerID)

	_, err = h.jobs.ListRequests(ctx, "e2", j1.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized))
}

func TestAcceptRequest_RepeatAfterBlockIsNoop(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()
	job := h.acceptedJob(t)
	require.NoError(t, h.blocks.Block(ctx, "e1", "f1"))

	again, err := h.jobs.AcceptRequest(ctx, "e1", job.ID, "f1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusAccepted, again.Status)
	assert.Equal(t, "f1", again.FreelancerID)
	assert.Len(t, h.notificationsOf(t, "f1", models.NotifRequestAccepted), 1)
}

func TestGetJob_AssignedFreelancerSeesJobAfterBlock(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()
	job := h.acceptedJob(t)
	require.NoError(t, h.blocks.Block(ctx, "e1", "f1"))

	got, err := h.jobs.GetJob(ctx, "f1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	_, err = h.jobs.GetJob(ctx, "f2", job.ID)
	require.NoError(t, err, "unrelated freelancers are not affected")

	require.NoError(t, h.blocks.Block(ctx, "f2", "e1"))
	_, err = h.jobs.GetJob(ctx, "f2", job.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}
