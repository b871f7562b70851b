package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/pkg/apperrors"
	"github.com/anonto42/freelink/backend/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestUserRepository_CreateKeepsMirrors(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	repo := NewUserRepository(s)

	require.NoError(t, repo.SetAcceptedFreelancer(ctx, "e1", "f1", &models.RelationshipEntry{Name: "Fay", Status: models.RelationshipAccepted}))
	require.NoError(t, repo.CreateUser(ctx, &models.User{ID: "e1", Name: "Eve", Role: models.RoleEmployer, CreatedAt: t0}))

	u, err := repo.GetUserByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Eve", u.Name)
	assert.Equal(t, models.RoleEmployer, u.Role)
	assert.Contains(t, u.AcceptedFreelancers, "f1")

	_, err = repo.GetUserByID(ctx, "ghost")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestUserRepository_RoleQueryAndBlocks(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(store.NewMemoryStore())

	require.NoError(t, repo.CreateUser(ctx, &models.User{ID: "e1", Name: "Eve", Role: models.RoleEmployer}))
	require.NoError(t, repo.CreateUser(ctx, &models.User{ID: "f1", Name: "Fay", Role: models.RoleFreelancer}))
	require.NoError(t, repo.CreateUser(ctx, &models.User{ID: "f2", Name: "Finn", Role: models.RoleFreelancer}))

	freelancers, err := repo.GetUsersByRole(ctx, models.RoleFreelancer)
	require.NoError(t, err)
	assert.Len(t, freelancers, 2)

	blocked, err := repo.IsBlocked(ctx, "e1", "f1")
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, repo.SetBlocked(ctx, "e1", "f1", true))
	blocked, err = repo.IsBlocked(ctx, "e1", "f1")
	require.NoError(t, err)
	assert.True(t, blocked)

	blocked, err = repo.IsBlocked(ctx, "f1", "e1")
	require.NoError(t, err)
	assert.False(t, blocked, "blocks are directed")
}

func TestUserRepository_MirrorDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(store.NewMemoryStore())
	entry := &models.RelationshipEntry{Name: "Eve", Status: models.RelationshipAccepted}

	require.NoError(t, repo.SetLinkedEmployer(ctx, "f1", "e1", entry))
	linked, err := repo.GetLinkedEmployers(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, *entry, linked["e1"])

	require.NoError(t, repo.SetLinkedEmployer(ctx, "f1", "e1", nil))
	linked, err = repo.GetLinkedEmployers(ctx, "f1")
	require.NoError(t, err)
	assert.Empty(t, linked)
}

func TestJobRepository_Mutate(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(store.NewMemoryStore())
	require.NoError(t, repo.CreateJob(ctx, &models.Job{ID: "j1", EmployerID: "e1", Status: models.JobStatusOpen, CreatedAt: t0}))

	job, err := repo.Mutate(ctx, "j1", func(job *models.Job) (bool, error) {
		job.Status = models.JobStatusClosed
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusClosed, job.Status)

	job, err = repo.Mutate(ctx, "j1", func(job *models.Job) (bool, error) {
		job.Title = "discarded"
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "discarded", job.Title)

	stored, err := repo.GetJobByID(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusClosed, stored.Status)
	assert.Empty(t, stored.Title, "aborted mutation must not be written")

	_, err = repo.Mutate(ctx, "missing", func(*models.Job) (bool, error) { return true, nil })
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	_, err = repo.Mutate(ctx, "j1", func(*models.Job) (bool, error) { return false, apperrors.InvalidState("no") })
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestJobRepository_Queries(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(store.NewMemoryStore())
	require.NoError(t, repo.CreateJob(ctx, &models.Job{ID: "j1", EmployerID: "e1", Status: models.JobStatusOpen, CreatedAt: t0}))
	require.NoError(t, repo.CreateJob(ctx, &models.Job{ID: "j2", EmployerID: "e1", Status: models.JobStatusAccepted, FreelancerID: "f1", CreatedAt: t0.Add(time.Hour)}))
	require.NoError(t, repo.CreateJob(ctx, &models.Job{ID: "j3", EmployerID: "e2", Status: models.JobStatusOpen, CreatedAt: t0}))

	byEmployer, err := repo.GetJobsByEmployer(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, byEmployer, 2)
	assert.Equal(t, "j2", byEmployer[0].ID, "newest first")

	open, err := repo.GetJobsByStatus(ctx, models.JobStatusOpen)
	require.NoError(t, err)
	assert.Len(t, open, 2)

	byFreelancer, err := repo.GetJobsByFreelancer(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, byFreelancer, 1)
	assert.Equal(t, "j2", byFreelancer[0].ID)
}

func TestNotificationRepository_ListAndWatch(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(store.NewMemoryStore())

	var seen [][]models.Notification
	cancel, err := repo.Watch(ctx, "u1", func(ns []models.Notification) { seen = append(seen, ns) })
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, repo.CreateNotification(ctx, &models.Notification{ID: "n1", RecipientID: "u1", Message: "a", Timestamp: t0}))
	require.NoError(t, repo.CreateNotification(ctx, &models.Notification{ID: "n2", RecipientID: "u1", Message: "b", Timestamp: t0.Add(time.Minute)}))

	list, err := repo.GetByRecipientID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n2", list[0].ID)
	assert.Equal(t, "u1", list[0].RecipientID)

	require.NoError(t, repo.DeleteNotification(ctx, "u1", "n2"))
	list, err = repo.GetByRecipientID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.Len(t, seen, 3)
	assert.Len(t, seen[1], 2)
	assert.Len(t, seen[2], 1)
}

func TestMessageRepository_ChannelOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository(store.NewMemoryStore())

	require.NoError(t, repo.CreateMessage(ctx, "e1", "f1", &models.Message{ID: "m2", SenderID: "e1", Text: "second", Timestamp: t0.Add(time.Second)}))
	require.NoError(t, repo.CreateMessage(ctx, "e1", "f1", &models.Message{ID: "m1", SenderID: "f1", Text: "first", Timestamp: t0}))

	msgs, err := repo.GetChannel(ctx, "e1", "f1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Text)
}

func TestMemoryLedgerRepository_ResolveOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryLedgerRepository()

	expense := &models.Expense{FreelancerID: "f1", EmployerID: "e1", JobID: "j1", Amount: 20}
	require.NoError(t, repo.CreateExpense(ctx, expense))
	assert.Equal(t, models.ExpensePending, expense.Status)

	ok, err := repo.ResolveExpense(ctx, expense.ID, models.ExpenseApproved, t0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ResolveExpense(ctx, expense.ID, models.ExpenseRejected, t0)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetExpenseByID(ctx, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExpenseApproved, got.Status)

	mine, err := repo.GetExpensesByUser(ctx, "e1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestMemoryDeliveryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDeliveryRepository()

	require.NoError(t, repo.SaveFailed(ctx, &models.FailedDelivery{ID: "d2", CreatedAt: t0.Add(time.Second)}))
	require.NoError(t, repo.SaveFailed(ctx, &models.FailedDelivery{ID: "d1", CreatedAt: t0}))
	require.NoError(t, repo.SaveFailed(ctx, &models.FailedDelivery{ID: "d1", CreatedAt: t0, Attempts: 6}))

	list, err := repo.ListFailed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "d1", list[0].ID)
	assert.Equal(t, 6, list[0].Attempts)

	require.NoError(t, repo.DeleteFailed(ctx, "d1"))
	list, err = repo.ListFailed(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
