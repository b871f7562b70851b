package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/internal/repositories"
	"github.com/anonto42/freelink/backend/pkg/lease"
	"github.com/anonto42/freelink/backend/pkg/store"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected store failure")

// faultStore fails writes whose path starts with one of the armed prefixes.
// Each prefix fails the given number of times; a negative count fails forever.
type faultStore struct {
	store.Store
	mu     sync.Mutex
	faults map[string]int
}

func newFaultStore(inner store.Store) *faultStore {
	return &faultStore{Store: inner, faults: make(map[string]int)}
}

func (f *faultStore) failWrites(prefix string, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[prefix] = times
}

func (f *faultStore) check(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for prefix, n := range f.faults {
		if n == 0 || !strings.HasPrefix(path, prefix) {
			continue
		}
		if n > 0 {
			f.faults[prefix] = n - 1
		}
		return errInjected
	}
	return nil
}

func (f *faultStore) Set(ctx context.Context, path string, value any) error {
	if err := f.check(path); err != nil {
		return err
	}
	return f.Store.Set(ctx, path, value)
}

func (f *faultStore) Update(ctx context.Context, path string, partial map[string]any) error {
	if err := f.check(path); err != nil {
		return err
	}
	return f.Store.Update(ctx, path, partial)
}

func (f *faultStore) Delete(ctx context.Context, path string) error {
	if err := f.check(path); err != nil {
		return err
	}
	return f.Store.Delete(ctx, path)
}

type harness struct {
	faults *faultStore

	users         repositories.UserRepository
	jobRepo       repositories.JobRepository
	notifications repositories.NotificationRepository
	deliveries    repositories.DeliveryRepository
	ledgerRepo    repositories.LedgerRepository

	userSvc    *UserService
	blocks     *BlockService
	notifier   *Notifier
	projection *ProjectionManager
	jobs       *JobService
	sweeper    *Sweeper
	messages   *MessageService
	ledger     *LedgerService

	mu  sync.Mutex
	now time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	faults := newFaultStore(store.NewMemoryStore())
	// The timeout decorator maps injected failures to infrastructure errors.
	s := store.WithTimeout(faults, time.Second)

	h := &harness{
		faults:        faults,
		users:         repositories.NewUserRepository(s),
		jobRepo:       repositories.NewJobRepository(s),
		notifications: repositories.NewNotificationRepository(s),
		deliveries:    repositories.NewMemoryDeliveryRepository(),
		ledgerRepo:    repositories.NewMemoryLedgerRepository(),
		now:           time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	h.userSvc = NewUserService(h.users, log)
	h.blocks = NewBlockService(h.users, log)
	h.notifier = NewNotifier(h.notifications, h.users, h.deliveries, NotifierConfig{Concurrency: 4, BatchSize: 2, Attempts: 3}, log)
	h.projection = NewProjectionManager(h.jobRepo, h.users, log)
	h.jobs = NewJobService(h.jobRepo, h.users, h.projection, h.blocks, h.notifier, time.UTC, log)
	h.sweeper = NewSweeper(h.jobRepo, h.jobs, lease.NewLocalLocker(), log)
	h.messages = NewMessageService(repositories.NewMessageRepository(s), h.users, h.blocks, h.notifier, log)
	h.ledger = NewLedgerService(h.ledgerRepo, h.jobRepo, h.notifier, log)

	h.userSvc.now = h.clock
	h.notifier.now = h.clock
	h.jobs.now = h.clock
	h.sweeper.now = h.clock
	h.messages.now = h.clock
	h.ledger.now = h.clock
	return h
}

func (h *harness) clock() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *harness) advance(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = h.now.Add(d)
}

func (h *harness) register(t *testing.T, id, name string, role models.Role) {
	t.Helper()
	_, err := h.userSvc.Register(context.Background(), id, models.RegisterUserRequest{Name: name, Role: role})
	require.NoError(t, err)
}

// seed registers employer e1 (Eve) and freelancers f1 (Fay) and f2 (Finn).
func (h *harness) seed(t *testing.T) {
	t.Helper()
	h.register(t, "e1", "Eve", models.RoleEmployer)
	h.register(t, "f1", "Fay", models.RoleFreelancer)
	h.register(t, "f2", "Finn", models.RoleFreelancer)
}

func (h *harness) postJob(t *testing.T, employerID, endDate string) *models.Job {
	t.Helper()
	job, err := h.jobs.PostJob(context.Background(), employerID, models.CreateJobRequest{
		Title:       "Logo design",
		Description: "A new logo",
		Payment:     250,
		StartDate:   "2026-03-01",
		EndDate:     endDate,
	})
	require.NoError(t, err)
	return job
}

// acceptedJob posts a job that f1 requested and e1 accepted.
func (h *harness) acceptedJob(t *testing.T) *models.Job {
	t.Helper()
	ctx := context.Background()
	job := h.postJob(t, "e1", "2026-04-30")
	_, err := h.jobs.RequestJob(ctx, "f1", job.ID)
	require.NoError(t, err)
	job, err = h.jobs.AcceptRequest(ctx, "e1", job.ID, "f1")
	require.NoError(t, err)
	return job
}

func (h *harness) notificationsOf(t *testing.T, userID string, typ models.NotificationType) []models.Notification {
	t.Helper()
	all, err := h.notifier.List(context.Background(), userID)
	require.NoError(t, err)
	var out []models.Notification
	for _, n := range all {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}
