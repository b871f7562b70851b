package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/pkg/apperrors"
)

// memoryLedgerRepository backs the ledger when no PostgreSQL connection is
// configured. It is also the ledger used in tests.
type memoryLedgerRepository struct {
	mu       sync.Mutex
	nextID   uint
	income   []models.IncomeEntry
	expenses map[uint]*models.Expense
}

func NewMemoryLedgerRepository() LedgerRepository {
	return &memoryLedgerRepository{expenses: make(map[uint]*models.Expense)}
}

func (r *memoryLedgerRepository) CreateIncome(_ context.Context, entry *models.IncomeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	entry.ID = r.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.income = append(r.income, *entry)
	return nil
}

func (r *memoryLedgerRepository) GetIncomeByFreelancer(_ context.Context, freelancerID string) ([]models.IncomeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.IncomeEntry
	for _, e := range r.income {
		if e.FreelancerID == freelancerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].EarnedOn != out[k].EarnedOn {
			return out[i].EarnedOn > out[k].EarnedOn
		}
		return out[i].ID > out[k].ID
	})
	return out, nil
}

func (r *memoryLedgerRepository) CreateExpense(_ context.Context, expense *models.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	expense.ID = r.nextID
	if expense.Status == "" {
		expense.Status = models.ExpensePending
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now()
	}
	stored := *expense
	r.expenses[stored.ID] = &stored
	return nil
}

func (r *memoryLedgerRepository) GetExpenseByID(_ context.Context, id uint) (*models.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.expenses[id]
	if !ok {
		return nil, apperrors.NotFound("expense not found")
	}
	out := *e
	return &out, nil
}

func (r *memoryLedgerRepository) GetExpensesByUser(_ context.Context, userID string) ([]models.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Expense
	for _, e := range r.expenses {
		if e.FreelancerID == userID || e.EmployerID == userID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID > out[k].ID })
	return out, nil
}

func (r *memoryLedgerRepository) ResolveExpense(_ context.Context, id uint, status models.ExpenseStatus, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.expenses[id]
	if !ok || e.Status != models.ExpensePending {
		return false, nil
	}
	e.Status = status
	e.ResolvedAt = &at
	return true, nil
}

// memoryDeliveryRepository keeps dead letters in process when MongoDB is not configured.
type memoryDeliveryRepository struct {
	mu         sync.Mutex
	deliveries map[string]models.FailedDelivery
}

func NewMemoryDeliveryRepository() DeliveryRepository {
	return &memoryDeliveryRepository{deliveries: make(map[string]models.FailedDelivery)}
}

func (r *memoryDeliveryRepository) SaveFailed(_ context.Context, delivery *models.FailedDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries[delivery.ID] = *delivery
	return nil
}

func (r *memoryDeliveryRepository) ListFailed(_ context.Context, limit int) ([]models.FailedDelivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.FailedDelivery, 0, len(r.deliveries))
	for _, d := range r.deliveries {
		out = append(out, d)
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].CreatedAt.Before(out[k].CreatedAt)
		}
		return out[i].ID < out[k].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryDeliveryRepository) DeleteFailed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.deliveries, id)
	return nil
}
