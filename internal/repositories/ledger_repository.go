package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/pkg/apperrors"
	"gorm.io/gorm"
)

// LedgerRepository defines the interface for income and expense records
type LedgerRepository interface {
	CreateIncome(ctx context.Context, entry *models.IncomeEntry) error
	GetIncomeByFreelancer(ctx context.Context, freelancerID string) ([]models.IncomeEntry, error)
	CreateExpense(ctx context.Context, expense *models.Expense) error
	GetExpenseByID(ctx context.Context, id uint) (*models.Expense, error)
	// GetExpensesByUser returns expenses where the user is either party.
	GetExpensesByUser(ctx context.Context, userID string) ([]models.Expense, error)
	// ResolveExpense moves a pending expense to status. It reports false
	// when the expense was no longer pending.
	ResolveExpense(ctx context.Context, id uint, status models.ExpenseStatus, at time.Time) (bool, error)
}

type postgresLedgerRepository struct {
	db *gorm.DB
}

func NewPostgresLedgerRepository(db *gorm.DB) LedgerRepository {
	return &postgresLedgerRepository{db: db}
}

func (r *postgresLedgerRepository) CreateIncome(ctx context.Context, entry *models.IncomeEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return apperrors.Infrastructure("create income entry", err)
	}
	return nil
}

func (r *postgresLedgerRepository) GetIncomeByFreelancer(ctx context.Context, freelancerID string) ([]models.IncomeEntry, error) {
	var entries []models.IncomeEntry
	err := r.db.WithContext(ctx).
		Where("freelancer_id = ?", freelancerID).
		Order("earned_on DESC, id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, apperrors.Infrastructure("list income entries", err)
	}
	return entries, nil
}

func (r *postgresLedgerRepository) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if err := r.db.WithContext(ctx).Create(expense).Error; err != nil {
		return apperrors.Infrastructure("create expense", err)
	}
	return nil
}

func (r *postgresLedgerRepository) GetExpenseByID(ctx context.Context, id uint) (*models.Expense, error) {
	var expense models.Expense
	err := r.db.WithContext(ctx).First(&expense, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("expense not found")
	}
	if err != nil {
		return nil, apperrors.Infrastructure("get expense", err)
	}
	return &expense, nil
}

func (r *postgresLedgerRepository) GetExpensesByUser(ctx context.Context, userID string) ([]models.Expense, error) {
	var expenses []models.Expense
	err := r.db.WithContext(ctx).
		Where("freelancer_id = ? OR employer_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&expenses).Error
	if err != nil {
		return nil, apperrors.Infrastructure("list expenses", err)
	}
	return expenses, nil
}

func (r *postgresLedgerRepository) ResolveExpense(ctx context.Context, id uint, status models.ExpenseStatus, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Expense{}).
		Where("id = ? AND status = ?", id, models.ExpensePending).
		Updates(map[string]interface{}{"status": status, "resolved_at": at})
	if result.Error != nil {
		return false, apperrors.Infrastructure("resolve expense", result.Error)
	}
	return result.RowsAffected == 1, nil
}
