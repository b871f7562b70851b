package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/internal/repositories"
	"github.com/anonto42/freelink/backend/pkg/apperrors"
	"github.com/anonto42/freelink/backend/validators"
)

// LedgerService records income and expense reimbursements. Both hang off a
// job that holds the freelancer as its accepted freelancer.
type LedgerService struct {
	ledger   repositories.LedgerRepository
	jobs     repositories.JobRepository
	notifier *Notifier
	log      *slog.Logger
	now      func() time.Time
}

func NewLedgerService(ledger repositories.LedgerRepository, jobs repositories.JobRepository, notifier *Notifier, log *slog.Logger) *LedgerService {
	return &LedgerService{ledger: ledger, jobs: jobs, notifier: notifier, log: loggerOr(log), now: time.Now}
}

func (s *LedgerService) assignedJob(ctx context.Context, freelancerID, jobID string) (*models.Job, error) {
	job, err := s.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.HoldsAcceptance() || job.FreelancerID != freelancerID {
		return nil, apperrors.Unauthorized("job is not assigned to this freelancer")
	}
	return job, nil
}

func (s *LedgerService) LogIncome(ctx context.Context, freelancerID string, req models.LogIncomeRequest) (*models.IncomeEntry, error) {
	if err := validators.Check(req); err != nil {
		return nil, err
	}
	job, err := s.assignedJob(ctx, freelancerID, req.JobID)
	if err != nil {
		return nil, err
	}
	entry := &models.IncomeEntry{
		FreelancerID: freelancerID,
		EmployerID:   job.EmployerID,
		JobID:        job.ID,
		Amount:       req.Amount,
		Note:         req.Note,
		EarnedOn:     req.EarnedOn,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.ledger.CreateIncome(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// SubmitExpense files a pending reimbursement request with the job's employer.
func (s *LedgerService) SubmitExpense(ctx context.Context, freelancerID string, req models.SubmitExpenseRequest) (*models.Expense, error) {
	if err := validators.Check(req); err != nil {
		return nil, err
	}
	job, err := s.assignedJob(ctx, freelancerID, req.JobID)
	if err != nil {
		return nil, err
	}
	expense := &models.Expense{
		FreelancerID: freelancerID,
		EmployerID:   job.EmployerID,
		JobID:        job.ID,
		Amount:       req.Amount,
		Description:  req.Description,
		Status:       models.ExpensePending,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.ledger.CreateExpense(ctx, expense); err != nil {
		return nil, err
	}

	s.log.Info("expense submitted", "expense_id", expense.ID, "job_id", job.ID)
	s.notify(ctx, job.EmployerID, models.Notification{
		Type:        models.NotifExpenseSubmitted,
		Message:     fmt.Sprintf("New expense of %.2f submitted for %s", expense.Amount, job.Title),
		RedirectURL: "/ledger/expenses",
	})
	return expense, nil
}

// ResolveExpense approves or rejects a pending expense. Repeating the same
// decision is a no-op; reversing a decision is refused.
func (s *LedgerService) ResolveExpense(ctx context.Context, employerID string, expenseID uint, req models.ResolveExpenseRequest) (*models.Expense, error) {
	if err := validators.Check(req); err != nil {
		return nil, err
	}
	expense, err := s.ledger.GetExpenseByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if expense.EmployerID != employerID {
		return nil, apperrors.Unauthorized("only the job's employer can resolve this expense")
	}

	status := models.ExpenseStatus(req.Status)
	updated, err := s.ledger.ResolveExpense(ctx, expenseID, status, s.now().UTC())
	if err != nil {
		return nil, err
	}
	expense, err = s.ledger.GetExpenseByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if !updated {
		if expense.Status == status {
			return expense, nil
		}
		return nil, apperrors.InvalidState(fmt.Sprintf("expense was already %s", expense.Status))
	}

	s.log.Info("expense resolved", "expense_id", expenseID, "status", status)
	s.notify(ctx, expense.FreelancerID, models.Notification{
		Type:        models.NotifExpenseResolved,
		Message:     fmt.Sprintf("Your expense of %.2f was %s", expense.Amount, status),
		RedirectURL: "/ledger/expenses",
	})
	return expense, nil
}

func (s *LedgerService) ListIncome(ctx context.Context, freelancerID string) ([]models.IncomeEntry, error) {
	return s.ledger.GetIncomeByFreelancer(ctx, freelancerID)
}

func (s *LedgerService) ListExpenses(ctx context.Context, userID string) ([]models.Expense, error) {
	return s.ledger.GetExpensesByUser(ctx, userID)
}

func (s *LedgerService) notify(ctx context.Context, recipientID string, tmpl models.Notification) {
	if err := s.notifier.Notify(ctx, recipientID, tmpl); err != nil {
		s.log.Warn("notification not delivered", "recipient_id", recipientID, "type", tmpl.Type, "error", err)
	}
}
