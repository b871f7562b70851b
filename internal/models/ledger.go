package models

import "time"

// IncomeEntry records money a freelancer earned on an accepted job (PostgreSQL)
type IncomeEntry struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	FreelancerID string    `json:"freelancer_id" gorm:"size:64;index"`
	EmployerID   string    `json:"employer_id" gorm:"size:64;index"`
	JobID        string    `json:"job_id" gorm:"size:64;index"`
	Amount       float64   `json:"amount"`
	Note         string    `json:"note"`
	EarnedOn     string    `json:"earned_on" gorm:"size:10"`
	CreatedAt    time.Time `json:"created_at"`
}

type ExpenseStatus string

const (
	ExpensePending  ExpenseStatus = "pending"
	ExpenseApproved ExpenseStatus = "approved"
	ExpenseRejected ExpenseStatus = "rejected"
)

// Expense is a reimbursement request from a freelancer to the employer of an accepted job (PostgreSQL)
type Expense struct {
	ID           uint          `json:"id" gorm:"primaryKey"`
	FreelancerID string        `json:"freelancer_id" gorm:"size:64;index"`
	EmployerID   string        `json:"employer_id" gorm:"size:64;index"`
	JobID        string        `json:"job_id" gorm:"size:64;index"`
	Amount       float64       `json:"amount"`
	Description  string        `json:"description"`
	Status       ExpenseStatus `json:"status" gorm:"size:20;default:'pending';index"`
	CreatedAt    time.Time     `json:"created_at"`
	ResolvedAt   *time.Time    `json:"resolved_at,omitempty"`
}

type LogIncomeRequest struct {
	JobID    string  `json:"job_id" validate:"required"`
	Amount   float64 `json:"amount" validate:"gt=0"`
	Note     string  `json:"note,omitempty" validate:"omitempty,max=500"`
	EarnedOn string  `json:"earned_on" validate:"required,datetime=2006-01-02"`
}

type SubmitExpenseRequest struct {
	JobID       string  `json:"job_id" validate:"required"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	Description string  `json:"description" validate:"required,max=1000"`
}

// ResolveExpenseRequest defines the request body for approving/rejecting an expense
type ResolveExpenseRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}
