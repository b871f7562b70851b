package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// LedgerHandler handles income and expense HTTP requests
type LedgerHandler struct {
	ledger *services.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledger *services.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// RegisterLedgerRoutes registers ledger routes
func (h *LedgerHandler) RegisterLedgerRoutes(g *echo.Group) {
	g.POST("/ledger/income", h.LogIncome)
	g.GET("/ledger/income", h.ListIncome)
	g.POST("/ledger/expenses", h.SubmitExpense)
	g.GET("/ledger/expenses", h.ListExpenses)
	g.PUT("/ledger/expenses/:id", h.ResolveExpense)
}

func (h *LedgerHandler) LogIncome(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	var req models.LogIncomeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	entry, err := h.ledger.LogIncome(c.Request().Context(), callerID, req)
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusCreated, entry)
}

func (h *LedgerHandler) ListIncome(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	entries, err := h.ledger.ListIncome(c.Request().Context(), callerID)
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusOK, entries)
}

func (h *LedgerHandler) SubmitExpense(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	var req models.SubmitExpenseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	expense, err := h.ledger.SubmitExpense(c.Request().Context(), callerID, req)
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusCreated, expense)
}

func (h *LedgerHandler) ListExpenses(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	expenses, err := h.ledger.ListExpenses(c.Request().Context(), callerID)
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusOK, expenses)
}

// ResolveExpense approves or rejects a pending expense
func (h *LedgerHandler) ResolveExpense(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid expense ID")
	}
	var req models.ResolveExpenseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	expense, err := h.ledger.ResolveExpense(c.Request().Context(), callerID, uint(id), req)
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusOK, expense)
}
