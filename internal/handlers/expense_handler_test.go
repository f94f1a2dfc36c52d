package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "divvy/internal/errors"
	"divvy/internal/models"
	"divvy/internal/services"
	"divvy/internal/uuid"
)

func setupExpenseRouter(handler *ExpenseHandler, userID string) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(userID))
	auth.POST("/expenses", handler.CreateExpense)
	auth.GET("/expenses/:id", handler.GetExpense)
	auth.PUT("/expenses/:id", handler.UpdateExpense)
	auth.DELETE("/expenses/:id", handler.DeleteExpense)
	return r
}

func TestExpenseHandler_CreateExpense(t *testing.T) {
	userID := uuid.New()
	bobID := uuid.New()

	validBody := fmt.Sprintf(`{
		"description": "Dinner",
		"amount": 100.00,
		"split_strategy": "equal",
		"payers": [{"user_id": %q}],
		"splitters": [{"user_id": %q}, {"user_id": %q}]
	}`, userID, userID, bobID)

	t.Run("returns 201 and forwards the parsed amounts in cents", func(t *testing.T) {
		var gotInput services.ExpenseInput
		svc := &mockExpenseService{
			createExpenseFn: func(createdBy string, input services.ExpenseInput) (*models.Expense, error) {
				gotInput = input
				return &models.Expense{Base: models.Base{ID: uuid.New()}, Amount: input.Amount}, nil
			},
		}
		handler := NewExpenseHandler(svc, &mockLedgerService{}, &mockAuditService{})
		r := setupExpenseRouter(handler, userID)

		rec := doRequest(r, "POST", "/expenses", validBody)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotInput.Amount != 10000 {
			t.Errorf("expected amount 10000 cents, got %d", gotInput.Amount)
		}
		if len(gotInput.Splitters) != 2 {
			t.Errorf("expected 2 splitters, got %d", len(gotInput.Splitters))
		}
	})

	t.Run("returns 400 on an unknown strategy", func(t *testing.T) {
		handler := NewExpenseHandler(&mockExpenseService{}, &mockLedgerService{}, &mockAuditService{})
		r := setupExpenseRouter(handler, userID)

		body := fmt.Sprintf(`{
			"description": "Dinner",
			"amount": 100.00,
			"split_strategy": "fibonacci",
			"payers": [{"user_id": %q}],
			"splitters": [{"user_id": %q}]
		}`, userID, userID)
		rec := doRequest(r, "POST", "/expenses", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 when the allocation is rejected", func(t *testing.T) {
		svc := &mockExpenseService{
			createExpenseFn: func(_ string, _ services.ExpenseInput) (*models.Expense, error) {
				return nil, apperrors.ErrInvalidAllocation
			},
		}
		handler := NewExpenseHandler(svc, &mockLedgerService{}, &mockAuditService{})
		r := setupExpenseRouter(handler, userID)

		rec := doRequest(r, "POST", "/expenses", validBody)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_ALLOCATION_INPUT")
	})

	t.Run("returns 400 on missing splitters", func(t *testing.T) {
		handler := NewExpenseHandler(&mockExpenseService{}, &mockLedgerService{}, &mockAuditService{})
		r := setupExpenseRouter(handler, userID)

		body := fmt.Sprintf(`{
			"description": "Dinner",
			"amount": 100.00,
			"split_strategy": "equal",
			"payers": [{"user_id": %q}]
		}`, userID)
		rec := doRequest(r, "POST", "/expenses", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestExpenseHandler_GetExpense(t *testing.T) {
	userID := uuid.New()
	expenseID := uuid.New()

	svc := &mockExpenseService{
		getExpenseFn: func(_, id string) (*models.Expense, error) {
			return &models.Expense{Base: models.Base{ID: id}, Description: "Dinner"}, nil
		},
	}
	ledger := &mockLedgerService{
		expenseSettledFn: func(_ string) (bool, error) { return true, nil },
	}
	handler := NewExpenseHandler(svc, ledger, &mockAuditService{})
	r := setupExpenseRouter(handler, userID)

	rec := doRequest(r, "GET", "/expenses/"+expenseID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	result := parseJSON(t, rec)
	if result["settled"] != true {
		t.Error("expected the settled flag to be surfaced")
	}
}

func TestExpenseHandler_UpdateExpense(t *testing.T) {
	userID := uuid.New()
	expenseID := uuid.New()

	t.Run("returns 409 once settlements reference the expense", func(t *testing.T) {
		svc := &mockExpenseService{
			updateExpenseFn: func(_, _ string, _ services.ExpenseInput) (*models.Expense, error) {
				return nil, apperrors.ErrExpenseHasSettles
			},
		}
		handler := NewExpenseHandler(svc, &mockLedgerService{}, &mockAuditService{})
		r := setupExpenseRouter(handler, userID)

		body := fmt.Sprintf(`{
			"description": "Dinner",
			"amount": 80.00,
			"split_strategy": "equal",
			"payers": [{"user_id": %q}],
			"splitters": [{"user_id": %q}]
		}`, userID, userID)
		rec := doRequest(r, "PUT", "/expenses/"+expenseID, body)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "EXPENSE_HAS_SETTLEMENTS")
	})
}

func TestExpenseHandler_DeleteExpense(t *testing.T) {
	userID := uuid.New()
	expenseID := uuid.New()

	handler := NewExpenseHandler(&mockExpenseService{}, &mockLedgerService{}, &mockAuditService{})
	r := setupExpenseRouter(handler, userID)

	rec := doRequest(r, "DELETE", "/expenses/"+expenseID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
