package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "divvy/internal/errors"
	"divvy/internal/money"
	"divvy/internal/pagination"
	"divvy/internal/services"
	"divvy/internal/split"
)

// ExpenseHandler handles expense lifecycle requests
type ExpenseHandler struct {
	expenseService services.ExpenseServicer
	ledger         services.LedgerServicer
	audit          services.AuditServicer
}

// NewExpenseHandler creates a new ExpenseHandler
func NewExpenseHandler(expenseService services.ExpenseServicer, ledger services.LedgerServicer, audit services.AuditServicer) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService, ledger: ledger, audit: audit}
}

// ExpensePayerRequest names one payer. Amount is required when the expense
// has more than one payer.
type ExpensePayerRequest struct {
	UserID string       `json:"user_id" binding:"required,uuid"`
	Amount *money.Money `json:"amount"`
}

// ExpenseSplitterRequest names one splitter and the raw value for the chosen
// strategy, if any.
type ExpenseSplitterRequest struct {
	UserID string   `json:"user_id" binding:"required,uuid"`
	Value  *float64 `json:"value"`
}

// ExpenseRequest represents the expense creation and update payload
type ExpenseRequest struct {
	Description string                   `json:"description" binding:"required,max=255"`
	Amount      money.Money              `json:"amount" binding:"required"`
	Date        time.Time                `json:"date"`
	Category    string                   `json:"category" binding:"max=100"`
	GroupID     string                   `json:"group_id" binding:"omitempty,uuid"`
	Strategy    split.Strategy           `json:"split_strategy" binding:"required,split_strategy"`
	Payers      []ExpensePayerRequest    `json:"payers" binding:"required,min=1,dive"`
	Splitters   []ExpenseSplitterRequest `json:"splitters" binding:"required,min=1,dive"`
}

func (r *ExpenseRequest) toInput() services.ExpenseInput {
	date := r.Date
	if date.IsZero() {
		date = time.Now()
	}
	input := services.ExpenseInput{
		Description: r.Description,
		Amount:      r.Amount,
		Date:        date,
		Category:    r.Category,
		GroupID:     r.GroupID,
		Strategy:    r.Strategy,
	}
	for _, p := range r.Payers {
		input.Payers = append(input.Payers, services.PayerShare{UserID: p.UserID, Amount: p.Amount})
	}
	for _, sp := range r.Splitters {
		input.Splitters = append(input.Splitters, services.SplitterInput{UserID: sp.UserID, Value: sp.Value})
	}
	return input
}

// CreateExpense creates an expense
// @Summary     Create an expense
// @Description Create an expense, allocate shares and post the derived transactions
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ExpenseRequest true "Expense data"
// @Success     201 {object} models.Expense "Created expense with allocation"
// @Failure     400 {object} ErrorResponse "Invalid input or allocation"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group member"
// @Router      /expenses [post]
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	expense, err := h.expenseService.CreateExpense(userID, req.toInput())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.audit.Log(userID, "create", "expense", expense.ID, c.ClientIP(), map[string]interface{}{
		"amount":   expense.Amount,
		"strategy": expense.SplitStrategy,
	})

	c.JSON(http.StatusCreated, gin.H{"expense": expense})
}

// GetExpense returns one expense
// @Summary     Get an expense
// @Description Get an expense with its allocation and settled state
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Expense ID"
// @Success     200 {object} models.Expense "Expense"
// @Failure     403 {object} ErrorResponse "Not visible to the user"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Router      /expenses/{id} [get]
func (h *ExpenseHandler) GetExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	expenseID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	expense, err := h.expenseService.GetExpenseByID(userID, expenseID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	settled, err := h.ledger.ExpenseSettled(expenseID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expense": expense, "settled": settled})
}

// UpdateExpense re-allocates an expense
// @Summary     Update an expense
// @Description Reverse the previous allocation and apply the new one
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Expense ID"
// @Param       request body ExpenseRequest true "New expense data"
// @Success     200 {object} models.Expense "Updated expense"
// @Failure     400 {object} ErrorResponse "Invalid input or allocation"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     409 {object} ErrorResponse "Expense already settled against"
// @Router      /expenses/{id} [put]
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	expenseID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	expense, err := h.expenseService.UpdateExpense(userID, expenseID, req.toInput())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.audit.Log(userID, "update", "expense", expense.ID, c.ClientIP(), map[string]interface{}{
		"amount":   expense.Amount,
		"strategy": expense.SplitStrategy,
	})

	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// DeleteExpense deletes an expense
// @Summary     Delete an expense
// @Description Reverse the expense's ledger effect and remove it
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Expense ID"
// @Success     204 "Expense deleted"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     409 {object} ErrorResponse "Expense already settled against"
// @Router      /expenses/{id} [delete]
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	expenseID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.expenseService.DeleteExpense(userID, expenseID); err != nil {
		respondWithError(c, err)
		return
	}

	h.audit.Log(userID, "delete", "expense", expenseID, c.ClientIP(), nil)

	c.Status(http.StatusNoContent)
}

// ListGroupExpenses returns a group's expenses
// @Summary     List group expenses
// @Description List the expenses of a group the user belongs to
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Group ID"
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.Expense] "Expenses"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /groups/{id}/expenses [get]
func (h *ExpenseHandler) ListGroupExpenses(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	expenses, err := h.expenseService.GetGroupExpenses(userID, groupID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, expenses)
}
