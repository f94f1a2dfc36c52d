package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "divvy/internal/errors"
	"divvy/internal/models"
	"divvy/internal/money"
	"divvy/internal/pagination"
	"divvy/internal/services"
)

// TransactionHandler handles direct payments, raw transaction listings and
// the reconciled activity feed.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	activityService    services.ActivityServicer
	audit              services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService services.TransactionServicer, activityService services.ActivityServicer, audit services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		activityService:    activityService,
		audit:              audit,
	}
}

// ListTransactionsRequest represents the transaction listing query
type ListTransactionsRequest struct {
	pagination.PageRequest
	Type string `form:"type" binding:"omitempty,transaction_type"`
}

// DirectPaymentRequest represents the direct payment payload
type DirectPaymentRequest struct {
	ReceiverID string      `json:"receiver_id" binding:"required,uuid"`
	Amount     money.Money `json:"amount" binding:"required"`
	GroupID    string      `json:"group_id" binding:"omitempty,uuid"`
}

// CreateDirectPayment records a direct payment
// @Summary     Record a direct payment
// @Description Record a transfer from the authenticated user to another user
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body DirectPaymentRequest true "Payment data"
// @Success     201 {object} models.Transaction "Recorded payment"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Receiver not found"
// @Router      /payments [post]
func (h *TransactionHandler) CreateDirectPayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req DirectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	tx, err := h.transactionService.CreateDirectPayment(userID, req.ReceiverID, req.Amount, req.GroupID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.audit.Log(userID, "create", "payment", tx.ID, c.ClientIP(), map[string]interface{}{
		"receiver_id": tx.ReceiverID,
		"amount":      tx.Amount,
	})

	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// GetTransaction returns one transaction
// @Summary     Get a transaction
// @Description Get a transaction the authenticated user is a party to
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction"
// @Failure     403 {object} ErrorResponse "Not a party"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	tx, err := h.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// ListTransactions returns the user's raw transactions
// @Summary     List transactions
// @Description List the raw transactions the authenticated user is a party to
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Param       type query string false "Transaction type filter (expense or settle)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Transactions"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	txs, err := h.transactionService.GetUserTransactions(userID, models.TransactionType(req.Type), req.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, txs)
}

// GetActivity returns the user's reconciled activity feed
// @Summary     Get the activity feed
// @Description Get the user's transactions folded into display groups, one per expense and one per direct payment
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {array} reconcile.Group "Activity groups"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /activity [get]
func (h *TransactionHandler) GetActivity(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	groups, err := h.activityService.UserActivity(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": groups})
}

// GetGroupActivity returns a group's reconciled activity feed
// @Summary     Get a group's activity feed
// @Description Get a group's transactions folded into display groups
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Group ID"
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {array} reconcile.Group "Activity groups"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /groups/{id}/activity [get]
func (h *TransactionHandler) GetGroupActivity(c *gin.Context) {
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

	groups, err := h.activityService.GroupActivity(userID, groupID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": groups})
}
