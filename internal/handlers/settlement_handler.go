package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "divvy/internal/errors"
	"divvy/internal/middleware"
	"divvy/internal/models"
	"divvy/internal/services"
)

// SettlementHandler handles settlement requests
type SettlementHandler struct {
	settlementService services.SettlementServicer
	audit             services.AuditServicer
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(settlementService services.SettlementServicer, audit services.AuditServicer) *SettlementHandler {
	return &SettlementHandler{settlementService: settlementService, audit: audit}
}

func (h *SettlementHandler) respond(c *gin.Context, userID, scope, scopeID string, applied []models.Transaction, err error) {
	middleware.SettlementTransfers.Add(float64(len(applied)))

	if err != nil {
		var appErr *apperrors.AppError
		// Transfers applied before a partial failure stay applied; report
		// them alongside the error so the client sees the true ledger state.
		if errors.As(err, &appErr) && appErr.Code == apperrors.ErrSettlementPartialFailure.Code {
			c.JSON(appErr.StatusCode, gin.H{
				"error":     gin.H{"code": appErr.Code, "message": appErr.Message},
				"transfers": applied,
			})
			return
		}
		respondWithError(c, err)
		return
	}

	h.audit.Log(userID, "settle", scope, scopeID, c.ClientIP(), map[string]interface{}{
		"transfers": len(applied),
	})

	c.JSON(http.StatusOK, gin.H{"transfers": applied})
}

// SettleDirect settles the caller's direct balance with one counterparty
// @Summary     Settle with a user
// @Description Net and settle everything outstanding between the authenticated user and another user outside any group
// @Tags        settlements
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Counterparty user ID"
// @Success     200 {array} models.Transaction "Applied settling transfers"
// @Failure     404 {object} ErrorResponse "User not found"
// @Failure     409 {object} ErrorResponse "Nothing to settle"
// @Router      /settlements/users/{id} [post]
func (h *SettlementHandler) SettleDirect(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	counterpartyID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	applied, err := h.settlementService.SettleDirect(c.Request.Context(), userID, counterpartyID)
	h.respond(c, userID, "user", counterpartyID, applied, err)
}

// SettleGroup settles every outstanding obligation in a group
// @Summary     Settle a group
// @Description Net and settle everything outstanding within a group the authenticated user belongs to
// @Tags        settlements
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Group ID"
// @Success     200 {array} models.Transaction "Applied settling transfers"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     409 {object} ErrorResponse "Nothing to settle"
// @Router      /settlements/groups/{id} [post]
func (h *SettlementHandler) SettleGroup(c *gin.Context) {
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

	applied, err := h.settlementService.SettleGroup(c.Request.Context(), userID, groupID)
	h.respond(c, userID, "group", groupID, applied, err)
}

// SettleExpense settles one expense
// @Summary     Settle an expense
// @Description Net and settle the obligations of a single expense
// @Tags        settlements
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Expense ID"
// @Success     200 {array} models.Transaction "Applied settling transfers"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     409 {object} ErrorResponse "Nothing to settle"
// @Router      /settlements/expenses/{id} [post]
func (h *SettlementHandler) SettleExpense(c *gin.Context) {
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

	applied, err := h.settlementService.SettleExpense(c.Request.Context(), userID, expenseID)
	h.respond(c, userID, "expense", expenseID, applied, err)
}
