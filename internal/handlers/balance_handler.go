package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"divvy/internal/models"
	"divvy/internal/money"
	"divvy/internal/services"
)

// BalanceHandler serves the ledger's balance views.
type BalanceHandler struct {
	ledger       services.LedgerServicer
	userService  services.UserServicer
	groupService services.GroupServicer
}

// NewBalanceHandler creates a new BalanceHandler
func NewBalanceHandler(ledger services.LedgerServicer, userService services.UserServicer, groupService services.GroupServicer) *BalanceHandler {
	return &BalanceHandler{ledger: ledger, userService: userService, groupService: groupService}
}

// CounterpartyBalance is one enriched pairwise balance. Amount > 0 means the
// counterparty owes the user.
type CounterpartyBalance struct {
	Counterparty models.Participant `json:"counterparty"`
	Amount       money.Money        `json:"amount"`
}

// GroupMemberBalance is one member's net position within a group.
type GroupMemberBalance struct {
	Member models.Participant `json:"member"`
	Net    money.Money        `json:"net"`
}

// ListBalances returns the user's direct balances
// @Summary     List balances
// @Description List the authenticated user's non-zero balances outside groups, one per counterparty
// @Tags        balances
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} CounterpartyBalance "Balances"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /balances [get]
func (h *BalanceHandler) ListBalances(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	entries, err := h.ledger.CounterpartyBalances(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	balances := make([]CounterpartyBalance, 0, len(entries))
	for _, entry := range entries {
		participant, err := h.userService.ResolveParticipant(entry.CounterpartyID)
		if err != nil {
			// An unresolvable user never hides a balance.
			participant = models.Participant{ID: entry.CounterpartyID}
		}
		balances = append(balances, CounterpartyBalance{
			Counterparty: participant,
			Amount:       entry.Amount,
		})
	}

	c.JSON(http.StatusOK, gin.H{"balances": balances})
}

// GetPairBalance returns the balance against one user
// @Summary     Get the balance with a user
// @Description Get the authenticated user's signed net position versus another user outside groups
// @Tags        balances
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Counterparty user ID"
// @Success     200 {object} CounterpartyBalance "Balance"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /balances/users/{id} [get]
func (h *BalanceHandler) GetPairBalance(c *gin.Context) {
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

	participant, err := h.userService.ResolveParticipant(counterpartyID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	amount, err := h.ledger.Balance(userID, counterpartyID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": CounterpartyBalance{
		Counterparty: participant,
		Amount:       amount,
	}})
}

// GetGroupBalances returns a group's member balances
// @Summary     Get group balances
// @Description Get each member's net position within a group the authenticated user belongs to
// @Tags        balances
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Group ID"
// @Success     200 {array} GroupMemberBalance "Member balances"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Group not found"
// @Router      /groups/{id}/balances [get]
func (h *BalanceHandler) GetGroupBalances(c *gin.Context) {
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

	group, err := h.groupService.GetGroupByID(userID, groupID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	nets, err := h.ledger.GroupMemberNets(groupID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	balances := make([]GroupMemberBalance, 0, len(group.Members))
	for _, member := range group.Members {
		participant := models.Participant{ID: member.UserID}
		if member.User != nil {
			participant = member.User.AsParticipant()
		}
		balances = append(balances, GroupMemberBalance{
			Member: participant,
			Net:    nets[member.UserID],
		})
	}

	c.JSON(http.StatusOK, gin.H{"balances": balances})
}
