package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"divvy/internal/models"
	"divvy/internal/money"
	"divvy/internal/pagination"
	"divvy/internal/reconcile"
	"divvy/internal/split"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, displayName, imageURL string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	// ResolveParticipant enriches display output; it is never consulted for
	// balance arithmetic.
	ResolveParticipant(id string) (models.Participant, error)
}

// GroupServicer defines the contract for group-related business logic.
type GroupServicer interface {
	CreateGroup(creatorID, name, imageURL string) (*models.Group, error)
	GetGroupByID(userID, groupID string) (*models.Group, error)
	GetUserGroups(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Group], error)
	AddMember(callerID, groupID, userID string) (*models.GroupMember, error)
	RequireMember(groupID, userID string) error
}

// LedgerServicer maintains the pairwise signed balance ledger. Mutations
// take the caller's database transaction so a posting never commits apart
// from the row that caused it.
type LedgerServicer interface {
	Apply(dbtx *gorm.DB, tx *models.Transaction) error
	Reverse(dbtx *gorm.DB, tx *models.Transaction) error
	// Balance returns a's signed net position versus b in the direct scope;
	// positive means b owes a. GroupBalance is the independent per-group view.
	Balance(a, b string) (money.Money, error)
	GroupBalance(a, b, groupID string) (money.Money, error)
	CounterpartyBalances(ownerID string) ([]models.BalanceEntry, error)
	GroupMemberNets(groupID string) (map[string]money.Money, error)
	ExpenseSettled(expenseID string) (bool, error)
}

// PayerShare names one payer and, when several payers front the expense,
// the exact amount they covered.
type PayerShare struct {
	UserID string
	Amount *money.Money
}

// SplitterInput names one splitter and the raw strategy value they entered,
// if any.
type SplitterInput struct {
	UserID string
	Value  *float64
}

// ExpenseInput carries everything needed to create or re-allocate an expense.
type ExpenseInput struct {
	Description string
	Amount      money.Money
	Date        time.Time
	Category    string
	GroupID     string
	Strategy    split.Strategy
	Payers      []PayerShare
	Splitters   []SplitterInput
}

// ExpenseServicer defines the contract for expense lifecycle logic.
type ExpenseServicer interface {
	CreateExpense(createdBy string, input ExpenseInput) (*models.Expense, error)
	UpdateExpense(userID, expenseID string, input ExpenseInput) (*models.Expense, error)
	DeleteExpense(userID, expenseID string) error
	GetExpenseByID(userID, expenseID string) (*models.Expense, error)
	GetGroupExpenses(userID, groupID string, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error)
}

// TransactionServicer records standalone transfers and lists raw transactions.
type TransactionServicer interface {
	CreateDirectPayment(payerID, receiverID string, amount money.Money, groupID string) (*models.Transaction, error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	GetUserTransactions(userID string, txType models.TransactionType, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
}

// SettlementServicer nets outstanding obligations into settling transfers
// and applies them to the ledger. On partial failure the applied transfers
// are returned alongside the error so callers can retry from a consistent
// ledger state.
type SettlementServicer interface {
	SettleDirect(ctx context.Context, callerID, counterpartyID string) ([]models.Transaction, error)
	SettleGroup(ctx context.Context, callerID, groupID string) ([]models.Transaction, error)
	SettleExpense(ctx context.Context, callerID, expenseID string) ([]models.Transaction, error)
}

// ActivityServicer reconciles the transaction log into display groups.
type ActivityServicer interface {
	UserActivity(userID string, page pagination.PageRequest) ([]reconcile.Group, error)
	GroupActivity(userID, groupID string, page pagination.PageRequest) ([]reconcile.Group, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
