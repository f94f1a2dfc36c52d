package models

import "divvy/internal/money"

// TransactionType distinguishes how a transaction came to exist. The empty
// type marks a plain transfer (a direct payment or its settling transfer).
type TransactionType string

const (
	TransactionTypeDirect  TransactionType = ""
	TransactionTypeExpense TransactionType = "expense"
	TransactionTypeSettle  TransactionType = "settle"
)

// DirectPaymentKey is the ExpenseID sentinel for transactions that are
// standalone transfers, not tied to any expense.
const DirectPaymentKey = "direct-payment"

// Transaction is one money movement from payer to receiver. Expense-typed
// transactions record value extended by a payer to a splitter; settle-typed
// transactions record repayments that drive balances back to zero. A payer
// may equal the receiver for the degenerate self-transaction arising when a
// participant both fronts an expense and owes a share of it.
type Transaction struct {
	Base
	PayerID    string          `gorm:"type:uuid;not null;index" json:"payer_id"`
	ReceiverID string          `gorm:"type:uuid;not null;index" json:"receiver_id"`
	Amount     money.Money     `gorm:"type:bigint;not null" json:"amount"`
	Type       TransactionType `gorm:"default:''" json:"type"`
	ExpenseID  string          `gorm:"index" json:"expense_id,omitempty"`
	GroupID    string          `gorm:"not null;default:'';index" json:"group_id,omitempty"`

	// Posted flips when the ledger has applied this transaction, making
	// application idempotent per transaction id.
	Posted bool `gorm:"not null;default:false" json:"-"`
}

// IsDirect reports whether the transaction is a standalone transfer rather
// than one derived from an expense.
func (t *Transaction) IsDirect() bool {
	return t.ExpenseID == "" || t.ExpenseID == DirectPaymentKey
}
