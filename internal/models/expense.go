package models

import (
	"time"

	"divvy/internal/money"
	"divvy/internal/split"
)

// Expense is a shared cost. After allocation, payer amounts and splitter
// shares each sum to Amount to the cent. The raw strategy inputs are stored
// alongside so an edit reproduces the original allocation exactly.
type Expense struct {
	Base
	Description   string         `gorm:"not null" json:"description"`
	Amount        money.Money    `gorm:"type:bigint;not null" json:"amount"`
	Date          time.Time      `gorm:"not null" json:"date"`
	Category      string         `json:"category"`
	CreatedBy     string         `gorm:"type:uuid;not null" json:"created_by"`
	GroupID       string         `gorm:"not null;default:'';index" json:"group_id,omitempty"`
	SplitStrategy split.Strategy `gorm:"not null" json:"split_strategy"`

	Payers      []ExpensePayer    `gorm:"foreignKey:ExpenseID" json:"payers,omitempty"`
	Splitters   []ExpenseSplitter `gorm:"foreignKey:ExpenseID" json:"splitters,omitempty"`
	SplitInputs []SplitInput      `gorm:"foreignKey:ExpenseID" json:"split_inputs,omitempty"`
}

// ExpensePayer records how much of the expense one user fronted.
type ExpensePayer struct {
	Base
	ExpenseID string      `gorm:"type:uuid;not null;index" json:"expense_id"`
	UserID    string      `gorm:"type:uuid;not null" json:"user_id"`
	Amount    money.Money `gorm:"type:bigint;not null" json:"amount"`
}

// ExpenseSplitter records one user's allocated share of the expense.
type ExpenseSplitter struct {
	Base
	ExpenseID string      `gorm:"type:uuid;not null;index" json:"expense_id"`
	UserID    string      `gorm:"type:uuid;not null" json:"user_id"`
	Amount    money.Money `gorm:"type:bigint;not null" json:"amount"`
}

// SplitInput preserves the raw per-participant value the user typed for the
// chosen strategy (a percentage, a weight, a manual amount, or a signed
// adjustment), so edits re-run the same allocation.
type SplitInput struct {
	Base
	ExpenseID string  `gorm:"type:uuid;not null;index" json:"expense_id"`
	UserID    string  `gorm:"type:uuid;not null" json:"user_id"`
	RawValue  float64 `gorm:"not null" json:"raw_value"`
}
