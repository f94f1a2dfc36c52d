package models

import "divvy/internal/money"

// BalanceEntry is one side of a pairwise signed balance. Amount > 0 means
// the counterparty owes the owner. For any pair the two mirrored rows sum to
// zero at all times; a violation indicates a prior partial write and is
// surfaced as a ledger inconsistency, never auto-corrected.
//
// GroupID scopes the balance: the empty string is the direct (non-group)
// view, and each group holds its own independent view for the same pair.
type BalanceEntry struct {
	Base
	OwnerID        string      `gorm:"type:uuid;not null;uniqueIndex:idx_owner_counterparty_group" json:"owner_id"`
	CounterpartyID string      `gorm:"type:uuid;not null;uniqueIndex:idx_owner_counterparty_group" json:"counterparty_id"`
	GroupID        string      `gorm:"not null;default:'';uniqueIndex:idx_owner_counterparty_group" json:"group_id,omitempty"`
	Amount         money.Money `gorm:"type:bigint;not null;default:0" json:"amount"`
}
