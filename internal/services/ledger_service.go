package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "divvy/internal/errors"
	"divvy/internal/models"
	"divvy/internal/money"
	"divvy/internal/reconcile"
)

type ledgerService struct {
	db *gorm.DB
}

// NewLedgerService creates a new ledger service instance.
func NewLedgerService(db *gorm.DB) LedgerServicer {
	return &ledgerService{db: db}
}

// Apply posts a transaction to the pairwise ledger: the payer's entry
// against the receiver gains the amount and the mirrored entry loses it, so
// the two rows keep summing to zero. The caller's database transaction is
// used for both postings and the posted flag, so either all three writes
// commit or none do. A transaction that is already posted is skipped, which
// makes retries safe.
func (s *ledgerService) Apply(dbtx *gorm.DB, tx *models.Transaction) error {
	if tx.Amount <= 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Transaction amount must be positive")
	}
	if tx.Posted {
		return nil
	}
	// A self-transaction touches the same row twice with opposite signs and
	// nets to zero, so it never materializes a balance entry.
	if tx.PayerID != tx.ReceiverID {
		if err := s.addToEntry(dbtx, tx.PayerID, tx.ReceiverID, tx.GroupID, tx.Amount); err != nil {
			return err
		}
		if err := s.addToEntry(dbtx, tx.ReceiverID, tx.PayerID, tx.GroupID, -tx.Amount); err != nil {
			return err
		}
	}
	tx.Posted = true
	if err := dbtx.Model(tx).Update("posted", true).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Reverse undoes a previously posted transaction by applying the opposite
// postings. Reversing an unposted transaction is a no-op.
func (s *ledgerService) Reverse(dbtx *gorm.DB, tx *models.Transaction) error {
	if !tx.Posted {
		return nil
	}
	if tx.PayerID != tx.ReceiverID {
		if err := s.addToEntry(dbtx, tx.PayerID, tx.ReceiverID, tx.GroupID, -tx.Amount); err != nil {
			return err
		}
		if err := s.addToEntry(dbtx, tx.ReceiverID, tx.PayerID, tx.GroupID, tx.Amount); err != nil {
			return err
		}
	}
	tx.Posted = false
	if err := dbtx.Model(tx).Update("posted", false).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *ledgerService) addToEntry(dbtx *gorm.DB, ownerID, counterpartyID, groupID string, delta money.Money) error {
	entry := models.BalanceEntry{
		OwnerID:        ownerID,
		CounterpartyID: counterpartyID,
		GroupID:        groupID,
		Amount:         delta,
	}
	err := dbtx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}, {Name: "counterparty_id"}, {Name: "group_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"amount": gorm.Expr("balance_entries.amount + ?", int64(delta)),
		}),
	}).Create(&entry).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Balance returns a's signed net position versus b outside any group.
// Positive means b owes a.
func (s *ledgerService) Balance(a, b string) (money.Money, error) {
	return s.pairBalance(a, b, "")
}

// GroupBalance returns a's signed net position versus b within one group.
// Group scopes are independent of the direct scope and of each other.
func (s *ledgerService) GroupBalance(a, b, groupID string) (money.Money, error) {
	return s.pairBalance(a, b, groupID)
}

func (s *ledgerService) pairBalance(owner, counterparty, groupID string) (money.Money, error) {
	forward, err := s.entryAmount(owner, counterparty, groupID)
	if err != nil {
		return 0, err
	}
	mirror, err := s.entryAmount(counterparty, owner, groupID)
	if err != nil {
		return 0, err
	}
	if forward+mirror != 0 {
		return 0, apperrors.Wrap(apperrors.ErrLedgerInconsistency,
			fmt.Errorf("entries for %s/%s (group %q) sum to %s, want 0", owner, counterparty, groupID, forward+mirror))
	}
	return forward, nil
}

func (s *ledgerService) entryAmount(ownerID, counterpartyID, groupID string) (money.Money, error) {
	var entry models.BalanceEntry
	err := s.db.
		Where("owner_id = ? AND counterparty_id = ? AND group_id = ?", ownerID, counterpartyID, groupID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return entry.Amount, nil
}

// CounterpartyBalances lists the owner's non-zero direct-scope balances,
// one entry per counterparty.
func (s *ledgerService) CounterpartyBalances(ownerID string) ([]models.BalanceEntry, error) {
	var entries []models.BalanceEntry
	err := s.db.
		Where("owner_id = ? AND group_id = ? AND amount <> 0", ownerID, "").
		Order("counterparty_id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return entries, nil
}

// GroupMemberNets sums each member's position across all their pairwise
// entries within the group. The values across all members sum to zero.
func (s *ledgerService) GroupMemberNets(groupID string) (map[string]money.Money, error) {
	var entries []models.BalanceEntry
	err := s.db.Where("group_id = ?", groupID).Find(&entries).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	nets := make(map[string]money.Money)
	for _, e := range entries {
		nets[e.OwnerID] += e.Amount
	}
	return nets, nil
}

// ExpenseSettled reports whether every borrowed share of the expense has
// been repaid within the rounding tolerance.
func (s *ledgerService) ExpenseSettled(expenseID string) (bool, error) {
	var txs []models.Transaction
	err := s.db.
		Where("expense_id = ?", expenseID).
		Order("created_at ASC").
		Find(&txs).Error
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(txs) == 0 {
		return false, nil
	}
	return reconcile.Settled(txs), nil
}
