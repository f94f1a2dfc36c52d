package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "divvy/internal/errors"
	"divvy/internal/logger"
	"divvy/internal/models"
	"divvy/internal/netting"
)

// maxConcurrentPartitions bounds how many netting partitions are applied in
// parallel during one settlement run.
const maxConcurrentPartitions = 8

// settlementService nets a scope's outstanding obligations and applies the
// resulting transfers. Partitions are independent, so they are applied
// concurrently; within a partition transfers apply in order, each one
// persisted and posted atomically.
type settlementService struct {
	db     *gorm.DB
	ledger LedgerServicer
	groups GroupServicer
}

// NewSettlementService creates a new SettlementServicer.
func NewSettlementService(db *gorm.DB, ledger LedgerServicer, groups GroupServicer) SettlementServicer {
	return &settlementService{db: db, ledger: ledger, groups: groups}
}

// SettleDirect nets everything outstanding between the caller and one
// counterparty outside any group.
func (s *settlementService) SettleDirect(ctx context.Context, callerID, counterpartyID string) ([]models.Transaction, error) {
	if callerID == counterpartyID {
		return nil, apperrors.ErrSelfDirectPayment
	}
	var count int64
	if err := s.db.Model(&models.User{}).Where("id = ?", counterpartyID).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return nil, apperrors.ErrUserNotFound
	}

	var txs []models.Transaction
	err := s.db.WithContext(ctx).
		Where("group_id = ?", "").
		Where("(payer_id = ? AND receiver_id = ?) OR (payer_id = ? AND receiver_id = ?)",
			callerID, counterpartyID, counterpartyID, callerID).
		Order("created_at ASC, id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.settle(ctx, txs)
}

// SettleGroup nets every outstanding obligation inside one group.
func (s *settlementService) SettleGroup(ctx context.Context, callerID, groupID string) ([]models.Transaction, error) {
	if err := s.groups.RequireMember(groupID, callerID); err != nil {
		return nil, err
	}
	var txs []models.Transaction
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at ASC, id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.settle(ctx, txs)
}

// SettleExpense nets one expense's transactions.
func (s *settlementService) SettleExpense(ctx context.Context, callerID, expenseID string) ([]models.Transaction, error) {
	var expense models.Expense
	err := s.db.Where("id = ?", expenseID).First(&expense).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrExpenseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var txs []models.Transaction
	err = s.db.WithContext(ctx).
		Where("expense_id = ?", expenseID).
		Order("created_at ASC, id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if expense.GroupID != "" {
		if err := s.groups.RequireMember(expense.GroupID, callerID); err != nil {
			return nil, err
		}
	} else if !isParty(callerID, &expense, txs) {
		return nil, apperrors.ErrForbidden
	}
	return s.settle(ctx, txs)
}

type partitionResult struct {
	applied []models.Transaction
	err     error
}

// settle plans the transfers per partition and applies them. Partitions run
// concurrently; a failure in one never blocks the others, and every transfer
// applied before the failure stays applied, so a retry re-plans from the
// updated ledger and only emits what is still outstanding.
func (s *settlementService) settle(ctx context.Context, txs []models.Transaction) ([]models.Transaction, error) {
	partitions := netting.Partitions(txs)
	results := make([]partitionResult, len(partitions))

	var g errgroup.Group
	g.SetLimit(maxConcurrentPartitions)
	for i, p := range partitions {
		i, p := i, p
		g.Go(func() error {
			transfers := netting.Net(p)
			for _, t := range transfers {
				applied, err := s.applyTransfer(ctx, t)
				if err != nil {
					results[i].err = fmt.Errorf("transfer %s -> %s %s: %w",
						t.PayerID, t.ReceiverID, t.Amount, err)
					return nil
				}
				results[i].applied = append(results[i].applied, *applied)
			}
			return nil
		})
	}
	g.Wait()

	var applied []models.Transaction
	var errs []error
	for _, r := range results {
		applied = append(applied, r.applied...)
		if r.err != nil {
			errs = append(errs, r.err)
		}
	}

	if len(errs) > 0 {
		logger.Get().Errorw("settlement applied partially",
			"applied", len(applied),
			"failed_partitions", len(errs),
		)
		return applied, apperrors.Wrap(apperrors.ErrSettlementPartialFailure, errors.Join(errs...))
	}
	if len(applied) == 0 {
		return nil, apperrors.ErrNothingToSettle
	}
	return applied, nil
}

// applyTransfer persists one settling transfer and posts it to the ledger in
// a single database transaction.
func (s *settlementService) applyTransfer(ctx context.Context, t netting.Transfer) (*models.Transaction, error) {
	tx := &models.Transaction{
		PayerID:    t.PayerID,
		ReceiverID: t.ReceiverID,
		Amount:     t.Amount,
		Type:       t.Type,
		ExpenseID:  t.ExpenseID,
		GroupID:    t.GroupID,
	}
	err := s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		if err := dbtx.Create(tx).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.ledger.Apply(dbtx, tx)
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func isParty(userID string, expense *models.Expense, txs []models.Transaction) bool {
	if expense.CreatedBy == userID {
		return true
	}
	for _, tx := range txs {
		if tx.PayerID == userID || tx.ReceiverID == userID {
			return true
		}
	}
	return false
}
