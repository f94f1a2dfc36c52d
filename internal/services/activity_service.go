package services

import (
	"gorm.io/gorm"

	apperrors "divvy/internal/errors"
	"divvy/internal/models"
	"divvy/internal/pagination"
	"divvy/internal/reconcile"
)

// activityService reconciles the raw transaction log into the grouped view
// the activity feed renders.
type activityService struct {
	db     *gorm.DB
	groups GroupServicer
}

// NewActivityService creates a new ActivityServicer.
func NewActivityService(db *gorm.DB, groups GroupServicer) ActivityServicer {
	return &activityService{db: db, groups: groups}
}

// UserActivity returns the user's activity as display groups, one per
// expense and one per direct payment, most recent first. Pagination applies
// to the underlying transactions, so a page boundary can split a large
// expense across pages.
func (s *activityService) UserActivity(userID string, page pagination.PageRequest) ([]reconcile.Group, error) {
	page.Defaults()
	var txs []models.Transaction
	err := s.db.
		Where("payer_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at ASC, id ASC").
		Scopes(pagination.Paginate(page)).
		Find(&txs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.reconcileTransactions(txs)
}

// GroupActivity returns one group's activity as display groups.
func (s *activityService) GroupActivity(userID, groupID string, page pagination.PageRequest) ([]reconcile.Group, error) {
	if err := s.groups.RequireMember(groupID, userID); err != nil {
		return nil, err
	}
	page.Defaults()
	var txs []models.Transaction
	err := s.db.
		Where("group_id = ?", groupID).
		Order("created_at ASC, id ASC").
		Scopes(pagination.Paginate(page)).
		Find(&txs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.reconcileTransactions(txs)
}

// reconcileTransactions loads the expenses referenced by the transactions
// and folds everything into display groups. A transaction whose expense was
// deleted still reconciles from the transaction data alone.
func (s *activityService) reconcileTransactions(txs []models.Transaction) ([]reconcile.Group, error) {
	ids := make([]string, 0, len(txs))
	seen := make(map[string]bool)
	for _, tx := range txs {
		if tx.IsDirect() || seen[tx.ExpenseID] {
			continue
		}
		seen[tx.ExpenseID] = true
		ids = append(ids, tx.ExpenseID)
	}

	expenses := make(map[string]*models.Expense, len(ids))
	if len(ids) > 0 {
		var rows []models.Expense
		err := s.db.
			Preload("Payers").Preload("Splitters").
			Where("id IN ?", ids).
			Find(&rows).Error
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for i := range rows {
			expenses[rows[i].ID] = &rows[i]
		}
	}
	return reconcile.Reconcile(txs, expenses), nil
}
