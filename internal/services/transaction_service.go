package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "divvy/internal/errors"
	"divvy/internal/models"
	"divvy/internal/money"
	"divvy/internal/pagination"
)

// transactionService records standalone transfers and lists raw transactions.
type transactionService struct {
	db     *gorm.DB
	ledger LedgerServicer
	groups GroupServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, ledger LedgerServicer, groups GroupServicer) TransactionServicer {
	return &transactionService{db: db, ledger: ledger, groups: groups}
}

// CreateDirectPayment records a transfer from payer to receiver outside any
// expense and posts it to the ledger. With a group ID the payment affects
// that group's balance view; without one it affects the direct view.
func (s *transactionService) CreateDirectPayment(payerID, receiverID string, amount money.Money, groupID string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "payment amount must be positive")
	}
	if payerID == receiverID {
		return nil, apperrors.ErrSelfDirectPayment
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("id = ? AND is_active = ?", receiverID, true).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return nil, apperrors.ErrUserNotFound
	}

	if groupID != "" {
		if err := s.groups.RequireMember(groupID, payerID); err != nil {
			return nil, err
		}
		if err := s.groups.RequireMember(groupID, receiverID); err != nil {
			return nil, err
		}
	}

	tx := &models.Transaction{
		PayerID:    payerID,
		ReceiverID: receiverID,
		Amount:     amount,
		Type:       models.TransactionTypeDirect,
		ExpenseID:  models.DirectPaymentKey,
		GroupID:    groupID,
	}
	err := s.db.Transaction(func(dbtx *gorm.DB) error {
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

// GetTransactionByID retrieves a transaction the user is a party to.
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.Where("id = ?", transactionID).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if tx.PayerID != userID && tx.ReceiverID != userID {
		return nil, apperrors.ErrForbidden
	}
	return &tx, nil
}

// GetUserTransactions lists the raw transactions the user is a party to,
// oldest first so derived views reproduce deterministically. An empty txType
// lists everything.
func (s *transactionService) GetUserTransactions(userID string, txType models.TransactionType, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()
	query := s.db.Model(&models.Transaction{}).
		Where("payer_id = ? OR receiver_id = ?", userID, userID)
	if txType != "" {
		query = query.Where("type = ?", txType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var txs []models.Transaction
	err := query.
		Order("created_at ASC, id ASC").
		Scopes(pagination.Paginate(page)).
		Find(&txs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	resp := pagination.NewPageResponse(txs, page.Page, page.PageSize, total)
	return &resp, nil
}
