package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "divvy/internal/errors"
	"divvy/internal/logger"
	"divvy/internal/models"
	"divvy/internal/money"
	"divvy/internal/pagination"
	"divvy/internal/split"
)

// expenseService handles the expense lifecycle: allocation, derivation of
// ledger transactions, and re-allocation on edits.
type expenseService struct {
	db     *gorm.DB
	ledger LedgerServicer
	groups GroupServicer
}

// NewExpenseService creates a new ExpenseServicer.
func NewExpenseService(db *gorm.DB, ledger LedgerServicer, groups GroupServicer) ExpenseServicer {
	return &expenseService{db: db, ledger: ledger, groups: groups}
}

// CreateExpense validates the input, allocates splitter shares, derives the
// payer-to-splitter transactions and posts them to the ledger. Everything
// happens in one database transaction, so a failed allocation or posting
// leaves no partial state behind.
func (s *expenseService) CreateExpense(createdBy string, input ExpenseInput) (*models.Expense, error) {
	payers, result, err := s.validate(createdBy, input)
	if err != nil {
		return nil, err
	}
	if result.PercentGap != 0 {
		logger.Get().Warnw("percentage split does not sum to 100",
			"gap", result.PercentGap,
			"description", input.Description,
		)
	}

	expense := &models.Expense{
		Description:   input.Description,
		Amount:        input.Amount,
		Date:          input.Date,
		Category:      input.Category,
		CreatedBy:     createdBy,
		GroupID:       input.GroupID,
		SplitStrategy: input.Strategy,
	}

	err = s.db.Transaction(func(dbtx *gorm.DB) error {
		if err := dbtx.Create(expense).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.persistAllocation(dbtx, expense, input, payers, result)
	})
	if err != nil {
		return nil, err
	}
	return s.GetExpenseByID(createdBy, expense.ID)
}

// UpdateExpense re-allocates an expense. The previously derived transactions
// are reversed on the ledger and deleted, then the new allocation is applied,
// all in one database transaction. An expense that settlement transfers
// already reference can no longer be modified.
func (s *expenseService) UpdateExpense(userID, expenseID string, input ExpenseInput) (*models.Expense, error) {
	expense, err := s.loadForChange(userID, expenseID)
	if err != nil {
		return nil, err
	}
	if input.GroupID != expense.GroupID {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "an expense cannot move between groups")
	}

	payers, result, err := s.validate(expense.CreatedBy, input)
	if err != nil {
		return nil, err
	}
	if result.PercentGap != 0 {
		logger.Get().Warnw("percentage split does not sum to 100",
			"gap", result.PercentGap,
			"expense_id", expenseID,
		)
	}

	err = s.db.Transaction(func(dbtx *gorm.DB) error {
		if err := s.retractAllocation(dbtx, expense.ID); err != nil {
			return err
		}
		expense.Description = input.Description
		expense.Amount = input.Amount
		expense.Date = input.Date
		expense.Category = input.Category
		expense.SplitStrategy = input.Strategy
		if err := dbtx.Model(expense).Updates(map[string]interface{}{
			"description":    expense.Description,
			"amount":         int64(expense.Amount),
			"date":           expense.Date,
			"category":       expense.Category,
			"split_strategy": expense.SplitStrategy,
		}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.persistAllocation(dbtx, expense, input, payers, result)
	})
	if err != nil {
		return nil, err
	}
	return s.GetExpenseByID(userID, expenseID)
}

// DeleteExpense reverses the derived transactions on the ledger and removes
// the expense with everything hanging off it.
func (s *expenseService) DeleteExpense(userID, expenseID string) error {
	expense, err := s.loadForChange(userID, expenseID)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(dbtx *gorm.DB) error {
		if err := s.retractAllocation(dbtx, expense.ID); err != nil {
			return err
		}
		if err := dbtx.Delete(&models.Expense{}, "id = ?", expense.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// GetExpenseByID retrieves an expense visible to the user.
func (s *expenseService) GetExpenseByID(userID, expenseID string) (*models.Expense, error) {
	var expense models.Expense
	err := s.db.
		Preload("Payers").Preload("Splitters").Preload("SplitInputs").
		Where("id = ?", expenseID).
		First(&expense).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrExpenseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.requireVisible(userID, &expense); err != nil {
		return nil, err
	}
	return &expense, nil
}

// GetGroupExpenses lists a group's expenses, newest first.
func (s *expenseService) GetGroupExpenses(userID, groupID string, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error) {
	if err := s.groups.RequireMember(groupID, userID); err != nil {
		return nil, err
	}
	page.Defaults()

	query := s.db.Model(&models.Expense{}).Where("group_id = ?", groupID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var expenses []models.Expense
	err := query.
		Preload("Payers").Preload("Splitters").
		Order("date DESC, created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&expenses).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	resp := pagination.NewPageResponse(expenses, page.Page, page.PageSize, total)
	return &resp, nil
}

// validate checks the input and runs the allocation. It returns the resolved
// payer amounts and the splitter shares without touching the database.
func (s *expenseService) validate(createdBy string, input ExpenseInput) ([]models.ExpensePayer, *split.Result, error) {
	if input.Amount <= 0 {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "expense amount must be positive")
	}
	if len(input.Payers) == 0 {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "at least one payer is required")
	}
	if len(input.Splitters) == 0 {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "at least one splitter is required")
	}
	if !split.Valid(input.Strategy) {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown split strategy")
	}

	payers, err := resolvePayers(input.Amount, input.Payers)
	if err != nil {
		return nil, nil, err
	}

	participants := make([]string, len(input.Splitters))
	inputs := make(map[string]float64)
	for i, sp := range input.Splitters {
		participants[i] = sp.UserID
		if sp.Value != nil {
			inputs[sp.UserID] = *sp.Value
		}
	}
	result, err := split.Allocate(input.Amount, participants, input.Strategy, inputs)
	if err != nil {
		return nil, nil, err
	}

	if err := s.requireKnownUsers(createdBy, input, payers); err != nil {
		return nil, nil, err
	}
	return payers, result, nil
}

// resolvePayers turns the payer input into concrete amounts. A single payer
// without an explicit amount fronts the whole expense; with several payers
// every amount is explicit and the amounts must sum to the total.
func resolvePayers(total money.Money, shares []PayerShare) ([]models.ExpensePayer, error) {
	seen := make(map[string]bool, len(shares))
	for _, p := range shares {
		if seen[p.UserID] {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "duplicate payer "+p.UserID)
		}
		seen[p.UserID] = true
	}

	if len(shares) == 1 && shares[0].Amount == nil {
		return []models.ExpensePayer{{UserID: shares[0].UserID, Amount: total}}, nil
	}

	payers := make([]models.ExpensePayer, len(shares))
	var sum money.Money
	for i, p := range shares {
		if p.Amount == nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "payer amounts are required when the expense has multiple payers")
		}
		if *p.Amount < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "payer amounts cannot be negative")
		}
		payers[i] = models.ExpensePayer{UserID: p.UserID, Amount: *p.Amount}
		sum += *p.Amount
	}
	if sum != total {
		return nil, apperrors.ErrPayerSumMismatch
	}
	return payers, nil
}

func (s *expenseService) requireKnownUsers(createdBy string, input ExpenseInput, payers []models.ExpensePayer) error {
	involved := map[string]bool{createdBy: true}
	for _, p := range payers {
		involved[p.UserID] = true
	}
	for _, sp := range input.Splitters {
		involved[sp.UserID] = true
	}
	ids := make([]string, 0, len(involved))
	for id := range involved {
		ids = append(ids, id)
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("id IN ? AND is_active = ?", ids, true).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count != int64(len(ids)) {
		return apperrors.ErrUserNotFound
	}

	if input.GroupID != "" {
		for id := range involved {
			if err := s.groups.RequireMember(input.GroupID, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// persistAllocation writes the payer amounts, splitter shares and raw inputs,
// then derives and posts the ledger transactions.
func (s *expenseService) persistAllocation(dbtx *gorm.DB, expense *models.Expense, input ExpenseInput, payers []models.ExpensePayer, result *split.Result) error {
	expense.Payers = expense.Payers[:0]
	for _, p := range payers {
		p.ExpenseID = expense.ID
		expense.Payers = append(expense.Payers, p)
	}
	expense.Splitters = expense.Splitters[:0]
	for _, share := range result.Shares {
		expense.Splitters = append(expense.Splitters, models.ExpenseSplitter{
			ExpenseID: expense.ID,
			UserID:    share.ParticipantID,
			Amount:    share.Amount,
		})
	}
	expense.SplitInputs = expense.SplitInputs[:0]
	for _, sp := range input.Splitters {
		if sp.Value == nil {
			continue
		}
		expense.SplitInputs = append(expense.SplitInputs, models.SplitInput{
			ExpenseID: expense.ID,
			UserID:    sp.UserID,
			RawValue:  *sp.Value,
		})
	}

	if err := dbtx.Create(&expense.Payers).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := dbtx.Create(&expense.Splitters).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(expense.SplitInputs) > 0 {
		if err := dbtx.Create(&expense.SplitInputs).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	txs := deriveTransactions(expense)
	for i := range txs {
		if err := dbtx.Create(&txs[i]).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.ledger.Apply(dbtx, &txs[i]); err != nil {
			return err
		}
	}
	return nil
}

// retractAllocation reverses and deletes the expense's derived transactions
// along with the stored payer, splitter and raw input rows.
func (s *expenseService) retractAllocation(dbtx *gorm.DB, expenseID string) error {
	var txs []models.Transaction
	err := dbtx.
		Where("expense_id = ? AND type = ?", expenseID, models.TransactionTypeExpense).
		Find(&txs).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for i := range txs {
		if err := s.ledger.Reverse(dbtx, &txs[i]); err != nil {
			return err
		}
	}
	if err := dbtx.Where("expense_id = ? AND type = ?", expenseID, models.TransactionTypeExpense).
		Delete(&models.Transaction{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, model := range []interface{}{&models.ExpensePayer{}, &models.ExpenseSplitter{}, &models.SplitInput{}} {
		if err := dbtx.Where("expense_id = ?", expenseID).Delete(model).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return nil
}

// deriveTransactions expands an allocated expense into one transaction per
// payer and splitter pair. Each splitter's share is distributed across the
// payers in proportion to what they fronted, reusing the weight allocation
// so penny remainders stay deterministic. Zero-amount pairs are dropped, and
// a payer repaying their own share stays as a self-transaction so totals per
// participant remain reconstructible from the log.
func deriveTransactions(expense *models.Expense) []models.Transaction {
	payerIDs := make([]string, len(expense.Payers))
	weights := make(map[string]float64, len(expense.Payers))
	for i, p := range expense.Payers {
		payerIDs[i] = p.UserID
		weights[p.UserID] = float64(p.Amount)
	}

	var txs []models.Transaction
	for _, sp := range expense.Splitters {
		if sp.Amount == 0 {
			continue
		}
		res, err := split.Allocate(sp.Amount, payerIDs, split.StrategyWeight, weights)
		if err != nil {
			// Payer amounts were validated to sum to a positive total, so the
			// weight allocation cannot fail here.
			continue
		}
		for _, share := range res.Shares {
			if share.Amount == 0 {
				continue
			}
			txs = append(txs, models.Transaction{
				PayerID:    share.ParticipantID,
				ReceiverID: sp.UserID,
				Amount:     share.Amount,
				Type:       models.TransactionTypeExpense,
				ExpenseID:  expense.ID,
				GroupID:    expense.GroupID,
			})
		}
	}
	return txs
}

// loadForChange fetches an expense for mutation, checking permissions and
// rejecting expenses that settlement transfers already reference.
func (s *expenseService) loadForChange(userID, expenseID string) (*models.Expense, error) {
	var expense models.Expense
	err := s.db.Where("id = ?", expenseID).First(&expense).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrExpenseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if expense.GroupID != "" {
		if err := s.groups.RequireMember(expense.GroupID, userID); err != nil {
			return nil, err
		}
	} else if expense.CreatedBy != userID {
		return nil, apperrors.ErrForbidden
	}

	var settles int64
	err = s.db.Model(&models.Transaction{}).
		Where("expense_id = ? AND type = ?", expenseID, models.TransactionTypeSettle).
		Count(&settles).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if settles > 0 {
		return nil, apperrors.ErrExpenseHasSettles
	}
	return &expense, nil
}

func (s *expenseService) requireVisible(userID string, expense *models.Expense) error {
	if expense.GroupID != "" {
		return s.groups.RequireMember(expense.GroupID, userID)
	}
	if expense.CreatedBy == userID {
		return nil
	}
	for _, p := range expense.Payers {
		if p.UserID == userID {
			return nil
		}
	}
	for _, sp := range expense.Splitters {
		if sp.UserID == userID {
			return nil
		}
	}
	return apperrors.ErrForbidden
}
