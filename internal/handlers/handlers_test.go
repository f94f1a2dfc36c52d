package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"divvy/internal/models"
	"divvy/internal/money"
	"divvy/internal/pagination"
	"divvy/internal/reconcile"
	"divvy/internal/services"
	"divvy/internal/validator"
)

// --- mock services ---

type mockUserService struct {
	createUserFn         func(email, password, displayName, imageURL string) (*models.User, error)
	getUserByEmailFn     func(email string) (*models.User, error)
	getUserByIDFn        func(id string) (*models.User, error)
	verifyPasswordFn     func(user *models.User, password string) bool
	resolveParticipantFn func(id string) (models.Participant, error)
}

func (m *mockUserService) CreateUser(email, password, displayName, imageURL string) (*models.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(email, password, displayName, imageURL)
	}
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByEmail(email string) (*models.User, error) {
	if m.getUserByEmailFn != nil {
		return m.getUserByEmailFn(email)
	}
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByID(id string) (*models.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(id)
	}
	return &models.User{}, nil
}

func (m *mockUserService) VerifyPassword(user *models.User, password string) bool {
	if m.verifyPasswordFn != nil {
		return m.verifyPasswordFn(user, password)
	}
	return true
}

func (m *mockUserService) ResolveParticipant(id string) (models.Participant, error) {
	if m.resolveParticipantFn != nil {
		return m.resolveParticipantFn(id)
	}
	return models.Participant{ID: id}, nil
}

type mockSettlementService struct {
	settleDirectFn  func(ctx context.Context, callerID, counterpartyID string) ([]models.Transaction, error)
	settleGroupFn   func(ctx context.Context, callerID, groupID string) ([]models.Transaction, error)
	settleExpenseFn func(ctx context.Context, callerID, expenseID string) ([]models.Transaction, error)
}

func (m *mockSettlementService) SettleDirect(ctx context.Context, callerID, counterpartyID string) ([]models.Transaction, error) {
	if m.settleDirectFn != nil {
		return m.settleDirectFn(ctx, callerID, counterpartyID)
	}
	return nil, nil
}

func (m *mockSettlementService) SettleGroup(ctx context.Context, callerID, groupID string) ([]models.Transaction, error) {
	if m.settleGroupFn != nil {
		return m.settleGroupFn(ctx, callerID, groupID)
	}
	return nil, nil
}

func (m *mockSettlementService) SettleExpense(ctx context.Context, callerID, expenseID string) ([]models.Transaction, error) {
	if m.settleExpenseFn != nil {
		return m.settleExpenseFn(ctx, callerID, expenseID)
	}
	return nil, nil
}

type mockExpenseService struct {
	createExpenseFn func(createdBy string, input services.ExpenseInput) (*models.Expense, error)
	updateExpenseFn func(userID, expenseID string, input services.ExpenseInput) (*models.Expense, error)
	deleteExpenseFn func(userID, expenseID string) error
	getExpenseFn    func(userID, expenseID string) (*models.Expense, error)
}

func (m *mockExpenseService) CreateExpense(createdBy string, input services.ExpenseInput) (*models.Expense, error) {
	if m.createExpenseFn != nil {
		return m.createExpenseFn(createdBy, input)
	}
	return &models.Expense{}, nil
}

func (m *mockExpenseService) UpdateExpense(userID, expenseID string, input services.ExpenseInput) (*models.Expense, error) {
	if m.updateExpenseFn != nil {
		return m.updateExpenseFn(userID, expenseID, input)
	}
	return &models.Expense{}, nil
}

func (m *mockExpenseService) DeleteExpense(userID, expenseID string) error {
	if m.deleteExpenseFn != nil {
		return m.deleteExpenseFn(userID, expenseID)
	}
	return nil
}

func (m *mockExpenseService) GetExpenseByID(userID, expenseID string) (*models.Expense, error) {
	if m.getExpenseFn != nil {
		return m.getExpenseFn(userID, expenseID)
	}
	return &models.Expense{}, nil
}

func (m *mockExpenseService) GetGroupExpenses(_, _ string, _ pagination.PageRequest) (*pagination.PageResponse[models.Expense], error) {
	return &pagination.PageResponse[models.Expense]{}, nil
}

type mockLedgerService struct {
	balanceFn              func(a, b string) (money.Money, error)
	counterpartyBalancesFn func(ownerID string) ([]models.BalanceEntry, error)
	expenseSettledFn       func(expenseID string) (bool, error)
}

func (m *mockLedgerService) Apply(_ *gorm.DB, _ *models.Transaction) error   { return nil }
func (m *mockLedgerService) Reverse(_ *gorm.DB, _ *models.Transaction) error { return nil }

func (m *mockLedgerService) Balance(a, b string) (money.Money, error) {
	if m.balanceFn != nil {
		return m.balanceFn(a, b)
	}
	return 0, nil
}

func (m *mockLedgerService) GroupBalance(_, _, _ string) (money.Money, error) { return 0, nil }

func (m *mockLedgerService) CounterpartyBalances(ownerID string) ([]models.BalanceEntry, error) {
	if m.counterpartyBalancesFn != nil {
		return m.counterpartyBalancesFn(ownerID)
	}
	return nil, nil
}

func (m *mockLedgerService) GroupMemberNets(_ string) (map[string]money.Money, error) {
	return map[string]money.Money{}, nil
}

func (m *mockLedgerService) ExpenseSettled(expenseID string) (bool, error) {
	if m.expenseSettledFn != nil {
		return m.expenseSettledFn(expenseID)
	}
	return false, nil
}

type mockGroupService struct {
	getGroupFn func(userID, groupID string) (*models.Group, error)
}

func (m *mockGroupService) CreateGroup(creatorID, name, imageURL string) (*models.Group, error) {
	return &models.Group{Name: name, CreatedBy: creatorID}, nil
}

func (m *mockGroupService) GetGroupByID(userID, groupID string) (*models.Group, error) {
	if m.getGroupFn != nil {
		return m.getGroupFn(userID, groupID)
	}
	return &models.Group{}, nil
}

func (m *mockGroupService) GetUserGroups(_ string, _ pagination.PageRequest) (*pagination.PageResponse[models.Group], error) {
	return &pagination.PageResponse[models.Group]{}, nil
}

func (m *mockGroupService) AddMember(_, groupID, userID string) (*models.GroupMember, error) {
	return &models.GroupMember{GroupID: groupID, UserID: userID}, nil
}

func (m *mockGroupService) RequireMember(_, _ string) error { return nil }

type mockActivityService struct {
	userActivityFn func(userID string, page pagination.PageRequest) ([]reconcile.Group, error)
}

func (m *mockActivityService) UserActivity(userID string, page pagination.PageRequest) ([]reconcile.Group, error) {
	if m.userActivityFn != nil {
		return m.userActivityFn(userID, page)
	}
	return nil, nil
}

func (m *mockActivityService) GroupActivity(_, _ string, _ pagination.PageRequest) ([]reconcile.Group, error) {
	return nil, nil
}

type mockTransactionService struct {
	createDirectPaymentFn func(payerID, receiverID string, amount money.Money, groupID string) (*models.Transaction, error)
}

func (m *mockTransactionService) CreateDirectPayment(payerID, receiverID string, amount money.Money, groupID string) (*models.Transaction, error) {
	if m.createDirectPaymentFn != nil {
		return m.createDirectPaymentFn(payerID, receiverID, amount, groupID)
	}
	return &models.Transaction{PayerID: payerID, ReceiverID: receiverID, Amount: amount, GroupID: groupID}, nil
}

func (m *mockTransactionService) GetTransactionByID(_, _ string) (*models.Transaction, error) {
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetUserTransactions(_ string, _ models.TransactionType, _ pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	return &pagination.PageResponse[models.Transaction]{}, nil
}

type mockAuditService struct{}

func (m *mockAuditService) Log(_, _, _, _, _ string, _ map[string]interface{}) {}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func injectUserID(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}
