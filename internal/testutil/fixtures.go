package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"divvy/internal/models"
	"divvy/internal/money"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:       email,
		Password:    string(hash),
		DisplayName: fmt.Sprintf("Test User %d", counter.Load()),
		IsActive:    true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestGroup creates a group with the given users as members. The first
// user is the creator.
func CreateTestGroup(t *testing.T, db *gorm.DB, users ...*models.User) *models.Group {
	t.Helper()

	if len(users) == 0 {
		t.Fatal("a test group needs at least one member")
	}
	group := &models.Group{
		Name:      fmt.Sprintf("Test Group %d", nextID()),
		CreatedBy: users[0].ID,
	}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("failed to create test group: %v", err)
	}
	for _, u := range users {
		member := &models.GroupMember{GroupID: group.ID, UserID: u.ID}
		if err := db.Create(member).Error; err != nil {
			t.Fatalf("failed to add test group member: %v", err)
		}
	}
	return group
}

// CreateTestTransaction persists an unposted transaction.
func CreateTestTransaction(t *testing.T, db *gorm.DB, payerID, receiverID string, amount money.Money, txType models.TransactionType, expenseID, groupID string) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		PayerID:    payerID,
		ReceiverID: receiverID,
		Amount:     amount,
		Type:       txType,
		ExpenseID:  expenseID,
		GroupID:    groupID,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestExpense persists a bare expense row without allocation data.
func CreateTestExpense(t *testing.T, db *gorm.DB, createdBy string, amount money.Money, groupID string) *models.Expense {
	t.Helper()

	expense := &models.Expense{
		Description:   fmt.Sprintf("Test Expense %d", nextID()),
		Amount:        amount,
		Date:          time.Now(),
		CreatedBy:     createdBy,
		GroupID:       groupID,
		SplitStrategy: "equal",
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return expense
}
