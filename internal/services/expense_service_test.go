package services

import (
	"testing"
	"time"

	"divvy/internal/models"
	"divvy/internal/money"
	"divvy/internal/split"
	"divvy/internal/testutil"
)

func moneyPtr(v money.Money) *money.Money { return &v }
func floatPtr(v float64) *float64         { return &v }

func newExpenseService(t *testing.T) (ExpenseServicer, LedgerServicer, *testHarness) {
	t.Helper()
	h := newHarness(t)
	return h.expenses, h.ledger, h
}

func TestCreateExpenseEqualSplit(t *testing.T) {
	expenses, ledger, h := newExpenseService(t)
	defer h.close(t)

	alice := testutil.CreateTestUser(t, h.db)
	bob := testutil.CreateTestUser(t, h.db)
	carol := testutil.CreateTestUser(t, h.db)

	expense, err := expenses.CreateExpense(alice.ID, ExpenseInput{
		Description: "Dinner",
		Amount:      10000,
		Date:        time.Now(),
		Strategy:    split.StrategyEqual,
		Payers:      []PayerShare{{UserID: alice.ID}},
		Splitters: []SplitterInput{
			{UserID: alice.ID}, {UserID: bob.ID}, {UserID: carol.ID},
		},
	})
	testutil.AssertNoError(t, err)

	if len(expense.Splitters) != 3 {
		t.Fatalf("expected 3 splitters, got %d", len(expense.Splitters))
	}
	want := map[string]money.Money{alice.ID: 3334, bob.ID: 3333, carol.ID: 3333}
	for _, sp := range expense.Splitters {
		if sp.Amount != want[sp.UserID] {
			t.Errorf("splitter %s: expected %d, got %d", sp.UserID, want[sp.UserID], sp.Amount)
		}
	}

	balance, err := ledger.Balance(alice.ID, bob.ID)
	testutil.AssertNoError(t, err)
	if balance != 3333 {
		t.Errorf("expected bob to owe alice 3333, got %d", balance)
	}
	balance, err = ledger.Balance(alice.ID, carol.ID)
	testutil.AssertNoError(t, err)
	if balance != 3333 {
		t.Errorf("expected carol to owe alice 3333, got %d", balance)
	}

	// One transaction per payer/splitter pair, the payer's own share included.
	var count int64
	h.db.Model(&models.Transaction{}).Where("expense_id = ?", expense.ID).Count(&count)
	if count != 3 {
		t.Errorf("expected 3 derived transactions, got %d", count)
	}
}

func TestCreateExpenseMultiplePayers(t *testing.T) {
	expenses, ledger, h := newExpenseService(t)
	defer h.close(t)

	alice := testutil.CreateTestUser(t, h.db)
	bob := testutil.CreateTestUser(t, h.db)

	t.Run("amounts must sum to the total", func(t *testing.T) {
		_, err := expenses.CreateExpense(alice.ID, ExpenseInput{
			Description: "Groceries",
			Amount:      10000,
			Date:        time.Now(),
			Strategy:    split.StrategyEqual,
			Payers: []PayerShare{
				{UserID: alice.ID, Amount: moneyPtr(6000)},
				{UserID: bob.ID, Amount: moneyPtr(3000)},
			},
			Splitters: []SplitterInput{{UserID: alice.ID}, {UserID: bob.ID}},
		})
		testutil.AssertAppError(t, err, "PAYER_SUM_MISMATCH")
	})

	t.Run("shares distribute proportionally to what each payer fronted", func(t *testing.T) {
		_, err := expenses.CreateExpense(alice.ID, ExpenseInput{
			Description: "Groceries",
			Amount:      10000,
			Date:        time.Now(),
			Strategy:    split.StrategyEqual,
			Payers: []PayerShare{
				{UserID: alice.ID, Amount: moneyPtr(6000)},
				{UserID: bob.ID, Amount: moneyPtr(4000)},
			},
			Splitters: []SplitterInput{{UserID: alice.ID}, {UserID: bob.ID}},
		})
		testutil.AssertNoError(t, err)

		// Each owes 5000. Bob covered 4000 of it himself through his payment,
		// so alice's net claim on bob is 1000.
		balance, err := ledger.Balance(alice.ID, bob.ID)
		testutil.AssertNoError(t, err)
		if balance != 1000 {
			t.Errorf("expected bob to owe alice 1000, got %d", balance)
		}
	})
}

func TestCreateExpenseValidation(t *testing.T) {
	expenses, _, h := newExpenseService(t)
	defer h.close(t)

	alice := testutil.CreateTestUser(t, h.db)
	bob := testutil.CreateTestUser(t, h.db)

	base := ExpenseInput{
		Description: "Lunch",
		Amount:      6000,
		Date:        time.Now(),
		Strategy:    split.StrategyEqual,
		Payers:      []PayerShare{{UserID: alice.ID}},
		Splitters:   []SplitterInput{{UserID: alice.ID}, {UserID: bob.ID}},
	}

	t.Run("zero amount", func(t *testing.T) {
		input := base
		input.Amount = 0
		_, err := expenses.CreateExpense(alice.ID, input)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("no splitters", func(t *testing.T) {
		input := base
		input.Splitters = nil
		_, err := expenses.CreateExpense(alice.ID, input)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("unknown strategy", func(t *testing.T) {
		input := base
		input.Strategy = "fibonacci"
		_, err := expenses.CreateExpense(alice.ID, input)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("unknown splitter", func(t *testing.T) {
		input := base
		input.Splitters = []SplitterInput{{UserID: alice.ID}, {UserID: "nope"}}
		_, err := expenses.CreateExpense(alice.ID, input)
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})

	t.Run("manual amounts must match when every splitter is explicit", func(t *testing.T) {
		input := base
		input.Strategy = split.StrategyManual
		input.Splitters = []SplitterInput{
			{UserID: alice.ID, Value: floatPtr(20.00)},
			{UserID: bob.ID, Value: floatPtr(30.00)},
		}
		_, err := expenses.CreateExpense(alice.ID, input)
		testutil.AssertAppError(t, err, "INVALID_ALLOCATION_INPUT")
	})

	t.Run("failed allocation leaves nothing behind", func(t *testing.T) {
		var count int64
		h.db.Model(&models.Expense{}).Count(&count)
		if count != 0 {
			t.Errorf("expected no expenses persisted, got %d", count)
		}
		h.db.Model(&models.Transaction{}).Count(&count)
		if count != 0 {
			t.Errorf("expected no transactions persisted, got %d", count)
		}
	})
}

func TestCreateExpenseInGroup(t *testing.T) {
	expenses, ledger, h := newExpenseService(t)
	defer h.close(t)

	alice := testutil.CreateTestUser(t, h.db)
	bob := testutil.CreateTestUser(t, h.db)
	outsider := testutil.CreateTestUser(t, h.db)
	group := testutil.CreateTestGroup(t, h.db, alice, bob)

	t.Run("every participant must be a member", func(t *testing.T) {
		_, err := expenses.CreateExpense(alice.ID, ExpenseInput{
			Description: "Rent",
			Amount:      10000,
			Date:        time.Now(),
			GroupID:     group.ID,
			Strategy:    split.StrategyEqual,
			Payers:      []PayerShare{{UserID: alice.ID}},
			Splitters:   []SplitterInput{{UserID: alice.ID}, {UserID: outsider.ID}},
		})
		testutil.AssertAppError(t, err, "NOT_GROUP_MEMBER")
	})

	t.Run("group expense affects only the group scope", func(t *testing.T) {
		_, err := expenses.CreateExpense(alice.ID, ExpenseInput{
			Description: "Rent",
			Amount:      10000,
			Date:        time.Now(),
			GroupID:     group.ID,
			Strategy:    split.StrategyEqual,
			Payers:      []PayerShare{{UserID: alice.ID}},
			Splitters:   []SplitterInput{{UserID: alice.ID}, {UserID: bob.ID}},
		})
		testutil.AssertNoError(t, err)

		direct, err := ledger.Balance(alice.ID, bob.ID)
		testutil.AssertNoError(t, err)
		if direct != 0 {
			t.Errorf("expected untouched direct balance, got %d", direct)
		}
		grouped, err := ledger.GroupBalance(alice.ID, bob.ID, group.ID)
		testutil.AssertNoError(t, err)
		if grouped != 5000 {
			t.Errorf("expected group balance 5000, got %d", grouped)
		}
	})
}

func TestUpdateExpense(t *testing.T) {
	expenses, ledger, h := newExpenseService(t)
	defer h.close(t)

	alice := testutil.CreateTestUser(t, h.db)
	bob := testutil.CreateTestUser(t, h.db)

	expense, err := expenses.CreateExpense(alice.ID, ExpenseInput{
		Description: "Cinema",
		Amount:      10000,
		Date:        time.Now(),
		Strategy:    split.StrategyEqual,
		Payers:      []PayerShare{{UserID: alice.ID}},
		Splitters:   []SplitterInput{{UserID: alice.ID}, {UserID: bob.ID}},
	})
	testutil.AssertNoError(t, err)

	t.Run("edit reverses then reapplies", func(t *testing.T) {
		updated, err := expenses.UpdateExpense(alice.ID, expense.ID, ExpenseInput{
			Description: "Cinema and snacks",
			Amount:      6000,
			Date:        time.Now(),
			Strategy:    split.StrategyEqual,
			Payers:      []PayerShare{{UserID: alice.ID}},
			Splitters:   []SplitterInput{{UserID: alice.ID}, {UserID: bob.ID}},
		})
		testutil.AssertNoError(t, err)
		if updated.Amount != 6000 {
			t.Errorf("expected updated amount 6000, got %d", updated.Amount)
		}

		// Only the new allocation is reflected; the old one is fully reversed.
		balance, err := ledger.Balance(alice.ID, bob.ID)
		testutil.AssertNoError(t, err)
		if balance != 3000 {
			t.Errorf("expected balance 3000 after edit, got %d", balance)
		}

		var count int64
		h.db.Model(&models.Transaction{}).Where("expense_id = ?", expense.ID).Count(&count)
		if count != 2 {
			t.Errorf("expected old transactions replaced, got %d", count)
		}
	})

	t.Run("settled expense can no longer be modified", func(t *testing.T) {
		testutil.CreateTestTransaction(t, h.db, bob.ID, alice.ID, 3000,
			models.TransactionTypeSettle, expense.ID, "")

		_, err := expenses.UpdateExpense(alice.ID, expense.ID, ExpenseInput{
			Description: "Cinema",
			Amount:      8000,
			Date:        time.Now(),
			Strategy:    split.StrategyEqual,
			Payers:      []PayerShare{{UserID: alice.ID}},
			Splitters:   []SplitterInput{{UserID: alice.ID}, {UserID: bob.ID}},
		})
		testutil.AssertAppError(t, err, "EXPENSE_HAS_SETTLEMENTS")

		err = expenses.DeleteExpense(alice.ID, expense.ID)
		testutil.AssertAppError(t, err, "EXPENSE_HAS_SETTLEMENTS")
	})
}

func TestDeleteExpense(t *testing.T) {
	expenses, ledger, h := newExpenseService(t)
	defer h.close(t)

	alice := testutil.CreateTestUser(t, h.db)
	bob := testutil.CreateTestUser(t, h.db)

	expense, err := expenses.CreateExpense(alice.ID, ExpenseInput{
		Description: "Taxi",
		Amount:      4000,
		Date:        time.Now(),
		Strategy:    split.StrategyEqual,
		Payers:      []PayerShare{{UserID: alice.ID}},
		Splitters:   []SplitterInput{{UserID: alice.ID}, {UserID: bob.ID}},
	})
	testutil.AssertNoError(t, err)

	t.Run("only a participant can delete a non-group expense", func(t *testing.T) {
		stranger := testutil.CreateTestUser(t, h.db)
		err := expenses.DeleteExpense(stranger.ID, expense.ID)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("delete reverses the ledger", func(t *testing.T) {
		testutil.AssertNoError(t, expenses.DeleteExpense(alice.ID, expense.ID))

		balance, err := ledger.Balance(alice.ID, bob.ID)
		testutil.AssertNoError(t, err)
		if balance != 0 {
			t.Errorf("expected balance 0 after delete, got %d", balance)
		}

		_, err = expenses.GetExpenseByID(alice.ID, expense.ID)
		testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")

		var count int64
		h.db.Model(&models.Transaction{}).Where("expense_id = ?", expense.ID).Count(&count)
		if count != 0 {
			t.Errorf("expected derived transactions removed, got %d", count)
		}
	})
}

func TestExpenseVisibility(t *testing.T) {
	expenses, _, h := newExpenseService(t)
	defer h.close(t)

	alice := testutil.CreateTestUser(t, h.db)
	bob := testutil.CreateTestUser(t, h.db)
	stranger := testutil.CreateTestUser(t, h.db)

	expense, err := expenses.CreateExpense(alice.ID, ExpenseInput{
		Description: "Coffee",
		Amount:      800,
		Date:        time.Now(),
		Strategy:    split.StrategyEqual,
		Payers:      []PayerShare{{UserID: alice.ID}},
		Splitters:   []SplitterInput{{UserID: alice.ID}, {UserID: bob.ID}},
	})
	testutil.AssertNoError(t, err)

	if _, err := expenses.GetExpenseByID(bob.ID, expense.ID); err != nil {
		t.Errorf("expected splitter to see the expense: %v", err)
	}
	_, err = expenses.GetExpenseByID(stranger.ID, expense.ID)
	testutil.AssertAppError(t, err, "FORBIDDEN")
}
