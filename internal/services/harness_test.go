package services

import (
	"testing"

	"gorm.io/gorm"

	"divvy/internal/testutil"
)

// testHarness wires the service graph against one in-memory database.
type testHarness struct {
	db          *gorm.DB
	ledger      LedgerServicer
	groups      GroupServicer
	users       UserServicer
	expenses    ExpenseServicer
	payments    TransactionServicer
	settlements SettlementServicer
	activity    ActivityServicer
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ledger := NewLedgerService(db)
	groups := NewGroupService(db)
	return &testHarness{
		db:          db,
		ledger:      ledger,
		groups:      groups,
		users:       NewUserService(db),
		expenses:    NewExpenseService(db, ledger, groups),
		payments:    NewTransactionService(db, ledger, groups),
		settlements: NewSettlementService(db, ledger, groups),
		activity:    NewActivityService(db, groups),
	}
}

func (h *testHarness) close(t *testing.T) {
	testutil.TeardownTestDB(t, h.db)
}
