// Package netting reduces a set of obligations to the transfers that zero
// them out. Netting is partitioned: transfers from one expense never offset
// transfers from another, and direct payments net separately per group
// scope. Within a partition the reduction is deterministic greedy
// (first-positive against first-negative in input order), so repeated runs
// on the same input emit identical transfers and retries stay idempotent.
package netting

import (
	"divvy/internal/models"
	"divvy/internal/money"
)

// Transfer is a settling payment from payer to receiver that, once applied
// to the ledger, moves the partition's balances toward zero.
type Transfer struct {
	PayerID    string
	ReceiverID string
	Amount     money.Money
	Type       models.TransactionType
	ExpenseID  string
	GroupID    string
}

// Partition is the unit of independent netting: the transactions of one
// expense, or the direct payments within one group scope.
type Partition struct {
	ExpenseID    string // DirectPaymentKey for direct partitions
	GroupID      string
	Transactions []models.Transaction
}

type partitionKey struct {
	expenseID string
	groupID   string
}

// Partitions splits transactions into independent netting units, preserving
// the order in which each unit first appears in the input.
func Partitions(txs []models.Transaction) []Partition {
	index := make(map[partitionKey]int)
	var out []Partition
	for _, tx := range txs {
		key := partitionKey{expenseID: tx.ExpenseID, groupID: tx.GroupID}
		if tx.IsDirect() {
			// Direct payments share one partition per group scope.
			key.expenseID = models.DirectPaymentKey
		}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Partition{ExpenseID: key.expenseID, GroupID: key.groupID})
		}
		out[i].Transactions = append(out[i].Transactions, tx)
	}
	return out
}

// Net computes the transfers that bring every party's net position in the
// partition to zero. Already-settled partitions (nets all zero) emit nothing.
func Net(p Partition) []Transfer {
	nets := make(map[string]money.Money)
	var order []string
	touch := func(id string) {
		if _, ok := nets[id]; !ok {
			nets[id] = 0
			order = append(order, id)
		}
	}
	for _, tx := range p.Transactions {
		touch(tx.PayerID)
		touch(tx.ReceiverID)
		nets[tx.PayerID] -= tx.Amount
		nets[tx.ReceiverID] += tx.Amount
	}

	transferType := models.TransactionTypeSettle
	if p.ExpenseID == models.DirectPaymentKey {
		transferType = models.TransactionTypeDirect
	}

	var out []Transfer
	for {
		payer := firstWith(order, nets, func(m money.Money) bool { return m > 0 })
		receiver := firstWith(order, nets, func(m money.Money) bool { return m < 0 })
		if payer == "" || receiver == "" {
			break
		}
		amount := nets[payer]
		if owed := -nets[receiver]; owed < amount {
			amount = owed
		}
		out = append(out, Transfer{
			PayerID:    payer,
			ReceiverID: receiver,
			Amount:     amount,
			Type:       transferType,
			ExpenseID:  p.ExpenseID,
			GroupID:    p.GroupID,
		})
		nets[payer] -= amount
		nets[receiver] += amount
	}
	return out
}

// Plan partitions the transactions and nets every partition, concatenating
// the transfers in partition order.
func Plan(txs []models.Transaction) []Transfer {
	var out []Transfer
	for _, p := range Partitions(txs) {
		out = append(out, Net(p)...)
	}
	return out
}

func firstWith(order []string, nets map[string]money.Money, match func(money.Money) bool) string {
	for _, id := range order {
		if match(nets[id]) {
			return id
		}
	}
	return ""
}
