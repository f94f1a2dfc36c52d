// Package reconcile turns a flat transaction log back into per-expense
// groups for display and status reporting. Grouping is purely derived data:
// it never mutates the log and tolerates missing expense records by
// degrading the group to a direct-payment-style display.
package reconcile

import (
	"fmt"
	"sort"
	"time"

	"divvy/internal/models"
	"divvy/internal/money"
)

// ParticipantSummary is one participant's position inside a group:
// what they fronted, what they owe, and the signed difference.
type ParticipantSummary struct {
	ParticipantID string      `json:"participant_id"`
	Paid          money.Money `json:"paid"`
	Owed          money.Money `json:"owed"`
	Net           money.Money `json:"net"`
}

// Group is one reconciled unit: an expense with its transactions, or a
// single standalone transfer. Expense is nil when the transaction's expense
// could not be found or when the group is a direct payment.
type Group struct {
	Expense      *models.Expense      `json:"expense,omitempty"`
	Transactions []models.Transaction `json:"transactions"`
	Settled      bool                 `json:"settled"`
	Participants []ParticipantSummary `json:"participants"`
}

// settledTolerance absorbs one cent of accumulated rounding when comparing
// borrowed against settled amounts. Not a business rule.
const settledTolerance = money.Money(1)

// Reconcile groups transactions by originating expense. Direct payments are
// each their own group and are never merged, even between the same pair.
// Within a group settle-typed transactions sort first; groups sort
// descending by the expense's creation time, falling back to the earliest
// transaction.
func Reconcile(txs []models.Transaction, expenses map[string]*models.Expense) []Group {
	index := make(map[string]int)
	var groups []Group

	for i, tx := range txs {
		key := tx.ExpenseID
		if tx.IsDirect() {
			// Synthetic unique key: one group per direct transfer.
			key = fmt.Sprintf("direct:%d:%s", i, tx.ID)
		}
		gi, ok := index[key]
		if !ok {
			gi = len(groups)
			index[key] = gi
			groups = append(groups, Group{})
			if !tx.IsDirect() {
				groups[gi].Expense = expenses[tx.ExpenseID] // nil on lookup miss
			}
		}
		groups[gi].Transactions = append(groups[gi].Transactions, tx)
	}

	for i := range groups {
		g := &groups[i]
		sort.SliceStable(g.Transactions, func(a, b int) bool {
			return g.Transactions[a].Type == models.TransactionTypeSettle &&
				g.Transactions[b].Type != models.TransactionTypeSettle
		})
		g.Settled = Settled(g.Transactions)
		g.Participants = summarize(g)
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groupTime(groups[a]).After(groupTime(groups[b]))
	})
	return groups
}

// Settled reports whether the settle repayments cancel the expense
// obligations, comparing each party's aggregate position within the rounding
// tolerance. Positions are per party, not per pair: with several fronters the
// netting engine routes a borrower's whole repayment to whichever fronter
// comes first, so a repayment counts no matter which counterparty received
// it. Self-transactions are a participant's own share of their own payment
// and never create an obligation.
func Settled(txs []models.Transaction) bool {
	nets := make(map[string]money.Money)
	hasExpense := false

	for _, tx := range txs {
		switch tx.Type {
		case models.TransactionTypeExpense:
			hasExpense = true
		case models.TransactionTypeSettle:
		default:
			continue
		}
		if tx.PayerID == tx.ReceiverID {
			continue
		}
		// Both kinds move the receiver's position up and the payer's down:
		// an expense leaves the receiver owing, a settle repays the
		// receiver what they fronted.
		nets[tx.ReceiverID] += tx.Amount
		nets[tx.PayerID] -= tx.Amount
	}
	if !hasExpense {
		return false
	}
	for _, net := range nets {
		if net.Abs() > settledTolerance {
			return false
		}
	}
	return true
}

func summarize(g *Group) []ParticipantSummary {
	totals := make(map[string]*ParticipantSummary)
	var order []string
	get := func(id string) *ParticipantSummary {
		s, ok := totals[id]
		if !ok {
			s = &ParticipantSummary{ParticipantID: id}
			totals[id] = s
			order = append(order, id)
		}
		return s
	}

	if g.Expense != nil {
		for _, p := range g.Expense.Payers {
			get(p.UserID).Paid += p.Amount
		}
		for _, sp := range g.Expense.Splitters {
			get(sp.UserID).Owed += sp.Amount
		}
	} else {
		// Direct payment or lookup miss: derive from the transactions,
		// counting each self-transaction once per expense.
		type selfKey struct{ expenseID, userID string }
		seenSelf := make(map[selfKey]bool)
		for _, tx := range g.Transactions {
			if tx.Type == models.TransactionTypeSettle {
				continue
			}
			if tx.PayerID == tx.ReceiverID {
				k := selfKey{expenseID: tx.ExpenseID, userID: tx.PayerID}
				if seenSelf[k] {
					continue
				}
				seenSelf[k] = true
			}
			get(tx.PayerID).Paid += tx.Amount
			get(tx.ReceiverID).Owed += tx.Amount
		}
	}

	out := make([]ParticipantSummary, 0, len(order))
	for _, id := range order {
		s := totals[id]
		s.Net = s.Paid - s.Owed
		out = append(out, *s)
	}
	return out
}

func groupTime(g Group) time.Time {
	if g.Expense != nil {
		return g.Expense.CreatedAt
	}
	var earliest time.Time
	for _, tx := range g.Transactions {
		if earliest.IsZero() || tx.CreatedAt.Before(earliest) {
			earliest = tx.CreatedAt
		}
	}
	return earliest
}
