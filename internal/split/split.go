// Package split allocates a shared expense amount among participants.
//
// Allocation is pure integer arithmetic over cents: every strategy returns
// per-participant shares that sum exactly to the total, with rounding
// remainders walked out one cent at a time in participant input order.
package split

import (
	"fmt"
	"math"

	apperrors "divvy/internal/errors"
	"divvy/internal/money"
)

// Strategy identifies the rule used to divide an expense among splitters.
type Strategy string

const (
	StrategyEqual      Strategy = "equal"
	StrategyPercentage Strategy = "percentage"
	StrategyWeight     Strategy = "weight"
	StrategyManual     Strategy = "manual"
	StrategyExtra      Strategy = "extra"
)

// Valid reports whether s names a known strategy.
func Valid(s Strategy) bool {
	switch s {
	case StrategyEqual, StrategyPercentage, StrategyWeight, StrategyManual, StrategyExtra:
		return true
	}
	return false
}

// Share is one participant's allocated amount.
type Share struct {
	ParticipantID string
	Amount        money.Money
}

// Result holds the allocation output. Shares preserve participant input
// order. PercentGap is `100 - sum(percentages)` for the percentage strategy;
// a nonzero gap is a warnable state, not a failure, so callers can surface
// it without blocking the expense.
type Result struct {
	Shares     []Share
	PercentGap float64
}

// Amount returns the share allocated to the given participant (0 if absent).
func (r *Result) Amount(participantID string) money.Money {
	for _, s := range r.Shares {
		if s.ParticipantID == participantID {
			return s.Amount
		}
	}
	return 0
}

// Total returns the sum of all shares.
func (r *Result) Total() money.Money {
	var t money.Money
	for _, s := range r.Shares {
		t += s.Amount
	}
	return t
}

// Allocate divides total among participants according to strategy.
// inputs carries the strategy-specific raw values keyed by participant ID:
// percentages in [0,100], non-negative weights, manual amounts or signed
// adjustments in currency units. Participants absent from inputs default to
// zero (percentage, weight, extra) or to an equal share of the unallocated
// remainder (manual).
func Allocate(total money.Money, participants []string, strategy Strategy, inputs map[string]float64) (*Result, error) {
	if total < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidAllocation, "total amount cannot be negative")
	}
	if len(participants) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidAllocation, "at least one participant is required")
	}
	seen := make(map[string]bool, len(participants))
	for _, id := range participants {
		if seen[id] {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidAllocation, "duplicate participant "+id)
		}
		seen[id] = true
	}

	switch strategy {
	case StrategyEqual:
		return allocateEqual(total, participants)
	case StrategyPercentage:
		return allocatePercentage(total, participants, inputs)
	case StrategyWeight:
		return allocateWeight(total, participants, inputs)
	case StrategyManual:
		return allocateManual(total, participants, inputs)
	case StrategyExtra:
		return allocateExtra(total, participants, inputs)
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidAllocation, fmt.Sprintf("unknown split strategy %q", strategy))
	}
}

// equalParts splits total cents into n parts differing by at most one cent,
// larger parts first. Works for negative totals as well, which the extra
// strategy relies on when adjustments overshoot.
func equalParts(total int64, n int) []int64 {
	base := total / int64(n)
	rem := total - base*int64(n)
	step := int64(1)
	if rem < 0 {
		step = -1
		rem = -rem
	}
	parts := make([]int64, n)
	for i := range parts {
		parts[i] = base
		if int64(i) < rem {
			parts[i] += step
		}
	}
	return parts
}

func allocateEqual(total money.Money, participants []string) (*Result, error) {
	parts := equalParts(int64(total), len(participants))
	res := &Result{Shares: make([]Share, len(participants))}
	for i, id := range participants {
		res.Shares[i] = Share{ParticipantID: id, Amount: money.Money(parts[i])}
	}
	return res, nil
}

func allocatePercentage(total money.Money, participants []string, inputs map[string]float64) (*Result, error) {
	res := &Result{Shares: make([]Share, len(participants))}
	var pctSum float64
	for i, id := range participants {
		pct := inputs[id]
		if pct < 0 || pct > 100 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidAllocation, "percentage must be between 0 and 100")
		}
		pctSum += pct
		// Each share rounds to the cent independently; the total is whatever
		// the percentages produce.
		cents := int64(math.Round(pct * float64(total) / 100))
		res.Shares[i] = Share{ParticipantID: id, Amount: money.Money(cents)}
	}
	res.PercentGap = 100 - pctSum
	return res, nil
}

func allocateWeight(total money.Money, participants []string, inputs map[string]float64) (*Result, error) {
	var weightSum float64
	for _, id := range participants {
		w := inputs[id]
		if w < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidAllocation, "weights cannot be negative")
		}
		weightSum += w
	}
	if weightSum == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidAllocation, "at least one weight must be positive")
	}

	res := &Result{Shares: make([]Share, len(participants))}
	var allocated int64
	for i, id := range participants {
		cents := int64(math.Round(inputs[id] * float64(total) / weightSum))
		res.Shares[i] = Share{ParticipantID: id, Amount: money.Money(cents)}
		allocated += cents
	}

	// Walk the rounding remainder out one cent at a time over the weighted
	// participants, in input order, cycling until exhausted. Undershoot adds
	// cents, overshoot removes them without taking a share below zero.
	remainder := int64(total) - allocated
	for remainder != 0 {
		moved := false
		for i, id := range participants {
			if remainder == 0 {
				break
			}
			if inputs[id] <= 0 {
				continue
			}
			if remainder > 0 {
				res.Shares[i].Amount++
				remainder--
				moved = true
			} else if res.Shares[i].Amount > 0 {
				res.Shares[i].Amount--
				remainder++
				moved = true
			}
		}
		if !moved {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidAllocation, "weight rounding remainder cannot be distributed")
		}
	}
	return res, nil
}

func allocateManual(total money.Money, participants []string, inputs map[string]float64) (*Result, error) {
	explicit := make(map[string]int64, len(inputs))
	var implicit []string
	var explicitSum int64
	for _, id := range participants {
		v, ok := inputs[id]
		if !ok {
			implicit = append(implicit, id)
			continue
		}
		if v < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidAllocation, "manual amounts cannot be negative")
		}
		cents := int64(math.Round(v * 100))
		explicit[id] = cents
		explicitSum += cents
	}
	if explicitSum > int64(total) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidAllocation, "manual amounts exceed the total")
	}

	remainder := int64(total) - explicitSum
	if len(implicit) == 0 && remainder != 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidAllocation, "manual amounts must sum to the total when every participant is explicit")
	}

	var parts []int64
	if len(implicit) > 0 {
		parts = equalParts(remainder, len(implicit))
	}

	res := &Result{Shares: make([]Share, len(participants))}
	idx := 0
	for i, id := range participants {
		if cents, ok := explicit[id]; ok {
			res.Shares[i] = Share{ParticipantID: id, Amount: money.Money(cents)}
			continue
		}
		res.Shares[i] = Share{ParticipantID: id, Amount: money.Money(parts[idx])}
		idx++
	}
	return res, nil
}

func allocateExtra(total money.Money, participants []string, inputs map[string]float64) (*Result, error) {
	adjustments := make([]int64, len(participants))
	var adjSum int64
	for i, id := range participants {
		cents := int64(math.Round(inputs[id] * 100))
		adjustments[i] = cents
		adjSum += cents
	}

	// The remainder after adjustments is split equally among every
	// participant, adjusted or not.
	parts := equalParts(int64(total)-adjSum, len(participants))

	res := &Result{Shares: make([]Share, len(participants))}
	for i, id := range participants {
		final := adjustments[i] + parts[i]
		if final < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidAllocation, "adjustment for "+id+" produces a negative share")
		}
		res.Shares[i] = Share{ParticipantID: id, Amount: money.Money(final)}
	}
	return res, nil
}
