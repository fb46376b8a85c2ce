package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidSettlement is returned for a settlement that cannot be recorded.
var ErrInvalidSettlement = errors.New("invalid settlement")

// Compute runs the balance calculator, the settlement planner and the
// reconciler in that order over one snapshot of a group.
func Compute(members []string, expenses []Expense, history []SettlementRecord) Result {
	positions, anomalies := CalculateBalances(members, expenses, history)
	plan := Reconcile(PlanSettlements(positions), history)
	return Result{
		Positions: positions,
		Plan:      plan,
		Anomalies: anomalies,
	}
}

// NewSettlementEntries builds the pair of records a confirmed payment
// produces: the settlement itself and a positive settlement-tagged expense
// paid by from and split with to. Callers must persist both atomically.
func NewSettlementEntries(from, to string, amount float64, at time.Time) (SettlementRecord, Expense, error) {
	switch {
	case from == "" || to == "":
		return SettlementRecord{}, Expense{}, fmt.Errorf("%w: both members are required", ErrInvalidSettlement)
	case from == to:
		return SettlementRecord{}, Expense{}, fmt.Errorf("%w: member cannot settle with themselves", ErrInvalidSettlement)
	case math.IsNaN(amount) || math.IsInf(amount, 0) || amount < Tolerance:
		return SettlementRecord{}, Expense{}, fmt.Errorf("%w: amount must be positive, got %.2f", ErrInvalidSettlement, amount)
	}

	record := SettlementRecord{
		From:      from,
		To:        to,
		Amount:    amount,
		SettledAt: at,
	}
	expense := Expense{
		Payer:     from,
		Amount:    amount,
		SplitWith: []string{to},
		Category:  CategorySettlement,
		CreatedAt: at,
	}
	return record, expense, nil
}

// IsExpenseSettled reports whether an expense should be shown as settled.
// Nothing is settled while the history is empty. Otherwise settlement
// expenses always are, unsplit expenses never are, and a split expense is
// once any settlement was recorded after it.
func IsExpenseSettled(e Expense, history []SettlementRecord) bool {
	if len(history) == 0 {
		return false
	}
	if e.IsSettlement() {
		return true
	}
	if len(e.SplitWith) == 0 {
		return false
	}
	for _, s := range history {
		if !s.SettledAt.IsZero() && s.SettledAt.After(e.CreatedAt) {
			return true
		}
	}
	return false
}
