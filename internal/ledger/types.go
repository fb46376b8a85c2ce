// Package ledger computes group balances and settlement plans.
//
// The package is pure: every function takes a snapshot of group membership,
// expenses and settlement history and returns freshly allocated results. It
// holds no state and is safe to call concurrently on independent snapshots.
package ledger

import "time"

// Tolerance is the smallest balance treated as non-zero, in currency units.
const Tolerance = 0.01

// CategorySettlement tags an expense that records a settlement payment.
// Such expenses are excluded from balance computation.
const CategorySettlement = "settlement"

// Expense is a single financial event recorded against a group.
type Expense struct {
	Payer string

	// Amount is negative for money spent and positive for money received.
	Amount float64

	// SplitWith lists the members, other than the payer, sharing this expense.
	SplitWith []string

	Category  string
	CreatedAt time.Time
}

// IsSettlement reports whether the expense is itself a recorded settlement.
func (e Expense) IsSettlement() bool {
	return e.Category == CategorySettlement
}

// SettlementRecord is a real payment from one member to another.
type SettlementRecord struct {
	From      string
	To        string
	Amount    float64
	SettledAt time.Time
}

// NetPosition is one member's position within the group.
type NetPosition struct {
	// Spent is the signed sum of amounts the member recorded as payer.
	Spent float64

	// Owes maps another member to what this member owes them, after
	// settlement adjustment. Entries may be zero or negative.
	Owes map[string]float64

	// Total is positive when the member is owed money and negative when
	// the member owes money.
	Total float64
}

// PlannedSettlement is one payment instruction of a settlement plan.
type PlannedSettlement struct {
	From    string
	To      string
	Amount  float64
	Settled bool
}

// Anomalies counts malformed input that was skipped during computation.
type Anomalies struct {
	UnknownPayer       int // expense payer is not a group member
	ZeroAmount         int
	UnknownSplitMember int // split participant is not a group member
	PayerInSplit       int
	UnknownSettlement  int // settlement endpoint is not a group member
	NonFiniteAmount    int // expense amount is NaN or infinite
	BadSettlement      int // settlement amount is not a positive finite number
}

// Total returns the number of skipped anomalies.
func (a Anomalies) Total() int {
	return a.UnknownPayer + a.ZeroAmount + a.UnknownSplitMember + a.PayerInSplit +
		a.UnknownSettlement + a.NonFiniteAmount + a.BadSettlement
}

// Result is the full output of Compute.
type Result struct {
	Positions map[string]NetPosition
	Plan      []PlannedSettlement
	Anomalies Anomalies
}
