package ledger

import "math"

// Reconcile marks each planned payment settled when the recorded settlements
// in the same direction add up to its amount. The reverse direction is not
// considered; prior payments are already folded into the balances the plan
// was derived from, so the flag only matches a fresh instruction against
// what was paid this cycle.
//
// The input plan is not modified.
func Reconcile(plan []PlannedSettlement, history []SettlementRecord) []PlannedSettlement {
	if len(plan) == 0 {
		return nil
	}

	type pair struct{ from, to string }
	paid := make(map[pair]float64)
	for _, s := range history {
		paid[pair{s.From, s.To}] += s.Amount
	}

	out := make([]PlannedSettlement, len(plan))
	for i, p := range plan {
		p.Settled = math.Abs(paid[pair{p.From, p.To}]-p.Amount) < Tolerance
		out[i] = p
	}
	return out
}
