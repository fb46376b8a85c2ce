package ledger

import (
	"cmp"
	"math"
	"slices"

	"github.com/shopspring/decimal"
)

type memberBalance struct {
	member  string
	balance float64
}

// PlanSettlements reduces net positions to a minimal list of payments.
//
// Balances are sorted ascending (largest debtor first, largest creditor last),
// ties broken by member id. Two pointers then match the current debtor with
// the current creditor, emitting min(|debt|, credit) each step, until they
// meet. Members with a non-finite total are left out. Each emitted amount is
// rounded to two decimals; running balances are not. The plan never has more
// than len(positions)-1 entries.
func PlanSettlements(positions map[string]NetPosition) []PlannedSettlement {
	balances := make([]memberBalance, 0, len(positions))
	for m, p := range positions {
		if !finite(p.Total) {
			continue
		}
		balances = append(balances, memberBalance{member: m, balance: p.Total})
	}
	slices.SortFunc(balances, func(a, b memberBalance) int {
		if c := cmp.Compare(a.balance, b.balance); c != 0 {
			return c
		}
		return cmp.Compare(a.member, b.member)
	})

	var plan []PlannedSettlement
	i, j := 0, len(balances)-1
	for i < j {
		debtor, creditor := &balances[i], &balances[j]
		if math.Abs(debtor.balance) < Tolerance {
			i++
			continue
		}
		if creditor.balance < Tolerance {
			j--
			continue
		}

		amount := math.Min(math.Abs(debtor.balance), creditor.balance)
		if amount > 0 {
			plan = append(plan, PlannedSettlement{
				From:   debtor.member,
				To:     creditor.member,
				Amount: roundCents(amount),
			})
		}

		debtor.balance += amount
		creditor.balance -= amount

		if math.Abs(debtor.balance) < Tolerance {
			i++
		}
		if creditor.balance < Tolerance {
			j--
		}
	}

	return plan
}

func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
