package ledger

import (
	"math"
	"slices"
)

// CalculateBalances computes the net position of every group member.
//
// Algorithm:
//   - Settlement expenses are skipped; they are already reflected in history.
//   - For each expense the payer's Spent grows by the signed amount.
//   - A split expense is shared equally by the payer and every split member:
//     share = |amount| / (len(SplitWith) + 1). For spending, each split member
//     owes the payer a share; for income, the payer owes each split member.
//   - Each settlement lowers owes[from][to] and raises owes[to][from] by its
//     amount, touching only entries that are currently non-zero.
//   - Total = sum of positive amounts others owe the member minus sum of
//     positive amounts the member owes others.
//
// Malformed input is skipped and counted in the returned Anomalies. Members
// absent from the membership list never receive a position.
func CalculateBalances(members []string, expenses []Expense, history []SettlementRecord) (map[string]NetPosition, Anomalies) {
	var anomalies Anomalies

	ids := sortedMembers(members)
	spent := make(map[string]float64, len(ids))
	owes := make(map[string]map[string]float64, len(ids))
	for _, id := range ids {
		owes[id] = make(map[string]float64)
	}

	for _, e := range expenses {
		if e.IsSettlement() {
			continue
		}
		if _, ok := owes[e.Payer]; !ok {
			anomalies.UnknownPayer++
			continue
		}
		if e.Amount == 0 {
			anomalies.ZeroAmount++
			continue
		}
		if !finite(e.Amount) {
			anomalies.NonFiniteAmount++
			continue
		}

		spent[e.Payer] += e.Amount

		if len(e.SplitWith) == 0 {
			continue
		}
		share := math.Abs(e.Amount) / float64(len(e.SplitWith)+1)
		for _, m := range e.SplitWith {
			if m == e.Payer {
				anomalies.PayerInSplit++
				continue
			}
			if _, ok := owes[m]; !ok {
				anomalies.UnknownSplitMember++
				continue
			}
			if e.Amount < 0 {
				owes[m][e.Payer] += share
			} else {
				owes[e.Payer][m] += share
			}
		}
	}

	for _, s := range history {
		from, okFrom := owes[s.From]
		to, okTo := owes[s.To]
		if !okFrom || !okTo {
			anomalies.UnknownSettlement++
			continue
		}
		if !finite(s.Amount) || s.Amount <= 0 {
			anomalies.BadSettlement++
			continue
		}
		if from[s.To] != 0 {
			from[s.To] -= s.Amount
		}
		if to[s.From] != 0 {
			to[s.From] += s.Amount
		}
	}

	positions := make(map[string]NetPosition, len(ids))
	for _, m := range ids {
		var totalOwes, totalOwed float64
		for _, other := range ids {
			if other == m {
				continue
			}
			totalOwes += math.Max(0, owes[m][other])
			totalOwed += math.Max(0, owes[other][m])
		}
		positions[m] = NetPosition{
			Spent: spent[m],
			Owes:  owes[m],
			Total: totalOwed - totalOwes,
		}
	}

	return positions, anomalies
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// sortedMembers returns the distinct member ids in lexicographic order.
func sortedMembers(members []string) []string {
	ids := slices.Clone(members)
	slices.Sort(ids)
	return slices.Compact(ids)
}
