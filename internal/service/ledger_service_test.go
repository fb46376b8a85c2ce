package service

import (
	"context"
	"math"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/groupledger/pkg/api"
)

func (env *testEnv) addExpense(t *testing.T, member string, req *api.AddExpenseRequest) *api.Expense {
	t.Helper()
	resp, err := env.ledger.AddExpense(context.Background(), as(t, env, member, req))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}
	return resp.Msg.Expense
}

func (env *testEnv) balances(t *testing.T, member, groupID string) *api.GetBalancesResponse {
	t.Helper()
	resp, err := env.ledger.GetBalances(context.Background(), as(t, env, member, &api.GetBalancesRequest{GroupID: groupID}))
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	return resp.Msg
}

func totalsByMember(resp *api.GetBalancesResponse) map[string]float64 {
	out := make(map[string]float64, len(resp.Positions))
	for _, p := range resp.Positions {
		out[p.MemberID] = p.Total
	}
	return out
}

func assertTotal(t *testing.T, totals map[string]float64, member string, want float64) {
	t.Helper()
	got, ok := totals[member]
	if !ok {
		t.Fatalf("no position for %s", member)
	}
	if math.Abs(got-want) > 0.01 {
		t.Errorf("total for %s = %.2f, want %.2f", member, got, want)
	}
}

func TestAddExpense(t *testing.T) {
	env := setupTestServer(t)
	group := env.createGroup(t, "alice", "bob", "carol")

	expense := env.addExpense(t, "alice", &api.AddExpenseRequest{
		GroupID:     group.ID,
		Amount:      -90,
		Category:    " Food ",
		Description: "Dinner",
		SplitWith:   []string{"bob", "carol", "bob"},
	})

	if expense.ID == "" {
		t.Error("expected expense ID to be generated")
	}
	if expense.Payer != "alice" {
		t.Errorf("expected payer to default to caller, got %s", expense.Payer)
	}
	if expense.Category != "food" {
		t.Errorf("expected normalized category 'food', got '%s'", expense.Category)
	}
	if len(expense.SplitWith) != 2 {
		t.Errorf("expected duplicates dropped from split, got %v", expense.SplitWith)
	}
	if expense.CreatedAt == 0 {
		t.Error("expected CreatedAt to be set")
	}

	// Another member may record on a payer's behalf.
	onBehalf := env.addExpense(t, "bob", &api.AddExpenseRequest{GroupID: group.ID, Payer: "carol", Amount: -10})
	if onBehalf.Payer != "carol" || onBehalf.Category != "other" {
		t.Errorf("unexpected expense: %+v", onBehalf)
	}
}

func TestAddExpenseValidation(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	group := env.createGroup(t, "alice", "bob")

	tests := []struct {
		name string
		req  *api.AddExpenseRequest
	}{
		{"zero amount", &api.AddExpenseRequest{GroupID: group.ID, Amount: 0}},
		{"payer not a member", &api.AddExpenseRequest{GroupID: group.ID, Payer: "zoe", Amount: -5}},
		{"split member not in group", &api.AddExpenseRequest{GroupID: group.ID, Amount: -5, SplitWith: []string{"zoe"}}},
		{"payer in split", &api.AddExpenseRequest{GroupID: group.ID, Amount: -5, SplitWith: []string{"alice", "bob"}}},
		{"reserved category", &api.AddExpenseRequest{GroupID: group.ID, Amount: 5, Category: "Settlement", SplitWith: []string{"bob"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ledger.AddExpense(ctx, as(t, env, "alice", tt.req))
			assertCode(t, err, connect.CodeInvalidArgument)
		})
	}

	t.Run("non-member caller", func(t *testing.T) {
		_, err := env.ledger.AddExpense(ctx, as(t, env, "mallory", &api.AddExpenseRequest{GroupID: group.ID, Amount: -5}))
		assertCode(t, err, connect.CodePermissionDenied)
	})
}

func TestGetBalances(t *testing.T) {
	env := setupTestServer(t)
	group := env.createGroup(t, "A", "B", "C")

	env.addExpense(t, "A", &api.AddExpenseRequest{GroupID: group.ID, Amount: -90, SplitWith: []string{"B", "C"}})
	env.addExpense(t, "B", &api.AddExpenseRequest{GroupID: group.ID, Amount: -15, Category: "coffee"})

	resp := env.balances(t, "C", group.ID)

	if resp.Currency != "USD" {
		t.Errorf("expected currency USD, got %s", resp.Currency)
	}
	if len(resp.Positions) != 3 {
		t.Fatalf("expected 3 positions, got %d", len(resp.Positions))
	}
	for i, want := range []string{"A", "B", "C"} {
		if resp.Positions[i].MemberID != want {
			t.Errorf("positions[%d] = %s, want %s", i, resp.Positions[i].MemberID, want)
		}
	}

	totals := totalsByMember(resp)
	assertTotal(t, totals, "A", 60)
	assertTotal(t, totals, "B", -30)
	assertTotal(t, totals, "C", -30)

	if spent := resp.Positions[1].Spent; spent != -15 {
		t.Errorf("expected B spent -15, got %.2f", spent)
	}

	if len(resp.Plan) != 2 {
		t.Fatalf("expected 2 planned settlements, got %+v", resp.Plan)
	}
	for _, p := range resp.Plan {
		if p.To != "A" || p.Amount != 30 || p.Settled {
			t.Errorf("unexpected planned settlement: %+v", p)
		}
		if p.Display != "$30.00" {
			t.Errorf("expected display '$30.00', got '%s'", p.Display)
		}
	}
	if resp.SkippedRecords != 0 {
		t.Errorf("expected no skipped records, got %d", resp.SkippedRecords)
	}
}

func TestGetBalancesFormatsGroupCurrency(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	resp, err := env.groups.CreateGroup(ctx, as(t, env, "alice", &api.CreateGroupRequest{
		Name:     "Paris",
		Currency: "EUR",
		Members:  []string{"bob"},
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	group := resp.Msg.Group

	env.addExpense(t, "alice", &api.AddExpenseRequest{GroupID: group.ID, Amount: -1234.5, SplitWith: []string{"bob"}})

	balances := env.balances(t, "bob", group.ID)
	if len(balances.Plan) != 1 {
		t.Fatalf("expected 1 planned settlement, got %+v", balances.Plan)
	}
	if got := balances.Plan[0].Display; got != "€617.25" {
		t.Errorf("expected display '€617.25', got '%s'", got)
	}
}

func TestSettleDebt(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	group := env.createGroup(t, "A", "B", "C")

	env.addExpense(t, "A", &api.AddExpenseRequest{GroupID: group.ID, Amount: -90, SplitWith: []string{"B", "C"}})

	resp, err := env.ledger.SettleDebt(ctx, as(t, env, "B", &api.SettleDebtRequest{
		GroupID: group.ID,
		From:    "B",
		To:      "A",
		Amount:  30,
	}))
	if err != nil {
		t.Fatalf("SettleDebt failed: %v", err)
	}

	settlement := resp.Msg.Settlement
	if settlement.ID == "" || settlement.SettledBy != "B" || settlement.Amount != 30 {
		t.Errorf("unexpected settlement: %+v", settlement)
	}
	expense := resp.Msg.Expense
	if expense.Category != "settlement" || expense.SettlementID != settlement.ID {
		t.Errorf("settlement expense not linked: %+v", expense)
	}
	if expense.Description != "Debt payment to A" {
		t.Errorf("unexpected description '%s'", expense.Description)
	}
	if expense.Payer != "B" || len(expense.SplitWith) != 1 || expense.SplitWith[0] != "A" {
		t.Errorf("unexpected settlement expense parties: %+v", expense)
	}

	balances := env.balances(t, "A", group.ID)
	totals := totalsByMember(balances)
	assertTotal(t, totals, "A", 30)
	assertTotal(t, totals, "B", 0)
	assertTotal(t, totals, "C", -30)

	if len(balances.Plan) != 1 {
		t.Fatalf("expected 1 planned settlement, got %+v", balances.Plan)
	}
	if p := balances.Plan[0]; p.From != "C" || p.To != "A" || p.Amount != 30 || p.Settled {
		t.Errorf("unexpected plan: %+v", p)
	}

	settlements, err := env.ledger.ListSettlements(ctx, as(t, env, "C", &api.ListSettlementsRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("ListSettlements failed: %v", err)
	}
	if len(settlements.Msg.Settlements) != 1 {
		t.Errorf("expected 1 settlement, got %d", len(settlements.Msg.Settlements))
	}
}

func TestSettleDebtPartialPaymentMarksPlanSettled(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	group := env.createGroup(t, "A", "B")

	env.addExpense(t, "A", &api.AddExpenseRequest{GroupID: group.ID, Amount: -200, SplitWith: []string{"B"}})

	// The creditor may record a payment too.
	if _, err := env.ledger.SettleDebt(ctx, as(t, env, "A", &api.SettleDebtRequest{
		GroupID: group.ID, From: "B", To: "A", Amount: 50,
	})); err != nil {
		t.Fatalf("SettleDebt failed: %v", err)
	}

	balances := env.balances(t, "B", group.ID)
	if len(balances.Plan) != 1 {
		t.Fatalf("expected 1 planned settlement, got %+v", balances.Plan)
	}
	p := balances.Plan[0]
	if p.From != "B" || p.To != "A" || p.Amount != 50 {
		t.Errorf("unexpected plan: %+v", p)
	}
	if !p.Settled {
		t.Errorf("expected the remaining instruction to match the recorded payment: %+v", p)
	}
}

func TestSettleDebtValidation(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	group := env.createGroup(t, "A", "B", "C")

	tests := []struct {
		name   string
		caller string
		req    *api.SettleDebtRequest
		code   connect.Code
	}{
		{"caller not a party", "C", &api.SettleDebtRequest{GroupID: group.ID, From: "B", To: "A", Amount: 10}, connect.CodePermissionDenied},
		{"non-member caller", "Z", &api.SettleDebtRequest{GroupID: group.ID, From: "Z", To: "A", Amount: 10}, connect.CodePermissionDenied},
		{"recipient not a member", "A", &api.SettleDebtRequest{GroupID: group.ID, From: "A", To: "Z", Amount: 10}, connect.CodeInvalidArgument},
		{"self payment", "A", &api.SettleDebtRequest{GroupID: group.ID, From: "A", To: "A", Amount: 10}, connect.CodeInvalidArgument},
		{"zero amount", "A", &api.SettleDebtRequest{GroupID: group.ID, From: "A", To: "B", Amount: 0}, connect.CodeInvalidArgument},
		{"negative amount", "A", &api.SettleDebtRequest{GroupID: group.ID, From: "A", To: "B", Amount: -5}, connect.CodeInvalidArgument},
		{"unknown group", "A", &api.SettleDebtRequest{GroupID: "nonexistent-id", From: "A", To: "B", Amount: 5}, connect.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ledger.SettleDebt(ctx, as(t, env, tt.caller, tt.req))
			assertCode(t, err, tt.code)
		})
	}

	settlements, err := env.ledger.ListSettlements(ctx, as(t, env, "A", &api.ListSettlementsRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("ListSettlements failed: %v", err)
	}
	if len(settlements.Msg.Settlements) != 0 {
		t.Errorf("expected rejected settlements not to be stored, got %d", len(settlements.Msg.Settlements))
	}
}

func TestListExpensesSettledHint(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	group := env.createGroup(t, "A", "B")

	env.addExpense(t, "A", &api.AddExpenseRequest{GroupID: group.ID, Amount: -40, SplitWith: []string{"B"}})
	env.addExpense(t, "B", &api.AddExpenseRequest{GroupID: group.ID, Amount: -8, Category: "snacks"})

	list := func() []*api.Expense {
		t.Helper()
		resp, err := env.ledger.ListExpenses(ctx, as(t, env, "A", &api.ListExpensesRequest{GroupID: group.ID}))
		if err != nil {
			t.Fatalf("ListExpenses failed: %v", err)
		}
		return resp.Msg.Expenses
	}

	for _, e := range list() {
		if e.Settled {
			t.Errorf("expected no settled expenses before payment: %+v", e)
		}
	}

	if _, err := env.ledger.SettleDebt(ctx, as(t, env, "B", &api.SettleDebtRequest{
		GroupID: group.ID, From: "B", To: "A", Amount: 20,
	})); err != nil {
		t.Fatalf("SettleDebt failed: %v", err)
	}

	expenses := list()
	if len(expenses) != 3 {
		t.Fatalf("expected 3 expenses including the settlement, got %d", len(expenses))
	}
	for _, e := range expenses {
		switch {
		case e.Category == "settlement":
			if !e.Settled {
				t.Errorf("expected settlement expense to be settled: %+v", e)
			}
		case len(e.SplitWith) > 0:
			if !e.Settled {
				t.Errorf("expected split expense to be settled: %+v", e)
			}
		default:
			if e.Settled {
				t.Errorf("expected personal expense not to be settled: %+v", e)
			}
		}
	}
}

func TestGetBalancesAfterMemberLeaves(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	group := env.createGroup(t, "alice", "bob", "carol")

	env.addExpense(t, "bob", &api.AddExpenseRequest{GroupID: group.ID, Amount: -30, SplitWith: []string{"alice", "carol"}})
	env.addExpense(t, "alice", &api.AddExpenseRequest{GroupID: group.ID, Amount: -20, SplitWith: []string{"carol"}})

	if _, err := env.groups.LeaveGroup(ctx, as(t, env, "bob", &api.LeaveGroupRequest{GroupID: group.ID})); err != nil {
		t.Fatalf("LeaveGroup failed: %v", err)
	}

	bal := env.balances(t, "alice", group.ID)
	if bal.SkippedRecords == 0 {
		t.Error("expected the departed payer's expense to be skipped")
	}
	totals := totalsByMember(bal)
	if _, ok := totals["bob"]; ok {
		t.Error("expected no position for bob")
	}
	assertTotal(t, totals, "alice", 10)
	assertTotal(t, totals, "carol", -10)
}
