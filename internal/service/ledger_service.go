package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/groupledger/internal/ledger"
	"github.com/mmynk/groupledger/internal/metrics"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage"
	"github.com/mmynk/groupledger/pkg/api"
)

// LedgerService implements api.LedgerServiceHandler: expenses, balances and
// settlements of a group.
type LedgerService struct {
	store   storage.Store
	metrics *metrics.Metrics
	now     func() time.Time
}

var _ api.LedgerServiceHandler = (*LedgerService)(nil)

// NewLedgerService creates a new LedgerService. m may be nil.
func NewLedgerService(store storage.Store, m *metrics.Metrics) *LedgerService {
	return &LedgerService{store: store, metrics: m, now: time.Now}
}

// validateExpense checks an expense against the group before it is stored.
func validateExpense(group *models.Group, payer string, amount float64, category string, splitWith []string) error {
	if !group.HasMember(payer) {
		return fmt.Errorf("payer %q is not a member of this group", payer)
	}
	if amount == 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("amount must be a non-zero number")
	}
	if category == ledger.CategorySettlement {
		return fmt.Errorf("category %q is reserved; use SettleDebt", ledger.CategorySettlement)
	}
	for _, m := range splitWith {
		if m == payer {
			return fmt.Errorf("split_with must not contain the payer")
		}
		if !group.HasMember(m) {
			return fmt.Errorf("split member %q is not a member of this group", m)
		}
	}
	return nil
}

// AddExpense records an expense in a group.
func (s *LedgerService) AddExpense(ctx context.Context, req *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error) {
	group, caller, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	payer := req.Msg.Payer
	if payer == "" {
		payer = caller
	}
	category := strings.ToLower(strings.TrimSpace(req.Msg.Category))
	if category == "" {
		category = "other"
	}
	splitWith := distinct(req.Msg.SplitWith...)

	if err := validateExpense(group, payer, req.Msg.Amount, category, splitWith); err != nil {
		slog.Warn("AddExpense validation failed", "group_id", group.ID, "error", err)
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	expense := &models.Expense{
		GroupID:     group.ID,
		Payer:       payer,
		Amount:      req.Msg.Amount,
		Category:    category,
		Description: strings.TrimSpace(req.Msg.Description),
		SplitWith:   splitWith,
		CreatedAt:   s.now().UnixMilli(),
	}
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		return nil, storeError("AddExpense", err)
	}
	s.metrics.ExpenseRecorded()

	slog.Info("Expense recorded",
		"group_id", group.ID,
		"expense_id", expense.ID,
		"payer", payer,
		"amount", expense.Amount,
		"split_count", len(splitWith),
	)

	return connect.NewResponse(&api.AddExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// ListExpenses returns a group's expenses, newest first, with the settled hint.
func (s *LedgerService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	group, _, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	expenses, settlements, err := s.store.LoadActivity(ctx, group.ID)
	if err != nil {
		return nil, storeError("ListExpenses", err)
	}

	history := toLedgerHistory(settlements)
	out := make([]*api.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = toAPIExpense(e)
		out[i].Settled = ledger.IsExpenseSettled(toLedgerExpense(e), history)
	}

	return connect.NewResponse(&api.ListExpensesResponse{Expenses: out}), nil
}

// GetBalances computes member positions and the settlement plan for a group
// from its current expenses and settlements.
func (s *LedgerService) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	group, _, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	slog.Info("GetBalances request received", "group_id", group.ID)

	expenses, settlements, err := s.store.LoadActivity(ctx, group.ID)
	if err != nil {
		return nil, storeError("GetBalances", err)
	}

	start := time.Now()
	result := ledger.Compute(group.Members, toLedgerExpenses(expenses), toLedgerHistory(settlements))
	s.metrics.ObserveLedger(time.Since(start), result.Anomalies.Total())

	if a := result.Anomalies; a.Total() > 0 {
		slog.Warn("Skipped malformed ledger records",
			"group_id", group.ID,
			"unknown_payer", a.UnknownPayer,
			"zero_amount", a.ZeroAmount,
			"non_finite_amount", a.NonFiniteAmount,
			"unknown_split_member", a.UnknownSplitMember,
			"payer_in_split", a.PayerInSplit,
			"unknown_settlement", a.UnknownSettlement,
			"bad_settlement", a.BadSettlement,
		)
	}

	members := make([]string, 0, len(result.Positions))
	for m := range result.Positions {
		members = append(members, m)
	}
	slices.Sort(members)

	positions := make([]*api.MemberPosition, len(members))
	for i, m := range members {
		p := result.Positions[m]
		positions[i] = &api.MemberPosition{
			MemberID: m,
			Spent:    p.Spent,
			Owes:     p.Owes,
			Total:    p.Total,
		}
	}

	plan := make([]*api.PlannedSettlement, len(result.Plan))
	for i, p := range result.Plan {
		plan[i] = &api.PlannedSettlement{
			From:    p.From,
			To:      p.To,
			Amount:  p.Amount,
			Settled: p.Settled,
			Display: ledger.FormatAmount(p.Amount, group.Currency),
		}
	}

	slog.Info("GetBalances successful",
		"group_id", group.ID,
		"expenses_count", len(expenses),
		"settlements_count", len(settlements),
		"plan_count", len(plan),
	)

	return connect.NewResponse(&api.GetBalancesResponse{
		Currency:       group.Currency,
		Positions:      positions,
		Plan:           plan,
		SkippedRecords: result.Anomalies.Total(),
	}), nil
}

// SettleDebt records a payment between two members. The caller must be one
// of them. The settlement and its settlement expense are stored atomically.
func (s *LedgerService) SettleDebt(ctx context.Context, req *connect.Request[api.SettleDebtRequest]) (*connect.Response[api.SettleDebtResponse], error) {
	group, caller, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	from, to := req.Msg.From, req.Msg.To

	if caller != from && caller != to {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("you can only settle debts that involve you"))
	}
	for _, m := range []string{from, to} {
		if !group.HasMember(m) {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%q is not a member of this group", m))
		}
	}

	record, entry, err := ledger.NewSettlementEntries(from, to, req.Msg.Amount, s.now())
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidSettlement) {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	settlement := &models.Settlement{
		GroupID:   group.ID,
		From:      record.From,
		To:        record.To,
		Amount:    record.Amount,
		SettledAt: record.SettledAt.UnixMilli(),
		SettledBy: caller,
	}
	expense := &models.Expense{
		GroupID:     group.ID,
		Payer:       entry.Payer,
		Amount:      entry.Amount,
		Category:    entry.Category,
		Description: "Debt payment to " + to,
		SplitWith:   entry.SplitWith,
		CreatedAt:   entry.CreatedAt.UnixMilli(),
	}

	if err := s.store.RecordSettlement(ctx, settlement, expense); err != nil {
		return nil, storeError("SettleDebt", err)
	}
	s.metrics.SettlementRecorded()

	slog.Info("Debt settled",
		"group_id", group.ID,
		"settlement_id", settlement.ID,
		"from", from,
		"to", to,
		"amount", settlement.Amount,
		"display", ledger.FormatAmount(settlement.Amount, group.Currency),
	)

	apiExpense := toAPIExpense(expense)
	apiExpense.Settled = true
	return connect.NewResponse(&api.SettleDebtResponse{
		Settlement: toAPISettlement(settlement),
		Expense:    apiExpense,
	}), nil
}

// ListSettlements returns a group's recorded settlements, newest first.
func (s *LedgerService) ListSettlements(ctx context.Context, req *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error) {
	group, _, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	settlements, err := s.store.ListSettlementsByGroup(ctx, group.ID)
	if err != nil {
		return nil, storeError("ListSettlements", err)
	}

	out := make([]*api.Settlement, len(settlements))
	for i, st := range settlements {
		out[i] = toAPISettlement(st)
	}

	return connect.NewResponse(&api.ListSettlementsResponse{Settlements: out}), nil
}
