package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// Procedure names for LedgerService.
const (
	LedgerServiceAddExpenseProcedure      = "/" + LedgerServiceName + "/AddExpense"
	LedgerServiceListExpensesProcedure    = "/" + LedgerServiceName + "/ListExpenses"
	LedgerServiceGetBalancesProcedure     = "/" + LedgerServiceName + "/GetBalances"
	LedgerServiceSettleDebtProcedure      = "/" + LedgerServiceName + "/SettleDebt"
	LedgerServiceListSettlementsProcedure = "/" + LedgerServiceName + "/ListSettlements"
)

// Expense is one entry of a group's transaction history.
type Expense struct {
	ID           string   `json:"id"`
	GroupID      string   `json:"group_id"`
	Payer        string   `json:"payer"`
	Amount       float64  `json:"amount"`
	Category     string   `json:"category"`
	Description  string   `json:"description,omitempty"`
	SplitWith    []string `json:"split_with,omitempty"`
	SettlementID string   `json:"settlement_id,omitempty"`
	CreatedAt    int64    `json:"created_at"`

	// Settled is a display hint: a split expense followed by any settlement.
	Settled bool `json:"settled"`
}

// MemberPosition is a member's balance within a group.
type MemberPosition struct {
	MemberID string             `json:"member_id"`
	Spent    float64            `json:"spent"`
	Owes     map[string]float64 `json:"owes,omitempty"`
	Total    float64            `json:"total"`
}

// PlannedSettlement is one suggested payment.
type PlannedSettlement struct {
	From    string  `json:"from"`
	To      string  `json:"to"`
	Amount  float64 `json:"amount"`
	Settled bool    `json:"settled"`

	// Display is Amount formatted in the group currency, e.g. "$12.50".
	Display string `json:"display"`
}

// Settlement is a recorded payment between two members.
type Settlement struct {
	ID        string  `json:"id"`
	GroupID   string  `json:"group_id"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Amount    float64 `json:"amount"`
	SettledAt int64   `json:"settled_at"`
	SettledBy string  `json:"settled_by"`
}

type AddExpenseRequest struct {
	GroupID string `json:"group_id"`
	// Payer defaults to the caller.
	Payer       string   `json:"payer,omitempty"`
	Amount      float64  `json:"amount"`
	Category    string   `json:"category"`
	Description string   `json:"description,omitempty"`
	SplitWith   []string `json:"split_with,omitempty"`
}

type AddExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type ListExpensesRequest struct {
	GroupID string `json:"group_id"`
}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type GetBalancesRequest struct {
	GroupID string `json:"group_id"`
}

type GetBalancesResponse struct {
	Currency string `json:"currency"`
	// Positions are ordered by member ID.
	Positions []*MemberPosition    `json:"positions"`
	Plan      []*PlannedSettlement `json:"plan"`
	// SkippedRecords counts malformed records ignored by the computation.
	SkippedRecords int `json:"skipped_records"`
}

type SettleDebtRequest struct {
	GroupID string  `json:"group_id"`
	From    string  `json:"from"`
	To      string  `json:"to"`
	Amount  float64 `json:"amount"`
}

type SettleDebtResponse struct {
	Settlement *Settlement `json:"settlement"`
	Expense    *Expense    `json:"expense"`
}

type ListSettlementsRequest struct {
	GroupID string `json:"group_id"`
}

type ListSettlementsResponse struct {
	Settlements []*Settlement `json:"settlements"`
}

// LedgerServiceHandler is implemented by the ledger service.
type LedgerServiceHandler interface {
	AddExpense(context.Context, *connect.Request[AddExpenseRequest]) (*connect.Response[AddExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error)
	GetBalances(context.Context, *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error)
	SettleDebt(context.Context, *connect.Request[SettleDebtRequest]) (*connect.Response[SettleDebtResponse], error)
	ListSettlements(context.Context, *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler for svc. It returns the path
// prefix to mount the handler on.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(LedgerServiceAddExpenseProcedure, connect.NewUnaryHandler(LedgerServiceAddExpenseProcedure, svc.AddExpense, opts...))
	mux.Handle(LedgerServiceListExpensesProcedure, connect.NewUnaryHandler(LedgerServiceListExpensesProcedure, svc.ListExpenses, opts...))
	mux.Handle(LedgerServiceGetBalancesProcedure, connect.NewUnaryHandler(LedgerServiceGetBalancesProcedure, svc.GetBalances, opts...))
	mux.Handle(LedgerServiceSettleDebtProcedure, connect.NewUnaryHandler(LedgerServiceSettleDebtProcedure, svc.SettleDebt, opts...))
	mux.Handle(LedgerServiceListSettlementsProcedure, connect.NewUnaryHandler(LedgerServiceListSettlementsProcedure, svc.ListSettlements, opts...))
	return "/" + LedgerServiceName + "/", mux
}

// LedgerServiceClient calls a remote LedgerService.
type LedgerServiceClient struct {
	addExpense      *connect.Client[AddExpenseRequest, AddExpenseResponse]
	listExpenses    *connect.Client[ListExpensesRequest, ListExpensesResponse]
	getBalances     *connect.Client[GetBalancesRequest, GetBalancesResponse]
	settleDebt      *connect.Client[SettleDebtRequest, SettleDebtResponse]
	listSettlements *connect.Client[ListSettlementsRequest, ListSettlementsResponse]
}

// NewLedgerServiceClient creates a client for the LedgerService at baseURL.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	baseURL = trimBaseURL(baseURL)
	opts = clientOptions(opts)
	return &LedgerServiceClient{
		addExpense:      connect.NewClient[AddExpenseRequest, AddExpenseResponse](httpClient, baseURL+LedgerServiceAddExpenseProcedure, opts...),
		listExpenses:    connect.NewClient[ListExpensesRequest, ListExpensesResponse](httpClient, baseURL+LedgerServiceListExpensesProcedure, opts...),
		getBalances:     connect.NewClient[GetBalancesRequest, GetBalancesResponse](httpClient, baseURL+LedgerServiceGetBalancesProcedure, opts...),
		settleDebt:      connect.NewClient[SettleDebtRequest, SettleDebtResponse](httpClient, baseURL+LedgerServiceSettleDebtProcedure, opts...),
		listSettlements: connect.NewClient[ListSettlementsRequest, ListSettlementsResponse](httpClient, baseURL+LedgerServiceListSettlementsProcedure, opts...),
	}
}

func (c *LedgerServiceClient) AddExpense(ctx context.Context, req *connect.Request[AddExpenseRequest]) (*connect.Response[AddExpenseResponse], error) {
	return c.addExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetBalances(ctx context.Context, req *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error) {
	return c.getBalances.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) SettleDebt(ctx context.Context, req *connect.Request[SettleDebtRequest]) (*connect.Response[SettleDebtResponse], error) {
	return c.settleDebt.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListSettlements(ctx context.Context, req *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error) {
	return c.listSettlements.CallUnary(ctx, req)
}
