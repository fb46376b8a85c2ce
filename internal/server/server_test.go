package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupledger/internal/auth"
	"github.com/mmynk/groupledger/internal/metrics"
	"github.com/mmynk/groupledger/internal/storage/sqlstore"
	"github.com/mmynk/groupledger/pkg/api"
)

type fixture struct {
	server *httptest.Server
	jwt    *auth.JWTManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := sqlstore.NewSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager("router-secret", time.Hour)
	handler := NewRouter(Options{
		Store:          store,
		JWT:            jwtManager,
		Metrics:        metrics.New(),
		AllowedOrigins: []string{"http://localhost:5173"},
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &fixture{server: srv, jwt: jwtManager}
}

func (f *fixture) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)
}

func TestRPCThroughRouter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	groups := api.NewGroupServiceClient(http.DefaultClient, f.server.URL)
	ledger := api.NewLedgerServiceClient(http.DefaultClient, f.server.URL)

	_, err := groups.ListGroups(ctx, connect.NewRequest(&api.ListGroupsRequest{}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	token, err := f.jwt.Generate("alice", "alice@example.com")
	require.NoError(t, err)

	createReq := connect.NewRequest(&api.CreateGroupRequest{Name: "Cabin", Members: []string{"bob"}})
	createReq.Header().Set("Authorization", "Bearer "+token)
	created, err := groups.CreateGroup(ctx, createReq)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, created.Msg.Group.Members)

	expenseReq := connect.NewRequest(&api.AddExpenseRequest{
		GroupID:   created.Msg.Group.ID,
		Amount:    -100,
		SplitWith: []string{"bob"},
	})
	expenseReq.Header().Set("Authorization", "Bearer "+token)
	_, err = ledger.AddExpense(ctx, expenseReq)
	require.NoError(t, err)

	balancesReq := connect.NewRequest(&api.GetBalancesRequest{GroupID: created.Msg.Group.ID})
	balancesReq.Header().Set("Authorization", "Bearer "+token)
	balances, err := ledger.GetBalances(ctx, balancesReq)
	require.NoError(t, err)
	require.Len(t, balances.Msg.Plan, 1)
	assert.Equal(t, "bob", balances.Msg.Plan[0].From)
	assert.Equal(t, "alice", balances.Msg.Plan[0].To)
	assert.Equal(t, "$50.00", balances.Msg.Plan[0].Display)

	status, body := f.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `groupledger_rpc_requests_total{code="unauthenticated",procedure="/groupledger.v1.GroupService/ListGroups"} 1`)
	assert.Contains(t, body, `groupledger_rpc_requests_total{code="ok",procedure="/groupledger.v1.LedgerService/GetBalances"} 1`)
	assert.Contains(t, body, "groupledger_expenses_recorded_total 1")
}

func TestPlainJSONCall(t *testing.T) {
	f := newFixture(t)
	token, err := f.jwt.Generate("carol", "")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost,
		f.server.URL+api.GroupServiceCreateGroupProcedure,
		strings.NewReader(`{"name":"Lunch club","currency":"gbp"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"currency":"GBP"`)
	assert.Contains(t, string(body), `"created_by":"carol"`)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodOptions, f.server.URL+api.GroupServiceListGroupsProcedure, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestGroupSettingsThroughRouter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	groups := api.NewGroupServiceClient(http.DefaultClient, f.server.URL)

	withToken := func(member string, req connect.AnyRequest) {
		token, err := f.jwt.Generate(member, "")
		require.NoError(t, err)
		req.Header().Set("Authorization", "Bearer "+token)
	}

	createReq := connect.NewRequest(&api.CreateGroupRequest{Name: "Flat", Members: []string{"bob"}})
	withToken("alice", createReq)
	created, err := groups.CreateGroup(ctx, createReq)
	require.NoError(t, err)
	groupID := created.Msg.Group.ID

	updateReq := connect.NewRequest(&api.UpdateGroupRequest{GroupID: groupID, Name: "Flat 2", Currency: "jpy"})
	withToken("bob", updateReq)
	updated, err := groups.UpdateGroup(ctx, updateReq)
	require.NoError(t, err)
	assert.Equal(t, "JPY", updated.Msg.Group.Currency)

	leaveReq := connect.NewRequest(&api.LeaveGroupRequest{GroupID: groupID})
	withToken("alice", leaveReq)
	left, err := groups.LeaveGroup(ctx, leaveReq)
	require.NoError(t, err)
	assert.Equal(t, "bob", left.Msg.NewOwner)
	assert.False(t, left.Msg.Deleted)
}
