package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iurnickita/bistrobonus/internal/auth"
	authConfig "github.com/iurnickita/bistrobonus/internal/auth/config"
	"github.com/iurnickita/bistrobonus/internal/ledger"
	ledgerConfig "github.com/iurnickita/bistrobonus/internal/ledger/config"
	"github.com/iurnickita/bistrobonus/internal/station"
	stationConfig "github.com/iurnickita/bistrobonus/internal/station/config"
	"github.com/iurnickita/bistrobonus/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	memstore := store.NewMemStore()
	zaplog := zap.NewNop()

	a := auth.NewAuth(authConfig.Config{Secret: "test-secret"}, memstore)
	l := ledger.NewLedger(ledgerConfig.Config{}, memstore, zaplog)
	r, err := station.NewRouter(stationConfig.Config{}, memstore, zaplog)
	require.NoError(t, err)

	h := newHandler(a, l, r, zaplog)
	srv := httptest.NewServer(h.newRouter())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestEarnRedeemFlow(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	// начисление
	resp := postJSON(t, client, srv.URL+"/earn", PostEarnJSONRequest{
		CustomerID:    "c1",
		CustomerName:  "Ivan",
		OrderID:       1,
		OrderAmount:   10,
		PaymentMethod: "cash",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var earnResp PostEarnJSONResponse
	decodeJSON(t, resp, &earnResp)
	require.True(t, earnResp.Success)
	require.Equal(t, 20, earnResp.TokensEarned)
	require.Equal(t, 20, earnResp.NewBalance)
	require.Equal(t, "Bronze", earnResp.Tier)
	require.Equal(t, 20, earnResp.Breakdown.BaseTokens)
	require.Equal(t, 0, earnResp.Breakdown.BonusTokens)

	// баланс
	resp, err := client.Get(srv.URL + "/balance/c1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var balanceResp GetBalanceJSONResponse
	decodeJSON(t, resp, &balanceResp)
	require.Equal(t, "c1", balanceResp.CustomerID)
	require.Equal(t, 20, balanceResp.Balance)
	require.Equal(t, 20, balanceResp.TotalEarned)

	// списание сверх баланса
	resp = postJSON(t, client, srv.URL+"/redeem", PostRedeemJSONRequest{
		CustomerID: "c1",
		RewardID:   "free-drink",
		Cost:       50,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// списание
	resp = postJSON(t, client, srv.URL+"/redeem", PostRedeemJSONRequest{
		CustomerID: "c1",
		RewardID:   "free-drink",
		Cost:       15,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var redeemResp PostRedeemJSONResponse
	decodeJSON(t, resp, &redeemResp)
	require.True(t, redeemResp.Success)
	require.Equal(t, 15, redeemResp.TokensRedeemed)
	require.Equal(t, 5, redeemResp.NewBalance)
	require.Equal(t, "free-drink", redeemResp.RewardID)

	// история: от новых к старым
	resp, err = client.Get(srv.URL + "/transactions/c1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var txnsResp GetTransactionsJSONResponse
	decodeJSON(t, resp, &txnsResp)
	require.Len(t, txnsResp.Transactions, 2)
	require.Equal(t, "redeemed", txnsResp.Transactions[0].Type)
	require.Equal(t, "earned", txnsResp.Transactions[1].Type)

	// лидерборд
	resp, err = client.Get(srv.URL + "/leaderboard")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var topResp GetLeaderboardJSONResponse
	decodeJSON(t, resp, &topResp)
	require.Len(t, topResp.Leaderboard, 1)
	require.Equal(t, "c1", topResp.Leaderboard[0].CustomerID)
}

func TestEarnBadRequest(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	// нет customerId
	resp := postJSON(t, client, srv.URL+"/earn", PostEarnJSONRequest{OrderAmount: 10})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// нет orderAmount
	resp = postJSON(t, client, srv.URL+"/earn", PostEarnJSONRequest{CustomerID: "c1"})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBalanceNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/balance/nobody")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = srv.Client().Get(srv.URL + "/transactions/nobody")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRedeemUnknownCustomer(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.Client(), srv.URL+"/redeem", PostRedeemJSONRequest{
		CustomerID: "nobody",
		RewardID:   "r",
		Cost:       10,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStationEndpointsRequireAuth(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	resp := postJSON(t, client, srv.URL+"/api/stations", PostStationJSONRequest{Name: "Grill"})
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// список станций открыт для кухонного экрана
	listResp, err := client.Get(srv.URL + "/api/stations")
	require.NoError(t, err)
	listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)
}

func newStaffClient(t *testing.T, srv *httptest.Server) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := srv.Client()
	client.Jar = jar

	resp := postJSON(t, client, srv.URL+"/api/staff/register", map[string]string{
		"login":    "cook",
		"password": "secret",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return client
}

func TestStationFlow(t *testing.T) {
	srv := newTestServer(t)
	client := newStaffClient(t, srv)

	// создание станций
	resp := postJSON(t, client, srv.URL+"/api/stations", PostStationJSONRequest{
		Name:         "Grill",
		Color:        "#ef4444",
		Categories:   []string{"Grilled", "Steaks"},
		DisplayOrder: 1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var grill StationJSONBody
	decodeJSON(t, resp, &grill)
	require.NotEmpty(t, grill.ID)
	require.Equal(t, []string{"grilled", "steaks"}, grill.Categories)

	resp = postJSON(t, client, srv.URL+"/api/stations", PostStationJSONRequest{
		Name:         "Salad",
		Categories:   []string{"salads"},
		DisplayOrder: 2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var salad StationJSONBody
	decodeJSON(t, resp, &salad)

	// автораспределение
	resp = postJSON(t, client, srv.URL+"/api/orders/route", OrderJSONBody{
		ID:    1,
		Items: []OrderItemJSONBody{{Name: "Grilled Steak", Quantity: 1}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var routeResp PostRouteJSONResponse
	decodeJSON(t, resp, &routeResp)
	require.NotNil(t, routeResp.StationID)
	require.Equal(t, grill.ID, *routeResp.StationID)

	// без совпадений - null
	resp = postJSON(t, client, srv.URL+"/api/orders/route", OrderJSONBody{
		ID:    2,
		Items: []OrderItemJSONBody{{Name: "Mystery Item", Quantity: 1}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	routeResp = PostRouteJSONResponse{}
	decodeJSON(t, resp, &routeResp)
	require.Nil(t, routeResp.StationID)

	// нераспределенные заказы
	resp = postJSON(t, client, srv.URL+"/api/orders/unassigned", PostUnassignedJSONRequest{
		Orders: []OrderJSONBody{{ID: 1}, {ID: 2}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var unassignedResp PostUnassignedJSONResponse
	decodeJSON(t, resp, &unassignedResp)
	require.Len(t, unassignedResp.Orders, 1)
	require.Equal(t, 2, unassignedResp.Orders[0].ID)

	// ручное перенаправление
	resp = postJSON(t, client, srv.URL+"/api/orders/assign", PostAssignJSONRequest{
		OrderID:   1,
		StationID: salad.ID,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// статистика станции
	resp = postJSON(t, client, srv.URL+"/api/stations/"+salad.ID+"/stats", PostStationStatsJSONRequest{
		Orders: []OrderJSONBody{{ID: 1, Status: "pending"}, {ID: 2, Status: "pending"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var statsResp PostStationStatsJSONResponse
	decodeJSON(t, resp, &statsResp)
	require.Equal(t, 1, statsResp.TotalOrders)
	require.Equal(t, 1, statsResp.ActiveOrders)

	// удаление станции с каскадом назначений
	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/stations/"+salad.ID, nil)
	require.NoError(t, err)
	delResp, err := client.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	require.Equal(t, http.StatusOK, delResp.StatusCode)

	resp = postJSON(t, client, srv.URL+"/api/orders/unassigned", PostUnassignedJSONRequest{
		Orders: []OrderJSONBody{{ID: 1}, {ID: 2}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	unassignedResp = PostUnassignedJSONResponse{}
	decodeJSON(t, resp, &unassignedResp)
	require.Len(t, unassignedResp.Orders, 2)
}

func TestStaffLogin(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	resp := postJSON(t, client, srv.URL+"/api/staff/register", map[string]string{
		"login":    "cook",
		"password": "secret",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, client, srv.URL+"/api/staff/login", map[string]string{
		"login":    "cook",
		"password": "wrong",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, client, srv.URL+"/api/staff/login", map[string]string{
		"login":    "cook",
		"password": "secret",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Cookies())
}
