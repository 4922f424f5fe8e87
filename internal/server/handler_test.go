package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jortegab/cash-denomination-ledger/internal/auth"
	"github.com/jortegab/cash-denomination-ledger/internal/cashdesk"
	"github.com/jortegab/cash-denomination-ledger/internal/ledger"
	"github.com/jortegab/cash-denomination-ledger/internal/models"
	"github.com/jortegab/cash-denomination-ledger/internal/reconcile"
	"github.com/jortegab/cash-denomination-ledger/internal/storage/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := memory.NewStore()
	store.Seed("Wallet",
		[]string{"Denomination", "Count", "Subtotal"},
		[]string{"20,00 €", "5", "100,00 €"},
		[]string{"10,00 €", "2", "20,00 €"},
	)
	store.Seed("Savings",
		[]string{"Denomination", "Count", "Subtotal"},
		[]string{"50,00 €", "1", "50,00 €"},
	)
	store.Seed("Expenses/Income",
		[]string{"Date", "Amount", "Tendered", "Change", "Balance", "Notes"})

	authenticator := auth.NewAuthenticator(auth.Config{
		User:       "operator",
		PIN:        "1234",
		Secret:     []byte("test-secret"),
		SessionTTL: time.Hour,
	})
	desk := cashdesk.NewService(store,
		reconcile.New(store, nil),
		ledger.NewPoster(store, "Expenses/Income", nil),
		nil,
		map[models.AccountID]string{
			models.AccountWallet:  "Wallet",
			models.AccountSavings: "Savings",
		}, nil)

	srv := httptest.NewServer(NewRouter(NewHandler(desk, authenticator, nil)))
	t.Cleanup(srv.Close)
	return srv
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(srv.URL+"/login", "application/json",
		bytes.NewBufferString(`{"user":"operator","pin":"1234"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func do(t *testing.T, srv *httptest.Server, method, path, token, body string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != "" {
		req, err = http.NewRequest(method, srv.URL+path, bytes.NewBufferString(body))
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestLoginRejectsWrongPIN(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Post(srv.URL+"/login", "application/json",
		bytes.NewBufferString(`{"user":"operator","pin":"9999"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEndpointsRequireToken(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/accounts", "/history", "/accounts/wallet/inventory"} {
		resp := do(t, srv, http.MethodGet, path, "", "")
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestBalances(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	resp := do(t, srv, http.MethodGet, "/accounts", token, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Accounts []struct {
			Account string `json:"account"`
			Total   string `json:"total"`
		} `json:"accounts"`
		GrandTotal string `json:"grand_total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Accounts, 2)
	assert.Equal(t, "wallet", body.Accounts[0].Account)
	assert.Equal(t, "120", body.Accounts[0].Total)
	assert.Equal(t, "170", body.GrandTotal)
}

func TestRegisterMovementFlow(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	resp := do(t, srv, http.MethodPost, "/movements", token, `{
		"account": "wallet",
		"kind": "expense",
		"amount": "32.50",
		"tendered": "50",
		"note": "groceries"
	}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var receipt struct {
		FinalAmount      string `json:"final_amount"`
		ChangeDue        string `json:"change_due"`
		ResultingBalance string `json:"resulting_balance"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&receipt))
	assert.Equal(t, "32.5", receipt.FinalAmount)
	assert.Equal(t, "17.5", receipt.ChangeDue)
	assert.Equal(t, "87.5", receipt.ResultingBalance)

	// The movement landed in the history.
	histResp := do(t, srv, http.MethodGet, "/history", token, "")
	defer histResp.Body.Close()
	require.Equal(t, http.StatusOK, histResp.StatusCode)
	var table struct {
		Rows [][]string `json:"Rows"`
	}
	require.NoError(t, json.NewDecoder(histResp.Body).Decode(&table))
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "-32,50 €", table.Rows[0][1])
}

func TestRegisterMovementBreakdownDerivesAmount(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	resp := do(t, srv, http.MethodPost, "/movements", token, `{
		"account": "wallet",
		"kind": "expense",
		"breakdown": {"0": 1}
	}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var receipt struct {
		FinalAmount  string `json:"final_amount"`
		StockUpdated bool   `json:"stock_updated"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&receipt))
	assert.Equal(t, "20", receipt.FinalAmount)
	assert.True(t, receipt.StockUpdated)
}

func TestRegisterMovementValidation(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	// No amount and no breakdown.
	resp := do(t, srv, http.MethodPost, "/movements", token,
		`{"account":"wallet","kind":"expense"}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown account.
	resp = do(t, srv, http.MethodPost, "/movements", token,
		`{"account":"vault","kind":"expense","amount":"5"}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Breakdown delta beyond the input-sanity bound.
	resp = do(t, srv, http.MethodPost, "/movements", token,
		`{"account":"wallet","kind":"expense","breakdown":{"0":51}}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Driving a denomination negative is a conflict, with the row named.
	resp = do(t, srv, http.MethodPost, "/movements", token,
		`{"account":"wallet","kind":"expense","breakdown":{"1":3}}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var conflict struct {
		Row   int    `json:"row"`
		Label string `json:"label"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&conflict))
	assert.Equal(t, 1, conflict.Row)
	assert.Equal(t, "10,00 €", conflict.Label)
}

func TestInventoryEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	resp := do(t, srv, http.MethodGet, "/accounts/wallet/inventory", token, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []struct {
		Label     string `json:"label"`
		UnitCount int    `json:"unit_count"`
		Subtotal  string `json:"subtotal"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "20,00 €", rows[0].Label)
	assert.Equal(t, "100,00 €", rows[0].Subtotal)

	resp = do(t, srv, http.MethodGet, "/accounts/vault/inventory", token, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
