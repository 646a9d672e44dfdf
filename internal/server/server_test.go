package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/cashpoint/cashpoint/internal/config"
	"github.com/cashpoint/cashpoint/internal/dispense"
	"github.com/cashpoint/cashpoint/internal/ledger"
	"github.com/cashpoint/cashpoint/internal/logging"
)

func testConfig() config.Config {
	return config.Config{
		AppName:        "cashpoint-test",
		AppEnv:         "test",
		Port:           "0",
		Denominations:  dispense.Default,
		MinWithdrawal:  10_000,
		CodeTTL:        30 * time.Minute,
		LockTimeout:    time.Second,
		PINHashCost:    bcrypt.MinCost,
		IdempotencyTTL: time.Minute,
	}
}

func call(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()
	return callWithHeaders(t, app, method, path, body, nil)
}

func callWithHeaders(t *testing.T, app *fiber.App, method, path string, body any, headers map[string]string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	payload, _ := io.ReadAll(resp.Body)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, payload, err)
		}
	}
	return resp.StatusCode, out
}

func newTestServer(t *testing.T) *fiber.App {
	t.Helper()
	srv, err := New(testConfig(), nil, nil, logging.Discard())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv.app
}

func TestWalletWithdrawalFlow(t *testing.T) {
	app := newTestServer(t)

	status, _ := call(t, app, fiber.MethodPost, "/api/v1/accounts", map[string]any{
		"number": "3001", "kind": "nequi", "pin": "1234", "initial_balance": 200_000,
	})
	if status != fiber.StatusCreated {
		t.Fatalf("open account: %d", status)
	}
	if status, _ := call(t, app, fiber.MethodPost, "/api/v1/accounts", map[string]any{
		"number": "3001", "kind": "nequi", "pin": "1234",
	}); status != fiber.StatusConflict {
		t.Fatalf("duplicate account: expected 409 got %d", status)
	}

	status, body := call(t, app, fiber.MethodPost, "/api/v1/withdrawals", map[string]any{
		"account_number": "3001", "amount": 170_000, "code": "000000",
	})
	if status != fiber.StatusUnauthorized || body["error"] == nil {
		t.Fatalf("unknown code: expected 401 with error body, got %d %v", status, body)
	}

	status, body = call(t, app, fiber.MethodPost, "/api/v1/withdrawals/codes", map[string]any{
		"account_number": "3001", "pin": "1234",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("issue code: %d %v", status, body)
	}
	code, _ := body["code"].(string)
	if len(code) != 6 {
		t.Fatalf("expected six digit code, got %q", code)
	}

	status, body = call(t, app, fiber.MethodPost, "/api/v1/withdrawals", map[string]any{
		"account_number": "3001", "amount": 170_000, "code": code,
	})
	if status != fiber.StatusOK {
		t.Fatalf("withdraw: %d %v", status, body)
	}
	if body["balance"] != float64(30_000) {
		t.Fatalf("unexpected balance: %v", body["balance"])
	}
	bills, _ := body["bills"].([]any)
	if len(bills) != 3 {
		t.Fatalf("expected 100000+50000+20000, got %v", bills)
	}

	if status, _ := call(t, app, fiber.MethodPost, "/api/v1/withdrawals", map[string]any{
		"account_number": "3001", "amount": 10_000, "code": code,
	}); status != fiber.StatusUnauthorized {
		t.Fatalf("reused code: expected 401 got %d", status)
	}

	status, body = callWithHeaders(t, app, fiber.MethodGet, "/api/v1/accounts/3001/transactions?kind=withdrawal", nil,
		map[string]string{ledger.PINHeader: "1234"})
	if status != fiber.StatusOK {
		t.Fatalf("history: %d", status)
	}
	if txs, _ := body["transactions"].([]any); len(txs) != 1 {
		t.Fatalf("expected one withdrawal, got %v", body["transactions"])
	}
}

func TestCardWithdrawalErrors(t *testing.T) {
	app := newTestServer(t)

	if status, _ := call(t, app, fiber.MethodPost, "/api/v1/accounts", map[string]any{
		"number": "4001", "kind": "tarjeta", "pin": "1234", "initial_balance": 50_000,
	}); status != fiber.StatusCreated {
		t.Fatalf("open account: %d", status)
	}

	cases := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"insufficient funds", map[string]any{"account_number": "4001", "amount": 60_000, "pin": "1234"}, fiber.StatusBadRequest},
		{"not a bill multiple", map[string]any{"account_number": "4001", "amount": 15_000, "pin": "1234"}, fiber.StatusBadRequest},
		{"missing pin", map[string]any{"account_number": "4001", "amount": 10_000}, fiber.StatusBadRequest},
		{"wrong pin", map[string]any{"account_number": "4001", "amount": 10_000, "pin": "9999"}, fiber.StatusUnauthorized},
		{"unknown account", map[string]any{"account_number": "9999", "amount": 10_000, "pin": "1234"}, fiber.StatusNotFound},
	}
	for _, tc := range cases {
		if status, body := call(t, app, fiber.MethodPost, "/api/v1/withdrawals", tc.body); status != tc.status {
			t.Fatalf("%s: expected %d got %d %v", tc.name, tc.status, status, body)
		}
	}

	if status, _ := call(t, app, fiber.MethodPost, "/api/v1/withdrawals/codes", map[string]any{
		"account_number": "4001", "pin": "1234",
	}); status != fiber.StatusBadRequest {
		t.Fatalf("card code issuance: expected 400 got %d", status)
	}

	status, body := call(t, app, fiber.MethodGet, "/api/v1/accounts/4001", nil)
	if status != fiber.StatusOK || body["balance"] != float64(50_000) {
		t.Fatalf("account view: %d %v", status, body)
	}
	for key := range body {
		if strings.Contains(strings.ToLower(key), "pin") {
			t.Fatalf("account view leaks %q", key)
		}
	}
}

func TestDepositAndTransfer(t *testing.T) {
	app := newTestServer(t)

	for _, number := range []string{"5001", "5002"} {
		if status, _ := call(t, app, fiber.MethodPost, "/api/v1/accounts", map[string]any{
			"number": number, "kind": "bancolombia", "pin": "1234",
		}); status != fiber.StatusCreated {
			t.Fatalf("open %s: %d", number, status)
		}
	}

	if status, body := call(t, app, fiber.MethodPost, "/api/v1/accounts/5001/deposits", map[string]any{"amount": 40_000}); status != fiber.StatusCreated || body["balance"] != float64(40_000) {
		t.Fatalf("deposit: %d %v", status, body)
	}
	if status, _ := call(t, app, fiber.MethodPost, "/api/v1/transfers", map[string]any{
		"from_account": "5001", "to_account": "5002", "amount": 15_000,
	}); status != fiber.StatusBadRequest {
		t.Fatalf("transfer without PIN: expected 400 got %d", status)
	}
	if status, _ := call(t, app, fiber.MethodPost, "/api/v1/transfers", map[string]any{
		"from_account": "5001", "to_account": "5002", "amount": 15_000, "pin": "9999",
	}); status != fiber.StatusUnauthorized {
		t.Fatalf("transfer with wrong PIN: expected 401 got %d", status)
	}

	status, body := call(t, app, fiber.MethodPost, "/api/v1/transfers", map[string]any{
		"from_account": "5001", "to_account": "5002", "amount": 15_000, "pin": "1234",
	})
	if status != fiber.StatusCreated || body["from_balance"] != float64(25_000) || body["to_balance"] != float64(15_000) {
		t.Fatalf("transfer: %d %v", status, body)
	}
	if status, _ := call(t, app, fiber.MethodPost, "/api/v1/transfers", map[string]any{
		"from_account": "5001", "to_account": "5001", "amount": 1, "pin": "1234",
	}); status != fiber.StatusBadRequest {
		t.Fatalf("self transfer: expected 400 got %d", status)
	}

	pin := map[string]string{ledger.PINHeader: "1234"}
	if status, _ := callWithHeaders(t, app, fiber.MethodGet, "/api/v1/accounts/5002/transactions?kind=bogus", nil, pin); status != fiber.StatusBadRequest {
		t.Fatalf("bad kind filter: expected 400 got %d", status)
	}
	if status, _ := call(t, app, fiber.MethodGet, "/api/v1/accounts/5002/transactions", nil); status != fiber.StatusBadRequest {
		t.Fatalf("history without PIN: expected 400 got %d", status)
	}
	if status, _ := callWithHeaders(t, app, fiber.MethodGet, "/api/v1/accounts/5002/transactions", nil,
		map[string]string{ledger.PINHeader: "0000"}); status != fiber.StatusUnauthorized {
		t.Fatalf("history with wrong PIN: expected 401 got %d", status)
	}
	status, body = callWithHeaders(t, app, fiber.MethodGet, "/api/v1/accounts/5002/transactions", nil, pin)
	if txs, _ := body["transactions"].([]any); status != fiber.StatusOK || len(txs) != 1 {
		t.Fatalf("history: %d %v", status, body)
	}
	if status, _ := call(t, app, fiber.MethodGet, "/healthz", nil); status != fiber.StatusOK {
		t.Fatalf("healthz: %d", status)
	}
}
