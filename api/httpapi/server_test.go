package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hermes/service"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	svc := service.New(zap.NewNop(), []service.Symbol{
		{Name: "ACME", Tick: decimal.RequireFromString("0.01")},
	}, nil)
	app := fiber.New()
	New(svc, zap.NewNop(), 5).Register(app)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var m map[string]any
	if len(data) > 0 && data[0] == '{' {
		require.NoError(t, json.Unmarshal(data, &m))
	}
	return resp.StatusCode, m
}

func TestSubmitCancelLifecycle(t *testing.T) {
	app := newTestApp(t)

	status, m := doJSON(t, app, http.MethodPost, "/orders", map[string]any{
		"symbol": "ACME", "side": "SELL", "price": "100.00", "quantity": 10, "client_id": "c1",
	})
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "success", m["status"])
	id := m["order_id"].(string)

	status, m = doJSON(t, app, http.MethodGet, "/orders/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "PENDING", m["status"])

	status, m = doJSON(t, app, http.MethodDelete, "/orders/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "success", m["status"])

	// Second cancel: terminal conflict.
	status, m = doJSON(t, app, http.MethodDelete, "/orders/"+id, nil)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "ALREADY_TERMINAL", m["code"])
}

func TestSubmitRejections(t *testing.T) {
	app := newTestApp(t)

	status, m := doJSON(t, app, http.MethodPost, "/orders", map[string]any{
		"symbol": "NOPE", "side": "BUY", "price": "1.00", "quantity": 1, "client_id": "c1",
	})
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "UNKNOWN_SYMBOL", m["code"])

	status, m = doJSON(t, app, http.MethodPost, "/orders", map[string]any{
		"symbol": "ACME", "side": "BUY", "price": "1.005", "quantity": 1, "client_id": "c1",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "INVALID_PRICE", m["code"])

	status, _ = doJSON(t, app, http.MethodDelete, "/orders/O99", nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestBookAndDepthEndpoints(t *testing.T) {
	app := newTestApp(t)

	for _, body := range []map[string]any{
		{"symbol": "ACME", "side": "BUY", "price": "99.00", "quantity": 10, "client_id": "c1"},
		{"symbol": "ACME", "side": "SELL", "price": "101.00", "quantity": 10, "client_id": "c1"},
	} {
		status, _ := doJSON(t, app, http.MethodPost, "/orders", body)
		require.Equal(t, http.StatusCreated, status)
	}

	status, m := doJSON(t, app, http.MethodGet, "/book/ACME", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "99", m["best_bid"])
	require.Equal(t, "101", m["best_ask"])
	require.Equal(t, "2", m["spread"])

	status, m = doJSON(t, app, http.MethodGet, "/depth/ACME?levels=5", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, m["bids"], 1)
	require.Len(t, m["asks"], 1)
}

func TestModifyEndpoint(t *testing.T) {
	app := newTestApp(t)

	status, m := doJSON(t, app, http.MethodPost, "/orders", map[string]any{
		"symbol": "ACME", "side": "SELL", "price": "100.00", "quantity": 10, "client_id": "c1",
	})
	require.Equal(t, http.StatusCreated, status)
	id := m["order_id"].(string)

	status, _ = doJSON(t, app, http.MethodPut, "/orders/"+id, map[string]any{
		"new_price": "101.00", "new_quantity": 15,
	})
	require.Equal(t, http.StatusOK, status)

	status, m = doJSON(t, app, http.MethodGet, "/orders/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 15, m["quantity"])
}
