package wire

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"hermes/domain/engine"
	"hermes/domain/orderbook"
)

func testEncoder() *Encoder {
	tick := decimal.New(1, -2) // 0.01
	return &Encoder{TickFor: func(string) decimal.Decimal { return tick }}
}

func TestTradeEncoding(t *testing.T) {
	enc := testEncoder()

	payload := enc.Trade(engine.Trade{
		ID:          "T7",
		Symbol:      "ACME",
		BuyOrderID:  "O1",
		SellOrderID: "O2",
		Price:       10050,
		Quantity:    30,
		TimestampMs: 1722844800000,
	})

	var m map[string]any
	require.NoError(t, json.Unmarshal(payload, &m))
	require.Equal(t, "trade", m["type"])
	require.Equal(t, "T7", m["trade_id"])
	require.Equal(t, "ACME", m["symbol"])
	require.Equal(t, "100.5", m["price"])
	require.EqualValues(t, 30, m["quantity"])
	require.Equal(t, "O1", m["buy_order_id"])
	require.Equal(t, "O2", m["sell_order_id"])
	require.EqualValues(t, 1722844800000, m["server_timestamp_ms"])
}

func TestBookUpdateEncoding(t *testing.T) {
	enc := testEncoder()

	payload := enc.BookDelta(engine.BookDelta{
		Symbol:  "ACME",
		BestBid: 9900,
		BestAsk: 10100,
		BidSize: 10,
		AskSize: 20,
	})

	var m map[string]any
	require.NoError(t, json.Unmarshal(payload, &m))
	require.Equal(t, "orderbook_update", m["type"])
	require.Equal(t, "99", m["best_bid"])
	require.Equal(t, "101", m["best_ask"])
	require.Equal(t, "2", m["spread"])
	require.EqualValues(t, 10, m["bid_size"])
	require.EqualValues(t, 20, m["ask_size"])
}

func TestBookUpdateEmptySideSpread(t *testing.T) {
	enc := testEncoder()

	payload := enc.BookDelta(engine.BookDelta{Symbol: "ACME", BestBid: 9900})
	var m map[string]any
	require.NoError(t, json.Unmarshal(payload, &m))
	require.Equal(t, "0", m["best_ask"])
	require.Equal(t, "0", m["spread"])
}

func TestOrderStatusEncoding(t *testing.T) {
	enc := testEncoder()

	payload := enc.OrderStatus(engine.OrderUpdate{
		OrderID:   "O3",
		Status:    orderbook.PartiallyFilled,
		Remaining: 12,
	})

	var m map[string]any
	require.NoError(t, json.Unmarshal(payload, &m))
	require.Equal(t, "order_status", m["type"])
	require.Equal(t, "O3", m["order_id"])
	require.Equal(t, "PARTIALLY_FILLED", m["status"])
	require.EqualValues(t, 12, m["remaining"])
}

func TestRequestDecoding(t *testing.T) {
	raw := `{"type":"submit_order","symbol":"ACME","side":"BUY","price":"100.50","quantity":25,"client_id":"web-1"}`

	var req Request
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	require.Equal(t, TypeSubmit, req.Type)
	require.True(t, req.Price.Equal(decimal.RequireFromString("100.50")))
	require.Equal(t, int64(25), req.Quantity)

	// Numeric prices are accepted too.
	raw = `{"type":"submit_order","price":99.25}`
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	require.True(t, req.Price.Equal(decimal.RequireFromString("99.25")))
}
