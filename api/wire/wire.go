// Package wire defines the textual encoding of the engine's external
// messages. Every message carries a "type" discriminator; field names are
// part of the stable contract shared by the websocket endpoint, the REST
// API and the Kafka stream.
package wire

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"hermes/domain/engine"
	"hermes/domain/orderbook"
)

// ---- inbound ----

const (
	TypeSubmit = "submit_order"
	TypeCancel = "cancel_order"
	TypeModify = "modify_order"
	TypePing   = "ping"
)

// Request is the envelope read from clients. Unused fields stay zero for a
// given type; validation happens at admission, not here.
type Request struct {
	Type      string          `json:"type"`
	Symbol    string          `json:"symbol"`
	Side      string          `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	ClientID  string          `json:"client_id"`
	OrderID   string          `json:"order_id"`
	NewPrice  decimal.Decimal `json:"new_price"`
	NewQty    int64           `json:"new_quantity"`
	RequestID string          `json:"request_id,omitempty"`
}

// ---- outbound ----

type Welcome struct {
	Type      string `json:"type"` // "welcome"
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Timestamp int64  `json:"timestamp"`
}

type Pong struct {
	Type      string `json:"type"` // "pong"
	Timestamp int64  `json:"timestamp"`
}

type SubmitAck struct {
	Type    string `json:"type"` // "order_submitted"
	OrderID string `json:"order_id,omitempty"`
	Status  string `json:"status"` // success | rejected
	Reason  string `json:"reason,omitempty"`
}

type CancelAck struct {
	Type    string `json:"type"` // "order_cancelled"
	OrderID string `json:"order_id"`
	Status  string `json:"status"` // success | failed
	Reason  string `json:"reason,omitempty"`
}

type TradeMsg struct {
	Type              string          `json:"type"` // "trade"
	TradeID           string          `json:"trade_id"`
	Symbol            string          `json:"symbol"`
	Price             decimal.Decimal `json:"price"`
	Quantity          int64           `json:"quantity"`
	BuyOrderID        string          `json:"buy_order_id"`
	SellOrderID       string          `json:"sell_order_id"`
	ServerTimestampMs int64           `json:"server_timestamp_ms"`
}

type BookUpdate struct {
	Type    string          `json:"type"` // "orderbook_update"
	Symbol  string          `json:"symbol"`
	BestBid decimal.Decimal `json:"best_bid"`
	BestAsk decimal.Decimal `json:"best_ask"`
	BidSize int64           `json:"bid_size"`
	AskSize int64           `json:"ask_size"`
	Spread  decimal.Decimal `json:"spread"`
}

type OrderStatusMsg struct {
	Type      string `json:"type"` // "order_status"
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	Remaining int64  `json:"remaining"`
}

type ErrorMsg struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ---- encoder ----

// Encoder renders engine events into wire JSON. TickFor maps a symbol to
// its tick size so integer tick prices become client-facing decimals.
type Encoder struct {
	TickFor func(symbol string) decimal.Decimal
}

func (e *Encoder) Trade(t engine.Trade) []byte {
	tick := e.TickFor(t.Symbol)
	return marshal(TradeMsg{
		Type:              "trade",
		TradeID:           t.ID,
		Symbol:            t.Symbol,
		Price:             orderbook.FromTicks(t.Price, tick),
		Quantity:          t.Quantity,
		BuyOrderID:        t.BuyOrderID,
		SellOrderID:       t.SellOrderID,
		ServerTimestampMs: t.TimestampMs,
	})
}

func (e *Encoder) BookDelta(d engine.BookDelta) []byte {
	tick := e.TickFor(d.Symbol)
	spread := int64(0)
	if d.BestBid != 0 && d.BestAsk != 0 {
		spread = d.BestAsk - d.BestBid
	}
	return marshal(BookUpdate{
		Type:    "orderbook_update",
		Symbol:  d.Symbol,
		BestBid: orderbook.FromTicks(d.BestBid, tick),
		BestAsk: orderbook.FromTicks(d.BestAsk, tick),
		BidSize: d.BidSize,
		AskSize: d.AskSize,
		Spread:  orderbook.FromTicks(spread, tick),
	})
}

func (e *Encoder) OrderStatus(u engine.OrderUpdate) []byte {
	return marshal(OrderStatusMsg{
		Type:      "order_status",
		OrderID:   u.OrderID,
		Status:    u.Status.String(),
		Remaining: u.Remaining,
	})
}

func marshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic("wire: marshal: " + err.Error())
	}
	return b
}
