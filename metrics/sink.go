package metrics

import "hermes/domain/engine"

// Sink feeds the trade counters from the engine's event stream. Counter
// increments are lock-free, so this sink needs no buffering.
type Sink struct{}

func NewSink() *Sink {
	return &Sink{}
}

func (*Sink) OnTrade(t engine.Trade) {
	TradesTotal.WithLabelValues(t.Symbol).Inc()
	TradedQtyTotal.WithLabelValues(t.Symbol).Add(float64(t.Quantity))
}

func (*Sink) OnOrderStatus(engine.OrderUpdate) {}

func (*Sink) OnBookDelta(engine.BookDelta) {}
