package engine

import (
	"testing"

	"hermes/domain/orderbook"
)

func BenchmarkSubmitResting(b *testing.B) {
	e, _ := newTestEngine(b)
	e.SetSink(NopSink{})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Bids only: nothing crosses, everything rests.
		price := int64(9000 + i%500)
		_, _ = e.Submit(orderbook.Buy, price, 10, "bench")
	}
}

func BenchmarkSubmitCrossing(b *testing.B) {
	e, _ := newTestEngine(b)
	e.SetSink(NopSink{})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Alternate sides at one price: every second submit trades.
		if i%2 == 0 {
			_, _ = e.Submit(orderbook.Sell, 10000, 10, "bench")
		} else {
			_, _ = e.Submit(orderbook.Buy, 10000, 10, "bench")
		}
	}
}

func BenchmarkCancel(b *testing.B) {
	e, _ := newTestEngine(b)
	e.SetSink(NopSink{})

	ids := make([]string, b.N)
	for i := 0; i < b.N; i++ {
		id, _ := e.Submit(orderbook.Buy, int64(1+i%1000), 10, "bench")
		ids[i] = id
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Cancel(ids[i])
	}
}

func BenchmarkDepth(b *testing.B) {
	e, _ := newTestEngine(b)
	e.SetSink(NopSink{})
	for i := 0; i < 1000; i++ {
		_, _ = e.Submit(orderbook.Buy, int64(9000+i), 10, "bench")
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Depth(orderbook.Buy, 10)
	}
}
