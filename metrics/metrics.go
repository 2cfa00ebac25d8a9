package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_orders_submitted_total",
		Help: "Orders accepted by admission",
	}, []string{"symbol"})

	OrdersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_orders_rejected_total",
		Help: "Requests rejected at admission, partitioned by taxonomy code",
	}, []string{"reason"})

	OrdersCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_orders_cancelled_total",
		Help: "Orders cancelled",
	}, []string{"symbol"})

	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_trades_total",
		Help: "Trades executed",
	}, []string{"symbol"})

	TradedQtyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_traded_qty_total",
		Help: "Total quantity traded",
	}, []string{"symbol"})

	RestingOrders = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "engine_resting_orders",
		Help: "Orders currently resting in the book",
	}, []string{"symbol"})

	WSConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_conns",
		Help: "Active websocket connections",
	})

	WSDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_dropped_total",
		Help: "Messages dropped on slow websocket clients",
	}, []string{"why"})
)
