package infra

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics updated after every engine tick and served at /metrics
// by the status server.
var (
	MtxTicks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grid_ticks_total",
		Help: "Completed engine ticks",
	})

	MtxFills = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grid_fills_total",
		Help: "Simulated fills by side",
	}, []string{"side"})

	MtxReanchors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grid_reanchors_total",
		Help: "Ladder re-anchor events",
	})

	MtxMarkPrice = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "grid_mark_price_usd",
		Help: "Last observed mark price",
	})

	MtxEquity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "grid_equity_usd",
		Help: "Portfolio value at the mark price",
	})

	MtxRealizedPnl = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "grid_realized_pnl_usd",
		Help: "Cumulative realized PnL",
	})

	MtxOpenPositions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "grid_open_positions",
		Help: "Open simulated lots",
	})

	MtxGuardBlocked = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "grid_guard_blocked",
		Help: "1 when the last tick's buy pass halted on a guard",
	})
)

// RegisterMetrics registers all grid metrics on the default registry.
// Call once at bootstrap.
func RegisterMetrics() {
	prometheus.MustRegister(
		MtxTicks,
		MtxFills,
		MtxReanchors,
		MtxMarkPrice,
		MtxEquity,
		MtxRealizedPnl,
		MtxOpenPositions,
		MtxGuardBlocked,
	)
}
